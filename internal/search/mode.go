// Package search runs one logical destination search: provider-mode
// selection and fallback, parallel per-destination fan-out, best-offer
// reduction, and final scoring.
//
// Two provider modes exist:
//
//	discovery — one provider enumerates destinations and prices them in a
//	            single pass, bounded to a forward date horizon
//	catalog   — static destination list priced by one or more providers,
//	            unbounded in date horizon
//
// A job transitions discovery → catalog at most once, when the discovery
// provider reports the range as unsupported.
package search

import (
	"time"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
	"github.com/ShowzZzie/holiday-destination-finder/internal/provider"
)

// Mode is the provider path a job is currently on.
type Mode string

const (
	ModeDiscovery Mode = "discovery"
	ModeCatalog   Mode = "catalog"
)

// ChooseMode picks the starting mode. Discovery is used only when the
// caller requested it and the whole window fits the supported horizon;
// otherwise the job starts directly in catalog mode and never issues a
// discovery call.
func ChooseMode(wantDiscovery bool, window model.DateWindow, now time.Time, horizonMonths int) Mode {
	if wantDiscovery && !window.End.After(provider.HorizonEnd(now, horizonMonths)) {
		return ModeDiscovery
	}
	return ModeCatalog
}

// NextMode applies the fallback transition: a range-unsupported failure in
// discovery mode moves the job to catalog mode for its remainder. All other
// inputs leave the mode unchanged, so no oscillation is possible.
func NextMode(cur Mode, rangeUnsupported bool) Mode {
	if cur == ModeDiscovery && rangeUnsupported {
		return ModeCatalog
	}
	return cur
}
