// Package jobs contains the transport-agnostic service surface of the
// orchestrator. It has no dependency on net/http — an HTTP or RPC layer
// maps onto these methods.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShowzZzie/holiday-destination-finder/internal/archive"
	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
	"github.com/ShowzZzie/holiday-destination-finder/internal/queue"
)

// ErrNotFound is returned when a job exists in neither the hot tier nor the
// archive. A formerly known id that expired reads the same way — callers
// should treat it as a retryable failure, not a hang.
var ErrNotFound = fmt.Errorf("job not found")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Scope selects which list of jobs a client sees.
type Scope string

const (
	ScopePersonal Scope = "personal"
	ScopeShared   Scope = "shared"
)

// Service exposes enqueue/status/cancel/list plus the share bookkeeping.
type Service struct {
	store   *queue.Store
	archive *archive.Store
}

// NewService returns a configured Service.
func NewService(store *queue.Store, arch *archive.Store) *Service {
	return &Service{store: store, archive: arch}
}

// Enqueue validates params, applies defaults, and queues a new job for
// clientID. A queue failure surfaces synchronously — no job id is ever
// issued for a request that was not actually queued.
func (s *Service) Enqueue(ctx context.Context, clientID string, params model.SearchParams) (string, error) {
	if params.Origin == "" {
		return "", &ValidationError{Msg: "origin is required"}
	}
	if _, err := params.Window(); err != nil {
		return "", &ValidationError{Msg: err.Error()}
	}
	if params.TripLength <= 0 {
		params.TripLength = 7
	}
	if params.TopN <= 0 {
		params.TopN = 10
	}
	if len(params.Providers) == 0 {
		params.Providers = []string{"ryanair", "amadeus"}
	}

	return s.store.Enqueue(ctx, clientID, params)
}

// Status returns the current view of a job. While queued it includes the
// 1-based queue position. A job that has expired from the hot tier is
// rehydrated from the archive, which also resets the sliding TTL.
func (s *Service) Status(ctx context.Context, jobID string) (*model.JobRecord, error) {
	rec, err := s.store.Get(ctx, jobID)
	if err == nil {
		if rec.Status == model.StatusQueued {
			if pos, err := s.store.Position(ctx, jobID); err == nil {
				rec.QueuePosition = pos
			}
		}
		return rec, nil
	}
	if !errors.Is(err, queue.ErrNotFound) {
		return nil, err
	}

	archived, err := s.archive.Get(ctx, jobID, true)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &model.JobRecord{
		ID:        archived.JobID,
		ClientID:  archived.ClientID,
		Status:    archived.Status,
		Params:    archived.Params,
		Result:    archived.Result,
		CreatedAt: archived.CreatedAt,
	}, nil
}

// Cancel requests cooperative cancellation. Returns false when the job is
// unknown or already terminal.
func (s *Service) Cancel(ctx context.Context, jobID string) (bool, error) {
	return s.store.Cancel(ctx, jobID)
}

// List returns the archived jobs visible to clientID in the given scope.
func (s *Service) List(ctx context.Context, clientID string, scope Scope) ([]archive.Record, error) {
	switch scope {
	case ScopePersonal:
		return s.archive.ListByOwner(ctx, clientID)
	case ScopeShared:
		return s.archive.ListSharedWith(ctx, clientID)
	}
	return nil, &ValidationError{Msg: fmt.Sprintf("unknown scope %q", scope)}
}

// Save adds someone's shared search to the caller's shared view.
func (s *Service) Save(ctx context.Context, clientID, jobID string) error {
	if _, err := s.archive.Get(ctx, jobID, false); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.archive.SaveForClient(ctx, clientID, jobID)
}

// Unsave soft-deletes the caller's save of a shared search.
func (s *Service) Unsave(ctx context.Context, clientID, jobID string) error {
	return s.archive.UnsaveForClient(ctx, clientID, jobID)
}

// Hide removes a job from the caller's personal view only.
func (s *Service) Hide(ctx context.Context, clientID, jobID string) error {
	return s.archive.Hide(ctx, clientID, jobID)
}

// Unhide restores a hidden job to the personal view.
func (s *Service) Unhide(ctx context.Context, clientID, jobID string) error {
	return s.archive.Unhide(ctx, clientID, jobID)
}

// Rename sets or clears a display name, either on the caller's own record
// or on their save of a shared one.
func (s *Service) Rename(ctx context.Context, clientID, jobID string, customName *string, saved bool) error {
	err := s.archive.Rename(ctx, clientID, jobID, customName, saved)
	if errors.Is(err, archive.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
