// Package archive is the cold tier: completed job records mirrored into
// PostgreSQL with a sliding TTL, plus the per-client save/hide association
// tables that drive the personal and shared views.
//
// Tables (conceptual):
//
//	search_results  — job_id PK, client_id, status, params/result JSONB,
//	                  custom_name, created_at, expires_at, last_accessed_at
//	saved_searches  — (client_id, job_id) unique, custom_name, saved_at,
//	                  deleted_at (soft delete)
//	hidden_searches — (client_id, job_id) unique
//
// Expiry is lazy: reads filter on expires_at, and a periodic sweep deletes
// rows past it.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
)

// ErrNotFound is returned when a record is missing, expired, or not owned
// by the caller.
var ErrNotFound = fmt.Errorf("archived search not found")

// Record is one durable search result row.
type Record struct {
	JobID          string               `json:"job_id"`
	ClientID       string               `json:"client_id"`
	Status         model.Status         `json:"status"`
	Params         model.SearchParams   `json:"params"`
	Result         *model.ResultPayload `json:"result,omitempty"`
	CustomName     *string              `json:"custom_name,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	ExpiresAt      time.Time            `json:"expires_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
}

// Store encapsulates all cold-tier persistence.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration // sliding retention window
}

// NewStore returns a Store whose records expire ttl after their last access.
func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

// SaveResult upserts the durable copy of a finished job. Called by the
// worker for done and failed jobs before the hot-tier record expires.
func (s *Store) SaveResult(ctx context.Context, jobID, clientID string, params model.SearchParams, result *model.ResultPayload, status model.Status) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	var rawResult []byte
	if result != nil {
		if rawResult, err = json.Marshal(result); err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO search_results (job_id, client_id, status, params, result, created_at, expires_at, last_accessed_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, NOW(), NOW() + make_interval(secs => $6), NOW())
		 ON CONFLICT (job_id) DO UPDATE
		 SET status = EXCLUDED.status,
		     result = EXCLUDED.result,
		     expires_at = EXCLUDED.expires_at,
		     last_accessed_at = EXCLUDED.last_accessed_at`,
		jobID, clientID, string(status), string(rawParams), rawResult, s.ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("save search result %s: %w", jobID, err)
	}
	return nil
}

// Get returns the durable record for a job. When touch is true the sliding
// TTL is reset relative to this access. Expired rows read as not found.
func (s *Store) Get(ctx context.Context, jobID string, touch bool) (*Record, error) {
	rec, err := s.scanOne(s.pool.QueryRow(ctx,
		`SELECT job_id, client_id, status, params, result, custom_name,
		        created_at, expires_at, last_accessed_at
		 FROM search_results
		 WHERE job_id = $1 AND expires_at > NOW()`,
		jobID,
	))
	if err != nil {
		return nil, err
	}

	if touch {
		if err := s.Touch(ctx, jobID); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Touch resets the sliding TTL: expires_at moves to now + retention window.
func (s *Store) Touch(ctx context.Context, jobID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE search_results
		 SET expires_at = NOW() + make_interval(secs => $2), last_accessed_at = NOW()
		 WHERE job_id = $1`,
		jobID, s.ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("touch %s: %w", jobID, err)
	}
	return nil
}

// ListByOwner returns the caller's own searches (personal view), newest
// access first, excluding hidden ones.
func (s *Store) ListByOwner(ctx context.Context, clientID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sr.job_id, sr.client_id, sr.status, sr.params, sr.result, sr.custom_name,
		        sr.created_at, sr.expires_at, sr.last_accessed_at
		 FROM search_results sr
		 WHERE sr.client_id = $1
		   AND sr.expires_at > NOW()
		   AND NOT EXISTS (
		     SELECT 1 FROM hidden_searches h
		     WHERE h.client_id = $1 AND h.job_id = sr.job_id
		   )
		 ORDER BY sr.last_accessed_at DESC`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// ListSharedWith returns the searches the caller saved from shared links
// (shared view), excluding soft-deleted saves. A per-user custom name on the
// save overrides the owner's name.
func (s *Store) ListSharedWith(ctx context.Context, clientID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sr.job_id, sr.client_id, sr.status, sr.params, sr.result,
		        COALESCE(ss.custom_name, sr.custom_name),
		        sr.created_at, sr.expires_at, sr.last_accessed_at
		 FROM saved_searches ss
		 JOIN search_results sr ON sr.job_id = ss.job_id
		 WHERE ss.client_id = $1
		   AND ss.deleted_at IS NULL
		   AND sr.expires_at > NOW()
		 ORDER BY ss.saved_at DESC`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shared: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// SaveForClient records that clientID saved someone's shared search.
// Idempotent: re-saving revives a previously soft-deleted save.
func (s *Store) SaveForClient(ctx context.Context, clientID, jobID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO saved_searches (client_id, job_id, saved_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (client_id, job_id) DO UPDATE
		 SET deleted_at = NULL, saved_at = NOW()`,
		clientID, jobID,
	)
	if err != nil {
		return fmt.Errorf("save search %s for %s: %w", jobID, clientID, err)
	}
	return nil
}

// UnsaveForClient soft-deletes the save association. The underlying record
// survives — other clients may still reference it via the shared link.
func (s *Store) UnsaveForClient(ctx context.Context, clientID, jobID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE saved_searches SET deleted_at = NOW()
		 WHERE client_id = $1 AND job_id = $2`,
		clientID, jobID,
	)
	if err != nil {
		return fmt.Errorf("unsave search %s for %s: %w", jobID, clientID, err)
	}
	return nil
}

// Hide removes a search from the owner's personal view without touching the
// underlying record.
func (s *Store) Hide(ctx context.Context, clientID, jobID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO hidden_searches (client_id, job_id)
		 VALUES ($1, $2)
		 ON CONFLICT (client_id, job_id) DO NOTHING`,
		clientID, jobID,
	)
	if err != nil {
		return fmt.Errorf("hide search %s for %s: %w", jobID, clientID, err)
	}
	return nil
}

// Unhide restores a hidden search to the personal view.
func (s *Store) Unhide(ctx context.Context, clientID, jobID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM hidden_searches WHERE client_id = $1 AND job_id = $2`,
		clientID, jobID,
	)
	if err != nil {
		return fmt.Errorf("unhide search %s for %s: %w", jobID, clientID, err)
	}
	return nil
}

// Rename sets or clears a display name. The saved path writes the per-user
// name on the save association; the owner path requires ownership of the
// underlying record and returns ErrNotFound otherwise.
func (s *Store) Rename(ctx context.Context, clientID, jobID string, customName *string, saved bool) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if saved {
		tag, err = s.pool.Exec(ctx,
			`UPDATE saved_searches SET custom_name = $3
			 WHERE client_id = $1 AND job_id = $2 AND deleted_at IS NULL`,
			clientID, jobID, customName,
		)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE search_results SET custom_name = $3
			 WHERE job_id = $2 AND client_id = $1`,
			clientID, jobID, customName,
		)
	}
	if err != nil {
		return fmt.Errorf("rename search %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes durable records past their expiry. Called by the
// retention sweep; reads already treat those rows as gone.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM search_results WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ─── Row scanning ────────────────────────────────────────────────────────────

func (s *Store) scanOne(row pgx.Row) (*Record, error) {
	var (
		rec       Record
		status    string
		rawParams []byte
		rawResult []byte
	)
	err := row.Scan(
		&rec.JobID, &rec.ClientID, &status, &rawParams, &rawResult, &rec.CustomName,
		&rec.CreatedAt, &rec.ExpiresAt, &rec.LastAccessedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan search result: %w", err)
	}

	if rec.Status, err = model.ParseStatus(status); err != nil {
		return nil, err
	}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &rec.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params for %s: %w", rec.JobID, err)
		}
	}
	if len(rawResult) > 0 {
		var payload model.ResultPayload
		if err := json.Unmarshal(rawResult, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal result for %s: %w", rec.JobID, err)
		}
		rec.Result = &payload
	}
	return &rec, nil
}

func (s *Store) scanAll(rows pgx.Rows) ([]Record, error) {
	records := make([]Record, 0)
	for rows.Next() {
		rec, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
