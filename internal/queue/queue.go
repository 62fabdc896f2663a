// Package queue implements the durable job queue and the hot-tier job
// record store, both backed by a shared Redis instance.
//
// Key scheme:
//
//	queue:jobs — ordered list of pending job ids (FIFO)
//	job:<id>   — hash holding status, params, progress and terminal payload
//
// Every write refreshes the absolute TTL on the job hash so a polling client
// can observe completion before the record expires.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ShowzZzie/holiday-destination-finder/internal/model"
)

const (
	queueKey     = "queue:jobs"
	blockTimeout = 10 * time.Second
	retryBackoff = 5 * time.Second
)

// ErrNotFound is returned when a job hash is missing or has expired.
var ErrNotFound = fmt.Errorf("job not found")

func jobKey(id string) string { return "job:" + id }

// Store provides queue and job-record operations over Redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore returns a Store whose job hashes live for ttl after each write.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// ─── Queue operations ────────────────────────────────────────────────────────

// Enqueue creates the job hash and appends the id to the queue in one
// transaction. On any store error it fails loudly: no job id is issued for a
// request that was never actually queued.
func (s *Store) Enqueue(ctx context.Context, clientID string, params model.SearchParams) (string, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}

	id := uuid.NewString()
	key := jobKey(id)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"status":     string(model.StatusQueued),
		"client_id":  clientID,
		"params":     string(rawParams),
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
	pipe.Expire(ctx, key, s.ttl)
	pipe.RPush(ctx, queueKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	return id, nil
}

// Dequeue blocks until a job id is available and removes exactly one.
// Store errors are retried with backoff rather than crashing the worker;
// the only non-retryable exit is context cancellation.
func (s *Store) Dequeue(ctx context.Context) (string, error) {
	for {
		res, err := s.rdb.BLPop(ctx, blockTimeout, queueKey).Result()
		switch {
		case err == redis.Nil:
			continue // timed out with an empty queue
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			slog.Warn("dequeue failed, retrying", "err", err)
			select {
			case <-time.After(retryBackoff):
				continue
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return res[1], nil
	}
}

// Position returns the 1-based queue index of a still-queued job, or 0 when
// the id is no longer in the queue (claimed, finished, or cancelled).
func (s *Store) Position(ctx context.Context, jobID string) (int, error) {
	ids, err := s.rdb.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("queue position: %w", err)
	}
	for i, id := range ids {
		if id == jobID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// ─── Job record operations ───────────────────────────────────────────────────

// Get returns the hot-tier record for a job, or ErrNotFound once the hash
// has expired.
func (s *Store) Get(ctx context.Context, jobID string) (*model.JobRecord, error) {
	data, err := s.rdb.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return recordFromHash(jobID, data)
}

// SetRunning marks a queued job as claimed by the worker.
func (s *Store) SetRunning(ctx context.Context, jobID string) error {
	key := jobKey(jobID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, "status", string(model.StatusRunning))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set running %s: %w", jobID, err)
	}
	return nil
}

// SetProgress writes the per-destination progress counters. label is the
// destination currently being processed; originIndex/originCount are only
// meaningful when the origin expanded to multiple airports.
func (s *Store) SetProgress(ctx context.Context, jobID string, processed, total int, label string, originIndex, originCount int) error {
	fields := map[string]interface{}{
		"processed": strconv.Itoa(processed),
		"total":     strconv.Itoa(total),
	}
	if label != "" {
		fields["current"] = label
	}
	if originCount > 1 {
		fields["origin_index"] = strconv.Itoa(originIndex)
		fields["origin_count"] = strconv.Itoa(originCount)
	}

	key := jobKey(jobID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set progress %s: %w", jobID, err)
	}
	return nil
}

// SetDone writes the terminal payload and clears progress fields.
func (s *Store) SetDone(ctx context.Context, jobID string, payload *model.ResultPayload) error {
	return s.finalize(ctx, jobID, model.StatusDone, "", payload)
}

// SetFailed records a terminal failure. A non-nil payload preserves partial
// results gathered before the fatal error.
func (s *Store) SetFailed(ctx context.Context, jobID, errMsg string, payload *model.ResultPayload) error {
	return s.finalize(ctx, jobID, model.StatusFailed, errMsg, payload)
}

// SetCancelled finalizes a cooperatively cancelled job with whatever partial
// results exist.
func (s *Store) SetCancelled(ctx context.Context, jobID string, payload *model.ResultPayload) error {
	return s.finalize(ctx, jobID, model.StatusCancelled, "", payload)
}

func (s *Store) finalize(ctx context.Context, jobID string, status model.Status, errMsg string, payload *model.ResultPayload) error {
	fields := map[string]interface{}{"status": string(status)}
	if errMsg != "" {
		fields["error"] = errMsg
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		fields["result"] = string(raw)
	}

	key := jobKey(jobID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.HDel(ctx, key, "processed", "total", "current", "origin_index", "origin_count")
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("finalize %s as %s: %w", jobID, status, err)
	}
	return nil
}

// Cancel removes the job from the queue and flips queued/running jobs to
// cancelled. Returns false when the job is missing or already terminal.
// The running worker observes the new status at its next checkpoint.
func (s *Store) Cancel(ctx context.Context, jobID string) (bool, error) {
	if err := s.rdb.LRem(ctx, queueKey, 0, jobID).Err(); err != nil {
		return false, fmt.Errorf("remove %s from queue: %w", jobID, err)
	}

	key := jobKey(jobID)
	raw, err := s.rdb.HGet(ctx, key, "status").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cancel %s: %w", jobID, err)
	}

	status, err := model.ParseStatus(raw)
	if err != nil || status.IsTerminal() {
		return false, err
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, "status", string(model.StatusCancelled))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("cancel %s: %w", jobID, err)
	}
	return true, nil
}

// Cancelled reports whether a job has been externally cancelled. Used by the
// executor at destination-boundary checkpoints; store errors are treated as
// "not cancelled" so a transient Redis hiccup never aborts a search.
func (s *Store) Cancelled(ctx context.Context, jobID string) bool {
	raw, err := s.rdb.HGet(ctx, jobKey(jobID), "status").Result()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("cancellation check failed", "jobId", jobID, "err", err)
		}
		return false
	}
	return raw == string(model.StatusCancelled)
}

// recordFromHash decodes the Redis hash into a JobRecord.
func recordFromHash(jobID string, data map[string]string) (*model.JobRecord, error) {
	status, err := model.ParseStatus(data["status"])
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}

	rec := &model.JobRecord{
		ID:       jobID,
		ClientID: data["client_id"],
		Status:   status,
		Error:    data["error"],
	}

	if raw := data["params"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Params); err != nil {
			return nil, fmt.Errorf("job %s params: %w", jobID, err)
		}
	}
	if raw := data["result"]; raw != "" {
		var payload model.ResultPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("job %s result: %w", jobID, err)
		}
		rec.Result = &payload
	}
	if raw := data["created_at"]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			rec.CreatedAt = t
		}
	}

	rec.Processed, _ = strconv.Atoi(data["processed"])
	rec.Total, _ = strconv.Atoi(data["total"])
	rec.Current = data["current"]
	rec.OriginIndex, _ = strconv.Atoi(data["origin_index"])
	rec.OriginCount, _ = strconv.Atoi(data["origin_count"])

	return rec, nil
}
