package resilience

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dcpsystems/dcp/internal/model"
)

// RetryItem is one action waiting to be re-dispatched after an earlier
// attempt failed.
type RetryItem struct {
	ID          string                 `json:"id"`
	ActionID    string                 `json:"action_id"`
	Adapter     string                 `json:"adapter"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Attempt     int                    `json:"attempt"`
	MaxAttempts int                    `json:"max_attempts"`
	NextRetryAt time.Time              `json:"next_retry_at"`
	CreatedAt   time.Time              `json:"created_at"`
	LastError   string                 `json:"last_error,omitempty"`
}

// Exhausted reports whether the item has used up all of its attempts.
func (r *RetryItem) Exhausted() bool { return r.Attempt >= r.MaxAttempts }

// Ready reports whether the item's backoff has elapsed.
func (r *RetryItem) Ready() bool { return !time.Now().Before(r.NextRetryAt) }

// ScheduleRetry bumps the attempt counter and computes the next retry time
// using exponential backoff with jitter:
//
//	delay = min(base * 2^(attempt-1), maxDelay)
//	jitter ~ uniform[0, 0.3*delay]
func (r *RetryItem) ScheduleRetry(base, maxDelay time.Duration, lastErr string) {
	r.Attempt++
	r.LastError = lastErr

	delay := time.Duration(float64(base) * math.Pow(2, float64(r.Attempt-1)))
	if delay > maxDelay {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Float64() * 0.3 * float64(delay))
	r.NextRetryAt = time.Now().Add(delay + jitter)
}

// RetryQueue is a durable, append-on-disk queue of RetryItems, persisted as
// a single JSON array so that re-drive survives process restarts.
type RetryQueue struct {
	mu    sync.Mutex
	path  string
	items []*RetryItem
}

// NewRetryQueue loads (or initializes) a RetryQueue backed by path.
func NewRetryQueue(path string) (*RetryQueue, error) {
	q := &RetryQueue{path: path}
	if err := q.load(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *RetryQueue) load() error {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			q.items = nil
			return nil
		}
		return err
	}
	var items []*RetryItem
	if err := json.Unmarshal(data, &items); err != nil {
		// A corrupt retry queue is treated as empty rather than fatal —
		// losing in-flight retries is preferable to refusing to run.
		q.items = nil
		return nil
	}
	q.items = items
	return nil
}

func (q *RetryQueue) save() error {
	dir := filepath.Dir(q.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(q.items, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".retryqueue-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, q.path)
}

// Enqueue adds a new RetryItem for id, or reschedules the existing item
// looked up by id — id is stable across re-enqueues of the same logical
// action. Either way the item's backoff is advanced via ScheduleRetry, so a
// freshly-enqueued item is not due immediately; it becomes ready after its
// first backoff interval elapses, matching the original's enqueue(), which
// always calls schedule_retry() whether the item is new or already queued.
func (q *RetryQueue) Enqueue(id, actionID, adapter string, params map[string]interface{}, maxAttempts int, base, maxDelay time.Duration, lastErr string) (*RetryItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID == id {
			item.ScheduleRetry(base, maxDelay, lastErr)
			return item, q.save()
		}
	}

	item := &RetryItem{
		ID:          id,
		ActionID:    actionID,
		Adapter:     adapter,
		Params:      params,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now().UTC(),
	}
	item.ScheduleRetry(base, maxDelay, lastErr)
	q.items = append(q.items, item)
	return item, q.save()
}

// DequeueReady returns every item that is due and not yet exhausted, sorted
// ascending by NextRetryAt.
func (q *RetryQueue) DequeueReady() []*RetryItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ready []*RetryItem
	for _, item := range q.items {
		if !item.Exhausted() && item.Ready() {
			ready = append(ready, item)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].NextRetryAt.Before(ready[j].NextRetryAt) })
	return ready
}

// Complete removes an item after a successful re-dispatch.
func (q *RetryQueue) Complete(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = removeByID(q.items, id)
	return q.save()
}

// Fail schedules another retry for id, or leaves it in the queue exhausted
// if it has no attempts left (RemoveExhausted cleans those up later).
func (q *RetryQueue) Fail(id string, base, maxDelay time.Duration, lastErr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.ID == id {
			item.ScheduleRetry(base, maxDelay, lastErr)
			break
		}
	}
	return q.save()
}

// RemoveExhausted drops every item that has used up all of its attempts
// and returns them so the caller can surface a terminal failure.
func (q *RetryQueue) RemoveExhausted() ([]*RetryItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var exhausted, remaining []*RetryItem
	for _, item := range q.items {
		if item.Exhausted() {
			exhausted = append(exhausted, item)
		} else {
			remaining = append(remaining, item)
		}
	}
	q.items = remaining
	return exhausted, q.save()
}

// Clear empties the queue.
func (q *RetryQueue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	return q.save()
}

// Status reports queue depth broken down by adapter, the shape the
// retry_queue component of `dcp health` and /api/health renders.
func (q *RetryQueue) Status() map[string]interface{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	byAdapter := make(map[string]int)
	exhausted := 0
	for _, item := range q.items {
		byAdapter[item.Adapter]++
		if item.Exhausted() {
			exhausted++
		}
	}
	return map[string]interface{}{
		"total":      len(q.items),
		"exhausted":  exhausted,
		"by_adapter": byAdapter,
	}
}

func removeByID(items []*RetryItem, id string) []*RetryItem {
	out := items[:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// Mirror is implemented by optional secondary stores (e.g. RedisMirror)
// that shadow the queue's contents for cross-process visibility.
type Mirror interface {
	Sync(ctx context.Context, items []*RetryItem) error
}

// ReceiptForExhausted builds a failure Receipt for an item whose retries
// were exhausted, used by internal/retrydrive when logging a terminal
// failure.
func ReceiptForExhausted(item *RetryItem) model.Receipt {
	return model.NewFailureReceipt(item.Adapter, item.ActionID, "retry attempts exhausted: "+item.LastError, 0)
}
