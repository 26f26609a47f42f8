package reconciler

import (
	"sync"
	"time"
)

// CallbackTally is the in-process EventCounters implementation. It tracks
// per-callback success and error counts plus last-seen timestamps, giving
// visibility into callback health without requiring a metrics backend.
type CallbackTally struct {
	mu sync.RWMutex

	counts map[CallbackKind]*callbackCounts
}

type callbackCounts struct {
	Successes     int64
	Errors        int64
	LastSuccessAt time.Time
	LastErrorAt   time.Time
}

// NewCallbackTally creates an empty tally.
func NewCallbackTally() *CallbackTally {
	return &CallbackTally{counts: make(map[CallbackKind]*callbackCounts)}
}

func (t *CallbackTally) getOrCreate(kind CallbackKind) *callbackCounts {
	if c, exists := t.counts[kind]; exists {
		return c
	}
	c := &callbackCounts{}
	t.counts[kind] = c
	return c
}

// IncSuccess records a successful callback invocation.
func (t *CallbackTally) IncSuccess(kind CallbackKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.getOrCreate(kind)
	c.Successes++
	c.LastSuccessAt = time.Now()
}

// IncError records a failed callback invocation.
func (t *CallbackTally) IncError(kind CallbackKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.getOrCreate(kind)
	c.Errors++
	c.LastErrorAt = time.Now()
}

// CallbackTallyView is a read-only view of one callback's counts.
type CallbackTallyView struct {
	Kind          CallbackKind `json:"kind"`
	Successes     int64        `json:"successes"`
	Errors        int64        `json:"errors"`
	LastSuccessAt time.Time    `json:"last_success_at,omitempty"`
	LastErrorAt   time.Time    `json:"last_error_at,omitempty"`
}

// Summary returns a snapshot of all callback counts.
func (t *CallbackTally) Summary() []CallbackTallyView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	views := make([]CallbackTallyView, 0, len(t.counts))
	for kind, c := range t.counts {
		views = append(views, CallbackTallyView{
			Kind:          kind,
			Successes:     c.Successes,
			Errors:        c.Errors,
			LastSuccessAt: c.LastSuccessAt,
			LastErrorAt:   c.LastErrorAt,
		})
	}
	return views
}

// Counts returns the success and error counts for one callback kind.
func (t *CallbackTally) Counts(kind CallbackKind) (successes, errors int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, exists := t.counts[kind]
	if !exists {
		return 0, 0
	}
	return c.Successes, c.Errors
}
