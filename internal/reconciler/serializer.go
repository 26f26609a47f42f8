package reconciler

import "context"

// serializer is the single-flight primitive: at most one controller callback
// executes at any instant, even though callbacks are triggered from two
// independent concurrent producers (the watch dispatcher and the idle
// ticker).
//
// A one-slot channel semaphore rather than a sync.Mutex so acquisition can
// be abandoned when the holder's context is cancelled mid-shutdown.
type serializer struct {
	slot chan struct{}
}

func newSerializer() *serializer {
	return &serializer{slot: make(chan struct{}, 1)}
}

// acquire blocks until the serializer is free or ctx is cancelled.
func (s *serializer) acquire(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release frees the serializer. Must only be called after a successful
// acquire.
func (s *serializer) release() {
	<-s.slot
}

// tryAcquire acquires the serializer without blocking. Used by tests to
// probe whether a callback is in flight.
func (s *serializer) tryAcquire() bool {
	select {
	case s.slot <- struct{}{}:
		return true
	default:
		return false
	}
}
