package reconciler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"steward/pkg/logging"
)

// runCoordinator drives the elector for the lifetime of the manager. The
// elector invokes the three transition callbacks below; every Elector
// implementation serializes promotion and demotion, which is what lets the
// transition handlers mutate coordinator state without locks.
func (m *ResourceManager) runCoordinator(ctx context.Context) {
	m.opts.Elector.Run(ctx, LeaderCallbacks{
		OnStartedLeading: m.onPromoted,
		OnStoppedLeading: m.onDemoted,
		OnNewLeader:      m.onNewLeader,
	})
}

// onPromoted marks this instance leader and starts the watch dispatcher and
// idle ticker as independent concurrent tasks, retaining their cancellation
// handle for demotion.
func (m *ResourceManager) onPromoted(ctx context.Context) {
	logging.Info("LeaderCoordinator", "%s: promoted to leader", m.opts.Kind)

	m.leaderMu.Lock()
	m.isLeader = true
	m.leaderMu.Unlock()

	// First idle fire is one full interval out so that promotion does not
	// trigger an immediate idle call.
	m.nextIdleFire = m.idleFireAt(time.Now())

	loopCtx, cancel := context.WithCancel(ctx)
	group, loopCtx := errgroup.WithContext(loopCtx)

	group.Go(func() error {
		m.runIdleLoop(loopCtx)
		return nil
	})
	group.Go(func() error {
		m.runDispatcher(loopCtx)
		return nil
	})

	m.promoCancel = cancel
	m.promoGroup = group
}

// onDemoted clears the leader flag, cancels both loops and waits for their
// in-flight work to drain. Both waits complete before demotion is considered
// finished, because a subsequent promotion on the same instance must not
// race with a still-draining prior generation of either loop.
func (m *ResourceManager) onDemoted() {
	logging.Info("LeaderCoordinator", "%s: demoted from leader", m.opts.Kind)

	m.leaderMu.Lock()
	m.isLeader = false
	m.leaderMu.Unlock()

	cancel := m.promoCancel
	group := m.promoGroup

	defer func() {
		// Reset the task handles regardless of how the drain went so a
		// subsequent promotion starts cleanly.
		m.promoCancel = nil
		m.promoGroup = nil
	}()

	if cancel == nil {
		return
	}
	cancel()

	// Cancellation is the expected drain outcome; the loops only return
	// when their context ends. A loop that fails to unwind would hang here,
	// which is deliberate: a stuck drain means the dispatcher or ticker did
	// not honor cancellation and nothing downstream can be trusted.
	_ = group.Wait()

	// Drop cached state from this leadership generation; the next promotion
	// re-observes the world through a fresh watch.
	if err := m.ser.acquire(context.Background()); err == nil {
		m.cache.reset()
		m.ser.release()
	}

	logging.Debug("LeaderCoordinator", "%s: demotion drain complete", m.opts.Kind)
}

// onNewLeader records the announced identity. This fires on every replica,
// leader or not.
func (m *ResourceManager) onNewLeader(identity string) {
	m.leaderMu.Lock()
	m.leaderIdentity = identity
	m.leaderMu.Unlock()

	logging.Debug("LeaderCoordinator", "%s: leader announced: %s", m.opts.Kind, identity)
}
