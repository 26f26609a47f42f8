package reconciler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"steward/pkg/logging"
)

// ResourceManager owns reconciliation for one resource kind.
//
// A deployment instantiates one ResourceManager per managed kind; managers
// for different kinds reconcile fully independently. The manager exclusively
// owns its event cache, leadership state and lifecycle state.
type ResourceManager struct {
	opts Options

	cache *eventCache
	ser   *serializer

	// leadership state, mutated only by the coordinator callbacks
	leaderMu       sync.RWMutex
	isLeader       bool
	leaderIdentity string

	// lifecycle state
	mu          sync.Mutex
	started     bool
	closed      bool
	namespace   string
	coordCancel context.CancelFunc
	coordDone   chan struct{}

	// active promotion, nil while not leading; owned by leader.go
	promoCancel context.CancelFunc
	promoGroup  *errgroup.Group

	// next idle fire time; written by onPromoted before the idle loop
	// starts and by the idle loop itself, never concurrently because
	// demotion drains the loop before the next promotion
	nextIdleFire time.Time
}

// New validates opts, applies defaults and returns an unstarted manager.
func New(opts Options) (*ResourceManager, error) {
	if opts.Source == nil {
		return nil, ErrMissingSource
	}
	if opts.Factory == nil {
		return nil, ErrMissingFactory
	}
	opts.applyDefaults()

	return &ResourceManager{
		opts:  opts,
		cache: newEventCache(),
		ser:   newSerializer(),
	}, nil
}

// Start records the namespace scope and, if an elector was supplied,
// launches the leader coordinator in the background. It returns once the
// coordinator has been launched; it does not wait for promotion.
//
// Start may be called exactly once per manager. An empty namespace selects
// cluster scope.
func (m *ResourceManager) Start(ctx context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.started {
		return ErrAlreadyStarted
	}

	m.namespace = namespace
	m.started = true

	if m.opts.Elector == nil {
		logging.Info("ResourceManager", "%s: started without leader election, staying passive", m.opts.Kind)
		return nil
	}

	coordCtx, cancel := context.WithCancel(ctx)
	m.coordCancel = cancel
	m.coordDone = make(chan struct{})

	go func() {
		defer close(m.coordDone)
		m.runCoordinator(coordCtx)
	}()

	logging.Info("ResourceManager", "%s: started, scope=%s identity=%s",
		m.opts.Kind, scopeDisplay(namespace), m.opts.Elector.Identity())
	return nil
}

// Close shuts the manager down: it cancels the leader coordinator and waits
// for it to settle, which in turn drains any in-flight dispatcher and idle
// work. Close is idempotent; second and later calls are no-ops.
func (m *ResourceManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancel := m.coordCancel
	done := m.coordDone
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		// Cancellation is the expected way for the coordinator to settle
		// during disposal; there is no outcome to surface.
		<-done
	}

	logging.Info("ResourceManager", "%s: closed", m.opts.Kind)
	return nil
}

// IsLeader reports whether this instance currently leads. Reads from inside
// a callback are a best-effort snapshot, not a linearizable read.
func (m *ResourceManager) IsLeader() bool {
	m.leaderMu.RLock()
	defer m.leaderMu.RUnlock()
	return m.isLeader
}

// LeaderIdentity returns the most recently announced leader identity, which
// may be another instance's. Empty until a leader is first announced.
func (m *ResourceManager) LeaderIdentity() string {
	m.leaderMu.RLock()
	defer m.leaderMu.RUnlock()
	return m.leaderIdentity
}

// TrackedResources returns the number of resources currently in the event
// cache. Callers get a point-in-time value; the cache may change the moment
// the serializer is released.
func (m *ResourceManager) TrackedResources() int {
	if err := m.ser.acquire(context.Background()); err != nil {
		return 0
	}
	defer m.ser.release()
	return m.cache.len()
}

// invokeCallback runs one controller callback under the error policy for
// per-event failures: the error is logged and counted, never propagated.
func (m *ResourceManager) invokeCallback(kind CallbackKind, name string, call func(ResourceController) error) {
	ctrl, err := m.opts.Factory()
	if err != nil {
		logging.Error("ResourceManager", err, "%s: controller construction failed for %s callback on %q",
			m.opts.Kind, kind, name)
		m.countError(kind)
		return
	}

	if err := call(ctrl); err != nil {
		logging.Error("ResourceManager", err, "%s: %s callback failed for %q", m.opts.Kind, kind, name)
		m.countError(kind)
		return
	}
	m.countSuccess(kind)
}

func (m *ResourceManager) countSuccess(kind CallbackKind) {
	if m.opts.Counters != nil {
		m.opts.Counters.IncSuccess(kind)
	}
}

func (m *ResourceManager) countError(kind CallbackKind) {
	if m.opts.Counters != nil {
		m.opts.Counters.IncError(kind)
	}
}

// fatal logs a critical fault and terminates the hosting process. The
// operating assumption is an external supervisor restarts the service and
// the watch is re-established from scratch.
func (m *ResourceManager) fatal(err error, messageFmt string, args ...interface{}) {
	logging.Critical("ResourceManager", err, m.opts.Kind+": "+messageFmt, args...)
	m.opts.Terminate()
}

func scopeDisplay(namespace string) string {
	if namespace == "" {
		return "cluster"
	}
	return "namespace/" + namespace
}

// idleFireAt computes the next idle deadline from now.
func (m *ResourceManager) idleFireAt(now time.Time) time.Time {
	return now.Add(m.opts.IdleInterval)
}
