package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"
)

// recordedCall captures one controller callback invocation.
type recordedCall struct {
	Kind CallbackKind
	Name string
	At   time.Time
}

// callRecorder is shared across the fresh controller instances the factory
// hands out, so a test sees all invocations regardless of instance churn.
type callRecorder struct {
	mu    sync.Mutex
	calls []recordedCall

	// failWith, when set, makes every callback return this error.
	failWith error

	// hooks run inside the named callback while the serializer is held;
	// tests use them to create controlled in-flight work.
	reconcileHook func()
	idleHook      func()

	// concurrency tracking for single-flight assertions
	inFlight    int
	maxInFlight int
}

func newCallRecorder() *callRecorder {
	return &callRecorder{}
}

func (r *callRecorder) record(kind CallbackKind, name string) error {
	r.mu.Lock()
	r.calls = append(r.calls, recordedCall{Kind: kind, Name: name, At: time.Now()})
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	reconcileHook := r.reconcileHook
	idleHook := r.idleHook
	failWith := r.failWith
	r.mu.Unlock()

	if kind == CallbackReconcile && reconcileHook != nil {
		reconcileHook()
	}
	if kind == CallbackIdle && idleHook != nil {
		idleHook()
	}

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()

	return failWith
}

func (r *callRecorder) countOf(kind CallbackKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, call := range r.calls {
		if call.Kind == kind {
			n++
		}
	}
	return n
}

func (r *callRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *callRecorder) maxConcurrency() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInFlight
}

// mockController implements ResourceController against a shared recorder.
type mockController struct {
	rec *callRecorder
}

func (c *mockController) Reconcile(ctx context.Context, obj *unstructured.Unstructured) error {
	return c.rec.record(CallbackReconcile, obj.GetName())
}

func (c *mockController) Delete(ctx context.Context, obj *unstructured.Unstructured) error {
	return c.rec.record(CallbackDelete, obj.GetName())
}

func (c *mockController) StatusModified(ctx context.Context, obj *unstructured.Unstructured) error {
	return c.rec.record(CallbackStatusModified, obj.GetName())
}

func (c *mockController) Idle(ctx context.Context) error {
	return c.rec.record(CallbackIdle, "")
}

// factoryFor builds the fresh-instance-per-event factory around a recorder.
func factoryFor(rec *callRecorder) ControllerFactory {
	return func() (ResourceController, error) {
		return &mockController{rec: rec}, nil
	}
}

// failingFactory always fails construction.
func failingFactory() (ResourceController, error) {
	return nil, errors.New("controller construction refused")
}

// fakeSource is a channel-backed EventSource the test feeds directly.
type fakeSource struct {
	ch chan watch.Event
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan watch.Event, 64)}
}

func (s *fakeSource) Watch(ctx context.Context, namespace string) (<-chan watch.Event, error) {
	return s.ch, nil
}

func (s *fakeSource) push(eventType watch.EventType, obj *unstructured.Unstructured) {
	s.ch <- watch.Event{Type: eventType, Object: obj}
}

// manualElector lets tests drive promotion and demotion explicitly.
// transMu is held across every callback invocation, giving tests the same
// serialized transitions LeaseElector.Run enforces around the election
// primitive's callbacks.
type manualElector struct {
	identity string
	ready    chan struct{}

	transMu sync.Mutex
	cb      LeaderCallbacks
	leadCtx context.Context
	leading bool
}

func newManualElector() *manualElector {
	return &manualElector{identity: "test-elector", ready: make(chan struct{})}
}

func (e *manualElector) Identity() string { return e.identity }

func (e *manualElector) Run(ctx context.Context, callbacks LeaderCallbacks) {
	e.transMu.Lock()
	e.cb = callbacks
	e.leadCtx = ctx
	e.transMu.Unlock()
	close(e.ready)

	<-ctx.Done()

	// On disposal the primitive still owes a demotion if one was promoted.
	e.transMu.Lock()
	defer e.transMu.Unlock()
	if e.leading {
		e.leading = false
		e.cb.OnStoppedLeading()
	}
}

// promote waits for Run to register callbacks, then fires the promotion
// transition synchronously.
func (e *manualElector) promote() {
	<-e.ready
	e.transMu.Lock()
	defer e.transMu.Unlock()

	e.leading = true
	if e.cb.OnNewLeader != nil {
		e.cb.OnNewLeader(e.identity)
	}
	e.cb.OnStartedLeading(e.leadCtx)
}

// demote fires the demotion transition synchronously; it returns only after
// the coordinator's drain completes.
func (e *manualElector) demote() {
	e.transMu.Lock()
	defer e.transMu.Unlock()

	if !e.leading {
		return
	}
	e.leading = false
	e.cb.OnStoppedLeading()
}

// announce fires only the new-leader announcement, as happens on replicas
// that are not themselves promoted.
func (e *manualElector) announce(identity string) {
	<-e.ready
	e.transMu.Lock()
	defer e.transMu.Unlock()
	e.cb.OnNewLeader(identity)
}

// newTestObject builds an unstructured resource with the given name and
// generation; status, when non-nil, becomes the status sub-object.
func newTestObject(name string, generation int64, status map[string]interface{}) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "steward.io/v1alpha1",
		"kind":       "ClusterDefinition",
		"metadata": map[string]interface{}{
			"name": name,
		},
		"spec": map[string]interface{}{
			"description": "test resource",
		},
	}}
	obj.SetGeneration(generation)
	if status != nil {
		obj.Object["status"] = status
	}
	return obj
}

// newTestManager wires a manager over the supplied collaborators with fast
// timing and a terminate hook that records instead of exiting.
func newTestManager(opts Options, terminated *bool) (*ResourceManager, error) {
	if opts.IdleInterval == 0 {
		opts.IdleInterval = time.Hour // keep idle quiet unless the test wants it
	}
	if opts.PollGranularity == 0 {
		opts.PollGranularity = time.Millisecond
	}
	if opts.Terminate == nil {
		opts.Terminate = func() { *terminated = true }
	}
	if opts.Kind == "" {
		opts.Kind = "ClusterDefinition"
	}
	return New(opts)
}
