package reconciler

import (
	"context"
	"errors"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"
)

// ResourceController is implemented once per managed resource kind.
//
// The engine constructs a fresh controller instance for every dispatched
// event via the configured ControllerFactory, so implementations must not
// assume state survives between callbacks. All callbacks run under the
// engine's single-flight serializer and therefore never overlap for a given
// ResourceManager.
type ResourceController interface {
	// Reconcile converges real-world state toward the resource's declared
	// desired state. Called for Added events and for Modified events whose
	// generation comparison selects reconciliation.
	Reconcile(ctx context.Context, obj *unstructured.Unstructured) error

	// Delete releases whatever Reconcile provisioned. Called for Deleted events.
	Delete(ctx context.Context, obj *unstructured.Unstructured) error

	// StatusModified is called when only the status sub-object changed.
	StatusModified(ctx context.Context, obj *unstructured.Unstructured) error

	// Idle is called periodically while this instance leads, independent of
	// any specific resource, to correct drift.
	Idle(ctx context.Context) error
}

// ControllerFactory builds a fresh controller for one callback invocation.
// The closure captures whatever API client handles the controller needs.
type ControllerFactory func() (ResourceController, error)

// EventSource delivers the stream of watch events for one resource kind.
//
// Implementations must honor ctx cancellation by terminating the stream and
// closing the returned channel. The stream's delivery order is the order the
// dispatcher processes notifications in.
type EventSource interface {
	// Watch opens the event stream. An empty namespace means cluster scope.
	Watch(ctx context.Context, namespace string) (<-chan watch.Event, error)
}

// LeaderCallbacks carries the three transition callbacks the leader
// coordinator registers with an Elector. The Elector guarantees the
// transition callbacks are mutually exclusive with each other and fire
// exactly once per transition.
type LeaderCallbacks struct {
	// OnStartedLeading fires when this instance acquires leadership. The
	// supplied context stays live for the duration of the election run.
	OnStartedLeading func(ctx context.Context)

	// OnStoppedLeading fires when leadership is lost or the elector stops.
	// Guaranteed to eventually fire after OnStartedLeading.
	OnStoppedLeading func()

	// OnNewLeader fires on every replica whenever a leader is announced,
	// including when the leader is another instance.
	OnNewLeader func(identity string)
}

// Elector is the leader-election primitive the coordinator wraps.
type Elector interface {
	// Run blocks until ctx is cancelled, invoking callbacks on transitions.
	// Implementations must serialize the transition callbacks: promotion
	// and demotion never overlap, and a demotion never starts before the
	// matching promotion has returned.
	Run(ctx context.Context, callbacks LeaderCallbacks)

	// Identity returns this instance's candidate identity.
	Identity() string
}

// CallbackKind names a controller callback for metrics and logging.
type CallbackKind string

const (
	CallbackReconcile      CallbackKind = "reconcile"
	CallbackDelete         CallbackKind = "delete"
	CallbackStatusModified CallbackKind = "status_modified"
	CallbackIdle           CallbackKind = "idle"
)

// EventCounters receives increment-only success/error counts per callback.
// A nil EventCounters in Options disables counting without affecting
// behavior.
type EventCounters interface {
	IncSuccess(kind CallbackKind)
	IncError(kind CallbackKind)
}

// Options is the immutable configuration snapshot for a ResourceManager,
// captured at construction and never mutated afterward.
type Options struct {
	// Kind names the managed resource kind, used for logging context.
	Kind string

	// Source delivers watch events for the resource kind. Required.
	Source EventSource

	// Factory builds a fresh controller per dispatched event. Required.
	Factory ControllerFactory

	// Elector supplies leader election. When nil, Start records the scope
	// but never activates the dispatcher or the idle ticker.
	Elector Elector

	// IdleInterval is the period between idle callbacks while leading.
	// Defaults to one minute.
	IdleInterval time.Duration

	// PollGranularity is how often the idle loop checks its schedule and
	// stop conditions. Much finer than IdleInterval so stop requests are
	// observed promptly. Defaults to one second.
	PollGranularity time.Duration

	// Filter, when set, gates Added and Modified events; resources failing
	// the predicate are ignored entirely.
	Filter func(obj *unstructured.Unstructured) bool

	// Counters receives per-callback success/error increments. Optional.
	Counters EventCounters

	// Terminate is invoked on unrecoverable faults after critical logging.
	// Defaults to exiting the process; tests override it.
	Terminate func()
}

func (o *Options) applyDefaults() {
	if o.IdleInterval <= 0 {
		o.IdleInterval = time.Minute
	}
	if o.PollGranularity <= 0 {
		o.PollGranularity = time.Second
	}
	if o.Terminate == nil {
		o.Terminate = func() { os.Exit(1) }
	}
	if o.Kind == "" {
		o.Kind = "Resource"
	}
}

var (
	// ErrAlreadyStarted is returned by Start when the manager was started before.
	ErrAlreadyStarted = errors.New("resource manager already started")

	// ErrClosed is returned when the manager is used after Close.
	ErrClosed = errors.New("resource manager is closed")

	// ErrMissingSource is returned by New when Options.Source is nil.
	ErrMissingSource = errors.New("resource manager requires an event source")

	// ErrMissingFactory is returned by New when Options.Factory is nil.
	ErrMissingFactory = errors.New("resource manager requires a controller factory")
)
