package reconciler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"

	"steward/pkg/logging"
)

// runDispatcher consumes the watch stream for the lifetime of one
// leadership generation. Stream termination caused by ctx cancellation is
// the normal demotion path; any other stream fault is unrecoverable.
func (m *ResourceManager) runDispatcher(ctx context.Context) {
	defer func() {
		// A panic escaping event processing signals a logic error in this
		// component or its producer. No partial recovery is attempted; a
		// clean restart re-establishes the watch from scratch.
		if r := recover(); r != nil {
			m.fatal(fmt.Errorf("%v", r), "watch dispatcher panicked")
		}
	}()

	stream, err := m.opts.Source.Watch(ctx, m.namespace)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.fatal(err, "failed to open watch stream")
		return
	}

	logging.Debug("WatchDispatcher", "%s: watch stream open, scope=%s", m.opts.Kind, scopeDisplay(m.namespace))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				m.fatal(nil, "watch stream ended unexpectedly")
				return
			}
			m.handleEvent(ctx, event)
		}
	}
}

// handleEvent classifies one notification and drives the event state
// machine. All cache mutations and controller invocations happen under the
// serializer.
func (m *ResourceManager) handleEvent(ctx context.Context, event watch.Event) {
	switch event.Type {
	case watch.Bookmark:
		return

	case watch.Error:
		m.fatal(fmt.Errorf("watch error event: %v", event.Object), "watch stream reported an error")
		return
	}

	obj, ok := event.Object.(*unstructured.Unstructured)
	if !ok {
		m.fatal(fmt.Errorf("unexpected object type %T", event.Object), "watch event carried a non-resource object")
		return
	}
	name := obj.GetName()

	if event.Type == watch.Added || event.Type == watch.Modified {
		if m.opts.Filter != nil && !m.opts.Filter(obj) {
			logging.Debug("WatchDispatcher", "%s: %q filtered out, ignoring %s event", m.opts.Kind, name, event.Type)
			return
		}
	}

	if err := m.ser.acquire(ctx); err != nil {
		return
	}
	defer m.ser.release()

	switch event.Type {
	case watch.Added:
		m.handleAdded(ctx, obj)
	case watch.Modified:
		m.handleModified(ctx, obj)
	case watch.Deleted:
		m.handleDeleted(ctx, obj)
	default:
		m.fatal(fmt.Errorf("event type %q", event.Type), "watch stream delivered an unknown event type")
	}
}

func (m *ResourceManager) handleAdded(ctx context.Context, obj *unstructured.Unstructured) {
	name := obj.GetName()
	m.cache.observeAdded(name, obj.GetGeneration())

	logging.Debug("WatchDispatcher", "%s: added %q generation=%d", m.opts.Kind, name, obj.GetGeneration())
	m.invokeCallback(CallbackReconcile, name, func(c ResourceController) error {
		return c.Reconcile(ctx, obj)
	})
}

func (m *ResourceManager) handleModified(ctx context.Context, obj *unstructured.Unstructured) {
	name := obj.GetName()

	oldGeneration, known := m.cache.generation(name)
	if !known {
		// A Modified event for a name never Added means this component or
		// its producer lost track of the stream; the cache can no longer be
		// trusted.
		m.fatal(fmt.Errorf("no cached generation for %q", name), "modified event for unknown resource")
		return
	}

	newGeneration := obj.GetGeneration()
	if newGeneration < oldGeneration {
		logging.Debug("WatchDispatcher", "%s: modified %q generation %d -> %d, reconciling",
			m.opts.Kind, name, oldGeneration, newGeneration)
		m.invokeCallback(CallbackReconcile, name, func(c ResourceController) error {
			return c.Reconcile(ctx, obj)
		})
	}
	m.cache.setGeneration(name, newGeneration)

	status, found := obj.Object["status"]
	if !found {
		return
	}

	snapshot, err := json.Marshal(status)
	if err != nil {
		logging.Error("WatchDispatcher", err, "%s: failed to serialize status for %q", m.opts.Kind, name)
		m.countError(CallbackStatusModified)
		return
	}

	if !bytes.Equal(snapshot, m.cache.status(name)) {
		logging.Debug("WatchDispatcher", "%s: status changed for %q", m.opts.Kind, name)
		m.invokeCallback(CallbackStatusModified, name, func(c ResourceController) error {
			return c.StatusModified(ctx, obj)
		})
	}
	m.cache.setStatus(name, snapshot)
}

func (m *ResourceManager) handleDeleted(ctx context.Context, obj *unstructured.Unstructured) {
	name := obj.GetName()

	logging.Debug("WatchDispatcher", "%s: deleted %q", m.opts.Kind, name)
	m.invokeCallback(CallbackDelete, name, func(c ResourceController) error {
		return c.Delete(ctx, obj)
	})
	m.cache.remove(name)
}
