// Package reconciler implements the resource reconciliation engine: the
// component that watches one kind of cluster-scoped custom object, maintains
// authoritative in-process knowledge of its state, elects a single active
// instance among replicas, and drives a pluggable controller's
// reconcile/delete/status-modified/idle callbacks with strict single-flight
// ordering.
//
// # Architecture
//
// One ResourceManager is instantiated per managed resource kind. It composes:
//
//   - an event cache holding the last-seen generation and serialized status
//     snapshot per resource name
//   - a single-flight serializer guaranteeing that at most one controller
//     callback executes at any instant
//   - a watch dispatcher consuming the event stream and classifying
//     Added/Modified/Deleted/Bookmark/Error notifications
//   - an idle ticker invoking the controller's idle callback once per
//     configured interval while this instance leads
//   - a leader coordinator wrapping an Elector; promotion starts the
//     dispatcher and ticker, demotion cancels and drains both
//
// # Event sources
//
// Two EventSource implementations exist: KubernetesSource watches the
// resource through a dynamic client, and FilesystemSource synthesizes watch
// events from YAML manifests in a local directory for development without a
// cluster. The engine behaves identically over either source.
//
// # Failure policy
//
// Controller callback errors are logged and counted, never propagated. A
// watch stream Error event, an unexpected stream end, or an internal
// consistency fault terminates the process so an external supervisor
// restarts the service and re-establishes the watch from a clean slate.
// Stream termination caused by demotion or disposal is the normal shutdown
// path and is swallowed.
package reconciler
