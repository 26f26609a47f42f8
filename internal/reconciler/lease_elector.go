package reconciler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"steward/pkg/logging"
)

// LeaseElectorConfig configures lease-based leader election.
type LeaseElectorConfig struct {
	// Client accesses the coordination API group.
	Client kubernetes.Interface

	// LeaseName is the name of the Lease object replicas contend for.
	LeaseName string

	// LeaseNamespace is where the Lease object lives.
	LeaseNamespace string

	// Identity is this candidate's identity. Defaults to hostname plus a
	// random suffix so replicas on the same host stay distinct.
	Identity string

	// LeaseDuration is how long a lease is valid before followers may
	// contend. Defaults to 15s.
	LeaseDuration time.Duration

	// RenewDeadline is how long the leader retries renewal before giving
	// up leadership. Defaults to 10s.
	RenewDeadline time.Duration

	// RetryPeriod is the wait between acquire/renew attempts. Defaults to 2s.
	RetryPeriod time.Duration
}

// LeaseElector implements Elector on Kubernetes Lease objects. All replicas
// of a deployment run the same elector; exactly one holds the lease at a
// time and the others take over on failure.
type LeaseElector struct {
	cfg LeaseElectorConfig
}

// NewLeaseElector validates cfg, fills defaults and returns the elector.
func NewLeaseElector(cfg LeaseElectorConfig) (*LeaseElector, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("lease elector requires a kubernetes client")
	}
	if cfg.LeaseName == "" {
		return nil, fmt.Errorf("lease elector requires a lease name")
	}
	if cfg.LeaseNamespace == "" {
		return nil, fmt.Errorf("lease elector requires a lease namespace")
	}

	if cfg.Identity == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "steward"
		}
		cfg.Identity = hostname + "-" + uuid.NewString()[:8]
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 15 * time.Second
	}
	if cfg.RenewDeadline <= 0 {
		cfg.RenewDeadline = 10 * time.Second
	}
	if cfg.RetryPeriod <= 0 {
		cfg.RetryPeriod = 2 * time.Second
	}

	return &LeaseElector{cfg: cfg}, nil
}

// Identity returns this candidate's identity.
func (e *LeaseElector) Identity() string {
	return e.cfg.Identity
}

// Run contends for the lease until ctx is cancelled. Leadership may be won,
// lost and re-won across the lifetime of one Run call; each transition fires
// the corresponding callback exactly once, and the demotion callback never
// starts before the matching promotion callback has returned.
func (e *LeaseElector) Run(ctx context.Context, callbacks LeaderCallbacks) {
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      e.cfg.LeaseName,
			Namespace: e.cfg.LeaseNamespace,
		},
		Client: e.cfg.Client.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: e.cfg.Identity,
		},
	}

	// client-go invokes OnStartedLeading on its own goroutine and fires
	// OnStoppedLeading from its Run exit path without waiting for the
	// promotion callback. The coordinator mutates unsynchronized state in
	// those callbacks, so the wrappers below serialize the two transitions
	// and order demotion strictly after promotion.
	var transMu sync.Mutex

	for ctx.Err() == nil {
		promoted := make(chan struct{})
		elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			LeaseDuration:   e.cfg.LeaseDuration,
			RenewDeadline:   e.cfg.RenewDeadline,
			RetryPeriod:     e.cfg.RetryPeriod,
			ReleaseOnCancel: true,
			Name:            e.cfg.LeaseName,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(leadCtx context.Context) {
					transMu.Lock()
					defer transMu.Unlock()
					defer close(promoted)
					callbacks.OnStartedLeading(leadCtx)
				},
				OnStoppedLeading: func() {
					// Demotion only fires after leadership was held, so the
					// promotion callback is running or about to; wait it out.
					<-promoted
					transMu.Lock()
					defer transMu.Unlock()
					callbacks.OnStoppedLeading()
				},
				OnNewLeader: func(identity string) {
					if callbacks.OnNewLeader != nil {
						callbacks.OnNewLeader(identity)
					}
				},
			},
		})
		if err != nil {
			logging.Error("LeaseElector", err, "failed to construct leader elector for lease %s/%s",
				e.cfg.LeaseNamespace, e.cfg.LeaseName)
			return
		}

		// Run returns when leadership is lost or ctx ends; loop so a
		// demoted replica re-enters the contest.
		elector.Run(ctx)
	}
}
