package reconciler

import (
	"context"
	"os"

	"github.com/google/uuid"
)

// StandaloneElector implements Elector for single-process deployments,
// chiefly filesystem mode during development. It promotes immediately and
// demotes when ctx ends, so the engine follows the exact same
// promotion/demotion paths it does under real election.
type StandaloneElector struct {
	identity string
}

// NewStandaloneElector returns an elector whose single candidate always wins.
func NewStandaloneElector() *StandaloneElector {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "steward"
	}
	return &StandaloneElector{identity: hostname + "-" + uuid.NewString()[:8]}
}

// Identity returns this candidate's identity.
func (e *StandaloneElector) Identity() string {
	return e.identity
}

// Run promotes immediately, blocks until ctx ends, then demotes.
func (e *StandaloneElector) Run(ctx context.Context, callbacks LeaderCallbacks) {
	if callbacks.OnNewLeader != nil {
		callbacks.OnNewLeader(e.identity)
	}
	if callbacks.OnStartedLeading != nil {
		callbacks.OnStartedLeading(ctx)
	}

	<-ctx.Done()

	if callbacks.OnStoppedLeading != nil {
		callbacks.OnStoppedLeading()
	}
}
