package reconciler

import (
	"context"
	"time"

	"steward/pkg/logging"
)

// runIdleLoop fires the controller's idle callback once per configured
// interval for the lifetime of one leadership generation.
//
// The loop polls at PollGranularity, much finer than IdleInterval, so that
// demotion and disposal are observed promptly. The schedule advances even
// when the leader check fails, which avoids a burst of idle calls
// immediately after promotion follows a long demotion.
func (m *ResourceManager) runIdleLoop(ctx context.Context) {
	logging.Debug("IdleTicker", "%s: idle loop running, interval=%s", m.opts.Kind, m.opts.IdleInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.opts.PollGranularity):
		}

		now := time.Now()
		if now.Before(m.nextIdleFire) {
			continue
		}

		if m.IsLeader() {
			if err := m.ser.acquire(ctx); err != nil {
				return
			}
			m.invokeCallback(CallbackIdle, "", func(c ResourceController) error {
				return c.Idle(ctx)
			})
			m.ser.release()
		}

		m.nextIdleFire = time.Now().Add(m.opts.IdleInterval)
	}
}
