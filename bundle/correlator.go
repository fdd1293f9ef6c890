package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"searcher/config"
	"searcher/engine"
	"searcher/types"
	"searcher/utils"
)

// LeaderProber is the slice of the engine surface the correlator needs for
// its liveness fallback.
type LeaderProber interface {
	GetNextScheduledLeader(regions []string) (*types.SlotInfo, error)
}

// Correlator waits for the terminal outcome of one submitted bundle. It
// multiplexes the bundle-result stream, the pending-transaction side channel
// and a liveness timer in a single select so a silent stream never starves
// the other.
type Correlator struct {
	BundleId string
	Results  <-chan types.BundleResult
	Packets  <-chan [][]byte
	Prober   LeaderProber
	Regions  []string

	// Zero values fall back to the config defaults
	WaitTimeout time.Duration
	Deadline    time.Duration

	Log *slog.Logger

	seen *utils.SigCache
}

// Wait blocks until a terminal status is reached. A non-nil error is only
// returned when a liveness probe fails at the transport level, which aborts
// the run per the probe's propagation policy.
func (c *Correlator) Wait(ctx context.Context) (types.FinalStatus, string, error) {
	waitTimeout := c.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = config.RESULT_WAIT_TIMEOUT
	}
	deadline := c.Deadline
	if deadline <= 0 {
		deadline = config.CONFIRM_DEADLINE
	}
	if c.seen == nil {
		c.seen = utils.NewSigCache()
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()

	track := newTracker(c.BundleId)

	for {
		select {
		case <-ctx.Done():
			c.Log.Warn("No terminal result within deadline", "bundle_id", c.BundleId, "deadline", deadline.String())
			return types.StatusDeadlineExceeded, "", nil

		case res, ok := <-c.Results:
			if !ok {
				c.Log.Warn("Bundle result stream closed mid-wait", "bundle_id", c.BundleId)
				return types.StatusConnectionLost, "", nil
			}
			state, changed := track.apply(res)
			if !changed {
				// Delivery is at-least-once: duplicates and events for other
				// bundles are not protocol errors
				c.Log.Info("Ignoring bundle result event", "bundle_id", res.BundleId, "status", res.Status)
				break
			}
			switch state {
			case trackConfirmed:
				c.Log.Info("Bundle accepted", "bundle_id", c.BundleId)
				return types.StatusConfirmed, "", nil
			case trackFailed:
				c.Log.Warn("Bundle failed", "bundle_id", c.BundleId, "reason", track.reason)
				return types.StatusRejected, track.reason, nil
			}

		case batch, ok := <-c.Packets:
			if !ok {
				c.Log.Warn("Pending transaction stream closed mid-wait", "bundle_id", c.BundleId)
				return types.StatusConnectionLost, "", nil
			}
			c.observe(batch)

		case <-timer.C:
			// Quiescence is not failure: probe the leader schedule to surface
			// progress, then keep waiting
			info, err := c.Prober.GetNextScheduledLeader(c.Regions)
			if err != nil {
				return types.StatusConnectionLost, "", fmt.Errorf("liveness probe failed: %w", err)
			}
			c.Log.Info("Still waiting for bundle result",
				"bundle_id", c.BundleId,
				"slots_until_next_leader", info.SlotsUntil(),
				"region", info.NextLeaderRegion,
			)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(waitTimeout)
	}
}

// observe logs the primary signature of each decodable pending transaction.
// Side channel only, it never feeds the state machine.
func (c *Correlator) observe(batch [][]byte) {
	for _, tx := range engine.DecodePackets(batch) {
		sig := tx.Signatures[0].String()
		if c.seen.Has(sig) {
			continue
		}
		c.seen.Add(sig)
		c.Log.Info("Pending tx", "sig", sig)
	}
}

type trackState int

const (
	stateSubmitted trackState = iota
	trackConfirmed
	trackFailed
)

// tracker is the per-bundle state machine. Terminal states absorb duplicate
// events, the engine's delivery guarantee is at-least-once.
type tracker struct {
	id     string
	state  trackState
	reason string
}

func newTracker(id string) *tracker {
	return &tracker{id: id, state: stateSubmitted}
}

// apply feeds one result event into the state machine. Returns the state after
// the event and whether the event changed it.
func (t *tracker) apply(res types.BundleResult) (trackState, bool) {
	if res.BundleId != t.id {
		return t.state, false
	}
	if t.state != stateSubmitted {
		return t.state, false
	}
	switch res.Status {
	case types.BundleAccepted:
		t.state = trackConfirmed
		return t.state, true
	case types.BundleRejected, types.BundleDropped:
		t.state = trackFailed
		t.reason = res.Reason
		if t.reason == "" {
			t.reason = res.Status
		}
		return t.state, true
	default:
		return t.state, false
	}
}
