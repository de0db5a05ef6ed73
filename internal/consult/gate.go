// Package consult implements the time-gated access rules for video
// consultations: a heads-up notification window, a join gate that opens
// shortly before the call, and the call start itself.
package consult

import "time"

const (
	// DefaultNotifyThreshold is how far before the call the "starting
	// soon" notification becomes due.
	DefaultNotifyThreshold = 15 * time.Minute

	// DefaultJoinGateLead is how far before the call the join gate opens.
	DefaultJoinGateLead = 5 * time.Minute
)

// Snapshot is a pure reading of where a consultation stands relative to
// now. It carries no history; monotonicity across readings is the Gate's
// job.
type Snapshot struct {
	TimeRemaining time.Duration `json:"time_remaining_ms"`
	StartingSoon  bool          `json:"starting_soon"`
	JoinGateOpen  bool          `json:"join_gate_open"`
	CallStarted   bool          `json:"call_started"`
}

type Thresholds struct {
	NotifyThreshold time.Duration
	JoinGateLead    time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		NotifyThreshold: DefaultNotifyThreshold,
		JoinGateLead:    DefaultJoinGateLead,
	}
}

// Evaluate computes the gate state for a call starting at callStart as seen
// at now. Boundaries are inclusive: at exactly the threshold the window is
// considered entered.
func Evaluate(callStart, now time.Time, t Thresholds) Snapshot {
	remaining := callStart.Sub(now)
	return Snapshot{
		TimeRemaining: remaining,
		StartingSoon:  remaining > 0 && remaining <= t.NotifyThreshold,
		JoinGateOpen:  remaining <= t.JoinGateLead,
		CallStarted:   remaining <= 0,
	}
}

type Phase int

const (
	PhasePending Phase = iota
	PhaseNotified
	PhaseGated
	PhaseStarted
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseNotified:
		return "notified"
	case PhaseGated:
		return "gated"
	case PhaseStarted:
		return "started"
	}
	return "unknown"
}

// Gate tracks a single consultation's phase across repeated clock readings.
// The phase only ever advances: a clock that jitters backwards between
// ticks cannot close a gate that already opened or un-send a notification.
type Gate struct {
	callStart  time.Time
	thresholds Thresholds
	phase      Phase
}

func NewGate(callStart time.Time, t Thresholds) *Gate {
	return &Gate{
		callStart:  callStart,
		thresholds: t,
		phase:      PhasePending,
	}
}

func (g *Gate) Phase() Phase {
	return g.phase
}

// Observe advances the gate to the phase implied by now, never backwards,
// and returns the resulting phase.
func (g *Gate) Observe(now time.Time) Phase {
	snapshot := Evaluate(g.callStart, now, g.thresholds)

	implied := PhasePending
	switch {
	case snapshot.CallStarted:
		implied = PhaseStarted
	case snapshot.JoinGateOpen:
		implied = PhaseGated
	case snapshot.StartingSoon:
		implied = PhaseNotified
	}

	if implied > g.phase {
		g.phase = implied
	}
	return g.phase
}
