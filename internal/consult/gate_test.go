package consult

import (
	"testing"
	"time"
)

var callStart = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

func at(hour, minute, second int) time.Time {
	return time.Date(2025, 6, 10, hour, minute, second, 0, time.UTC)
}

func TestEvaluateWindows(t *testing.T) {
	tests := []struct {
		name             string
		now              time.Time
		wantStartingSoon bool
		wantJoinOpen     bool
		wantStarted      bool
	}{
		{"well before", at(9, 30, 0), false, false, false},
		{"just outside notify window", at(9, 44, 59), false, false, false},
		{"notify boundary", at(9, 45, 0), true, false, false},
		{"inside notify window", at(9, 46, 0), true, false, false},
		{"just before join gate", at(9, 54, 59), true, false, false},
		{"join gate boundary", at(9, 55, 0), true, true, false},
		{"inside join gate", at(9, 56, 0), true, true, false},
		{"call start", at(10, 0, 0), false, true, true},
		{"after call start", at(10, 5, 0), false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(callStart, tt.now, DefaultThresholds())
			if got.StartingSoon != tt.wantStartingSoon {
				t.Errorf("StartingSoon = %v, want %v", got.StartingSoon, tt.wantStartingSoon)
			}
			if got.JoinGateOpen != tt.wantJoinOpen {
				t.Errorf("JoinGateOpen = %v, want %v", got.JoinGateOpen, tt.wantJoinOpen)
			}
			if got.CallStarted != tt.wantStarted {
				t.Errorf("CallStarted = %v, want %v", got.CallStarted, tt.wantStarted)
			}
		})
	}
}

func TestEvaluateTimeRemaining(t *testing.T) {
	got := Evaluate(callStart, at(9, 44, 0), DefaultThresholds())
	if got.TimeRemaining != 16*time.Minute {
		t.Fatalf("TimeRemaining = %s, want 16m", got.TimeRemaining)
	}

	got = Evaluate(callStart, at(10, 1, 0), DefaultThresholds())
	if got.TimeRemaining != -1*time.Minute {
		t.Fatalf("TimeRemaining after start = %s, want -1m", got.TimeRemaining)
	}
}

func TestGateAdvancesThroughPhases(t *testing.T) {
	gate := NewGate(callStart, DefaultThresholds())

	if p := gate.Observe(at(9, 30, 0)); p != PhasePending {
		t.Fatalf("phase at 09:30 = %s, want pending", p)
	}
	if p := gate.Observe(at(9, 46, 0)); p != PhaseNotified {
		t.Fatalf("phase at 09:46 = %s, want notified", p)
	}
	if p := gate.Observe(at(9, 56, 0)); p != PhaseGated {
		t.Fatalf("phase at 09:56 = %s, want gated", p)
	}
	if p := gate.Observe(at(10, 0, 0)); p != PhaseStarted {
		t.Fatalf("phase at 10:00 = %s, want started", p)
	}
}

func TestGateNeverRegresses(t *testing.T) {
	gate := NewGate(callStart, DefaultThresholds())

	gate.Observe(at(9, 56, 0))
	if p := gate.Phase(); p != PhaseGated {
		t.Fatalf("phase = %s, want gated", p)
	}

	// Clock jitters backwards out of the join gate window.
	if p := gate.Observe(at(9, 50, 0)); p != PhaseGated {
		t.Fatalf("phase after backwards clock = %s, want gated", p)
	}

	// And all the way out of the notify window.
	if p := gate.Observe(at(9, 0, 0)); p != PhaseGated {
		t.Fatalf("phase after large backwards jump = %s, want gated", p)
	}
}

func TestGateSkipsPhasesOnLateFirstObservation(t *testing.T) {
	gate := NewGate(callStart, DefaultThresholds())

	if p := gate.Observe(at(10, 30, 0)); p != PhaseStarted {
		t.Fatalf("first observation after start = %s, want started", p)
	}
}
