package ratemeter

import (
	"testing"
	"time"
)

func TestJitter_LeavesAllowedUntouched(t *testing.T) {
	j := JitterUpTo(time.Second)
	d := j.Apply(Decision{Allowed: true})
	if !d.Allowed || !d.RetryAt.IsZero() {
		t.Errorf("Apply() changed an allowed decision: %v", d)
	}
}

func TestJitter_StaysWithinBounds(t *testing.T) {
	base := testEpoch.Add(time.Second)
	j := Jitter{Min: 100 * time.Millisecond, Interval: 400 * time.Millisecond}
	for i := 0; i < 100; i++ {
		d := j.Apply(Decision{Allowed: false, RetryAt: base})
		extra := d.RetryAt.Sub(base)
		if extra < 100*time.Millisecond || extra > 500*time.Millisecond {
			t.Fatalf("jittered wait %v outside [100ms, 500ms]", extra)
		}
	}
}

func TestJitter_ZeroValueIsNoOp(t *testing.T) {
	base := testEpoch
	var j Jitter
	d := j.Apply(Decision{Allowed: false, RetryAt: base})
	if !d.RetryAt.Equal(base) {
		t.Errorf("zero Jitter moved RetryAt to %v", d.RetryAt)
	}
}

func TestDecision_RetryAfter(t *testing.T) {
	now := testEpoch
	tests := []struct {
		name string
		d    Decision
		want time.Duration
	}{
		{"allowed", Decision{Allowed: true}, 0},
		{"denied in the future", Decision{RetryAt: now.Add(300 * time.Millisecond)}, 300 * time.Millisecond},
		{"denied at now", Decision{RetryAt: now}, 0},
		{"denied in the past", Decision{RetryAt: now.Add(-time.Second)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.RetryAfter(now); got != tt.want {
				t.Errorf("RetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllower_AlwaysAdmits(t *testing.T) {
	var a Allower
	for i := 0; i < 10; i++ {
		if d := a.AllowAt(testEpoch); !d.Allowed {
			t.Fatal("Allower denied a cell")
		}
	}
	if d := a.Allow(); !d.Allowed {
		t.Fatal("Allower denied a cell at the current instant")
	}
}
