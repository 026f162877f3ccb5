package ratemeter

import (
	"errors"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "capacity only",
			cfg:  Config{Capacity: 10},
		},
		{
			name: "explicit time unit and weight",
			cfg:  Config{Capacity: 100, TimeUnit: time.Minute, Weight: 1},
		},
		{
			name:    "zero capacity",
			cfg:     Config{Capacity: 0},
			wantErr: ErrInvalidCapacity,
		},
		{
			name:    "negative capacity",
			cfg:     Config{Capacity: -3},
			wantErr: ErrInvalidCapacity,
		},
		{
			name:    "negative time unit",
			cfg:     Config{Capacity: 1, TimeUnit: -time.Second},
			wantErr: ErrInvalidTimeUnit,
		},
		{
			name:    "time unit too short for capacity",
			cfg:     Config{Capacity: 10, TimeUnit: 5 * time.Nanosecond},
			wantErr: ErrInvalidTimeUnit,
		},
		{
			name:    "unsupported weight",
			cfg:     Config{Capacity: 10, Weight: 2},
			wantErr: ErrUnsupportedWeight,
		},
		{
			name:    "negative weight",
			cfg:     Config{Capacity: 10, Weight: -1},
			wantErr: ErrUnsupportedWeight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DerivedParameters(t *testing.T) {
	p, err := Config{Capacity: 5, TimeUnit: time.Second}.finalize()
	if err != nil {
		t.Fatalf("finalize() failed: %v", err)
	}
	if p.emission != 200*time.Millisecond {
		t.Errorf("emission = %v, want 200ms", p.emission)
	}
	if p.window != time.Second {
		t.Errorf("window = %v, want 1s", p.window)
	}
	if p.burst != 800*time.Millisecond {
		t.Errorf("burst = %v, want 800ms", p.burst)
	}
}

func TestConfig_DefaultTimeUnitIsOneSecond(t *testing.T) {
	p, err := Config{Capacity: 4}.finalize()
	if err != nil {
		t.Fatalf("finalize() failed: %v", err)
	}
	if p.emission != 250*time.Millisecond {
		t.Errorf("emission = %v, want 250ms", p.emission)
	}
}

func TestConstructors_RejectInvalidConfig(t *testing.T) {
	bad := Config{Capacity: 0}
	if _, err := NewGCRA(bad); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("NewGCRA() error = %v, want %v", err, ErrInvalidCapacity)
	}
	if _, err := NewLeakyBucket(bad); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("NewLeakyBucket() error = %v, want %v", err, ErrInvalidCapacity)
	}
	if _, err := NewThreadsafeGCRA(bad); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("NewThreadsafeGCRA() error = %v, want %v", err, ErrInvalidCapacity)
	}
	if _, err := NewThreadsafeLeakyBucket(bad); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("NewThreadsafeLeakyBucket() error = %v, want %v", err, ErrInvalidCapacity)
	}
}
