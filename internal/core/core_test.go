package core

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if config.FillerInAlphabet() {
		t.Errorf("default filler %q should not be part of the default alphabet", config.FillerChar)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AttackConfig)
		wantErr bool
	}{
		{"empty alphabet", func(c *AttackConfig) { c.Alphabet = "" }, true},
		{"zero attempts", func(c *AttackConfig) { c.Attempts = 0 }, true},
		{"zero password size", func(c *AttackConfig) { c.DefaultPasswordSize = 0 }, true},
		{"zero timeout", func(c *AttackConfig) { c.HTTPTimeout = 0 }, true},
		{"negative rate", func(c *AttackConfig) { c.RateLimit = -1 }, true},
		{"unknown format", func(c *AttackConfig) { c.ReportFormat = "xml" }, true},
		{"missing filler defaults", func(c *AttackConfig) { c.FillerChar = 0 }, false},
		{"markdown format", func(c *AttackConfig) { c.ReportFormat = "md" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFiller(t *testing.T) {
	config := DefaultConfig()
	if got := config.Filler(0); got != "" {
		t.Errorf("Filler(0) = %q, want empty", got)
	}
	if got := config.Filler(3); got != "AAA" {
		t.Errorf("Filler(3) = %q, want AAA", got)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	root := errors.New("connection refused")
	err := &StageError{
		Stage: StageLengthEstimation,
		Err:   fmt.Errorf("candidate 3: %w", &NetworkError{URL: "http://x", Err: root}),
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatal("expected NetworkError in chain")
	}
	if !errors.Is(err, root) {
		t.Error("expected root cause in chain")
	}

	stuck := &StageError{Stage: StagePasswordRecovery, Err: &StuckAtPositionError{Position: 2}}
	var stuckErr *StuckAtPositionError
	if !errors.As(stuck, &stuckErr) || stuckErr.Position != 2 {
		t.Errorf("expected StuckAtPositionError at 2, got %v", stuck)
	}
}

func TestCandidateScoreMean(t *testing.T) {
	s := CandidateScore{Total: 300 * time.Millisecond, Successes: 3}
	if s.Mean() != 100*time.Millisecond {
		t.Errorf("Mean() = %v, want 100ms", s.Mean())
	}
	if (CandidateScore{}).Mean() != 0 {
		t.Error("Mean() of empty score should be 0")
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(NopLogger); !ok {
		t.Error("OrNop(nil) should return NopLogger")
	}
}
