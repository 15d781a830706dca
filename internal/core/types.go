// Package core defines the fundamental types and interfaces for the timing attack.
package core

import (
	"context"
	"fmt"
	"time"
)

// Candidate constrains the keys a score table can be built over:
// password lengths or alphabet characters.
type Candidate interface {
	~int | ~rune
}

// ProbeResult is the outcome of one timed HTTP round trip
type ProbeResult struct {
	Elapsed time.Duration
}

// Seconds returns the elapsed time in seconds
func (r ProbeResult) Seconds() float64 {
	return r.Elapsed.Seconds()
}

// Prober issues a single timed request against a fully assembled URL.
// Implementations must not retry.
type Prober interface {
	Probe(ctx context.Context, url string) (ProbeResult, error)
}

// Logger is the leveled sink the attack reports progress to
type Logger interface {
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Infof(format string, args ...interface{})  {}
func (NopLogger) Debugf(format string, args ...interface{}) {}

// OrNop returns l, or a NopLogger when l is nil
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}

// Stage names a step of the attack
type Stage string

const (
	StageLengthEstimation Stage = "length_estimation"
	StagePasswordRecovery Stage = "password_recovery"
)

// CandidateScore is the rendered score of one candidate, used for reporting
type CandidateScore struct {
	Key          string
	Total        time.Duration
	Successes    int
	Failures     int
	Disqualified bool
}

// Mean returns the average latency of the successful samples
func (s CandidateScore) Mean() time.Duration {
	if s.Successes == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Successes)
}

// StageResult records one decision made during the attack. The length
// estimation produces one result, recovery produces one per position.
type StageResult struct {
	Stage    Stage
	Position int // -1 for length estimation
	Decision string
	Scores   []CandidateScore
	Duration time.Duration
	Err      error
}

// HostSnapshot captures the attacking host's load when the attack started
type HostSnapshot struct {
	CPUPercent    float64
	MemoryPercent float64
	LogicalCPUs   int
}

// AttackState maintains state across the attack stages
type AttackState struct {
	Prefix    string
	Suffix    string
	MaxLength int
	Config    *AttackConfig

	Results []*StageResult

	EstimatedLength int
	Password        string
	Found           bool
	Err             error

	Host *HostSnapshot

	StartTime time.Time
	EndTime   time.Time
}

// NewAttackState creates an empty state for a target
func NewAttackState(config *AttackConfig, prefix, suffix string, maxLength int) *AttackState {
	return &AttackState{
		Prefix:          prefix,
		Suffix:          suffix,
		MaxLength:       maxLength,
		Config:          config,
		EstimatedLength: -1,
		StartTime:       time.Now(),
	}
}

// Target renders the target template with a placeholder for the password slot
func (s *AttackState) Target() string {
	return fmt.Sprintf("%s{PASSWORD}%s", s.Prefix, s.Suffix)
}

// Duration returns the attack's wall time so far
func (s *AttackState) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Probes returns the number of successful and failed probes recorded
func (s *AttackState) Probes() (ok, failed int) {
	for _, r := range s.Results {
		for _, c := range r.Scores {
			ok += c.Successes
			failed += c.Failures
		}
	}
	return ok, failed
}

// Reporter renders an attack state
type Reporter interface {
	Generate(state *AttackState) ([]byte, error)
	Format() string
}
