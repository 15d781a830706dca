// Package timingattack provides a public API for running the timing attack as a library.
package timingattack

import (
	"context"

	"timing-attack/internal/attack"
	"timing-attack/internal/core"
	"timing-attack/internal/hostinfo"
	"timing-attack/internal/http"
	"timing-attack/internal/logging"
)

// Config is the attack configuration
type Config = core.AttackConfig

// State is the record of one attack
type State = core.AttackState

// DefaultConfig returns the default attack configuration
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// Attacker runs timing attacks against one configuration
type Attacker struct {
	config   *core.AttackConfig
	logger   *logging.Sink
	attacker *attack.Attacker
}

// NewAttacker validates config, opens a log session under config.ResultsPath
// and prepares the HTTP prober
func NewAttacker(config *Config) (*Attacker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.NewSession(config)
	if err != nil {
		return nil, err
	}

	client, err := http.NewClient(config, logger)
	if err != nil {
		return nil, err
	}

	return &Attacker{
		config:   config,
		logger:   logger,
		attacker: attack.NewAttacker(config, client, logger, attack.WithHostProbe(hostinfo.Snapshot)),
	}, nil
}

// Run recovers the password placed between prefix and suffix. maxLength <= 0
// uses config.DefaultPasswordSize.
func (a *Attacker) Run(ctx context.Context, prefix, suffix string, maxLength int) (string, error) {
	return a.attacker.Run(ctx, prefix, suffix, maxLength)
}

// State returns the record of the most recent run
func (a *Attacker) State() *State {
	return a.attacker.State()
}

// LogPath returns the session's log file
func (a *Attacker) LogPath() string {
	return a.logger.Path()
}

// fallbackLogger receives the cause when no session log could be opened
var fallbackLogger = func() core.Logger {
	return logging.NewConsole(false)
}

// TimingAttack recovers the password between startURL and endURL with the
// default configuration. It returns ok=false when no password was found; the
// cause is in the session log, or on stdout when the session could not start.
func TimingAttack(ctx context.Context, startURL, endURL string, passwordSize int) (password string, ok bool) {
	a, err := NewAttacker(DefaultConfig())
	if err != nil {
		fallbackLogger().Infof("[attack] no password found: attack could not start: %v", err)
		return "", false
	}
	return a.attacker.TimingAttack(ctx, startURL, endURL, passwordSize)
}
