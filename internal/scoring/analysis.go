package scoring

import (
	"fmt"
	"math"
	"time"

	"timing-attack/internal/core"
)

// StatisticalAnalyzer describes a finished score table. Its output is for
// logs and reports only; selection is always ScoreTable.ArgMax.
type StatisticalAnalyzer struct{}

// NewStatisticalAnalyzer creates a new analyzer
func NewStatisticalAnalyzer() *StatisticalAnalyzer {
	return &StatisticalAnalyzer{}
}

// Summarize describes how far the leading candidate's mean latency stands out
// from the rest
func (a *StatisticalAnalyzer) Summarize(scores []core.CandidateScore) (*Summary, error) {
	usable := make([]core.CandidateScore, 0, len(scores))
	for _, s := range scores {
		if s.Successes > 0 && !s.Disqualified {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("no usable candidates to summarize")
	}

	summary := &Summary{
		Candidates: len(scores),
		Usable:     len(usable),
	}

	winner := usable[0]
	for _, s := range usable[1:] {
		if slower(s.Total, s.Successes, winner.Total, winner.Successes) {
			winner = s
		}
	}
	summary.Winner = winner.Key
	summary.WinnerMean = winner.Mean()

	// Runner-up and field statistics exclude the winner
	var runnerUp *core.CandidateScore
	rest := make([]time.Duration, 0, len(usable)-1)
	for i, s := range usable {
		if s.Key == winner.Key {
			continue
		}
		rest = append(rest, s.Mean())
		if runnerUp == nil || slower(s.Total, s.Successes, runnerUp.Total, runnerUp.Successes) {
			runnerUp = &usable[i]
		}
	}

	if runnerUp != nil {
		summary.RunnerUp = runnerUp.Key
		summary.RunnerUpMean = runnerUp.Mean()
		summary.Lead = summary.WinnerMean - summary.RunnerUpMean
		summary.FieldMean = a.calculateMean(rest)
		summary.FieldStdDev = a.calculateStdDev(rest, summary.FieldMean)
		summary.ZScore = a.calculateZScore(summary.WinnerMean, summary.FieldMean, summary.FieldStdDev)
	}

	return summary, nil
}

// calculateMean computes average of durations
func (a *StatisticalAnalyzer) calculateMean(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}

	var sum time.Duration
	for _, s := range samples {
		sum += s
	}

	return sum / time.Duration(len(samples))
}

// calculateStdDev computes standard deviation
func (a *StatisticalAnalyzer) calculateStdDev(samples []time.Duration, mean time.Duration) time.Duration {
	if len(samples) <= 1 {
		return 0
	}

	var sumSquares float64
	for _, s := range samples {
		diff := float64(s - mean)
		sumSquares += diff * diff
	}

	variance := sumSquares / float64(len(samples))
	return time.Duration(math.Sqrt(variance))
}

// calculateZScore computes how many deviations the winner sits above the field
func (a *StatisticalAnalyzer) calculateZScore(value, mean, stdDev time.Duration) float64 {
	if stdDev == 0 {
		return 0
	}

	return float64(value-mean) / float64(stdDev)
}

// Summary describes one decision
type Summary struct {
	Candidates   int
	Usable       int
	Winner       string
	WinnerMean   time.Duration
	RunnerUp     string
	RunnerUpMean time.Duration
	Lead         time.Duration
	FieldMean    time.Duration
	FieldStdDev  time.Duration
	ZScore       float64
}

// String returns a one-line description
func (s *Summary) String() string {
	if s.RunnerUp == "" {
		return fmt.Sprintf("winner %q mean=%s (only usable candidate of %d)", s.Winner, s.WinnerMean, s.Candidates)
	}
	return fmt.Sprintf(
		"winner %q mean=%s, runner-up %q mean=%s, lead=%s, z=%.2f (%d/%d usable)",
		s.Winner, s.WinnerMean, s.RunnerUp, s.RunnerUpMean, s.Lead, s.ZScore, s.Usable, s.Candidates,
	)
}
