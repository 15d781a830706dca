package report

import (
	"fmt"
	"strings"
	"time"

	"timing-attack/internal/core"
	"timing-attack/internal/scoring"
)

// MarkdownReporter generates Markdown reports
type MarkdownReporter struct {
	config   *core.AttackConfig
	analyzer *scoring.StatisticalAnalyzer
}

// NewMarkdownReporter creates a new Markdown reporter
func NewMarkdownReporter(config *core.AttackConfig) *MarkdownReporter {
	return &MarkdownReporter{
		config:   config,
		analyzer: scoring.NewStatisticalAnalyzer(),
	}
}

func (r *MarkdownReporter) Format() string {
	return "markdown"
}

// Generate creates a Markdown report
func (r *MarkdownReporter) Generate(state *core.AttackState) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("# Timing Attack Report\n\n")

	sb.WriteString(fmt.Sprintf("**Generated**: %s\n", time.Now().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("**Target**: `%s`\n", state.Target()))
	sb.WriteString(fmt.Sprintf("**Duration**: %s\n", state.Duration()))

	ok, failed := state.Probes()
	sb.WriteString(fmt.Sprintf("**Probes**: %d (%d failed)\n", ok+failed, failed))
	if state.Host != nil {
		sb.WriteString(fmt.Sprintf("**Host load**: cpu %.1f%%, memory %.1f%%\n", state.Host.CPUPercent, state.Host.MemoryPercent))
	}
	sb.WriteString("\n")

	sb.WriteString("## Result\n\n")
	sb.WriteString(r.buildResult(state))
	sb.WriteString("\n")

	sb.WriteString("## Decisions\n\n")
	if len(state.Results) == 0 {
		sb.WriteString("No decision was reached.\n")
	}
	for _, res := range state.Results {
		sb.WriteString(r.formatDecision(res))
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

func (r *MarkdownReporter) buildResult(state *core.AttackState) string {
	if state.Found {
		return fmt.Sprintf("Password recovered: `%s` (length %d).\n", state.Password, state.EstimatedLength)
	}
	if state.Err != nil {
		return fmt.Sprintf("No password found: %v\n", state.Err)
	}
	return "No password found.\n"
}

func (r *MarkdownReporter) formatDecision(res *core.StageResult) string {
	var sb strings.Builder

	if res.Position < 0 {
		sb.WriteString("### Password length\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("### Position %d\n\n", res.Position))
	}

	if res.Err != nil {
		sb.WriteString(fmt.Sprintf("**Failed**: %v\n\n", res.Err))
	} else {
		sb.WriteString(fmt.Sprintf("**Selected**: `%s` in %s\n\n", res.Decision, res.Duration))
		if summary, err := r.analyzer.Summarize(res.Scores); err == nil && summary.RunnerUp != "" {
			sb.WriteString(fmt.Sprintf("Lead over `%s`: %s (z=%.2f)\n\n", summary.RunnerUp, summary.Lead, summary.ZScore))
		}
	}

	sb.WriteString("| Candidate | Total | Samples | Failures |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, s := range res.Scores {
		total := s.Total.String()
		if s.Disqualified || s.Successes == 0 {
			total = "excluded"
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %d | %d |\n", s.Key, total, s.Successes, s.Failures))
	}

	return sb.String()
}
