// Package report implements report generation in various formats.
package report

import (
	"encoding/json"
	"time"

	"timing-attack/internal/core"
)

const (
	toolName    = "Timing Attack"
	toolVersion = "1.0.0"
)

// JSONReporter generates JSON reports
type JSONReporter struct {
	config *core.AttackConfig
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(config *core.AttackConfig) *JSONReporter {
	return &JSONReporter{
		config: config,
	}
}

func (r *JSONReporter) Format() string {
	return "json"
}

// Generate creates a JSON report
func (r *JSONReporter) Generate(state *core.AttackState) ([]byte, error) {
	ok, failed := state.Probes()

	report := &JSONReport{
		Version:     "1.0",
		GeneratedAt: time.Now(),
		Tool: ToolInfo{
			Name:    toolName,
			Version: toolVersion,
		},
		Target: TargetInfo{
			Template:  state.Target(),
			MaxLength: state.MaxLength,
		},
		Parameters: Parameters{
			Alphabet:   r.config.Alphabet,
			Attempts:   r.config.Attempts,
			FillerChar: string(r.config.FillerChar),
		},
		Result: Result{
			Found:           state.Found,
			Password:        state.Password,
			EstimatedLength: state.EstimatedLength,
			Error:           errString(state.Err),
		},
		Attack: AttackInfo{
			StartTime:    state.StartTime,
			Duration:     state.Duration().String(),
			Probes:       ok,
			FailedProbes: failed,
			Host:         state.Host,
		},
		Decisions: r.buildDecisions(state),
	}

	return json.MarshalIndent(report, "", "  ")
}

// JSONReport structure
type JSONReport struct {
	Version     string     `json:"version"`
	GeneratedAt time.Time  `json:"generated_at"`
	Tool        ToolInfo   `json:"tool"`
	Target      TargetInfo `json:"target"`
	Parameters  Parameters `json:"parameters"`
	Result      Result     `json:"result"`
	Attack      AttackInfo `json:"attack"`
	Decisions   []Decision `json:"decisions"`
}

type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type TargetInfo struct {
	Template  string `json:"template"`
	MaxLength int    `json:"max_length"`
}

type Parameters struct {
	Alphabet   string `json:"alphabet"`
	Attempts   int    `json:"attempts"`
	FillerChar string `json:"filler_char"`
}

type Result struct {
	Found           bool   `json:"found"`
	Password        string `json:"password,omitempty"`
	EstimatedLength int    `json:"estimated_length"`
	Error           string `json:"error,omitempty"`
}

type AttackInfo struct {
	StartTime    time.Time          `json:"start_time"`
	Duration     string             `json:"duration"`
	Probes       int                `json:"probes"`
	FailedProbes int                `json:"failed_probes"`
	Host         *core.HostSnapshot `json:"host,omitempty"`
}

type Decision struct {
	Stage    string      `json:"stage"`
	Position *int        `json:"position,omitempty"`
	Decision string      `json:"decision,omitempty"`
	Duration string      `json:"duration"`
	Error    string      `json:"error,omitempty"`
	Scores   []ScoreInfo `json:"scores"`
}

type ScoreInfo struct {
	Candidate    string  `json:"candidate"`
	TotalSeconds float64 `json:"total_seconds"`
	Samples      int     `json:"samples"`
	Failures     int     `json:"failures"`
	Excluded     bool    `json:"excluded,omitempty"`
}

func (r *JSONReporter) buildDecisions(state *core.AttackState) []Decision {
	decisions := make([]Decision, 0, len(state.Results))

	for _, res := range state.Results {
		d := Decision{
			Stage:    string(res.Stage),
			Decision: res.Decision,
			Duration: res.Duration.String(),
			Error:    errString(res.Err),
			Scores:   make([]ScoreInfo, 0, len(res.Scores)),
		}
		if res.Position >= 0 {
			pos := res.Position
			d.Position = &pos
		}
		for _, s := range res.Scores {
			d.Scores = append(d.Scores, ScoreInfo{
				Candidate:    s.Key,
				TotalSeconds: s.Total.Seconds(),
				Samples:      s.Successes,
				Failures:     s.Failures,
				Excluded:     s.Disqualified || s.Successes == 0,
			})
		}
		decisions = append(decisions, d)
	}

	return decisions
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
