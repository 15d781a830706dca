package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"timing-attack/internal/core"
)

// CSVReporter generates CSV reports, one row per scored candidate
type CSVReporter struct {
	config *core.AttackConfig
}

// NewCSVReporter creates a new CSV reporter
func NewCSVReporter(config *core.AttackConfig) *CSVReporter {
	return &CSVReporter{
		config: config,
	}
}

func (r *CSVReporter) Format() string {
	return "csv"
}

// Generate creates a CSV report
func (r *CSVReporter) Generate(state *core.AttackState) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"Stage",
		"Position",
		"Candidate",
		"Total Seconds",
		"Samples",
		"Failures",
		"Excluded",
		"Selected",
	}

	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, res := range state.Results {
		position := ""
		if res.Position >= 0 {
			position = strconv.Itoa(res.Position)
		}

		for _, s := range res.Scores {
			record := []string{
				string(res.Stage),
				position,
				s.Key,
				strconv.FormatFloat(s.Total.Seconds(), 'f', 6, 64),
				strconv.Itoa(s.Successes),
				strconv.Itoa(s.Failures),
				strconv.FormatBool(s.Disqualified || s.Successes == 0),
				strconv.FormatBool(res.Err == nil && s.Key == res.Decision),
			}

			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}
