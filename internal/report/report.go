package report

import (
	"fmt"

	"timing-attack/internal/core"
)

// New returns the reporter for format, or nil for "none"
func New(config *core.AttackConfig, format string) (core.Reporter, error) {
	switch format {
	case "", "none":
		return nil, nil
	case "json":
		return NewJSONReporter(config), nil
	case "markdown", "md":
		return NewMarkdownReporter(config), nil
	case "csv":
		return NewCSVReporter(config), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}
