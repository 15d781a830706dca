package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default attack parameters
const (
	DefaultAlphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
	DefaultAttempts     = 50
	DefaultPasswordSize = 20
	DefaultResultsPath  = "results"
	DefaultFillerChar   = 'A'
)

// AttackConfig holds everything the attack needs. It is passed explicitly to
// every component and is treated as read-only once the attack starts.
type AttackConfig struct {
	// Attack parameters
	Alphabet            string
	Attempts            int
	DefaultPasswordSize int
	FillerChar          rune

	// Concurrency. LengthConcurrency <= 0 runs one worker per candidate
	// length; RecoveryConcurrency <= 1 probes the alphabet sequentially.
	LengthConcurrency   int
	RecoveryConcurrency int

	// HTTP
	HTTPTimeout     time.Duration
	UserAgent       string
	FollowRedirects bool
	MaxRedirects    int
	FailOnStatus    bool
	RateLimit       float64 // requests per second, 0 = unlimited
	ForceHTTP2      bool
	CacheDNS        bool

	// Output
	ResultsPath  string
	SessionName  string
	Verbose      bool
	Console      bool
	ReportFormat string
	OutputFile   string
}

// DefaultConfig returns the default attack configuration
func DefaultConfig() *AttackConfig {
	return &AttackConfig{
		Alphabet:            DefaultAlphabet,
		Attempts:            DefaultAttempts,
		DefaultPasswordSize: DefaultPasswordSize,
		FillerChar:          DefaultFillerChar,
		LengthConcurrency:   0,
		RecoveryConcurrency: 1, // one character at a time
		HTTPTimeout:         10 * time.Second,
		UserAgent:           "Mozilla/5.0 (compatible; TimingAttack/1.0)",
		FollowRedirects:     false,
		MaxRedirects:        5,
		FailOnStatus:        false,
		RateLimit:           0,
		CacheDNS:            true,
		ResultsPath:         DefaultResultsPath,
		ReportFormat:        "none",
	}
}

// Validate checks configuration validity
func (c *AttackConfig) Validate() error {
	if c.Alphabet == "" {
		return errors.New("alphabet must not be empty")
	}

	if c.Attempts < 1 {
		return errors.New("attempts must be at least 1")
	}

	if c.DefaultPasswordSize < 1 {
		return errors.New("default password size must be at least 1")
	}

	if c.FillerChar == 0 {
		c.FillerChar = DefaultFillerChar
	}

	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP timeout must be positive")
	}

	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}

	if c.MaxRedirects < 0 {
		c.MaxRedirects = 0
	}

	if c.ResultsPath == "" {
		c.ResultsPath = DefaultResultsPath
	}

	switch c.ReportFormat {
	case "", "none", "json", "markdown", "md", "csv":
	default:
		return fmt.Errorf("unsupported report format: %s", c.ReportFormat)
	}

	return nil
}

// Characters returns the alphabet as runes, in order
func (c *AttackConfig) Characters() []rune {
	return []rune(c.Alphabet)
}

// FillerInAlphabet reports whether the filler character is also a password
// candidate. Length estimation still works, but padding may then partially
// match the real password.
func (c *AttackConfig) FillerInAlphabet() bool {
	return strings.ContainsRune(c.Alphabet, c.FillerChar)
}

// Filler returns n filler characters
func (c *AttackConfig) Filler(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(string(c.FillerChar), n)
}
