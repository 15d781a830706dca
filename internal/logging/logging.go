// Package logging creates the per-session log file an attack writes to.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IMQS/log"

	"timing-attack/internal/core"
)

const (
	// sessionFormat names a session folder, e.g. "19-10-2026 14-05"
	sessionFormat = "02-01-2006 15-04"

	// ClassName is the sub-folder the attack logs into
	ClassName = "crack password"
)

// Sink is a leveled logger writing to the session's log file and, when
// enabled, mirroring every line to stdout
type Sink struct {
	log  *log.Logger
	path string
}

// NewSession creates <ResultsPath>/<session>/<ClassName>/logfile_<time>.log
// and returns a sink writing to it
func NewSession(config *core.AttackConfig) (*Sink, error) {
	now := time.Now()

	session := config.SessionName
	if session == "" {
		session = now.Format(sessionFormat)
	}

	dir := filepath.Join(config.ResultsPath, session, ClassName)
	if err := CreateFolderIfNotExists(dir); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, fmt.Sprintf("logfile_%s.log", now.Format(sessionFormat)))

	// Truncate: one log file per run
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	f.Close()

	return &Sink{
		log:  newLogger(path, config.Console, config.Verbose),
		path: path,
	}, nil
}

// NewConsole returns a sink that only writes to stdout. It is the fallback
// when no session folder can be opened.
func NewConsole(verbose bool) *Sink {
	return &Sink{log: newLogger(log.Stdout, false, verbose)}
}

func newLogger(target string, mirror, verbose bool) *log.Logger {
	l := log.New(target, mirror)
	if verbose {
		l.Level = log.Debug
	} else {
		l.Level = log.Info
	}
	return l
}

// Path returns the log file path, empty for console-only sinks
func (s *Sink) Path() string {
	return s.path
}

func (s *Sink) Infof(format string, args ...interface{}) {
	s.log.Infof(format, args...)
}

func (s *Sink) Debugf(format string, args ...interface{}) {
	s.log.Debugf(format, args...)
}

// CreateFolderIfNotExists creates path and any missing parents
func CreateFolderIfNotExists(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	return nil
}
