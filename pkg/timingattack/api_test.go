package timingattack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"timing-attack/internal/core"
	"timing-attack/internal/lab"
)

func TestAttackerAgainstLabServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end attack in short mode")
	}

	const secret = "ab1"

	server := lab.NewServer(secret, 15*time.Millisecond)
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start lab server: %v", err)
	}
	defer server.Stop(context.Background())

	config := DefaultConfig()
	config.Alphabet = "ab12"
	config.Attempts = 2
	config.ResultsPath = t.TempDir()
	config.SessionName = "e2e"

	attacker, err := NewAttacker(config)
	if err != nil {
		t.Fatalf("NewAttacker failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	prefix, suffix := server.Template()
	password, err := attacker.Run(ctx, prefix, suffix, 5)
	if err != nil {
		t.Fatalf("Attack failed: %v", err)
	}

	if password != secret {
		t.Errorf("Expected password %q, got %q", secret, password)
	}

	state := attacker.State()
	if state.EstimatedLength != len(secret) {
		t.Errorf("Expected estimated length %d, got %d", len(secret), state.EstimatedLength)
	}

	data, err := os.ReadFile(attacker.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "password is: "+secret) {
		t.Error("Expected the recovered password in the session log")
	}
}

func TestNewAttackerRejectsInvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Alphabet = ""
	config.ResultsPath = t.TempDir()

	if _, err := NewAttacker(config); err == nil {
		t.Error("Expected error for empty alphabet")
	}
}

func TestTimingAttackUnreachable(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Nothing listens on port 1.
	password, ok := TimingAttack(ctx, "http://127.0.0.1:1/login?password=", "", 3)
	if ok {
		t.Errorf("Expected no password, got %q", password)
	}
}

type lineLogger struct {
	lines []string
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *lineLogger) Debugf(string, ...interface{}) {}

func TestTimingAttackLogsSetupFailure(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	// A file where the results folder should go
	if err := os.WriteFile(filepath.Join(dir, core.DefaultResultsPath), nil, 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	logger := &lineLogger{}
	defer func(prev func() core.Logger) { fallbackLogger = prev }(fallbackLogger)
	fallbackLogger = func() core.Logger { return logger }

	password, ok := TimingAttack(context.Background(), "http://127.0.0.1:1/login?password=", "", 3)
	if ok {
		t.Fatalf("Expected no password, got %q", password)
	}

	if len(logger.lines) != 1 {
		t.Fatalf("Expected one log line, got %v", logger.lines)
	}
	if !strings.Contains(logger.lines[0], "failed to create folder") {
		t.Errorf("Expected the root cause in the log, got %q", logger.lines[0])
	}
}
