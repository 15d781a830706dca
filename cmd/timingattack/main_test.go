package main

import (
	"errors"
	"testing"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timing-attack/internal/core"
)

func parseArgs(t *testing.T, argv ...string) *args {
	t.Helper()
	var a args
	p, err := arg.NewParser(arg.Config{}, &a)
	require.NoError(t, err)
	require.NoError(t, p.Parse(argv))
	return &a
}

func TestBuildConfigDefaults(t *testing.T) {
	a := parseArgs(t, "http://t/login?password=")

	config, err := buildConfig(a)
	require.NoError(t, err)

	defaults := core.DefaultConfig()
	assert.Equal(t, defaults.Alphabet, config.Alphabet)
	assert.Equal(t, defaults.Attempts, config.Attempts)
	assert.Equal(t, 'A', config.FillerChar)
	assert.Equal(t, 10*time.Second, config.HTTPTimeout)
	assert.Equal(t, 1, config.RecoveryConcurrency)
	assert.True(t, config.CacheDNS)
	assert.Equal(t, "none", config.ReportFormat)
	assert.Equal(t, "", a.Suffix)
	assert.Equal(t, 0, a.MaxLength)
	assert.Equal(t, "127.0.0.1:0", a.LabAddr)
}

func TestBuildConfigOverrides(t *testing.T) {
	a := parseArgs(t,
		"http://t/login?password=", "&user=admin",
		"-m", "8", "-a", "xyz", "-n", "7", "--filler", "#",
		"--timeout", "2s", "--rate", "50", "--recovery-workers", "3",
		"--fail-on-status", "--no-dns-cache", "-f", "json", "-o", "out.json",
	)

	config, err := buildConfig(a)
	require.NoError(t, err)

	assert.Equal(t, "&user=admin", a.Suffix)
	assert.Equal(t, 8, a.MaxLength)
	assert.Equal(t, "xyz", config.Alphabet)
	assert.Equal(t, 7, config.Attempts)
	assert.Equal(t, '#', config.FillerChar)
	assert.Equal(t, 2*time.Second, config.HTTPTimeout)
	assert.Equal(t, 50.0, config.RateLimit)
	assert.Equal(t, 3, config.RecoveryConcurrency)
	assert.True(t, config.FailOnStatus)
	assert.False(t, config.CacheDNS)
	assert.Equal(t, "json", config.ReportFormat)
	assert.Equal(t, "out.json", config.OutputFile)
}

func TestBuildConfigRejectsFiller(t *testing.T) {
	a := parseArgs(t, "http://t/", "--filler", "AB")

	_, err := buildConfig(a)
	assert.Error(t, err)
}

func TestBuildConfigRejectsInvalid(t *testing.T) {
	a := parseArgs(t, "http://t/", "--format", "xml")

	_, err := buildConfig(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestProgressDisplayCounts(t *testing.T) {
	p := newProgressDisplay()

	p.OnStageStart(core.StageLengthEstimation, -1, 4)
	p.OnProbe(core.StageLengthEstimation, nil)
	p.OnProbe(core.StageLengthEstimation, errors.New("boom"))
	p.OnDecision(&core.StageResult{Stage: core.StageLengthEstimation, Position: -1, Decision: "3"})

	p.OnStageStart(core.StagePasswordRecovery, 0, 2)
	p.OnDecision(&core.StageResult{Stage: core.StagePasswordRecovery, Position: 0, Decision: "a"})
	p.OnDecision(&core.StageResult{Stage: core.StagePasswordRecovery, Position: 1, Err: errors.New("stuck")})

	assert.Equal(t, "3", p.length)
	assert.Equal(t, "a", p.recovered)
	assert.Equal(t, 0, p.done)
	assert.Equal(t, 1, p.failed)
	assert.Equal(t, 2, p.expected)
}
