// Package main implements the timing attack CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/fatih/color"

	"timing-attack/internal/attack"
	"timing-attack/internal/core"
	"timing-attack/internal/hostinfo"
	"timing-attack/internal/http"
	"timing-attack/internal/lab"
	"timing-attack/internal/logging"
	"timing-attack/internal/report"
)

const version = "1.0.0"

type args struct {
	Prefix string `arg:"positional" help:"URL up to the password slot, e.g. 'http://host/login?password='" placeholder:"PREFIX"`
	Suffix string `arg:"positional" help:"rest of the URL after the password slot" placeholder:"SUFFIX"`

	MaxLength int    `arg:"-m,--max-length" help:"largest password length to consider (0 = configured default)" default:"0"`
	Alphabet  string `arg:"-a,--alphabet" help:"characters the password is made of"`
	Attempts  int    `arg:"-n,--attempts" help:"probes per candidate" default:"0"`
	Filler    string `arg:"--filler" help:"padding character used for length estimation" default:"A"`

	Timeout         time.Duration `arg:"-t,--timeout" help:"per-request timeout" default:"10s"`
	Rate            float64       `arg:"--rate" help:"requests per second, 0 = unlimited" default:"0"`
	LengthWorkers   int           `arg:"--length-workers" help:"concurrent candidate lengths (0 = all)" default:"0"`
	RecoveryWorkers int           `arg:"--recovery-workers" help:"concurrent characters per round (1 = sequential)" default:"1"`
	FailOnStatus    bool          `arg:"--fail-on-status" help:"treat non-2xx responses as failed probes"`
	HTTP2           bool          `arg:"--http2" help:"negotiate HTTP/2 with TLS targets"`
	NoDNSCache      bool          `arg:"--no-dns-cache" help:"resolve the target on every new connection"`

	Results string `arg:"--results" help:"folder for session logs" default:"results"`
	Session string `arg:"--session" help:"session folder name (default: current date and time)"`
	Format  string `arg:"-f,--format" help:"report format: none|json|markdown|csv" default:"none"`
	Output  string `arg:"-o,--output" help:"report file (default: stdout)"`
	Verbose bool   `arg:"-v,--verbose" help:"log per-candidate totals"`
	Console bool   `arg:"--console" help:"mirror log lines to stdout"`
	NoBar   bool   `arg:"--no-progress" help:"disable the live progress display"`

	Lab      string        `arg:"--lab" help:"attack a local timing-leaky target holding this secret" placeholder:"SECRET"`
	LabDelay time.Duration `arg:"--lab-delay" help:"lab target delay per matching byte" default:"10ms"`
	LabAddr  string        `arg:"--lab-addr" help:"lab target listen address" default:"127.0.0.1:0"`
}

func (args) Version() string {
	return "timingattack " + version
}

func (args) Description() string {
	return "Recovers a password from a web endpoint that leaks how much of a guess is correct through its response time."
}

func main() {
	var a args
	p := arg.MustParse(&a)

	config, err := buildConfig(&a)
	if err != nil {
		p.Fail(err.Error())
	}

	if a.Prefix == "" && a.Lab == "" {
		p.Fail("a URL prefix (or --lab) is required")
	}

	printBanner()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		color.Yellow("\n[!] Interrupt received, shutting down...")
		cancel()
	}()

	found, err := run(ctx, config, &a)
	if err != nil {
		color.Red("[-] %v", err)
		os.Exit(1)
	}
	if !found {
		os.Exit(1)
	}
}

// buildConfig overlays the command line on the default configuration
func buildConfig(a *args) (*core.AttackConfig, error) {
	config := core.DefaultConfig()

	if a.Alphabet != "" {
		config.Alphabet = a.Alphabet
	}
	if a.Attempts > 0 {
		config.Attempts = a.Attempts
	}

	filler := []rune(a.Filler)
	if len(filler) != 1 {
		return nil, fmt.Errorf("filler must be a single character, got %q", a.Filler)
	}
	config.FillerChar = filler[0]

	config.HTTPTimeout = a.Timeout
	config.RateLimit = a.Rate
	config.LengthConcurrency = a.LengthWorkers
	config.RecoveryConcurrency = a.RecoveryWorkers
	config.FailOnStatus = a.FailOnStatus
	config.ForceHTTP2 = a.HTTP2
	config.CacheDNS = !a.NoDNSCache
	config.ResultsPath = a.Results
	config.SessionName = a.Session
	config.ReportFormat = a.Format
	config.OutputFile = a.Output
	config.Verbose = a.Verbose
	config.Console = a.Console

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return config, nil
}

// run executes the attack and reports whether a password was found
func run(ctx context.Context, config *core.AttackConfig, a *args) (bool, error) {
	logger, err := logging.NewSession(config)
	if err != nil {
		return false, fmt.Errorf("failed to initialize logging: %w", err)
	}

	prefix, suffix := a.Prefix, a.Suffix
	if a.Lab != "" {
		server := lab.NewServer(a.Lab, a.LabDelay).Listen(a.LabAddr)
		if err := server.Start(ctx); err != nil {
			return false, err
		}
		defer server.Stop(context.Background())

		prefix, suffix = server.Template()
		color.Cyan("[*] Lab target listening at %s", server.URL())
	}

	if config.FillerInAlphabet() {
		color.Yellow("[!] Filler %q is part of the alphabet; length estimation may be skewed", config.FillerChar)
	}

	client, err := http.NewClient(config, logger)
	if err != nil {
		return false, fmt.Errorf("failed to initialize HTTP client: %w", err)
	}

	opts := []attack.Option{attack.WithHostProbe(hostinfo.Snapshot)}

	var progress *progressDisplay
	if !a.NoBar && !config.Console {
		progress = newProgressDisplay()
		progress.Start()
		opts = append(opts, attack.WithObserver(progress))
	}

	attacker := attack.NewAttacker(config, client, logger, opts...)

	color.Cyan("[*] Target: %s{PASSWORD}%s", prefix, suffix)
	color.Cyan("[*] Alphabet: %q, %d attempts per candidate", config.Alphabet, config.Attempts)
	color.Cyan("[*] Logging to %s", logger.Path())

	password, found := attacker.TimingAttack(ctx, prefix, suffix, a.MaxLength)

	if progress != nil {
		progress.Stop()
	}

	state := attacker.State()

	if err := generateReport(config, state); err != nil {
		return found, err
	}

	printSummary(state, password, found)

	return found, nil
}

// generateReport renders the state in the configured format
func generateReport(config *core.AttackConfig, state *core.AttackState) error {
	reporter, err := report.New(config, config.ReportFormat)
	if err != nil {
		return err
	}
	if reporter == nil {
		return nil
	}

	data, err := reporter.Generate(state)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if config.OutputFile != "" {
		if err := os.WriteFile(config.OutputFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write report file: %w", err)
		}
		color.Green("[+] Report saved to: %s", config.OutputFile)
	} else {
		fmt.Println(string(data))
	}

	return nil
}

// printSummary prints the attack summary
func printSummary(state *core.AttackState, password string, found bool) {
	ok, failed := state.Probes()

	fmt.Println()
	color.Cyan("=== Attack Summary ===")
	fmt.Printf("Duration: %s\n", state.Duration().Round(time.Millisecond))
	fmt.Printf("Probes: %d (%d failed)\n", ok+failed, failed)
	if state.EstimatedLength >= 0 {
		fmt.Printf("Estimated length: %d\n", state.EstimatedLength)
	}

	if found {
		color.Green("[+] Password found: %s", password)
		return
	}

	color.Red("[-] No password found")
	if state.Err != nil {
		color.Red("    %v", state.Err)
	}
}

// printBanner prints the tool banner
func printBanner() {
	color.Cyan(`
  _   _           _                      _   _             _
 | |_(_)_ __ ___ (_)_ __   __ _    __ _| |_| |_ __ _  ___| | __
 | __| | '_ ' _ \| | '_ \ / _' |  / _' | __| __/ _' |/ __| |/ /
 | |_| | | | | | | | | | | (_| | | (_| | |_| || (_| | (__|   <
  \__|_|_| |_| |_|_|_| |_|\__, |  \__,_|\__|\__\__,_|\___|_|\_\
                          |___/                    v%s
`, version)
	color.Yellow("Only attack systems you are authorized to test.\n")
}
