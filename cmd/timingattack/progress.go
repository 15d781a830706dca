package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/gosuri/uilive"

	"timing-attack/internal/core"
)

const refreshInterval = 250 * time.Millisecond

// progressDisplay renders live attack progress. It implements attack.Observer.
type progressDisplay struct {
	writer *uilive.Writer

	mu        sync.Mutex
	stage     core.Stage
	position  int
	expected  int
	done      int
	failed    int
	recovered string
	length    string

	stop chan struct{}
	wg   sync.WaitGroup
}

func newProgressDisplay() *progressDisplay {
	return &progressDisplay{
		writer: uilive.New(),
		stop:   make(chan struct{}),
	}
}

// Start begins refreshing the display in the background
func (p *progressDisplay) Start() {
	p.writer.Start()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.render()
			case <-p.stop:
				p.render()
				return
			}
		}
	}()
}

// Stop renders a final frame and releases the terminal
func (p *progressDisplay) Stop() {
	close(p.stop)
	p.wg.Wait()
	p.writer.Stop()
}

func (p *progressDisplay) OnStageStart(stage core.Stage, position int, probes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = stage
	p.position = position
	p.expected = probes
	p.done = 0
}

func (p *progressDisplay) OnProbe(_ core.Stage, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if err != nil {
		p.failed++
	}
}

func (p *progressDisplay) OnDecision(result *core.StageResult) {
	if result.Err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if result.Stage == core.StageLengthEstimation {
		p.length = result.Decision
	} else {
		p.recovered += result.Decision
	}
}

func (p *progressDisplay) render() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stage == "" {
		return
	}

	switch p.stage {
	case core.StageLengthEstimation:
		fmt.Fprintf(p.writer, "[*] Estimating length: %d/%d probes (%d failed)\n", p.done, p.expected, p.failed)
	default:
		fmt.Fprintf(p.writer, "[*] Length %s, position %d: %d/%d probes (%d failed)\n", p.length, p.position, p.done, p.expected, p.failed)
		fmt.Fprintf(p.writer.Newline(), "[*] Recovered so far: %q\n", p.recovered)
	}
}
