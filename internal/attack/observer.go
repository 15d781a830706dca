// Package attack implements the length estimation and password recovery
// stages and the orchestrator that sequences them.
package attack

import (
	"timing-attack/internal/core"
)

// Observer receives progress events. OnProbe is called from worker
// goroutines and must be safe for concurrent use.
type Observer interface {
	// OnStageStart is called before a sweep; probes is the number of probes
	// the sweep will issue if none fail.
	OnStageStart(stage core.Stage, position int, probes int)

	// OnProbe is called after every probe, err is nil on success
	OnProbe(stage core.Stage, err error)

	// OnDecision is called once per finished (or failed) sweep
	OnDecision(result *core.StageResult)
}

type nopObserver struct{}

func (nopObserver) OnStageStart(core.Stage, int, int) {}
func (nopObserver) OnProbe(core.Stage, error)         {}
func (nopObserver) OnDecision(*core.StageResult)      {}

func orNopObserver(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

// recorder appends every decision to an attack state and forwards events
type recorder struct {
	state *core.AttackState
	next  Observer
}

func (r *recorder) OnStageStart(stage core.Stage, position int, probes int) {
	r.next.OnStageStart(stage, position, probes)
}

func (r *recorder) OnProbe(stage core.Stage, err error) {
	r.next.OnProbe(stage, err)
}

func (r *recorder) OnDecision(result *core.StageResult) {
	r.state.Results = append(r.state.Results, result)
	r.next.OnDecision(result)
}
