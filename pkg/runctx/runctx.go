// Package runctx defines the immutable RunContext threaded through every
// pipeline component, replacing the module-level singletons (stop-word
// sets, a process-wide LLM client) this system would otherwise accrete.
package runctx

import (
	"time"

	"github.com/google/uuid"

	"github.com/evidence-toolkit/core/pkg/config"
	"github.com/evidence-toolkit/core/pkg/index"
	"github.com/evidence-toolkit/core/pkg/obs"
	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/store"
)

// Clock abstracts time.Now so tests can inject deterministic timestamps
// without the pipeline or correlator depending on wall-clock time directly.
type Clock func() time.Time

// RunContext carries every shared resource a pipeline stage or analyzer
// needs. It is built once per run and never mutated afterward; components
// read it concurrently without synchronization.
type RunContext struct {
	// RunID uniquely identifies this pipeline run; it appears in log lines
	// and custody notes so a ledger entry can be traced back to the run
	// that produced it.
	RunID string

	Store  *store.Store
	Oracle oracle.Client
	Config *config.Config
	Clock  Clock

	// Index is the optional derived query cache (pkg/index). It is never
	// consulted for correctness-critical decisions and may be nil; every
	// caller must treat it as a best-effort accelerant.
	Index *index.Index

	// Obs is the run's observability provider (pkg/obs). May be nil; stage
	// workers must tolerate running without one.
	Obs *obs.Provider
}

// New builds a RunContext from its components. A nil clock defaults to
// time.Now.
func New(st *store.Store, oc oracle.Client, cfg *config.Config, clock Clock) *RunContext {
	if clock == nil {
		clock = time.Now
	}
	if st != nil {
		st.SetClock(clock)
	}
	return &RunContext{RunID: uuid.NewString(), Store: st, Oracle: oc, Config: cfg, Clock: clock}
}

// WithIndex attaches a derived query index to the RunContext, returning the
// same instance for chaining. Pass nil to run without one.
func (rc *RunContext) WithIndex(idx *index.Index) *RunContext {
	rc.Index = idx
	return rc
}

// WithObs attaches an observability provider to the RunContext.
func (rc *RunContext) WithObs(p *obs.Provider) *RunContext {
	rc.Obs = p
	return rc
}

// Now returns the run's current time, routed through Clock so tests can
// freeze it.
func (rc *RunContext) Now() time.Time {
	return rc.Clock().UTC()
}
