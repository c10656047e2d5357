// Package graph runs the pipeline stages as a directed workflow: a serial
// chain with one conditional loop between synthesis and the skeptic.
package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// Node names with routing significance.
const (
	NodeSynthesis = "synthesis"
	NodeSkeptic   = "skeptic"
)

// Node is one stage in the workflow.
type Node struct {
	Name string
	Run  func(ctx context.Context, st *state.RunState)
}

// StepFunc observes the state after each executed node. Used by the CLI for
// progress output and by the batch driver for per-stage bookkeeping.
type StepFunc func(node string, st *state.RunState)

// Options bound the engine.
type Options struct {
	// MaxCorrectionAttempts caps how many times synthesis may run before the
	// skeptic's flags stop routing back.
	MaxCorrectionAttempts int
	// MaxSteps is the hard ceiling on executed nodes; exceeding it fails the
	// run. Guards against routing bugs, not against the correction loop,
	// which terminates on its own.
	MaxSteps int
}

// Engine executes nodes in order, looping from the skeptic back to synthesis
// while the draft has flags and attempts remain.
type Engine struct {
	nodes  []Node
	opts   Options
	log    *zap.Logger
	onStep StepFunc
}

// New builds an engine over the given node sequence.
func New(log *zap.Logger, opts Options, nodes []Node) *Engine {
	if opts.MaxCorrectionAttempts <= 0 {
		opts.MaxCorrectionAttempts = 3
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 50
	}
	return &Engine{nodes: nodes, opts: opts, log: log}
}

// OnStep registers a per-node observer.
func (e *Engine) OnStep(fn StepFunc) {
	e.onStep = fn
}

// Run drives the state through the workflow. It returns an error when the
// run fails, the step ceiling is hit, or the context is cancelled; the state
// carries the full diagnostic record either way.
func (e *Engine) Run(ctx context.Context, st *state.RunState) error {
	synthesisIdx := -1
	for i, n := range e.nodes {
		if n.Name == NodeSynthesis {
			synthesisIdx = i
		}
	}

	steps := 0
	for i := 0; i < len(e.nodes); {
		if err := ctx.Err(); err != nil {
			st.Fail("workflow cancelled: %v", err)
			return err
		}

		steps++
		if steps > e.opts.MaxSteps {
			st.Fail("workflow exceeded step ceiling (%d)", e.opts.MaxSteps)
			return fmt.Errorf("workflow exceeded step ceiling (%d)", e.opts.MaxSteps)
		}

		node := e.nodes[i]
		e.log.Info("executing node",
			zap.String("node", node.Name),
			zap.Int("step", steps))
		node.Run(ctx, st)

		if e.onStep != nil {
			e.onStep(node.Name, st)
		}
		if st.Failed() {
			e.log.Error("run failed",
				zap.String("node", node.Name),
				zap.String("error", st.Error))
			return fmt.Errorf("node %s: %s", node.Name, st.Error)
		}

		if node.Name == NodeSkeptic && synthesisIdx >= 0 && e.shouldCorrect(st) {
			e.log.Info("draft has flags, looping back to synthesis",
				zap.Int("attempts", st.CorrectionAttempts))
			i = synthesisIdx
			continue
		}
		i++
	}

	e.log.Info("workflow complete",
		zap.String("run_id", st.RunID),
		zap.Int("steps", steps),
		zap.Int("warnings", len(st.Warnings)))
	return nil
}

// shouldCorrect decides the skeptic's outgoing edge. Exhausted attempts win
// over outstanding flags: the run continues with a warning rather than
// spinning forever.
func (e *Engine) shouldCorrect(st *state.RunState) bool {
	if st.CorrectionAttempts >= e.opts.MaxCorrectionAttempts {
		if len(st.SkepticFlags) > 0 {
			e.log.Warn("max correction attempts reached, continuing with errors",
				zap.Int("attempts", st.CorrectionAttempts))
		}
		st.AddWarning("Max correction attempts reached; draft may contain errors.")
		return false
	}
	return len(st.SkepticFlags) > 0
}
