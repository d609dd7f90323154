package optimization

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Executor drives a Solver over a problem until termination. It owns
// the State, merges the solver's per-iteration output into it, tracks
// the best candidate and notifies observers.
type Executor struct {
	solver          Solver
	ev              *Evaluator
	state           *State
	observers       []registeredObserver
	timeLimit       time.Duration
	checkpoint      Checkpointer
	checkpointEvery uint64
}

// New creates an Executor for the given problem and solver. The
// initial parameter vector must be supplied with WithParam (or a full
// State with WithState) before Run.
func New(problem interface{}, solver Solver) *Executor {
	return &Executor{
		solver: solver,
		ev:     NewEvaluator(problem),
		state:  NewState(),
	}
}

// WithParam sets the mandatory initial parameter vector.
func (e *Executor) WithParam(p []float64) *Executor {
	e.state.SetParam(p)
	return e
}

// WithCost seeds the state with a known cost at the initial
// parameter, avoiding a re-evaluation.
func (e *Executor) WithCost(c float64) *Executor {
	e.state.SetCost(c)
	return e
}

// WithGrad seeds the state with a known gradient.
func (e *Executor) WithGrad(g []float64) *Executor {
	e.state.SetGrad(g)
	return e
}

// WithHessian seeds the state with a known Hessian.
func (e *Executor) WithHessian(h *mat.Dense) *Executor {
	e.state.SetHessian(h)
	return e
}

// WithJacobian seeds the state with a known Jacobian.
func (e *Executor) WithJacobian(j *mat.Dense) *Executor {
	e.state.SetJacobian(j)
	return e
}

// WithMaxIters limits the number of iterations.
func (e *Executor) WithMaxIters(n uint64) *Executor {
	e.state.MaxIters = n
	return e
}

// WithTargetCost stops the run once the cost drops to the target.
func (e *Executor) WithTargetCost(c float64) *Executor {
	e.state.TargetCost = c
	return e
}

// WithTimeLimit bounds the wall-clock time of the run. Zero means no
// limit.
func (e *Executor) WithTimeLimit(d time.Duration) *Executor {
	e.timeLimit = d
	return e
}

// WithState replaces the executor's state, typically with one loaded
// from a checkpoint to resume a run.
func (e *Executor) WithState(s *State) *Executor {
	e.state = s
	return e
}

// WithCheckpoint saves the state through c every n iterations.
func (e *Executor) WithCheckpoint(c Checkpointer, every uint64) *Executor {
	if every == 0 {
		every = 1
	}
	e.checkpoint = c
	e.checkpointEvery = every
	return e
}

// AddObserver registers an observer with the given mode.
func (e *Executor) AddObserver(obs Observer, mode ObserverMode) *Executor {
	e.observers = append(e.observers, registeredObserver{obs: obs, mode: mode})
	return e
}

// Result is the outcome of a run.
type Result struct {
	// State is the final state of the run.
	State *State
	// Evaluator holds the problem and the final evaluation counts.
	Evaluator *Evaluator

	name string
}

// BestParam returns the best parameter vector found.
func (r *Result) BestParam() []float64 { return r.State.BestParam }

// BestCost returns the best cost found.
func (r *Result) BestCost() float64 { return r.State.BestCost }

func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.name)
	fmt.Fprintf(&b, "    param (best):  %v\n", r.State.BestParam)
	fmt.Fprintf(&b, "    cost (best):   %v\n", r.State.BestCost)
	fmt.Fprintf(&b, "    iters:         %d\n", r.State.Iter)
	fmt.Fprintf(&b, "    cost evals:    %d\n", r.State.CostFuncCount)
	fmt.Fprintf(&b, "    grad evals:    %d\n", r.State.GradFuncCount)
	fmt.Fprintf(&b, "    hessian evals: %d\n", r.State.HessianFuncCount)
	fmt.Fprintf(&b, "    time:          %v\n", r.State.Time)
	fmt.Fprintf(&b, "    termination:   %s\n", r.State.Reason)
	return b.String()
}

// Run executes the solver until a termination reason is recorded or
// the context is cancelled.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	if e.state.Param == nil {
		return nil, NotInitializedError("initial parameter vector required").
			WithComponent(e.solver.Name()).WithOperation("Run")
	}

	start := time.Now()
	// a resumed state carries the elapsed time of earlier runs
	baseline := e.state.Time

	// A state resumed from a checkpoint skips initialization.
	if e.state.Iter == 0 {
		data, err := e.solver.Init(e.ev, e.state)
		if err != nil {
			return nil, WrapError(err, "solver initialization failed").WithComponent(e.solver.Name())
		}
		e.state.SetFuncCounts(e.ev)
		e.merge(data)

		initKV := KV(nil)
		if data != nil {
			initKV = data.kv
		}
		for _, ro := range e.observers {
			if ro.mode.kind == observeNever {
				continue
			}
			if oerr := ro.obs.ObserveInit(e.solver.Name(), initKV); oerr != nil {
				return nil, WrapError(oerr, "observer failed during init").WithComponent(e.solver.Name())
			}
		}
	}

	for {
		if ctx.Err() != nil {
			e.state.Reason = Aborted
		}
		if !e.state.Terminated() {
			e.state.Reason = terminateInternal(e.solver, e.state)
		}
		if e.state.Terminated() {
			break
		}

		data, err := e.solver.Step(e.ev, e.state)
		if err != nil {
			return nil, WrapError(err, "solver step failed").WithComponent(e.solver.Name())
		}
		e.state.SetFuncCounts(e.ev)
		e.merge(data)

		var kv KV
		if data != nil {
			kv = data.kv
		}
		for _, ro := range e.observers {
			if !ro.mode.wants(e.state) {
				continue
			}
			if oerr := ro.obs.ObserveIter(e.state, kv); oerr != nil {
				return nil, WrapError(oerr, "observer failed").WithComponent(e.solver.Name())
			}
		}

		if e.checkpoint != nil && e.state.Iter%e.checkpointEvery == 0 {
			if cerr := e.checkpoint.Save(e.state); cerr != nil {
				return nil, WrapError(cerr, "checkpoint save failed").WithComponent(e.solver.Name())
			}
		}

		e.state.IncrementIter()
		e.state.Time = baseline + time.Since(start)
		if e.timeLimit > 0 && e.state.Time >= e.timeLimit {
			e.state.Reason = TimeLimitReached
		}
		if e.state.Terminated() {
			break
		}
	}

	e.state.Time = baseline + time.Since(start)
	if !e.state.Terminated() {
		e.state.Reason = Aborted
	}

	for _, ro := range e.observers {
		if ro.mode.kind == observeNever {
			continue
		}
		if oerr := ro.obs.ObserveFinal(e.state); oerr != nil {
			return nil, WrapError(oerr, "observer failed during finalization").WithComponent(e.solver.Name())
		}
	}

	return &Result{State: e.state, Evaluator: e.ev, name: e.solver.Name()}, nil
}

// merge folds an IterData into the state through the shifting setters
// and updates the best candidate.
func (e *Executor) merge(d *IterData) {
	if d != nil {
		if d.param != nil {
			e.state.SetParam(d.param)
		}
		if d.costSet {
			e.state.SetCost(d.cost)
		}
		if d.grad != nil {
			e.state.SetGrad(d.grad)
		}
		if d.hessian != nil {
			e.state.SetHessian(d.hessian)
		}
		if d.jacobian != nil {
			e.state.SetJacobian(d.jacobian)
		}
		if d.population != nil {
			e.state.SetPopulation(d.population)
		}
		if d.reasonSet {
			e.state.Reason = d.reason
		}
	}

	// A pair of equally signed infinities counts as an improvement so
	// the best candidate is defined from the very first iteration.
	cost, best := e.state.Cost, e.state.BestCost
	if cost < best ||
		(math.IsInf(cost, 0) && math.IsInf(best, 0) && math.Signbit(cost) == math.Signbit(best)) {
		e.state.SetBestParam(slices.Clone(e.state.Param))
		e.state.SetBestCost(cost)
		e.state.NewBest()
	}
}
