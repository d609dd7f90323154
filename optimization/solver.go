package optimization

// Solver is the contract every iterative method implements. The
// driver calls Init once, then alternates Terminate and Step until a
// termination reason is recorded.
type Solver interface {
	// Name identifies the solver in logs and observations.
	Name() string
	// Init performs one-time setup before the iteration loop. A nil
	// IterData is valid and merges nothing.
	Init(e *Evaluator, state *State) (*IterData, error)
	// Step performs a single iteration.
	Step(e *Evaluator, state *State) (*IterData, error)
	// Terminate lets the solver stop the run based on the state.
	Terminate(state *State) TerminationReason
}

// SolverDefaults provides no-op Init and Terminate implementations
// for solvers that only need Step.
type SolverDefaults struct{}

// Init does nothing.
func (SolverDefaults) Init(*Evaluator, *State) (*IterData, error) {
	return nil, nil
}

// Terminate never stops the run; the driver's universal criteria
// still apply.
func (SolverDefaults) Terminate(*State) TerminationReason {
	return NotTerminated
}

// LineSearch is a solver that searches along a direction supplied by
// an outer method.
type LineSearch interface {
	Solver
	// SetSearchDirection fixes the direction for the next run.
	SetSearchDirection(dir []float64)
	// SetInitStepLength sets the initial step length. It must be
	// positive.
	SetInitStepLength(alpha float64) error
}

// TrustRegionSubProblem is a solver that approximately minimizes a
// quadratic model within a radius supplied by an outer method.
type TrustRegionSubProblem interface {
	Solver
	// SetRadius fixes the trust region radius for the next run.
	SetRadius(radius float64)
}

// terminateInternal combines the solver's own criterion with the
// universal iteration and target cost checks, in that order.
func terminateInternal(s Solver, state *State) TerminationReason {
	if r := s.Terminate(state); r.Terminated() {
		return r
	}
	if state.Iter >= state.MaxIters {
		return MaxItersReached
	}
	if state.Cost <= state.TargetCost {
		return TargetCostReached
	}
	return NotTerminated
}
