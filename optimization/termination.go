package optimization

// TerminationReason describes why a run stopped.
type TerminationReason int

const (
	// NotTerminated means the run is still in progress.
	NotTerminated TerminationReason = iota
	// MaxItersReached means the iteration limit was hit.
	MaxItersReached
	// TargetCostReached means the cost dropped to the configured target.
	TargetCostReached
	// TargetPrecisionReached means a solver-specific precision
	// criterion was met (e.g. gradient norm below tolerance).
	TargetPrecisionReached
	// NoChangeInCost means successive costs differ by less than the
	// solver's tolerance.
	NoChangeInCost
	// AcceptedStallIterExceeded means too many iterations passed
	// without an accepted candidate.
	AcceptedStallIterExceeded
	// BestStallIterExceeded means too many iterations passed without
	// a new best candidate.
	BestStallIterExceeded
	// LineSearchConditionMet means the line search acceptance
	// condition holds for the current step length.
	LineSearchConditionMet
	// TargetToleranceReached means a bracketing method narrowed its
	// interval below the configured tolerance.
	TargetToleranceReached
	// TimeLimitReached means the configured time limit was exhausted.
	TimeLimitReached
	// Interrupted means the run was stopped by an external signal.
	Interrupted
	// Aborted means the run stopped without a specific reason, for
	// example through context cancellation.
	Aborted
)

// Terminated reports whether the reason ends a run.
func (r TerminationReason) Terminated() bool {
	return r != NotTerminated
}

func (r TerminationReason) String() string {
	switch r {
	case NotTerminated:
		return "Not terminated"
	case MaxItersReached:
		return "Maximum number of iterations reached"
	case TargetCostReached:
		return "Target cost value reached"
	case TargetPrecisionReached:
		return "Target precision reached"
	case NoChangeInCost:
		return "No change in cost function value"
	case AcceptedStallIterExceeded:
		return "Accepted stall iterations exceeded"
	case BestStallIterExceeded:
		return "Best stall iterations exceeded"
	case LineSearchConditionMet:
		return "Line search condition met"
	case TargetToleranceReached:
		return "Target tolerance reached"
	case TimeLimitReached:
		return "Time limit reached"
	case Interrupted:
		return "Interrupted"
	case Aborted:
		return "Optimization aborted"
	default:
		return "Unknown"
	}
}
