package optimization

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// State is the full mutable record of a run. Every quantity that a
// solver can produce keeps a two-slot history: setting a new value
// shifts the current one into its Prev slot first. The population is
// the one exception and is overwritten in place.
//
// All fields are exported; together with the JSON marshaling in
// checkpoint.go they form the checkpoint surface.
type State struct {
	// Param is the current parameter vector.
	Param []float64
	// PrevParam is the parameter vector of the previous iteration.
	PrevParam []float64
	// BestParam is the best parameter vector seen so far.
	BestParam []float64
	// PrevBestParam is the previous best parameter vector.
	PrevBestParam []float64

	// Cost is the current cost. Initialized to +Inf.
	Cost float64
	// PrevCost is the cost of the previous iteration.
	PrevCost float64
	// BestCost is the best cost seen so far.
	BestCost float64
	// PrevBestCost is the previous best cost.
	PrevBestCost float64
	// TargetCost stops the run once reached. Initialized to -Inf.
	TargetCost float64

	// Grad is the current gradient.
	Grad []float64
	// PrevGrad is the gradient of the previous iteration.
	PrevGrad []float64

	// Hessian is the current Hessian.
	Hessian *mat.Dense
	// PrevHessian is the Hessian of the previous iteration.
	PrevHessian *mat.Dense

	// Jacobian is the current Jacobian.
	Jacobian *mat.Dense
	// PrevJacobian is the Jacobian of the previous iteration.
	PrevJacobian *mat.Dense

	// Population holds candidate vectors for population-based methods.
	Population [][]float64

	// Iter is the current iteration number.
	Iter uint64
	// LastBestIter is the iteration at which the best parameter
	// vector was found.
	LastBestIter uint64
	// MaxIters is the iteration limit. Initialized to MaxUint64.
	MaxIters uint64

	// CostFuncCount is the number of cost function evaluations.
	CostFuncCount uint64
	// GradFuncCount is the number of gradient evaluations.
	GradFuncCount uint64
	// HessianFuncCount is the number of Hessian evaluations.
	HessianFuncCount uint64
	// JacobianFuncCount is the number of Jacobian evaluations.
	JacobianFuncCount uint64
	// ModifyFuncCount is the number of candidate modifications.
	ModifyFuncCount uint64

	// Time is the elapsed wall-clock time of the run.
	Time time.Duration

	// Reason records why the run terminated.
	Reason TerminationReason
}

// NewState returns a State with costs at +Inf, the target cost at
// -Inf and no iteration limit.
func NewState() *State {
	return &State{
		Cost:         math.Inf(1),
		PrevCost:     math.Inf(1),
		BestCost:     math.Inf(1),
		PrevBestCost: math.Inf(1),
		TargetCost:   math.Inf(-1),
		MaxIters:     math.MaxUint64,
	}
}

// SetParam stores a new parameter vector, shifting the current one
// into PrevParam.
func (s *State) SetParam(p []float64) {
	s.PrevParam = s.Param
	s.Param = p
}

// SetBestParam stores a new best parameter vector, shifting the
// current one into PrevBestParam.
func (s *State) SetBestParam(p []float64) {
	s.PrevBestParam = s.BestParam
	s.BestParam = p
}

// SetCost stores a new cost, shifting the current one into PrevCost.
func (s *State) SetCost(c float64) {
	s.PrevCost = s.Cost
	s.Cost = c
}

// SetBestCost stores a new best cost, shifting the current one into
// PrevBestCost.
func (s *State) SetBestCost(c float64) {
	s.PrevBestCost = s.BestCost
	s.BestCost = c
}

// SetGrad stores a new gradient, shifting the current one into
// PrevGrad.
func (s *State) SetGrad(g []float64) {
	s.PrevGrad = s.Grad
	s.Grad = g
}

// SetHessian stores a new Hessian, shifting the current one into
// PrevHessian.
func (s *State) SetHessian(h *mat.Dense) {
	s.PrevHessian = s.Hessian
	s.Hessian = h
}

// SetJacobian stores a new Jacobian, shifting the current one into
// PrevJacobian.
func (s *State) SetJacobian(j *mat.Dense) {
	s.PrevJacobian = s.Jacobian
	s.Jacobian = j
}

// SetPopulation overwrites the population. No history is kept.
func (s *State) SetPopulation(pop [][]float64) {
	s.Population = pop
}

// NewBest marks the current iteration as the one that produced the
// best parameter vector.
func (s *State) NewBest() {
	s.LastBestIter = s.Iter
}

// IsBest reports whether the current iteration produced a new best
// parameter vector.
func (s *State) IsBest() bool {
	return s.LastBestIter == s.Iter
}

// IncrementIter advances the iteration counter.
func (s *State) IncrementIter() {
	s.Iter++
}

// Terminated reports whether a termination reason has been recorded.
func (s *State) Terminated() bool {
	return s.Reason.Terminated()
}

// SetFuncCounts copies the evaluation counters from an Evaluator.
func (s *State) SetFuncCounts(e *Evaluator) {
	s.CostFuncCount = e.CostCount
	s.GradFuncCount = e.GradCount
	s.HessianFuncCount = e.HessianCount
	s.JacobianFuncCount = e.JacobianCount
	s.ModifyFuncCount = e.ModifyCount
}
