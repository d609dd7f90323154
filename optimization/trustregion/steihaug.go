package trustregion

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// Steihaug is the truncated conjugate gradient subproblem solver. The
// parameter it iterates on is the step relative to the outer
// iterate, starting at zero.
type Steihaug struct {
	radius   float64
	epsilon  float64
	maxIters uint64

	p   []float64
	r   []float64
	d   []float64
	rtr float64

	rZeroNorm float64
}

// NewSteihaug returns a Steihaug solver with tolerance 1e-10 and no
// inner iteration limit.
func NewSteihaug() *Steihaug {
	return &Steihaug{
		epsilon:  1e-10,
		maxIters: math.MaxUint64,
	}
}

// WithEpsilon sets the relative residual tolerance, which must be
// positive.
func (s *Steihaug) WithEpsilon(eps float64) (*Steihaug, error) {
	if eps <= 0 {
		return nil, optimization.InvalidParameterf("epsilon must be > 0, got %v", eps).
			WithComponent(s.Name())
	}
	s.epsilon = eps
	return s, nil
}

// WithMaxIters bounds the number of inner iterations.
func (s *Steihaug) WithMaxIters(n uint64) *Steihaug {
	s.maxIters = n
	return s
}

// SetRadius fixes the trust region radius for the next run.
func (s *Steihaug) SetRadius(radius float64) { s.radius = radius }

// Name identifies the solver.
func (s *Steihaug) Name() string { return "Steihaug" }

// Init seeds the residual with the gradient and starts the step at
// zero. A gradient already below tolerance terminates immediately.
func (s *Steihaug) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	grad := state.Grad
	if grad == nil {
		g, err := e.Gradient(state.Param)
		if err != nil {
			return nil, err
		}
		grad = g
	}

	s.r = slices.Clone(grad)
	s.rZeroNorm = floats.Norm(s.r, 2)
	s.rtr = floats.Dot(s.r, s.r)
	s.p = make([]float64, len(s.r))
	s.d = make([]float64, len(s.r))
	for i, ri := range s.r {
		s.d[i] = -ri
	}

	// surface an evaluated gradient so later steps find it in the state
	data := optimization.NewIterData().Grad(slices.Clone(grad))
	if s.rZeroNorm < s.epsilon {
		return data.
			Param(slices.Clone(s.p)).
			Termination(optimization.TargetPrecisionReached), nil
	}
	return data, nil
}

// Step performs one truncated CG iteration with the three standard
// exits: negative curvature, boundary crossing and a sufficiently
// small residual.
func (s *Steihaug) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	grad := state.Grad
	h := state.Hessian
	var freshHessian bool
	if h == nil {
		hess, err := e.Hessian(state.Param)
		if err != nil {
			return nil, err
		}
		h = hess
		freshHessian = true
	}

	// an evaluated Hessian is merged back so the next step reuses it
	result := func(data *optimization.IterData) *optimization.IterData {
		if freshHessian {
			data = data.Hessian(h)
		}
		return data
	}

	n := len(s.d)
	hd := mat.NewVecDense(n, nil)
	hd.MulVec(h, mat.NewVecDense(n, s.d))
	dhd := floats.Dot(s.d, hd.RawVector().Data)

	// negative curvature: go to the boundary along d, picking the
	// model-optimal crossing
	if dhd <= 0 {
		tau := s.tau(grad, h, func(float64) bool { return true }, true)
		floats.AddScaled(s.p, tau, s.d)
		return result(optimization.NewIterData().
			Param(slices.Clone(s.p)).
			Termination(optimization.TargetPrecisionReached)), nil
	}

	alpha := s.rtr / dhd

	pN := slices.Clone(s.p)
	floats.AddScaled(pN, alpha, s.d)

	// the step leaves the trust region: stop at the boundary
	if floats.Norm(pN, 2) >= s.radius {
		tau := s.tau(grad, h, func(t float64) bool { return t >= 0 }, false)
		floats.AddScaled(s.p, tau, s.d)
		return result(optimization.NewIterData().
			Param(slices.Clone(s.p)).
			Termination(optimization.TargetPrecisionReached)), nil
	}

	rN := slices.Clone(s.r)
	floats.AddScaled(rN, alpha, hd.RawVector().Data)

	if floats.Norm(rN, 2) < s.epsilon*s.rZeroNorm {
		return result(optimization.NewIterData().
			Param(pN).
			Termination(optimization.TargetPrecisionReached)), nil
	}

	rtrN := floats.Dot(rN, rN)
	beta := rtrN / s.rtr

	s.rtr = rtrN
	s.r = rN
	for i := range s.d {
		s.d[i] = -rN[i] + beta*s.d[i]
	}
	s.p = slices.Clone(pN)

	return result(optimization.NewIterData().Param(pN)), nil
}

// Terminate bounds the inner iteration count.
func (s *Steihaug) Terminate(state *optimization.State) optimization.TerminationReason {
	if state.Iter >= s.maxIters {
		return optimization.MaxItersReached
	}
	return optimization.NotTerminated
}

// tau finds where p + tau*d crosses the trust region boundary. The
// quadratic in tau has two roots; when they degenerate to NaN or
// infinity the linearized fallback (delta - a)/(2c) is used instead.
// With eval set the candidate minimizing the model is returned,
// otherwise the largest one passing the filter.
func (s *Steihaug) tau(grad []float64, h *mat.Dense, filter func(float64) bool, eval bool) float64 {
	a := floats.Dot(s.p, s.p)
	b := floats.Dot(s.d, s.d)
	c := floats.Dot(s.p, s.d)
	delta := s.radius * s.radius

	t1 := math.Sqrt(-a*b + b*delta + c*c)
	tau1 := -(t1 + c) / b
	tau2 := (t1 - c) / b

	candidates := []float64{tau1, tau2}
	if math.IsNaN(tau1) || math.IsInf(tau1, 0) || math.IsNaN(tau2) || math.IsInf(tau2, 0) {
		candidates = []float64{(delta - a) / (2 * c)}
	}

	filtered := candidates[:0:0]
	for _, t := range candidates {
		if filter(t) {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		filtered = candidates
	}

	if !eval {
		best := filtered[0]
		for _, t := range filtered[1:] {
			if t > best {
				best = t
			}
		}
		return best
	}

	best := filtered[0]
	bestM := s.evalModel(grad, h, best)
	for _, t := range filtered[1:] {
		if m := s.evalModel(grad, h, t); m < bestM {
			best, bestM = t, m
		}
	}
	return best
}

// evalModel evaluates the quadratic model at p + tau*d.
func (s *Steihaug) evalModel(grad []float64, h *mat.Dense, tau float64) float64 {
	w := slices.Clone(s.p)
	floats.AddScaled(w, tau, s.d)
	return floats.Dot(grad, w) + 0.5*weightedDot(h, w, w)
}
