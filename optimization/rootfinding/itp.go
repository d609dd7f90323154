// Package rootfinding provides scalar root finding methods driven by
// the same solver contract as the minimization methods.
package rootfinding

import (
	"math"

	"github.com/copyleftdev/SOLVR/optimization"
)

// ITP finds a root of a scalar function on a bracketing interval by
// interpolation, truncation and projection. It keeps the worst-case
// bisection guarantee while converging superlinearly on well-behaved
// functions.
//
// The function is supplied through the Cost capability with a
// one-element parameter vector; the two bracket endpoints must have
// function values of opposite sign. Each iteration reports the
// bracket midpoint as parameter and the absolute function value at
// the latest sampled point as cost.
type ITP struct {
	optimization.SolverDefaults

	a, b   float64
	ya, yb float64

	tol float64
	k1  float64
	k2  float64
	n0  uint64

	nmax float64
	sign float64
}

// NewITP returns an ITP solver on the bracket [min, max] with
// tolerance 1e-8, kappa1 = 0.2/(max-min), kappa2 = 2 and n0 = 1.
func NewITP(min, max float64) (*ITP, error) {
	if min >= max {
		return nil, optimization.InvalidParameterf("bracket must satisfy min < max, got [%v, %v]", min, max).
			WithComponent("ITP")
	}
	return &ITP{
		a:   min,
		b:   max,
		tol: 1e-8,
		k1:  0.2 / (max - min),
		k2:  2.0,
		n0:  1,
	}, nil
}

// WithTolerance sets the half-width at which the bracket counts as
// converged. tol must be positive.
func (s *ITP) WithTolerance(tol float64) (*ITP, error) {
	if tol <= 0 {
		return nil, optimization.InvalidParameterf("tolerance must be > 0, got %v", tol).
			WithComponent(s.Name())
	}
	s.tol = tol
	return s, nil
}

// WithKappa1 sets the truncation scale factor, which must be
// positive.
func (s *ITP) WithKappa1(k1 float64) (*ITP, error) {
	if k1 <= 0 {
		return nil, optimization.InvalidParameterf("kappa1 must be > 0, got %v", k1).
			WithComponent(s.Name())
	}
	s.k1 = k1
	return s, nil
}

// WithKappa2 sets the truncation exponent, which must lie in
// [1, 1+φ) with φ the golden ratio.
func (s *ITP) WithKappa2(k2 float64) (*ITP, error) {
	phi := (1 + math.Sqrt(5)) / 2
	if k2 < 1 || k2 >= 1+phi {
		return nil, optimization.InvalidParameterf("kappa2 must be in [1, 1+φ), got %v", k2).
			WithComponent(s.Name())
	}
	s.k2 = k2
	return s, nil
}

// WithN0 sets the number of extra iterations granted beyond the
// bisection bound.
func (s *ITP) WithN0(n0 uint64) *ITP {
	s.n0 = n0
	return s
}

// Name identifies the solver.
func (s *ITP) Name() string { return "ITP" }

// Init evaluates both endpoints and checks that they bracket a root.
func (s *ITP) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	ya, err := e.Cost([]float64{s.a})
	if err != nil {
		return nil, err
	}
	yb, err := e.Cost([]float64{s.b})
	if err != nil {
		return nil, err
	}
	if ya*yb > 0 {
		return nil, optimization.InvalidParameterf(
			"endpoint values must have opposite signs, got f(%v)=%v and f(%v)=%v", s.a, ya, s.b, yb).
			WithComponent(s.Name()).WithOperation("Init")
	}
	s.ya, s.yb = ya, yb
	s.sign = 1
	if ya >= 0 {
		s.sign = -1
	}

	nhalf := math.Ceil(math.Log2((s.b - s.a) / (2 * s.tol)))
	s.nmax = nhalf + float64(s.n0)

	return optimization.NewIterData().Param([]float64{(s.a + s.b) / 2}), nil
}

// Step evaluates the interpolated, truncated and projected point and
// shrinks the bracket on the side where the sign changed.
func (s *ITP) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	j := float64(state.Iter)
	width := s.b - s.a
	xhalf := (s.a + s.b) / 2

	radius := s.tol*math.Pow(2, s.nmax-j) - width/2
	delta := s.k1 * math.Pow(width, s.k2)

	// regula falsi interpolation
	xf := (s.yb*s.a - s.ya*s.b) / (s.yb - s.ya)
	sigma := math.Copysign(1, xhalf-xf)

	// truncation toward the midpoint
	xt := xhalf
	if delta <= math.Abs(xhalf-xf) {
		xt = xf + sigma*delta
	}

	// projection onto the shrinking bisection envelope
	xitp := xt
	if math.Abs(xt-xhalf) > radius {
		xitp = xhalf - sigma*radius
	}

	yitp, err := e.Cost([]float64{xitp})
	if err != nil {
		return nil, err
	}

	switch scaled := s.sign * yitp; {
	case scaled > 0:
		s.b, s.yb = xitp, yitp
	case scaled < 0:
		s.a, s.ya = xitp, yitp
	default:
		s.a, s.ya = xitp, yitp
		s.b, s.yb = xitp, yitp
	}

	return optimization.NewIterData().
		Param([]float64{(s.a + s.b) / 2}).
		Cost(math.Abs(yitp)).
		KV("bracket_width", s.b-s.a), nil
}

// Terminate stops once the bracket is narrower than twice the
// tolerance; the midpoint is then within tol of a root.
func (s *ITP) Terminate(state *optimization.State) optimization.TerminationReason {
	if s.b-s.a <= 2*s.tol {
		return optimization.TargetToleranceReached
	}
	return optimization.NotTerminated
}
