package quasinewton

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
	"github.com/copyleftdev/SOLVR/optimization/linesearch"
)

// ellipse is the quadratic f(x, y) = x^2 + 4y^2.
type ellipse struct{}

func (ellipse) Cost(p []float64) (float64, error) {
	return p[0]*p[0] + 4*p[1]*p[1], nil
}

func (ellipse) Gradient(p []float64) ([]float64, error) {
	return []float64{2 * p[0], 8 * p[1]}, nil
}

func TestBFGSUpdateKnownValues(t *testing.T) {
	h := bfgsUpdate(eye(2), []float64{1, 0}, []float64{2, 0})
	want := mat.NewDense(2, 2, []float64{0.5, 0, 0, 1})
	assert.True(t, mat.EqualApprox(h, want, 1e-12))
}

func TestDFPUpdateKnownValues(t *testing.T) {
	h := dfpUpdate(eye(2), []float64{1, 0}, []float64{2, 0})
	want := mat.NewDense(2, 2, []float64{0.5, 0, 0, 1})
	assert.True(t, mat.EqualApprox(h, want, 1e-12))
}

func TestSR1UpdateKnownValues(t *testing.T) {
	h := eye(2)
	updated, denom := sr1Update(h, []float64{1, 0}, []float64{2, 0}, 1e-8)
	require.True(t, updated)
	assert.InDelta(t, -2.0, denom, 1e-12)
	want := mat.NewDense(2, 2, []float64{0.5, 0, 0, 1})
	assert.True(t, mat.EqualApprox(h, want, 1e-12))
}

func TestSR1SkipLeavesHessianUntouched(t *testing.T) {
	h := eye(2)
	before := mat.DenseCopyOf(h)

	// s - Hy is tiny and nearly orthogonal to y, putting the
	// denominator below the skip threshold
	updated, _ := sr1Update(h, []float64{1, 0}, []float64{1, 1e-10}, 1e-8)
	assert.False(t, updated)
	assert.Equal(t, before.RawMatrix().Data, h.RawMatrix().Data)
}

func TestBFGSConvergesOnQuadratic(t *testing.T) {
	solver := NewBFGS(eye(2), linesearch.NewBacktracking())

	res, err := optimization.New(ellipse{}, solver).
		WithParam([]float64{3, 1}).
		WithMaxIters(1000).
		Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, optimization.MaxItersReached, res.State.Reason)
	assert.Less(t, res.BestCost(), 1e-6)
}

func TestBFGSRequiresInverseHessian(t *testing.T) {
	solver := NewBFGS(nil, linesearch.NewBacktracking())
	_, err := optimization.New(ellipse{}, solver).
		WithParam([]float64{3, 1}).
		Run(context.Background())
	require.Error(t, err)
	assert.True(t, optimization.IsKind(err, optimization.KindNotInitialized))
}

func TestDFPConvergesOnQuadratic(t *testing.T) {
	solver := NewDFP(eye(2), linesearch.NewBacktracking())

	res, err := optimization.New(ellipse{}, solver).
		WithParam([]float64{3, 1}).
		WithMaxIters(1000).
		WithTargetCost(1e-8).
		Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, optimization.MaxItersReached, res.State.Reason)
	assert.Less(t, res.BestCost(), 1e-6)
}

func TestSR1ConvergesOnQuadratic(t *testing.T) {
	solver := NewSR1(eye(2), linesearch.NewBacktracking())

	res, err := optimization.New(ellipse{}, solver).
		WithParam([]float64{3, 1}).
		WithMaxIters(1000).
		Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, optimization.MaxItersReached, res.State.Reason)
	assert.Less(t, res.BestCost(), 1e-6)
}

func TestLBFGSConvergesOnQuadratic(t *testing.T) {
	solver := NewLBFGS(linesearch.NewBacktracking(), 5)

	res, err := optimization.New(ellipse{}, solver).
		WithParam([]float64{3, 1}).
		WithMaxIters(1000).
		Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, optimization.MaxItersReached, res.State.Reason)
	assert.Less(t, res.BestCost(), 1e-6)
}

func TestLBFGSMemoryStaysBounded(t *testing.T) {
	solver := NewLBFGS(linesearch.NewBacktracking(), 3)

	_, err := optimization.New(ellipse{}, solver).
		WithParam([]float64{3, 1}).
		WithMaxIters(25).
		Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, solver.Memory(), 0)
	assert.LessOrEqual(t, solver.Memory(), 3)
	assert.Equal(t, len(solver.s), len(solver.y))
}

func TestLBFGSRejectsZeroMemory(t *testing.T) {
	solver := NewLBFGS(linesearch.NewBacktracking(), 0)
	_, err := optimization.New(ellipse{}, solver).
		WithParam([]float64{3, 1}).
		Run(context.Background())
	require.Error(t, err)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))
}

func TestQuasiNewtonParameterValidation(t *testing.T) {
	ls := linesearch.NewBacktracking()

	_, err := NewBFGS(eye(2), ls).WithToleranceGrad(-1)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))

	_, err = NewBFGS(eye(2), ls).WithToleranceCost(-1)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))

	_, err = NewDFP(eye(2), ls).WithToleranceGrad(-1)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))

	_, err = NewSR1(eye(2), ls).WithFactor(1.5)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))

	_, err = NewSR1(eye(2), ls).WithFactor(-0.1)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))

	s, err := NewSR1(eye(2), ls).WithFactor(0.5)
	require.NoError(t, err)
	assert.NotNil(t, s)
}
