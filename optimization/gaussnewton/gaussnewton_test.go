package gaussnewton

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
	"github.com/copyleftdev/SOLVR/optimization/linesearch"
)

// scriptedResiduals replays a fixed sequence of residual vectors with
// a constant Jacobian, pinning the step computation to known values.
type scriptedResiduals struct {
	calls     *int
	residuals [][]float64
}

func (s scriptedResiduals) Apply(p []float64) ([]float64, error) {
	r := s.residuals[*s.calls]
	if *s.calls < len(s.residuals)-1 {
		*s.calls++
	}
	return r, nil
}

func (s scriptedResiduals) Jacobian(p []float64) (*mat.Dense, error) {
	return mat.NewDense(2, 2, []float64{1, 2, 3, 4}), nil
}

func newScripted() scriptedResiduals {
	calls := 0
	return scriptedResiduals{
		calls:     &calls,
		residuals: [][]float64{{0.5, 2.0}, {0.3, 1.0}},
	}
}

func TestGaussNewtonKnownSteps(t *testing.T) {
	tests := []struct {
		name  string
		gamma float64
		iters uint64
		want  []float64
	}{
		{"full step one iter", 1.0, 1, []float64{-1.0, 0.25}},
		{"full step two iters", 1.0, 2, []float64{-1.4, 0.3}},
		{"damped one iter", 0.5, 1, []float64{-0.5, 0.125}},
		{"damped two iters", 0.5, 2, []float64{-0.7, 0.15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solver, err := NewGaussNewton().WithGamma(tt.gamma)
			require.NoError(t, err)

			res, err := optimization.New(newScripted(), solver).
				WithParam([]float64{0, 0}).
				WithMaxIters(tt.iters).
				Run(context.Background())
			require.NoError(t, err)

			assert.InDelta(t, tt.want[0], res.State.Param[0], 1e-10)
			assert.InDelta(t, tt.want[1], res.State.Param[1], 1e-10)
		})
	}
}

type singularJacobian struct{}

func (singularJacobian) Apply(p []float64) ([]float64, error) {
	return []float64{1, 1}, nil
}

func (singularJacobian) Jacobian(p []float64) (*mat.Dense, error) {
	return mat.NewDense(2, 2, []float64{1, 1, 1, 1}), nil
}

func TestGaussNewtonSingularNormalEquations(t *testing.T) {
	_, err := optimization.New(singularJacobian{}, NewGaussNewton()).
		WithParam([]float64{0, 0}).
		WithMaxIters(5).
		Run(context.Background())
	require.Error(t, err)
}

func TestGaussNewtonParameterValidation(t *testing.T) {
	_, err := NewGaussNewton().WithGamma(0)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))

	_, err = NewGaussNewton().WithGamma(1.5)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))

	_, err = NewGaussNewton().WithGamma(1)
	assert.NoError(t, err)

	_, err = NewGaussNewton().WithTolerance(0)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))

	_, err = NewGaussNewtonLS(linesearch.NewBacktracking()).WithTolerance(-1)
	assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))
}

// linearResiduals is r(x) = Ax - b, an exactly solvable least squares
// problem.
type linearResiduals struct{}

func (linearResiduals) Apply(p []float64) ([]float64, error) {
	return []float64{
		1*p[0] + 2*p[1] - 1,
		3*p[0] + 4*p[1] - 2,
	}, nil
}

func (linearResiduals) Jacobian(p []float64) (*mat.Dense, error) {
	return mat.NewDense(2, 2, []float64{1, 2, 3, 4}), nil
}

func TestGaussNewtonSolvesLinearLeastSquares(t *testing.T) {
	res, err := optimization.New(linearResiduals{}, NewGaussNewton()).
		WithParam([]float64{5, 5}).
		WithMaxIters(10).
		Run(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 0.0, res.BestParam()[0], 1e-8)
	assert.InDelta(t, 0.5, res.BestParam()[1], 1e-8)
}

func TestGaussNewtonLSSolvesLinearLeastSquares(t *testing.T) {
	solver := NewGaussNewtonLS(linesearch.NewBacktracking())

	res, err := optimization.New(linearResiduals{}, solver).
		WithParam([]float64{5, 5}).
		WithMaxIters(20).
		Run(context.Background())
	require.NoError(t, err)

	assert.Less(t, res.BestCost(), 1e-8)
	assert.InDelta(t, 0.0, res.BestParam()[0], 1e-6)
	assert.InDelta(t, 0.5, res.BestParam()[1], 1e-6)

	// nested evaluations must surface in the outer counts
	assert.Greater(t, res.State.CostFuncCount, uint64(1))
	assert.Greater(t, res.State.JacobianFuncCount, uint64(0))
}
