package linesearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/SOLVR/optimization"
)

type parabola struct{}

func (parabola) Cost(p []float64) (float64, error) {
	return p[0] * p[0], nil
}

func (parabola) Gradient(p []float64) ([]float64, error) {
	return []float64{2 * p[0]}, nil
}

func TestBacktrackingRequiresDirection(t *testing.T) {
	ls := NewBacktracking()
	_, err := optimization.New(parabola{}, ls).
		WithParam([]float64{2}).
		Run(context.Background())
	require.Error(t, err)
	assert.True(t, optimization.IsKind(err, optimization.KindNotInitialized))
}

func TestBacktrackingFindsAcceptableStep(t *testing.T) {
	ls := NewBacktracking()
	ls.SetSearchDirection([]float64{-4})

	res, err := optimization.New(parabola{}, ls).
		WithParam([]float64{2}).
		WithCost(4).
		WithGrad([]float64{4}).
		WithMaxIters(100).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, optimization.LineSearchConditionMet, res.State.Reason)
	assert.Less(t, res.State.Cost, 4.0)
}

func TestBacktrackingStepLengthResetsOnInit(t *testing.T) {
	ls := NewBacktracking()
	require.NoError(t, ls.SetContraction(0.5))
	require.NoError(t, ls.SetInitStepLength(2.0))

	run := func() *optimization.Result {
		ls.SetSearchDirection([]float64{-4})
		res, err := optimization.New(parabola{}, ls).
			WithParam([]float64{2}).
			WithCost(4).
			WithGrad([]float64{4}).
			WithMaxIters(100).
			Run(context.Background())
		require.NoError(t, err)
		return res
	}

	first := run()
	second := run()
	assert.Equal(t, first.State.Cost, second.State.Cost)
	assert.Equal(t, first.State.Iter, second.State.Iter)
	assert.Equal(t, first.State.Param, second.State.Param)
}

func TestBacktrackingWithStrongWolfe(t *testing.T) {
	cond, err := NewStrongWolfe(1e-4, 0.9)
	require.NoError(t, err)

	ls := NewBacktracking()
	ls.SetCondition(cond)
	ls.SetSearchDirection([]float64{-4})

	res, err := optimization.New(parabola{}, ls).
		WithParam([]float64{2}).
		WithMaxIters(200).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, optimization.LineSearchConditionMet, res.State.Reason)
	// curvature condition forces a gradient evaluation per trial
	assert.Greater(t, res.State.GradFuncCount, uint64(1))
}

func TestBacktrackingParameterValidation(t *testing.T) {
	ls := NewBacktracking()
	assert.Error(t, ls.SetContraction(0))
	assert.Error(t, ls.SetContraction(1))
	assert.Error(t, ls.SetInitStepLength(0))
	assert.Error(t, ls.SetInitStepLength(-1))
	assert.NoError(t, ls.SetInitStepLength(0.5))
}
