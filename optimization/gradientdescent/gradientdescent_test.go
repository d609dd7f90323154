package gradientdescent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/SOLVR/optimization"
	"github.com/copyleftdev/SOLVR/optimization/linesearch"
)

type sphere struct{}

func (sphere) Cost(p []float64) (float64, error) {
	var sum float64
	for _, x := range p {
		sum += x * x
	}
	return sum, nil
}

func (sphere) Gradient(p []float64) ([]float64, error) {
	g := make([]float64, len(p))
	for i, x := range p {
		g[i] = 2 * x
	}
	return g, nil
}

func TestSteepestDescentSingleStep(t *testing.T) {
	// from x=1 the first backtracking contraction lands at -0.8
	res, err := optimization.New(sphere{}, NewSteepestDescent(linesearch.NewBacktracking())).
		WithParam([]float64{1}).
		WithMaxIters(1).
		Run(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, -0.8, res.State.Param[0], 1e-12)
	assert.InDelta(t, 0.64, res.State.Cost, 1e-12)
}

func TestSteepestDescentConvergesOnSphere(t *testing.T) {
	res, err := optimization.New(sphere{}, NewSteepestDescent(linesearch.NewBacktracking())).
		WithParam([]float64{2, 1}).
		WithMaxIters(500).
		WithTargetCost(1e-6).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, optimization.TargetCostReached, res.State.Reason)
	assert.Less(t, res.BestCost(), 1e-6)
}

func TestSteepestDescentSurfacesNestedCounts(t *testing.T) {
	res, err := optimization.New(sphere{}, NewSteepestDescent(linesearch.NewBacktracking())).
		WithParam([]float64{1}).
		WithMaxIters(3).
		Run(context.Background())
	require.NoError(t, err)

	// init cost, plus per-iteration gradient and line search trials
	assert.Greater(t, res.State.CostFuncCount, uint64(3))
	assert.Equal(t, uint64(3), res.State.GradFuncCount)
}
