package conjugategradient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

type spdOperator struct{ a *mat.Dense }

func (o spdOperator) Apply(p []float64) ([]float64, error) {
	n, _ := o.a.Dims()
	out := mat.NewVecDense(n, nil)
	out.MulVec(o.a, mat.NewVecDense(len(p), p))
	return out.RawVector().Data, nil
}

func TestCGScalarSystem(t *testing.T) {
	// 2x = 2 from x0 = 0
	op := spdOperator{a: mat.NewDense(1, 1, []float64{2})}
	cg := NewCG([]float64{2})

	exec := optimization.New(op, cg).
		WithParam([]float64{0}).
		WithMaxIters(1)

	res, err := exec.Run(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.State.Param[0], 1e-12)
	assert.InDelta(t, 0.0, res.State.Cost, 1e-12)
}

func TestCGInitQuantities(t *testing.T) {
	op := spdOperator{a: mat.NewDense(1, 1, []float64{2})}
	cg := NewCG([]float64{2})

	e := optimization.NewEvaluator(op)
	state := optimization.NewState()
	state.SetParam([]float64{0})

	_, err := cg.Init(e, state)
	require.NoError(t, err)

	assert.Equal(t, []float64{-2}, cg.Residual())
	assert.Equal(t, []float64{2}, cg.Direction())
	assert.Equal(t, []float64{2}, cg.PrevDirection())
}

func TestCGSolvesTwoByTwoSystem(t *testing.T) {
	// the textbook system 4x+y=1, x+3y=2 with solution (1/11, 7/11)
	op := spdOperator{a: mat.NewDense(2, 2, []float64{4, 1, 1, 3})}
	cg := NewCG([]float64{1, 2})

	res, err := optimization.New(op, cg).
		WithParam([]float64{2, 1}).
		WithMaxIters(2).
		Run(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1.0/11.0, res.State.Param[0], 1e-10)
	assert.InDelta(t, 7.0/11.0, res.State.Param[1], 1e-10)
}

func TestCGTargetCostStopsEarly(t *testing.T) {
	op := spdOperator{a: mat.NewDense(2, 2, []float64{4, 1, 1, 3})}
	cg := NewCG([]float64{1, 2})

	res, err := optimization.New(op, cg).
		WithParam([]float64{2, 1}).
		WithMaxIters(100).
		WithTargetCost(1e-8).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, optimization.TargetCostReached, res.State.Reason)
	assert.LessOrEqual(t, res.State.Cost, 1e-8)
}
