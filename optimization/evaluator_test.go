package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// sphere implements cost and gradient only.
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

func TestEvaluatorCounts(t *testing.T) {
	e := NewEvaluator(sphere{})

	c, err := e.Cost([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 5.0, c)

	_, err = e.Cost([]float64{0, 0})
	require.NoError(t, err)

	g, err := e.Gradient([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, g)

	assert.Equal(t, uint64(2), e.CostCount)
	assert.Equal(t, uint64(1), e.GradCount)
	assert.Equal(t, uint64(0), e.HessianCount)
}

func TestEvaluatorNotImplemented(t *testing.T) {
	e := NewEvaluator(sphere{})

	_, err := e.Hessian([]float64{1})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotImplemented))

	_, err = e.Jacobian([]float64{1})
	assert.True(t, IsKind(err, KindNotImplemented))

	_, err = e.Apply([]float64{1})
	assert.True(t, IsKind(err, KindNotImplemented))

	_, err = e.Modify([]float64{1}, 0.5)
	assert.True(t, IsKind(err, KindNotImplemented))

	// failed capability checks must not bump the counters
	assert.Equal(t, uint64(0), e.CostCount)
	assert.Equal(t, uint64(0), e.ModifyCount)
}

func TestEvaluatorTakeAndReclaim(t *testing.T) {
	e := NewEvaluator(sphere{})
	_, err := e.Cost([]float64{1})
	require.NoError(t, err)

	problem := e.Take()
	require.NotNil(t, problem)

	_, err = e.Cost([]float64{1})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPotentialBug))

	// nested run over the same problem
	sub := NewEvaluator(problem)
	_, err = sub.Cost([]float64{2})
	require.NoError(t, err)
	_, err = sub.Gradient([]float64{2})
	require.NoError(t, err)

	e.Reclaim(sub)
	assert.Equal(t, uint64(2), e.CostCount)
	assert.Equal(t, uint64(1), e.GradCount)

	_, err = e.Cost([]float64{1})
	assert.NoError(t, err)
}

type linearOp struct{ a *mat.Dense }

func (o linearOp) Apply(p []float64) ([]float64, error) {
	n, _ := o.a.Dims()
	out := mat.NewVecDense(n, nil)
	out.MulVec(o.a, mat.NewVecDense(len(p), p))
	return out.RawVector().Data, nil
}

func TestEvaluatorApplyCountsAsCost(t *testing.T) {
	e := NewEvaluator(linearOp{a: mat.NewDense(1, 1, []float64{2})})
	out, err := e.Apply([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, []float64{6}, out)
	assert.Equal(t, uint64(1), e.CostCount)
}
