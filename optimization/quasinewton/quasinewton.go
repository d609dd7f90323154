// Package quasinewton provides BFGS, DFP, SR1 and L-BFGS, all
// operating on the inverse Hessian and delegating step lengths to a
// nested line search.
package quasinewton

import (
	"gonum.org/v1/gonum/mat"
)

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

// descentDirection computes -H·g.
func descentDirection(h *mat.Dense, grad []float64) []float64 {
	n := len(grad)
	hv := mat.NewVecDense(n, nil)
	hv.MulVec(h, mat.NewVecDense(n, grad))
	p := make([]float64, n)
	for i := 0; i < n; i++ {
		p[i] = -hv.AtVec(i)
	}
	return p
}
