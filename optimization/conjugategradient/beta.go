package conjugategradient

import (
	"gonum.org/v1/gonum/floats"
)

// BetaRule computes the conjugation coefficient of nonlinear CG from
// the previous gradient, the current gradient and the previous search
// direction.
type BetaRule interface {
	Update(prevGrad, grad, prevDir []float64) float64
}

// FletcherReeves is the Fletcher-Reeves update gᵀg / g₀ᵀg₀.
type FletcherReeves struct{}

// Update computes the Fletcher-Reeves coefficient.
func (FletcherReeves) Update(prevGrad, grad, _ []float64) float64 {
	return floats.Dot(grad, grad) / floats.Dot(prevGrad, prevGrad)
}

// PolakRibiere is the Polak-Ribiere update gᵀ(g - g₀) / ‖g₀‖².
type PolakRibiere struct{}

// Update computes the Polak-Ribiere coefficient.
func (PolakRibiere) Update(prevGrad, grad, _ []float64) float64 {
	diff := make([]float64, len(grad))
	floats.SubTo(diff, grad, prevGrad)
	return floats.Dot(grad, diff) / floats.Dot(prevGrad, prevGrad)
}

// PolakRibierePlus clamps the Polak-Ribiere coefficient at zero,
// which amounts to a restart whenever the plain update turns negative.
type PolakRibierePlus struct{}

// Update computes the clamped Polak-Ribiere coefficient.
func (PolakRibierePlus) Update(prevGrad, grad, prevDir []float64) float64 {
	beta := PolakRibiere{}.Update(prevGrad, grad, prevDir)
	if beta < 0 {
		return 0
	}
	return beta
}

// HestenesStiefel is the Hestenes-Stiefel update
// gᵀ(g - g₀) / ((g - g₀)ᵀ d).
type HestenesStiefel struct{}

// Update computes the Hestenes-Stiefel coefficient.
func (HestenesStiefel) Update(prevGrad, grad, prevDir []float64) float64 {
	diff := make([]float64, len(grad))
	floats.SubTo(diff, grad, prevGrad)
	return floats.Dot(grad, diff) / floats.Dot(diff, prevDir)
}
