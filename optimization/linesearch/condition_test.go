package linesearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/SOLVR/optimization"
)

func TestConditionValidation(t *testing.T) {
	tests := []struct {
		name string
		make func() error
	}{
		{"armijo zero", func() error { _, err := NewArmijo(0); return err }},
		{"armijo one", func() error { _, err := NewArmijo(1); return err }},
		{"wolfe c1 high", func() error { _, err := NewWolfe(1, 0.9); return err }},
		{"wolfe c2 below c1", func() error { _, err := NewWolfe(0.5, 0.4); return err }},
		{"wolfe c2 one", func() error { _, err := NewWolfe(0.1, 1); return err }},
		{"strong wolfe c1 zero", func() error { _, err := NewStrongWolfe(0, 0.9); return err }},
		{"strong wolfe c2 below c1", func() error { _, err := NewStrongWolfe(0.5, 0.5); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.make()
			require.Error(t, err)
			assert.True(t, optimization.IsKind(err, optimization.KindInvalidParameter))
		})
	}
}

func TestArmijoEvaluate(t *testing.T) {
	// f(x) = x^2 at x = 2: cost 4, gradient 4, direction -gradient
	cond, err := NewArmijo(0.5)
	require.NoError(t, err)
	assert.False(t, cond.RequiresGradient())

	initGrad := []float64{4}
	dir := []float64{-4}

	// threshold at alpha = 0.25 is 4 + 0.5*0.25*(-16) = 2
	assert.True(t, cond.Evaluate(1.9, nil, 4, initGrad, dir, 0.25))
	assert.True(t, cond.Evaluate(2.0, nil, 4, initGrad, dir, 0.25))
	assert.False(t, cond.Evaluate(2.1, nil, 4, initGrad, dir, 0.25))
}

func TestWolfeEvaluate(t *testing.T) {
	cond, err := NewWolfe(1e-4, 0.9)
	require.NoError(t, err)
	assert.True(t, cond.RequiresGradient())

	initGrad := []float64{4}
	dir := []float64{-4}
	// d0 = -16, curvature requires curGrad·dir >= -14.4

	assert.True(t, cond.Evaluate(0.1, []float64{3}, 4, initGrad, dir, 0.1))
	// sufficient decrease holds but curvature fails
	assert.False(t, cond.Evaluate(0.1, []float64{4}, 4, initGrad, dir, 0.1))
}

func TestStrongWolfeEvaluate(t *testing.T) {
	cond, err := NewStrongWolfe(1e-4, 0.9)
	require.NoError(t, err)

	initGrad := []float64{4}
	dir := []float64{-4}
	// |curGrad·dir| must stay below 0.9*16 = 14.4

	assert.True(t, cond.Evaluate(0.1, []float64{3}, 4, initGrad, dir, 0.1))
	// the plain Wolfe condition would accept this ascent gradient
	assert.False(t, cond.Evaluate(0.1, []float64{-4}, 4, initGrad, dir, 0.1))
}
