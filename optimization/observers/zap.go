// Package observers provides ready-made observers for logging and
// metrics export of optimization runs.
package observers

import (
	"go.uber.org/zap"

	"github.com/copyleftdev/SOLVR/optimization"
)

// Zap logs run progress through a structured zap logger. Iteration
// records carry the cost, the best cost so far, the evaluation
// counters and any key-value pairs the solver attached.
type Zap struct {
	logger *zap.Logger
}

// NewZap returns an observer writing to the given logger.
func NewZap(logger *zap.Logger) *Zap {
	return &Zap{logger: logger}
}

// ObserveInit logs the solver name and its initial observations.
func (o *Zap) ObserveInit(name string, kv optimization.KV) error {
	fields := append([]zap.Field{zap.String("solver", name)}, kvFields(kv)...)
	o.logger.Info("solver initialized", fields...)
	return nil
}

// ObserveIter logs one iteration snapshot.
func (o *Zap) ObserveIter(state *optimization.State, kv optimization.KV) error {
	fields := []zap.Field{
		zap.Uint64("iter", state.Iter),
		zap.Float64("cost", state.Cost),
		zap.Float64("best_cost", state.BestCost),
		zap.Uint64("cost_count", state.CostFuncCount),
		zap.Uint64("gradient_count", state.GradFuncCount),
		zap.Uint64("hessian_count", state.HessianFuncCount),
		zap.Uint64("jacobian_count", state.JacobianFuncCount),
	}
	fields = append(fields, kvFields(kv)...)
	o.logger.Info("iteration", fields...)
	return nil
}

// ObserveFinal logs the termination reason and the result summary.
func (o *Zap) ObserveFinal(state *optimization.State) error {
	o.logger.Info("run finished",
		zap.String("reason", state.Reason.String()),
		zap.Uint64("iters", state.Iter),
		zap.Float64("best_cost", state.BestCost),
		zap.Duration("elapsed", state.Time),
	)
	return nil
}

func kvFields(kv optimization.KV) []zap.Field {
	fields := make([]zap.Field, 0, len(kv))
	for _, p := range kv {
		fields = append(fields, zap.Any(p.Key, p.Value))
	}
	return fields
}
