package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/copyleftdev/SOLVR/internal/config"
	"github.com/copyleftdev/SOLVR/internal/logging"
	"github.com/copyleftdev/SOLVR/optimization"
	"github.com/copyleftdev/SOLVR/optimization/conjugategradient"
	"github.com/copyleftdev/SOLVR/optimization/linesearch"
	"github.com/copyleftdev/SOLVR/optimization/observers"
	"github.com/copyleftdev/SOLVR/optimization/quasinewton"
)

// rosenbrock is the classic banana-valley benchmark with its minimum
// at (1, 1).
type rosenbrock struct{}

func (rosenbrock) Cost(p []float64) (float64, error) {
	x, y := p[0], p[1]
	return (1-x)*(1-x) + 100*(y-x*x)*(y-x*x), nil
}

func (rosenbrock) Gradient(p []float64) ([]float64, error) {
	x, y := p[0], p[1]
	return []float64{
		-2*(1-x) - 400*x*(y-x*x),
		200 * (y - x*x),
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if err := runRosenbrock(ctx, cfg, logger, registry); err != nil {
		logger.Fatal("rosenbrock run failed", zap.Error(err))
	}
	if err := runLinearSystem(ctx, cfg, logger); err != nil {
		logger.Fatal("linear system run failed", zap.Error(err))
	}
}

// runRosenbrock minimizes the Rosenbrock function with L-BFGS,
// reporting progress through the logger and the metrics registry.
func runRosenbrock(ctx context.Context, cfg *config.Config, logger *zap.Logger, registry *prometheus.Registry) error {
	promObs, err := observers.NewPrometheus(registry)
	if err != nil {
		return err
	}

	solver := quasinewton.NewLBFGS(linesearch.NewBacktracking(), 7)

	exec := optimization.New(rosenbrock{}, solver).
		WithParam([]float64{-1.2, 1.0}).
		WithMaxIters(cfg.Run.MaxIters).
		AddObserver(observers.NewZap(logger), optimization.ObserveEvery(cfg.Run.ObserveEvery)).
		AddObserver(promObs, optimization.ObserveAlways())

	if cfg.Run.CheckpointDir != "" {
		checkpoint := &optimization.FileCheckpoint{
			Dir:      cfg.Run.CheckpointDir,
			Filename: "rosenbrock.json",
		}
		exec = exec.WithCheckpoint(checkpoint, cfg.Run.CheckpointEvery)
	}

	res, err := exec.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("rosenbrock result",
		zap.Float64s("best_param", res.BestParam()),
		zap.Float64("best_cost", res.BestCost()),
		zap.String("reason", res.State.Reason.String()),
	)
	return nil
}

// runLinearSystem solves a small symmetric positive definite system
// with the conjugate gradient method.
type spdSystem struct{}

func (spdSystem) Apply(p []float64) ([]float64, error) {
	return []float64{
		4*p[0] + 1*p[1],
		1*p[0] + 3*p[1],
	}, nil
}

func runLinearSystem(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	solver := conjugategradient.NewCG([]float64{1, 2})

	res, err := optimization.New(spdSystem{}, solver).
		WithParam([]float64{0, 0}).
		WithMaxIters(cfg.Run.MaxIters).
		WithTargetCost(1e-10).
		AddObserver(observers.NewZap(logger), optimization.ObserveAlways()).
		Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("linear system result",
		zap.Float64s("solution", res.BestParam()),
		zap.Float64("residual_norm", res.BestCost()),
		zap.String("reason", res.State.Reason.String()),
	)
	return nil
}
