package optimization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countdown lowers the cost by one per iteration without touching the
// problem. It exercises the driver loop in isolation.
type countdown struct {
	SolverDefaults
	start float64
}

func (countdown) Name() string { return "Countdown" }

func (c countdown) Init(_ *Evaluator, state *State) (*IterData, error) {
	return NewIterData().Cost(c.start), nil
}

func (countdown) Step(_ *Evaluator, state *State) (*IterData, error) {
	return NewIterData().Cost(state.Cost - 1).KV("delta", 1.0), nil
}

func TestExecutorRequiresInitParam(t *testing.T) {
	_, err := New(sphere{}, countdown{start: 10}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotInitialized))
}

func TestExecutorMaxItersReached(t *testing.T) {
	res, err := New(sphere{}, countdown{start: 100}).
		WithParam([]float64{0}).
		WithMaxIters(5).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, MaxItersReached, res.State.Reason)
	assert.Equal(t, uint64(5), res.State.Iter)
	assert.Equal(t, 95.0, res.State.Cost)
}

func TestExecutorTargetCostReached(t *testing.T) {
	res, err := New(sphere{}, countdown{start: 100}).
		WithParam([]float64{0}).
		WithMaxIters(1000).
		WithTargetCost(97).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TargetCostReached, res.State.Reason)
	assert.Equal(t, uint64(3), res.State.Iter)
	assert.Equal(t, 97.0, res.State.Cost)
}

func TestExecutorTracksBest(t *testing.T) {
	res, err := New(sphere{}, countdown{start: 10}).
		WithParam([]float64{1, 2}).
		WithMaxIters(4).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6.0, res.BestCost())
	assert.Equal(t, []float64{1, 2}, res.BestParam())
}

type fixedTermination struct {
	SolverDefaults
	after uint64
}

func (fixedTermination) Name() string { return "FixedTermination" }

func (fixedTermination) Step(_ *Evaluator, state *State) (*IterData, error) {
	return NewIterData().Cost(state.Cost), nil
}

func (f fixedTermination) Terminate(state *State) TerminationReason {
	if state.Iter >= f.after {
		return TargetPrecisionReached
	}
	return NotTerminated
}

func TestExecutorSolverTerminationWins(t *testing.T) {
	res, err := New(sphere{}, fixedTermination{after: 2}).
		WithParam([]float64{0}).
		WithCost(1).
		WithMaxIters(100).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TargetPrecisionReached, res.State.Reason)
	assert.Equal(t, uint64(2), res.State.Iter)
}

func TestExecutorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(sphere{}, countdown{start: 100}).
		WithParam([]float64{0}).
		Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, Aborted, res.State.Reason)
	assert.Equal(t, uint64(0), res.State.Iter)
}

func TestExecutorResumeAccumulatesElapsedTime(t *testing.T) {
	prior := NewState()
	prior.SetParam([]float64{0})
	prior.SetCost(50)
	prior.MaxIters = 5
	prior.IncrementIter()
	prior.IncrementIter()
	prior.Time = 5 * time.Second

	res, err := New(sphere{}, countdown{start: 100}).
		WithState(prior).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, MaxItersReached, res.State.Reason)
	assert.GreaterOrEqual(t, res.State.Time, 5*time.Second)
}

// recorder counts observer callbacks.
type recorder struct {
	inits, iters, finals int
	failIter             bool
}

func (r *recorder) ObserveInit(string, KV) error { r.inits++; return nil }

func (r *recorder) ObserveIter(*State, KV) error {
	r.iters++
	if r.failIter {
		return errors.New("observer backend down")
	}
	return nil
}

func (r *recorder) ObserveFinal(*State) error { r.finals++; return nil }

func TestExecutorObserverModes(t *testing.T) {
	tests := []struct {
		name      string
		mode      ObserverMode
		wantInits int
		wantIters int
	}{
		{name: "always", mode: ObserveAlways(), wantInits: 1, wantIters: 6},
		{name: "every second", mode: ObserveEvery(2), wantInits: 1, wantIters: 3},
		{name: "new best", mode: ObserveNewBest(), wantInits: 1, wantIters: 6},
		{name: "never", mode: ObserveNever(), wantInits: 0, wantIters: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			_, err := New(sphere{}, countdown{start: 10}).
				WithParam([]float64{0}).
				WithMaxIters(6).
				AddObserver(rec, tt.mode).
				Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantInits, rec.inits)
			assert.Equal(t, tt.wantIters, rec.iters)
		})
	}
}

func TestExecutorObserverErrorAborts(t *testing.T) {
	rec := &recorder{failIter: true}
	_, err := New(sphere{}, countdown{start: 10}).
		WithParam([]float64{0}).
		WithMaxIters(6).
		AddObserver(rec, ObserveAlways()).
		Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, rec.iters)
}

func TestResultStringMentionsTermination(t *testing.T) {
	res, err := New(sphere{}, countdown{start: 3}).
		WithParam([]float64{0}).
		WithMaxIters(1).
		Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.String(), "Maximum number of iterations reached")
	assert.Contains(t, res.String(), "Countdown")
}
