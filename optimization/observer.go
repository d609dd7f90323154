package optimization

// Observer receives snapshots of a run. Implementations must not
// mutate the state. An error returned from any method aborts the run.
type Observer interface {
	// ObserveInit is called once after solver initialization.
	ObserveInit(name string, kv KV) error
	// ObserveIter is called per iteration according to the mode the
	// observer was registered with.
	ObserveIter(state *State, kv KV) error
	// ObserveFinal is called once after the run terminates.
	ObserveFinal(state *State) error
}

type observerKind int

const (
	observeNever observerKind = iota
	observeAlways
	observeEvery
	observeNewBest
)

// ObserverMode controls how often a registered observer sees
// iterations.
type ObserverMode struct {
	kind  observerKind
	every uint64
}

// ObserveNever disables iteration observations.
func ObserveNever() ObserverMode { return ObserverMode{kind: observeNever} }

// ObserveAlways observes every iteration.
func ObserveAlways() ObserverMode { return ObserverMode{kind: observeAlways} }

// ObserveEvery observes every n-th iteration.
func ObserveEvery(n uint64) ObserverMode {
	if n == 0 {
		n = 1
	}
	return ObserverMode{kind: observeEvery, every: n}
}

// ObserveNewBest observes only iterations that found a new best
// parameter vector.
func ObserveNewBest() ObserverMode { return ObserverMode{kind: observeNewBest} }

func (m ObserverMode) wants(state *State) bool {
	switch m.kind {
	case observeAlways:
		return true
	case observeEvery:
		return state.Iter%m.every == 0
	case observeNewBest:
		return state.IsBest()
	default:
		return false
	}
}

type registeredObserver struct {
	obs  Observer
	mode ObserverMode
}
