package observers

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/SOLVR/optimization"
)

// Prometheus exports run progress as prometheus metrics, labeled by
// solver name. One observer instance tracks one run at a time.
type Prometheus struct {
	solver string

	cost       *prometheus.GaugeVec
	bestCost   *prometheus.GaugeVec
	iterations *prometheus.CounterVec
	evals      *prometheus.GaugeVec
}

// NewPrometheus returns an observer registering its collectors on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	o := &Prometheus{
		cost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "solvr",
			Name:      "cost",
			Help:      "Cost at the latest observed iteration.",
		}, []string{"solver"}),
		bestCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "solvr",
			Name:      "best_cost",
			Help:      "Best cost found so far.",
		}, []string{"solver"}),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solvr",
			Name:      "iterations_total",
			Help:      "Observed iterations.",
		}, []string{"solver"}),
		evals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "solvr",
			Name:      "evaluations",
			Help:      "Cumulative problem evaluations by kind.",
		}, []string{"solver", "kind"}),
	}

	for _, c := range []prometheus.Collector{o.cost, o.bestCost, o.iterations, o.evals} {
		if err := reg.Register(c); err != nil {
			return nil, optimization.WrapError(err, "registering collector").
				WithComponent("PrometheusObserver")
		}
	}
	return o, nil
}

// ObserveInit records the solver name used as metric label.
func (o *Prometheus) ObserveInit(name string, kv optimization.KV) error {
	o.solver = name
	return nil
}

// ObserveIter updates the gauges and counters for one iteration.
func (o *Prometheus) ObserveIter(state *optimization.State, kv optimization.KV) error {
	o.cost.WithLabelValues(o.solver).Set(state.Cost)
	o.bestCost.WithLabelValues(o.solver).Set(state.BestCost)
	o.iterations.WithLabelValues(o.solver).Inc()

	o.evals.WithLabelValues(o.solver, "cost").Set(float64(state.CostFuncCount))
	o.evals.WithLabelValues(o.solver, "gradient").Set(float64(state.GradFuncCount))
	o.evals.WithLabelValues(o.solver, "hessian").Set(float64(state.HessianFuncCount))
	o.evals.WithLabelValues(o.solver, "jacobian").Set(float64(state.JacobianFuncCount))
	o.evals.WithLabelValues(o.solver, "modify").Set(float64(state.ModifyFuncCount))
	return nil
}

// ObserveFinal pins the gauges to the final result.
func (o *Prometheus) ObserveFinal(state *optimization.State) error {
	o.cost.WithLabelValues(o.solver).Set(state.Cost)
	o.bestCost.WithLabelValues(o.solver).Set(state.BestCost)
	return nil
}
