package optimization

import "gonum.org/v1/gonum/mat"

// KVPair is a single key-value observation attached to an iteration.
type KVPair struct {
	Key   string
	Value interface{}
}

// KV is an ordered list of key-value observations.
type KV []KVPair

// With appends a pair and returns the extended list.
func (kv KV) With(key string, value interface{}) KV {
	return append(kv, KVPair{Key: key, Value: value})
}

// IterData collects everything a solver wants merged into the State
// after an Init or Step call. Only values that were explicitly set are
// merged; merged values go through the State's shifting setters.
type IterData struct {
	param      []float64
	cost       float64
	costSet    bool
	grad       []float64
	hessian    *mat.Dense
	jacobian   *mat.Dense
	population [][]float64
	reason     TerminationReason
	reasonSet  bool
	kv         KV
}

// NewIterData returns an empty IterData.
func NewIterData() *IterData {
	return &IterData{}
}

// Param sets the new parameter vector.
func (d *IterData) Param(p []float64) *IterData {
	d.param = p
	return d
}

// Cost sets the new cost.
func (d *IterData) Cost(c float64) *IterData {
	d.cost = c
	d.costSet = true
	return d
}

// Grad sets the new gradient.
func (d *IterData) Grad(g []float64) *IterData {
	d.grad = g
	return d
}

// Hessian sets the new Hessian.
func (d *IterData) Hessian(h *mat.Dense) *IterData {
	d.hessian = h
	return d
}

// Jacobian sets the new Jacobian.
func (d *IterData) Jacobian(j *mat.Dense) *IterData {
	d.jacobian = j
	return d
}

// Population sets the new population.
func (d *IterData) Population(pop [][]float64) *IterData {
	d.population = pop
	return d
}

// Termination records a termination reason decided during the step.
func (d *IterData) Termination(r TerminationReason) *IterData {
	d.reason = r
	d.reasonSet = true
	return d
}

// KV attaches a key-value observation for observers.
func (d *IterData) KV(key string, value interface{}) *IterData {
	d.kv = d.kv.With(key, value)
	return d
}
