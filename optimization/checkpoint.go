package optimization

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Checkpointer persists the state of a run so it can be resumed.
type Checkpointer interface {
	Save(state *State) error
}

// FileCheckpoint writes the state as JSON to Dir/Filename.
type FileCheckpoint struct {
	// Dir is the directory the checkpoint file is written to. It is
	// created if missing.
	Dir string
	// Filename is the name of the checkpoint file.
	Filename string
}

// Save writes the state, replacing any previous checkpoint.
func (c *FileCheckpoint) Save(state *State) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return WrapError(err, "creating checkpoint directory").WithComponent("FileCheckpoint")
	}
	buf, err := json.Marshal(state)
	if err != nil {
		return WrapError(err, "encoding state").WithComponent("FileCheckpoint")
	}
	path := filepath.Join(c.Dir, c.Filename)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return WrapError(err, "writing checkpoint").WithComponent("FileCheckpoint")
	}
	return nil
}

// LoadState reads a state previously written by FileCheckpoint.
func LoadState(path string) (*State, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(err, "reading checkpoint").WithComponent("FileCheckpoint")
	}
	state := NewState()
	if err := json.Unmarshal(buf, state); err != nil {
		return nil, WrapError(err, "decoding state").WithComponent("FileCheckpoint")
	}
	return state, nil
}

// jsonFloat encodes non-finite values as string sentinels, since
// plain JSON has no representation for them. Costs start at infinity,
// so every checkpoint hits this.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"+inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	case math.IsNaN(v):
		return []byte(`"nan"`), nil
	}
	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "+inf":
			*f = jsonFloat(math.Inf(1))
		case "-inf":
			*f = jsonFloat(math.Inf(-1))
		case "nan":
			*f = jsonFloat(math.NaN())
		default:
			return PotentialBugf("unknown float sentinel %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

// matrixJSON is the serialized form of a dense matrix.
type matrixJSON struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func denseToJSON(m *mat.Dense) *matrixJSON {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return &matrixJSON{Rows: r, Cols: c, Data: data}
}

func denseFromJSON(m *matrixJSON) *mat.Dense {
	if m == nil {
		return nil
	}
	return mat.NewDense(m.Rows, m.Cols, m.Data)
}

// stateJSON mirrors State with JSON-friendly matrix fields.
type stateJSON struct {
	Param         []float64 `json:"param"`
	PrevParam     []float64 `json:"prev_param"`
	BestParam     []float64 `json:"best_param"`
	PrevBestParam []float64 `json:"prev_best_param"`

	Cost         jsonFloat `json:"cost"`
	PrevCost     jsonFloat `json:"prev_cost"`
	BestCost     jsonFloat `json:"best_cost"`
	PrevBestCost jsonFloat `json:"prev_best_cost"`
	TargetCost   jsonFloat `json:"target_cost"`

	Grad     []float64 `json:"grad"`
	PrevGrad []float64 `json:"prev_grad"`

	Hessian      *matrixJSON `json:"hessian"`
	PrevHessian  *matrixJSON `json:"prev_hessian"`
	Jacobian     *matrixJSON `json:"jacobian"`
	PrevJacobian *matrixJSON `json:"prev_jacobian"`

	Population [][]float64 `json:"population,omitempty"`

	Iter         uint64 `json:"iter"`
	LastBestIter uint64 `json:"last_best_iter"`
	MaxIters     uint64 `json:"max_iters"`

	CostFuncCount     uint64 `json:"cost_func_count"`
	GradFuncCount     uint64 `json:"grad_func_count"`
	HessianFuncCount  uint64 `json:"hessian_func_count"`
	JacobianFuncCount uint64 `json:"jacobian_func_count"`
	ModifyFuncCount   uint64 `json:"modify_func_count"`

	Time   time.Duration     `json:"time"`
	Reason TerminationReason `json:"termination_reason"`
}

// MarshalJSON encodes the state, replacing non-finite costs with
// string sentinels so the output stays valid JSON.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Param:             s.Param,
		PrevParam:         s.PrevParam,
		BestParam:         s.BestParam,
		PrevBestParam:     s.PrevBestParam,
		Cost:              jsonFloat(s.Cost),
		PrevCost:          jsonFloat(s.PrevCost),
		BestCost:          jsonFloat(s.BestCost),
		PrevBestCost:      jsonFloat(s.PrevBestCost),
		TargetCost:        jsonFloat(s.TargetCost),
		Grad:              s.Grad,
		PrevGrad:          s.PrevGrad,
		Hessian:           denseToJSON(s.Hessian),
		PrevHessian:       denseToJSON(s.PrevHessian),
		Jacobian:          denseToJSON(s.Jacobian),
		PrevJacobian:      denseToJSON(s.PrevJacobian),
		Population:        s.Population,
		Iter:              s.Iter,
		LastBestIter:      s.LastBestIter,
		MaxIters:          s.MaxIters,
		CostFuncCount:     s.CostFuncCount,
		GradFuncCount:     s.GradFuncCount,
		HessianFuncCount:  s.HessianFuncCount,
		JacobianFuncCount: s.JacobianFuncCount,
		ModifyFuncCount:   s.ModifyFuncCount,
		Time:              s.Time,
		Reason:            s.Reason,
	})
}

// UnmarshalJSON decodes a state written by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var j stateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	s.Param = j.Param
	s.PrevParam = j.PrevParam
	s.BestParam = j.BestParam
	s.PrevBestParam = j.PrevBestParam
	s.Cost = float64(j.Cost)
	s.PrevCost = float64(j.PrevCost)
	s.BestCost = float64(j.BestCost)
	s.PrevBestCost = float64(j.PrevBestCost)
	s.TargetCost = float64(j.TargetCost)
	s.Grad = j.Grad
	s.PrevGrad = j.PrevGrad
	s.Hessian = denseFromJSON(j.Hessian)
	s.PrevHessian = denseFromJSON(j.PrevHessian)
	s.Jacobian = denseFromJSON(j.Jacobian)
	s.PrevJacobian = denseFromJSON(j.PrevJacobian)
	s.Population = j.Population
	s.Iter = j.Iter
	s.LastBestIter = j.LastBestIter
	s.MaxIters = j.MaxIters
	s.CostFuncCount = j.CostFuncCount
	s.GradFuncCount = j.GradFuncCount
	s.HessianFuncCount = j.HessianFuncCount
	s.JacobianFuncCount = j.JacobianFuncCount
	s.ModifyFuncCount = j.ModifyFuncCount
	s.Time = j.Time
	s.Reason = j.Reason
	return nil
}
