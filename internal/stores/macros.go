package stores

import (
	"math"

	"github.com/livebridge/livebridge/internal/dawerr"
)

// Curve shapes how a macro's 0..1 input maps onto a binding's range.
type Curve string

const (
	CurveLinear      Curve = "linear"
	CurveExponential Curve = "exponential"
	CurveLogarithmic Curve = "logarithmic"
)

// MacroBinding ties one device parameter to a macro controller.
type MacroBinding struct {
	Device        DeviceRef `json:"device_ref"`
	ParameterName string    `json:"parameter_name"`
	MinOut        float64   `json:"min_out"`
	MaxOut        float64   `json:"max_out"`
	Curve         Curve     `json:"curve"`
}

// Apply maps input in [0,1] onto the binding's output range along its
// curve. Input is clamped first.
func (b MacroBinding) Apply(input float64) float64 {
	x := math.Max(0, math.Min(1, input))
	switch b.Curve {
	case CurveExponential:
		x = x * x
	case CurveLogarithmic:
		x = math.Sqrt(x)
	}
	return b.MinOut + (b.MaxOut-b.MinOut)*x
}

// MacroController fans one input out to many bindings. Mutable via update.
type MacroController struct {
	ID       string         `json:"id"`
	Bindings []MacroBinding `json:"bindings"`
}

// MacroStore keeps controllers for the process lifetime.
type MacroStore struct {
	store *memStore[MacroController]
}

// NewMacroStore creates an empty store.
func NewMacroStore() *MacroStore {
	return &MacroStore{store: newMemStore[MacroController]()}
}

// ValidCurve reports whether c is a recognized curve name.
func ValidCurve(c Curve) bool {
	switch c {
	case CurveLinear, CurveExponential, CurveLogarithmic:
		return true
	}
	return false
}

// Save stores a controller, validating its curves.
func (s *MacroStore) Save(m MacroController) error {
	for _, b := range m.Bindings {
		if !ValidCurve(b.Curve) {
			return dawerr.New(dawerr.KindInvalidInput,
				"macro %q: unknown curve %q for parameter %q", m.ID, b.Curve, b.ParameterName)
		}
	}
	m.Bindings = append([]MacroBinding{}, m.Bindings...)
	s.store.put(m.ID, m)
	return nil
}

// Get returns a copy of the controller.
func (s *MacroStore) Get(id string) (MacroController, error) {
	m, ok := s.store.get(id)
	if !ok {
		return MacroController{}, notFound("macro controller", id)
	}
	m.Bindings = append([]MacroBinding{}, m.Bindings...)
	return m, nil
}

// Delete removes a controller.
func (s *MacroStore) Delete(id string) error {
	if !s.store.delete(id) {
		return notFound("macro controller", id)
	}
	return nil
}

// IDs lists controller identifiers, sorted.
func (s *MacroStore) IDs() []string { return s.store.ids() }
