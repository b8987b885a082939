package gpbo

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

//////
// Const, vars, types.
//////

// ParamSpec declares one kernel hyperparameter.
//
// Fields:
// - Name: Unique name within the kernel (e.g. "length_scale")
// - Default: Value used when the caller has no better starting point
// - Lower, Upper: Inclusive bounds enforced after every fit
//
// A parameter with Lower > 0 is strictly positive and is searched in log
// space by the fitter.
type ParamSpec struct {
	Name    string
	Default float64
	Lower   float64
	Upper   float64
}

// ParamSchema is the ordered list of a kernel's hyperparameters. The order is
// the order of the flat vector handed to Kernel.Cov and to the optimizer.
type ParamSchema []ParamSpec

// Params is a complete, ordered binding of values to a ParamSchema. The zero
// value is empty and matches no kernel.
type Params struct {
	schema ParamSchema
	values []float64
}

//////
// ParamSchema methods.
//////

// Index returns the name→position map used to move between named parameters
// and the optimizer's flat vector.
func (s ParamSchema) Index() map[string]int {
	idx := make(map[string]int, len(s))
	for i, p := range s {
		idx[p.Name] = i
	}

	return idx
}

// Names returns parameter names in schema order.
func (s ParamSchema) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}

	return names
}

// Defaults binds every parameter to its declared default.
func (s ParamSchema) Defaults() Params {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Default
	}

	return Params{schema: s, values: values}
}

// Bind builds Params from a name→value map.
//
// Every parameter of the schema must be present and no other name is
// allowed: partial specification is rejected rather than silently filled.
//
// Usage example:
//
//	p, err := RBF{}.Schema().Bind(map[string]float64{
//	    "length_scale": 0.5,
//	    "sigma_f":      1.0,
//	})
func (s ParamSchema) Bind(values map[string]float64) (Params, error) {
	if len(values) != len(s) {
		return Params{}, fmt.Errorf("Bind: got %d parameters %v, want %v: %w",
			len(values), sortedKeys(values), s.Names(), ErrParamMismatch)
	}

	idx := s.Index()
	out := make([]float64, len(s))

	// Same count and no unknown name means every parameter is present.
	for name, v := range values {
		i, ok := idx[name]
		if !ok {
			return Params{}, fmt.Errorf("Bind: unknown parameter %q, want %v: %w", name, s.Names(), ErrParamMismatch)
		}

		out[i] = v
	}

	return NewParams(s, out...)
}

// equal reports whether two schemas declare the same names in the same order.
func (s ParamSchema) equal(o ParamSchema) bool {
	if len(s) != len(o) {
		return false
	}

	for i := range s {
		if s[i].Name != o[i].Name {
			return false
		}
	}

	return true
}

// clamp returns v limited to the bounds of parameter i.
func (s ParamSchema) clamp(i int, v float64) float64 {
	return math.Min(math.Max(v, s[i].Lower), s[i].Upper)
}

//////
// Params methods.
//////

// NewParams binds values, in schema order, to schema.
//
// Returns ErrParamMismatch for a wrong value count and ErrInvalidArgument
// for NaN or a value outside the parameter's [Lower, Upper] bounds.
func NewParams(schema ParamSchema, values ...float64) (Params, error) {
	if len(values) != len(schema) {
		return Params{}, fmt.Errorf("NewParams: got %d values for %v: %w", len(values), schema.Names(), ErrParamMismatch)
	}

	for i, v := range values {
		if math.IsNaN(v) {
			return Params{}, fmt.Errorf("NewParams: %s is NaN: %w", schema[i].Name, ErrInvalidArgument)
		}

		if v < schema[i].Lower || v > schema[i].Upper {
			return Params{}, fmt.Errorf("NewParams: %s=%g outside [%g, %g]: %w",
				schema[i].Name, v, schema[i].Lower, schema[i].Upper, ErrInvalidArgument)
		}
	}

	vals := make([]float64, len(values))
	copy(vals, values)

	return Params{schema: schema, values: vals}, nil
}

// Schema returns the schema the values are bound to.
func (p Params) Schema() ParamSchema { return p.schema }

// Values returns a copy of the values in schema order.
func (p Params) Values() []float64 {
	out := make([]float64, len(p.values))
	copy(out, p.values)

	return out
}

// Get returns the named value and whether it exists.
func (p Params) Get(name string) (float64, bool) {
	for i, s := range p.schema {
		if s.Name == name {
			return p.values[i], true
		}
	}

	return 0, false
}

// Map returns the values keyed by name.
func (p Params) Map() map[string]float64 {
	m := make(map[string]float64, len(p.values))
	for i, s := range p.schema {
		m[s.Name] = p.values[i]
	}

	return m
}

// Len returns the number of bound parameters.
func (p Params) Len() int { return len(p.values) }

func (p Params) String() string {
	parts := make([]string, len(p.values))
	for i, s := range p.schema {
		parts[i] = fmt.Sprintf("%s=%g", s.Name, p.values[i])
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

// checkSchema returns the raw value vector if p is bound to k's schema.
func (p Params) checkSchema(k Kernel) ([]float64, error) {
	if !p.schema.equal(k.Schema()) {
		return nil, fmt.Errorf("%s: parameters %v, want %v: %w", k.Name(), p.schema.Names(), k.Schema().Names(), ErrParamMismatch)
	}

	return p.values, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
