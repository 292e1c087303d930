package field

import (
	"strconv"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// Field is a named value supplied at group registration.
type Field struct {
	Name  string
	Value Value
}

// New pairs a field name with a value.
func New(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Spec is the registered shape of a field. It is derived once at
// registration and fixes the field's columns for the lifetime of the group.
type Spec struct {
	Name  string        `json:"name" yaml:"name"`
	Type  columnar.Type `json:"type" yaml:"type"`
	Shape Shape         `json:"shape" yaml:"shape"`
	Rows  int           `json:"rows,omitempty" yaml:"rows,omitempty"`
	Cols  int           `json:"cols,omitempty" yaml:"cols,omitempty"`
}

// SpecOf derives the spec of a field from its registration value.
func SpecOf(f Field) (Spec, error) {
	if f.Name == "" {
		return Spec{}, dlerrors.New(dlerrors.ErrorTypeSchema, "field name must not be empty")
	}
	if err := f.Value.valid(); err != nil {
		return Spec{}, dlerrors.Wrap(err, dlerrors.ErrorTypeSchema, "field \""+f.Name+"\"").
			WithDetail("field", f.Name)
	}
	return Spec{
		Name:  f.Name,
		Type:  f.Value.typ,
		Shape: f.Value.shape,
		Rows:  f.Value.rows,
		Cols:  f.Value.cols,
	}, nil
}

// Width returns the number of columns the field flattens into.
func (s Spec) Width() int {
	if s.Shape == ShapeScalar {
		return 1
	}
	return s.Rows * s.Cols
}

// Signature describes the kind and shape of the field.
func (s Spec) Signature() string {
	return signature(s.Type, s.Shape, s.Rows, s.Cols)
}

// Columns returns the flattened column specs in persisted order. Vector
// elements are suffixed _k and matrix elements _r_c, both 1-based, with the
// row index outermost.
func (s Spec) Columns() []columnar.ColumnSpec {
	switch s.Shape {
	case ShapeVector:
		cols := make([]columnar.ColumnSpec, 0, s.Rows)
		for k := 1; k <= s.Rows; k++ {
			cols = append(cols, columnar.ColumnSpec{
				Name: s.Name + "_" + strconv.Itoa(k),
				Type: s.Type,
			})
		}
		return cols
	case ShapeMatrix:
		cols := make([]columnar.ColumnSpec, 0, s.Rows*s.Cols)
		for r := 1; r <= s.Rows; r++ {
			prefix := s.Name + "_" + strconv.Itoa(r) + "_"
			for c := 1; c <= s.Cols; c++ {
				cols = append(cols, columnar.ColumnSpec{
					Name: prefix + strconv.Itoa(c),
					Type: s.Type,
				})
			}
		}
		return cols
	default:
		return []columnar.ColumnSpec{{Name: s.Name, Type: s.Type}}
	}
}

// Check validates that v matches the registered type and shape.
func (s Spec) Check(v Value) error {
	if v.typ != s.Type || v.shape != s.Shape ||
		(s.Shape != ShapeScalar && (v.rows != s.Rows || v.cols != s.Cols)) {
		return dlerrors.Newf(dlerrors.ErrorTypeSchema, "field %q: expected %s, got %s",
			s.Name, s.Signature(), v.Signature()).
			WithDetail("field", s.Name).
			WithDetail("expected", s.Signature()).
			WithDetail("actual", v.Signature())
	}
	if err := v.valid(); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeSchema, "field \""+s.Name+"\"").
			WithDetail("field", s.Name)
	}
	return nil
}
