// Package schema holds the group registry of the data logger. A group's
// schema is derived once, at registration, from the fields supplied, and is
// closed from then on.
package schema

import (
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/columnar"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/field"
)

// Handle identifies a registered group. Handles are dense indexes in
// registration order and are only meaningful to the registry that issued
// them.
type Handle int

// Group is the immutable schema of one group
type Group struct {
	Name        string
	Fields      []field.Spec
	Columns     []columnar.ColumnSpec
	Fingerprint string

	// offsets[i] is the index of the first column of Fields[i]
	offsets []int
}

// Offset returns the first column index of field i.
func (g *Group) Offset(i int) int { return g.offsets[i] }

// Validate checks that values match the group's fields in arity, type and
// shape.
func (g *Group) Validate(values []field.Value) error {
	if len(values) != len(g.Fields) {
		return dlerrors.Newf(dlerrors.ErrorTypeSchema, "group %q: expected %d values, got %d",
			g.Name, len(g.Fields), len(values)).
			WithDetail("group", g.Name).
			WithDetail("expected", len(g.Fields)).
			WithDetail("actual", len(values))
	}
	for i, spec := range g.Fields {
		if err := spec.Check(values[i]); err != nil {
			return dlerrors.Wrap(err, dlerrors.ErrorTypeSchema, "group \""+g.Name+"\"").
				WithDetail("group", g.Name).
				WithDetail("position", i)
		}
	}
	return nil
}

// Registry maps group names to their schemas
type Registry struct {
	mu     sync.RWMutex
	groups []*Group
	byName map[string]Handle
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byName: make(map[string]Handle),
		logger: logger,
	}
}

// ValidateGroupName rejects names that cannot be used as an artifact file
// name inside the run directory.
func ValidateGroupName(name string) error {
	switch {
	case name == "":
		return dlerrors.New(dlerrors.ErrorTypeSchema, "group name must not be empty")
	case name == "." || name == "..":
		return dlerrors.Newf(dlerrors.ErrorTypeSchema, "invalid group name %q", name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return dlerrors.Newf(dlerrors.ErrorTypeSchema, "group name %q contains a path separator", name)
	}
	return nil
}

// Build derives a group schema without registering it.
func Build(name string, fields ...field.Field) (*Group, error) {
	if err := ValidateGroupName(name); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, dlerrors.Newf(dlerrors.ErrorTypeSchema, "group %q has no fields", name).
			WithDetail("group", name)
	}

	g := &Group{
		Name:    name,
		Fields:  make([]field.Spec, 0, len(fields)),
		offsets: make([]int, 0, len(fields)),
	}
	fieldNames := make(map[string]struct{}, len(fields))
	columnOwner := make(map[string]string)

	for _, f := range fields {
		spec, err := field.SpecOf(f)
		if err != nil {
			return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeSchema, "group \""+name+"\"").
				WithDetail("group", name)
		}
		if _, dup := fieldNames[spec.Name]; dup {
			return nil, dlerrors.Newf(dlerrors.ErrorTypeSchema, "group %q: duplicate field %q", name, spec.Name).
				WithDetail("group", name).
				WithDetail("field", spec.Name)
		}
		fieldNames[spec.Name] = struct{}{}

		g.offsets = append(g.offsets, len(g.Columns))
		for _, col := range spec.Columns() {
			if owner, clash := columnOwner[col.Name]; clash {
				return nil, dlerrors.Newf(dlerrors.ErrorTypeSchema,
					"group %q: column %q of field %q collides with field %q", name, col.Name, spec.Name, owner).
					WithDetail("group", name).
					WithDetail("column", col.Name)
			}
			columnOwner[col.Name] = spec.Name
			g.Columns = append(g.Columns, col)
		}
		g.Fields = append(g.Fields, spec)
	}

	g.Fingerprint = Fingerprint(g.Columns)
	return g, nil
}

// Fingerprint hashes the ordered column names and types.
func Fingerprint(cols []columnar.ColumnSpec) string {
	d := xxhash.New()
	for _, c := range cols {
		_, _ = d.WriteString(c.Name)
		_, _ = d.Write([]byte{0, byte(c.Type), 0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// Register derives and stores the schema of a new group. Registering a name
// twice is an error.
func (r *Registry) Register(name string, fields ...field.Field) (Handle, *Group, error) {
	g, err := Build(name, fields...)
	if err != nil {
		return -1, nil, err
	}
	h, err := r.Add(g)
	if err != nil {
		return -1, nil, err
	}
	return h, g, nil
}

// Add stores a schema produced by Build.
func (r *Registry) Add(g *Group) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[g.Name]; exists {
		return -1, dlerrors.Newf(dlerrors.ErrorTypeSchema, "group %q already registered", g.Name).
			WithDetail("group", g.Name)
	}
	h := Handle(len(r.groups))
	r.groups = append(r.groups, g)
	r.byName[g.Name] = h

	r.logger.Debug("group registered",
		zap.String("group", g.Name),
		zap.Int("fields", len(g.Fields)),
		zap.Int("columns", len(g.Columns)),
		zap.String("fingerprint", g.Fingerprint))

	return h, nil
}

// Resolve returns the schema behind a handle.
func (r *Registry) Resolve(h Handle) (*Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h < 0 || int(h) >= len(r.groups) {
		return nil, dlerrors.Newf(dlerrors.ErrorTypeNotFound, "unknown group handle %d", int(h))
	}
	return r.groups[h], nil
}

// Lookup returns the handle and schema registered under name.
func (r *Registry) Lookup(name string) (Handle, *Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byName[name]
	if !ok {
		return -1, nil, false
	}
	return h, r.groups[h], true
}

// Groups returns all schemas in registration order.
func (r *Registry) Groups() []*Group {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Group, len(r.groups))
	copy(out, r.groups)
	return out
}

// Len returns the number of registered groups.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}
