package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// ParameterTree is the hierarchical parameter store a logger can be
// configured from. Paths are dot separated, e.g. "datalogger.allowed_buffer_size".
type ParameterTree interface {
	// Get returns the value at path and whether it is set.
	Get(path string) (any, bool)
	// Set stores value at path.
	Set(path string, value any) error
	// LoadFromFile merges the parameter file
	// <root>/<packageName>/config/<fileName> into the tree.
	LoadFromFile(packageName, fileName string) error
}

// Tree is a viper-backed ParameterTree. Sub returns views of the same
// underlying store rooted at a child path.
type Tree struct {
	v      *viper.Viper
	root   string
	prefix string
}

var _ ParameterTree = (*Tree)(nil)

// NewTree creates an empty tree. root is the directory package parameter
// files are resolved against.
func NewTree(root string) *Tree {
	return &Tree{v: viper.New(), root: root}
}

// Sub returns the subtree at name. Writes through the subtree are visible
// from its parent.
func (t *Tree) Sub(name string) *Tree {
	return &Tree{v: t.v, root: t.root, prefix: t.key(name)}
}

// Prefix returns the path of the subtree, "" for the root.
func (t *Tree) Prefix() string {
	return t.prefix
}

func (t *Tree) key(path string) string {
	path = strings.ToLower(strings.Trim(path, "."))
	if t.prefix == "" {
		return path
	}
	if path == "" {
		return t.prefix
	}
	return t.prefix + "." + path
}

// Get implements ParameterTree.
func (t *Tree) Get(path string) (any, bool) {
	k := t.key(path)
	if !t.v.IsSet(k) {
		return nil, false
	}
	return t.v.Get(k), true
}

// Set implements ParameterTree.
func (t *Tree) Set(path string, value any) error {
	k := t.key(path)
	if k == "" {
		return dlerrors.New(dlerrors.ErrorTypeConfig, "parameter path is empty")
	}
	t.v.Set(k, value)
	return nil
}

// GetString returns the value at path as a string, or "" when unset.
func (t *Tree) GetString(path string) string {
	return t.v.GetString(t.key(path))
}

// GetInt64 returns the value at path as an int64, or 0 when unset.
func (t *Tree) GetInt64(path string) int64 {
	return t.v.GetInt64(t.key(path))
}

// GetBool returns the value at path as a bool, or false when unset.
func (t *Tree) GetBool(path string) bool {
	return t.v.GetBool(t.key(path))
}

// Keys lists every leaf path below the tree, relative to it.
func (t *Tree) Keys() []string {
	var keys []string
	for _, k := range t.v.AllKeys() {
		switch {
		case t.prefix == "":
			keys = append(keys, k)
		case strings.HasPrefix(k, t.prefix+"."):
			keys = append(keys, strings.TrimPrefix(k, t.prefix+"."))
		}
	}
	return keys
}

// PackageFile returns the path LoadFromFile reads for the given package.
func (t *Tree) PackageFile(packageName, fileName string) string {
	return filepath.Join(t.root, packageName, "config", fileName)
}

// LoadFromFile implements ParameterTree. Keys of the file land below the
// tree's prefix.
func (t *Tree) LoadFromFile(packageName, fileName string) error {
	path := t.PackageFile(packageName, fileName)
	data, err := os.ReadFile(path) //nolint:gosec // G304: resolved from the parameter root
	if err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "failed to read parameter file").
			WithDetail("path", path)
	}

	file := viper.New()
	file.SetConfigType(configType(path))
	if err := file.ReadConfig(bytes.NewReader([]byte(substituteEnvVars(string(data))))); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeConfig, "failed to parse parameter file").
			WithDetail("path", path)
	}

	for _, k := range file.AllKeys() {
		t.v.Set(t.key(k), file.Get(k))
	}
	return nil
}
