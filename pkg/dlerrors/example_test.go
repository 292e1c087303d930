package dlerrors_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := dlerrors.New(dlerrors.ErrorTypeSchema, "group \"base\" already registered").
		WithDetail("group", "base")

	fmt.Println(err.Error())

	// Output:
	// schema: group "base" already registered
}

// ExampleWrap shows how IO failures keep their cause.
func ExampleWrap() {
	err := dlerrors.Wrap(fs.ErrPermission, dlerrors.ErrorTypeIO, "failed to create run directory").
		WithDetail("path", "/readonly/run")

	fmt.Println(err.Error())
	fmt.Println(errors.Is(err, fs.ErrPermission))
	fmt.Println(dlerrors.IsFatal(err))

	// Output:
	// io: failed to create run directory: permission denied
	// true
	// true
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, dlerrors.Wrap(nil, dlerrors.ErrorTypeIO, "nothing"))
}

func TestWrapPreservesStack(t *testing.T) {
	inner := dlerrors.New(dlerrors.ErrorTypeRead, "bad frame")
	outer := dlerrors.Wrap(inner, dlerrors.ErrorTypeRead, "group \"g\"")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, errors.Is(outer, inner))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, dlerrors.ErrorTypeState, dlerrors.TypeOf(dlerrors.New(dlerrors.ErrorTypeState, "closed")))
	assert.Equal(t, dlerrors.ErrorType(""), dlerrors.TypeOf(errors.New("plain")))
	assert.False(t, dlerrors.IsType(errors.New("plain"), dlerrors.ErrorTypeSchema))
}

func TestNewfAndDetails(t *testing.T) {
	err := dlerrors.Newf(dlerrors.ErrorTypeSchema, "expected %d values, got %d", 3, 2).
		WithDetail("expected", 3).
		WithDetail("actual", 2)

	assert.Equal(t, "schema: expected 3 values, got 2", err.Error())
	assert.Equal(t, 3, err.Details["expected"])
	assert.NotEmpty(t, err.Stack)
	assert.False(t, dlerrors.IsFatal(err))
}
