// Package remotemap translates between typed local configuration values and
// the untyped JSON resource representation of a remote *arr instance.
//
// Each mapped field is described by an Entry: where the value lives on the
// remote (a dotted attribute path, or an entry in the dynamic "fields" array),
// how to convert it in each direction, and how to decide whether it changed.
package remotemap

import (
	"fmt"
	"sort"
)

// Attrs is a raw remote attribute bag, shaped like a decoded JSON object.
type Attrs = map[string]any

// Entry maps one local configuration field to its remote representation.
type Entry struct {
	// Local is the local field name, used in change reports and errors.
	Local string

	// Remote is the dotted path to the remote attribute
	// (e.g. "seedCriteria.seedTime"), or the exact field name when Field
	// is set.
	Remote string

	// Field indicates the value lives in the resource's "fields" array
	// (keyed by name) rather than as a top-level attribute.
	Field bool

	// Optional allows the remote attribute to be absent during decoding;
	// Default is substituted in that case. A required entry with no remote
	// value is a decode error.
	Optional bool
	Default  any

	// Get returns the current local value; Set stores a decoded value.
	Get func() any
	Set func(v any) error

	// Decode and Encode transform a single value remote→local and
	// local→remote. When nil the value passes through unchanged.
	Decode func(v any) (any, error)
	Encode func(v any) (any, error)

	// DecodeRoot supersedes path lookup and receives the entire remote
	// attribute bag; EncodeRoot produces the remote value from the whole
	// local entity (both for fields derived from multiple attributes).
	DecodeRoot func(attrs Attrs) (any, error)
	EncodeRoot func() (any, error)

	// Equals overrides the default loose structural comparison used to
	// decide whether the field changed.
	Equals func(local, remote any) bool
}

// DecodeError signals that a required remote attribute was missing or could
// not be converted. It indicates the remote schema no longer matches this
// program's assumptions and is fatal, never retried.
type DecodeError struct {
	Local  string
	Remote string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode remote attribute %q (local field %q): %v", e.Remote, e.Local, e.Err)
	}
	return fmt.Sprintf("remote attribute %q (local field %q) not present in remote resource", e.Remote, e.Local)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Change records a single field delta discovered during Diff.
type Change struct {
	Local  string
	Old    any
	New    any
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %v -> %v", c.Local, c.Old, c.New)
}

// Value setters. Remote values arrive with JSON types (float64 for all
// numbers, []any for arrays), so setters coerce rather than assert.

// SetString stores a string value; nil becomes the empty string.
func SetString(p *string) func(any) error {
	return func(v any) error {
		s, err := AsString(v)
		if err != nil {
			return err
		}
		*p = s
		return nil
	}
}

// SetStringPtr stores an optional string; nil stays nil.
func SetStringPtr(p **string) func(any) error {
	return func(v any) error {
		if v == nil {
			*p = nil
			return nil
		}
		s, err := AsString(v)
		if err != nil {
			return err
		}
		*p = &s
		return nil
	}
}

// SetInt stores an integer value.
func SetInt(p *int) func(any) error {
	return func(v any) error {
		n, err := AsInt(v)
		if err != nil {
			return err
		}
		*p = n
		return nil
	}
}

// SetIntPtr stores an optional integer; nil stays nil.
func SetIntPtr(p **int) func(any) error {
	return func(v any) error {
		if v == nil {
			*p = nil
			return nil
		}
		n, err := AsInt(v)
		if err != nil {
			return err
		}
		*p = &n
		return nil
	}
}

// SetFloat stores a float value.
func SetFloat(p *float64) func(any) error {
	return func(v any) error {
		f, err := AsFloat(v)
		if err != nil {
			return err
		}
		*p = f
		return nil
	}
}

// SetFloatPtr stores an optional float; nil stays nil.
func SetFloatPtr(p **float64) func(any) error {
	return func(v any) error {
		if v == nil {
			*p = nil
			return nil
		}
		f, err := AsFloat(v)
		if err != nil {
			return err
		}
		*p = &f
		return nil
	}
}

// SetBool stores a boolean value; nil becomes false.
func SetBool(p *bool) func(any) error {
	return func(v any) error {
		b, err := AsBool(v)
		if err != nil {
			return err
		}
		*p = b
		return nil
	}
}

// SetStrings stores a list of strings.
func SetStrings(p *[]string) func(any) error {
	return func(v any) error {
		ss, err := AsStrings(v)
		if err != nil {
			return err
		}
		*p = ss
		return nil
	}
}

// SetInts stores a list of integers.
func SetInts(p *[]int) func(any) error {
	return func(v any) error {
		ns, err := AsInts(v)
		if err != nil {
			return err
		}
		*p = ns
		return nil
	}
}

// SetIntSet stores a list of integers in sorted order, for fields whose
// remote ordering is not meaningful.
func SetIntSet(p *[]int) func(any) error {
	set := SetInts(p)
	return func(v any) error {
		if err := set(v); err != nil {
			return err
		}
		sort.Ints(*p)
		return nil
	}
}

// SetStringSet stores a list of strings in sorted order, for fields whose
// remote ordering is not meaningful.
func SetStringSet(p *[]string) func(any) error {
	set := SetStrings(p)
	return func(v any) error {
		if err := set(v); err != nil {
			return err
		}
		sort.Strings(*p)
		return nil
	}
}

// Coercions from raw JSON-decoded values.

// AsString coerces v to a string; nil yields "".
func AsString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

// AsInt coerces v to an int, accepting any JSON numeric representation.
func AsInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

// AsFloat coerces v to a float64.
func AsFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

// AsBool coerces v to a bool; nil yields false.
func AsBool(v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	}
	return false, fmt.Errorf("expected bool, got %T", v)
}

// AsSlice coerces v to a []any; nil yields an empty slice.
func AsSlice(v any) ([]any, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return s, nil
	}
	return nil, fmt.Errorf("expected array, got %T", v)
}

// AsStrings coerces v to a []string.
func AsStrings(v any) ([]string, error) {
	raw, err := AsSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, err := AsString(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// AsInts coerces v to a []int.
func AsInts(v any) ([]int, error) {
	raw, err := AsSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(raw))
	for _, e := range raw {
		n, err := AsInt(e)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// AsMap coerces v to an attribute bag.
func AsMap(v any) (Attrs, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	}
	return nil, fmt.Errorf("expected object, got %T", v)
}
