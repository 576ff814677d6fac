package remotemap

import (
	"fmt"
	"reflect"
	"strings"
)

// DecodeAll populates local fields from a remote attribute bag by running
// every entry's resolver: root decoder first, otherwise dotted-path (or
// fields-array) lookup, the per-entry default when the attribute is optional
// and absent, then the value decoder. A required attribute that is missing
// from the bag is a fatal DecodeError.
func DecodeAll(entries []Entry, remote Attrs) error {
	for i := range entries {
		e := &entries[i]
		if e.Set == nil {
			continue
		}
		var v any
		switch {
		case e.DecodeRoot != nil:
			dv, err := e.DecodeRoot(remote)
			if err != nil {
				return &DecodeError{Local: e.Local, Remote: e.Remote, Err: err}
			}
			v = dv
		default:
			raw, ok := remoteValue(remote, e)
			if !ok {
				if !e.Optional {
					return &DecodeError{Local: e.Local, Remote: e.Remote}
				}
				raw = e.Default
			}
			v = raw
			if e.Decode != nil {
				dv, err := e.Decode(raw)
				if err != nil {
					return &DecodeError{Local: e.Local, Remote: e.Remote, Err: err}
				}
				v = dv
			}
		}
		if err := e.Set(v); err != nil {
			return &DecodeError{Local: e.Local, Remote: e.Remote, Err: err}
		}
	}
	return nil
}

// CreateAttrs builds the full remote payload for resource creation. When a
// variant schema template is given, the payload starts from a copy of it
// (minus the template's id) so that remote attributes with no local mapping
// keep their schema defaults; mapped values flagged Field are merged into the
// template's fields array by name. A mapped field absent from the template is
// a schema mismatch and fails loudly.
func CreateAttrs(entries []Entry, schema Attrs, name string) (Attrs, error) {
	var payload Attrs
	if schema != nil {
		payload = Clone(schema).(Attrs)
		delete(payload, "id")
	} else {
		payload = Attrs{}
	}
	if name != "" {
		payload["name"] = name
	}

	fieldValues := map[string]any{}
	for i := range entries {
		e := &entries[i]
		v, err := encodeEntry(e)
		if err != nil {
			return nil, err
		}
		if e.Field {
			fieldValues[e.Remote] = v
			continue
		}
		setPath(payload, e.Remote, v)
	}

	if len(fieldValues) > 0 {
		if err := mergeFields(payload, fieldValues); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// Diff compares every entry's encoded local value against the remote
// snapshot. It returns whether anything changed, the complete update payload
// (the snapshot with changed attributes replaced; remote update calls expect
// the whole object, not a patch), and the per-field change list.
func Diff(entries []Entry, snapshot Attrs) (bool, Attrs, []Change, error) {
	payload := Clone(snapshot).(Attrs)
	var changes []Change

	for i := range entries {
		e := &entries[i]
		want, err := encodeEntry(e)
		if err != nil {
			return false, nil, nil, err
		}
		current, _ := remoteValue(snapshot, e)
		equals := e.Equals
		if equals == nil {
			equals = LooseEqual
		}
		if equals(want, current) {
			continue
		}
		changes = append(changes, Change{Local: e.Local, Old: current, New: want})
		if e.Field {
			if err := mergeFields(payload, map[string]any{e.Remote: want}); err != nil {
				return false, nil, nil, err
			}
		} else {
			setPath(payload, e.Remote, want)
		}
	}
	return len(changes) > 0, payload, changes, nil
}

func encodeEntry(e *Entry) (any, error) {
	if e.EncodeRoot != nil {
		v, err := e.EncodeRoot()
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", e.Local, err)
		}
		return v, nil
	}
	var v any
	if e.Get != nil {
		v = e.Get()
	}
	if e.Encode != nil {
		ev, err := e.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", e.Local, err)
		}
		v = ev
	}
	return v, nil
}

func remoteValue(attrs Attrs, e *Entry) (any, bool) {
	if e.Field {
		return fieldValue(attrs, e.Remote)
	}
	return lookupPath(attrs, e.Remote)
}

// lookupPath resolves a dotted attribute path against nested objects.
func lookupPath(attrs Attrs, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = attrs
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath writes a value at a dotted attribute path, creating intermediate
// objects as needed.
func setPath(attrs Attrs, path string, v any) {
	parts := strings.Split(path, ".")
	m := attrs
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

// fieldValue scans the resource's fields array for an entry with the given
// name. A field present in the array but carrying no value reports absent,
// so entry defaults apply.
func fieldValue(attrs Attrs, name string) (any, bool) {
	raw, ok := attrs["fields"].([]any)
	if !ok {
		return nil, false
	}
	for _, f := range raw {
		fm, ok := f.(map[string]any)
		if !ok {
			continue
		}
		if fn, _ := fm["name"].(string); fn == name {
			v, ok := fm["value"]
			return v, ok
		}
	}
	return nil, false
}

// mergeFields writes encoded values into the payload's fields array by name.
// The array itself comes from the schema template or snapshot; a local value
// whose field is not in it means the remote schema is out of sync.
func mergeFields(payload Attrs, values map[string]any) error {
	raw, ok := payload["fields"].([]any)
	if !ok {
		return fmt.Errorf("resource has no fields array to merge %d field value(s) into", len(values))
	}
	seen := map[string]bool{}
	for _, f := range raw {
		fm, ok := f.(map[string]any)
		if !ok {
			continue
		}
		name, _ := fm["name"].(string)
		if v, ok := values[name]; ok {
			fm["value"] = v
			seen[name] = true
		}
	}
	for name := range values {
		if !seen[name] {
			return fmt.Errorf("field %q not present in the remote schema", name)
		}
	}
	return nil
}

// Clone deep-copies a JSON-shaped value (maps, slices and scalars).
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// LooseEqual compares two JSON-shaped values structurally, ignoring the
// numeric type differences introduced by JSON decoding (all remote numbers
// arrive as float64, local values are typically int).
func LooseEqual(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		for _, k := range rv.MapKeys() {
			out[fmt.Sprint(k.Interface())] = normalize(rv.MapIndex(k).Interface())
		}
		return out
	}
	return v
}
