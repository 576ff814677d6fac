// Package codec provides remote map entry builders shared by the settings
// sections: tag label sets, empty-string-as-absent text values, and select
// option fields whose numeric values are only known from the remote schema.
package codec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/remotemap"
)

// Tags maps a local tag label list to the remote's numeric tag id array.
// Labels are stored sorted; encoding an unknown label fails loudly.
func Tags(local string, tags *[]string, ids api.NameIDs) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: "tags",
		Get:    func() any { return *tags },
		Set:    remotemap.SetStringSet(tags),
		Decode: func(v any) (any, error) {
			tagIDs, err := remotemap.AsInts(v)
			if err != nil {
				return nil, err
			}
			labels := make([]any, 0, len(tagIDs))
			for _, id := range tagIDs {
				label, ok := ids.NameOf(id)
				if !ok {
					return nil, fmt.Errorf("remote tag id %d has no known label", id)
				}
				labels = append(labels, label)
			}
			return labels, nil
		},
		Encode: func(v any) (any, error) {
			labels, ok := v.([]string)
			if !ok {
				return nil, fmt.Errorf("expected tag label list, got %T", v)
			}
			out := make([]int, 0, len(labels))
			for _, label := range labels {
				id, err := ids.ID(label)
				if err != nil {
					return nil, err
				}
				out = append(out, id)
			}
			sort.Ints(out)
			return out, nil
		},
	}
}

// OptionalText maps an optional local string to a remote text attribute where
// the empty string means unset.
func OptionalText(local, remote string, field bool, p **string) remotemap.Entry {
	return remotemap.Entry{
		Local:    local,
		Remote:   remote,
		Field:    field,
		Optional: true,
		Get: func() any {
			if *p == nil {
				return nil
			}
			return **p
		},
		Set: remotemap.SetStringPtr(p),
		Decode: func(v any) (any, error) {
			s, err := remotemap.AsString(v)
			if err != nil {
				return nil, err
			}
			if s == "" {
				return nil, nil
			}
			return s, nil
		},
		Encode: func(v any) (any, error) {
			if v == nil {
				return "", nil
			}
			return v, nil
		},
	}
}

// Text maps a local string to a remote attribute or field.
func Text(local, remote string, field bool, p *string) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: remote,
		Field:  field,
		Get:    func() any { return *p },
		Set:    remotemap.SetString(p),
	}
}

// Int maps a local int to a remote attribute or field.
func Int(local, remote string, field bool, p *int) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: remote,
		Field:  field,
		Get:    func() any { return *p },
		Set:    remotemap.SetInt(p),
	}
}

// Bool maps a local bool to a remote attribute or field.
func Bool(local, remote string, field bool, p *bool) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: remote,
		Field:  field,
		Get:    func() any { return *p },
		Set:    remotemap.SetBool(p),
	}
}

// OptionalInt maps an optional local int to a remote field with a null
// default, for values that fall back to remote-side behaviour when unset.
func OptionalInt(local, remote string, field bool, p **int) remotemap.Entry {
	return remotemap.Entry{
		Local:    local,
		Remote:   remote,
		Field:    field,
		Optional: true,
		Get: func() any {
			if *p == nil {
				return nil
			}
			return **p
		},
		Set: remotemap.SetIntPtr(p),
	}
}

// OptionalFloat maps an optional local float to a remote field with a null
// default.
func OptionalFloat(local, remote string, field bool, p **float64) remotemap.Entry {
	return remotemap.Entry{
		Local:    local,
		Remote:   remote,
		Field:    field,
		Optional: true,
		Get: func() any {
			if *p == nil {
				return nil
			}
			return **p
		},
		Set: remotemap.SetFloatPtr(p),
	}
}

// NormalizeOption canonicalizes a select option name for comparison:
// lowercased, with spaces and underscores replaced by dashes.
func NormalizeOption(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, " ", "-")
	return name
}

type selectOption struct {
	name  string
	value any
}

// selectOptions extracts the option table of a select field from a variant
// schema template.
func selectOptions(schema api.Resource, fieldName string) ([]selectOption, error) {
	fields, err := remotemap.AsSlice(schema["fields"])
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		fm, err := remotemap.AsMap(f)
		if err != nil {
			continue
		}
		if name, _ := fm["name"].(string); name != fieldName {
			continue
		}
		raw, err := remotemap.AsSlice(fm["selectOptions"])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fieldName, err)
		}
		opts := make([]selectOption, 0, len(raw))
		for _, o := range raw {
			om, err := remotemap.AsMap(o)
			if err != nil {
				return nil, err
			}
			optName, err := remotemap.AsString(om["name"])
			if err != nil {
				return nil, err
			}
			opts = append(opts, selectOption{name: optName, value: om["value"]})
		}
		return opts, nil
	}
	return nil, fmt.Errorf("field %q not present in the remote schema", fieldName)
}

// SelectDecode resolves a select field's raw value to its normalized option
// name using the schema's option table.
func SelectDecode(schema api.Resource, fieldName string, value any) (string, error) {
	opts, err := selectOptions(schema, fieldName)
	if err != nil {
		return "", err
	}
	for _, opt := range opts {
		if remotemap.LooseEqual(opt.value, value) {
			return NormalizeOption(opt.name), nil
		}
	}
	names := make([]string, 0, len(opts))
	for _, opt := range opts {
		names = append(names, fmt.Sprintf("%s (%v)", NormalizeOption(opt.name), opt.value))
	}
	return "", fmt.Errorf("unknown %s value %v, supported values: %s",
		fieldName, value, strings.Join(names, ", "))
}

// SelectEncode resolves a normalized option name to the select field's raw
// remote value.
func SelectEncode(schema api.Resource, fieldName, name string) (any, error) {
	opts, err := selectOptions(schema, fieldName)
	if err != nil {
		return nil, err
	}
	want := NormalizeOption(name)
	for _, opt := range opts {
		if NormalizeOption(opt.name) == want {
			return opt.value, nil
		}
	}
	names := make([]string, 0, len(opts))
	for _, opt := range opts {
		names = append(names, NormalizeOption(opt.name))
	}
	return nil, fmt.Errorf("unknown %s name %q, supported values: %s",
		fieldName, name, strings.Join(names, ", "))
}

// EnumEntry maps a local string to a remote field through a fixed name to
// value table, for select fields whose values are stable across instances.
func EnumEntry(local, fieldName string, p *string, values map[string]any) remotemap.Entry {
	return Enum(local, fieldName, true, p, values)
}

// Enum maps a local string to a remote attribute or field through a fixed
// name to value table.
func Enum(local, remote string, field bool, p *string, values map[string]any) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: remote,
		Field:  field,
		Get:    func() any { return *p },
		Set:    remotemap.SetString(p),
		Decode: func(v any) (any, error) {
			for name, value := range values {
				if remotemap.LooseEqual(value, v) {
					return name, nil
				}
			}
			return nil, fmt.Errorf("unknown %s value %v", remote, v)
		},
		Encode: func(v any) (any, error) {
			s, err := remotemap.AsString(v)
			if err != nil {
				return nil, err
			}
			value, ok := values[NormalizeOption(s)]
			if !ok {
				names := make([]string, 0, len(values))
				for name := range values {
					names = append(names, name)
				}
				sort.Strings(names)
				return nil, fmt.Errorf("invalid %s value %q, supported values: %s",
					local, s, strings.Join(names, ", "))
			}
			return value, nil
		},
	}
}

// SelectEntry maps a local string to a remote select field, translating
// between option names and raw values through the schema's option table.
func SelectEntry(local, fieldName string, p *string, schema api.Resource) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: fieldName,
		Field:  true,
		Get:    func() any { return *p },
		Set:    remotemap.SetString(p),
		Decode: func(v any) (any, error) {
			return SelectDecode(schema, fieldName, v)
		},
		Encode: func(v any) (any, error) {
			s, err := remotemap.AsString(v)
			if err != nil {
				return nil, err
			}
			return SelectEncode(schema, fieldName, s)
		},
	}
}
