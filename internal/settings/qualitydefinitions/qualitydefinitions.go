// Package qualitydefinitions manages per-quality file size limits. The
// remote quality set is fixed, so this section only updates existing
// definitions; definitions are keyed by the quality name, not the display
// title.
package qualitydefinitions

import (
	"context"
	"fmt"
	"sort"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/reconcile"
	"github.com/declarr/declarr/internal/remotemap"
)

const (
	kind = "quality definition"

	// Megabytes per minute at or above which preferred/max mean unlimited.
	preferredCeiling = 399
	maxCeiling       = 400
)

// Definition holds the managed size limits for one quality.
type Definition struct {
	// Title overrides the display title; empty keeps the quality name.
	Title     string   `yaml:"title"`
	Min       float64  `yaml:"min"`
	Preferred *float64 `yaml:"preferred"`
	Max       *float64 `yaml:"max"`
}

// Settings holds quality definitions keyed by quality name.
type Settings struct {
	Definitions map[string]Definition `yaml:"definitions"`
}

// Validate checks size limit consistency and normalizes ceiling values to
// unlimited.
func (s *Settings) Validate() error {
	for name, def := range s.Definitions {
		if def.Min < 0 || def.Min > preferredCeiling {
			return fmt.Errorf("quality definition %q: min %v out of range 0-%d", name, def.Min, preferredCeiling)
		}
		if def.Preferred != nil && *def.Preferred >= preferredCeiling {
			def.Preferred = nil
		}
		if def.Max != nil && *def.Max >= maxCeiling {
			def.Max = nil
		}
		if def.Max != nil {
			if *def.Max-def.Min < 1 {
				return fmt.Errorf("quality definition %q: max (%v) must be at least 1 greater than min (%v)",
					name, *def.Max, def.Min)
			}
			preferred := float64(preferredCeiling)
			if def.Preferred != nil {
				preferred = *def.Preferred
			}
			if *def.Max-preferred < 1 {
				return fmt.Errorf("quality definition %q: max (%v) must be at least 1 greater than preferred (%v)",
					name, *def.Max, preferred)
			}
		}
		s.Definitions[name] = def
	}
	return nil
}

func entries(name string, def *Definition) []remotemap.Entry {
	return []remotemap.Entry{
		{
			Local:  "title",
			Remote: "title",
			Get:    func() any { return def.Title },
			Set: func(v any) error {
				title, err := remotemap.AsString(v)
				if err != nil {
					return err
				}
				if title == name {
					title = ""
				}
				def.Title = title
				return nil
			},
			Encode: func(v any) (any, error) {
				if v == "" {
					return name, nil
				}
				return v, nil
			},
		},
		{
			Local:  "min",
			Remote: "minSize",
			Get:    func() any { return def.Min },
			Set:    remotemap.SetFloat(&def.Min),
		},
		{
			Local:    "preferred",
			Remote:   "preferredSize",
			Optional: true,
			Get:      func() any { return floatOrNil(def.Preferred) },
			Set:      remotemap.SetFloatPtr(&def.Preferred),
		},
		{
			Local:    "max",
			Remote:   "maxSize",
			Optional: true,
			Get:      func() any { return floatOrNil(def.Max) },
			Set:      remotemap.SetFloatPtr(&def.Max),
		},
	}
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// FromRemote replaces the definitions with the remote quality definition
// table.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	snapshots, err := list(ctx, env)
	if err != nil {
		return err
	}
	s.Definitions = make(map[string]Definition, len(snapshots))
	for name, snapshot := range snapshots {
		var def Definition
		if err := remotemap.DecodeAll(entries(name, &def), snapshot); err != nil {
			return fmt.Errorf("%s %q: %w", kind, name, err)
		}
		s.Definitions[name] = def
	}
	return nil
}

// UpdateRemote pushes drifted size limits. A local definition naming a
// quality the remote does not have is a configuration error.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, _ bool) (bool, error) {
	if len(s.Definitions) == 0 {
		return false, nil
	}
	snapshots, err := list(ctx, env)
	if err != nil {
		return false, err
	}

	names := make([]string, 0, len(s.Definitions))
	for name := range s.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	changed := false
	for _, name := range names {
		def := s.Definitions[name]
		snapshot, ok := snapshots[name]
		if !ok {
			return changed, fmt.Errorf("%s %q not found on the remote instance", kind, name)
		}
		drifted, payload, changes, err := remotemap.Diff(entries(name, &def), snapshot)
		if err != nil {
			return changed, fmt.Errorf("%s %q: %w", kind, name, err)
		}
		if !drifted {
			env.Report.Unchanged(kind, name)
			continue
		}
		path := fmt.Sprintf("/api/v3/qualitydefinition/%d", api.Resource(snapshot).ID())
		if err := env.Client.PutJSON(ctx, path, payload, nil); err != nil {
			return changed, fmt.Errorf("update %s %q: %w", kind, name, err)
		}
		env.Report.Updated(kind, name, changes)
		changed = true
	}
	return changed, nil
}

// DeleteRemote is a no-op: the remote quality set is fixed.
func (s *Settings) DeleteRemote(context.Context, reconcile.Env) (bool, error) {
	return false, nil
}

func list(ctx context.Context, env reconcile.Env) (map[string]remotemap.Attrs, error) {
	var resources []remotemap.Attrs
	if err := env.Client.GetJSON(ctx, "/api/v3/qualitydefinition", &resources); err != nil {
		return nil, fmt.Errorf("list quality definitions: %w", err)
	}
	out := make(map[string]remotemap.Attrs, len(resources))
	for _, res := range resources {
		quality, err := remotemap.AsMap(res["quality"])
		if err != nil {
			return nil, fmt.Errorf("quality definition missing quality object: %w", err)
		}
		name, err := remotemap.AsString(quality["name"])
		if err != nil {
			return nil, err
		}
		out[name] = res
	}
	return out, nil
}
