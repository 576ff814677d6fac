// Package customformats manages custom formats and the nested matching
// conditions inside each format's specifications list. Conditions are
// reconciled within their parent resource: the whole format is updated in one
// call when any of its conditions drift.
package customformats

import (
	"context"
	"fmt"
	"sort"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/reconcile"
	"github.com/declarr/declarr/internal/remotemap"
	"github.com/declarr/declarr/internal/settings/codec"
)

const (
	kind = "custom format"
	base = "/api/v3/customformat"
)

// CustomFormat is one managed custom format definition.
type CustomFormat struct {
	IncludeWhenRenaming       bool       `yaml:"include_when_renaming"`
	DeleteUnmanagedConditions bool       `yaml:"delete_unmanaged_conditions"`
	Conditions                Conditions `yaml:"conditions"`
}

func (f *CustomFormat) entries() []remotemap.Entry {
	return []remotemap.Entry{
		codec.Bool("include_when_renaming", "includeCustomFormatWhenRenaming", false, &f.IncludeWhenRenaming),
	}
}

// Settings holds the managed custom format definitions.
type Settings struct {
	DeleteUnmanaged bool                     `yaml:"delete_unmanaged"`
	Definitions     map[string]*CustomFormat `yaml:"definitions"`
}

// FromRemote replaces the definitions with the remote's custom formats.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	resources, err := env.Client.Collection(base).List(ctx)
	if err != nil {
		return fmt.Errorf("list custom formats: %w", err)
	}

	s.Definitions = map[string]*CustomFormat{}
	for _, res := range resources {
		format := &CustomFormat{Conditions: Conditions{}}
		if err := remotemap.DecodeAll(format.entries(), res); err != nil {
			return fmt.Errorf("%s %q: %w", kind, res.Name(), err)
		}

		specs, err := remotemap.AsSlice(res["specifications"])
		if err != nil {
			return fmt.Errorf("%s %q: %w", kind, res.Name(), err)
		}
		for _, raw := range specs {
			spec, err := remotemap.AsMap(raw)
			if err != nil {
				return fmt.Errorf("%s %q: %w", kind, res.Name(), err)
			}
			specRes := api.Resource(spec)
			cond, err := conditionRegistry.ForImplementation(specRes.Implementation())
			if err != nil {
				return fmt.Errorf("%s %q: %w", kind, res.Name(), err)
			}
			// The specification carries its own option tables, so it
			// doubles as the decode schema.
			if err := remotemap.DecodeAll(cond.remoteMap(specRes), spec); err != nil {
				return fmt.Errorf("%s %q condition %q: %w", kind, res.Name(), specRes.Name(), err)
			}
			format.Conditions[specRes.Name()] = cond
		}
		s.Definitions[res.Name()] = format
	}
	return nil
}

// UpdateRemote creates missing formats and updates drifted ones, conditions
// included.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error) {
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list custom formats: %w", err)
	}
	remote := api.ByName(resources)

	schemas, err := s.conditionSchemas(ctx, env)
	if err != nil {
		return false, err
	}

	rc := reconcile.Collection[*CustomFormat]{
		Kind:   kind,
		Local:  s.Definitions,
		Remote: remote,
		CreatePayload: func(name string, def *CustomFormat) (api.Resource, error) {
			specs, _, err := def.desiredSpecs(name, nil, schemas, env.Report)
			if err != nil {
				return nil, err
			}
			payload, err := remotemap.CreateAttrs(def.entries(), nil, name)
			if err != nil {
				return nil, err
			}
			payload["specifications"] = specs
			return payload, nil
		},
		Diff: func(name string, def *CustomFormat, snapshot api.Resource) (bool, api.Resource, []remotemap.Change, error) {
			drifted, payload, changes, err := remotemap.Diff(def.entries(), snapshot)
			if err != nil {
				return false, nil, nil, err
			}
			specs, specsChanged, err := def.desiredSpecs(name, snapshot, schemas, env.Report)
			if err != nil {
				return false, nil, nil, err
			}
			if specsChanged {
				payload["specifications"] = specs
				changes = append(changes, remotemap.Change{Local: "conditions", Old: "drifted", New: "reconciled"})
			}
			return drifted || specsChanged, payload, changes, nil
		},
	}

	changed, err := reconcile.Sync(ctx, col, rc, env.Report)
	if err != nil {
		return changed, err
	}
	if checkUnmanaged {
		reconcile.ReportUnmanaged(rc, env.Report)
	}
	return changed, nil
}

// DeleteRemote removes unmanaged custom formats when enabled.
func (s *Settings) DeleteRemote(ctx context.Context, env reconcile.Env) (bool, error) {
	if !s.DeleteUnmanaged {
		return false, nil
	}
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list custom formats: %w", err)
	}
	rc := reconcile.Collection[*CustomFormat]{
		Kind:   kind,
		Local:  s.Definitions,
		Remote: api.ByName(resources),
	}
	return reconcile.DeleteUnmanaged(ctx, col, rc, env.Report)
}

// conditionSchemas fetches the per-kind condition field templates, needed
// when any format creates a condition.
func (s *Settings) conditionSchemas(ctx context.Context, env reconcile.Env) ([]api.Resource, error) {
	needed := false
	for _, def := range s.Definitions {
		if len(def.Conditions) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}
	var schemas []api.Resource
	if err := env.Client.GetJSON(ctx, base+"/schema", &schemas); err != nil {
		return nil, fmt.Errorf("fetch custom format condition schemas: %w", err)
	}
	return schemas, nil
}

// desiredSpecs builds the full specifications list for a format: managed
// conditions updated or created, unmanaged ones kept or dropped depending on
// the per-format flag. snapshot may be nil when the format does not exist
// remotely yet.
func (f *CustomFormat) desiredSpecs(
	formatName string,
	snapshot api.Resource,
	schemas []api.Resource,
	rep reconcile.Reporter,
) ([]any, bool, error) {
	existing := map[string]remotemap.Attrs{}
	var existingOrder []string
	if snapshot != nil {
		raw, err := remotemap.AsSlice(snapshot["specifications"])
		if err != nil {
			return nil, false, err
		}
		for _, r := range raw {
			spec, err := remotemap.AsMap(r)
			if err != nil {
				return nil, false, err
			}
			name := api.Resource(spec).Name()
			existing[name] = spec
			existingOrder = append(existingOrder, name)
		}
	}

	names := make([]string, 0, len(f.Conditions))
	for name := range f.Conditions {
		names = append(names, name)
	}
	sort.Strings(names)

	var specs []any
	changed := false
	for _, name := range names {
		cond := f.Conditions[name]

		if spec, ok := existing[name]; ok {
			drifted, payload, _, err := remotemap.Diff(cond.remoteMap(api.Resource(spec)), spec)
			if err != nil {
				return nil, false, fmt.Errorf("condition %q: %w", name, err)
			}
			if drifted {
				changed = true
			}
			specs = append(specs, map[string]any(payload))
			continue
		}

		schema, err := api.SchemaFor(schemas, cond.Implementation())
		if err != nil {
			return nil, false, fmt.Errorf("condition %q: %w", name, err)
		}
		payload, err := remotemap.CreateAttrs(cond.remoteMap(schema), schema, name)
		if err != nil {
			return nil, false, fmt.Errorf("condition %q: %w", name, err)
		}
		specs = append(specs, map[string]any(payload))
		changed = true
	}

	for _, name := range existingOrder {
		if _, ok := f.Conditions[name]; ok {
			continue
		}
		if f.DeleteUnmanagedConditions {
			rep.Deleted(kind+" "+formatName+" condition", name)
			changed = true
			continue
		}
		rep.Unmanaged(kind+" "+formatName+" condition", name)
		specs = append(specs, remotemap.Clone(existing[name]))
	}

	return specs, changed, nil
}
