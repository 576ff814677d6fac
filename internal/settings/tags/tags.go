// Package tags manages the remote tag list. Tags carry no attributes besides
// their label, so reconciliation is create-and-delete only; they run before
// every other collection because download clients, indexers, profiles and
// notifications reference them by label.
package tags

import (
	"context"
	"fmt"
	"sort"

	"github.com/declarr/declarr/internal/reconcile"
)

const kind = "tag"

// Settings holds the managed tag labels.
type Settings struct {
	DeleteUnmanaged bool     `yaml:"delete_unmanaged"`
	Definitions     []string `yaml:"definitions"`
}

// FromRemote replaces the definitions with the labels present remotely.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	ids, err := env.Client.TagIDs(ctx)
	if err != nil {
		return err
	}
	s.Definitions = ids.Names()
	return nil
}

// UpdateRemote creates any missing tags. Existing tags have nothing to
// update. When checkUnmanaged is set, remote tags absent from the
// definitions are reported.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error) {
	ids, err := env.Client.TagIDs(ctx)
	if err != nil {
		return false, err
	}

	labels := append([]string(nil), s.Definitions...)
	sort.Strings(labels)

	changed := false
	for _, label := range labels {
		if ids.Has(label) {
			env.Report.Unchanged(kind, label)
			continue
		}
		payload := map[string]any{"label": label}
		if err := env.Client.PostJSON(ctx, "/api/v3/tag", payload, nil); err != nil {
			return changed, fmt.Errorf("create tag %q: %w", label, err)
		}
		env.Report.Created(kind, label)
		changed = true
	}

	if checkUnmanaged {
		for _, label := range ids.Names() {
			if !s.managed(label) {
				env.Report.Unmanaged(kind, label)
			}
		}
	}
	return changed, nil
}

// DeleteRemote removes remote tags the definitions do not mention, when
// unmanaged deletion is enabled. It runs after every other collection's
// delete pass so no resource still references the tags being removed.
func (s *Settings) DeleteRemote(ctx context.Context, env reconcile.Env) (bool, error) {
	if !s.DeleteUnmanaged {
		return false, nil
	}
	ids, err := env.Client.TagIDs(ctx)
	if err != nil {
		return false, err
	}

	changed := false
	for _, label := range ids.Names() {
		if s.managed(label) {
			continue
		}
		id, err := ids.ID(label)
		if err != nil {
			return changed, err
		}
		if err := env.Client.DeleteJSON(ctx, fmt.Sprintf("/api/v3/tag/%d", id)); err != nil {
			return changed, fmt.Errorf("delete tag %q: %w", label, err)
		}
		env.Report.Deleted(kind, label)
		changed = true
	}
	return changed, nil
}

func (s *Settings) managed(label string) bool {
	for _, l := range s.Definitions {
		if l == label {
			return true
		}
	}
	return false
}
