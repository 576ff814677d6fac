// Package reconcile drives named remote resource collections toward their
// local definitions: create what is missing, update what drifted, and
// (optionally) delete what the configuration no longer mentions.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/remotemap"
)

// Env bundles what every settings section needs to reconcile: the API
// client, a logger, and the reporter outcomes are emitted through.
type Env struct {
	Client *api.Client
	Log    *slog.Logger
	Report Reporter
}

// Service is the remote side of a collection. *api.Collection satisfies it.
type Service interface {
	Create(ctx context.Context, res api.Resource) (api.Resource, error)
	Update(ctx context.Context, id int, res api.Resource) (api.Resource, error)
	Delete(ctx context.Context, id int) error
}

// Collection describes one local collection to reconcile. Local definitions
// and remote snapshots are both keyed by name, the sole correlation key.
type Collection[T any] struct {
	// Kind names the collection in reports ("download client", ...).
	Kind string

	Local  map[string]T
	Remote map[string]api.Resource

	// CreatePayload builds the full creation payload for a definition that
	// has no remote counterpart.
	CreatePayload func(name string, def T) (api.Resource, error)

	// Diff compares a definition against its remote snapshot, returning
	// whether it drifted, the full update payload, and the field changes.
	Diff func(name string, def T, snapshot api.Resource) (bool, api.Resource, []remotemap.Change, error)
}

// Sync creates missing resources and updates drifted ones, in name order for
// deterministic runs. It reports whether anything was written.
func Sync[T any](ctx context.Context, svc Service, col Collection[T], rep Reporter) (bool, error) {
	names := make([]string, 0, len(col.Local))
	for name := range col.Local {
		names = append(names, name)
	}
	sort.Strings(names)

	changed := false
	for _, name := range names {
		def := col.Local[name]

		snapshot, exists := col.Remote[name]
		if !exists {
			payload, err := col.CreatePayload(name, def)
			if err != nil {
				return changed, fmt.Errorf("%s %q: %w", col.Kind, name, err)
			}
			if _, err := svc.Create(ctx, payload); err != nil {
				return changed, fmt.Errorf("create %s %q: %w", col.Kind, name, err)
			}
			rep.Created(col.Kind, name)
			changed = true
			continue
		}

		drifted, payload, changes, err := col.Diff(name, def, snapshot)
		if err != nil {
			return changed, fmt.Errorf("%s %q: %w", col.Kind, name, err)
		}
		if !drifted {
			rep.Unchanged(col.Kind, name)
			continue
		}
		if _, err := svc.Update(ctx, snapshot.ID(), payload); err != nil {
			return changed, fmt.Errorf("update %s %q: %w", col.Kind, name, err)
		}
		rep.Updated(col.Kind, name, changes)
		changed = true
	}
	return changed, nil
}

// ReportUnmanaged reports every remote resource the local configuration does
// not mention. Used during update runs when unmanaged checking is enabled.
func ReportUnmanaged[T any](col Collection[T], rep Reporter) {
	for _, name := range unmanagedNames(col.Local, col.Remote) {
		rep.Unmanaged(col.Kind, name)
	}
}

// DeleteUnmanaged removes remote resources absent from the local definitions.
// It runs as a separate pass after all collections have been synced, so that
// nothing still referenced gets removed out from under a dependent resource.
func DeleteUnmanaged[T any](ctx context.Context, svc Service, col Collection[T], rep Reporter) (bool, error) {
	changed := false
	for _, name := range unmanagedNames(col.Local, col.Remote) {
		if err := svc.Delete(ctx, col.Remote[name].ID()); err != nil {
			return changed, fmt.Errorf("delete %s %q: %w", col.Kind, name, err)
		}
		rep.Deleted(col.Kind, name)
		changed = true
	}
	return changed, nil
}

func unmanagedNames[T any](local map[string]T, remote map[string]api.Resource) []string {
	var names []string
	for name := range remote {
		if _, ok := local[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
