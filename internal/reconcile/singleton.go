package reconcile

import (
	"context"
	"fmt"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/remotemap"
)

// DecodeSingleton populates local fields from a single config resource, such
// as the naming or UI config.
func DecodeSingleton(ctx context.Context, env Env, kind, path string, entries []remotemap.Entry) error {
	var res api.Resource
	if err := env.Client.GetJSON(ctx, path, &res); err != nil {
		return fmt.Errorf("fetch %s: %w", kind, err)
	}
	if err := remotemap.DecodeAll(entries, res); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

// SyncSingleton updates a single config resource in place when any mapped
// value drifted. Singletons are never created or deleted; the update replaces
// the whole object at its own id.
func SyncSingleton(ctx context.Context, env Env, kind, path string, entries []remotemap.Entry) (bool, error) {
	var res api.Resource
	if err := env.Client.GetJSON(ctx, path, &res); err != nil {
		return false, fmt.Errorf("fetch %s: %w", kind, err)
	}

	drifted, payload, changes, err := remotemap.Diff(entries, res)
	if err != nil {
		return false, fmt.Errorf("%s: %w", kind, err)
	}
	if !drifted {
		env.Report.Unchanged(kind, "config")
		return false, nil
	}

	if err := env.Client.PutJSON(ctx, fmt.Sprintf("%s/%d", path, res.ID()), payload, nil); err != nil {
		return false, fmt.Errorf("update %s: %w", kind, err)
	}
	env.Report.Updated(kind, "config", changes)
	return true, nil
}
