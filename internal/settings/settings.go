// Package settings aggregates the per-section configuration and drives the
// sections in dependency order: resources that reference others by name
// (tags, download clients, qualities, custom formats) are reconciled before
// the resources referencing them, and the unmanaged-deletion pass runs in the
// exact reverse order.
package settings

import (
	"context"
	"fmt"
	"sort"

	"github.com/declarr/declarr/internal/reconcile"
	"github.com/declarr/declarr/internal/settings/customformats"
	"github.com/declarr/declarr/internal/settings/downloadclients"
	"github.com/declarr/declarr/internal/settings/indexers"
	"github.com/declarr/declarr/internal/settings/mediamanagement"
	"github.com/declarr/declarr/internal/settings/notifications"
	"github.com/declarr/declarr/internal/settings/profiles"
	"github.com/declarr/declarr/internal/settings/qualitydefinitions"
	"github.com/declarr/declarr/internal/settings/tags"
	"github.com/declarr/declarr/internal/settings/ui"
)

// Settings is the full declarative configuration for one instance.
type Settings struct {
	Tags            tags.Settings               `yaml:"tags"`
	Quality         qualitydefinitions.Settings `yaml:"quality"`
	DownloadClients downloadclients.Settings    `yaml:"download_clients"`
	Indexers        indexers.Settings           `yaml:"indexers"`
	QualityProfiles profiles.Settings           `yaml:"quality_profiles"`
	CustomFormats   customformats.Settings      `yaml:"custom_formats"`
	MediaManagement mediamanagement.Settings    `yaml:"media_management"`
	Notifications   notifications.Settings      `yaml:"notifications"`
	UI              ui.Settings                 `yaml:"ui"`
}

// New returns settings carrying the remote's shipped defaults, ready to be
// overlaid by a parsed configuration file.
func New() Settings {
	return Settings{
		MediaManagement: mediamanagement.Defaults(),
		UI:              ui.Defaults(),
	}
}

// Validate checks every section's local invariants before anything touches
// the remote.
func (s *Settings) Validate() error {
	if err := s.Quality.Validate(); err != nil {
		return fmt.Errorf("quality: %w", err)
	}
	if err := s.QualityProfiles.Validate(); err != nil {
		return fmt.Errorf("quality_profiles: %w", err)
	}
	if err := s.MediaManagement.Validate(); err != nil {
		return fmt.Errorf("media_management: %w", err)
	}
	if err := s.UI.Validate(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

// section is one reconcilable configuration area and its ordering
// constraints.
type section struct {
	name     string
	runAfter []string

	fromRemote func(ctx context.Context, env reconcile.Env) error
	update     func(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error)
	delete     func(ctx context.Context, env reconcile.Env) (bool, error)
}

func (s *Settings) sections() []section {
	return []section{
		{
			name:       "tags",
			fromRemote: s.Tags.FromRemote,
			update:     s.Tags.UpdateRemote,
			delete:     s.Tags.DeleteRemote,
		},
		{
			name:       "quality",
			fromRemote: s.Quality.FromRemote,
			update:     s.Quality.UpdateRemote,
			delete:     s.Quality.DeleteRemote,
		},
		{
			name:       "media_management",
			fromRemote: s.MediaManagement.FromRemote,
			update:     s.MediaManagement.UpdateRemote,
			delete:     s.MediaManagement.DeleteRemote,
		},
		{
			name:       "ui",
			fromRemote: s.UI.FromRemote,
			update:     s.UI.UpdateRemote,
			delete:     s.UI.DeleteRemote,
		},
		{
			name:       "download_clients",
			runAfter:   []string{"tags"},
			fromRemote: s.DownloadClients.FromRemote,
			update:     s.DownloadClients.UpdateRemote,
			delete:     s.DownloadClients.DeleteRemote,
		},
		{
			name:       "indexers",
			runAfter:   []string{"tags", "download_clients"},
			fromRemote: s.Indexers.FromRemote,
			update:     s.Indexers.UpdateRemote,
			delete:     s.Indexers.DeleteRemote,
		},
		{
			name:       "custom_formats",
			runAfter:   []string{"tags"},
			fromRemote: s.CustomFormats.FromRemote,
			update:     s.CustomFormats.UpdateRemote,
			delete:     s.CustomFormats.DeleteRemote,
		},
		{
			name:       "quality_profiles",
			runAfter:   []string{"quality", "custom_formats"},
			fromRemote: s.QualityProfiles.FromRemote,
			update:     s.QualityProfiles.UpdateRemote,
			delete:     s.QualityProfiles.DeleteRemote,
		},
		{
			name:       "notifications",
			runAfter:   []string{"tags"},
			fromRemote: s.Notifications.FromRemote,
			update:     s.Notifications.UpdateRemote,
			delete:     s.Notifications.DeleteRemote,
		},
	}
}

// order topologically sorts the sections by their runAfter edges. Ties break
// by name so runs are deterministic.
func order(sections []section) ([]section, error) {
	byName := make(map[string]section, len(sections))
	indegree := make(map[string]int, len(sections))
	dependents := map[string][]string{}
	for _, sec := range sections {
		byName[sec.name] = sec
		indegree[sec.name] = 0
	}
	for _, sec := range sections {
		for _, dep := range sec.runAfter {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("section %q runs after unknown section %q", sec.name, dep)
			}
			indegree[sec.name]++
			dependents[dep] = append(dependents[dep], sec.name)
		}
	}

	var ready []string
	for name, n := range indegree {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	ordered := make([]section, 0, len(sections))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])

		released := false
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}
	if len(ordered) != len(sections) {
		return nil, fmt.Errorf("section dependency cycle detected")
	}
	return ordered, nil
}

// FromRemote replaces every section with the remote instance's current
// configuration.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	ordered, err := order(s.sections())
	if err != nil {
		return err
	}
	for _, sec := range ordered {
		if err := sec.fromRemote(ctx, env); err != nil {
			return fmt.Errorf("%s: %w", sec.name, err)
		}
	}
	return nil
}

// UpdateRemote reconciles every section in dependency order. It reports
// whether any section changed the remote; a section's result never
// short-circuits the ones after it.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error) {
	ordered, err := order(s.sections())
	if err != nil {
		return false, err
	}
	changed := false
	for _, sec := range ordered {
		secChanged, err := sec.update(ctx, env, checkUnmanaged)
		changed = changed || secChanged
		if err != nil {
			return changed, fmt.Errorf("%s: %w", sec.name, err)
		}
	}
	return changed, nil
}

// DeleteRemote runs the unmanaged-deletion pass in exact reverse dependency
// order, so referencing resources disappear before their referents.
func (s *Settings) DeleteRemote(ctx context.Context, env reconcile.Env) (bool, error) {
	ordered, err := order(s.sections())
	if err != nil {
		return false, err
	}
	changed := false
	for i := len(ordered) - 1; i >= 0; i-- {
		sec := ordered[i]
		secChanged, err := sec.delete(ctx, env)
		changed = changed || secChanged
		if err != nil {
			return changed, fmt.Errorf("%s: %w", sec.name, err)
		}
	}
	return changed, nil
}
