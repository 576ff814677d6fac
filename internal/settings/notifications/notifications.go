// Package notifications manages notification connections and the event
// triggers enabled on them.
package notifications

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/reconcile"
	"github.com/declarr/declarr/internal/remotemap"
	"github.com/declarr/declarr/internal/settings/codec"
	"github.com/declarr/declarr/internal/variant"
)

const (
	kind = "notification"
	base = "/api/v3/notification"
)

// Notification is one notification connection of any kind.
type Notification interface {
	Implementation() string
	common() *Common
	remoteMap(refs Refs, schema api.Resource) []remotemap.Entry
}

// Refs holds the cross-reference resolvers notification entries encode
// through.
type Refs struct {
	Tags api.NameIDs
}

// Triggers selects the events a connection sends notifications for.
type Triggers struct {
	OnGrab                      bool `yaml:"on_grab"`
	OnImport                    bool `yaml:"on_import"`
	OnUpgrade                   bool `yaml:"on_upgrade"`
	OnRename                    bool `yaml:"on_rename"`
	OnMovieAdded                bool `yaml:"on_movie_added"`
	OnMovieDelete               bool `yaml:"on_movie_delete"`
	OnMovieFileDelete           bool `yaml:"on_movie_file_delete"`
	OnMovieFileDeleteForUpgrade bool `yaml:"on_movie_file_delete_for_upgrade"`
	OnHealthIssue               bool `yaml:"on_health_issue"`
	IncludeHealthWarnings       bool `yaml:"include_health_warnings"`
	OnApplicationUpdate         bool `yaml:"on_application_update"`
}

func (t *Triggers) entries() []remotemap.Entry {
	return []remotemap.Entry{
		codec.Bool("on_grab", "onGrab", false, &t.OnGrab),
		codec.Bool("on_import", "onDownload", false, &t.OnImport),
		codec.Bool("on_upgrade", "onUpgrade", false, &t.OnUpgrade),
		codec.Bool("on_rename", "onRename", false, &t.OnRename),
		codec.Bool("on_movie_added", "onMovieAdded", false, &t.OnMovieAdded),
		codec.Bool("on_movie_delete", "onMovieDelete", false, &t.OnMovieDelete),
		codec.Bool("on_movie_file_delete", "onMovieFileDelete", false, &t.OnMovieFileDelete),
		codec.Bool("on_movie_file_delete_for_upgrade", "onMovieFileDeleteForUpgrade", false, &t.OnMovieFileDeleteForUpgrade),
		codec.Bool("on_health_issue", "onHealthIssue", false, &t.OnHealthIssue),
		codec.Bool("include_health_warnings", "includeHealthWarnings", false, &t.IncludeHealthWarnings),
		codec.Bool("on_application_update", "onApplicationUpdate", false, &t.OnApplicationUpdate),
	}
}

// Common holds the attributes shared by every notification kind.
type Common struct {
	Type     string   `yaml:"type"`
	Triggers Triggers `yaml:"notification_triggers"`
	Tags     []string `yaml:"tags"`
}

func (c *Common) common() *Common { return c }

func (c *Common) entries(refs Refs) []remotemap.Entry {
	return append(c.Triggers.entries(), codec.Tags("tags", &c.Tags, refs.Tags))
}

var registry = variant.NewRegistry[Notification](kind)

// Definitions maps definition names to typed notification configurations.
type Definitions map[string]Notification

func (d *Definitions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: notification definitions must be a mapping", node.Line)
	}
	*d = Definitions{}
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		value := node.Content[i+1]

		var head struct {
			Type string `yaml:"type"`
		}
		if err := value.Decode(&head); err != nil {
			return fmt.Errorf("notification %q: %w", name, err)
		}
		def, err := registry.ForType(head.Type)
		if err != nil {
			return fmt.Errorf("notification %q: %w", name, err)
		}
		if err := value.Decode(def); err != nil {
			return fmt.Errorf("notification %q: %w", name, err)
		}
		def.common().Type = head.Type
		(*d)[name] = def
	}
	return nil
}

// Settings holds the managed notification definitions.
type Settings struct {
	DeleteUnmanaged bool        `yaml:"delete_unmanaged"`
	Definitions     Definitions `yaml:"definitions"`
}

// FromRemote replaces the definitions with the remote's notifications.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	refs, err := fetchRefs(ctx, env)
	if err != nil {
		return err
	}
	resources, err := env.Client.Collection(base).List(ctx)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	s.Definitions = Definitions{}
	for _, res := range resources {
		def, err := registry.ForImplementation(res.Implementation())
		if err != nil {
			return err
		}
		if err := remotemap.DecodeAll(def.remoteMap(refs, res), res); err != nil {
			return fmt.Errorf("%s %q: %w", kind, res.Name(), err)
		}
		s.Definitions[res.Name()] = def
	}
	return nil
}

// UpdateRemote creates missing notifications and updates drifted ones.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error) {
	refs, err := fetchRefs(ctx, env)
	if err != nil {
		return false, err
	}
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list notifications: %w", err)
	}
	remote := api.ByName(resources)

	var schemas []api.Resource
	for name := range s.Definitions {
		if _, ok := remote[name]; !ok {
			if schemas, err = col.Schema(ctx); err != nil {
				return false, fmt.Errorf("fetch notification schemas: %w", err)
			}
			break
		}
	}

	rc := reconcile.Collection[Notification]{
		Kind:   kind,
		Local:  s.Definitions,
		Remote: remote,
		CreatePayload: func(name string, def Notification) (api.Resource, error) {
			schema, err := api.SchemaFor(schemas, def.Implementation())
			if err != nil {
				return nil, err
			}
			return remotemap.CreateAttrs(def.remoteMap(refs, schema), schema, name)
		},
		Diff: func(name string, def Notification, snapshot api.Resource) (bool, api.Resource, []remotemap.Change, error) {
			return remotemap.Diff(def.remoteMap(refs, snapshot), snapshot)
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

// DeleteRemote removes unmanaged notifications when enabled.
func (s *Settings) DeleteRemote(ctx context.Context, env reconcile.Env) (bool, error) {
	if !s.DeleteUnmanaged {
		return false, nil
	}
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list notifications: %w", err)
	}
	rc := reconcile.Collection[Notification]{
		Kind:   kind,
		Local:  s.Definitions,
		Remote: api.ByName(resources),
	}
	return reconcile.DeleteUnmanaged(ctx, col, rc, env.Report)
}

func fetchRefs(ctx context.Context, env reconcile.Env) (Refs, error) {
	tagIDs, err := env.Client.TagIDs(ctx)
	if err != nil {
		return Refs{}, err
	}
	return Refs{Tags: tagIDs}, nil
}
