// Package downloadclients manages download client connections. Each
// definition is one of several client kinds selected by its `type` value;
// kind-specific parameters live in the resource's fields array and are merged
// against the remote's schema template.
package downloadclients

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
	kind = "download client"
	base = "/api/v3/downloadclient"
)

// Client is one download client definition of any kind.
type Client interface {
	Implementation() string
	common() *Common
	remoteMap(refs Refs, schema api.Resource) []remotemap.Entry
}

// Refs holds the cross-reference resolvers client entries encode through.
type Refs struct {
	Tags api.NameIDs
}

// Common holds the attributes shared by every client kind.
type Common struct {
	Type            string   `yaml:"type"`
	Enable          bool     `yaml:"enable"`
	Priority        int      `yaml:"priority"`
	RemoveCompleted bool     `yaml:"remove_completed"`
	Tags            []string `yaml:"tags"`
}

func newCommon() Common {
	return Common{Enable: true, Priority: 1, RemoveCompleted: true}
}

func (c *Common) common() *Common { return c }

func (c *Common) entries(refs Refs) []remotemap.Entry {
	return []remotemap.Entry{
		codec.Bool("enable", "enable", false, &c.Enable),
		codec.Int("priority", "priority", false, &c.Priority),
		codec.Bool("remove_completed", "removeCompletedDownloads", false, &c.RemoveCompleted),
		codec.Tags("tags", &c.Tags, refs.Tags),
	}
}

var registry = variant.NewRegistry[Client](kind)

// Definitions maps definition names to typed client configurations, decoded
// by peeking each entry's `type` value.
type Definitions map[string]Client

func (d *Definitions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: download client definitions must be a mapping", node.Line)
	}
	*d = Definitions{}
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		value := node.Content[i+1]

		var head struct {
			Type string `yaml:"type"`
		}
		if err := value.Decode(&head); err != nil {
			return fmt.Errorf("download client %q: %w", name, err)
		}
		def, err := registry.ForType(head.Type)
		if err != nil {
			return fmt.Errorf("download client %q: %w", name, err)
		}
		if err := value.Decode(def); err != nil {
			return fmt.Errorf("download client %q: %w", name, err)
		}
		def.common().Type = head.Type
		(*d)[name] = def
	}
	return nil
}

// Settings holds the managed download client definitions.
type Settings struct {
	DeleteUnmanaged bool        `yaml:"delete_unmanaged"`
	Definitions     Definitions `yaml:"definitions"`
}

// FromRemote replaces the definitions with the remote's download clients.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	refs, err := fetchRefs(ctx, env)
	if err != nil {
		return err
	}
	resources, err := env.Client.Collection(base).List(ctx)
	if err != nil {
		return fmt.Errorf("list download clients: %w", err)
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

// UpdateRemote creates missing clients and updates drifted ones.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error) {
	refs, err := fetchRefs(ctx, env)
	if err != nil {
		return false, err
	}
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list download clients: %w", err)
	}
	remote := api.ByName(resources)

	schemas, err := schemasIfCreating(ctx, col, s.Definitions, remote)
	if err != nil {
		return false, err
	}

	rc := reconcile.Collection[Client]{
		Kind:   kind,
		Local:  s.Definitions,
		Remote: remote,
		CreatePayload: func(name string, def Client) (api.Resource, error) {
			schema, err := api.SchemaFor(schemas, def.Implementation())
			if err != nil {
				return nil, err
			}
			return remotemap.CreateAttrs(def.remoteMap(refs, schema), schema, name)
		},
		Diff: func(name string, def Client, snapshot api.Resource) (bool, api.Resource, []remotemap.Change, error) {
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

// DeleteRemote removes unmanaged download clients when enabled.
func (s *Settings) DeleteRemote(ctx context.Context, env reconcile.Env) (bool, error) {
	if !s.DeleteUnmanaged {
		return false, nil
	}
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list download clients: %w", err)
	}
	rc := reconcile.Collection[Client]{
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

// schemasIfCreating fetches the variant schema templates only when at least
// one definition has no remote counterpart.
func schemasIfCreating(
	ctx context.Context,
	col *api.Collection,
	local Definitions,
	remote map[string]api.Resource,
) ([]api.Resource, error) {
	for name := range local {
		if _, ok := remote[name]; !ok {
			schemas, err := col.Schema(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetch download client schemas: %w", err)
			}
			return schemas, nil
		}
	}
	return nil, nil
}
