// Package indexers manages indexer connections. Indexers reference download
// clients and tags by name, so this section runs after both.
package indexers

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
	kind = "indexer"
	base = "/api/v3/indexer"
)

// Indexer is one indexer definition of any kind.
type Indexer interface {
	Implementation() string
	common() *Common
	remoteMap(refs Refs, schema api.Resource) []remotemap.Entry
}

// Refs holds the cross-reference resolvers indexer entries encode through.
type Refs struct {
	Tags            api.NameIDs
	DownloadClients api.NameIDs
}

// Common holds the attributes shared by every indexer kind.
type Common struct {
	Type                    string   `yaml:"type"`
	EnableRSS               bool     `yaml:"enable_rss"`
	EnableAutomaticSearch   bool     `yaml:"enable_automatic_search"`
	EnableInteractiveSearch bool     `yaml:"enable_interactive_search"`
	Priority                int      `yaml:"priority"`
	DownloadClient          *string  `yaml:"download_client"`
	Tags                    []string `yaml:"tags"`
}

func newCommon() Common {
	return Common{
		EnableRSS:               true,
		EnableAutomaticSearch:   true,
		EnableInteractiveSearch: true,
		Priority:                25,
	}
}

func (c *Common) common() *Common { return c }

func (c *Common) entries(refs Refs) []remotemap.Entry {
	return []remotemap.Entry{
		codec.Bool("enable_rss", "enableRss", false, &c.EnableRSS),
		codec.Bool("enable_automatic_search", "enableAutomaticSearch", false, &c.EnableAutomaticSearch),
		codec.Bool("enable_interactive_search", "enableInteractiveSearch", false, &c.EnableInteractiveSearch),
		codec.Int("priority", "priority", false, &c.Priority),
		c.downloadClientEntry(refs.DownloadClients),
		codec.Tags("tags", &c.Tags, refs.Tags),
	}
}

// downloadClientEntry maps the download client name to the remote's numeric
// id; 0 means no specific client.
func (c *Common) downloadClientEntry(clients api.NameIDs) remotemap.Entry {
	return remotemap.Entry{
		Local:    "download_client",
		Remote:   "downloadClientId",
		Optional: true,
		Get: func() any {
			if c.DownloadClient == nil {
				return nil
			}
			return *c.DownloadClient
		},
		Set: remotemap.SetStringPtr(&c.DownloadClient),
		Decode: func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			id, err := remotemap.AsInt(v)
			if err != nil {
				return nil, err
			}
			if id == 0 {
				return nil, nil
			}
			name, ok := clients.NameOf(id)
			if !ok {
				return nil, fmt.Errorf("remote download client id %d has no known name", id)
			}
			return name, nil
		},
		Encode: func(v any) (any, error) {
			if v == nil {
				return 0, nil
			}
			name, err := remotemap.AsString(v)
			if err != nil {
				return nil, err
			}
			return clients.ID(name)
		},
	}
}

// Torrent holds the seeding attributes shared by the torrent indexer kinds.
// The seed criteria fields use null to defer to the download client.
type Torrent struct {
	Common         `yaml:",inline"`
	MinimumSeeders int      `yaml:"minimum_seeders"`
	SeedRatio      *float64 `yaml:"seed_ratio"`
	SeedTime       *int     `yaml:"seed_time"`
}

func newTorrent() Torrent {
	return Torrent{Common: newCommon(), MinimumSeeders: 1}
}

func (t *Torrent) entries(refs Refs) []remotemap.Entry {
	return append(t.Common.entries(refs),
		codec.Int("minimum_seeders", "minimumSeeders", true, &t.MinimumSeeders),
		codec.OptionalFloat("seed_ratio", "seedCriteria.seedRatio", true, &t.SeedRatio),
		codec.OptionalInt("seed_time", "seedCriteria.seedTime", true, &t.SeedTime),
	)
}

var registry = variant.NewRegistry[Indexer](kind)

// Definitions maps definition names to typed indexer configurations.
type Definitions map[string]Indexer

func (d *Definitions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: indexer definitions must be a mapping", node.Line)
	}
	*d = Definitions{}
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		value := node.Content[i+1]

		var head struct {
			Type string `yaml:"type"`
		}
		if err := value.Decode(&head); err != nil {
			return fmt.Errorf("indexer %q: %w", name, err)
		}
		def, err := registry.ForType(head.Type)
		if err != nil {
			return fmt.Errorf("indexer %q: %w", name, err)
		}
		if err := value.Decode(def); err != nil {
			return fmt.Errorf("indexer %q: %w", name, err)
		}
		def.common().Type = head.Type
		(*d)[name] = def
	}
	return nil
}

// Settings holds the managed indexer definitions.
type Settings struct {
	DeleteUnmanaged bool        `yaml:"delete_unmanaged"`
	Definitions     Definitions `yaml:"definitions"`
}

// FromRemote replaces the definitions with the remote's indexers.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	refs, err := fetchRefs(ctx, env)
	if err != nil {
		return err
	}
	resources, err := env.Client.Collection(base).List(ctx)
	if err != nil {
		return fmt.Errorf("list indexers: %w", err)
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

// UpdateRemote creates missing indexers and updates drifted ones.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error) {
	refs, err := fetchRefs(ctx, env)
	if err != nil {
		return false, err
	}
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list indexers: %w", err)
	}
	remote := api.ByName(resources)

	var schemas []api.Resource
	for name := range s.Definitions {
		if _, ok := remote[name]; !ok {
			if schemas, err = col.Schema(ctx); err != nil {
				return false, fmt.Errorf("fetch indexer schemas: %w", err)
			}
			break
		}
	}

	rc := reconcile.Collection[Indexer]{
		Kind:   kind,
		Local:  s.Definitions,
		Remote: remote,
		CreatePayload: func(name string, def Indexer) (api.Resource, error) {
			schema, err := api.SchemaFor(schemas, def.Implementation())
			if err != nil {
				return nil, err
			}
			return remotemap.CreateAttrs(def.remoteMap(refs, schema), schema, name)
		},
		Diff: func(name string, def Indexer, snapshot api.Resource) (bool, api.Resource, []remotemap.Change, error) {
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

// DeleteRemote removes unmanaged indexers when enabled.
func (s *Settings) DeleteRemote(ctx context.Context, env reconcile.Env) (bool, error) {
	if !s.DeleteUnmanaged {
		return false, nil
	}
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list indexers: %w", err)
	}
	rc := reconcile.Collection[Indexer]{
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
	clientIDs, err := env.Client.DownloadClientIDs(ctx)
	if err != nil {
		return Refs{}, err
	}
	return Refs{Tags: tagIDs, DownloadClients: clientIDs}, nil
}
