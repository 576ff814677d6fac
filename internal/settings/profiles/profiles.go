// Package profiles manages quality profiles: the ranked quality list, the
// upgrade cutoff, custom format scoring and the profile language. It runs
// after the quality definitions and custom formats sections, whose resources
// it references by name.
package profiles

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/reconcile"
	"github.com/declarr/declarr/internal/remotemap"
	"github.com/declarr/declarr/internal/settings/codec"
)

const (
	kind = "quality profile"
	base = "/api/v3/qualityprofile"

	// Remote ids for quality groups start here; singular qualities use the
	// quality's own id.
	groupIDBase = 1000
)

// QualityItem is one entry of a profile's ranked quality list: either a
// single quality name, or a named group of qualities sharing one priority
// level.
type QualityItem struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// Group reports whether the item is a quality group.
func (q QualityItem) Group() bool { return len(q.Members) > 0 }

func (q *QualityItem) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		q.Name = node.Value
		q.Members = nil
		return nil
	}
	type plain QualityItem
	if err := node.Decode((*plain)(q)); err != nil {
		return err
	}
	if q.Name == "" {
		return fmt.Errorf("line %d: quality group requires a name", node.Line)
	}
	if len(q.Members) == 0 {
		return fmt.Errorf("quality group %q requires at least one member", q.Name)
	}
	return nil
}

// Profile is one managed quality profile. Qualities are listed highest
// priority first; remote items are stored in the reverse order.
type Profile struct {
	UpgradesAllowed          bool           `yaml:"upgrades_allowed"`
	Qualities                []QualityItem  `yaml:"qualities"`
	UpgradeUntilQuality      *string        `yaml:"upgrade_until_quality"`
	MinimumCustomFormatScore int            `yaml:"minimum_custom_format_score"`
	CustomFormats            map[string]int `yaml:"custom_formats"`
	Language                 string         `yaml:"language"`
}

// Refs holds the cross-reference state profile codecs encode through.
type Refs struct {
	Qualities     *api.Qualities
	CustomFormats api.NameIDs
	Languages     api.Languages
}

// Settings holds the managed quality profile definitions.
type Settings struct {
	DeleteUnmanaged bool                `yaml:"delete_unmanaged"`
	Definitions     map[string]*Profile `yaml:"definitions"`
}

// Validate checks each profile's quality list and cutoff consistency. A
// disabled-upgrades profile has its cutoff cleared so the remote value is
// left alone.
func (s *Settings) Validate() error {
	for name, p := range s.Definitions {
		if err := p.validate(); err != nil {
			return fmt.Errorf("quality profile %q: %w", name, err)
		}
	}
	return nil
}

func (p *Profile) validate() error {
	if len(p.Qualities) == 0 {
		return fmt.Errorf("at least one quality must be enabled")
	}
	if p.Language == "" {
		p.Language = "English"
	}

	seen := map[string]string{}
	for _, item := range p.Qualities {
		members := item.Members
		if !item.Group() {
			members = []string{item.Name}
		}
		for _, member := range members {
			if where, dup := seen[member]; dup {
				return fmt.Errorf("duplicate entries of quality %q exist (%s and %s)",
					member, where, itemDesc(item))
			}
			seen[member] = itemDesc(item)
		}
	}

	if !p.UpgradesAllowed {
		p.UpgradeUntilQuality = nil
		return nil
	}
	if p.UpgradeUntilQuality == nil || *p.UpgradeUntilQuality == "" {
		return fmt.Errorf("upgrade_until_quality is required when upgrades_allowed is true")
	}
	for _, item := range p.Qualities {
		if item.Name == *p.UpgradeUntilQuality {
			return nil
		}
	}
	return fmt.Errorf("upgrade_until_quality %q must be enabled in qualities", *p.UpgradeUntilQuality)
}

func itemDesc(item QualityItem) string {
	if item.Group() {
		return fmt.Sprintf("quality group %q", item.Name)
	}
	return "a non-grouped quality"
}

// groupIDs assigns deterministic remote ids to the profile's quality groups,
// in priority order.
func (p *Profile) groupIDs() map[string]int {
	ids := map[string]int{}
	n := 0
	for _, item := range p.Qualities {
		if item.Group() {
			n++
			ids[item.Name] = groupIDBase + n
		}
	}
	return ids
}

// remoteMap builds the profile's entries. snapshot is the current remote
// resource when diffing (its decoded form drives equality, so differing
// group ids alone never count as drift), or nil when decoding or creating.
func (p *Profile) remoteMap(refs Refs, snapshot api.Resource) []remotemap.Entry {
	groupIDs := p.groupIDs()

	// When the items list is rewritten, groups get the locally assigned ids,
	// so the cutoff must be re-encoded against them even if its name is
	// unchanged. A stale cutoff id would point outside the new items list.
	itemsDrifted := false
	if snapshot != nil {
		items, err := decodeItems(snapshot["items"])
		itemsDrifted = err != nil || !itemsEqual(p.Qualities, items)
	}
	return []remotemap.Entry{
		codec.Bool("upgrades_allowed", "upgradeAllowed", false, &p.UpgradesAllowed),
		{
			Local:  "qualities",
			Remote: "items",
			Get:    func() any { return nil },
			Set: func(v any) error {
				items, ok := v.([]QualityItem)
				if !ok {
					return fmt.Errorf("expected quality items, got %T", v)
				}
				p.Qualities = items
				return nil
			},
			Decode: func(v any) (any, error) { return decodeItems(v) },
			EncodeRoot: func() (any, error) {
				return encodeItems(refs.Qualities, groupIDs, p.Qualities)
			},
			Equals: func(_, current any) bool {
				items, err := decodeItems(current)
				if err != nil {
					return false
				}
				return itemsEqual(p.Qualities, items)
			},
		},
		{
			Local:  "upgrade_until_quality",
			Remote: "cutoff",
			Set: func(v any) error {
				return remotemap.SetStringPtr(&p.UpgradeUntilQuality)(v)
			},
			DecodeRoot: func(attrs remotemap.Attrs) (any, error) {
				return decodeCutoff(attrs)
			},
			EncodeRoot: func() (any, error) {
				return p.encodeCutoff(refs, groupIDs)
			},
			Equals: func(_, _ any) bool {
				if snapshot == nil || itemsDrifted {
					return false
				}
				name, err := decodeCutoff(snapshot)
				if err != nil {
					return false
				}
				// Compare by name: the remote group id numbering need
				// not match the local assignment.
				wantName := ""
				if p.UpgradeUntilQuality != nil {
					wantName = *p.UpgradeUntilQuality
				} else if len(p.Qualities) > 0 {
					wantName = p.Qualities[0].Name
				}
				return name == wantName
			},
		},
		codec.Int("minimum_custom_format_score", "cutoffFormatScore", false, &p.MinimumCustomFormatScore),
		{
			Local:  "custom_formats",
			Remote: "formatItems",
			Get:    func() any { return nil },
			Set: func(v any) error {
				scores, ok := v.(map[string]int)
				if !ok {
					return fmt.Errorf("expected format scores, got %T", v)
				}
				p.CustomFormats = scores
				return nil
			},
			Decode: func(v any) (any, error) { return decodeFormatScores(v) },
			EncodeRoot: func() (any, error) {
				return encodeFormatItems(refs.CustomFormats, p.CustomFormats)
			},
			Equals: func(_, current any) bool {
				scores, err := decodeFormatScores(current)
				if err != nil {
					return false
				}
				return scoresEqual(refs.CustomFormats, p.CustomFormats, scores)
			},
		},
		{
			Local:  "language",
			Remote: "language",
			Get:    func() any { return p.Language },
			Set:    remotemap.SetString(&p.Language),
			Decode: func(v any) (any, error) {
				m, err := remotemap.AsMap(v)
				if err != nil {
					return nil, err
				}
				return remotemap.AsString(m["name"])
			},
			Encode: func(v any) (any, error) {
				name, err := remotemap.AsString(v)
				if err != nil {
					return nil, err
				}
				lang, err := refs.Languages.Get(name)
				if err != nil {
					return nil, err
				}
				return map[string]any{"id": lang.ID, "name": lang.Name}, nil
			},
			Equals: func(_, current any) bool {
				m, err := remotemap.AsMap(current)
				if err != nil {
					return false
				}
				name, _ := m["name"].(string)
				return strings.EqualFold(name, p.Language)
			},
		},
	}
}

// decodeItems converts remote profile items to the local form: reversed so
// the highest priority comes first, with disabled qualities dropped.
func decodeItems(v any) ([]QualityItem, error) {
	raw, err := remotemap.AsSlice(v)
	if err != nil {
		return nil, err
	}
	var out []QualityItem
	for i := len(raw) - 1; i >= 0; i-- {
		item, err := remotemap.AsMap(raw[i])
		if err != nil {
			return nil, err
		}
		allowed, err := remotemap.AsBool(item["allowed"])
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}
		members, err := remotemap.AsSlice(item["items"])
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			quality, err := remotemap.AsMap(item["quality"])
			if err != nil {
				return nil, err
			}
			name, err := remotemap.AsString(quality["name"])
			if err != nil {
				return nil, err
			}
			out = append(out, QualityItem{Name: name})
			continue
		}
		group := QualityItem{}
		if group.Name, err = remotemap.AsString(item["name"]); err != nil {
			return nil, err
		}
		for _, m := range members {
			member, err := remotemap.AsMap(m)
			if err != nil {
				return nil, err
			}
			quality, err := remotemap.AsMap(member["quality"])
			if err != nil {
				return nil, err
			}
			name, err := remotemap.AsString(quality["name"])
			if err != nil {
				return nil, err
			}
			group.Members = append(group.Members, name)
		}
		out = append(out, group)
	}
	return out, nil
}

// encodeItems builds the remote items list: enabled entries in priority
// order, every remaining quality appended disabled, the whole list reversed
// to the remote's lowest-first order.
func encodeItems(qualities *api.Qualities, groupIDs map[string]int, items []QualityItem) (any, error) {
	var encoded []any
	enabled := map[string]bool{}

	for _, item := range items {
		if !item.Group() {
			e, err := encodeSingle(qualities, item.Name, true)
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, e)
			enabled[item.Name] = true
			continue
		}
		members := make([]any, 0, len(item.Members))
		for _, member := range item.Members {
			e, err := encodeSingle(qualities, member, true)
			if err != nil {
				return nil, err
			}
			members = append(members, e)
			enabled[member] = true
		}
		encoded = append(encoded, map[string]any{
			"id":      groupIDs[item.Name],
			"name":    item.Name,
			"allowed": true,
			"items":   members,
		})
	}

	for _, title := range qualities.Titles() {
		if !enabled[title] {
			e, err := encodeSingle(qualities, title, false)
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, e)
		}
	}

	for i, j := 0, len(encoded)-1; i < j; i, j = i+1, j-1 {
		encoded[i], encoded[j] = encoded[j], encoded[i]
	}
	return encoded, nil
}

func encodeSingle(qualities *api.Qualities, title string, allowed bool) (map[string]any, error) {
	quality, err := qualities.Quality(title)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"quality": map[string]any(quality),
		"items":   []any{},
		"allowed": allowed,
	}, nil
}

func itemsEqual(a, b []QualityItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || len(a[i].Members) != len(b[i].Members) {
			return false
		}
		am := append([]string(nil), a[i].Members...)
		bm := append([]string(nil), b[i].Members...)
		sort.Strings(am)
		sort.Strings(bm)
		for j := range am {
			if am[j] != bm[j] {
				return false
			}
		}
	}
	return true
}

// decodeCutoff resolves the cutoff id against the profile's own items. A
// cutoff pointing at no item means the remote state is inconsistent and is
// fatal.
func decodeCutoff(attrs remotemap.Attrs) (any, error) {
	cutoff, err := remotemap.AsInt(attrs["cutoff"])
	if err != nil {
		return nil, err
	}
	raw, err := remotemap.AsSlice(attrs["items"])
	if err != nil {
		return nil, err
	}
	for _, r := range raw {
		item, err := remotemap.AsMap(r)
		if err != nil {
			return nil, err
		}
		target := item
		if _, group := item["id"]; !group {
			if target, err = remotemap.AsMap(item["quality"]); err != nil {
				return nil, err
			}
		}
		id, err := remotemap.AsInt(target["id"])
		if err != nil {
			return nil, err
		}
		if id == cutoff {
			return remotemap.AsString(target["name"])
		}
	}
	return nil, fmt.Errorf("inconsistent remote state: cutoff quality id %d not found in profile items", cutoff)
}

// encodeCutoff resolves the local cutoff name to a remote id: the group id
// for groups, the quality id otherwise. An unset cutoff (upgrades disabled)
// points at the highest priority entry.
func (p *Profile) encodeCutoff(refs Refs, groupIDs map[string]int) (any, error) {
	name := ""
	if p.UpgradeUntilQuality != nil {
		name = *p.UpgradeUntilQuality
	} else if len(p.Qualities) > 0 {
		name = p.Qualities[0].Name
	}
	if id, ok := groupIDs[name]; ok {
		return id, nil
	}
	quality, err := refs.Qualities.Quality(name)
	if err != nil {
		return nil, err
	}
	return remotemap.AsInt(quality["id"])
}

func decodeFormatScores(v any) (map[string]int, error) {
	raw, err := remotemap.AsSlice(v)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]int, len(raw))
	for _, r := range raw {
		item, err := remotemap.AsMap(r)
		if err != nil {
			return nil, err
		}
		name, err := remotemap.AsString(item["name"])
		if err != nil {
			return nil, err
		}
		score, err := remotemap.AsInt(item["score"])
		if err != nil {
			return nil, err
		}
		scores[name] = score
	}
	return scores, nil
}

// encodeFormatItems scores every remote custom format: the local score when
// set, 0 otherwise, ordered by descending score then name.
func encodeFormatItems(formats api.NameIDs, scores map[string]int) (any, error) {
	type item struct {
		name  string
		id    int
		score int
	}
	items := make([]item, 0, formats.Len())
	for _, name := range formats.Names() {
		id, err := formats.ID(name)
		if err != nil {
			return nil, err
		}
		items = append(items, item{name: name, id: id, score: scores[name]})
	}
	for name := range scores {
		if !formats.Has(name) {
			return nil, fmt.Errorf("custom format %q not found on the remote instance", name)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].name < items[j].name
	})

	encoded := make([]any, 0, len(items))
	for _, it := range items {
		encoded = append(encoded, map[string]any{
			"format": it.id,
			"name":   it.name,
			"score":  it.score,
		})
	}
	return encoded, nil
}

func scoresEqual(formats api.NameIDs, local, remote map[string]int) bool {
	for _, name := range formats.Names() {
		if local[name] != remote[name] {
			return false
		}
	}
	return len(remote) <= formats.Len()
}

// FromRemote replaces the definitions with the remote's quality profiles.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	resources, err := env.Client.Collection(base).List(ctx)
	if err != nil {
		return fmt.Errorf("list quality profiles: %w", err)
	}
	s.Definitions = map[string]*Profile{}
	for _, res := range resources {
		p := &Profile{}
		if err := remotemap.DecodeAll(p.remoteMap(Refs{}, nil), res); err != nil {
			return fmt.Errorf("%s %q: %w", kind, res.Name(), err)
		}
		s.Definitions[res.Name()] = p
	}
	return nil
}

// UpdateRemote creates missing profiles and updates drifted ones.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, checkUnmanaged bool) (bool, error) {
	refs, err := fetchRefs(ctx, env)
	if err != nil {
		return false, err
	}
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list quality profiles: %w", err)
	}
	remote := api.ByName(resources)

	rc := reconcile.Collection[*Profile]{
		Kind:   kind,
		Local:  s.Definitions,
		Remote: remote,
		CreatePayload: func(name string, def *Profile) (api.Resource, error) {
			return remotemap.CreateAttrs(def.remoteMap(refs, nil), nil, name)
		},
		Diff: func(name string, def *Profile, snapshot api.Resource) (bool, api.Resource, []remotemap.Change, error) {
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

// DeleteRemote removes unmanaged quality profiles when enabled.
func (s *Settings) DeleteRemote(ctx context.Context, env reconcile.Env) (bool, error) {
	if !s.DeleteUnmanaged {
		return false, nil
	}
	col := env.Client.Collection(base)
	resources, err := col.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list quality profiles: %w", err)
	}
	rc := reconcile.Collection[*Profile]{
		Kind:   kind,
		Local:  s.Definitions,
		Remote: api.ByName(resources),
	}
	return reconcile.DeleteUnmanaged(ctx, col, rc, env.Report)
}

func fetchRefs(ctx context.Context, env reconcile.Env) (Refs, error) {
	qualities, err := env.Client.Qualities(ctx)
	if err != nil {
		return Refs{}, err
	}
	formats, err := env.Client.CustomFormatIDs(ctx)
	if err != nil {
		return Refs{}, err
	}
	languages, err := env.Client.Languages(ctx)
	if err != nil {
		return Refs{}, err
	}
	return Refs{Qualities: qualities, CustomFormats: formats, Languages: languages}, nil
}
