package api

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Cross-reference resolvers: name↔id maps built once per reconciliation run
// from bulk list calls, then shared read-only by every collection that needs
// them. Encoding a name with no remote counterpart is a user configuration
// error and fails loudly.

// NameIDs maps human-readable names to remote numeric identifiers. Both
// directions are indexed; the maps are immutable once built.
type NameIDs struct {
	kind  string
	ids   map[string]int
	names map[int]string
}

// NewNameIDs builds a resolver for the given resource kind (used in errors).
func NewNameIDs(kind string, ids map[string]int) NameIDs {
	names := make(map[int]string, len(ids))
	for name, id := range ids {
		names[id] = name
	}
	return NameIDs{kind: kind, ids: ids, names: names}
}

// ID resolves a name to its remote id.
func (n NameIDs) ID(name string) (int, error) {
	id, ok := n.ids[name]
	if !ok {
		return 0, fmt.Errorf("%s %q not found on the remote instance", n.kind, name)
	}
	return id, nil
}

// Has reports whether the name exists remotely.
func (n NameIDs) Has(name string) bool {
	_, ok := n.ids[name]
	return ok
}

// NameOf reverse-resolves an id to its name.
func (n NameIDs) NameOf(id int) (string, bool) {
	name, ok := n.names[id]
	return name, ok
}

// Names returns all known names in sorted order.
func (n NameIDs) Names() []string {
	out := make([]string, 0, len(n.ids))
	for name := range n.ids {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of known names.
func (n NameIDs) Len() int { return len(n.ids) }

// TagIDs fetches the tag label→id map.
func (c *Client) TagIDs(ctx context.Context) (NameIDs, error) {
	var tags []struct {
		ID    int    `json:"id"`
		Label string `json:"label"`
	}
	if err := c.GetJSON(ctx, "/api/v3/tag", &tags); err != nil {
		return NameIDs{}, fmt.Errorf("list tags: %w", err)
	}
	ids := make(map[string]int, len(tags))
	for _, t := range tags {
		ids[t.Label] = t.ID
	}
	return NewNameIDs("tag", ids), nil
}

// DownloadClientIDs fetches the download client name→id map.
func (c *Client) DownloadClientIDs(ctx context.Context) (NameIDs, error) {
	return c.nameIDs(ctx, "download client", "/api/v3/downloadclient")
}

// CustomFormatIDs fetches the custom format name→id map.
func (c *Client) CustomFormatIDs(ctx context.Context) (NameIDs, error) {
	return c.nameIDs(ctx, "custom format", "/api/v3/customformat")
}

func (c *Client) nameIDs(ctx context.Context, kind, path string) (NameIDs, error) {
	var resources []Resource
	if err := c.GetJSON(ctx, path, &resources); err != nil {
		return NameIDs{}, fmt.Errorf("list %ss: %w", kind, err)
	}
	ids := make(map[string]int, len(resources))
	for _, r := range resources {
		ids[r.Name()] = r.ID()
	}
	return NewNameIDs(kind, ids), nil
}

// Language is one remote language entry.
type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Languages resolves language names case-insensitively.
type Languages struct {
	byName map[string]Language
	byID   map[int]Language
}

// Get resolves a language by name.
func (l Languages) Get(name string) (Language, error) {
	lang, ok := l.byName[strings.ToLower(name)]
	if !ok {
		return Language{}, fmt.Errorf("language %q not found on the remote instance", name)
	}
	return lang, nil
}

// ByID reverse-resolves a language id.
func (l Languages) ByID(id int) (Language, bool) {
	lang, ok := l.byID[id]
	return lang, ok
}

// NewLanguages builds a resolver from a known language table.
func NewLanguages(langs []Language) Languages {
	byName := make(map[string]Language, len(langs))
	byID := make(map[int]Language, len(langs))
	for _, l := range langs {
		byName[strings.ToLower(l.Name)] = l
		byID[l.ID] = l
	}
	return Languages{byName: byName, byID: byID}
}

// Languages fetches the remote language table.
func (c *Client) Languages(ctx context.Context) (Languages, error) {
	var langs []Language
	if err := c.GetJSON(ctx, "/api/v3/language", &langs); err != nil {
		return Languages{}, fmt.Errorf("list languages: %w", err)
	}
	return NewLanguages(langs), nil
}

// Qualities holds the remote quality definitions ordered by weight
// descending, as quality profiles rank them.
type Qualities struct {
	titles  []string
	byTitle map[string]Resource
}

// Titles returns quality titles from highest to lowest weight.
func (q *Qualities) Titles() []string { return q.titles }

// Quality returns the raw quality object for a title, for embedding into
// profile items.
func (q *Qualities) Quality(title string) (Resource, error) {
	obj, ok := q.byTitle[title]
	if !ok {
		return nil, fmt.Errorf("quality %q not found on the remote instance", title)
	}
	return obj, nil
}

// Has reports whether the quality title exists remotely.
func (q *Qualities) Has(title string) bool {
	_, ok := q.byTitle[title]
	return ok
}

// NewQualities builds a resolver from titles ordered highest weight first and
// their raw quality objects.
func NewQualities(titles []string, byTitle map[string]Resource) *Qualities {
	return &Qualities{titles: titles, byTitle: byTitle}
}

// Qualities fetches the quality definition table.
func (c *Client) Qualities(ctx context.Context) (*Qualities, error) {
	var defs []struct {
		Title   string   `json:"title"`
		Weight  float64  `json:"weight"`
		Quality Resource `json:"quality"`
	}
	if err := c.GetJSON(ctx, "/api/v3/qualitydefinition", &defs); err != nil {
		return nil, fmt.Errorf("list quality definitions: %w", err)
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Weight > defs[j].Weight })

	titles := make([]string, 0, len(defs))
	byTitle := make(map[string]Resource, len(defs))
	for _, d := range defs {
		titles = append(titles, d.Title)
		byTitle[d.Title] = d.Quality
	}
	return NewQualities(titles, byTitle), nil
}
