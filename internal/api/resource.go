package api

import (
	"context"
	"fmt"
	"strings"
)

// Resource is a raw remote resource: a string-keyed attribute bag as decoded
// from JSON, optionally carrying a nested `fields: [{name, value}]` array for
// variant-specific parameters.
type Resource map[string]any

// ID returns the remote numeric identifier, or 0 when absent.
func (r Resource) ID() int {
	switch v := r["id"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Name returns the resource name, the sole correlation key with local
// definitions.
func (r Resource) Name() string {
	s, _ := r["name"].(string)
	return s
}

// Implementation returns the variant discriminator string.
func (r Resource) Implementation() string {
	s, _ := r["implementation"].(string)
	return s
}

// Collection addresses one remote resource collection (download clients,
// indexers, ...) with the list/schema/create/update/delete protocol shared
// across the *arr API surface.
type Collection struct {
	c      *Client
	base   string
	schema string
}

// Collection returns a handle for the collection rooted at base
// (e.g. "/api/v3/downloadclient"). The variant schema endpoint defaults to
// base + "/schema".
func (c *Client) Collection(base string) *Collection {
	return &Collection{c: c, base: base, schema: base + "/schema"}
}

// List fetches all resources in the collection.
func (col *Collection) List(ctx context.Context) ([]Resource, error) {
	var out []Resource
	if err := col.c.GetJSON(ctx, col.base, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Schema fetches the collection's per-variant field templates.
func (col *Collection) Schema(ctx context.Context) ([]Resource, error) {
	var out []Resource
	if err := col.c.GetJSON(ctx, col.schema, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create adds a resource and returns the remote's view of it.
func (col *Collection) Create(ctx context.Context, res Resource) (Resource, error) {
	var out Resource
	if err := col.c.PostJSON(ctx, col.base, res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the resource with the given id. The payload must be the
// complete object; the API does not accept partial patches.
func (col *Collection) Update(ctx context.Context, id int, res Resource) (Resource, error) {
	var out Resource
	if err := col.c.PutJSON(ctx, fmt.Sprintf("%s/%d", col.base, id), res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the resource with the given id.
func (col *Collection) Delete(ctx context.Context, id int) error {
	return col.c.DeleteJSON(ctx, fmt.Sprintf("%s/%d", col.base, id))
}

// SchemaFor finds the field template for the given implementation string,
// case-insensitively. The returned template still contains the remote's
// default field values.
func SchemaFor(schemas []Resource, implementation string) (Resource, error) {
	for _, s := range schemas {
		if strings.EqualFold(s.Implementation(), implementation) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no remote schema for implementation %q", implementation)
}

// ByName indexes resources by their name.
func ByName(resources []Resource) map[string]Resource {
	out := make(map[string]Resource, len(resources))
	for _, r := range resources {
		out[r.Name()] = r
	}
	return out
}
