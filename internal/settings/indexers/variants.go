package indexers

import (
	"fmt"
	"sort"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/remotemap"
	"github.com/declarr/declarr/internal/settings/codec"
)

func init() {
	registry.Register("Torznab", []string{"torznab"}, func() Indexer { return newTorznab() })
	registry.Register("Newznab", []string{"newznab"}, func() Indexer { return newNewznab() })
	registry.Register("Nyaa", []string{"nyaa"}, func() Indexer { return newNyaa() })
	registry.Register("FileList", []string{"filelist"}, func() Indexer { return newFilelist() })
	registry.Register("HDBits", []string{"hdbits"}, func() Indexer { return newHdbits() })
}

// defaultMovieCategories are the standard Newznab/Torznab movie categories.
var defaultMovieCategories = []int{2010, 2020, 2030, 2040, 2045, 2050, 2060}

// intSetField maps a sorted integer set to a remote multi-value field.
func intSetField(local, remote string, p *[]int) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: remote,
		Field:  true,
		Get: func() any {
			out := append([]int(nil), *p...)
			sort.Ints(out)
			return out
		},
		Set: remotemap.SetIntSet(p),
	}
}

// stringSetField maps a sorted string set to a remote multi-value field.
func stringSetField(local, remote string, p *[]string) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: remote,
		Field:  true,
		Get: func() any {
			out := append([]string(nil), *p...)
			sort.Strings(out)
			return out
		},
		Set: remotemap.SetStringSet(p),
	}
}

// multiSelectField maps a set of option names to a remote multi-select
// field, translating through the schema's option table.
func multiSelectField(local, fieldName string, p *[]string, schema api.Resource) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: fieldName,
		Field:  true,
		Get:    func() any { return *p },
		Set:    remotemap.SetStringSet(p),
		Decode: func(v any) (any, error) {
			values, err := remotemap.AsSlice(v)
			if err != nil {
				return nil, err
			}
			names := make([]any, 0, len(values))
			for _, value := range values {
				name, err := codec.SelectDecode(schema, fieldName, value)
				if err != nil {
					return nil, err
				}
				names = append(names, name)
			}
			return names, nil
		},
		Encode: func(v any) (any, error) {
			names, ok := v.([]string)
			if !ok {
				return nil, fmt.Errorf("expected name list, got %T", v)
			}
			values := make([]int, 0, len(names))
			for _, name := range names {
				value, err := codec.SelectEncode(schema, fieldName, name)
				if err != nil {
					return nil, err
				}
				n, err := remotemap.AsInt(value)
				if err != nil {
					return nil, err
				}
				values = append(values, n)
			}
			sort.Ints(values)
			return values, nil
		},
	}
}

// Torznab monitors a Torznab-compatible torrent indexing site.
type Torznab struct {
	Torrent              `yaml:",inline"`
	BaseURL              string   `yaml:"base_url"`
	APIPath              string   `yaml:"api_path"`
	APIKey               string   `yaml:"api_key"`
	MultiLanguages       []string `yaml:"multi_languages"`
	Categories           []int    `yaml:"categories"`
	AdditionalParameters *string  `yaml:"additional_parameters"`
}

func newTorznab() *Torznab {
	return &Torznab{
		Torrent:    newTorrent(),
		APIPath:    "/api",
		Categories: append([]int(nil), defaultMovieCategories...),
	}
}

func (i *Torznab) Implementation() string { return "Torznab" }

func (i *Torznab) remoteMap(refs Refs, schema api.Resource) []remotemap.Entry {
	return append(i.entries(refs),
		codec.Text("base_url", "baseUrl", true, &i.BaseURL),
		codec.Text("api_path", "apiPath", true, &i.APIPath),
		codec.Text("api_key", "apiKey", true, &i.APIKey),
		multiSelectField("multi_languages", "multiLanguages", &i.MultiLanguages, schema),
		intSetField("categories", "categories", &i.Categories),
		codec.OptionalText("additional_parameters", "additionalParameters", true, &i.AdditionalParameters),
	)
}

// Newznab monitors a Newznab-compatible Usenet indexing site.
type Newznab struct {
	Common                    `yaml:",inline"`
	URL                       string  `yaml:"url"`
	APIPath                   string  `yaml:"api_path"`
	APIKey                    string  `yaml:"api_key"`
	Categories                []int   `yaml:"categories"`
	AnimeCategories           []int   `yaml:"anime_categories"`
	AnimeStandardFormatSearch bool    `yaml:"anime_standard_format_search"`
	AdditionalParameters      *string `yaml:"additional_parameters"`
}

func newNewznab() *Newznab {
	return &Newznab{
		Common:     newCommon(),
		APIPath:    "/api",
		Categories: append([]int(nil), defaultMovieCategories...),
	}
}

func (i *Newznab) Implementation() string { return "Newznab" }

func (i *Newznab) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(i.entries(refs),
		codec.Text("url", "baseUrl", true, &i.URL),
		codec.Text("api_path", "apiPath", true, &i.APIPath),
		codec.Text("api_key", "apiKey", true, &i.APIKey),
		intSetField("categories", "categories", &i.Categories),
		intSetField("anime_categories", "animeCategories", &i.AnimeCategories),
		codec.Bool("anime_standard_format_search", "animeStandardFormatSearch", true, &i.AnimeStandardFormatSearch),
		codec.OptionalText("additional_parameters", "additionalParameters", true, &i.AdditionalParameters),
	)
}

// Nyaa monitors a Nyaa domain for new anime releases.
type Nyaa struct {
	Torrent                   `yaml:",inline"`
	WebsiteURL                string  `yaml:"website_url"`
	AnimeStandardFormatSearch bool    `yaml:"anime_standard_format_search"`
	AdditionalParameters      *string `yaml:"additional_parameters"`
}

func newNyaa() *Nyaa {
	params := "&cats=1_0&filter=1"
	return &Nyaa{Torrent: newTorrent(), AdditionalParameters: &params}
}

func (i *Nyaa) Implementation() string { return "Nyaa" }

func (i *Nyaa) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(i.entries(refs),
		codec.Text("website_url", "websiteUrl", true, &i.WebsiteURL),
		codec.Bool("anime_standard_format_search", "animeStandardFormatSearch", true, &i.AnimeStandardFormatSearch),
		codec.OptionalText("additional_parameters", "additionalParameters", true, &i.AdditionalParameters),
	)
}

// Filelist monitors FileList.io for new releases.
type Filelist struct {
	Torrent         `yaml:",inline"`
	Username        string   `yaml:"username"`
	Passkey         string   `yaml:"passkey"`
	APIURL          string   `yaml:"api_url"`
	Categories      []string `yaml:"categories"`
	AnimeCategories []string `yaml:"anime_categories"`
}

func newFilelist() *Filelist {
	return &Filelist{
		Torrent:    newTorrent(),
		APIURL:     "https://filelist.io",
		Categories: []string{"Movies SD", "Movies HD", "Movies 4K"},
	}
}

func (i *Filelist) Implementation() string { return "FileList" }

func (i *Filelist) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(i.entries(refs),
		codec.Text("username", "username", true, &i.Username),
		codec.Text("passkey", "passKey", true, &i.Passkey),
		codec.Text("api_url", "apiUrl", true, &i.APIURL),
		stringSetField("categories", "categories", &i.Categories),
		stringSetField("anime_categories", "animeCategories", &i.AnimeCategories),
	)
}

// Hdbits monitors HDBits for new releases.
type Hdbits struct {
	Torrent  `yaml:",inline"`
	Username string `yaml:"username"`
	APIKey   string `yaml:"api_key"`
	APIURL   string `yaml:"api_url"`
}

func newHdbits() *Hdbits {
	return &Hdbits{Torrent: newTorrent(), APIURL: "https://hdbits.org"}
}

func (i *Hdbits) Implementation() string { return "HDBits" }

func (i *Hdbits) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(i.entries(refs),
		codec.Text("username", "username", true, &i.Username),
		codec.Text("api_key", "apiKey", true, &i.APIKey),
		codec.Text("api_url", "apiUrl", true, &i.APIURL),
	)
}
