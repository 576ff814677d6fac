// Package ui manages the user interface configuration singleton: calendar
// and date formats, theme, and display languages.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/reconcile"
	"github.com/declarr/declarr/internal/remotemap"
	"github.com/declarr/declarr/internal/settings/codec"
)

const configPath = "/api/v3/config/ui"

// Settings holds the user interface configuration.
type Settings struct {
	// Calendar.
	FirstDayOfWeek   string `yaml:"first_day_of_week"`
	WeekColumnHeader string `yaml:"week_column_header"`

	// Movies.
	RuntimeFormat string `yaml:"runtime_format"`

	// Dates.
	ShortDateFormat   string `yaml:"short_date_format"`
	LongDateFormat    string `yaml:"long_date_format"`
	TimeFormat        string `yaml:"time_format"`
	ShowRelativeDates bool   `yaml:"show_relative_dates"`

	// Style.
	Theme                   string `yaml:"theme"`
	EnableColorImpairedMode bool   `yaml:"enable_color_impaired_mode"`

	// Language.
	MovieInfoLanguage string `yaml:"movie_info_language"`
	UILanguage        string `yaml:"ui_language"`
}

// Defaults returns the settings Radarr ships with.
func Defaults() Settings {
	return Settings{
		FirstDayOfWeek:    "sunday",
		WeekColumnHeader:  "month-first",
		RuntimeFormat:     "hours-minutes",
		ShortDateFormat:   "word-month-first",
		LongDateFormat:    "month-first",
		TimeFormat:        "twelve-hour",
		ShowRelativeDates: true,
		Theme:             "light",
		MovieInfoLanguage: "original",
		UILanguage:        "english",
	}
}

// Validate rejects the reserved language values that have remote ids but are
// not valid choices here.
func (s *Settings) Validate() error {
	s.MovieInfoLanguage = strings.ToLower(s.MovieInfoLanguage)
	s.UILanguage = strings.ToLower(s.UILanguage)
	if s.MovieInfoLanguage == "any" {
		return fmt.Errorf("reserved language value %q cannot be used for movie_info_language", "any")
	}
	if s.UILanguage == "any" || s.UILanguage == "original" {
		return fmt.Errorf("reserved language value %q cannot be used for ui_language", s.UILanguage)
	}
	return nil
}

func (s *Settings) entries(languages api.Languages) []remotemap.Entry {
	return []remotemap.Entry{
		codec.Enum("first_day_of_week", "firstDayOfWeek", false, &s.FirstDayOfWeek, map[string]any{
			"sunday": 0,
			"monday": 1,
		}),
		codec.Enum("week_column_header", "calendarWeekColumnHeader", false, &s.WeekColumnHeader, map[string]any{
			"month-first":        "ddd M/D",
			"month-first-padded": "ddd MM/DD",
			"day-first":          "ddd D/M",
			"day-first-padded":   "ddd DD/MM",
		}),
		codec.Enum("runtime_format", "movieRuntimeFormat", false, &s.RuntimeFormat, map[string]any{
			"hours-minutes": "hoursMinutes",
			"minutes":       "minutes",
		}),
		codec.Enum("short_date_format", "shortDateFormat", false, &s.ShortDateFormat, map[string]any{
			"word-month-first":         "MMM D YYYY",
			"word-month-second":        "DD MMM YYYY",
			"slash-month-first":        "MM/D/YYYY",
			"slash-month-first-padded": "MM/DD/YYYY",
			"slash-day-first":          "DD/MM/YYYY",
			"iso8601":                  "YYYY-MM-DD",
		}),
		codec.Enum("long_date_format", "longDateFormat", false, &s.LongDateFormat, map[string]any{
			"month-first": "dddd, MMMM D YYYY",
			"day-first":   "dddd, D MMMM YYYY",
		}),
		codec.Enum("time_format", "timeFormat", false, &s.TimeFormat, map[string]any{
			"twelve-hour":     "h(:mm)a",
			"twentyfour-hour": "HH:mm",
		}),
		codec.Bool("show_relative_dates", "showRelativeDates", false, &s.ShowRelativeDates),
		codec.Enum("theme", "theme", false, &s.Theme, map[string]any{
			"auto":  "auto",
			"light": "light",
			"dark":  "dark",
		}),
		codec.Bool("enable_color_impaired_mode", "enableColorImpairedMode", false, &s.EnableColorImpairedMode),
		languageEntry("movie_info_language", "movieInfoLanguage", &s.MovieInfoLanguage, languages),
		languageEntry("ui_language", "uiLanguage", &s.UILanguage, languages),
	}
}

// languageEntry maps a lowercase language name to its remote numeric id.
func languageEntry(local, remote string, p *string, languages api.Languages) remotemap.Entry {
	return remotemap.Entry{
		Local:  local,
		Remote: remote,
		Get:    func() any { return *p },
		Set:    remotemap.SetString(p),
		Decode: func(v any) (any, error) {
			id, err := remotemap.AsInt(v)
			if err != nil {
				return nil, err
			}
			lang, ok := languages.ByID(id)
			if !ok {
				return nil, fmt.Errorf("remote language id %d has no known name", id)
			}
			return strings.ToLower(lang.Name), nil
		},
		Encode: func(v any) (any, error) {
			name, err := remotemap.AsString(v)
			if err != nil {
				return nil, err
			}
			lang, err := languages.Get(name)
			if err != nil {
				return nil, err
			}
			return lang.ID, nil
		},
	}
}

// FromRemote replaces the settings with the remote's current configuration.
func (s *Settings) FromRemote(ctx context.Context, env reconcile.Env) error {
	languages, err := env.Client.Languages(ctx)
	if err != nil {
		return err
	}
	return reconcile.DecodeSingleton(ctx, env, "ui config", configPath, s.entries(languages))
}

// UpdateRemote pushes the UI config when drifted.
func (s *Settings) UpdateRemote(ctx context.Context, env reconcile.Env, _ bool) (bool, error) {
	languages, err := env.Client.Languages(ctx)
	if err != nil {
		return false, err
	}
	return reconcile.SyncSingleton(ctx, env, "ui config", configPath, s.entries(languages))
}

// DeleteRemote is a no-op: the UI config always exists.
func (s *Settings) DeleteRemote(context.Context, reconcile.Env) (bool, error) {
	return false, nil
}
