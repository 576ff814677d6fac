package ui

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/reconcile"
)

const languages = `[
	{"id": -2, "name": "Original"},
	{"id": 1, "name": "English"},
	{"id": 4, "name": "German"}
]`

const uiConfig = `{
	"id": 1,
	"firstDayOfWeek": 0,
	"calendarWeekColumnHeader": "ddd M/D",
	"movieRuntimeFormat": "hoursMinutes",
	"shortDateFormat": "MMM D YYYY",
	"longDateFormat": "dddd, MMMM D YYYY",
	"timeFormat": "h(:mm)a",
	"showRelativeDates": true,
	"theme": "light",
	"enableColorImpairedMode": false,
	"movieInfoLanguage": -2,
	"uiLanguage": 1
}`

func testEnv(t *testing.T, handler http.Handler) (reconcile.Env, *reconcile.Recorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &reconcile.Recorder{}
	return reconcile.Env{
		Client: api.NewClient(srv.URL, "test-key", logger),
		Log:    logger,
		Report: rec,
	}, rec
}

func TestFromRemote(t *testing.T) {
	t.Parallel()

	env, _ := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/language":
			io.WriteString(w, languages)
		case "/api/v3/config/ui":
			io.WriteString(w, uiConfig)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	var s Settings
	if err := s.FromRemote(context.Background(), env); err != nil {
		t.Fatalf("FromRemote: %v", err)
	}
	if s.FirstDayOfWeek != "sunday" || s.TimeFormat != "twelve-hour" {
		t.Errorf("decoded %+v", s)
	}
	if s.MovieInfoLanguage != "original" || s.UILanguage != "english" {
		t.Errorf("languages = %q / %q", s.MovieInfoLanguage, s.UILanguage)
	}
}

func TestUpdateRemoteUnchanged(t *testing.T) {
	t.Parallel()

	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/language":
			io.WriteString(w, languages)
		case "/api/v3/config/ui":
			if r.Method != http.MethodGet {
				t.Errorf("unexpected write %s %s", r.Method, r.URL.Path)
			}
			io.WriteString(w, uiConfig)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	s := Defaults()
	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if changed {
		t.Error("UpdateRemote reported drift for matching config")
	}
	if len(rec.UnchangedNames) != 1 {
		t.Errorf("unchanged = %v", rec.UnchangedNames)
	}
}

func TestUpdateRemoteThemeChange(t *testing.T) {
	t.Parallel()

	var putBody map[string]any
	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/language":
			io.WriteString(w, languages)
		case r.URL.Path == "/api/v3/config/ui" && r.Method == http.MethodGet:
			io.WriteString(w, uiConfig)
		case r.URL.Path == "/api/v3/config/ui/1" && r.Method == http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&putBody); err != nil {
				t.Errorf("decode PUT body: %v", err)
			}
			io.WriteString(w, "{}")
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	s := Defaults()
	s.Theme = "dark"
	s.UILanguage = "german"

	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if !changed {
		t.Fatal("theme change not detected")
	}
	if putBody["theme"] != "dark" {
		t.Errorf("theme = %v", putBody["theme"])
	}
	if putBody["uiLanguage"] != float64(4) {
		t.Errorf("uiLanguage = %v, want 4", putBody["uiLanguage"])
	}
	// Untouched attributes ride along in the full payload.
	if putBody["shortDateFormat"] != "MMM D YYYY" {
		t.Errorf("payload lost untouched attributes: %v", putBody)
	}
	if len(rec.UpdatedNames) != 1 {
		t.Errorf("updated = %v", rec.UpdatedNames)
	}
}

func TestValidateReservedLanguages(t *testing.T) {
	t.Parallel()

	s := Defaults()
	s.MovieInfoLanguage = "any"
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "movie_info_language") {
		t.Errorf("err = %v", err)
	}

	s = Defaults()
	s.UILanguage = "Original"
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "ui_language") {
		t.Errorf("err = %v", err)
	}

	s = Defaults()
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
