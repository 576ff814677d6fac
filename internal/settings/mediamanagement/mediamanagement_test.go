package mediamanagement

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/reconcile"
)

const namingConfig = `{
	"id": 1,
	"renameMovies": false,
	"replaceIllegalCharacters": true,
	"colonReplacementFormat": "delete",
	"standardMovieFormat": "{Movie Title} ({Release Year}) {Quality Full}",
	"movieFolderFormat": "{Movie Title} ({Release Year})"
}`

const managementConfig = `{
	"id": 1,
	"createEmptyMovieFolders": false,
	"deleteEmptyFolders": false,
	"skipFreeSpaceCheckWhenImporting": false,
	"minimumFreeSpaceWhenImporting": 100,
	"copyUsingHardlinks": true,
	"importExtraFiles": false,
	"autoUnmonitorPreviouslyDownloadedMovies": false,
	"downloadPropersAndRepacks": "doNotPrefer",
	"enableMediaInfo": true,
	"rescanAfterRefresh": "always",
	"fileDate": "none",
	"recycleBin": "",
	"recycleBinCleanupDays": 7,
	"setPermissionsLinux": false,
	"chmodFolder": "755",
	"chownGroup": ""
}`

const rootFolders = `[
	{"id": 3, "path": "/movies", "freeSpace": 100},
	{"id": 5, "path": "/staging", "freeSpace": 100}
]`

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

func serveDefaults(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/config/naming":
			io.WriteString(w, namingConfig)
		case "/api/v3/config/mediamanagement":
			io.WriteString(w, managementConfig)
		case "/api/v3/rootfolder":
			io.WriteString(w, rootFolders)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}
}

func TestFromRemote(t *testing.T) {
	t.Parallel()

	env, _ := testEnv(t, serveDefaults(t))

	var s Settings
	if err := s.FromRemote(context.Background(), env); err != nil {
		t.Fatalf("FromRemote: %v", err)
	}
	if s.ColonReplacement != "delete" || !s.ReplaceIllegalCharacters {
		t.Errorf("naming = %+v", s)
	}
	if s.PropersAndRepacks != "do-not-prefer" || s.ChangeFileDate != "none" {
		t.Errorf("management = %+v", s)
	}
	if s.RecyclingBin != nil {
		t.Errorf("recycling_bin = %v, want nil for empty remote value", *s.RecyclingBin)
	}
	if !reflect.DeepEqual(s.RootFolders.Definitions, []string{"/movies", "/staging"}) {
		t.Errorf("root folders = %v", s.RootFolders.Definitions)
	}
}

func TestUpdateRemoteUnchanged(t *testing.T) {
	t.Parallel()

	env, rec := testEnv(t, serveDefaults(t))

	s := Defaults()
	s.RootFolders.Definitions = []string{"/movies", "/staging"}
	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if changed {
		t.Error("UpdateRemote reported drift for matching config")
	}
	// Both singletons plus both folders report as unchanged.
	if len(rec.UnchangedNames) != 4 {
		t.Errorf("unchanged = %v", rec.UnchangedNames)
	}
}

func TestUpdateRemoteNamingDrift(t *testing.T) {
	t.Parallel()

	var putBody map[string]any
	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/config/naming" && r.Method == http.MethodGet:
			io.WriteString(w, namingConfig)
		case r.URL.Path == "/api/v3/config/naming/1" && r.Method == http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&putBody); err != nil {
				t.Errorf("decode PUT body: %v", err)
			}
			io.WriteString(w, "{}")
		case r.URL.Path == "/api/v3/config/mediamanagement":
			io.WriteString(w, managementConfig)
		case r.URL.Path == "/api/v3/rootfolder":
			io.WriteString(w, rootFolders)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	s := Defaults()
	s.RenameMovies = true
	s.ColonReplacement = "space-dash-space"
	s.RootFolders.Definitions = []string{"/movies", "/staging"}

	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if !changed {
		t.Fatal("naming drift not detected")
	}
	if putBody["renameMovies"] != true {
		t.Errorf("renameMovies = %v", putBody["renameMovies"])
	}
	if putBody["colonReplacementFormat"] != "spaceDashSpace" {
		t.Errorf("colonReplacementFormat = %v", putBody["colonReplacementFormat"])
	}
	if len(rec.UpdatedNames) != 1 || rec.UpdatedNames[0] != "naming config/config" {
		t.Errorf("updated = %v", rec.UpdatedNames)
	}
}

func TestUpdateRemoteCreatesRootFolder(t *testing.T) {
	t.Parallel()

	var created []map[string]any
	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/config/naming":
			io.WriteString(w, namingConfig)
		case r.URL.Path == "/api/v3/config/mediamanagement":
			io.WriteString(w, managementConfig)
		case r.URL.Path == "/api/v3/rootfolder" && r.Method == http.MethodGet:
			io.WriteString(w, rootFolders)
		case r.URL.Path == "/api/v3/rootfolder" && r.Method == http.MethodPost:
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode POST body: %v", err)
			}
			created = append(created, body)
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id": 9}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	s := Defaults()
	s.RootFolders.Definitions = []string{"/movies", "/staging", "/anime"}

	changed, err := s.UpdateRemote(context.Background(), env, true)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if !changed {
		t.Fatal("missing root folder not detected")
	}
	if len(created) != 1 || created[0]["path"] != "/anime" {
		t.Errorf("created = %v", created)
	}
	if len(rec.CreatedNames) != 1 || rec.CreatedNames[0] != "root folder//anime" {
		t.Errorf("created names = %v", rec.CreatedNames)
	}
	if len(rec.UnmanagedNames) != 0 {
		t.Errorf("unmanaged = %v", rec.UnmanagedNames)
	}
}

func TestUpdateRemoteReportsUnmanagedFolder(t *testing.T) {
	t.Parallel()

	env, rec := testEnv(t, serveDefaults(t))

	s := Defaults()
	s.RootFolders.Definitions = []string{"/movies"}

	if _, err := s.UpdateRemote(context.Background(), env, true); err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if len(rec.UnmanagedNames) != 1 || rec.UnmanagedNames[0] != "root folder//staging" {
		t.Errorf("unmanaged = %v", rec.UnmanagedNames)
	}
}

func TestDeleteRemote(t *testing.T) {
	t.Parallel()

	var deleted []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/rootfolder" && r.Method == http.MethodGet:
			io.WriteString(w, rootFolders)
		case r.Method == http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	env, rec := testEnv(t, handler)
	s := Defaults()
	s.RootFolders.DeleteUnmanaged = true
	s.RootFolders.Definitions = []string{"/movies"}

	changed, err := s.DeleteRemote(context.Background(), env)
	if err != nil {
		t.Fatalf("DeleteRemote: %v", err)
	}
	if !changed {
		t.Fatal("unmanaged folder not deleted")
	}
	if len(deleted) != 1 || deleted[0] != "/api/v3/rootfolder/5" {
		t.Errorf("deleted = %v", deleted)
	}
	if len(rec.DeletedNames) != 1 || rec.DeletedNames[0] != "root folder//staging" {
		t.Errorf("deleted names = %v", rec.DeletedNames)
	}

	// Disabled flag never touches the remote.
	off := Defaults()
	envOff, _ := testEnv(t, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	if changed, err := off.DeleteRemote(context.Background(), envOff); err != nil || changed {
		t.Errorf("DeleteRemote with flag off = (%v, %v)", changed, err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	s := Defaults()
	if err := s.Validate(); err != nil {
		t.Errorf("Validate defaults: %v", err)
	}

	s.MinimumFreeSpace = 50
	if err := s.Validate(); err == nil {
		t.Error("expected error for free space below 100 MB")
	}

	s = Defaults()
	s.RecyclingBinCleanup = -1
	if err := s.Validate(); err == nil {
		t.Error("expected error for negative cleanup days")
	}
}
