package tags

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

const remoteTags = `[
	{"id": 1, "label": "movies"},
	{"id": 2, "label": "stale"}
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

func TestFromRemote(t *testing.T) {
	t.Parallel()

	env, _ := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, remoteTags)
	}))

	var s Settings
	if err := s.FromRemote(context.Background(), env); err != nil {
		t.Fatalf("FromRemote: %v", err)
	}
	if !reflect.DeepEqual(s.Definitions, []string{"movies", "stale"}) {
		t.Errorf("definitions = %v", s.Definitions)
	}
}

func TestUpdateRemoteCreatesMissing(t *testing.T) {
	t.Parallel()

	var created []map[string]any
	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			io.WriteString(w, remoteTags)
		case r.Method == http.MethodPost:
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode POST body: %v", err)
			}
			created = append(created, body)
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id": 3}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	s := Settings{Definitions: []string{"movies", "anime"}}
	changed, err := s.UpdateRemote(context.Background(), env, true)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if !changed {
		t.Fatal("missing tag not created")
	}
	if len(created) != 1 || created[0]["label"] != "anime" {
		t.Errorf("created = %v", created)
	}
	if !reflect.DeepEqual(rec.CreatedNames, []string{"tag/anime"}) {
		t.Errorf("created names = %v", rec.CreatedNames)
	}
	if !reflect.DeepEqual(rec.UnmanagedNames, []string{"tag/stale"}) {
		t.Errorf("unmanaged = %v", rec.UnmanagedNames)
	}
}

func TestUpdateRemoteNoChanges(t *testing.T) {
	t.Parallel()

	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected write %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, remoteTags)
	}))

	s := Settings{Definitions: []string{"movies", "stale"}}
	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if changed {
		t.Error("UpdateRemote reported changes for existing tags")
	}
	if len(rec.UnchangedNames) != 2 {
		t.Errorf("unchanged = %v", rec.UnchangedNames)
	}
}

func TestDeleteRemote(t *testing.T) {
	t.Parallel()

	var deleted []string
	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, remoteTags)
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	s := Settings{DeleteUnmanaged: true, Definitions: []string{"movies"}}
	changed, err := s.DeleteRemote(context.Background(), env)
	if err != nil {
		t.Fatalf("DeleteRemote: %v", err)
	}
	if !changed {
		t.Fatal("unmanaged tag not deleted")
	}
	if !reflect.DeepEqual(deleted, []string{"/api/v3/tag/2"}) {
		t.Errorf("deleted = %v", deleted)
	}
	if !reflect.DeepEqual(rec.DeletedNames, []string{"tag/stale"}) {
		t.Errorf("deleted names = %v", rec.DeletedNames)
	}

	off := Settings{Definitions: []string{"movies"}}
	envOff, _ := testEnv(t, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	if changed, err := off.DeleteRemote(context.Background(), envOff); err != nil || changed {
		t.Errorf("DeleteRemote with flag off = (%v, %v)", changed, err)
	}
}
