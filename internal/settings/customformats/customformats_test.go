package customformats

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/reconcile"
)

const remoteFormat = `[{
	"id": 7,
	"name": "remaster",
	"includeCustomFormatWhenRenaming": false,
	"specifications": [
		{
			"name": "title",
			"implementation": "ReleaseTitleSpecification",
			"negate": false,
			"required": true,
			"fields": [{"name": "value", "value": "\\bremaster\\b"}]
		},
		{
			"name": "size",
			"implementation": "SizeSpecification",
			"negate": false,
			"required": false,
			"fields": [
				{"name": "min", "value": 1},
				{"name": "max", "value": 40}
			]
		}
	]
}]`

const conditionSchemas = `[{
	"name": "ReleaseTitleSpecification",
	"implementation": "ReleaseTitleSpecification",
	"negate": false,
	"required": false,
	"fields": [{"name": "value", "value": ""}]
}]`

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

func managedFormat(t *testing.T) *CustomFormat {
	t.Helper()
	doc := `
conditions:
  title:
    type: release_title
    required: true
    regex: \bremaster\b
  size:
    type: size
    min: 1
    max: 40
`
	var f CustomFormat
	if err := yaml.Unmarshal([]byte(doc), &f); err != nil {
		t.Fatalf("unmarshal format: %v", err)
	}
	return &f
}

func TestConditionsYAML(t *testing.T) {
	t.Parallel()

	f := managedFormat(t)
	title, ok := f.Conditions["title"].(*ReleaseTitleCondition)
	if !ok {
		t.Fatalf("title = %T, want *ReleaseTitleCondition", f.Conditions["title"])
	}
	if title.Regex != `\bremaster\b` || !title.Required {
		t.Errorf("title = %+v", title)
	}
	size, ok := f.Conditions["size"].(*SizeCondition)
	if !ok {
		t.Fatalf("size = %T, want *SizeCondition", f.Conditions["size"])
	}
	if size.Min != 1 || size.Max != 40 {
		t.Errorf("size = %+v", size)
	}
}

func TestConditionsYAMLUnknownType(t *testing.T) {
	t.Parallel()

	doc := "conditions:\n  oops:\n    type: holographic\n"
	var f CustomFormat
	err := yaml.Unmarshal([]byte(doc), &f)
	if err == nil || !strings.Contains(err.Error(), "holographic") {
		t.Fatalf("err = %v, want unknown type error", err)
	}
}

func TestFromRemote(t *testing.T) {
	t.Parallel()

	env, _ := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/customformat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, remoteFormat)
	}))

	var s Settings
	if err := s.FromRemote(context.Background(), env); err != nil {
		t.Fatalf("FromRemote: %v", err)
	}
	f := s.Definitions["remaster"]
	if f == nil {
		t.Fatalf("definitions = %v", s.Definitions)
	}
	title, ok := f.Conditions["title"].(*ReleaseTitleCondition)
	if !ok || title.Regex != `\bremaster\b` || !title.Required {
		t.Errorf("title = %+v", f.Conditions["title"])
	}
	size, ok := f.Conditions["size"].(*SizeCondition)
	if !ok || size.Min != 1 || size.Max != 40 {
		t.Errorf("size = %+v", f.Conditions["size"])
	}
}

func TestUpdateRemoteNoChanges(t *testing.T) {
	t.Parallel()

	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/customformat":
			if r.Method != http.MethodGet {
				t.Errorf("unexpected write %s %s", r.Method, r.URL.Path)
			}
			io.WriteString(w, remoteFormat)
		case "/api/v3/customformat/schema":
			io.WriteString(w, conditionSchemas)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	s := Settings{Definitions: map[string]*CustomFormat{"remaster": managedFormat(t)}}
	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if changed {
		t.Error("UpdateRemote reported drift for matching format")
	}
	if len(rec.UnchangedNames) != 1 {
		t.Errorf("unchanged = %v", rec.UnchangedNames)
	}
}

func TestUpdateRemoteConditionDrift(t *testing.T) {
	t.Parallel()

	var putBody map[string]any
	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/customformat" && r.Method == http.MethodGet:
			io.WriteString(w, remoteFormat)
		case r.URL.Path == "/api/v3/customformat/schema":
			io.WriteString(w, conditionSchemas)
		case r.URL.Path == "/api/v3/customformat/7" && r.Method == http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&putBody); err != nil {
				t.Errorf("decode PUT body: %v", err)
			}
			io.WriteString(w, "{}")
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	f := managedFormat(t)
	f.Conditions["title"].(*ReleaseTitleCondition).Regex = `remaster|restored`

	s := Settings{Definitions: map[string]*CustomFormat{"remaster": f}}
	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if !changed {
		t.Fatal("condition drift not detected")
	}
	if len(rec.UpdatedNames) != 1 || rec.UpdatedNames[0] != "custom format/remaster" {
		t.Errorf("updated = %v", rec.UpdatedNames)
	}

	specs, ok := putBody["specifications"].([]any)
	if !ok || len(specs) != 2 {
		t.Fatalf("specifications = %v", putBody["specifications"])
	}
	// Managed conditions are emitted in name order, size before title.
	title := specs[1].(map[string]any)
	fields := title["fields"].([]any)
	if got := fields[0].(map[string]any)["value"]; got != "remaster|restored" {
		t.Errorf("title regex = %v", got)
	}
	// The untouched condition keeps its remote attributes.
	if title["implementation"] != "ReleaseTitleSpecification" {
		t.Errorf("implementation lost: %v", title)
	}
}

func TestUpdateRemoteUnmanagedConditionKept(t *testing.T) {
	t.Parallel()

	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/customformat":
			if r.Method != http.MethodGet {
				t.Errorf("unexpected write %s %s", r.Method, r.URL.Path)
			}
			io.WriteString(w, remoteFormat)
		case "/api/v3/customformat/schema":
			io.WriteString(w, conditionSchemas)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	f := managedFormat(t)
	delete(f.Conditions, "size")

	s := Settings{Definitions: map[string]*CustomFormat{"remaster": f}}
	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if changed {
		t.Error("keeping an unmanaged condition must not count as drift")
	}
	if len(rec.UnmanagedNames) != 1 || rec.UnmanagedNames[0] != "custom format remaster condition/size" {
		t.Errorf("unmanaged = %v", rec.UnmanagedNames)
	}
}

func TestUpdateRemoteDropsUnmanagedCondition(t *testing.T) {
	t.Parallel()

	var putBody map[string]any
	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/customformat" && r.Method == http.MethodGet:
			io.WriteString(w, remoteFormat)
		case r.URL.Path == "/api/v3/customformat/schema":
			io.WriteString(w, conditionSchemas)
		case r.URL.Path == "/api/v3/customformat/7" && r.Method == http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&putBody); err != nil {
				t.Errorf("decode PUT body: %v", err)
			}
			io.WriteString(w, "{}")
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	f := managedFormat(t)
	delete(f.Conditions, "size")
	f.DeleteUnmanagedConditions = true

	s := Settings{Definitions: map[string]*CustomFormat{"remaster": f}}
	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if !changed {
		t.Fatal("dropping a condition must push the format")
	}
	specs := putBody["specifications"].([]any)
	if len(specs) != 1 {
		t.Fatalf("specifications = %v, want only the managed condition", specs)
	}
	if len(rec.DeletedNames) != 1 || rec.DeletedNames[0] != "custom format remaster condition/size" {
		t.Errorf("deleted = %v", rec.DeletedNames)
	}
}

func TestUpdateRemoteCreatesFormat(t *testing.T) {
	t.Parallel()

	var postBody map[string]any
	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/customformat" && r.Method == http.MethodGet:
			io.WriteString(w, "[]")
		case r.URL.Path == "/api/v3/customformat/schema":
			io.WriteString(w, conditionSchemas)
		case r.URL.Path == "/api/v3/customformat" && r.Method == http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&postBody); err != nil {
				t.Errorf("decode POST body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id": 11}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	f := managedFormat(t)
	delete(f.Conditions, "size")

	s := Settings{Definitions: map[string]*CustomFormat{"remaster": f}}
	changed, err := s.UpdateRemote(context.Background(), env, false)
	if err != nil {
		t.Fatalf("UpdateRemote: %v", err)
	}
	if !changed {
		t.Fatal("missing format not created")
	}
	if postBody["name"] != "remaster" {
		t.Errorf("name = %v", postBody["name"])
	}
	specs := postBody["specifications"].([]any)
	if len(specs) != 1 {
		t.Fatalf("specifications = %v", specs)
	}
	spec := specs[0].(map[string]any)
	if spec["name"] != "title" || spec["implementation"] != "ReleaseTitleSpecification" {
		t.Errorf("spec = %v", spec)
	}
	if spec["required"] != true {
		t.Errorf("required = %v", spec["required"])
	}
	if len(rec.CreatedNames) != 1 {
		t.Errorf("created = %v", rec.CreatedNames)
	}
}

func TestDeleteRemote(t *testing.T) {
	t.Parallel()

	var deleted []string
	env, rec := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v3/customformat" && r.Method == http.MethodGet:
			io.WriteString(w, remoteFormat)
		case r.Method == http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	s := Settings{DeleteUnmanaged: true}
	changed, err := s.DeleteRemote(context.Background(), env)
	if err != nil {
		t.Fatalf("DeleteRemote: %v", err)
	}
	if !changed {
		t.Fatal("unmanaged format not deleted")
	}
	if len(deleted) != 1 || deleted[0] != "/api/v3/customformat/7" {
		t.Errorf("deleted = %v", deleted)
	}
	if len(rec.DeletedNames) != 1 || rec.DeletedNames[0] != "custom format/remaster" {
		t.Errorf("deleted names = %v", rec.DeletedNames)
	}
}
