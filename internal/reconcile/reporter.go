package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/declarr/declarr/internal/remotemap"
)

// Reporter receives reconciliation outcomes. Implementations decide how to
// surface them; the engine itself never logs directly.
type Reporter interface {
	Created(kind, name string)
	Updated(kind, name string, changes []remotemap.Change)
	Deleted(kind, name string)
	Unmanaged(kind, name string)
	Unchanged(kind, name string)
}

// LogReporter writes outcomes to a structured logger. Creates, updates and
// deletes log at info; untouched resources at debug.
type LogReporter struct {
	Log *slog.Logger
}

func (r LogReporter) Created(kind, name string) {
	r.Log.Info("created", slog.String("kind", kind), slog.String("name", name))
}

func (r LogReporter) Updated(kind, name string, changes []remotemap.Change) {
	attrs := []any{slog.String("kind", kind), slog.String("name", name)}
	for _, c := range changes {
		attrs = append(attrs, slog.String(c.Local, fmt.Sprintf("%v -> %v", c.Old, c.New)))
	}
	r.Log.Info("updated", attrs...)
}

func (r LogReporter) Deleted(kind, name string) {
	r.Log.Info("deleted", slog.String("kind", kind), slog.String("name", name))
}

func (r LogReporter) Unmanaged(kind, name string) {
	r.Log.Warn("unmanaged resource on remote instance",
		slog.String("kind", kind), slog.String("name", name))
}

func (r LogReporter) Unchanged(kind, name string) {
	r.Log.Debug("up to date", slog.String("kind", kind), slog.String("name", name))
}

// Recorder collects outcomes for inspection, mainly in tests.
type Recorder struct {
	CreatedNames   []string
	UpdatedNames   []string
	DeletedNames   []string
	UnmanagedNames []string
	UnchangedNames []string
	Changes        map[string][]remotemap.Change
}

func (r *Recorder) Created(kind, name string) {
	r.CreatedNames = append(r.CreatedNames, kind+"/"+name)
}

func (r *Recorder) Updated(kind, name string, changes []remotemap.Change) {
	r.UpdatedNames = append(r.UpdatedNames, kind+"/"+name)
	if r.Changes == nil {
		r.Changes = map[string][]remotemap.Change{}
	}
	r.Changes[kind+"/"+name] = changes
}

func (r *Recorder) Deleted(kind, name string) {
	r.DeletedNames = append(r.DeletedNames, kind+"/"+name)
}

func (r *Recorder) Unmanaged(kind, name string) {
	r.UnmanagedNames = append(r.UnmanagedNames, kind+"/"+name)
}

func (r *Recorder) Unchanged(kind, name string) {
	r.UnchangedNames = append(r.UnchangedNames, kind+"/"+name)
}
