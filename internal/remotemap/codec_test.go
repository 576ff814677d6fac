package remotemap

import (
	"strings"
	"testing"
)

type fakeClient struct {
	Enable   bool
	Priority int
	Host     string
	SeedTime *int
}

func (f *fakeClient) entries() []Entry {
	return []Entry{
		{Local: "enable", Remote: "enable", Get: func() any { return f.Enable }, Set: SetBool(&f.Enable)},
		{Local: "priority", Remote: "priority", Get: func() any { return f.Priority }, Set: SetInt(&f.Priority)},
		{Local: "host", Remote: "host", Field: true, Get: func() any { return f.Host }, Set: SetString(&f.Host)},
		{
			Local: "seed_time", Remote: "seedCriteria.seedTime", Optional: true,
			Get: func() any {
				if f.SeedTime == nil {
					return nil
				}
				return *f.SeedTime
			},
			Set: SetIntPtr(&f.SeedTime),
		},
	}
}

func snapshot() Attrs {
	return Attrs{
		"id":       float64(4),
		"name":     "transmission",
		"enable":   true,
		"priority": float64(1),
		"seedCriteria": map[string]any{
			"seedTime": float64(60),
		},
		"fields": []any{
			map[string]any{"name": "host", "value": "localhost"},
			map[string]any{"name": "port", "value": float64(9091)},
		},
	}
}

func TestDecodeAll(t *testing.T) {
	t.Parallel()

	var f fakeClient
	if err := DecodeAll(f.entries(), snapshot()); err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if !f.Enable || f.Priority != 1 || f.Host != "localhost" {
		t.Errorf("decoded %+v, want enable=true priority=1 host=localhost", f)
	}
	if f.SeedTime == nil || *f.SeedTime != 60 {
		t.Errorf("seed_time = %v, want 60", f.SeedTime)
	}
}

func TestDecodeAllMissingRequired(t *testing.T) {
	t.Parallel()

	var f fakeClient
	remote := snapshot()
	delete(remote, "priority")

	err := DecodeAll(f.entries(), remote)
	if err == nil {
		t.Fatal("expected error for missing required attribute")
	}
	if !strings.Contains(err.Error(), "priority") {
		t.Errorf("error %q does not name the missing attribute", err)
	}
}

func TestDecodeAllOptionalDefault(t *testing.T) {
	t.Parallel()

	var f fakeClient
	remote := snapshot()
	delete(remote, "seedCriteria")

	if err := DecodeAll(f.entries(), remote); err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if f.SeedTime != nil {
		t.Errorf("seed_time = %v, want nil", *f.SeedTime)
	}
}

func TestDiffUnchanged(t *testing.T) {
	t.Parallel()

	seedTime := 60
	f := fakeClient{Enable: true, Priority: 1, Host: "localhost", SeedTime: &seedTime}

	changed, _, changes, err := Diff(f.entries(), snapshot())
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if changed || len(changes) != 0 {
		t.Errorf("changed = %v changes = %v, want none", changed, changes)
	}
}

func TestDiffProducesFullPayload(t *testing.T) {
	t.Parallel()

	seedTime := 60
	f := fakeClient{Enable: true, Priority: 5, Host: "remotehost", SeedTime: &seedTime}

	changed, payload, changes, err := Diff(f.entries(), snapshot())
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !changed || len(changes) != 2 {
		t.Fatalf("changed = %v changes = %v, want priority and host", changed, changes)
	}

	// The payload is the whole snapshot with changed values replaced.
	if payload["id"] != float64(4) || payload["name"] != "transmission" {
		t.Errorf("payload lost untouched attributes: %v", payload)
	}
	if payload["priority"] != 5 {
		t.Errorf("priority = %v, want 5", payload["priority"])
	}
	host, ok := fieldValue(payload, "host")
	if !ok || host != "remotehost" {
		t.Errorf("host field = %v, want remotehost", host)
	}
	if port, _ := fieldValue(payload, "port"); port != float64(9091) {
		t.Errorf("untouched field port = %v, want 9091", port)
	}
}

func TestDiffDoesNotMutateSnapshot(t *testing.T) {
	t.Parallel()

	f := fakeClient{Enable: true, Priority: 9, Host: "elsewhere"}
	snap := snapshot()

	if _, _, _, err := Diff(f.entries(), snap); err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if snap["priority"] != float64(1) {
		t.Errorf("snapshot mutated: priority = %v", snap["priority"])
	}
	if host, _ := fieldValue(snap, "host"); host != "localhost" {
		t.Errorf("snapshot mutated: host = %v", host)
	}
}

func TestCreateAttrsFromSchema(t *testing.T) {
	t.Parallel()

	f := fakeClient{Enable: true, Priority: 2, Host: "box"}
	schema := Attrs{
		"id":             float64(0),
		"implementation": "Transmission",
		"enable":         false,
		"priority":       float64(1),
		"fields": []any{
			map[string]any{"name": "host", "value": ""},
			map[string]any{"name": "port", "value": float64(9091)},
		},
	}

	payload, err := CreateAttrs(f.entries(), schema, "seedbox")
	if err != nil {
		t.Fatalf("CreateAttrs: %v", err)
	}
	if _, ok := payload["id"]; ok {
		t.Error("payload carries the schema template id")
	}
	if payload["name"] != "seedbox" || payload["implementation"] != "Transmission" {
		t.Errorf("payload = %v", payload)
	}
	if payload["enable"] != true || payload["priority"] != 2 {
		t.Errorf("mapped attrs not applied: %v", payload)
	}
	if host, _ := fieldValue(payload, "host"); host != "box" {
		t.Errorf("host = %v, want box", host)
	}
	// Unmapped schema fields keep their defaults.
	if port, _ := fieldValue(payload, "port"); port != float64(9091) {
		t.Errorf("port = %v, want schema default 9091", port)
	}
}

func TestCreateAttrsUnknownField(t *testing.T) {
	t.Parallel()

	f := fakeClient{Host: "box"}
	schema := Attrs{"fields": []any{map[string]any{"name": "port", "value": float64(1)}}}

	if _, err := CreateAttrs(f.entries(), schema, "x"); err == nil {
		t.Fatal("expected error for field missing from schema")
	}
}

func TestLooseEqual(t *testing.T) {
	t.Parallel()

	n := 3
	cases := []struct {
		name string
		a, b any
		want bool
	}{
		{"int_vs_float", 3, float64(3), true},
		{"ptr_deref", &n, float64(3), true},
		{"nil_ptr", (*int)(nil), nil, true},
		{"int_slice_vs_any_slice", []int{1, 2}, []any{float64(1), float64(2)}, true},
		{"different_values", 3, float64(4), false},
		{"nested_maps", map[string]any{"a": 1}, map[string]any{"a": float64(1)}, true},
	}
	for _, tc := range cases {
		if got := LooseEqual(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: LooseEqual(%v, %v) = %v, want %v", tc.name, tc.a, tc.b, got, tc.want)
		}
	}
}
