package assistant

import (
	"errors"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(DefaultProfiles())
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return r
}

func TestRegistryRequiresFallback(t *testing.T) {
	_, err := NewRegistry([]Profile{{Name: "safetyauditor"}})
	if err == nil {
		t.Fatal("expected error without fallback profile")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	profiles := []Profile{
		{Name: "safetyauditor"},
		{Name: "Safety Auditor"}, // same after normalization
		fallbackProfile(),
	}
	if _, err := NewRegistry(profiles); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestSnapshotGetNameVariants(t *testing.T) {
	snap := testRegistry(t).Snapshot()

	for _, name := range []string{"safetyauditor", "Safety Auditor", "safety_auditor", "SAFETY-AUDITOR"} {
		p, err := snap.Get(name)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
			continue
		}
		if p.Name != "safetyauditor" {
			t.Errorf("Get(%q) returned %q", name, p.Name)
		}
	}
}

func TestSnapshotGetNotFound(t *testing.T) {
	snap := testRegistry(t).Snapshot()

	_, err := snap.Get("plumbingexpert")
	if err == nil {
		t.Fatal("expected NotFoundError")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
	if len(nf.Valid) != snap.Len() {
		t.Errorf("expected %d valid names, got %d", snap.Len(), len(nf.Valid))
	}
}

func TestSnapshotGetSuggestion(t *testing.T) {
	snap := testRegistry(t).Snapshot()

	_, err := snap.Get("safetyaudit")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Suggestion != "safetyauditor" {
		t.Errorf("expected suggestion %q, got %q", "safetyauditor", nf.Suggestion)
	}
}

func TestSnapshotListOrderStable(t *testing.T) {
	profiles := DefaultProfiles()
	snap := testRegistry(t).Snapshot()

	list := snap.List()
	if len(list) != len(profiles) {
		t.Fatalf("expected %d profiles, got %d", len(profiles), len(list))
	}
	for i := range list {
		if list[i].Name != profiles[i].Name {
			t.Errorf("position %d: expected %q, got %q", i, profiles[i].Name, list[i].Name)
		}
	}
}

func TestReloadDoesNotDisturbOldSnapshot(t *testing.T) {
	reg := testRegistry(t)
	before := reg.Snapshot()
	beforeLen := before.Len()

	next := []Profile{
		{Name: "newspecialist", Description: "replacement roster"},
		fallbackProfile(),
	}
	if err := reg.Reload(next); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	// The snapshot taken before the reload is unchanged.
	if before.Len() != beforeLen {
		t.Errorf("old snapshot mutated: %d -> %d", beforeLen, before.Len())
	}
	if _, err := before.Get("safetyauditor"); err != nil {
		t.Errorf("old snapshot lost a profile: %v", err)
	}

	// The new snapshot reflects the reload.
	after := reg.Snapshot()
	if _, err := after.Get("newspecialist"); err != nil {
		t.Errorf("new snapshot missing new profile: %v", err)
	}
	if _, err := after.Get("safetyauditor"); err == nil {
		t.Error("new snapshot should not contain removed profile")
	}
}

func TestReloadValidationFailureKeepsOldSnapshot(t *testing.T) {
	reg := testRegistry(t)
	before := reg.Snapshot()

	if err := reg.Reload([]Profile{{Name: "orphan"}}); err == nil {
		t.Fatal("expected reload to fail without fallback")
	}
	if reg.Snapshot() != before {
		t.Error("failed reload must keep the previous snapshot")
	}
}

func TestTemperatureClamp(t *testing.T) {
	r := TemperatureRange{Min: 0.2, Max: 0.6}
	cases := []struct{ in, want float64 }{
		{0.0, 0.2},
		{0.4, 0.4},
		{0.9, 0.6},
	}
	for _, tc := range cases {
		if got := r.Clamp(tc.in); got != tc.want {
			t.Errorf("Clamp(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}
