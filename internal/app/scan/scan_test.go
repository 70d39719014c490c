package scan

import (
	"testing"

	"github.com/MOYARU/driftwatch/internal/store"
)

func TestFindOrCreateTarget(t *testing.T) {
	s, err := store.Open(store.InMemory)
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}

	first, err := FindOrCreateTarget(s, 1, "https://example.com")
	if err != nil {
		t.Fatalf("FindOrCreateTarget() error: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected a persisted target")
	}
	if first.Domain != "example.com" {
		t.Fatalf("Domain = %q, want example.com", first.Domain)
	}
	if first.ScheduleEnabled {
		t.Fatal("one-shot registration must not enable the schedule")
	}
	if first.Frequency != store.FrequencyDaily {
		t.Fatalf("Frequency = %q, want daily", first.Frequency)
	}

	again, err := FindOrCreateTarget(s, 1, "https://example.com")
	if err != nil {
		t.Fatalf("FindOrCreateTarget() second call error: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected the existing target back, got %d and %d", first.ID, again.ID)
	}

	other, err := FindOrCreateTarget(s, 2, "https://example.com")
	if err != nil {
		t.Fatalf("FindOrCreateTarget() for second user error: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("targets must be scoped per user")
	}
}
