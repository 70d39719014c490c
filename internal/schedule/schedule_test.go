package schedule

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MOYARU/driftwatch/internal/config"
	"github.com/MOYARU/driftwatch/internal/pipeline"
	"github.com/MOYARU/driftwatch/internal/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, *store.Store) {
	t.Helper()
	s, err := store.Open(store.InMemory)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	policy := config.DefaultPolicy()
	policy.HostRequestsPerSec = 100
	return New(s, pipeline.New(s, policy), 2, 60), s
}

func dueTarget(t *testing.T, s *store.Store, userID uint, url string) *store.Target {
	t.Helper()
	past := time.Now().Add(-time.Minute)
	target := &store.Target{
		UserID:          userID,
		URL:             url,
		ScheduleEnabled: true,
		Frequency:       store.FrequencyHourly,
		NextRunAt:       &past,
	}
	if err := s.Targets().Create(target); err != nil {
		t.Fatalf("create target: %v", err)
	}
	return target
}

func TestRunDueScansAndAdvances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	sched, s := newTestScheduler(t)
	first := dueTarget(t, s, 1, server.URL)
	second := dueTarget(t, s, 2, server.URL)

	before := time.Now()
	result, err := sched.RunDue(context.Background())
	if err != nil {
		t.Fatalf("run due: %v", err)
	}

	if result.Due != 2 || result.Claimed != 2 || result.Succeeded != 2 {
		t.Fatalf("batch = due %d claimed %d succeeded %d, want 2/2/2", result.Due, result.Claimed, result.Succeeded)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}
	if result.RunID == "" {
		t.Error("batch should carry a run id")
	}

	for _, target := range []*store.Target{first, second} {
		reloaded, err := s.Targets().ByID(target.ID)
		if err != nil {
			t.Fatalf("reload target %d: %v", target.ID, err)
		}
		if reloaded.NextRunAt == nil || !reloaded.NextRunAt.After(before) {
			t.Errorf("target %d next run should advance past now", target.ID)
		}
		rows, err := s.Assessments().ListByTarget(target.ID, 0)
		if err != nil {
			t.Fatalf("list assessments: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("target %d should have 1 assessment, got %d", target.ID, len(rows))
		}
	}
}

func TestRunDueTwiceDoesNotDoubleProcess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	sched, s := newTestScheduler(t)
	target := dueTarget(t, s, 1, server.URL)

	if _, err := sched.RunDue(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	again, err := sched.RunDue(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.Due != 0 || again.Succeeded != 0 {
		t.Fatalf("second run should find nothing due, got due %d succeeded %d", again.Due, again.Succeeded)
	}

	rows, err := s.Assessments().ListByTarget(target.ID, 0)
	if err != nil {
		t.Fatalf("list assessments: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("target should still have exactly 1 assessment, got %d", len(rows))
	}
}

func TestRunDueIsolatesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	sched, s := newTestScheduler(t)
	bad := dueTarget(t, s, 1, "http://")
	good := dueTarget(t, s, 2, server.URL)

	result, err := sched.RunDue(context.Background())
	if err != nil {
		t.Fatalf("run due: %v", err)
	}

	if result.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", result.Succeeded)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(result.Failures))
	}
	if result.Failures[0].TargetID != bad.ID {
		t.Errorf("failure should name the bad target, got %d", result.Failures[0].TargetID)
	}
	if result.Failures[0].Reason == "" {
		t.Error("failure should carry a scrubbed reason")
	}

	rows, err := s.Assessments().ListByTarget(good.ID, 0)
	if err != nil {
		t.Fatalf("list assessments: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("good target should still be scanned, got %d assessments", len(rows))
	}
}

func TestRunDueSkipsDisabledSchedules(t *testing.T) {
	sched, s := newTestScheduler(t)

	past := time.Now().Add(-time.Minute)
	paused := &store.Target{UserID: 1, URL: "https://example.com", Frequency: store.FrequencyDaily, NextRunAt: &past}
	if err := s.Targets().Create(paused); err != nil {
		t.Fatalf("create target: %v", err)
	}

	result, err := sched.RunDue(context.Background())
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if result.Due != 0 {
		t.Fatalf("disabled schedule should not be due, got %d", result.Due)
	}
}
