package control

import (
	"path/filepath"
	"testing"

	"github.com/ezorch/ezorch/pkg/eventlog"
	"github.com/ezorch/ezorch/pkg/process"
	"github.com/ezorch/ezorch/pkg/target"
	"go.uber.org/zap"
)

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	store, err := target.Load(filepath.Join(dir, "target.yaml"), target.Secrets{}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to load target store: %v", err)
	}
	return New(store, eventlog.NewLog(), zap.NewNop())
}

func TestSupervisor_Ping(t *testing.T) {
	s := newTestSupervisor(t)
	if got := s.Ping(); got != "pong" {
		t.Errorf("expected %q, got %q", "pong", got)
	}
}

func TestSupervisor_SetTarget_FirstAcceptReportsUpdated(t *testing.T) {
	s := newTestSupervisor(t)
	msg, err := s.SetTarget("processes: []\nservices: []\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != "Target updated" {
		t.Errorf("expected %q, got %q", "Target updated", msg)
	}
}

func TestSupervisor_SetTarget_UnchangedReportsNoChanges(t *testing.T) {
	s := newTestSupervisor(t)
	text := "processes: []\nservices: []\n"
	if _, err := s.SetTarget(text); err != nil {
		t.Fatalf("unexpected error on first set: %v", err)
	}

	msg, err := s.SetTarget(text)
	if err != nil {
		t.Fatalf("unexpected error on second set: %v", err)
	}
	if msg != "(no changes made)" {
		t.Errorf("expected %q, got %q", "(no changes made)", msg)
	}
}

func TestSupervisor_SetTarget_InvalidIsRejected(t *testing.T) {
	s := newTestSupervisor(t)
	_, err := s.SetTarget("processes: []\nservices:\n  - name: bad\n    on: 10.0.0.1:80\n")
	if err == nil {
		t.Fatal("expected an error for a non-loopback service address")
	}
}

func TestSupervisor_GetTarget_RoundTripsVerbatim(t *testing.T) {
	s := newTestSupervisor(t)
	text := "processes: []\nservices: []\n# a trailing comment\n"
	if _, err := s.SetTarget(text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.GetTarget(); got != text {
		t.Errorf("expected verbatim round-trip %q, got %q", text, got)
	}
}

func TestSupervisor_Status_FormatsProcessSets(t *testing.T) {
	s := newTestSupervisor(t)
	set := process.NewSet()
	set.Append(process.Version{Entry: &process.RunningEntry{Name: "quiet-otter-0-123", Status: process.PhaseRunning}})
	s.ProcessSetsByName["web"] = set

	report := s.Status()
	expected := "web:\n  quiet-otter-0-123: (Running)\n"
	if report.Status != expected {
		t.Errorf("expected status %q, got %q", expected, report.Status)
	}
}
