// Package control implements the supervisor's control surface: the small set
// of operations an operator (via pkg/client or the admin HTTP API) can use to
// inspect and steer the running system. Every method here, and the
// reconciler's housekeeping pass, shares one lock -- so a client never
// observes a target update racing a housekeeping pass, matching
// original_source's single tokio::sync::Mutex<SyncedGlobalState>.
package control

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ezorch/ezorch/pkg/eventlog"
	"github.com/ezorch/ezorch/pkg/lvs"
	"github.com/ezorch/ezorch/pkg/process"
	"github.com/ezorch/ezorch/pkg/target"
	"go.uber.org/zap"
)

// Supervisor owns every piece of mutable state the reconciler and the
// control surface both touch.
type Supervisor struct {
	Mu sync.Mutex

	Target            *target.Store
	ProcessSetsByName map[string]*process.Set
	ProcessedServices map[string]bool
	LastIPVSState     *lvs.State

	Events *eventlog.Log
	Logger *zap.Logger
}

// New builds a Supervisor around an already-loaded target Store.
func New(targetStore *target.Store, events *eventlog.Log, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		Target:            targetStore,
		ProcessSetsByName: make(map[string]*process.Set),
		ProcessedServices: make(map[string]bool),
		Events:            events,
		Logger:            logger,
	}
}

// Ping answers a liveness check.
func (s *Supervisor) Ping() string {
	return "pong"
}

// GetTarget returns the raw, last-accepted target text verbatim.
func (s *Supervisor) GetTarget() string {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Target.Text()
}

// SetTarget validates and persists newText as the current target, returning a
// human-readable confirmation message. Mirrors original_source's
// "Target updated" / "(no changes made)" distinction exactly.
func (s *Supervisor) SetTarget(newText string) (string, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	changed, err := s.Target.Accept(newText)
	if err != nil {
		return "", fmt.Errorf("failed to set target: %w", err)
	}
	if changed {
		return "Target updated", nil
	}
	return "(no changes made)", nil
}

// StatusReport is the Status operation's result.
type StatusReport struct {
	Status    string
	Events    []eventlog.Event
	IPVSState *lvs.State
}

// Status formats the current status of every tracked process set, the
// recent event log, and the last IPVS snapshot taken by the reconciler.
func (s *Supervisor) Status() StatusReport {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	var b strings.Builder
	for name, set := range s.ProcessSetsByName {
		fmt.Fprintf(&b, "%s:\n", name)
		for _, v := range set.Versions {
			fmt.Fprintf(&b, "  %s: (%s)\n", v.Entry.Name, v.Entry.Status)
		}
	}

	return StatusReport{
		Status:    b.String(),
		Events:    s.Events.Snapshot(),
		IPVSState: s.LastIPVSState,
	}
}
