// Package reconciler implements the housekeeping pass: the single
// declarative loop that drives actual process and IPVS state toward the
// current target, once per tick, holding the supervisor's lock for the
// entire pass. It mirrors original_source's housekeeping function step by
// step, with one deliberate deviation documented in SPEC_FULL.md: a process's
// loopback real-server weight is driven to zero before its ports are
// released, instead of leaving a stale weighted destination behind.
package reconciler

import (
	"fmt"
	"time"

	"github.com/ezorch/ezorch/pkg/control"
	"github.com/ezorch/ezorch/pkg/eventlog"
	"github.com/ezorch/ezorch/pkg/healthprobe"
	"github.com/ezorch/ezorch/pkg/lvs"
	"github.com/ezorch/ezorch/pkg/portpool"
	"github.com/ezorch/ezorch/pkg/process"
	"github.com/ezorch/ezorch/pkg/snat"
	"github.com/ezorch/ezorch/pkg/target"
	"go.uber.org/zap"
)

// Intervals bundles the rate-limit windows the housekeeping pass uses,
// matching original_source's START_INTERVAL/HEALTH_INTERVAL.
type Intervals struct {
	Start  time.Duration
	Health time.Duration
}

// Reconciler owns the long-lived collaborators a housekeeping pass needs
// beyond the Supervisor's shared state: the port pool, process launcher,
// health prober, IPVS adapter, rate limiter, and optional SNAT manager.
type Reconciler struct {
	supervisor *control.Supervisor
	pool       *portpool.Pool
	launcher   *process.Launcher
	health     *healthprobe.Client
	ipvs       *lvs.Adapter
	rate       *eventlog.RateLimiter
	intervals  Intervals
	snat       snat.Manager // nil when disabled
	logger     *zap.Logger
}

// New builds a Reconciler. snatManager may be nil to disable SNAT rule
// management entirely.
func New(
	supervisor *control.Supervisor,
	pool *portpool.Pool,
	launcher *process.Launcher,
	health *healthprobe.Client,
	ipvsAdapter *lvs.Adapter,
	rate *eventlog.RateLimiter,
	intervals Intervals,
	snatManager snat.Manager,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		supervisor: supervisor,
		pool:       pool,
		launcher:   launcher,
		health:     health,
		ipvs:       ipvsAdapter,
		rate:       rate,
		intervals:  intervals,
		snat:       snatManager,
		logger:     logger,
	}
}

// RunOnce performs exactly one housekeeping pass, holding the supervisor's
// lock for its entire duration, matching the original's single
// SyncedGlobalState mutex guarding the whole function.
func (r *Reconciler) RunOnce() error {
	s := r.supervisor
	s.Mu.Lock()
	defer s.Mu.Unlock()

	t := s.Target.Current()

	r.ensureProcessSets(t)

	snapshot, err := r.ipvs.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to snapshot ipvs state: %w", err)
	}
	s.LastIPVSState = &snapshot

	r.createServices(t)

	if err := r.ensureLatestVersions(t); err != nil {
		return err
	}

	r.updateConnCounts(snapshot)

	r.runStartChecks(t)
	r.runHealthChecks(t)
	r.sunsetOlderVersions()
	r.detectExits()

	if err := r.drainAndReapExited(t); err != nil {
		return err
	}

	weightByPort, err := r.steerWeights(t, snapshot)
	if err != nil {
		return err
	}

	if r.snat != nil {
		if err := r.snat.Reconcile(snat.RulesForLoopbackPorts(weightByPort, "tcp")); err != nil {
			r.logger.Error("failed to reconcile SNAT rules", zap.Error(err))
		}
	}

	return nil
}

// ensureProcessSets makes sure every process named in the target has a
// tracking Set, even an empty one, so later steps can uniformly range over it.
func (r *Reconciler) ensureProcessSets(t target.Target) {
	for _, spec := range t.Processes {
		if _, ok := r.supervisor.ProcessSetsByName[spec.Name]; !ok {
			r.supervisor.ProcessSetsByName[spec.Name] = process.NewSet()
		}
	}
}

// updateConnCounts refreshes every tracked entry's approximate active
// connection count from the freshly taken IPVS snapshot, so status reports
// reflect current load rather than whatever was last observed.
func (r *Reconciler) updateConnCounts(snapshot lvs.State) {
	for _, set := range r.supervisor.ProcessSetsByName {
		for i := range set.Versions {
			entry := set.Versions[i].Entry
			entry.ApproxConnCount = 0
			for _, port := range entry.PortAllocations {
				if info, ok := snapshot.LoopbackByPort[port]; ok {
					entry.ApproxConnCount += info.Connections
				}
			}
		}
	}
}

// createServices idempotently creates every IPVS service named in the
// target, exactly once per service name for the supervisor's lifetime.
func (r *Reconciler) createServices(t target.Target) {
	for _, svc := range t.Services {
		if r.supervisor.ProcessedServices[svc.Name] {
			continue
		}
		r.supervisor.Events.Append(eventlog.CreateIpvsService(svc.Name, svc.On))
		if err := r.ipvs.CreateService(svc); err != nil {
			r.logger.Error("failed to create ipvs service", zap.String("service", svc.Name), zap.Error(err))
			r.supervisor.Events.Append(eventlog.Error(fmt.Sprintf("failed to create ipvs service %s: %s", svc.Name, err)))
			continue
		}
		r.supervisor.ProcessedServices[svc.Name] = true
	}
}

// ensureLatestVersions launches a new version for any process whose target
// spec has no up-to-date running version yet.
func (r *Reconciler) ensureLatestVersions(t target.Target) error {
	specByName := make(map[string]target.ProcessSpec, len(t.Processes))
	for _, spec := range t.Processes {
		specByName[spec.Name] = spec
	}

	for name, set := range r.supervisor.ProcessSetsByName {
		spec, wanted := specByName[name]
		if !wanted {
			continue
		}
		if latest := set.Latest(); latest != nil && latest.Spec.Equal(spec) {
			continue
		}
		version, err := r.launcher.Launch(spec)
		if err != nil {
			r.logger.Error("failed to launch process", zap.String("process", name), zap.Error(err))
			continue
		}
		set.Append(version)
		r.supervisor.Events.Append(eventlog.StatusChange(version.Entry.Name, string(process.PhaseStarting)))
	}
	return nil
}

// runHealthChecks probes every Running entry of every process set, rate
// limited per unique name, demoting it to Unhealthy on failure.
func (r *Reconciler) runHealthChecks(t target.Target) {
	for _, set := range r.supervisor.ProcessSetsByName {
		for i := range set.Versions {
			v := &set.Versions[i]
			if v.Entry.Status != process.PhaseRunning {
				continue
			}
			if !r.rate.Gate("health:"+v.Entry.Name, r.intervals.Health) {
				continue
			}
			healthy, err := r.health.Check(v.Spec, v.Entry)
			if err != nil {
				r.logger.Error("health check failed", zap.String("name", v.Entry.Name), zap.Error(err))
				r.supervisor.Events.Append(eventlog.Error(fmt.Sprintf("health check for %s failed: %s", v.Entry.Name, err)))
				continue
			}
			if !healthy {
				r.setStatus(v.Entry, process.PhaseUnhealthy)
			}
		}
	}
}

// runStartChecks probes the latest Starting version of every process set,
// promoting it to Running once its health check passes.
func (r *Reconciler) runStartChecks(t target.Target) {
	for _, set := range r.supervisor.ProcessSetsByName {
		latest := set.Latest()
		if latest == nil || latest.Entry.Status != process.PhaseStarting {
			continue
		}
		if !r.rate.Gate("start:"+latest.Entry.Name, r.intervals.Start) {
			continue
		}
		healthy, err := r.health.Check(latest.Spec, latest.Entry)
		if err != nil {
			r.logger.Error("start check failed", zap.String("name", latest.Entry.Name), zap.Error(err))
			continue
		}
		if healthy {
			r.setStatus(latest.Entry, process.PhaseRunning)
		}
	}
}

// sunsetOlderVersions finds, for every process set, any Running version that
// isn't the newest Running one, and begins sunsetting it with SIGTERM.
func (r *Reconciler) sunsetOlderVersions() {
	for _, set := range r.supervisor.ProcessSetsByName {
		haveNewer := false
		for i := len(set.Versions) - 1; i >= 0; i-- {
			entry := set.Versions[i].Entry
			if entry.Status != process.PhaseRunning {
				continue
			}
			if haveNewer {
				r.setStatus(entry, process.PhaseSunsetting)
				if err := entry.Signal(); err != nil {
					r.logger.Error("failed to signal sunsetting process", zap.String("name", entry.Name), zap.Error(err))
				}
			}
			haveNewer = true
		}
	}
}

// detectExits polls every tracked entry's underlying process for exit,
// transitioning it to Exited.
func (r *Reconciler) detectExits() {
	for _, set := range r.supervisor.ProcessSetsByName {
		for i := range set.Versions {
			entry := set.Versions[i].Entry
			if entry.Status == process.PhaseExited {
				continue
			}
			if exited, code := entry.PollExit(); exited {
				entry.Exit = process.ExitInfo{Code: code, ApproxTime: time.Now()}
				r.setStatus(entry, process.PhaseExited)
			}
		}
	}
}

// drainAndReapExited drives every Exited entry's real-server weight to zero,
// releases its ports, forgets its rate-limit buckets, and finally drops it
// from tracking. This is the documented fix for the port-leak the original
// housekeeping function has: it dropped exited entries from running_versions
// without ever releasing their ports or clearing their IPVS weight.
func (r *Reconciler) drainAndReapExited(t target.Target) error {
	serviceByName := make(map[string]target.ServiceSpec, len(t.Services))
	for _, svc := range t.Services {
		serviceByName[svc.Name] = svc
	}

	for _, set := range r.supervisor.ProcessSetsByName {
		for i := range set.Versions {
			entry := set.Versions[i].Entry
			if entry.Status != process.PhaseExited {
				continue
			}
			for serviceName, port := range entry.PortAllocations {
				if svc, ok := serviceByName[serviceName]; ok {
					r.supervisor.Events.Append(eventlog.WeightChange(svc.Name, port, 0))
					if err := r.ipvs.SetRealServerWeight(svc, port, 0); err != nil {
						r.logger.Error("failed to zero weight before reaping",
							zap.String("name", entry.Name), zap.Int("port", port), zap.Error(err))
					}
				}
				r.pool.Release(port)
			}
			r.rate.Forget("health:" + entry.Name)
			r.rate.Forget("start:" + entry.Name)
		}
		set.RemoveExited()
	}
	return nil
}

// steerWeights sets every remaining entry's real-server weight to 1 if it's
// Running, 0 otherwise, skipping ports whose IPVS weight already matches.
// Returns the final desired weight by port, for SNAT rule derivation.
func (r *Reconciler) steerWeights(t target.Target, snapshot lvs.State) (map[int]int, error) {
	serviceByName := make(map[string]target.ServiceSpec, len(t.Services))
	for _, svc := range t.Services {
		serviceByName[svc.Name] = svc
	}

	weightByPort := make(map[int]int)

	for _, set := range r.supervisor.ProcessSetsByName {
		for _, v := range set.Versions {
			targetWeight := 0
			if v.Entry.Status == process.PhaseRunning {
				targetWeight = 1
			}
			for serviceName, port := range v.Entry.PortAllocations {
				weightByPort[port] = targetWeight

				svc, ok := serviceByName[serviceName]
				if !ok {
					return nil, fmt.Errorf("BUG: service %s not found for entry %s", serviceName, v.Entry.Name)
				}
				currentWeight := 0
				if info, ok := snapshot.LoopbackByPort[port]; ok {
					currentWeight = info.Weight
				}
				if currentWeight == targetWeight {
					continue
				}
				r.supervisor.Events.Append(eventlog.WeightChange(svc.Name, port, targetWeight))
				if err := r.ipvs.SetRealServerWeight(svc, port, targetWeight); err != nil {
					r.logger.Error("failed to set real server weight",
						zap.String("service", svc.Name), zap.Int("port", port), zap.Error(err))
				}
			}
		}
	}

	return weightByPort, nil
}

func (r *Reconciler) setStatus(entry *process.RunningEntry, status process.Phase) {
	entry.Status = status
	r.supervisor.Events.Append(eventlog.StatusChange(entry.Name, string(status)))
	r.logger.Info("process status change", zap.String("name", entry.Name), zap.String("status", string(status)))
}
