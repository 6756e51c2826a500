package process

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/ezorch/ezorch/pkg/eventlog"
	"github.com/ezorch/ezorch/pkg/portpool"
	"github.com/ezorch/ezorch/pkg/target"
	"go.uber.org/zap"
)

// Launcher starts new process versions, allocating a loopback port from pool
// for every service the spec declares it Receives, and injecting each as
// SERVICE_PORT_<NAME> in the child's environment.
type Launcher struct {
	pool   *portpool.Pool
	events *eventlog.Log
	logger *zap.Logger
}

// NewLauncher builds a Launcher backed by pool.
func NewLauncher(pool *portpool.Pool, events *eventlog.Log, logger *zap.Logger) *Launcher {
	return &Launcher{pool: pool, events: events, logger: logger}
}

// Launch starts spec's command and returns the resulting Version. On any
// failure after some ports were already allocated, those ports are released
// before returning the error, so a partial launch never leaks ports.
func (l *Launcher) Launch(spec target.ProcessSpec) (Version, error) {
	portAllocations := make(map[string]int, len(spec.Receives))
	for _, serviceName := range spec.Receives {
		port, err := l.pool.Allocate()
		if err != nil {
			l.events.Append(eventlog.Error(fmt.Sprintf("failed to allocate ports when launching process: %s", err)))
			for _, p := range portAllocations {
				l.pool.Release(p)
			}
			return Version{}, fmt.Errorf("failed to allocate port for service %q: %w", serviceName, err)
		}
		portAllocations[serviceName] = port
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	if spec.Cwd != "" {
		cmd.Dir = spec.Cwd
	}
	if err := applyCredential(cmd, spec.UID, spec.GID); err != nil {
		for _, p := range portAllocations {
			l.pool.Release(p)
		}
		return Version{}, err
	}

	env := cmd.Environ()
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}
	for serviceName, port := range portAllocations {
		env = append(env, fmt.Sprintf("SERVICE_PORT_%s=%d", strings.ToUpper(serviceName), port))
	}
	cmd.Env = env

	if err := cmd.Start(); err != nil {
		for _, p := range portAllocations {
			l.pool.Release(p)
		}
		return Version{}, fmt.Errorf("failed to start process %q: %w", spec.Name, err)
	}

	entry := newRunningEntry(cmd, portAllocations)
	l.logger.Info("launched process",
		zap.String("process", spec.Name),
		zap.String("unique_name", entry.Name),
		zap.Int("pid", entry.Pid()))
	l.events.Append(eventlog.LaunchProcess(entry.Name, spec.Name, portAllocations))

	return Version{Spec: spec, Entry: entry}, nil
}
