package lvs

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"

	"github.com/ezorch/ezorch/pkg/target"
)

// LoopbackInfo summarizes one loopback real-server's current state as seen in
// the kernel, keyed by port in a State snapshot.
type LoopbackInfo struct {
	Connections int
	Weight      int
}

// State is a point-in-time snapshot of every IPVS service whose address
// starts with target.ServiceIPPrefix, indexed by the loopback port of each of
// their 127.0.0.1 real servers. This is what the reconciler diffs desired
// weights against on each housekeeping pass.
type State struct {
	LoopbackByPort map[int]LoopbackInfo
}

// Adapter exposes the small surface the reconciler needs on top of the raw
// IPVS Manager: idempotent service creation, real-server weight steering, and
// a loopback-focused state snapshot.
type Adapter struct {
	manager *Manager
}

// NewAdapter wraps manager.
func NewAdapter(manager *Manager) *Adapter {
	return &Adapter{manager: manager}
}

// Snapshot reads every IPVS service bound to a loopback-prefixed address and
// summarizes their 127.0.0.1 destinations by port.
func (a *Adapter) Snapshot() (State, error) {
	services, err := a.manager.GetServices()
	if err != nil {
		return State{}, fmt.Errorf("failed to snapshot ipvs state: %w", err)
	}

	state := State{LoopbackByPort: make(map[int]LoopbackInfo)}
	for _, svc := range services {
		if !strings.HasPrefix(svc.Address.String(), target.ServiceIPPrefix) {
			continue
		}
		dests, err := a.manager.GetDestinations(svc)
		if err != nil {
			return State{}, fmt.Errorf("failed to snapshot destinations for %s:%d: %w", svc.Address, svc.Port, err)
		}
		for _, dst := range dests {
			if dst.Address.String() != "127.0.0.1" {
				continue
			}
			if _, exists := state.LoopbackByPort[int(dst.Port)]; exists {
				return State{}, fmt.Errorf("BUG: loopback port %d used by more than one real server", dst.Port)
			}
			state.LoopbackByPort[int(dst.Port)] = LoopbackInfo{
				Connections: dst.ActiveConnections,
				Weight:      dst.Weight,
			}
		}
	}
	return state, nil
}

// CreateService idempotently ensures spec's IPVS service exists, by deleting
// any conflicting prior definition (ignoring the error, since "not found" is
// the expected case) before creating it fresh. This matches the original's
// "delete_service(&service).ok(); create_service(&service)?;" dance, which
// sidesteps needing to diff scheduler changes.
func (a *Adapter) CreateService(spec target.ServiceSpec) error {
	svc, err := serviceFromSpec(spec)
	if err != nil {
		return fmt.Errorf("service %q: %w", spec.Name, err)
	}

	_ = a.manager.DeleteService(svc)
	if err := a.manager.CreateService(svc); err != nil {
		return fmt.Errorf("service %q: %w", spec.Name, err)
	}
	return nil
}

// SetRealServerWeight sets the weight of the 127.0.0.1:port real server
// within spec's service to weight, creating the destination first if it
// doesn't exist yet.
func (a *Adapter) SetRealServerWeight(spec target.ServiceSpec, port, weight int) error {
	svc, err := serviceFromSpec(spec)
	if err != nil {
		return fmt.Errorf("service %q: %w", spec.Name, err)
	}

	dst := &Destination{
		Address:         net.ParseIP("127.0.0.1"),
		Port:            uint16(port),
		Weight:          weight,
		ConnectionFlags: ConnectionFlagMasq,
		AddressFamily:   syscall.AF_INET,
	}

	if err := a.manager.UpdateDestination(svc, dst); err != nil {
		if err := a.manager.CreateDestination(svc, dst); err != nil {
			return fmt.Errorf("failed to set weight of 127.0.0.1:%d on service %q to %d: %w", port, spec.Name, weight, err)
		}
	}
	return nil
}

// ParseHostAndPort splits an "ip:port" string, the same contract
// target.ParseHostAndPort exposes for validation.
func ParseHostAndPort(s string) (string, int, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("address %q has no port", s)
	}
	host := s[:idx]
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in address %q: %w", s, err)
	}
	return host, port, nil
}

func serviceFromSpec(spec target.ServiceSpec) (*Service, error) {
	host, port, err := ParseHostAndPort(spec.On)
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address %q", host)
	}
	family := addressFamilyFromIP(ip)
	return &Service{
		Address:       ip,
		Protocol:      syscall.IPPROTO_TCP,
		Port:          uint16(port),
		SchedName:     RoundRobin,
		AddressFamily: family,
		Netmask:       netmaskFromFamily(family),
	}, nil
}
