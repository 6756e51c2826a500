package target

import (
	"fmt"
	"strconv"
	"strings"
)

// ServiceIPPrefix is the only loopback prefix a ServiceSpec's "on" address may use.
const ServiceIPPrefix = "127.0.0."

// Validate checks process-name uniqueness, service-name uniqueness, and that
// every service's address starts with ServiceIPPrefix. It mirrors
// validate_target in original_source/src/lib.rs.
func Validate(t Target) error {
	names := make(map[string]bool, len(t.Processes))
	for _, p := range t.Processes {
		if names[p.Name] {
			return fmt.Errorf("Duplicate name %s in processes", p.Name)
		}
		names[p.Name] = true
	}

	svcNames := make(map[string]bool, len(t.Services))
	for _, s := range t.Services {
		if svcNames[s.Name] {
			return fmt.Errorf("Duplicate name %s in services", s.Name)
		}
		svcNames[s.Name] = true

		host, _, err := ParseHostAndPort(s.On)
		if err != nil {
			return fmt.Errorf("service %s: %w", s.Name, err)
		}
		if !strings.HasPrefix(host, ServiceIPPrefix) {
			return fmt.Errorf("service %s has invalid IP %q -- must start with %q", s.Name, host, ServiceIPPrefix)
		}
	}

	return nil
}

// ParseHostAndPort splits an "ip:port" string, the same contract the IPVS
// adapter exposes for service "on" strings.
func ParseHostAndPort(s string) (string, int, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("address %q has no port", s)
	}
	host := s[:idx]
	portStr := s[idx+1:]
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q in address %q: %w", portStr, s, err)
	}
	return host, port, nil
}
