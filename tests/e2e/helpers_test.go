//go:build linux

package e2e

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ezorch/ezorch/pkg/lvs"
)

// runEzorchOnce executes `ezorch once -c configPath` and asserts a successful exit.
func runEzorchOnce(t *testing.T, configPath string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(ezorchBinary, "once", "-c", configPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("ezorch once failed: %v\nstdout: %s\nstderr: %s", err, stdout.String(), stderr.String())
	}
	return stdout.String() + stderr.String()
}

// runEzorchOnceExpectFailure executes `ezorch once -c configPath` and expects
// a non-zero exit code.
func runEzorchOnceExpectFailure(t *testing.T, configPath string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(ezorchBinary, "once", "-c", configPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		t.Fatalf("expected ezorch once to fail, but it succeeded\nstdout: %s\nstderr: %s", stdout.String(), stderr.String())
	}
	return stdout.String(), stderr.String()
}

// runEzorchVersion executes `ezorch -v` and returns the output.
func runEzorchVersion(t *testing.T) string {
	t.Helper()
	var stdout bytes.Buffer
	cmd := exec.Command(ezorchBinary, "-v")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		t.Fatalf("ezorch -v failed: %v", err)
	}
	return stdout.String()
}

// runEzorchDaemon starts `ezorch start -c configPath` in daemon mode and
// returns the exec.Cmd. The caller is responsible for stopping the process.
func runEzorchDaemon(t *testing.T, configPath string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(ezorchBinary, "start", "-c", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start ezorch daemon: %v", err)
	}
	return cmd
}

// writeRuntimeConfig writes a minimal runtime config YAML into dir, pointing
// target_path/auth_path at sibling files in the same directory, and returns
// its path.
func writeRuntimeConfig(t *testing.T, dir string) string {
	t.Helper()
	content := fmt.Sprintf(`
housekeeping_interval_seconds: 1
start_interval_seconds: 1
health_interval_seconds: 5
admin_port: 29443
target_path: %s
auth_path: %s
`, filepath.Join(dir, "target.yaml"), filepath.Join(dir, ".auth.yaml"))

	path := filepath.Join(dir, "runtime.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write runtime config: %v", err)
	}
	return path
}

// writeTarget writes the given raw target YAML to the path previously
// configured by writeRuntimeConfig.
func writeTarget(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "target.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write target file: %v", err)
	}
	return path
}

// flushIPVS removes all IPVS rules to ensure test isolation.
func flushIPVS(t *testing.T) {
	t.Helper()
	handle, err := lvs.NewIPVSHandle("")
	if err != nil {
		t.Fatalf("failed to create IPVS handle for flush: %v", err)
	}
	defer handle.Close()
	if err := handle.Flush(); err != nil {
		t.Fatalf("failed to flush IPVS rules: %v", err)
	}
}

// getIPVSServices returns all current IPVS services from the kernel.
func getIPVSServices(t *testing.T) []*lvs.Service {
	t.Helper()
	handle, err := lvs.NewIPVSHandle("")
	if err != nil {
		t.Fatalf("failed to create IPVS handle: %v", err)
	}
	defer handle.Close()

	services, err := handle.GetServices()
	if err != nil {
		t.Fatalf("failed to get IPVS services: %v", err)
	}
	return services
}

// getIPVSDestinations returns all destinations for the given IPVS service.
func getIPVSDestinations(t *testing.T, svc *lvs.Service) []*lvs.Destination {
	t.Helper()
	handle, err := lvs.NewIPVSHandle("")
	if err != nil {
		t.Fatalf("failed to create IPVS handle: %v", err)
	}
	defer handle.Close()

	destinations, err := handle.GetDestinations(svc)
	if err != nil {
		t.Fatalf("failed to get IPVS destinations: %v", err)
	}
	return destinations
}

// findServiceByAddress finds an IPVS service matching the given IP and port.
// Returns nil if not found.
func findServiceByAddress(services []*lvs.Service, ipAddress string, port uint16) *lvs.Service {
	targetIP := net.ParseIP(ipAddress)
	for _, svc := range services {
		if svc.Address.Equal(targetIP) && svc.Port == port {
			return svc
		}
	}
	return nil
}

// requireServiceCount asserts the exact number of IPVS services.
func requireServiceCount(t *testing.T, expected int) []*lvs.Service {
	t.Helper()
	services := getIPVSServices(t)
	if len(services) != expected {
		t.Fatalf("expected %d IPVS services, got %d", expected, len(services))
	}
	return services
}
