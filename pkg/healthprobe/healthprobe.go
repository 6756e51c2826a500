// Package healthprobe performs the on-demand HTTP health check the
// reconciler runs against a process's declared health endpoint.
package healthprobe

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/ezorch/ezorch/pkg/process"
	"github.com/ezorch/ezorch/pkg/target"
)

// Client probes loopback health endpoints with a bounded timeout.
type Client struct {
	http *http.Client
}

// New returns a Client with a conservative per-probe timeout, since a probe
// runs inline during a housekeeping pass that holds the supervisor's lock.
func New() *Client {
	return &Client{http: &http.Client{Timeout: 2 * time.Second}}
}

// Check reports whether version is healthy. A process with no declared
// health spec is always considered healthy. Connection-refused is treated as
// "not yet healthy" rather than an error, since that's the expected state for
// a process that hasn't opened its listener yet; any other transport error is
// returned so the caller can log it distinctly.
func (c *Client) Check(spec target.ProcessSpec, entry *process.RunningEntry) (bool, error) {
	if spec.Health == nil {
		return true, nil
	}

	port, ok := entry.PortAllocations[spec.Health.Service]
	if !ok {
		return false, fmt.Errorf("BUG: no port allocated for service %q", spec.Health.Service)
	}

	path := spec.Health.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := fmt.Sprintf("http://127.0.0.1:%d%s", port, path)

	resp, err := c.http.Get(url)
	if err != nil {
		if isConnRefused(err) {
			return false, nil
		}
		return false, fmt.Errorf("health probe request failed: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func isConnRefused(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	return errors.Is(opErr.Err, syscall.ECONNREFUSED) || strings.Contains(opErr.Err.Error(), "connection refused")
}
