// Package portpool hands out and reclaims loopback port numbers from a
// configured half-open range, skipping ports that are already bound.
package portpool

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/ezorch/ezorch/pkg/eventlog"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Pool is a FIFO of free ports plus the set of currently allocated ports.
// Invariant: free and allocated are always disjoint.
type Pool struct {
	mu        sync.Mutex
	free      []int
	allocated map[int]bool

	events *eventlog.Log
	logger *zap.Logger
}

// New builds a Pool covering the half-open range [lo, hi), skipping
// adminPort if it falls in range.
func New(lo, hi, adminPort int, events *eventlog.Log, logger *zap.Logger) *Pool {
	p := &Pool{
		allocated: make(map[int]bool),
		events:    events,
		logger:    logger,
	}
	for port := lo; port < hi; port++ {
		if port == adminPort {
			events.Append(eventlog.Warning(fmt.Sprintf("loopback port range includes the admin port %d, skipping it", port)))
			continue
		}
		p.free = append(p.free, port)
	}
	return p
}

// Allocate pops the front of the free list, probes it with a bind test, and
// returns it once confirmed free. A port found to be in use is pushed to the
// back of the free list (not discarded) and the next candidate is tried.
// Exhaustion is an error.
func (p *Pool) Allocate() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if len(p.free) == 0 {
			return 0, fmt.Errorf("no more free loopback ports")
		}
		port := p.free[0]
		p.free = p.free[1:]

		ok, err := testPort(port)
		if err != nil {
			return 0, fmt.Errorf("failed to probe port %d: %w", port, err)
		}
		if !ok {
			p.logger.Warn("port in use, skipping", zap.Int("port", port))
			p.events.Append(eventlog.Warning(fmt.Sprintf("port %d is in use, skipping", port)))
			p.free = append(p.free, port)
			continue
		}

		if p.allocated[port] {
			panic(fmt.Sprintf("BUG: port %d allocated twice", port))
		}
		p.allocated[port] = true
		return port, nil
	}
}

// Release returns port to the front of the free list, so recently freed
// ports are reused first -- this keeps IPVS weight changes localized to the
// same real-server key across rollouts.
func (p *Pool) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.allocated[port] {
		panic(fmt.Sprintf("BUG: releasing port %d that was not allocated", port))
	}
	delete(p.allocated, port)
	p.free = append([]int{port}, p.free...)
}

// testPort opens an IPv4 TCP socket with SO_REUSEADDR and attempts to bind
// 0.0.0.0:port. Success (including a subsequent close) means the port is
// free. Address-in-use is reported as "not free"; any other error is fatal
// for the call. This races with anything else on the machine between the
// close here and the child actually binding -- see the "bind-test race"
// note in spec.md §5.
func testPort(port int) (bool, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	ln, err := lc.Listen(context.Background(), "tcp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		if isAddrInUse(err) {
			return false, nil
		}
		return false, err
	}
	ln.Close()
	return true, nil
}

func isAddrInUse(err error) bool {
	var sysErr *net.OpError
	if !asOpError(err, &sysErr) {
		return false
	}
	return sysErr.Err != nil && (sysErr.Err.Error() == syscall.EADDRINUSE.Error() || isErrno(sysErr.Err, syscall.EADDRINUSE))
}

func isErrno(err error, target syscall.Errno) bool {
	for {
		if errno, ok := err.(syscall.Errno); ok {
			return errno == target
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
		if err == nil {
			return false
		}
	}
}

func asOpError(err error, target **net.OpError) bool {
	for err != nil {
		if op, ok := err.(*net.OpError); ok {
			*target = op
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
