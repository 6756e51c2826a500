//go:build !integration

package lvs

import (
	"testing"

	"github.com/ezorch/ezorch/pkg/target"
)

func TestParseHostAndPort(t *testing.T) {
	host, port, err := ParseHostAndPort("127.0.0.5:8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "127.0.0.5" || port != 8080 {
		t.Fatalf("got (%s, %d)", host, port)
	}
}

func TestParseHostAndPort_NoPort(t *testing.T) {
	if _, _, err := ParseHostAndPort("127.0.0.5"); err == nil {
		t.Fatal("expected error for missing port")
	}
}

func TestAdapter_CreateService_Idempotent(t *testing.T) {
	mgr := newTestManager(t)
	defer mgr.Close()
	a := NewAdapter(mgr)

	spec := target.ServiceSpec{Name: "web", On: "127.0.0.10:80"}
	if err := a.CreateService(spec); err != nil {
		t.Fatalf("first CreateService failed: %v", err)
	}
	if err := a.CreateService(spec); err != nil {
		t.Fatalf("second CreateService failed: %v", err)
	}

	services, err := mgr.GetServices()
	if err != nil {
		t.Fatalf("GetServices failed: %v", err)
	}
	if len(services) != 1 {
		t.Fatalf("expected exactly 1 service after idempotent create, got %d", len(services))
	}
}

func TestAdapter_SetRealServerWeight_CreatesThenUpdates(t *testing.T) {
	mgr := newTestManager(t)
	defer mgr.Close()
	a := NewAdapter(mgr)

	spec := target.ServiceSpec{Name: "web", On: "127.0.0.10:80"}
	if err := a.CreateService(spec); err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}

	if err := a.SetRealServerWeight(spec, 9001, 1); err != nil {
		t.Fatalf("first SetRealServerWeight failed: %v", err)
	}
	if err := a.SetRealServerWeight(spec, 9001, 0); err != nil {
		t.Fatalf("second SetRealServerWeight failed: %v", err)
	}

	state, err := a.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	info, ok := state.LoopbackByPort[9001]
	if !ok {
		t.Fatal("expected loopback port 9001 in snapshot")
	}
	if info.Weight != 0 {
		t.Fatalf("expected weight 0, got %d", info.Weight)
	}
}
