//go:build linux

package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ezorch/ezorch/pkg/lvs"
)

// ezorchBinary holds the path to the compiled ezorch binary used by all e2e tests.
var ezorchBinary string

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "ezorch-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	ezorchBinary = filepath.Join(tmpDir, "ezorch")

	buildCmd := exec.Command("go", "build", "-o", ezorchBinary, "github.com/ezorch/ezorch/cmd/ezorch")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build ezorch binary: %v\n", err)
		os.Exit(1)
	}

	handle, err := lvs.NewIPVSHandle("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create IPVS handle for pre-test flush: %v\n", err)
		os.Exit(1)
	}
	if err := handle.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush IPVS rules before tests: %v\n", err)
		handle.Close()
		os.Exit(1)
	}
	handle.Close()

	code := m.Run()

	handle, err = lvs.NewIPVSHandle("")
	if err == nil {
		handle.Flush()
		handle.Close()
	}

	os.Exit(code)
}
