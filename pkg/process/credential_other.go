//go:build !linux

package process

import (
	"fmt"
	"os/exec"
)

// applyCredential is unsupported outside Linux, matching the fact that IPVS
// itself (and therefore this whole supervisor) only runs there.
func applyCredential(cmd *exec.Cmd, uidStr, gidStr string) error {
	if uidStr == "" && gidStr == "" {
		return nil
	}
	return fmt.Errorf("running a process as a specific uid/gid is only supported on linux")
}
