//go:build linux

package process

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"
)

// applyCredential resolves uidStr/gidStr (numeric or name/group) and arranges
// for cmd to run as that user/group, mirroring original_source's
// process.uid()/process.gid() builder calls. The Go runtime always sets both
// Uid and Gid together when Credential is non-nil, so whichever of the two
// wasn't specified is resolved to its natural counterpart (the target user's
// own primary group, or the current process's own uid) instead of
// defaulting to root.
func applyCredential(cmd *exec.Cmd, uidStr, gidStr string) error {
	if uidStr == "" && gidStr == "" {
		return nil
	}

	var uid, gid uint32
	var err error

	switch {
	case uidStr != "" && gidStr != "":
		if uid, err = resolveUID(uidStr); err != nil {
			return err
		}
		if gid, err = resolveGID(gidStr); err != nil {
			return err
		}

	case uidStr != "":
		if uid, err = resolveUID(uidStr); err != nil {
			return err
		}
		if gid, err = primaryGID(uid); err != nil {
			return err
		}

	case gidStr != "":
		uid = uint32(os.Getuid())
		if gid, err = resolveGID(gidStr); err != nil {
			return err
		}
	}

	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Credential = &syscall.Credential{Uid: uid, Gid: gid}
	return nil
}

// primaryGID looks up the primary group id of the user identified by uid.
func primaryGID(uid uint32) (uint32, error) {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve primary group for uid %d: %w", uid, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unexpected non-numeric gid for uid %d: %w", uid, err)
	}
	return uint32(gid), nil
}

func resolveUID(s string) (uint32, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(n), nil
	}
	u, err := user.Lookup(s)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve user %q: %w", s, err)
	}
	n, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unexpected non-numeric uid for user %q: %w", s, err)
	}
	return uint32(n), nil
}

func resolveGID(s string) (uint32, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(n), nil
	}
	g, err := user.LookupGroup(s)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve group %q: %w", s, err)
	}
	n, err := strconv.ParseUint(g.Gid, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unexpected non-numeric gid for group %q: %w", s, err)
	}
	return uint32(n), nil
}
