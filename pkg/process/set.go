package process

import "github.com/ezorch/ezorch/pkg/target"

// Version pairs a process specification with the RunningEntry it produced.
// A set can hold more than one Version at once while an older one is
// sunsetting in favor of a newer one.
type Version struct {
	Spec  target.ProcessSpec
	Entry *RunningEntry
}

// Set holds every still-relevant Version for one process name, oldest first.
type Set struct {
	Versions []Version
}

// NewSet returns an empty process set.
func NewSet() *Set {
	return &Set{}
}

// Latest returns the most recently launched version, or nil if the set is
// empty.
func (s *Set) Latest() *Version {
	if len(s.Versions) == 0 {
		return nil
	}
	return &s.Versions[len(s.Versions)-1]
}

// Append adds a newly launched version as the current latest.
func (s *Set) Append(v Version) {
	s.Versions = append(s.Versions, v)
}

// RemoveExited drops every version whose entry has reached PhaseExited,
// returning the removed versions so callers can release their ports.
func (s *Set) RemoveExited() []Version {
	kept := s.Versions[:0:0]
	var removed []Version
	for _, v := range s.Versions {
		if v.Entry.Status == PhaseExited {
			removed = append(removed, v)
			continue
		}
		kept = append(kept, v)
	}
	s.Versions = kept
	return removed
}

// Empty reports whether the set has no remaining versions and may itself be
// dropped from the supervisor's process-name index.
func (s *Set) Empty() bool {
	return len(s.Versions) == 0
}
