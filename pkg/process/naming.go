package process

import (
	"fmt"
	"math/rand"
	"sync/atomic"
)

// adjectives and nouns back the human-memorable part of a generated unique
// name. The original draws from two bundled word lists; those lists weren't
// part of the retrieved source, so this carries a representative sample
// instead -- see DESIGN.md's "process naming word list" note.
var adjectives = []string{
	"quiet", "amber", "brisk", "calm", "eager", "fuzzy", "gentle", "hollow",
	"icy", "jolly", "keen", "lively", "mellow", "nimble", "olive", "plucky",
	"quick", "rusty", "silent", "tidy", "urban", "vivid", "witty", "zesty",
}

var nouns = []string{
	"otter", "falcon", "willow", "comet", "harbor", "meadow", "ridge", "lantern",
	"pebble", "thistle", "cinder", "marsh", "orbit", "quartz", "spruce", "tundra",
	"vale", "wren", "anchor", "brook", "cedar", "delta", "ember", "fjord",
}

var counter uint64

// nextCounter returns a process-lifetime-unique, monotonically increasing
// value, mirroring original_source's atomic counter.
func nextCounter() uint64 {
	return atomic.AddUint64(&counter, 1) - 1
}

// makeUniqueName builds an adjective-noun-counter-pid identifier for a freshly
// launched process, matching original_source's RunningProcessEntry::new naming.
func makeUniqueName(pid int) string {
	adj := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	return fmt.Sprintf("%s-%s-%d-%d", adj, noun, nextCounter(), pid)
}
