package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsupportedWASICallError_Message(t *testing.T) {
	err := &unsupportedWASICallError{call: "poll_oneoff: subscription tag 7"}
	assert.Contains(t, err.Error(), "poll_oneoff: subscription tag 7")
}

func TestHonoredWASIImports_MatchesRegisteredSet(t *testing.T) {
	// Every name this runtime registers as a host function must also be in
	// the allowlist validateImports checks a guest's imports against, or a
	// conforming guest would be refused its own honored calls.
	want := []string{
		"args_sizes_get", "args_get",
		"environ_sizes_get", "environ_get",
		"clock_time_get", "random_get",
		"sched_yield", "proc_exit",
		"fd_read", "fd_write", "poll_oneoff",
	}
	assert.Len(t, honoredWASIImports, len(want))
	for _, name := range want {
		assert.True(t, honoredWASIImports[name], "expected %s to be honored", name)
	}
}
