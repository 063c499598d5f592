package mockrunner

import (
	"os/exec"
	"slices"
	"sync"

	"github.com/sa6mwa/sysexec/port"
)

// Behavior represents a single Start call for the mock runner. A behavior
// either returns an error to simulate a failed spawn or starts cmd itself.
type Behavior func(cmd *exec.Cmd) error

// Passthrough starts cmd for real.
func Passthrough(cmd *exec.Cmd) error {
	return cmd.Start()
}

// Runner is a thread-safe mock implementation of port.CommandRunner.
type Runner struct {
	mu        sync.Mutex
	behaviors []Behavior
	Calls     int
	Waits     int
	Paths     []string
	Args      [][]string
}

var _ port.CommandRunner = (*Runner)(nil)

// New constructs a Runner that will invoke behaviors sequentially for each
// Start call. Once the queue is drained Start falls back to Passthrough.
func New(behaviors ...Behavior) *Runner {
	return &Runner{behaviors: slices.Clone(behaviors)}
}

// Start records the call metadata and dispatches to the next behavior.
func (r *Runner) Start(cmd *exec.Cmd) error {
	r.mu.Lock()
	r.Calls++
	r.Paths = append(r.Paths, cmd.Path)
	r.Args = append(r.Args, slices.Clone(cmd.Args))
	behavior := Behavior(Passthrough)
	if len(r.behaviors) > 0 {
		behavior = r.behaviors[0]
		r.behaviors = r.behaviors[1:]
	}
	r.mu.Unlock()
	return behavior(cmd)
}

// Wait reaps cmd. It is only reached for commands that were started.
func (r *Runner) Wait(cmd *exec.Cmd) error {
	r.mu.Lock()
	r.Waits++
	r.mu.Unlock()
	return cmd.Wait()
}

// Remaining returns the number of queued behaviors that have not yet been consumed.
func (r *Runner) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.behaviors)
}
