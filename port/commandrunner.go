package port

import (
	"os/exec"
)

// CommandRunner abstracts process creation and reaping so runners can be
// plugged in across packages without depending on a specific adapter
// implementation.
type CommandRunner interface {
	Start(cmd *exec.Cmd) error
	Wait(cmd *exec.Cmd) error
}
