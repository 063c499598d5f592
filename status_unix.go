//go:build unix

package sysexec

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// execErrnos are the errors the kernel returns when the new program image
// cannot be loaded, as opposed to the process not being created at all.
var execErrnos = []error{
	unix.ENOENT,
	unix.EACCES,
	unix.EPERM,
	unix.ENOEXEC,
	unix.ENOTDIR,
	unix.EISDIR,
	unix.ELOOP,
	unix.ENAMETOOLONG,
	unix.E2BIG,
	unix.ETXTBSY,
}

func isExecErr(startErr error) bool {
	for _, errno := range execErrnos {
		if errors.Is(startErr, errno) {
			return true
		}
	}
	return false
}

func classifyStart(path string, startErr error) *ExitError {
	kind := SpawnFailure
	if isExecErr(startErr) {
		kind = ExecFailure
	}
	return &ExitError{Kind: kind, Path: path, ExitCode: -1, Err: startErr}
}

// classifyWait turns the reaped state into nil or an *ExitError. Only a
// normal exit with status zero counts as success.
func classifyWait(path string, waitErr error, state *os.ProcessState) error {
	if state == nil {
		return &ExitError{Kind: SpawnFailure, Path: path, ExitCode: -1, Err: waitErr}
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return classifyExitCode(path, waitErr, state)
	}
	status := unix.WaitStatus(ws)
	switch {
	case status.Exited() && status.ExitStatus() == 0:
		if waitErr != nil {
			return &ExitError{Kind: ChildSetupFailure, Path: path, ExitCode: 0, Err: waitErr}
		}
		return nil
	case status.Exited():
		return &ExitError{Kind: NonZeroExit, Path: path, ExitCode: status.ExitStatus()}
	case status.Signaled():
		return &ExitError{Kind: AbnormalTermination, Path: path, ExitCode: -1, Signal: signalName(status.Signal())}
	default:
		// Wait reaps without WUNTRACED, so stopped children never show up here.
		return &ExitError{Kind: AbnormalTermination, Path: path, ExitCode: -1, Err: waitErr}
	}
}

func signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
