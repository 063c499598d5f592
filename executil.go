package sysexec

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"

	"github.com/sa6mwa/sysexec/log"
	"github.com/sa6mwa/sysexec/port"
)

// StartCommand creates the child for cmd using the supplied runner. A
// failure here means no process exists and nothing must be waited for.
func StartCommand(runner port.CommandRunner, cmd *exec.Cmd) error {
	if runner == nil {
		return fmt.Errorf("nil command runner")
	}
	if cmd == nil {
		return fmt.Errorf("nil command")
	}
	if err := runner.Start(cmd); err != nil {
		return classifyStart(cmd.Path, err)
	}
	return nil
}

// WaitCommand blocks until the child started by StartCommand reaches a
// terminal state and classifies that state.
func WaitCommand(runner port.CommandRunner, cmd *exec.Cmd) error {
	err := runner.Wait(cmd)
	return classifyWait(cmd.Path, err, cmd.ProcessState)
}

// RunCommand starts cmd and waits for it.
func RunCommand(runner port.CommandRunner, cmd *exec.Cmd) error {
	if err := StartCommand(runner, cmd); err != nil {
		return err
	}
	return WaitCommand(runner, cmd)
}

// directCommand builds a command that executes argv[0] as given, without
// PATH search or shell interpretation.
func directCommand(argv []string) *exec.Cmd {
	return &exec.Cmd{
		Path: argv[0],
		Args: slices.Clone(argv),
	}
}

func classifyExitCode(path string, waitErr error, state *os.ProcessState) error {
	if !state.Exited() {
		return &ExitError{Kind: AbnormalTermination, Path: path, ExitCode: -1, Err: waitErr}
	}
	if code := state.ExitCode(); code != 0 {
		return &ExitError{Kind: NonZeroExit, Path: path, ExitCode: code}
	}
	if waitErr != nil {
		return &ExitError{Kind: ChildSetupFailure, Path: path, ExitCode: 0, Err: waitErr}
	}
	return nil
}

// report logs err at the point of detection and collapses it to a verdict.
func report(logger log.Logger, op string, err error) bool {
	if err == nil {
		return true
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		logger.Error("execution failed", "op", op, "error", err)
		return false
	}
	args := []any{"op", op, "kind", exitErr.Kind.String(), "path", exitErr.Path}
	if exitErr.ExitCode >= 0 {
		args = append(args, "exit_code", exitErr.ExitCode)
	}
	if exitErr.Signal != "" {
		args = append(args, "signal", exitErr.Signal)
	}
	if exitErr.Err != nil {
		args = append(args, "error", exitErr.Err)
	}
	switch exitErr.Kind {
	case NonZeroExit:
		logger.Warn("command exited with non-zero status", args...)
	default:
		logger.Error("command failed", args...)
	}
	return false
}
