//go:build !unix

package sysexec

import (
	"errors"
	"os"
)

func classifyStart(path string, startErr error) *ExitError {
	kind := SpawnFailure
	if errors.Is(startErr, os.ErrNotExist) || errors.Is(startErr, os.ErrPermission) {
		kind = ExecFailure
	}
	return &ExitError{Kind: kind, Path: path, ExitCode: -1, Err: startErr}
}

func classifyWait(path string, waitErr error, state *os.ProcessState) error {
	if state == nil {
		return &ExitError{Kind: SpawnFailure, Path: path, ExitCode: -1, Err: waitErr}
	}
	return classifyExitCode(path, waitErr, state)
}
