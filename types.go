package sysexec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCommand        = errors.New("sysexec: empty command")
	ErrSpawn               = errors.New("sysexec: unable to create process")
	ErrChildSetup          = errors.New("sysexec: child setup failed")
	ErrExec                = errors.New("sysexec: unable to execute program")
	ErrNonZeroExit         = errors.New("sysexec: non-zero exit status")
	ErrAbnormalTermination = errors.New("sysexec: abnormal termination")
)

// Kind classifies why an execution did not succeed.
type Kind int

const (
	SpawnFailure Kind = iota + 1
	ChildSetupFailure
	ExecFailure
	NonZeroExit
	AbnormalTermination
)

func (k Kind) String() string {
	switch k {
	case SpawnFailure:
		return "spawn failure"
	case ChildSetupFailure:
		return "child setup failure"
	case ExecFailure:
		return "exec failure"
	case NonZeroExit:
		return "non-zero exit"
	case AbnormalTermination:
		return "abnormal termination"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case SpawnFailure:
		return ErrSpawn
	case ChildSetupFailure:
		return ErrChildSetup
	case ExecFailure:
		return ErrExec
	case NonZeroExit:
		return ErrNonZeroExit
	case AbnormalTermination:
		return ErrAbnormalTermination
	default:
		return nil
	}
}

// ExitError describes a failed execution. ExitCode is -1 unless the program
// exited normally; Signal is empty unless the program was signaled or stopped.
type ExitError struct {
	Kind     Kind
	Path     string
	ExitCode int
	Signal   string
	Err      error
}

func (e *ExitError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "sysexec: %s: %s", e.Path, e.Kind)
	switch {
	case e.Kind == NonZeroExit:
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	case e.Signal != "":
		fmt.Fprintf(&b, " (%s)", e.Signal)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ExitError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
