// Package sysexec runs external commands three ways: through the system
// shell, by direct execution of an argument vector, and by direct execution
// with standard output redirected to a file. Every call blocks until the
// child has been reaped and reports success only for a normal exit with
// status zero.
//
//	if !sysexec.ExecRedirect("/tmp/out.txt", []string{"/bin/echo", "hello"}) {
//		// the file exists, its content is undefined
//	}
package sysexec

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/sa6mwa/sysexec/adapters/commandrunner"
	"github.com/sa6mwa/sysexec/config"
	"github.com/sa6mwa/sysexec/log"
	"github.com/sa6mwa/sysexec/port"

	"github.com/spf13/afero"
)

// Runner executes commands with a fixed shell, filesystem, stdio and logger.
type Runner struct {
	shell      string
	shellFlag  string
	fs         afero.Fs
	outputMode os.FileMode
	runner     port.CommandRunner
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	logger     log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithShell sets the interpreter and the flag that precedes the command
// string, e.g. "/bin/sh" and "-c".
func WithShell(path, flag string) Option {
	return func(r *Runner) {
		r.shell = path
		r.shellFlag = flag
	}
}

// WithFs sets the filesystem redirect targets are created on.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithOutputMode sets the permission bits of newly created redirect targets.
func WithOutputMode(mode os.FileMode) Option {
	return func(r *Runner) { r.outputMode = mode.Perm() }
}

// WithCommandRunner sets how child processes are started and reaped.
func WithCommandRunner(runner port.CommandRunner) Option {
	return func(r *Runner) { r.runner = runner }
}

// WithStdio sets the streams children inherit. Nil streams are connected to
// the null device.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdin = stdin
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(logger log.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New returns a Runner using /bin/sh -c, the OS filesystem, mode 0600 for
// redirect targets, the process stdio and the process-wide logger.
func New(opts ...Option) *Runner {
	r := &Runner{
		shell:      config.DefaultShell,
		shellFlag:  config.DefaultShellFlag,
		fs:         afero.NewOsFs(),
		outputMode: 0o600,
		runner:     commandrunner.Default,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runner == nil {
		r.runner = commandrunner.Default
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	return r
}

// NewFromConfig returns a Runner configured by cfg. Options are applied
// after the configuration and take precedence.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	mode, err := cfg.FileMode()
	if err != nil {
		return nil, err
	}
	base := []Option{WithShell(cfg.Shell, cfg.ShellFlag), WithOutputMode(mode)}
	return New(append(base, opts...)...), nil
}

func (r *Runner) log() log.Logger {
	if r.logger != nil {
		return r.logger
	}
	return log.Default()
}

func (r *Runner) attachStdio(cmd *exec.Cmd) {
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
}

// RunShell hands command to the configured shell and waits for it. A
// failure to launch the shell itself is reported as SpawnFailure or
// ExecFailure; otherwise the shell's exit status decides.
func (r *Runner) RunShell(command string) error {
	argv := []string{r.shell}
	if r.shellFlag != "" {
		argv = append(argv, r.shellFlag)
	}
	argv = append(argv, command)
	cmd := directCommand(argv)
	r.attachStdio(cmd)
	r.log().Debug("running shell command", "shell", r.shell, "command", command)
	return RunCommand(r.runner, cmd)
}

// RunExec executes argv[0] with argv as its argument vector. argv[0] must
// be a path; no PATH search, globbing or expansion takes place.
func (r *Runner) RunExec(argv []string) error {
	if len(argv) == 0 {
		return ErrEmptyCommand
	}
	cmd := directCommand(argv)
	r.attachStdio(cmd)
	r.log().Debug("executing", "path", argv[0], "args", argv[1:])
	return RunCommand(r.runner, cmd)
}

// RunExecRedirect is RunExec with the child's standard output bound to
// output, which is created or truncated first. If output cannot be opened
// the program is not started and ChildSetupFailure is returned. The file
// exists after the call whenever it could be opened, whatever the outcome.
func (r *Runner) RunExecRedirect(output string, argv []string) error {
	if len(argv) == 0 {
		return ErrEmptyCommand
	}
	f, err := r.fs.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, r.outputMode)
	if err != nil {
		return &ExitError{Kind: ChildSetupFailure, Path: argv[0], ExitCode: -1, Err: fmt.Errorf("open %s: %w", output, err)}
	}
	defer f.Close()

	cmd := directCommand(argv)
	r.attachStdio(cmd)
	cmd.Stdout = f
	r.log().Debug("executing with redirect", "path", argv[0], "args", argv[1:], "output", output)
	return RunCommand(r.runner, cmd)
}

// Shell reports whether command ran through the shell and exited with status zero.
func (r *Runner) Shell(command string) bool {
	return report(r.log(), "shell", r.RunShell(command))
}

// Exec reports whether argv ran and exited with status zero.
func (r *Runner) Exec(argv []string) bool {
	return report(r.log(), "exec", r.RunExec(argv))
}

// ExecRedirect reports whether argv ran with its output in output and exited
// with status zero.
func (r *Runner) ExecRedirect(output string, argv []string) bool {
	return report(r.log(), "exec_redirect", r.RunExecRedirect(output, argv))
}

var defaultRunner = New()

// Shell runs command with the default Runner.
func Shell(command string) bool {
	return defaultRunner.Shell(command)
}

// Exec runs argv with the default Runner.
func Exec(argv []string) bool {
	return defaultRunner.Exec(argv)
}

// ExecRedirect runs argv with the default Runner, writing its output to output.
func ExecRedirect(output string, argv []string) bool {
	return defaultRunner.ExecRedirect(output, argv)
}
