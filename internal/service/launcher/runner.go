package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/go-ps"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/vaporvee/boundless-server/internal/logger"
)

const (
	// PIDFilename records the running server process at the install root.
	PIDFilename = "boundless-server.pid"

	// DefaultStopTimeout is how long a stopping server may take before it is killed.
	DefaultStopTimeout = 60 * time.Second

	defaultFileMode os.FileMode = 0o644

	// maxOutputLine bounds a single installer output line kept for the log.
	maxOutputLine = 1 << 20
)

var (
	// ErrLaunchFailed is returned when a child process cannot be started.
	ErrLaunchFailed = errors.New("process launch failed")
	// ErrInstallerFailed is returned when the installer exits unsuccessfully.
	ErrInstallerFailed = errors.New("installer failed")
	// ErrServerRunning is returned when a server started from this root is still alive.
	ErrServerRunning = errors.New("server is already running")
)

// Runner starts Java child processes inside an install root.
type Runner struct {
	// java is the Java executable.
	java string
	// dir is the working directory of child processes.
	dir string
	// stdin, stdout and stderr are attached to the server process.
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// installerLevel filters installer output when set.
	installerLevel *zapcore.Level
	// stopTimeout bounds the graceful shutdown of the server.
	stopTimeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithStdio replaces the streams attached to the server process.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdin = stdin
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithInstallerLevel sets the minimum level of installer output in the log.
func WithInstallerLevel(level zapcore.Level) Option {
	return func(r *Runner) {
		r.installerLevel = &level
	}
}

// WithStopTimeout sets how long the server may take to stop after cancellation.
func WithStopTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout > 0 {
			r.stopTimeout = timeout
		}
	}
}

// NewRunner creates a Runner using java inside dir.
func NewRunner(java, dir string, opts ...Option) *Runner {
	r := &Runner{
		java:   java,
		dir:    dir,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,

		stopTimeout: DefaultStopTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Install runs the loader installer jar in server mode and waits for it.
// Its output streams are drained line by line into the log by two goroutines
// that are both joined before the process is reaped.
func (r *Runner) Install(ctx context.Context, installerPath string) error {
	ctx = logger.WithName(ctx, "installer")
	if r.installerLevel != nil {
		ctx = logger.WithMinLevel(ctx, *r.installerLevel)
	}

	//nolint:gosec // The Java executable and installer path come from local configuration.
	cmd := exec.CommandContext(ctx, r.java, "-jar", installerPath, "--install-server")
	cmd.Dir = r.dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("installer stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("installer stderr: %w", err)
	}

	logger.InfoKV(ctx, "Starting installer", "java", r.java, "installer", installerPath)

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w: %w", r.java, ErrLaunchFailed, err)
	}

	var drains errgroup.Group

	drains.Go(func() error {
		return pump(stdout, func(line string) { logger.Info(ctx, line) })
	})

	drains.Go(func() error {
		return pump(stderr, func(line string) { logger.Warn(ctx, line) })
	})

	drainErr := drains.Wait()

	if err = cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrInstallerFailed, err)
	}

	if drainErr != nil {
		logger.WarnKV(ctx, "Installer output was cut short", "error", drainErr)
	}

	logger.Info(ctx, "Installer finished")

	return nil
}

// pump forwards every line of r to sink until EOF.
// After a scan failure the rest of r is discarded so the writer never blocks.
func pump(r io.Reader, sink func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxOutputLine)

	for scanner.Scan() {
		sink(scanner.Text())
	}

	err := scanner.Err()
	if err != nil {
		_, _ = io.Copy(io.Discard, r)
	}

	return err
}

// LaunchServer starts the server with the given @-argument file and extra arguments,
// waits for it to exit and returns its exit code.
// A server previously started from the same root that is still alive blocks the launch.
// Cancelling ctx asks the server to stop and kills it after the stop timeout.
func (r *Runner) LaunchServer(ctx context.Context, argsFile string, extra ...string) (int, error) {
	pidPath := filepath.Join(r.dir, PIDFilename)

	if err := r.ensureNotRunning(ctx, pidPath); err != nil {
		return 1, err
	}

	args := append([]string{argsFile}, extra...)

	//nolint:gosec // The Java executable and argument file come from local configuration.
	cmd := exec.CommandContext(ctx, r.java, args...)
	cmd.Dir = r.dir
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.WaitDelay = r.stopTimeout
	cmd.Cancel = func() error {
		logger.InfoKV(ctx, "Stopping server", "timeout", r.stopTimeout)

		return cmd.Process.Signal(stopSignal())
	}

	logger.InfoKV(ctx, "Starting server", "java", r.java, "args", strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("%s: %w: %w", r.java, ErrLaunchFailed, err)
	}

	pid := []byte(strconv.Itoa(cmd.Process.Pid))
	if err := os.WriteFile(pidPath, pid, defaultFileMode); err != nil {
		logger.WarnKV(ctx, "Unable to record server PID", "path", pidPath, "error", err)
	}

	defer func() {
		_ = os.Remove(pidPath)
	}()

	err := cmd.Wait()
	if cmd.ProcessState == nil {
		return 1, fmt.Errorf("wait for server: %w", err)
	}

	code := exitCode(cmd.ProcessState)
	logger.InfoKV(ctx, "Server process exited", "code", code)

	return code, nil
}

// stopSignal is the signal asking the server to shut down cleanly.
func stopSignal() os.Signal {
	if runtime.GOOS == "windows" {
		return os.Kill
	}

	return syscall.SIGTERM
}

// exitCode maps a finished process to a shell style status: 128+signal when it was signaled.
func exitCode(state *os.ProcessState) int {
	if code := state.ExitCode(); code >= 0 {
		return code
	}

	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}

	return 1
}

// ensureNotRunning checks the PID file left by a previous launch.
// Stale files are removed; a live process yields ErrServerRunning.
func (r *Runner) ensureNotRunning(ctx context.Context, pidPath string) error {
	contents, err := os.ReadFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read %s: %w", pidPath, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err == nil && pid != os.Getpid() {
		process, findErr := ps.FindProcess(pid)
		if findErr != nil {
			return fmt.Errorf("look up process %d: %w", pid, findErr)
		}

		if process != nil {
			return fmt.Errorf("pid %d (%s): %w", pid, process.Executable(), ErrServerRunning)
		}
	}

	logger.InfoKV(ctx, "Removing stale server PID file", "path", pidPath)

	if err = os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", pidPath, err)
	}

	return nil
}
