package launcher

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeJava writes a shell script standing in for the Java executable.
func fakeJava(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell based fake java requires a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "java")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))

	return path
}

// TestCaptureArgs writes arguments up to nogui and reports the flag.
func TestCaptureArgs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()

	noGUI, err := CaptureArgs(context.Background(), fs, []string{"-Xmx6G", "-Xms2G", "--NoGui", "-Dafter=1"})
	require.NoError(t, err)
	require.True(t, noGUI)

	contents, err := afero.ReadFile(fs, JVMArgsFilename)
	require.NoError(t, err)
	require.Equal(t, "-Xmx6G\n-Xms2G\n", string(contents))

	noGUI, err = CaptureArgs(context.Background(), fs, nil)
	require.NoError(t, err)
	require.False(t, noGUI)

	contents, err = afero.ReadFile(fs, JVMArgsFilename)
	require.NoError(t, err)
	require.Empty(t, contents)
}

// TestServerArgsFile picks the argument file per operating system.
func TestServerArgsFile(t *testing.T) {
	t.Parallel()

	require.Equal(t, "@libraries/net/neoforged/neoforge/21.1.62/win_args.txt", ServerArgsFile("windows", "21.1.62"))
	require.Equal(t, "@libraries/net/neoforged/neoforge/21.1.62/unix_args.txt", ServerArgsFile("linux", "21.1.62"))
	require.Equal(t, "@libraries/net/neoforged/neoforge/21.1.62/unix_args.txt", ServerArgsFile("darwin", "21.1.62"))
}

// TestInstall drains both output streams and reports the exit status.
func TestInstall(t *testing.T) {
	dir := t.TempDir()

	java := fakeJava(t, `echo "installing with $*"; echo "deprecated option" 1>&2; echo done > installed.txt`)

	runner := NewRunner(java, dir)
	require.NoError(t, runner.Install(context.Background(), "installer.jar"))

	contents, err := os.ReadFile(filepath.Join(dir, "installed.txt"))
	require.NoError(t, err)
	require.Equal(t, "done\n", string(contents))

	failing := NewRunner(fakeJava(t, `echo "broken" 1>&2; exit 3`), dir)
	require.ErrorIs(t, failing.Install(context.Background(), "installer.jar"), ErrInstallerFailed)

	missing := NewRunner(filepath.Join(dir, "no-such-java"), dir)
	require.ErrorIs(t, missing.Install(context.Background(), "installer.jar"), ErrLaunchFailed)
}

// TestLaunchServer surfaces the exit code and removes the PID file.
func TestLaunchServer(t *testing.T) {
	dir := t.TempDir()

	var stdout bytes.Buffer

	java := fakeJava(t, `echo "args: $*"; exit 7`)
	runner := NewRunner(java, dir, WithStdio(nil, &stdout, &stdout))

	code, err := runner.LaunchServer(context.Background(), ServerArgsFile("linux", "21.1.62"), "nogui")
	require.NoError(t, err)
	require.Equal(t, 7, code)
	require.Equal(t, "args: @libraries/net/neoforged/neoforge/21.1.62/unix_args.txt nogui\n", stdout.String())

	_, err = os.Stat(filepath.Join(dir, PIDFilename))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLaunchServer_PIDGuard refuses to start while a recorded server is alive and clears stale records.
func TestLaunchServer_PIDGuard(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, PIDFilename)

	runner := NewRunner(fakeJava(t, "exit 0"), dir, WithStdio(nil, nil, nil))

	// The parent of the test binary is alive for the whole test.
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getppid())), 0o600))

	code, err := runner.LaunchServer(context.Background(), "@args.txt")
	require.ErrorIs(t, err, ErrServerRunning)
	require.Equal(t, 1, code)

	// A reaped process leaves a stale record behind.
	finished := exec.Command("true")
	require.NoError(t, finished.Run())
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(finished.Process.Pid)), 0o600))

	code, err = runner.LaunchServer(context.Background(), "@args.txt")
	require.NoError(t, err)
	require.Zero(t, code)
}

// TestPump_DeliversLongLines keeps lines longer than the default scanner buffer intact.
func TestPump_DeliversLongLines(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 200_000)

	var lines []string

	err := pump(strings.NewReader(long+"\nshort\n"), func(line string) { lines = append(lines, line) })
	require.NoError(t, err)
	require.Equal(t, []string{long, "short"}, lines)
}

// TestPump_DiscardsAfterOverlongLine consumes the whole stream even when a line is too long to keep.
func TestPump_DiscardsAfterOverlongLine(t *testing.T) {
	t.Parallel()

	input := strings.NewReader(strings.Repeat("x", maxOutputLine+10) + "\nafter\n")

	var lines []string

	err := pump(input, func(line string) { lines = append(lines, line) })
	require.ErrorIs(t, err, bufio.ErrTooLong)
	require.Empty(t, lines)
	require.Zero(t, input.Len())
}

// TestInstall_OverlongOutputLine finishes when the installer prints a huge line followed by more output.
func TestInstall_OverlongOutputLine(t *testing.T) {
	java := fakeJava(t, `head -c 2000000 /dev/zero | tr '\000' x
echo
i=0
while [ $i -lt 2000 ]; do echo "line $i"; i=$((i+1)); done
exit 0`)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, NewRunner(java, t.TempDir()).Install(ctx, "installer.jar"))
	require.NoError(t, ctx.Err())
}

// TestLaunchServer_GracefulStop lets the server run its shutdown hook when the context is cancelled.
func TestLaunchServer_GracefulStop(t *testing.T) {
	dir := t.TempDir()

	java := fakeJava(t, `trap 'echo saved > stopped.txt; exit 0' TERM INT
echo running > started.txt
while true; do sleep 0.1; done`)

	runner := NewRunner(java, dir, WithStdio(nil, nil, nil), WithStopTimeout(10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		code int
		err  error
	}

	done := make(chan result, 1)

	go func() {
		code, err := runner.LaunchServer(ctx, "@args.txt")
		done <- result{code, err}
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "started.txt"))
		return err == nil
	}, 10*time.Second, 20*time.Millisecond)

	cancel()

	res := <-done
	require.NoError(t, res.err)
	require.Zero(t, res.code)

	contents, err := os.ReadFile(filepath.Join(dir, "stopped.txt"))
	require.NoError(t, err)
	require.Equal(t, "saved\n", string(contents))
}

// TestLaunchServer_StopTimeout kills a server ignoring the stop signal and reports 128+SIGKILL.
func TestLaunchServer_StopTimeout(t *testing.T) {
	dir := t.TempDir()

	java := fakeJava(t, `trap '' TERM INT
echo running > started.txt
while true; do sleep 0.1; done`)

	runner := NewRunner(java, dir, WithStdio(nil, nil, nil), WithStopTimeout(200*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)

	go func() {
		code, _ := runner.LaunchServer(ctx, "@args.txt")
		done <- code
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "started.txt"))
		return err == nil
	}, 10*time.Second, 20*time.Millisecond)

	cancel()

	require.Equal(t, 128+9, <-done)
}
