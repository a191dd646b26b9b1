package launcher

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/afero"

	"github.com/vaporvee/boundless-server/internal/logger"
)

// JVMArgsFilename receives the captured arguments, one per line.
const JVMArgsFilename = "user_jvm_args.txt"

// noGUIFlag disables the server console window.
const noGUIFlag = "nogui"

// CaptureArgs writes args to the JVM argument file at the root of fsys.
// Capture stops at the first nogui argument, which is reported instead of written.
func CaptureArgs(ctx context.Context, fsys afero.Fs, args []string) (bool, error) {
	file, err := fsys.OpenFile(JVMArgsFilename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFileMode)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", JVMArgsFilename, err)
	}

	writer := bufio.NewWriter(file)
	noGUI := false

	for _, arg := range args {
		if isNoGUI(arg) {
			noGUI = true
			break
		}

		if _, err = writer.WriteString(arg + "\n"); err != nil {
			_ = file.Close()

			return noGUI, fmt.Errorf("write %s: %w", JVMArgsFilename, err)
		}
	}

	if err = writer.Flush(); err != nil {
		_ = file.Close()

		return noGUI, fmt.Errorf("flush %s: %w", JVMArgsFilename, err)
	}

	if err = file.Close(); err != nil {
		return noGUI, fmt.Errorf("close %s: %w", JVMArgsFilename, err)
	}

	logger.InfoKV(ctx, "JVM arguments written", "path", JVMArgsFilename, "nogui", noGUI)

	return noGUI, nil
}

func isNoGUI(arg string) bool {
	return strings.EqualFold(strings.TrimPrefix(arg, "--"), noGUIFlag)
}

// ServerArgsFile returns the @-file holding the server launch arguments for goos.
func ServerArgsFile(goos, serverVersion string) string {
	name := "unix_args.txt"
	if strings.Contains(strings.ToLower(goos), "windows") {
		name = "win_args.txt"
	}

	return "@libraries/net/neoforged/neoforge/" + serverVersion + "/" + name
}

// CurrentServerArgsFile is ServerArgsFile for the running platform.
func CurrentServerArgsFile(serverVersion string) string {
	return ServerArgsFile(runtime.GOOS, serverVersion)
}
