package util

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"unicode/utf16"

	"go.uber.org/zap"
)

// EnsureDirExists creates the given directory path if it doesn't already exist
func EnsureDirExists(path string) error {
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return fmt.Errorf("ensure directory exists (%s): %w", path, err)
	}

	return nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}

	return !info.IsDir()
}

// Windows returns true if we're running on Windows
func Windows() bool {
	return runtime.GOOS == "windows"
}

// SetupCloseHandler creates a 'listener' on a new goroutine which will notify the
// program if it receives an interrupt from the OS
func SetupCloseHandler() chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	return c
}

// GetCurrentWindowProcessNames returns the process names (including extension, if
// applicable) of the current foreground window. This includes child processes
// belonging to the window. Only implemented on Windows
func GetCurrentWindowProcessNames() ([]string, error) {
	return getCurrentWindowProcessNames()
}

// OpenExternal spawns a detached window with the provided command and argument
func OpenExternal(logger *zap.SugaredLogger, cmd string, arg string) error {
	var command *exec.Cmd

	if Windows() {
		command = exec.Command("cmd.exe", "/C", "start", "/b", cmd, arg)
	} else {
		command = exec.Command(cmd, arg)
	}

	if err := command.Run(); err != nil {
		logger.Warnw("Failed to spawn detached process",
			"command", cmd,
			"argument", arg,
			"error", err)

		return fmt.Errorf("spawn detached proc: %w", err)
	}

	return nil
}

// NormalizeScalar "trims" the given float32 to 2 points of precision (e.g. 0.15442 -> 0.15)
// This is used both for volume levels and for displaying them
func NormalizeScalar(v float32) float32 {
	return float32(math.Floor(float64(v)*100) / 100.0)
}

// AlmostEquals reports whether two volume scalars are within 0.005 of each other,
// which is below the resolution of the endpoint volume controls
func AlmostEquals(a float32, b float32) bool {
	return math.Abs(float64(a-b)) < 0.005
}

// TruncateUTF16 returns the longest prefix of s, cut on a rune boundary, that fits in
// maxUnits UTF-16 code units. Windows measures its fixed-size text buffers this way
func TruncateUTF16(s string, maxUnits int) string {
	units := 0

	for idx, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}

		if units+n > maxUnits {
			return s[:idx]
		}
		units += n
	}

	return s
}

// ParseScalar parses a volume given either as a scalar ("0.35") or a percentage ("35%")
func ParseScalar(s string) (float32, error) {
	s = strings.TrimSpace(s)
	divisor := 1.0

	if strings.HasSuffix(s, "%") {
		s = strings.TrimSuffix(s, "%")
		divisor = 100.0
	}

	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("parse volume %q: %w", s, err)
	}

	v /= divisor
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("volume %q out of range", s)
	}

	return float32(v), nil
}
