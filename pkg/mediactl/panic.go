package mediactl

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/omriharel/mediactl/pkg/mediactl/util"
)

const (
	crashlogFilename        = "mediactl-crash-%s.log"
	crashlogTimestampFormat = "2006.01.02-15.04.05"
	crashMessageTemplate    = `-----------------------------------------------------------------
                        mediactl crashlog
-----------------------------------------------------------------
mediactl has crashed. Please attach this file when reporting the issue.
-----------------------------------------------------------------
Time: %s
Panic occurred: %s
Stack trace:
%s
-----------------------------------------------------------------
`
)

func (m *MediaCtl) recoverFromPanic() {
	if r := recover(); r != nil {
		m.handlePanic(r)
	}
}

// handlePanic writes a crash log next to the regular logs, tells the user and exits
func (m *MediaCtl) handlePanic(recoverValue interface{}) {
	now := time.Now()

	crashlogPath, err := writeCrashLog(logDirectory, now, recoverValue, debug.Stack())
	if err != nil {
		panic(err)
	}

	m.logger.Errorw("Encountered and logged panic, crashing",
		"crashlogPath", crashlogPath,
		"error", recoverValue)

	m.notifier.Notify("Unexpected crash occurred...",
		fmt.Sprintf("More details in %s", crashlogPath))

	m.signalStop()

	m.logger.Errorw("Quitting", "exitCode", 1)
	os.Exit(1)
}

func writeCrashLog(dir string, now time.Time, recoverValue interface{}, stack []byte) (string, error) {
	if err := util.EnsureDirExists(dir); err != nil {
		return "", fmt.Errorf("ensure crashlog dir exists: %w", err)
	}

	crashlogPath := filepath.Join(dir, fmt.Sprintf(crashlogFilename, now.Format(crashlogTimestampFormat)))
	content := fmt.Sprintf(crashMessageTemplate, now.Format(crashlogTimestampFormat), recoverValue, stack)

	if err := os.WriteFile(crashlogPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write crashlog file: %w", err)
	}

	return crashlogPath, nil
}
