package util

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/lxn/win"
	ps "github.com/mitchellh/go-ps"
	"github.com/thoas/go-funk"
)

// foreground lookups are cached for this long, the tray and CLI may ask in bursts
const foregroundCacheTTL = 350 * time.Millisecond

type foregroundCache struct {
	lock    sync.Mutex
	names   []string
	fetched time.Time
}

var foreground foregroundCache

func getCurrentWindowProcessNames() ([]string, error) {
	foreground.lock.Lock()
	defer foreground.lock.Unlock()

	now := time.Now()
	if now.Sub(foreground.fetched) < foregroundCacheTTL {
		return foreground.names, nil
	}
	foreground.fetched = now

	names, err := foregroundProcessNames()
	if err != nil {
		return nil, err
	}

	foreground.names = names
	return names, nil
}

// foregroundProcessNames returns the executable of the foreground window followed by the
// executables of child windows owned by other processes (UWP apps host their content in one).
func foregroundProcessNames() ([]string, error) {
	hwnd := win.GetForegroundWindow()

	var ownerPID uint32
	win.GetWindowThreadProcessId(hwnd, &ownerPID)

	// no foreground window, or it belongs to the system
	if ownerPID == 0 {
		return nil, nil
	}

	owner, err := ps.FindProcess(int(ownerPID))
	if err != nil {
		return nil, fmt.Errorf("find foreground process %d: %w", ownerPID, err)
	}
	if owner == nil {
		return nil, nil
	}

	names := []string{owner.Executable()}

	visitChild := func(child win.HWND, _ uintptr) uintptr {
		var childPID uint32
		win.GetWindowThreadProcessId(child, &childPID)

		if childPID != 0 && childPID != ownerPID {
			if process, err := ps.FindProcess(int(childPID)); err == nil && process != nil {
				names = append(names, process.Executable())
			}
		}

		return 1
	}

	win.EnumChildWindows(hwnd, syscall.NewCallback(visitChild), 0)

	return funk.UniqString(names), nil
}
