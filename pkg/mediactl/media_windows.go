//go:build windows

package mediactl

import (
	"runtime"
	"strings"
	"sync"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

const (
	vkMediaNextTrack = 0xB0
	vkMediaPrevTrack = 0xB1
	vkMediaStop      = 0xB2
	vkMediaPlayPause = 0xB3

	keyEventFExtendedKey = 0x1
	keyEventFKeyUp       = 0x2

	maxWindowTitleLength = 512
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procKeybdEvent     = user32.NewProc("keybd_event")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")

	// EnumWindows callbacks can't be released, so there's exactly one and it forwards
	// to whichever visitor currently holds enumWindowsLock.
	enumWindowsLock     sync.Mutex
	enumWindowsVisitor  func(hwnd windows.HWND)
	enumWindowsCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumWindowsVisitor(hwnd)
		return 1
	})
)

// windowMediaTransport reads the current track from the window title of a known media
// player and drives playback through the media keys.
type windowMediaTransport struct {
	logger  *zap.SugaredLogger
	players []PlayerConfig

	lock      sync.Mutex
	lastTrack map[string]MediaInfo
}

// NewMediaTransport returns a transport backed by the system media session, falling back to
// the window titles of the given players, in priority order.
func NewMediaTransport(logger *zap.SugaredLogger, players []PlayerConfig) MediaTransport {
	return newFallbackTransport(newSessionTransport(logger), newWindowMediaTransport(logger, players))
}

func newWindowMediaTransport(logger *zap.SugaredLogger, players []PlayerConfig) *windowMediaTransport {
	if len(players) == 0 {
		players = defaultPlayers
	}

	return &windowMediaTransport{
		logger:    logger.Named("media_windows"),
		players:   players,
		lastTrack: make(map[string]MediaInfo),
	}
}

func (t *windowMediaTransport) CurrentMedia() (MediaInfo, bool) {
	titles := t.playerWindowTitles()

	for _, player := range t.players {
		for _, title := range titles[strings.ToLower(player.Process)] {
			info, ok := player.parseWindowTitle(title)
			if !ok {
				continue
			}

			return t.withLastTrack(player, info), true
		}
	}

	return MediaInfo{}, false
}

// withLastTrack keeps showing the last track of a player while it sits on an idle title.
func (t *windowMediaTransport) withLastTrack(player PlayerConfig, info MediaInfo) MediaInfo {
	t.lock.Lock()
	defer t.lock.Unlock()

	key := strings.ToLower(player.Process)

	if info.Title == "" {
		if last, ok := t.lastTrack[key]; ok {
			last.PlaybackStatus = info.PlaybackStatus
			return last
		}
		return info
	}

	t.lastTrack[key] = info
	return info
}

// playerWindowTitles returns the titles of all visible top-level windows, keyed by the
// lowercase executable name of the owning process.
func (t *windowMediaTransport) playerWindowTitles() map[string][]string {
	enumWindowsLock.Lock()
	defer enumWindowsLock.Unlock()

	result := make(map[string][]string)
	names := make(map[uint32]string)

	enumWindowsVisitor = func(hwnd windows.HWND) {
		if !windows.IsWindowVisible(hwnd) {
			return
		}

		title := windowText(hwnd)
		if title == "" {
			return
		}

		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
			return
		}

		name, ok := names[pid]
		if !ok {
			name = t.processName(pid)
			names[pid] = name
		}
		if name == "" {
			return
		}

		result[name] = append(result[name], title)
	}

	if err := windows.EnumWindows(enumWindowsCallback, nil); err != nil {
		t.logger.Debugw("Failed to enumerate top-level windows", "error", err)
	}

	return result
}

// windowText returns the title of a window, or "" when it has none or is gone.
func windowText(hwnd windows.HWND) string {
	buf := make([]uint16, maxWindowTitleLength)

	n, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 || int(n) > len(buf) {
		return ""
	}

	return windows.UTF16ToString(buf[:n])
}

func (t *windowMediaTransport) processName(pid uint32) string {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}

	name, err := proc.Name()
	if err != nil {
		return ""
	}

	return strings.ToLower(name)
}

func (t *windowMediaTransport) Play() bool {
	if info, ok := t.CurrentMedia(); ok && info.PlaybackStatus == PlaybackPlaying {
		return true
	}
	return t.sendMediaKey(vkMediaPlayPause)
}

func (t *windowMediaTransport) Pause() bool {
	info, ok := t.CurrentMedia()
	if !ok {
		return false
	}
	if info.PlaybackStatus != PlaybackPlaying {
		return true
	}
	return t.sendMediaKey(vkMediaPlayPause)
}

func (t *windowMediaTransport) Next() bool {
	return t.sendMediaKey(vkMediaNextTrack)
}

func (t *windowMediaTransport) Previous() bool {
	return t.sendMediaKey(vkMediaPrevTrack)
}

func (t *windowMediaTransport) Stop() bool {
	return t.sendMediaKey(vkMediaStop)
}

func (t *windowMediaTransport) sendMediaKey(vk uintptr) bool {
	if err := procKeybdEvent.Find(); err != nil {
		t.logger.Warnw("Media keys unavailable", "error", err)
		return false
	}

	procKeybdEvent.Call(vk, 0, keyEventFExtendedKey, 0)
	procKeybdEvent.Call(vk, 0, keyEventFExtendedKey|keyEventFKeyUp, 0)

	t.logger.Debugw("Sent media key", "vk", vk)
	return true
}

// wcaSystemVolume resolves the default console endpoint on every call, so it keeps
// working across default device changes. Each call joins the multithreaded apartment on
// whatever thread it runs on.
type wcaSystemVolume struct {
	logger *zap.SugaredLogger
}

// NewSystemVolume returns a reader/writer for the default device's master volume.
func NewSystemVolume(logger *zap.SugaredLogger) SystemVolume {
	return &wcaSystemVolume{
		logger: logger.Named("system_volume"),
	}
}

func (v *wcaSystemVolume) withEndpoint(f func(VolumeControl) error) bool {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	leave, err := joinMultithreaded()
	if err != nil {
		v.logger.Debugw("Failed to join component object runtime", "error", err)
		return false
	}
	defer leave()

	enumerator, err := newDeviceEnumerator()
	if err != nil {
		v.logger.Debugw("Failed to get device enumerator", "error", err)
		return false
	}
	defer enumerator.Release()

	device, err := enumerator.DefaultRenderDevice(RoleConsole)
	if err != nil {
		v.logger.Debugw("Failed to get default audio endpoint", "error", err)
		return false
	}
	defer device.Release()

	control, err := device.EndpointVolume()
	if err != nil {
		v.logger.Debugw("Failed to get endpoint volume control", "error", err)
		return false
	}
	defer control.Release()

	if err := f(control); err != nil {
		v.logger.Debugw("Endpoint volume call failed", "error", err)
		return false
	}

	return true
}

func (v *wcaSystemVolume) Volume() (level float32, ok bool) {
	ok = v.withEndpoint(func(control VolumeControl) (err error) {
		level, err = control.Volume()
		return err
	})
	return level, ok
}

func (v *wcaSystemVolume) Mute() (muted bool, ok bool) {
	ok = v.withEndpoint(func(control VolumeControl) (err error) {
		muted, err = control.Mute()
		return err
	})
	return muted, ok
}

func (v *wcaSystemVolume) SetVolume(level float32) bool {
	if level < 0 || level > 1 {
		v.logger.Warnw("Refusing to set system volume outside of [0, 1]", "volume", level)
		return false
	}

	return v.withEndpoint(func(control VolumeControl) error {
		return control.SetVolume(level, ole.IID_NULL)
	})
}

func (v *wcaSystemVolume) SetMute(mute bool) bool {
	return v.withEndpoint(func(control VolumeControl) error {
		return control.SetMute(mute, ole.IID_NULL)
	})
}
