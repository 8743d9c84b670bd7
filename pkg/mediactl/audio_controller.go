package mediactl

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	ole "github.com/go-ole/go-ole"
	"go.uber.org/zap"
)

const executableSuffix = ".exe"

// AudioController discovers the master endpoint and every process emitting audio,
// and holds them as sessions. It does no locking of its own; callers serialize access.
type AudioController struct {
	logger        *zap.SugaredLogger
	sessionLogger *zap.SugaredLogger

	subsystem AudioSubsystem
	newToken  func() (*ole.GUID, error)

	enumerator    DeviceEnumerator
	defaultDevice Device

	sessions []Session
}

// NewAudioController creates a controller on top of the given subsystem. No foreign
// calls are made until Discover (or the individual steps) run.
func NewAudioController(logger *zap.SugaredLogger, subsystem AudioSubsystem) *AudioController {
	ac := &AudioController{
		logger:        logger.Named("audio_controller"),
		sessionLogger: logger.Named("sessions"),
		subsystem:     subsystem,
		newToken:      newCorrelationToken,
	}

	ac.logger.Debug("Created audio controller instance")

	return ac
}

// Discover runs every discovery step in order.
func (ac *AudioController) Discover() {
	ac.Init()
	ac.AcquireEnumerator()
	ac.ResolveDefaultEndpoint()
	ac.EnumerateApplicationSessions()

	ac.logger.Infow("Discovered audio sessions", "count", len(ac.sessions))
}

// Init joins the component object runtime. The process exits if that fails.
func (ac *AudioController) Init() {
	if err := ac.subsystem.Initialize(); err != nil {
		ac.logger.Fatalw("Failed to initialize audio subsystem", "error", err)
	}
}

// AcquireEnumerator creates the device enumerator. The process exits if that fails.
func (ac *AudioController) AcquireEnumerator() {
	if ac.enumerator != nil {
		return
	}

	enumerator, err := ac.subsystem.NewDeviceEnumerator()
	if err != nil {
		ac.logger.Fatalw("Failed to get device enumerator", "error", err)
		return
	}

	ac.enumerator = enumerator
}

// ResolveDefaultEndpoint resolves the default multimedia render device and adds the
// master session for it.
func (ac *AudioController) ResolveDefaultEndpoint() {
	if ac.enumerator == nil {
		ac.logger.Errorw("Default endpoint requested before acquiring a device enumerator", "error", ErrNotInitialized)
		return
	}

	if ac.defaultDevice != nil {
		ac.logger.Debug("Default endpoint already resolved")
		return
	}

	device, err := ac.enumerator.DefaultRenderDevice(RoleMultimedia)
	if err != nil {
		ac.logger.Warnw("Failed to get default audio endpoint", "error", err)
		return
	}

	ac.defaultDevice = device

	control, err := device.EndpointVolume()
	if err != nil {
		ac.logger.Warnw("Failed to get endpoint volume control", "error", err)
		return
	}

	ac.sessions = append(ac.sessions, newEndpointSession(ac.sessionLogger, control))
}

// EnumerateApplicationSessions adds one session per process currently emitting audio on
// the default device. Entries that can't be resolved are skipped.
func (ac *AudioController) EnumerateApplicationSessions() {
	if ac.defaultDevice == nil {
		ac.logger.Errorw("Application sessions requested before resolving the default endpoint", "error", ErrNotInitialized)
		return
	}

	manager, err := ac.defaultDevice.SessionManager()
	if err != nil {
		ac.logger.Warnw("Failed to get audio session manager", "error", err)
		return
	}
	defer manager.Release()

	enumerator, err := manager.SessionEnumerator()
	if err != nil {
		ac.logger.Warnw("Failed to get audio session enumerator", "error", err)
		return
	}
	defer enumerator.Release()

	count, err := enumerator.Count()
	if err != nil {
		ac.logger.Warnw("Failed to get audio session count", "error", err)
		return
	}

	for idx := 0; idx < count; idx++ {
		if session := ac.resolveApplicationSession(enumerator, idx); session != nil {
			ac.sessions = append(ac.sessions, session)
		}
	}
}

func (ac *AudioController) resolveApplicationSession(enumerator SessionEnumerator, idx int) *ApplicationSession {
	control, err := enumerator.Session(idx)
	if err != nil {
		ac.logger.Warnw("Failed to get audio session control", "index", idx, "error", err)
		return nil
	}
	defer control.Release()

	extended, err := control.Extended()
	if err != nil {
		ac.logger.Warnw("Failed to get extended audio session control", "index", idx, "error", err)
		return nil
	}
	defer extended.Release()

	pid, err := extended.ProcessID()
	if err != nil {
		ac.logger.Warnw("Failed to get audio session process id", "index", idx, "error", err)
		return nil
	}

	// system sounds, or a process that already exited
	if pid == 0 {
		return nil
	}

	name, ok := ac.processSessionName(pid)
	if !ok {
		return nil
	}

	volume, err := extended.SimpleVolume()
	if err != nil {
		ac.logger.Warnw("Failed to get simple audio volume", "process", name, "pid", pid, "error", err)
		return nil
	}

	return newApplicationSession(ac.sessionLogger, name, volume, ac.newToken)
}

func (ac *AudioController) processSessionName(pid uint32) (string, bool) {
	process, err := ac.subsystem.OpenProcess(pid)
	if err != nil {
		ac.logger.Debugw("Skipping audio session, can't open its process", "pid", pid, "error", err)
		return "", false
	}
	defer func() {
		if err := process.Close(); err != nil {
			ac.logger.Debugw("Failed to close process handle", "pid", pid, "error", err)
		}
	}()

	raw, err := process.ImagePath()
	if err != nil {
		ac.logger.Debugw("Skipping audio session, can't read its process image path", "pid", pid, "error", err)
		return "", false
	}

	path, err := decodeImagePath(raw)
	if err != nil {
		ac.logger.Warnw("Failed to decode process image path", "pid", pid, "error", err)
		return "", false
	}

	return sessionNameFromImagePath(path), true
}

// SessionNames returns the names of all sessions in discovery order.
func (ac *AudioController) SessionNames() []string {
	names := make([]string, len(ac.sessions))
	for idx, session := range ac.sessions {
		names[idx] = session.GetName()
	}

	return names
}

// Sessions returns the discovered sessions in discovery order.
func (ac *AudioController) Sessions() []Session {
	return append([]Session(nil), ac.sessions...)
}

// FindSession returns the first session whose name matches exactly.
func (ac *AudioController) FindSession(name string) (Session, bool) {
	for _, session := range ac.sessions {
		if session.GetName() == name {
			return session, true
		}
	}

	return nil, false
}

// Refresh drops every session and the default device, then rediscovers them.
func (ac *AudioController) Refresh() {
	ac.logger.Debug("Refreshing audio sessions")

	ac.releaseSessions()
	ac.ResolveDefaultEndpoint()
	ac.EnumerateApplicationSessions()

	ac.logger.Infow("Refreshed audio sessions", "count", len(ac.sessions))
}

// Release frees every handle held by the controller.
func (ac *AudioController) Release() {
	ac.releaseSessions()

	if ac.enumerator != nil {
		ac.enumerator.Release()
		ac.enumerator = nil
	}

	ac.logger.Debug("Released audio controller instance")
}

func (ac *AudioController) releaseSessions() {
	for _, session := range ac.sessions {
		session.Release()
	}
	ac.sessions = nil

	if ac.defaultDevice != nil {
		ac.defaultDevice.Release()
		ac.defaultDevice = nil
	}
}

func (ac *AudioController) String() string {
	return fmt.Sprintf("<%d audio sessions>", len(ac.sessions))
}

// decodeImagePath cuts the raw path at the first NUL and requires valid UTF-8.
func decodeImagePath(raw []byte) (string, error) {
	if idx := bytes.IndexByte(raw, 0); idx >= 0 {
		raw = raw[:idx]
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("image path is not valid utf-8: %q", raw)
	}

	return string(raw), nil
}

// sessionNameFromImagePath keeps the last path segment and drops a trailing ".exe".
func sessionNameFromImagePath(path string) string {
	name := path
	if idx := strings.LastIndexAny(name, `\/`); idx >= 0 {
		name = name[idx+1:]
	}

	if len(name) > len(executableSuffix) && strings.EqualFold(name[len(name)-len(executableSuffix):], executableSuffix) {
		name = name[:len(name)-len(executableSuffix)]
	}

	return name
}
