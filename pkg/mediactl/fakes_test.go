package mediactl

import (
	"errors"
	"sync"
	"testing"

	ole "github.com/go-ole/go-ole"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var errFake = errors.New("fake failure")

// newTestLogger returns a logger that panics instead of exiting on Fatal.
func newTestLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()

	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.WithFatalHook(zapcore.WriteThenPanic))).Sugar()
}

// newObservedLogger records every entry at debug level and above.
func newObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core, zap.WithFatalHook(zapcore.WriteThenPanic)).Sugar(), logs
}

type fakeVolume struct {
	mu sync.Mutex

	level float32
	muted bool
	err   error

	lastCtx  *ole.GUID
	released int
}

func (v *fakeVolume) Volume() (float32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.err != nil {
		return 0, v.err
	}
	return v.level, nil
}

func (v *fakeVolume) SetVolume(level float32, eventContext *ole.GUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.err != nil {
		return v.err
	}
	v.level = level
	v.lastCtx = eventContext
	return nil
}

func (v *fakeVolume) Mute() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.err != nil {
		return false, v.err
	}
	return v.muted, nil
}

func (v *fakeVolume) SetMute(mute bool, eventContext *ole.GUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.err != nil {
		return v.err
	}
	v.muted = mute
	v.lastCtx = eventContext
	return nil
}

func (v *fakeVolume) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.released++
}

type fakeProcess struct {
	path   []byte
	err    error
	closed bool
}

func (p *fakeProcess) ImagePath() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.path, nil
}

func (p *fakeProcess) Close() error {
	p.closed = true
	return nil
}

type fakeSubsystem struct {
	initErr    error
	enumErr    error
	enumerator *fakeEnumerator
	processes  map[uint32]*fakeProcess

	initCalls int
}

func (s *fakeSubsystem) Initialize() error {
	s.initCalls++
	return s.initErr
}

func (s *fakeSubsystem) NewDeviceEnumerator() (DeviceEnumerator, error) {
	if s.enumErr != nil {
		return nil, s.enumErr
	}
	return s.enumerator, nil
}

func (s *fakeSubsystem) OpenProcess(pid uint32) (ProcessHandle, error) {
	process, ok := s.processes[pid]
	if !ok {
		return nil, errFake
	}
	return process, nil
}

type fakeEnumerator struct {
	device *fakeDevice
	err    error

	roles    []Role
	released int
}

func (e *fakeEnumerator) DefaultRenderDevice(role Role) (Device, error) {
	e.roles = append(e.roles, role)

	if e.err != nil {
		return nil, errors.Join(ErrNoDefaultDevice, e.err)
	}
	return e.device, nil
}

func (e *fakeEnumerator) Release() {
	e.released++
}

type fakeDevice struct {
	endpoint    *fakeVolume
	endpointErr error
	manager     *fakeManager
	managerErr  error

	released int
}

func (d *fakeDevice) EndpointVolume() (VolumeControl, error) {
	if d.endpointErr != nil {
		return nil, d.endpointErr
	}
	return d.endpoint, nil
}

func (d *fakeDevice) SessionManager() (SessionManager, error) {
	if d.managerErr != nil {
		return nil, d.managerErr
	}
	return d.manager, nil
}

func (d *fakeDevice) Release() {
	d.released++
}

type fakeManager struct {
	enumerator    *fakeSessionEnumerator
	enumeratorErr error

	released int
}

func (m *fakeManager) SessionEnumerator() (SessionEnumerator, error) {
	if m.enumeratorErr != nil {
		return nil, m.enumeratorErr
	}
	return m.enumerator, nil
}

func (m *fakeManager) Release() {
	m.released++
}

type fakeSessionEnumerator struct {
	entries  []*fakeSessionEntry
	countErr error

	released int
}

func (e *fakeSessionEnumerator) Count() (int, error) {
	if e.countErr != nil {
		return 0, e.countErr
	}
	return len(e.entries), nil
}

func (e *fakeSessionEnumerator) Session(idx int) (SessionControl, error) {
	entry := e.entries[idx]
	if entry.controlErr != nil {
		return nil, entry.controlErr
	}
	return entry, nil
}

func (e *fakeSessionEnumerator) Release() {
	e.released++
}

// fakeSessionEntry serves as both the basic and the extended control of one session.
type fakeSessionEntry struct {
	controlErr  error
	extendedErr error
	pid         uint32
	pidErr      error
	volume      *fakeVolume
	volumeErr   error

	released int
}

func (e *fakeSessionEntry) Extended() (ExtendedSessionControl, error) {
	if e.extendedErr != nil {
		return nil, e.extendedErr
	}
	return e, nil
}

func (e *fakeSessionEntry) ProcessID() (uint32, error) {
	if e.pidErr != nil {
		return 0, e.pidErr
	}
	return e.pid, nil
}

func (e *fakeSessionEntry) SimpleVolume() (VolumeControl, error) {
	if e.volumeErr != nil {
		return nil, e.volumeErr
	}
	return e.volume, nil
}

func (e *fakeSessionEntry) Release() {
	e.released++
}

// fakeHost wires a full fake subsystem with a default device at 50% volume.
type fakeHost struct {
	subsystem  *fakeSubsystem
	enumerator *fakeEnumerator
	device     *fakeDevice
	manager    *fakeManager
	sessions   *fakeSessionEnumerator
}

func newFakeHost() *fakeHost {
	sessions := &fakeSessionEnumerator{}
	manager := &fakeManager{enumerator: sessions}
	device := &fakeDevice{endpoint: &fakeVolume{level: 0.5}, manager: manager}
	enumerator := &fakeEnumerator{device: device}

	return &fakeHost{
		subsystem: &fakeSubsystem{
			enumerator: enumerator,
			processes:  map[uint32]*fakeProcess{},
		},
		enumerator: enumerator,
		device:     device,
		manager:    manager,
		sessions:   sessions,
	}
}

// addApp registers a running process emitting audio and returns its volume control.
func (h *fakeHost) addApp(pid uint32, imagePath string, level float32) *fakeVolume {
	volume := &fakeVolume{level: level}

	if pid != 0 {
		h.subsystem.processes[pid] = &fakeProcess{path: append([]byte(imagePath), 0)}
	}
	h.sessions.entries = append(h.sessions.entries, &fakeSessionEntry{pid: pid, volume: volume})

	return volume
}

func (h *fakeHost) addEntry(entry *fakeSessionEntry) {
	h.sessions.entries = append(h.sessions.entries, entry)
}

func newDiscoveredController(t *testing.T, host *fakeHost) *AudioController {
	t.Helper()

	ac := NewAudioController(newTestLogger(t), host.subsystem)
	ac.Discover()
	require.Equal(t, 1, host.subsystem.initCalls)

	return ac
}

type fakeMediaSource struct {
	mu   sync.Mutex
	info MediaInfo
	ok   bool
}

func (m *fakeMediaSource) CurrentMedia() (MediaInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.info, m.ok
}

func (m *fakeMediaSource) set(info MediaInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.info, m.ok = info, true
}

type fakeSystemVolume struct {
	mu      sync.Mutex
	level   float32
	levelOK bool
	muted   bool
	muteOK  bool

	calls int
	// bump makes every read report a new level
	bump bool
}

func (v *fakeSystemVolume) Volume() (float32, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.calls++
	if v.bump {
		v.level += 0.001
	}
	return v.level, v.levelOK
}

func (v *fakeSystemVolume) Mute() (bool, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.muted, v.muteOK
}

func (v *fakeSystemVolume) setLevel(level float32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.level, v.levelOK = level, true
}

func (v *fakeSystemVolume) setMute(muted bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.muted, v.muteOK = muted, true
}

func (v *fakeSystemVolume) pollCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.calls
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *fakeNotifier) Notify(title string, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.titles = append(n.titles, title)
}

func (n *fakeNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.titles...)
}
