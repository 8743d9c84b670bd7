//go:build windows

package mediactl

import (
	"errors"
	"fmt"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

const (
	// AUDCLNT_S_NO_CURRENT_PROCESS, returned by GetProcessId for the system sounds session
	audclntSNoCurrentProcess = 0x889000D

	// long-path upper bound for process image names, in UTF-16 code units
	maxImagePathLength = 32768
)

type wcaSubsystem struct {
	logger *zap.SugaredLogger
	thread *comThread
}

// NewAudioSubsystem returns the Core Audio backed subsystem. All of its methods, and all
// methods of the objects it hands out, must be called from within thread.Do.
func NewAudioSubsystem(logger *zap.SugaredLogger, thread *comThread) AudioSubsystem {
	return &wcaSubsystem{
		logger: logger.Named("wca"),
		thread: thread,
	}
}

func (s *wcaSubsystem) Initialize() error {
	return s.thread.Ensure()
}

func (s *wcaSubsystem) NewDeviceEnumerator() (DeviceEnumerator, error) {
	return newDeviceEnumerator()
}

func newDeviceEnumerator() (DeviceEnumerator, error) {
	var mmde *wca.IMMDeviceEnumerator

	if err := wca.CoCreateInstance(
		wca.CLSID_MMDeviceEnumerator,
		0,
		wca.CLSCTX_ALL,
		wca.IID_IMMDeviceEnumerator,
		&mmde,
	); err != nil {
		return nil, foreignError("create device enumerator", err)
	}

	return &wcaDeviceEnumerator{mmde: mmde}, nil
}

func (s *wcaSubsystem) OpenProcess(pid uint32) (ProcessHandle, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return nil, foreignError(fmt.Sprintf("open process %d", pid), err)
	}

	return &wcaProcess{pid: pid, handle: handle}, nil
}

type wcaDeviceEnumerator struct {
	mmde *wca.IMMDeviceEnumerator
}

func (e *wcaDeviceEnumerator) DefaultRenderDevice(role Role) (Device, error) {
	var mmd *wca.IMMDevice

	if err := e.mmde.GetDefaultAudioEndpoint(wca.ERender, wcaRole(role), &mmd); err != nil {
		return nil, foreignError("get default audio endpoint", errors.Join(ErrNoDefaultDevice, err))
	}

	return &wcaDevice{mmd: mmd}, nil
}

func (e *wcaDeviceEnumerator) Release() {
	e.mmde.Release()
}

func wcaRole(role Role) uint32 {
	switch role {
	case RoleMultimedia:
		return wca.EMultimedia
	case RoleCommunications:
		return wca.ECommunications
	default:
		return wca.EConsole
	}
}

type wcaDevice struct {
	mmd *wca.IMMDevice
}

func (d *wcaDevice) EndpointVolume() (VolumeControl, error) {
	var aev *wca.IAudioEndpointVolume

	if err := d.mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		return nil, foreignError("activate endpoint volume", err)
	}

	return &endpointVolume{aev: aev}, nil
}

func (d *wcaDevice) SessionManager() (SessionManager, error) {
	var asm *wca.IAudioSessionManager2

	if err := d.mmd.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &asm); err != nil {
		return nil, foreignError("activate session manager", err)
	}

	return &wcaSessionManager{asm: asm}, nil
}

func (d *wcaDevice) Release() {
	d.mmd.Release()
}

type wcaSessionManager struct {
	asm *wca.IAudioSessionManager2
}

func (m *wcaSessionManager) SessionEnumerator() (SessionEnumerator, error) {
	var ase *wca.IAudioSessionEnumerator

	if err := m.asm.GetSessionEnumerator(&ase); err != nil {
		return nil, foreignError("get session enumerator", err)
	}

	return &wcaSessionEnumerator{ase: ase}, nil
}

func (m *wcaSessionManager) Release() {
	m.asm.Release()
}

type wcaSessionEnumerator struct {
	ase *wca.IAudioSessionEnumerator
}

func (e *wcaSessionEnumerator) Count() (int, error) {
	var count int

	if err := e.ase.GetCount(&count); err != nil {
		return 0, foreignError("get session count", err)
	}

	return count, nil
}

func (e *wcaSessionEnumerator) Session(idx int) (SessionControl, error) {
	var asc *wca.IAudioSessionControl

	if err := e.ase.GetSession(idx, &asc); err != nil {
		return nil, foreignError(fmt.Sprintf("get session %d", idx), err)
	}

	return &wcaSessionControl{asc: asc}, nil
}

func (e *wcaSessionEnumerator) Release() {
	e.ase.Release()
}

type wcaSessionControl struct {
	asc *wca.IAudioSessionControl
}

func (c *wcaSessionControl) Extended() (ExtendedSessionControl, error) {
	dispatch, err := c.asc.QueryInterface(wca.IID_IAudioSessionControl2)
	if err != nil {
		return nil, foreignError("query IAudioSessionControl2", err)
	}

	return &wcaExtendedSessionControl{
		asc2: (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatch)),
	}, nil
}

func (c *wcaSessionControl) Release() {
	c.asc.Release()
}

type wcaExtendedSessionControl struct {
	asc2 *wca.IAudioSessionControl2
}

func (c *wcaExtendedSessionControl) ProcessID() (uint32, error) {
	var pid uint32

	if err := c.asc2.GetProcessId(&pid); err != nil {
		var oleErr *ole.OleError
		if errors.As(err, &oleErr) && oleErr.Code() == audclntSNoCurrentProcess {
			return 0, nil
		}
		return 0, foreignError("get process id", err)
	}

	return pid, nil
}

func (c *wcaExtendedSessionControl) SimpleVolume() (VolumeControl, error) {
	dispatch, err := c.asc2.QueryInterface(wca.IID_ISimpleAudioVolume)
	if err != nil {
		return nil, foreignError("query ISimpleAudioVolume", err)
	}

	return &simpleVolume{
		sav: (*wca.ISimpleAudioVolume)(unsafe.Pointer(dispatch)),
	}, nil
}

func (c *wcaExtendedSessionControl) Release() {
	c.asc2.Release()
}

type wcaProcess struct {
	pid    uint32
	handle windows.Handle
}

// ImagePath grows its buffer until the full path fits.
func (p *wcaProcess) ImagePath() ([]byte, error) {
	for size := uint32(windows.MAX_PATH); ; size *= 2 {
		buf := make([]uint16, size)
		n := size

		err := windows.QueryFullProcessImageName(p.handle, 0, &buf[0], &n)
		if err == nil {
			return []byte(windows.UTF16ToString(buf[:n])), nil
		}

		if !errors.Is(err, windows.ERROR_INSUFFICIENT_BUFFER) || size >= maxImagePathLength {
			return nil, foreignError(fmt.Sprintf("query image name of process %d", p.pid), err)
		}
	}
}

func (p *wcaProcess) Close() error {
	return foreignError("close process handle", windows.CloseHandle(p.handle))
}

type endpointVolume struct {
	aev *wca.IAudioEndpointVolume
}

func (v *endpointVolume) Volume() (float32, error) {
	var level float32

	if err := v.aev.GetMasterVolumeLevelScalar(&level); err != nil {
		return 0, foreignError("get master volume level", err)
	}

	return level, nil
}

func (v *endpointVolume) SetVolume(level float32, eventContext *ole.GUID) error {
	return foreignError("set master volume level", v.aev.SetMasterVolumeLevelScalar(level, eventContext))
}

func (v *endpointVolume) Mute() (bool, error) {
	var mute bool

	if err := v.aev.GetMute(&mute); err != nil {
		return false, foreignError("get master mute", err)
	}

	return mute, nil
}

func (v *endpointVolume) SetMute(mute bool, eventContext *ole.GUID) error {
	return foreignError("set master mute", v.aev.SetMute(mute, eventContext))
}

func (v *endpointVolume) Release() {
	v.aev.Release()
}

type simpleVolume struct {
	sav *wca.ISimpleAudioVolume
}

func (v *simpleVolume) Volume() (float32, error) {
	var level float32

	if err := v.sav.GetMasterVolume(&level); err != nil {
		return 0, foreignError("get session volume", err)
	}

	return level, nil
}

func (v *simpleVolume) SetVolume(level float32, eventContext *ole.GUID) error {
	return foreignError("set session volume", v.sav.SetMasterVolume(level, eventContext))
}

func (v *simpleVolume) Mute() (bool, error) {
	var mute bool

	if err := v.sav.GetMute(&mute); err != nil {
		return false, foreignError("get session mute", err)
	}

	return mute, nil
}

func (v *simpleVolume) SetMute(mute bool, eventContext *ole.GUID) error {
	return foreignError("set session mute", v.sav.SetMute(mute, eventContext))
}

func (v *simpleVolume) Release() {
	v.sav.Release()
}
