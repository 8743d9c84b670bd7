package mediactl

import (
	"fmt"
	"strings"

	ole "github.com/go-ole/go-ole"
	"github.com/google/uuid"
)

// AudioSubsystem is the boundary to the host's audio facilities. The windows
// implementation talks to the Core Audio APIs; tests substitute fakes.
type AudioSubsystem interface {
	// Initialize connects to the component object runtime. Safe to call repeatedly.
	Initialize() error

	// NewDeviceEnumerator creates a device enumerator.
	NewDeviceEnumerator() (DeviceEnumerator, error)

	// OpenProcess opens a process for limited query access.
	OpenProcess(pid uint32) (ProcessHandle, error)
}

// DeviceEnumerator resolves audio endpoints.
type DeviceEnumerator interface {
	DefaultRenderDevice(role Role) (Device, error)
	Release()
}

// Device is an audio endpoint device.
type Device interface {
	EndpointVolume() (VolumeControl, error)
	SessionManager() (SessionManager, error)
	Release()
}

// SessionManager lists the audio sessions of a device.
type SessionManager interface {
	SessionEnumerator() (SessionEnumerator, error)
	Release()
}

// SessionEnumerator is a snapshot of a device's audio sessions.
type SessionEnumerator interface {
	Count() (int, error)
	Session(idx int) (SessionControl, error)
	Release()
}

// SessionControl is the basic control handle of one audio session.
type SessionControl interface {
	Extended() (ExtendedSessionControl, error)
	Release()
}

// ExtendedSessionControl exposes the owning process and the per-application volume.
type ExtendedSessionControl interface {
	// ProcessID returns 0 for sessions without an owning process.
	ProcessID() (uint32, error)
	SimpleVolume() (VolumeControl, error)
	Release()
}

// ProcessHandle is an open handle to a running process.
type ProcessHandle interface {
	// ImagePath returns the raw bytes of the process' executable path.
	ImagePath() ([]byte, error)
	Close() error
}

// Role selects which default endpoint to resolve.
type Role int

const (
	RoleConsole Role = iota
	RoleMultimedia
	RoleCommunications
)

func (r Role) String() string {
	switch r {
	case RoleConsole:
		return "console"
	case RoleMultimedia:
		return "multimedia"
	case RoleCommunications:
		return "communications"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// CoinitMode selects the concurrency model the component object runtime is joined with.
type CoinitMode int

const (
	CoinitMultithreaded CoinitMode = iota
	CoinitApartmentThreaded
)

const (
	coinitModeMultithreaded = "multithreaded"
	coinitModeApartment     = "apartment"
)

// ParseCoinitMode parses "multithreaded" or "apartment" (case-insensitive).
func ParseCoinitMode(s string) (CoinitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", coinitModeMultithreaded:
		return CoinitMultithreaded, nil
	case coinitModeApartment:
		return CoinitApartmentThreaded, nil
	}
	return CoinitMultithreaded, fmt.Errorf("invalid coinit mode: %q (must be %s or %s)", s, coinitModeMultithreaded, coinitModeApartment)
}

func (m CoinitMode) String() string {
	if m == CoinitApartmentThreaded {
		return coinitModeApartment
	}
	return coinitModeMultithreaded
}

func (m CoinitMode) oleFlag() uint32 {
	if m == CoinitApartmentThreaded {
		return ole.COINIT_APARTMENTTHREADED
	}
	return ole.COINIT_MULTITHREADED
}

// newCorrelationToken generates a random GUID used as the event context of mutating calls.
func newCorrelationToken() (*ole.GUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate random uuid: %w", err)
	}

	guid := ole.NewGUID("{" + id.String() + "}")
	if guid == nil {
		return nil, fmt.Errorf("convert uuid %s to guid", id)
	}

	return guid, nil
}
