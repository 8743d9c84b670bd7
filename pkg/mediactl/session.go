package mediactl

import (
	"fmt"

	ole "github.com/go-ole/go-ole"
	"go.uber.org/zap"
)

// VolumeControl is the foreign volume capability a session is bound to: either a
// device-level endpoint volume or a per-process simple audio volume.
type VolumeControl interface {
	Volume() (float32, error)
	SetVolume(level float32, eventContext *ole.GUID) error
	Mute() (bool, error)
	SetMute(mute bool, eventContext *ole.GUID) error
	Release()
}

// Session represents a single controllable audio entity. The only implementations
// are *EndpointSession and *ApplicationSession, so a type switch over both is exhaustive.
type Session interface {
	// AudioEndpointVolume returns the device volume control backing the session.
	// Only the endpoint session has one.
	AudioEndpointVolume() (VolumeControl, bool)

	// GetName returns the session's name, "master" for the endpoint session.
	GetName() string

	// GetVolume returns the current volume in [0, 1], or 0 if it can't be read.
	GetVolume() float32

	// SetVolume adjusts the session's volume. Values outside [0, 1] are ignored.
	SetVolume(v float32)

	// GetMute returns the current mute state, or false if it can't be read.
	GetMute() bool

	// SetMute mutes or unmutes the session.
	SetMute(m bool)

	// Release releases the foreign handles held by the session.
	Release()

	sealed()
}

const (
	masterSessionName = "master"

	sessionCreationLogMessage = "Created audio session instance"

	// sessionStringFormat is the format used when displaying session details.
	sessionStringFormat = "<session: %s, vol: %.2f>"
)

type baseSession struct {
	logger  *zap.SugaredLogger
	name    string
	control VolumeControl

	// passed on every mutating call, nil-GUID for the endpoint
	eventCtx *ole.GUID
}

func (s *baseSession) sealed() {}

func (s *baseSession) GetName() string {
	return s.name
}

func (s *baseSession) GetVolume() float32 {
	level, err := s.control.Volume()
	if err != nil {
		s.logger.Warnw("Failed to get session volume", "error", err)
		return 0
	}

	return level
}

func (s *baseSession) SetVolume(v float32) {
	if v < 0 || v > 1 {
		s.logger.Warnw("Refusing to set volume outside of [0, 1]", "volume", v)
		return
	}

	if err := s.control.SetVolume(v, s.eventCtx); err != nil {
		s.logger.Warnw("Failed to set session volume", "error", err)
		return
	}

	s.logger.Debugw("Adjusting session volume", "to", fmt.Sprintf("%.2f", v))
}

func (s *baseSession) GetMute() bool {
	muted, err := s.control.Mute()
	if err != nil {
		s.logger.Warnw("Failed to get session mute state", "error", err)
		return false
	}

	return muted
}

func (s *baseSession) SetMute(m bool) {
	if err := s.control.SetMute(m, s.eventCtx); err != nil {
		s.logger.Warnw("Failed to set session mute state", "error", err)
		return
	}

	s.logger.Debugw("Adjusting session mute state", "to", m)
}

func (s *baseSession) Release() {
	s.control.Release()
}

func (s *baseSession) String() string {
	return fmt.Sprintf(sessionStringFormat, s.name, s.GetVolume())
}

// EndpointSession controls the master volume of the default render device.
type EndpointSession struct {
	baseSession
}

func newEndpointSession(logger *zap.SugaredLogger, control VolumeControl) *EndpointSession {
	s := &EndpointSession{
		baseSession: baseSession{
			logger:   logger.Named(masterSessionName),
			name:     masterSessionName,
			control:  control,
			eventCtx: ole.IID_NULL,
		},
	}

	s.logger.Debugw(sessionCreationLogMessage, "session", s)

	return s
}

// AudioEndpointVolume returns the device volume control.
func (s *EndpointSession) AudioEndpointVolume() (VolumeControl, bool) {
	return s.control, true
}

// ApplicationSession controls the audio stream of a single running process.
type ApplicationSession struct {
	baseSession
}

// newApplicationSession terminates the process if no correlation token can be generated.
func newApplicationSession(logger *zap.SugaredLogger, name string, control VolumeControl, newToken func() (*ole.GUID, error)) *ApplicationSession {
	token, err := newToken()
	if err != nil {
		logger.Fatalw("Failed to generate session correlation token", "session", name, "error", err)
		return nil
	}

	s := &ApplicationSession{
		baseSession: baseSession{
			logger:   logger.Named(name),
			name:     name,
			control:  control,
			eventCtx: token,
		},
	}

	s.logger.Debugw(sessionCreationLogMessage, "session", s)

	return s
}

// AudioEndpointVolume always reports false: application sessions have no device volume.
func (s *ApplicationSession) AudioEndpointVolume() (VolumeControl, bool) {
	return nil, false
}
