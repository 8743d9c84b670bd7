//go:build !windows

package mediactl

import "go.uber.org/zap"

type unsupportedSubsystem struct{}

// NewAudioSubsystem returns a subsystem whose initialization always fails off windows.
func NewAudioSubsystem(logger *zap.SugaredLogger, thread *comThread) AudioSubsystem {
	logger.Named("wca").Warnw("Audio subsystem unavailable on this platform", "mode", thread.mode)
	return unsupportedSubsystem{}
}

func (unsupportedSubsystem) Initialize() error {
	return ErrUnsupportedPlatform
}

func (unsupportedSubsystem) NewDeviceEnumerator() (DeviceEnumerator, error) {
	return nil, ErrUnsupportedPlatform
}

func (unsupportedSubsystem) OpenProcess(uint32) (ProcessHandle, error) {
	return nil, ErrUnsupportedPlatform
}
