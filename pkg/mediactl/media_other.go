//go:build !windows

package mediactl

import "go.uber.org/zap"

type unsupportedMedia struct{}

// NewMediaTransport returns a transport that never reports media off windows.
func NewMediaTransport(logger *zap.SugaredLogger, players []PlayerConfig) MediaTransport {
	logger.Named("media").Debugw("Media transport unavailable on this platform", "players", len(players))
	return unsupportedMedia{}
}

func (unsupportedMedia) CurrentMedia() (MediaInfo, bool) { return MediaInfo{}, false }
func (unsupportedMedia) Play() bool                      { return false }
func (unsupportedMedia) Pause() bool                     { return false }
func (unsupportedMedia) Next() bool                      { return false }
func (unsupportedMedia) Previous() bool                  { return false }
func (unsupportedMedia) Stop() bool                      { return false }

type unsupportedVolume struct{}

// NewSystemVolume returns a system volume that is never available off windows.
func NewSystemVolume(logger *zap.SugaredLogger) SystemVolume {
	logger.Named("system_volume").Debug("System volume unavailable on this platform")
	return unsupportedVolume{}
}

func (unsupportedVolume) Volume() (float32, bool) { return 0, false }
func (unsupportedVolume) Mute() (bool, bool)      { return false, false }
func (unsupportedVolume) SetVolume(float32) bool  { return false }
func (unsupportedVolume) SetMute(bool) bool       { return false }
