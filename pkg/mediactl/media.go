package mediactl

import (
	"fmt"
	"strings"
)

// PlaybackStatus is the state of the current media transport.
type PlaybackStatus string

const (
	PlaybackClosed   PlaybackStatus = "closed"
	PlaybackOpened   PlaybackStatus = "opened"
	PlaybackChanging PlaybackStatus = "changing"
	PlaybackStopped  PlaybackStatus = "stopped"
	PlaybackPlaying  PlaybackStatus = "playing"
	PlaybackPaused   PlaybackStatus = "paused"
	PlaybackUnknown  PlaybackStatus = "unknown"
)

// MediaInfo describes the currently playing media.
type MediaInfo struct {
	Title          string         `json:"title,omitempty"`
	Artist         string         `json:"artist,omitempty"`
	Album          string         `json:"album,omitempty"`
	AlbumArtist    string         `json:"albumArtist,omitempty"`
	PlaybackStatus PlaybackStatus `json:"playbackStatus"`
	HasThumbnail   bool           `json:"hasThumbnail"`
}

// SameTrack reports whether both descriptors name the same title, artist and album.
func (m MediaInfo) SameTrack(other MediaInfo) bool {
	return m.Title == other.Title && m.Artist == other.Artist && m.Album == other.Album
}

func (m MediaInfo) String() string {
	if m.Artist == "" {
		return fmt.Sprintf("%s (%s)", m.Title, m.PlaybackStatus)
	}
	return fmt.Sprintf("%s - %s (%s)", m.Artist, m.Title, m.PlaybackStatus)
}

// MediaSource reports the current media, if any.
type MediaSource interface {
	CurrentMedia() (MediaInfo, bool)
}

// MediaTransport is a media source that also accepts transport commands. Each command
// reports whether it was delivered.
type MediaTransport interface {
	MediaSource

	Play() bool
	Pause() bool
	Next() bool
	Previous() bool
	Stop() bool
}

// fallbackTransport uses primary while it reports media and fallback otherwise. Commands
// follow the same choice, so an undelivered command is never retried on the other side.
type fallbackTransport struct {
	primary  MediaTransport
	fallback MediaTransport
}

func newFallbackTransport(primary MediaTransport, fallback MediaTransport) MediaTransport {
	return &fallbackTransport{primary: primary, fallback: fallback}
}

func (t *fallbackTransport) CurrentMedia() (MediaInfo, bool) {
	if info, ok := t.primary.CurrentMedia(); ok {
		return info, true
	}
	return t.fallback.CurrentMedia()
}

func (t *fallbackTransport) active() MediaTransport {
	if _, ok := t.primary.CurrentMedia(); ok {
		return t.primary
	}
	return t.fallback
}

func (t *fallbackTransport) Play() bool     { return t.active().Play() }
func (t *fallbackTransport) Pause() bool    { return t.active().Pause() }
func (t *fallbackTransport) Next() bool     { return t.active().Next() }
func (t *fallbackTransport) Previous() bool { return t.active().Previous() }
func (t *fallbackTransport) Stop() bool     { return t.active().Stop() }

// sessionPlaybackStatus maps the system media session's playback status enumeration.
func sessionPlaybackStatus(status int32) PlaybackStatus {
	switch status {
	case 0:
		return PlaybackClosed
	case 1:
		return PlaybackOpened
	case 2:
		return PlaybackChanging
	case 3:
		return PlaybackStopped
	case 4:
		return PlaybackPlaying
	case 5:
		return PlaybackPaused
	default:
		return PlaybackUnknown
	}
}

// SystemVolumeReader reports the master volume and mute state of the default device.
type SystemVolumeReader interface {
	Volume() (float32, bool)
	Mute() (bool, bool)
}

// SystemVolume additionally changes the master volume and mute state.
type SystemVolume interface {
	SystemVolumeReader

	SetVolume(level float32) bool
	SetMute(mute bool) bool
}

// PlayerConfig describes a media player whose main window title carries the
// current track, e.g. "Artist - Title".
type PlayerConfig struct {
	// Process is the executable name of the player, e.g. "Spotify.exe".
	Process string `mapstructure:"process"`

	// Separator splits artist from title.
	Separator string `mapstructure:"separator"`

	// Suffix is trimmed from the window title before parsing, e.g. " - MusicBee".
	Suffix string `mapstructure:"suffix"`

	// TitleFirst is set for players that show "Title - Artist".
	TitleFirst bool `mapstructure:"title_first"`

	// IdleTitles are window titles shown while the player is paused.
	IdleTitles []string `mapstructure:"idle_titles"`
}

var defaultPlayers = []PlayerConfig{
	{
		Process:    "Spotify.exe",
		Separator:  " - ",
		IdleTitles: []string{"Spotify", "Spotify Free", "Spotify Premium"},
	},
	{
		Process:    "MusicBee.exe",
		Separator:  " - ",
		Suffix:     " - MusicBee",
		IdleTitles: []string{"MusicBee"},
	},
}

// parseWindowTitle derives media info from a player window title. It returns false for
// titles that carry no track information and are not a known idle title.
func (p PlayerConfig) parseWindowTitle(title string) (MediaInfo, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return MediaInfo{}, false
	}

	for _, idle := range p.IdleTitles {
		if title == idle {
			return MediaInfo{PlaybackStatus: PlaybackPaused}, true
		}
	}

	if p.Suffix != "" {
		title = strings.TrimSuffix(title, p.Suffix)
	}

	separator := p.Separator
	if separator == "" {
		separator = " - "
	}

	first, second, found := strings.Cut(title, separator)
	if !found {
		return MediaInfo{}, false
	}

	info := MediaInfo{
		Artist:         strings.TrimSpace(first),
		Title:          strings.TrimSpace(second),
		PlaybackStatus: PlaybackPlaying,
	}
	if p.TitleFirst {
		info.Artist, info.Title = info.Title, info.Artist
	}

	return info, true
}
