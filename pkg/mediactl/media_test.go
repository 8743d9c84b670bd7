package mediactl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWindowTitle(t *testing.T) {
	spotify := defaultPlayers[0]
	musicBee := defaultPlayers[1]
	titleFirst := PlayerConfig{Process: "player.exe", Separator: " | ", TitleFirst: true}

	cases := []struct {
		name     string
		player   PlayerConfig
		title    string
		expected MediaInfo
		ok       bool
	}{
		{"artist and title", spotify, "Daft Punk - Digital Love", MediaInfo{Artist: "Daft Punk", Title: "Digital Love", PlaybackStatus: PlaybackPlaying}, true},
		{"dash inside title", spotify, "Muse - Knights of Cydonia - Live", MediaInfo{Artist: "Muse", Title: "Knights of Cydonia - Live", PlaybackStatus: PlaybackPlaying}, true},
		{"idle title", spotify, "Spotify Premium", MediaInfo{PlaybackStatus: PlaybackPaused}, true},
		{"empty title", spotify, "  ", MediaInfo{}, false},
		{"no separator", spotify, "Advertisement", MediaInfo{}, false},
		{"suffix trimmed", musicBee, "Air - La Femme d'Argent - MusicBee", MediaInfo{Artist: "Air", Title: "La Femme d'Argent", PlaybackStatus: PlaybackPlaying}, true},
		{"suffix idle", musicBee, "MusicBee", MediaInfo{PlaybackStatus: PlaybackPaused}, true},
		{"title first", titleFirst, "Teardrop | Massive Attack", MediaInfo{Artist: "Massive Attack", Title: "Teardrop", PlaybackStatus: PlaybackPlaying}, true},
		{"default separator", PlayerConfig{Process: "x.exe"}, "A - B", MediaInfo{Artist: "A", Title: "B", PlaybackStatus: PlaybackPlaying}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info, ok := tc.player.parseWindowTitle(tc.title)

			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, info)
		})
	}
}

func TestMediaInfo(t *testing.T) {
	a := MediaInfo{Title: "Song", Artist: "Artist", Album: "Album", PlaybackStatus: PlaybackPlaying}
	b := a
	b.PlaybackStatus = PlaybackPaused

	assert.True(t, a.SameTrack(b))

	b.Album = "Other"
	assert.False(t, a.SameTrack(b))

	assert.Equal(t, "Artist - Song (playing)", a.String())
	assert.Equal(t, "Song (paused)", MediaInfo{Title: "Song", PlaybackStatus: PlaybackPaused}.String())
}

type fakeTransport struct {
	fakeMediaSource

	delivers bool
	commands []string
}

func (t *fakeTransport) command(name string) bool {
	t.commands = append(t.commands, name)
	return t.delivers
}

func (t *fakeTransport) Play() bool     { return t.command("play") }
func (t *fakeTransport) Pause() bool    { return t.command("pause") }
func (t *fakeTransport) Next() bool     { return t.command("next") }
func (t *fakeTransport) Previous() bool { return t.command("previous") }
func (t *fakeTransport) Stop() bool     { return t.command("stop") }

func TestFallbackTransportPrefersPrimaryMedia(t *testing.T) {
	primary := &fakeTransport{}
	fallback := &fakeTransport{}
	transport := newFallbackTransport(primary, fallback)

	_, ok := transport.CurrentMedia()
	assert.False(t, ok)

	fallback.set(MediaInfo{Title: "From window", PlaybackStatus: PlaybackPlaying})
	info, ok := transport.CurrentMedia()
	assert.True(t, ok)
	assert.Equal(t, "From window", info.Title)

	// album and full playback state only come from the session
	primary.set(MediaInfo{Title: "From session", Album: "Album", PlaybackStatus: PlaybackChanging, HasThumbnail: true})
	info, ok = transport.CurrentMedia()
	assert.True(t, ok)
	assert.Equal(t, "From session", info.Title)
	assert.Equal(t, "Album", info.Album)
	assert.Equal(t, PlaybackChanging, info.PlaybackStatus)
	assert.True(t, info.HasThumbnail)
}

func TestFallbackTransportCommands(t *testing.T) {
	primary := &fakeTransport{delivers: true}
	fallback := &fakeTransport{delivers: true}
	transport := newFallbackTransport(primary, fallback)

	// no session media, the window title player gets the command
	assert.True(t, transport.Play())
	assert.True(t, transport.Stop())
	assert.Empty(t, primary.commands)
	assert.Equal(t, []string{"play", "stop"}, fallback.commands)

	primary.set(MediaInfo{Title: "From session", PlaybackStatus: PlaybackPlaying})
	assert.True(t, transport.Next())
	assert.True(t, transport.Previous())
	assert.Equal(t, []string{"next", "previous"}, primary.commands)

	// a session that refuses a command is not second-guessed with media keys
	primary.delivers = false
	assert.False(t, transport.Pause())
	assert.Equal(t, []string{"next", "previous", "pause"}, primary.commands)
	assert.Equal(t, []string{"play", "stop"}, fallback.commands)
}

func TestSessionPlaybackStatus(t *testing.T) {
	expected := []PlaybackStatus{
		PlaybackClosed,
		PlaybackOpened,
		PlaybackChanging,
		PlaybackStopped,
		PlaybackPlaying,
		PlaybackPaused,
	}

	for status, want := range expected {
		assert.Equal(t, want, sessionPlaybackStatus(int32(status)))
	}

	assert.Equal(t, PlaybackUnknown, sessionPlaybackStatus(6))
	assert.Equal(t, PlaybackUnknown, sessionPlaybackStatus(-1))
}
