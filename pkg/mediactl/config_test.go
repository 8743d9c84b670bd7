package mediactl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, content string) (*CanonicalConfig, *fakeNotifier) {
	t.Helper()

	dir := t.TempDir()
	if content != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, userConfigFilename), []byte(content), 0o644))
	}

	notifier := &fakeNotifier{}
	cc, err := NewConfig(newTestLogger(t), notifier, dir)
	require.NoError(t, err)

	return cc, notifier
}

func TestConfigDefaultsWithoutFile(t *testing.T) {
	cc, notifier := newTestConfig(t, "")

	require.NoError(t, cc.Load())
	settings := cc.Settings()

	assert.Equal(t, DefaultPollInterval, settings.PollInterval)
	assert.Equal(t, CoinitMultithreaded, settings.CoinitMode)
	assert.False(t, settings.NotifyOnMediaChange)
	assert.Equal(t, DefaultEventBufferSize, settings.EventBufferSize)
	assert.Equal(t, defaultPlayers, settings.Players)
	assert.Empty(t, notifier.sent())
}

func TestConfigLoadsValues(t *testing.T) {
	cc, _ := newTestConfig(t, `
poll_interval: 250ms
coinit_mode: Apartment
notify_on_media_change: true
event_buffer: 8
players:
  - process: foobar2000.exe
    separator: " | "
    title_first: true
    idle_titles: ["foobar2000"]
  - separator: " - "
`)

	require.NoError(t, cc.Load())
	settings := cc.Settings()

	assert.Equal(t, 250*time.Millisecond, settings.PollInterval)
	assert.Equal(t, CoinitApartmentThreaded, settings.CoinitMode)
	assert.True(t, settings.NotifyOnMediaChange)
	assert.Equal(t, 8, settings.EventBufferSize)

	require.Len(t, settings.Players, 1)
	assert.Equal(t, PlayerConfig{
		Process:    "foobar2000.exe",
		Separator:  " | ",
		TitleFirst: true,
		IdleTitles: []string{"foobar2000"},
	}, settings.Players[0])
}

func TestConfigFallsBackOnInvalidValues(t *testing.T) {
	cc, _ := newTestConfig(t, `
poll_interval: -1s
coinit_mode: sideways
event_buffer: 0
`)

	require.NoError(t, cc.Load())
	settings := cc.Settings()

	assert.Equal(t, DefaultPollInterval, settings.PollInterval)
	assert.Equal(t, CoinitMultithreaded, settings.CoinitMode)
	assert.Equal(t, DefaultEventBufferSize, settings.EventBufferSize)
	assert.Equal(t, defaultPlayers, settings.Players)
}

func TestConfigSettingsAreSnapshots(t *testing.T) {
	cc, _ := newTestConfig(t, "")
	require.NoError(t, cc.Load())

	settings := cc.Settings()
	settings.Players[0].Process = "changed.exe"

	assert.Equal(t, "Spotify.exe", cc.Settings().Players[0].Process)
	assert.Equal(t, "Spotify.exe", defaultPlayers[0].Process)
}

func TestConfigReloadWhileReading(t *testing.T) {
	cc, _ := newTestConfig(t, `
poll_interval: 250ms
notify_on_media_change: true
`)
	require.NoError(t, cc.Load())

	stop := make(chan struct{})
	reloaded := make(chan struct{})

	go func() {
		defer close(reloaded)

		for {
			select {
			case <-stop:
				return
			default:
				assert.NoError(t, cc.Load())
			}
		}
	}()

	// readers see either the old or the new values as a whole, never a torn mix
	for i := 0; i < 200; i++ {
		settings := cc.Settings()
		assert.Equal(t, 250*time.Millisecond, settings.PollInterval)
		assert.True(t, settings.NotifyOnMediaChange)
		assert.NotEmpty(t, settings.Players)
	}

	close(stop)
	<-reloaded
}

func TestConfigInvalidYAMLNotifies(t *testing.T) {
	cc, notifier := newTestConfig(t, "poll_interval: [oops\n")

	assert.Error(t, cc.Load())
	assert.Equal(t, []string{"Invalid configuration!"}, notifier.sent())
}

func TestConfigPath(t *testing.T) {
	cc, err := NewConfig(newTestLogger(t), &fakeNotifier{}, "")
	require.NoError(t, err)

	assert.Equal(t, userConfigFilename, cc.Path())
}

func TestConfigReloadConsumers(t *testing.T) {
	cc, _ := newTestConfig(t, "")

	first := cc.SubscribeToChanges()
	second := cc.SubscribeToChanges()

	// a consumer that hasn't caught up yet doesn't block the next reload
	cc.onConfigReloaded()
	cc.onConfigReloaded()

	for _, consumer := range []chan bool{first, second} {
		select {
		case <-consumer:
		default:
			t.Fatal("consumer not notified")
		}

		select {
		case <-consumer:
			t.Fatal("consumer notified twice")
		default:
		}
	}
}

func TestConfigWatcherWithoutFileReturns(t *testing.T) {
	cc, _ := newTestConfig(t, "")
	require.NoError(t, cc.Load())

	done := make(chan struct{})
	go func() {
		cc.WatchConfigFileChanges()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher kept running without a config file")
	}
}
