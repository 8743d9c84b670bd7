// Package mediactl exposes per-application and master volume control, media transport
// control and now-playing change notification on top of the host's audio facilities.
package mediactl

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/omriharel/mediactl/pkg/mediactl/util"
)

const (
	// EnvNoTray disables the tray icon when set.
	EnvNoTray = "MEDIACTL_NO_TRAY_ICON"

	// CurrentWindowTarget resolves to the sessions of the foreground window's processes.
	CurrentWindowTarget = "current"
)

// MediaCtl is the main entity managing access to all sub-components
type MediaCtl struct {
	logger   *zap.SugaredLogger
	notifier Notifier
	config   *CanonicalConfig

	// audio and everything it owns is only touched from audioThread
	audioThread *comThread
	audio       *AudioController

	transport MediaTransport
	volume    SystemVolume

	subscriptionLock sync.Mutex
	subscription     *Subscription

	trayTooltip func(string)

	stopChannel chan bool
	version     string
	verbose     bool
}

// NewMediaCtl creates a MediaCtl instance reading its configuration from configDir
func NewMediaCtl(logger *zap.SugaredLogger, configDir string, verbose bool) (*MediaCtl, error) {
	logger = logger.Named("mediactl")

	notifier, err := NewToastNotifier(logger)
	if err != nil {
		logger.Errorw("Failed to create ToastNotifier", "error", err)
		return nil, fmt.Errorf("create new ToastNotifier: %w", err)
	}

	config, err := NewConfig(logger, notifier, configDir)
	if err != nil {
		logger.Errorw("Failed to create Config", "error", err)
		return nil, fmt.Errorf("create new Config: %w", err)
	}

	m := &MediaCtl{
		logger:      logger,
		notifier:    notifier,
		config:      config,
		stopChannel: make(chan bool, 1),
		verbose:     verbose,
	}

	logger.Debug("Created mediactl instance")

	return m, nil
}

// Prepare loads the configuration, connects to the audio subsystem and discovers sessions
func (m *MediaCtl) Prepare() error {
	if err := m.config.Load(); err != nil {
		m.logger.Errorw("Failed to load config during initialization", "error", err)
		return fmt.Errorf("load config during init: %w", err)
	}

	settings := m.config.Settings()

	m.audioThread = newComThread(m.logger, settings.CoinitMode)
	m.audioThread.Do(func() {
		m.audio = NewAudioController(m.logger, NewAudioSubsystem(m.logger, m.audioThread))
		m.audio.Discover()
	})

	m.transport = NewMediaTransport(m.logger, settings.Players)
	m.volume = NewSystemVolume(m.logger)

	return nil
}

// Initialize prepares all components and runs until stopped
func (m *MediaCtl) Initialize() error {
	m.logger.Debugw("Initializing", "verbose", m.verbose)

	if err := m.Prepare(); err != nil {
		return err
	}

	m.setupInterruptHandler()

	// decide whether to run with/without tray
	if _, noTraySet := os.LookupEnv(EnvNoTray); noTraySet {
		m.logger.Debugw("Running without tray icon", "reason", "envvar set")
		m.run()
	} else {
		m.initializeTray(m.run)
	}

	return nil
}

// SetVersion causes mediactl to add a version string to its tray menu if called before Initialize
func (m *MediaCtl) SetVersion(version string) {
	m.version = version
}

// Config returns the loaded configuration
func (m *MediaCtl) Config() *CanonicalConfig {
	return m.config
}

// Transport returns the media transport
func (m *MediaCtl) Transport() MediaTransport {
	m.subscriptionLock.Lock()
	defer m.subscriptionLock.Unlock()

	return m.transport
}

// SystemVolume returns the default device's master volume
func (m *MediaCtl) SystemVolume() SystemVolume {
	return m.volume
}

// SessionNames returns the names of all discovered sessions
func (m *MediaCtl) SessionNames() (names []string) {
	m.audioThread.Do(func() {
		names = m.audio.SessionNames()
	})

	return names
}

// WithSessions calls f on the audio thread for every session matching target.
// It returns the number of matched sessions
func (m *MediaCtl) WithSessions(target string, f func(Session)) (matched int) {
	names := m.resolveTarget(target)

	m.audioThread.Do(func() {
		for _, name := range names {
			if session, ok := m.audio.FindSession(name); ok {
				f(session)
				matched++
			}
		}
	})

	return matched
}

// WithAllSessions calls f on the audio thread for every discovered session, in discovery
// order, including sessions that share a name. It returns the number of sessions visited
func (m *MediaCtl) WithAllSessions(f func(Session)) (visited int) {
	m.audioThread.Do(func() {
		for _, session := range m.audio.Sessions() {
			f(session)
			visited++
		}
	})

	return visited
}

// SetVolume sets every session matching target to level. It returns how many sessions
// matched, and how many of those report level afterwards
func (m *MediaCtl) SetVolume(target string, level float32) (matched int, applied int) {
	matched = m.WithSessions(target, func(session Session) {
		session.SetVolume(level)

		if util.AlmostEquals(session.GetVolume(), level) {
			applied++
		} else {
			m.logger.Warnw("Session volume did not take", "session", session.GetName(), "requested", level)
		}
	})

	return matched, applied
}

// RefreshSessions rediscovers all audio sessions
func (m *MediaCtl) RefreshSessions() {
	m.audioThread.Do(m.audio.Refresh)
}

// Watch subscribes callback to change events until ctx is done
func (m *MediaCtl) Watch(ctx context.Context, callback func(Event)) *Subscription {
	settings := m.config.Settings()

	poller := NewPoller(m.logger, m.transport, m.volume, settings.PollInterval)
	return Subscribe(ctx, m.logger, poller, settings.EventBufferSize, callback)
}

func (m *MediaCtl) resolveTarget(target string) []string {
	if target != CurrentWindowTarget {
		return []string{target}
	}

	processNames, err := util.GetCurrentWindowProcessNames()
	if err != nil {
		m.logger.Warnw("Failed to get current window process names", "error", err)
		return nil
	}

	names := make([]string, len(processNames))
	for idx, processName := range processNames {
		names[idx] = sessionNameFromImagePath(processName)
	}

	return funk.UniqString(names)
}

func (m *MediaCtl) setupInterruptHandler() {
	interruptChannel := util.SetupCloseHandler()

	go func() {
		signal := <-interruptChannel
		m.logger.Debugw("Interrupted", "signal", signal)
		m.signalStop()
	}()
}

func (m *MediaCtl) run() {
	m.logger.Info("Run loop starting")

	// watch the config file for changes
	go m.config.WatchConfigFileChanges()

	m.startSubscription()
	m.setupOnConfigReload()

	// wait until stopped (gracefully)
	<-m.stopChannel
	m.logger.Debug("Stop channel signaled, terminating")

	m.stop()
	os.Exit(0)
}

func (m *MediaCtl) startSubscription() {
	m.subscriptionLock.Lock()
	defer m.subscriptionLock.Unlock()

	m.subscription = m.Watch(context.Background(), m.handleEvent)
}

func (m *MediaCtl) stopSubscription() {
	m.subscriptionLock.Lock()
	defer m.subscriptionLock.Unlock()

	if m.subscription != nil {
		m.subscription.Stop()
		m.subscription = nil
	}
}

func (m *MediaCtl) setupOnConfigReload() {
	configReloadedChannel := m.config.SubscribeToChanges()

	go func() {
		defer m.recoverFromPanic()

		for range configReloadedChannel {
			m.logger.Info("Detected config reload, restarting poller and re-acquiring audio sessions")

			m.stopSubscription()
			m.RefreshSessions()
			m.reloadTransport()
			m.startSubscription()
		}
	}()
}

// reloadTransport picks up player changes from a reloaded config
func (m *MediaCtl) reloadTransport() {
	m.subscriptionLock.Lock()
	defer m.subscriptionLock.Unlock()

	m.transport = NewMediaTransport(m.logger, m.config.Settings().Players)
}

func (m *MediaCtl) handleEvent(event Event) {
	m.logger.Infow("Change detected", "event", event)

	if event.Type != MediaChange || event.Media == nil || event.Media.Title == "" {
		return
	}

	if m.trayTooltip != nil {
		m.trayTooltip(event.Media.String())
	}

	if m.config.Settings().NotifyOnMediaChange {
		m.notifier.Notify("Now playing", event.Media.String())
	}
}

func (m *MediaCtl) signalStop() {
	m.logger.Debug("Signalling stop channel")

	select {
	case m.stopChannel <- true:
	default:
	}
}

func (m *MediaCtl) stop() {
	m.logger.Info("Stopping")

	m.config.StopWatchingConfigFile()
	m.stopSubscription()

	m.audioThread.Do(m.audio.Release)
	m.audioThread.Close()

	m.stopTray()

	// attempt to sync on exit - this will always fail on windows for stderr, so ignore the error
	_ = m.logger.Sync()
}
