package mediactl

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/omriharel/mediactl/pkg/mediactl/util"
)

// Settings is a snapshot of the configuration fields
type Settings struct {
	PollInterval        time.Duration
	CoinitMode          CoinitMode
	NotifyOnMediaChange bool
	EventBufferSize     int
	Players             []PlayerConfig
}

// CanonicalConfig provides application-wide access to configuration fields,
// as well as loading/file watching logic for mediactl's configuration file
type CanonicalConfig struct {
	// settings is replaced as a whole on every load, under settingsLock
	settingsLock sync.RWMutex
	settings     Settings

	logger             *zap.SugaredLogger
	notifier           Notifier
	stopWatcherChannel chan bool

	reloadConsumersLock sync.Mutex
	reloadConsumers     []chan bool

	configDir  string
	userConfig *viper.Viper
}

const (
	userConfigFilename = "config.yaml"
	userConfigName     = "config"
	configType         = "yaml"

	configKeyPollInterval        = "poll_interval"
	configKeyCoinitMode          = "coinit_mode"
	configKeyNotifyOnMediaChange = "notify_on_media_change"
	configKeyEventBuffer         = "event_buffer"
	configKeyPlayers             = "players"

	// viper fires several write events per save
	minTimeBetweenReloadAttempts = time.Millisecond * 500
)

// NewConfig creates a config instance reading config.yaml from configDir ("" means
// the working directory), and sets up viper instances for it
func NewConfig(logger *zap.SugaredLogger, notifier Notifier, configDir string) (*CanonicalConfig, error) {
	logger = logger.Named("config")

	if configDir == "" {
		configDir = "."
	}

	cc := &CanonicalConfig{
		logger:             logger,
		notifier:           notifier,
		reloadConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
		configDir:          configDir,
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(configType)
	userConfig.AddConfigPath(configDir)

	userConfig.SetDefault(configKeyPollInterval, DefaultPollInterval)
	userConfig.SetDefault(configKeyCoinitMode, coinitModeMultithreaded)
	userConfig.SetDefault(configKeyNotifyOnMediaChange, false)
	userConfig.SetDefault(configKeyEventBuffer, DefaultEventBufferSize)

	cc.userConfig = userConfig

	logger.Debug("Created config instance")

	return cc, nil
}

// Load reads mediactl's config file from disk and populates the config fields. A missing
// file is not an error: defaults are used instead
func (cc *CanonicalConfig) Load() error {
	cc.logger.Debugw("Loading config", "path", cc.Path())

	if !util.FileExists(cc.Path()) {
		cc.logger.Infow("Config file not found, using defaults", "path", cc.Path())
	} else if err := cc.userConfig.ReadInConfig(); err != nil {
		cc.logger.Warnw("Viper failed to read user config", "error", err)

		// if the error is yaml-format-related, show a sensible error. otherwise, show 'em to the logs
		if strings.Contains(err.Error(), "yaml:") {
			cc.notifier.Notify("Invalid configuration!",
				fmt.Sprintf("Please make sure %s is in a valid YAML format.", userConfigFilename))
		} else {
			cc.notifier.Notify("Error loading configuration!", "Please check mediactl's logs for more details.")
		}

		return fmt.Errorf("read user config: %w", err)
	}

	settings, err := cc.populateFromVipers()
	if err != nil {
		cc.logger.Warnw("Failed to populate config fields", "error", err)
		return fmt.Errorf("populate config fields: %w", err)
	}

	cc.settingsLock.Lock()
	cc.settings = settings
	cc.settingsLock.Unlock()

	cc.logger.Info("Loaded config successfully")
	cc.logger.Infow("Config values",
		"pollInterval", settings.PollInterval,
		"coinitMode", settings.CoinitMode,
		"notifyOnMediaChange", settings.NotifyOnMediaChange,
		"eventBuffer", settings.EventBufferSize,
		"players", len(settings.Players))

	return nil
}

// Settings returns the most recently loaded configuration fields. It is safe to call while
// the config file watcher reloads
func (cc *CanonicalConfig) Settings() Settings {
	cc.settingsLock.RLock()
	defer cc.settingsLock.RUnlock()

	settings := cc.settings
	settings.Players = append([]PlayerConfig(nil), cc.settings.Players...)

	return settings
}

// Path returns the config file location
func (cc *CanonicalConfig) Path() string {
	return filepath.Join(cc.configDir, userConfigFilename)
}

// SubscribeToChanges allows external components to receive updates when the config is reloaded
func (cc *CanonicalConfig) SubscribeToChanges() chan bool {
	cc.reloadConsumersLock.Lock()
	defer cc.reloadConsumersLock.Unlock()

	c := make(chan bool, 1)
	cc.reloadConsumers = append(cc.reloadConsumers, c)

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and attempts reloading the config when they happen
func (cc *CanonicalConfig) WatchConfigFileChanges() {
	if cc.userConfig.ConfigFileUsed() == "" {
		cc.logger.Debug("No config file in use, not watching for changes")
		return
	}

	cc.logger.Debugw("Starting to watch user config file for changes", "path", cc.userConfig.ConfigFileUsed())

	lastAttemptedReload := time.Now()

	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) {
			return
		}

		// when editors save a file, the write event is often delivered more than once
		now := time.Now()
		if lastAttemptedReload.Add(minTimeBetweenReloadAttempts).After(now) {
			return
		}
		lastAttemptedReload = now

		cc.logger.Debugw("Config file modified, attempting reload", "event", event)

		if err := cc.Load(); err != nil {
			cc.logger.Warnw("Failed to reload config file", "error", err)
			return
		}

		cc.logger.Info("Reloaded config successfully")
		cc.notifier.Notify("Configuration reloaded!", "Your changes have been applied.")

		cc.onConfigReloaded()
	})

	cc.userConfig.WatchConfig()

	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(func(fsnotify.Event) {})
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *CanonicalConfig) StopWatchingConfigFile() {
	select {
	case cc.stopWatcherChannel <- true:
	default:
	}
}

func (cc *CanonicalConfig) populateFromVipers() (Settings, error) {
	var settings Settings

	settings.PollInterval = cc.userConfig.GetDuration(configKeyPollInterval)
	if settings.PollInterval <= 0 {
		cc.logger.Warnw("Invalid poll interval specified, using default value",
			"key", configKeyPollInterval,
			"invalidValue", settings.PollInterval,
			"defaultValue", DefaultPollInterval)

		settings.PollInterval = DefaultPollInterval
	}

	mode, err := ParseCoinitMode(cc.userConfig.GetString(configKeyCoinitMode))
	if err != nil {
		cc.logger.Warnw("Invalid coinit mode specified, using default value",
			"key", configKeyCoinitMode,
			"error", err,
			"defaultValue", CoinitMultithreaded)
	}
	settings.CoinitMode = mode

	settings.NotifyOnMediaChange = cc.userConfig.GetBool(configKeyNotifyOnMediaChange)

	settings.EventBufferSize = cc.userConfig.GetInt(configKeyEventBuffer)
	if settings.EventBufferSize <= 0 {
		cc.logger.Warnw("Invalid event buffer size specified, using default value",
			"key", configKeyEventBuffer,
			"invalidValue", settings.EventBufferSize,
			"defaultValue", DefaultEventBufferSize)

		settings.EventBufferSize = DefaultEventBufferSize
	}

	var players []PlayerConfig
	if err := cc.userConfig.UnmarshalKey(configKeyPlayers, &players); err != nil {
		return Settings{}, fmt.Errorf("unmarshal %s: %w", configKeyPlayers, err)
	}

	for _, player := range players {
		if player.Process == "" {
			cc.logger.Warnw("Ignoring player without a process name", "player", player)
			continue
		}
		settings.Players = append(settings.Players, player)
	}

	if len(settings.Players) == 0 {
		settings.Players = defaultPlayers
	}

	return settings, nil
}

func (cc *CanonicalConfig) onConfigReloaded() {
	cc.reloadConsumersLock.Lock()
	defer cc.reloadConsumersLock.Unlock()

	cc.logger.Debug("Notifying consumers about configuration reload")

	for _, consumer := range cc.reloadConsumers {
		select {
		case consumer <- true:
		default:
		}
	}
}
