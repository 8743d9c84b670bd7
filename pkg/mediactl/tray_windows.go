package mediactl

import (
	"github.com/getlantern/systray"
	"go.uber.org/zap"

	"github.com/omriharel/mediactl/pkg/mediactl/icon"
	"github.com/omriharel/mediactl/pkg/mediactl/util"
)

const (
	trayTitle          = "mediactl"
	trayTooltipMaxLen  = 127
	configEditorBinary = "notepad.exe"
)

type trayMenu struct {
	playPause       *systray.MenuItem
	next            *systray.MenuItem
	previous        *systray.MenuItem
	stop            *systray.MenuItem
	toggleMute      *systray.MenuItem
	editConfig      *systray.MenuItem
	refreshSessions *systray.MenuItem
	quit            *systray.MenuItem
}

func (m *MediaCtl) initializeTray(onDone func()) {
	logger := m.logger.Named("tray")

	onReady := func() {
		logger.Debug("Tray instance ready")

		systray.SetTemplateIcon(icon.MediaCtlTemplate, icon.MediaCtlLogo)
		systray.SetTitle(trayTitle)
		systray.SetTooltip(trayTitle)

		menu := &trayMenu{}

		menu.playPause = systray.AddMenuItem("Play/Pause", "Toggle playback of the current player")
		menu.next = systray.AddMenuItem("Next", "Skip to the next track")
		menu.previous = systray.AddMenuItem("Previous", "Go back to the previous track")
		menu.stop = systray.AddMenuItem("Stop", "Stop playback")

		systray.AddSeparator()
		menu.toggleMute = systray.AddMenuItem("Toggle master mute", "Mute or unmute the default output device")

		systray.AddSeparator()
		menu.editConfig = systray.AddMenuItem("Edit configuration", "Open config file with notepad")
		menu.refreshSessions = systray.AddMenuItem("Re-scan audio sessions", "Manually refresh audio sessions if something's stuck")

		if m.version != "" {
			systray.AddSeparator()
			versionInfo := systray.AddMenuItem(m.version, "")
			versionInfo.Disable()
		}

		systray.AddSeparator()
		menu.quit = systray.AddMenuItem("Quit", "Stop mediactl and quit")

		m.trayTooltip = func(text string) {
			systray.SetTooltip(util.TruncateUTF16(text, trayTooltipMaxLen))
		}

		go m.handleTrayActions(logger, menu)

		// actually start the main runtime
		go onDone()
	}

	onExit := func() {
		logger.Debug("Tray exited")
	}

	logger.Debug("Running in tray")
	systray.Run(onReady, onExit)
}

func (m *MediaCtl) handleTrayActions(logger *zap.SugaredLogger, menu *trayMenu) {
	defer m.recoverFromPanic()

	for {
		select {
		case <-menu.quit.ClickedCh:
			logger.Info("Quit menu item clicked, stopping")
			m.signalStop()

		case <-menu.playPause.ClickedCh:
			transport := m.Transport()
			info, ok := transport.CurrentMedia()

			var sent bool
			if ok && info.PlaybackStatus == PlaybackPlaying {
				sent = transport.Pause()
			} else {
				sent = transport.Play()
			}
			logger.Debugw("Play/pause menu item clicked", "sent", sent)

		case <-menu.next.ClickedCh:
			logger.Debugw("Next menu item clicked", "sent", m.Transport().Next())

		case <-menu.previous.ClickedCh:
			logger.Debugw("Previous menu item clicked", "sent", m.Transport().Previous())

		case <-menu.stop.ClickedCh:
			logger.Debugw("Stop menu item clicked", "sent", m.Transport().Stop())

		case <-menu.toggleMute.ClickedCh:
			matched := m.WithSessions(masterSessionName, func(session Session) {
				session.SetMute(!session.GetMute())
			})
			logger.Infow("Toggle mute menu item clicked", "matched", matched)

		case <-menu.editConfig.ClickedCh:
			logger.Info("Edit config menu item clicked, opening config for editing")

			if err := util.OpenExternal(logger, configEditorBinary, m.config.Path()); err != nil {
				logger.Warnw("Failed to open config file for editing", "error", err)
			}

		case <-menu.refreshSessions.ClickedCh:
			logger.Info("Refresh sessions menu item clicked, triggering session refresh")
			m.RefreshSessions()
		}
	}
}

func (m *MediaCtl) stopTray() {
	m.logger.Debug("Quitting tray")
	systray.Quit()
}
