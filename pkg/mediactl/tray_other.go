//go:build !windows

package mediactl

func (m *MediaCtl) initializeTray(onDone func()) {
	m.logger.Debugw("Running without tray icon", "reason", "unsupported platform")
	onDone()
}

func (m *MediaCtl) stopTray() {}
