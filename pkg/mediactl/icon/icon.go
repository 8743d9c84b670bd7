// Package icon holds the tray icon assets
package icon

import (
	_ "embed"
)

// MediaCtlLogo is the tray icon in ICO format, used on Windows
//
//go:embed mediactl.ico
var MediaCtlLogo []byte

// MediaCtlTemplate is the monochrome PNG variant used where template icons are supported
//
//go:embed mediactl.png
var MediaCtlTemplate []byte
