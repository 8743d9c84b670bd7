//go:build !windows

package util

import (
	"errors"
)

func getCurrentWindowProcessNames() ([]string, error) {
	return nil, errors.New("current window process names are only available on windows")
}
