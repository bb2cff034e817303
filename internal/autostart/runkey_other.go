//go:build !windows

package autostart

import "errors"

var errNoRunKey = errors.New("registry Run key is only available on Windows")

func enableRunKey(string) error { return errNoRunKey }

func disableRunKey() error { return errNoRunKey }

func isRunKeyEnabled() bool { return false }
