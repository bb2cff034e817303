//go:build !darwin && !windows && !linux

package input

import "keyoverlay/internal/keys"

const metaName = keys.Meta

type unsupportedTap struct{}

func newTap() Tap { return unsupportedTap{} }

func (unsupportedTap) Run(Handler, func()) error { return ErrUnsupported }

func (unsupportedTap) Stop() bool { return false }

func preflight() bool { return false }

func requestAccess() bool { return false }
