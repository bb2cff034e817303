// Package input installs a system-wide, listen-only keyboard and mouse hook
// and reports what it sees as a uniform stream of Events. Native callbacks
// never see anything but this package.
package input

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"keyoverlay/internal/keys"
)

var (
	// ErrPermissionDenied means the OS refused to let this process observe
	// input.
	ErrPermissionDenied = errors.New("input monitoring permission denied")
	// ErrHookFailed means the hook or tap could not be installed.
	ErrHookFailed = errors.New("failed to install input hook")
	// ErrUnsupported is returned on platforms without an adapter.
	ErrUnsupported = errors.New("input capture not supported on this platform")
)

// Kind discriminates Events.
type Kind uint8

const (
	KeyDown Kind = iota + 1
	KeyUp
	FlagsChanged
	MouseDown
)

func (k Kind) String() string {
	switch k {
	case KeyDown:
		return "key_down"
	case KeyUp:
		return "key_up"
	case FlagsChanged:
		return "flags_changed"
	case MouseDown:
		return "mouse_down"
	}
	return "unknown"
}

// Event is one observed input event.
type Event struct {
	Kind Kind
	// Key is the resolved key name for KeyDown and KeyUp, and the button
	// name (keys.LeftClick, keys.RightClick) for MouseDown.
	Key string
	// Modifiers is the full modifier state for FlagsChanged.
	Modifiers keys.Modifiers
	Time      time.Time
}

// Handler receives events on the hook thread. It must return quickly and
// must not block: a slow callback can get the hook disabled by the OS.
type Handler func(Event)

// Tap is a listen-only input hook. Events are always passed on to the OS
// unmodified.
type Tap interface {
	// Run installs the hook and blocks running the native loop on the
	// calling goroutine's locked OS thread until Stop is called. installed
	// is called once the hook is live. If installation fails Run returns
	// ErrPermissionDenied or ErrHookFailed without calling installed.
	Run(h Handler, installed func()) error
	// Stop asks a running loop to exit. It reports whether a loop was
	// running; Run returns after its own cleanup.
	Stop() bool
}

// New returns the adapter for the current platform.
func New() Tap {
	return newTap()
}

// MetaName is the Meta key spelling on this platform.
const MetaName = metaName

// Preflight reports, without prompting, whether this process may observe
// input.
func Preflight() bool {
	return preflight()
}

// RequestAccess asks the OS for permission to observe input, which may show
// a consent dialog, and reports whether access is granted.
func RequestAccess() bool {
	return requestAccess()
}

// deliver runs h and contains any panic so it never unwinds into native code.
func deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "input").Interface("panic", r).Stringer("kind", ev.Kind).Msg("Recovered panic in input handler")
		}
	}()
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	h(ev)
}
