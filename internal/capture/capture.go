// Package capture runs at most one input capture session per process and
// turns its events into combos.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"keyoverlay/internal/combo"
	"keyoverlay/internal/input"
	"keyoverlay/internal/settings"
	"keyoverlay/internal/tracker"
)

// State of a capture session.
type State int32

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

// Results reported to the host.
const (
	StatusStarted        = "started"
	StatusAlreadyRunning = "already_running"
	StatusStopped        = "stopped"
)

// Reasons carried by Notifier.CaptureError.
const (
	ReasonNoPermission = "no_permission"
	ReasonHookFailed   = "hook_failed"
)

// ErrNotTrusted is returned by Start when the preflight permission check
// fails. No install was attempted.
var ErrNotTrusted = fmt.Errorf("%w: preflight check failed", input.ErrPermissionDenied)

// Sink takes synthesized combos off the hook thread. Enqueue must not block.
type Sink interface {
	Enqueue(combo string) bool
}

// Notifier receives fire-and-forget notifications. KeyPressed is called on
// the hook thread and must not block.
type Notifier interface {
	CaptureError(reason string)
	KeyPressed(combo string)
}

// Options tune a Session. Zero values take the defaults.
type Options struct {
	IdleInterval time.Duration
	IdleTimeout  time.Duration
	// Preflight is the non-prompting permission check. Defaults to
	// input.Preflight.
	Preflight func() bool
}

// DefaultIdle is both the reaper interval and the idle threshold.
const DefaultIdle = 5 * time.Second

// Session owns the held-key state and the native hook for one process.
type Session struct {
	tap      input.Tap
	tracker  *tracker.Tracker
	settings *settings.Store
	sink     Sink
	notify   Notifier
	opts     Options

	state atomic.Int32

	mu   sync.Mutex
	done chan struct{}
}

// New creates a stopped session. notify may be nil.
func New(tap input.Tap, store *settings.Store, sink Sink, notify Notifier, opts Options) *Session {
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdle
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdle
	}
	if opts.Preflight == nil {
		opts.Preflight = input.Preflight
	}
	if notify == nil {
		notify = nopNotifier{}
	}

	closed := make(chan struct{})
	close(closed)

	return &Session{
		tap:      tap,
		tracker:  tracker.New(input.MetaName),
		settings: store,
		sink:     sink,
		notify:   notify,
		opts:     opts,
		done:     closed,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Tracker exposes the held-key tracker.
func (s *Session) Tracker() *tracker.Tracker {
	return s.tracker
}

// Done is closed when the most recently started hook loop has exited.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Start installs the hook on a dedicated goroutine together with the idle
// reaper and waits until the hook is live. A second Start while a session
// exists reports StatusAlreadyRunning. If the preflight check fails Start
// returns ErrNotTrusted without changing state.
func (s *Session) Start() (string, error) {
	if s.State() != Stopped {
		return StatusAlreadyRunning, nil
	}
	if !s.opts.Preflight() {
		return "", ErrNotTrusted
	}
	if !s.state.CompareAndSwap(int32(Stopped), int32(Starting)) {
		return StatusAlreadyRunning, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	installed := make(chan struct{})
	result := make(chan error, 1)
	done := make(chan struct{})

	s.mu.Lock()
	s.done = done
	s.mu.Unlock()

	go s.tracker.RunReaper(ctx, s.opts.IdleInterval, s.opts.IdleTimeout)
	go func() {
		defer close(done)
		err := s.tap.Run(s.handle, func() { close(installed) })

		cancel()
		s.tracker.Clear()
		s.state.Store(int32(Stopped))
		result <- err
	}()

	select {
	case <-installed:
		if !s.state.CompareAndSwap(int32(Starting), int32(Running)) {
			// Stop arrived while installing.
			s.tap.Stop()
			return StatusStopped, nil
		}
		log.Info().Str("component", "capture").Msg("Capture started")
		return StatusStarted, nil

	case err := <-result:
		if err == nil {
			// The loop ran and has already been stopped.
			return StatusStopped, nil
		}
		reason := ReasonHookFailed
		if errors.Is(err, input.ErrPermissionDenied) {
			reason = ReasonNoPermission
		}
		log.Error().Str("component", "capture").Err(err).Str("reason", reason).Msg("Capture failed to start")
		s.notify.CaptureError(reason)
		return "", fmt.Errorf("start capture: %w", err)
	}
}

// Stop asks the hook loop to exit. The loop's own cleanup clears the held
// keys and moves the session to Stopped. Only when no loop goroutine is
// alive is the state reset here instead.
func (s *Session) Stop() string {
	for {
		switch st := s.State(); st {
		case Stopped, Stopping:
			return StatusStopped

		case Starting:
			if s.state.CompareAndSwap(int32(Starting), int32(Stopping)) {
				return StatusStopped
			}

		case Running:
			if !s.state.CompareAndSwap(int32(Running), int32(Stopping)) {
				continue
			}
			if !s.tap.Stop() {
				select {
				case <-s.Done():
					s.tracker.Clear()
					s.state.Store(int32(Stopped))
				default:
					// The loop already returned; its cleanup moves the
					// session to Stopped.
				}
			}
			log.Info().Str("component", "capture").Msg("Capture stop requested")
			return StatusStopped
		}
	}
}

// handle runs on the hook thread. Tracker locks are released before any
// hand-off.
func (s *Session) handle(ev input.Event) {
	cfg := s.settings.Current()

	switch ev.Kind {
	case input.KeyDown:
		held, fresh := s.tracker.KeyDown(ev.Key)
		if !fresh {
			return
		}
		if out, ok := combo.Key(held, ev.Key, cfg); ok {
			s.emit(out)
		}

	case input.KeyUp:
		s.tracker.KeyUp(ev.Key)

	case input.FlagsChanged:
		held, pressed := s.tracker.SetModifiers(ev.Modifiers)
		for _, name := range pressed {
			if out, ok := combo.Key(held, name, cfg); ok {
				s.emit(out)
			}
		}

	case input.MouseDown:
		if out, ok := combo.Click(s.tracker.Held(), ev.Key, cfg); ok {
			s.emit(out)
		}
	}
}

func (s *Session) emit(out string) {
	s.sink.Enqueue(out)
	s.notify.KeyPressed(out)
}

type nopNotifier struct{}

func (nopNotifier) CaptureError(string) {}
func (nopNotifier) KeyPressed(string)   {}
