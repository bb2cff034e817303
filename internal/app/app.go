// Package app exposes the host commands and wires the capture session, the
// settings store and the broadcaster into one object.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"keyoverlay/internal/broadcast"
	"keyoverlay/internal/capture"
	"keyoverlay/internal/input"
	"keyoverlay/internal/protocol"
	"keyoverlay/internal/server"
	"keyoverlay/internal/settings"
)

// ErrAccessibilityDenied is returned by StartCapture when the process is not
// allowed to observe input.
var ErrAccessibilityDenied = errors.New("accessibility_denied")

// Persister stores the overlay settings document.
type Persister interface {
	SaveSettings(raw []byte) error
}

// Options configures New. Zero values take defaults.
type Options struct {
	Tap          input.Tap
	Persist      Persister
	Notifier     Notifier
	QueueSize    int
	IdleInterval time.Duration
	IdleTimeout  time.Duration

	// Preflight and RequestAccess default to the input package checks.
	Preflight     func() bool
	RequestAccess func() bool
}

// App is the explicitly constructed capture session plus its
// collaborators.
type App struct {
	store   *settings.Store
	hub     *broadcast.Hub
	session *capture.Session
	persist Persister
	notify  Notifier

	preflight     func() bool
	requestAccess func() bool
	// trusted is the result of the last permission check.
	trusted atomic.Bool
}

// New builds an App. Capture is not started.
func New(opts Options) *App {
	if opts.Tap == nil {
		opts.Tap = input.New()
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Preflight == nil {
		opts.Preflight = input.Preflight
	}
	if opts.RequestAccess == nil {
		opts.RequestAccess = input.RequestAccess
	}

	a := &App{
		store:         settings.NewStore(),
		hub:           broadcast.NewHub(opts.QueueSize),
		persist:       opts.Persist,
		notify:        opts.Notifier,
		preflight:     opts.Preflight,
		requestAccess: opts.RequestAccess,
	}
	a.hub.OnCountChanged(a.notify.ClientCountChanged)
	a.session = capture.New(opts.Tap, a.store, a.hub, a.notify, capture.Options{
		IdleInterval: opts.IdleInterval,
		IdleTimeout:  opts.IdleTimeout,
		Preflight:    opts.Preflight,
	})
	return a
}

// Hub returns the broadcaster.
func (a *App) Hub() *broadcast.Hub { return a.hub }

// Session returns the capture session.
func (a *App) Session() *capture.Session { return a.session }

// Run drains the combo queue to subscribers until ctx is done.
func (a *App) Run(ctx context.Context) {
	a.hub.Run(ctx)
}

// Startup reports the permission state and starts capture when autoStart
// is set and permission is already granted.
func (a *App) Startup(autoStart bool) {
	trusted := a.preflight()
	a.trusted.Store(trusted)
	a.notify.AccessibilityStatus(trusted)
	if !autoStart || !trusted {
		return
	}
	if status, err := a.StartCapture(); err != nil {
		log.Warn().Str("component", "app").Err(err).Msg("Auto-start of capture failed")
	} else {
		log.Info().Str("component", "app").Str("status", status).Msg("Capture auto-started")
	}
}

// StartCapture returns "started" or "already_running", or
// ErrAccessibilityDenied when the preflight check fails.
func (a *App) StartCapture() (string, error) {
	status, err := a.session.Start()
	switch {
	case errors.Is(err, capture.ErrNotTrusted):
		a.trusted.Store(false)
		return "", ErrAccessibilityDenied
	case err != nil:
		return "", err
	}
	if status == capture.StatusStarted {
		a.trusted.Store(true)
	}
	return status, nil
}

// StopCapture always returns "stopped".
func (a *App) StopCapture() string {
	return a.session.Stop()
}

// CheckPermission asks the OS for input monitoring access, which may show a
// consent dialog.
func (a *App) CheckPermission() bool {
	ok := a.requestAccess()
	a.trusted.Store(ok)
	a.notify.AccessibilityStatus(ok)
	return ok
}

// LoadSettings makes raw current without persisting or broadcasting it.
func (a *App) LoadSettings(raw []byte) {
	a.store.Update(raw)
}

// UpdateSettings merges the fields of patch over the current settings
// document. The result is made current, persisted and broadcast. A patch
// that is not a JSON object only resets synthesis to defaults.
func (a *App) UpdateSettings(patch []byte) {
	merged, ok := settings.Merge(a.store.Snapshot().Raw, patch)
	if !ok {
		a.store.Update(patch)
		log.Warn().Str("component", "app").Msg("Ignoring malformed settings document")
		return
	}
	a.store.Update(merged)

	if a.persist != nil {
		if err := a.persist.SaveSettings(merged); err != nil {
			log.Error().Str("component", "app").Err(err).Msg("Failed to persist settings")
		}
	}
	a.hub.Publish(protocol.Settings(json.RawMessage(merged)))
}

// Greeting returns the current settings message for a new subscriber.
func (a *App) Greeting() []protocol.Message {
	snap := a.store.Snapshot()
	if snap.Raw == nil {
		return nil
	}
	return []protocol.Message{protocol.Settings(snap.Raw)}
}

// Settings returns the current overlay settings document, or nil when none
// has been loaded.
func (a *App) Settings() json.RawMessage {
	return a.store.Snapshot().Raw
}

// Status reports capture state, subscriber count and permission.
func (a *App) Status() server.Status {
	return server.Status{
		Capture: a.session.State().String(),
		Clients: a.hub.Count(),
		Trusted: a.trusted.Load(),
	}
}

// Shutdown stops capture and waits for the hook loop to exit or ctx to end.
func (a *App) Shutdown(ctx context.Context) {
	a.StopCapture()
	select {
	case <-a.session.Done():
	case <-ctx.Done():
		log.Warn().Str("component", "app").Msg("Timed out waiting for capture to stop")
	}
}
