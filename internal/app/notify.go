package app

import "github.com/rs/zerolog/log"

// Notifier receives fire-and-forget notifications for the host. KeyPressed
// is called on the hook thread; no method may block.
type Notifier interface {
	CaptureError(reason string)
	AccessibilityStatus(trusted bool)
	ClientCountChanged(n int)
	KeyPressed(combo string)
}

// Notifiers delivers each notification to every member in order.
type Notifiers []Notifier

func (ns Notifiers) CaptureError(reason string) {
	for _, n := range ns {
		n.CaptureError(reason)
	}
}

func (ns Notifiers) AccessibilityStatus(trusted bool) {
	for _, n := range ns {
		n.AccessibilityStatus(trusted)
	}
}

func (ns Notifiers) ClientCountChanged(count int) {
	for _, n := range ns {
		n.ClientCountChanged(count)
	}
}

func (ns Notifiers) KeyPressed(combo string) {
	for _, n := range ns {
		n.KeyPressed(combo)
	}
}

// LogNotifier writes notifications to the log.
type LogNotifier struct{}

func (LogNotifier) CaptureError(reason string) {
	log.Warn().Str("component", "app").Str("reason", reason).Msg("capture-error")
}

func (LogNotifier) AccessibilityStatus(trusted bool) {
	log.Info().Str("component", "app").Bool("trusted", trusted).Msg("accessibility-status")
}

func (LogNotifier) ClientCountChanged(n int) {
	log.Info().Str("component", "app").Int("clients", n).Msg("client-count-changed")
}

func (LogNotifier) KeyPressed(combo string) {
	log.Debug().Str("component", "app").Str("combo", combo).Msg("key-pressed")
}
