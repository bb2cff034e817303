package main

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"keyoverlay/internal/app"
	"keyoverlay/internal/config"
	"keyoverlay/internal/tray"
)

// trayHost drives the tray menu and reflects notifications in it.
type trayHost struct {
	tray     *tray.Tray
	httpAddr string

	startID, stopID, permID, loginID int

	mu      sync.Mutex
	clients int
	lastErr string
}

func newTrayHost(httpAddr string) *trayHost {
	return &trayHost{
		tray:     tray.New("", "keyoverlay"),
		httpAddr: httpAddr,
	}
}

// bind adds the menu. It must run before tray.Run.
func (h *trayHost) bind(a *app.App, cfgMgr *config.Manager) {
	h.startID = h.tray.AddMenuItem("Start capture", func() {
		status, err := a.StartCapture()
		if err != nil {
			h.CaptureError(err.Error())
			return
		}
		log.Info().Str("component", "tray").Str("status", status).Msg("Start capture")
		h.setRunning(true)
	})
	h.stopID = h.tray.AddMenuItem("Stop capture", func() {
		a.StopCapture()
		h.setRunning(false)
	})
	h.tray.AddSeparator()
	h.tray.AddMenuItem("Open overlay", func() {
		tray.OpenURL("http://" + h.httpAddr)
	})
	h.permID = h.tray.AddMenuItem("Request permission", func() {
		a.CheckPermission()
	})
	h.loginID = h.tray.AddMenuItem(loginTitle(cfgMgr.Get().General.StartOnLogin), func() {
		enabled := !cfgMgr.Get().General.StartOnLogin
		if err := cfgMgr.SetStartOnLogin(enabled); err != nil {
			log.Warn().Str("component", "tray").Err(err).Msg("Failed to save config")
		}
		h.tray.SetItemTitle(h.loginID, loginTitle(enabled))
	})
	h.tray.AddSeparator()
	h.tray.AddMenuItem("Quit", h.tray.Stop)

	h.refresh()
}

func loginTitle(enabled bool) string {
	if enabled {
		return "Start on login: on"
	}
	return "Start on login: off"
}

func (h *trayHost) setRunning(running bool) {
	h.tray.SetItemEnabled(h.startID, !running)
	h.tray.SetItemEnabled(h.stopID, running)
	if running {
		h.mu.Lock()
		h.lastErr = ""
		h.mu.Unlock()
		h.refresh()
	}
}

func (h *trayHost) refresh() {
	h.mu.Lock()
	tip := fmt.Sprintf("keyoverlay: %d overlay(s) connected", h.clients)
	if h.lastErr != "" {
		tip += "\nLast error: " + h.lastErr
	}
	h.mu.Unlock()
	h.tray.SetTooltip(tip)
}

func (h *trayHost) CaptureError(reason string) {
	h.mu.Lock()
	h.lastErr = reason
	h.mu.Unlock()
	h.refresh()
	h.setRunning(false)
}

func (h *trayHost) AccessibilityStatus(trusted bool) {
	if trusted {
		h.tray.SetItemTitle(h.permID, "Permission granted")
	} else {
		h.tray.SetItemTitle(h.permID, "Request permission")
	}
	h.tray.SetItemEnabled(h.permID, !trusted)
}

func (h *trayHost) ClientCountChanged(n int) {
	h.mu.Lock()
	h.clients = n
	h.mu.Unlock()
	h.refresh()
}

func (h *trayHost) KeyPressed(string) {}
