// Package tray provides the system tray menu using getlantern/systray.
package tray

import (
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog/log"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Callback func()
	disabled bool
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu. Item state may be changed
// before Run; it is applied once the menu exists.
type Tray struct {
	mu      sync.Mutex
	title   string
	tooltip string
	items   []*MenuItem
	ready   bool
	quitCh  chan struct{}
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds a menu item to the tray and returns its id
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := len(t.items)
	t.items = append(t.items, &MenuItem{ID: id, Title: title, Callback: callback})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	t.items = append(t.items, nil) // nil indicates separator
	t.mu.Unlock()
}

// SetItemEnabled enables or greys out a menu item
func (t *Tray) SetItemEnabled(id int, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	mi := t.lookup(id)
	if mi == nil {
		return
	}
	mi.disabled = !enabled
	if mi.item != nil {
		if enabled {
			mi.item.Enable()
		} else {
			mi.item.Disable()
		}
	}
}

// SetItemTitle renames a menu item
func (t *Tray) SetItemTitle(id int, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	mi := t.lookup(id)
	if mi == nil {
		return
	}
	mi.Title = title
	if mi.item != nil {
		mi.item.SetTitle(title)
	}
}

// SetTooltip updates the icon tooltip
func (t *Tray) SetTooltip(tooltip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tooltip = tooltip
	if t.ready {
		systray.SetTooltip(tooltip)
	}
}

func (t *Tray) lookup(id int) *MenuItem {
	if id < 0 || id >= len(t.items) {
		return nil
	}
	return t.items[id]
}

// Run starts the tray event loop (blocks). It must be called from the main
// goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// Done is closed when the tray loop has exited.
func (t *Tray) Done() <-chan struct{} {
	return t.quitCh
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.mu.Lock()
	defer t.mu.Unlock()

	systray.SetIcon(Icon())
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)

	for _, mi := range t.items {
		if mi == nil {
			systray.AddSeparator()
			continue
		}
		mi.item = systray.AddMenuItem(mi.Title, "")
		if mi.disabled {
			mi.item.Disable()
		}

		// Handle clicks in goroutine
		if mi.Callback != nil {
			go func(mi *MenuItem, clicked <-chan struct{}) {
				for {
					select {
					case <-clicked:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(mi, mi.item.ClickedCh)
		}
	}
	t.ready = true
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// OpenURL opens url in the default browser
func OpenURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	log.Info().Str("component", "tray").Str("url", url).Msg("Opening overlay page")
	if err := cmd.Start(); err != nil {
		log.Error().Str("component", "tray").Err(err).Msg("Failed to open browser")
		return
	}
	go cmd.Wait()
}
