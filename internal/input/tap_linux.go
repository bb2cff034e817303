//go:build linux

package input

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/holoplot/go-evdev"
	"github.com/rs/zerolog/log"

	"keyoverlay/internal/keys"
)

const metaName = keys.Meta

const inputDir = "/dev/input"

// linuxTap reads every input device that reports keys. Devices are opened
// read-only and never grabbed, so other readers see the same events.
type linuxTap struct {
	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

func newTap() Tap {
	return &linuxTap{}
}

// Run delivers events from all devices on the calling goroutine so the
// handler is never invoked concurrently.
func (t *linuxTap) Run(h Handler, installed func()) error {
	devices := openKeyDevices()
	if len(devices) == 0 {
		return fmt.Errorf("%w: no readable key devices under %s", ErrPermissionDenied, inputDir)
	}

	stop := make(chan struct{})
	t.mu.Lock()
	t.stop = stop
	t.running = true
	t.mu.Unlock()

	events := make(chan Event, 64)
	var wg sync.WaitGroup
	for _, dev := range devices {
		wg.Add(1)
		go func(dev *evdev.InputDevice) {
			defer wg.Done()
			readDevice(dev, events, stop)
		}(dev)
	}

	log.Info().Str("component", "input").Int("devices", len(devices)).Msg("evdev capture active (listen-only)")
	installed()

loop:
	for {
		select {
		case <-stop:
			break loop
		case ev := <-events:
			deliver(h, ev)
		}
	}

	// Closing unblocks the readers.
	for _, dev := range devices {
		dev.Close()
	}
	wg.Wait()

	t.mu.Lock()
	t.running = false
	t.mu.Unlock()

	log.Info().Str("component", "input").Msg("evdev capture stopped")
	return nil
}

func (t *linuxTap) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return false
	}
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	return true
}

func readDevice(dev *evdev.InputDevice, out chan<- Event, stop <-chan struct{}) {
	for {
		e, err := dev.ReadOne()
		if err != nil {
			select {
			case <-stop:
			default:
				log.Debug().Str("component", "input").Str("device", dev.Path()).Err(err).Msg("Device read ended")
			}
			return
		}
		if e.Type != evdev.EV_KEY {
			continue
		}
		ev, ok := evdevEvent(uint16(e.Code), e.Value)
		if !ok {
			continue
		}
		select {
		case out <- ev:
		case <-stop:
			return
		}
	}
}

func openKeyDevices() []*evdev.InputDevice {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		log.Warn().Str("component", "input").Err(err).Msg("Cannot list input devices")
		return nil
	}

	var devices []*evdev.InputDevice
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "event") {
			continue
		}
		dev, err := evdev.OpenWithFlags(filepath.Join(inputDir, entry.Name()), os.O_RDONLY)
		if err != nil {
			continue
		}
		if reportsKeys(dev) {
			devices = append(devices, dev)
		} else {
			dev.Close()
		}
	}
	return devices
}

func reportsKeys(dev *evdev.InputDevice) bool {
	for _, t := range dev.CapableTypes() {
		if t == evdev.EV_KEY {
			return true
		}
	}
	return false
}

func preflight() bool {
	devices := openKeyDevices()
	for _, dev := range devices {
		dev.Close()
	}
	return len(devices) > 0
}

// There is no consent dialog on Linux; access comes from membership of the
// group owning the device nodes.
func requestAccess() bool {
	ok := preflight()
	if !ok {
		log.Warn().Str("component", "input").Msg("No readable input devices; add the user to the 'input' group")
	}
	return ok
}
