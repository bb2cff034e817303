// Package autostart launches the app when the user logs in.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

// Label identifies the login item on every platform.
const Label = "com.keyoverlay.agent"

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
    <key>ProcessType</key>
    <string>Interactive</string>
</dict>
</plist>`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=keyoverlay
Comment=On-screen keystroke overlay
Exec="{{.ExecutablePath}}"
Terminal=false
X-GNOME-Autostart-enabled=true
`

type entry struct {
	Label          string
	ExecutablePath string
}

// Enable enables auto-start on login
func Enable() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		dir, err := launchAgentsDir()
		if err != nil {
			return err
		}
		return writeLaunchAgent(dir, execPath)
	case "windows":
		return enableRunKey(execPath)
	default:
		dir, err := xdgAutostartDir()
		if err != nil {
			return err
		}
		return writeDesktopEntry(dir, execPath)
	}
}

// Disable disables auto-start on login
func Disable() error {
	switch runtime.GOOS {
	case "windows":
		return disableRunKey()
	default:
		path, err := itemPath()
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	if runtime.GOOS == "windows" {
		return isRunKeyEnabled()
	}
	path, err := itemPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Sync makes the login item match enabled.
func Sync(enabled bool) error {
	switch on := IsEnabled(); {
	case enabled && !on:
		return Enable()
	case !enabled && on:
		return Disable()
	}
	return nil
}

func itemPath() (string, error) {
	if runtime.GOOS == "darwin" {
		dir, err := launchAgentsDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, Label+".plist"), nil
	}
	dir, err := xdgAutostartDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "keyoverlay.desktop"), nil
}

func launchAgentsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents"), nil
}

func xdgAutostartDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "autostart"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "autostart"), nil
}

func writeLaunchAgent(dir, execPath string) error {
	return writeTemplate(filepath.Join(dir, Label+".plist"), macLaunchAgentPlist, execPath)
}

func writeDesktopEntry(dir, execPath string) error {
	return writeTemplate(filepath.Join(dir, "keyoverlay.desktop"), xdgDesktopEntry, execPath)
}

func writeTemplate(path, text, execPath string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpl, err := template.New(filepath.Base(path)).Parse(text)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, entry{Label: Label, ExecutablePath: execPath})
}
