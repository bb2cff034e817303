// Package config manages the application config file and the persisted
// overlay settings.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"keyoverlay/internal/settings"
)

// AppName names the per-user config directory.
const AppName = "keyoverlay"

const (
	configFile   = "config.toml"
	settingsFile = "settings.json"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Capture CaptureConfig `toml:"capture"`
	Log     LogConfig     `toml:"log"`
	General GeneralConfig `toml:"general"`
}

// ServerConfig holds the local listen addresses. Both must be loopback.
type ServerConfig struct {
	// WSAddr serves the subscriber WebSocket
	WSAddr string `toml:"ws_addr"`

	// HTTPAddr serves the overlay page and status endpoints
	HTTPAddr string `toml:"http_addr"`
}

// CaptureConfig tunes the capture session
type CaptureConfig struct {
	// AutoStart starts capture at launch when permission is already granted
	AutoStart bool `toml:"auto_start"`

	// IdleInterval is how often stale held keys are checked
	IdleInterval Duration `toml:"idle_interval"`

	// IdleTimeout clears held keys after this much input silence
	IdleTimeout Duration `toml:"idle_timeout"`

	// QueueSize bounds combos waiting to be broadcast
	QueueSize int `toml:"queue_size"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// Tray shows the system tray menu
	Tray bool `toml:"tray"`

	// StartOnLogin launches the app when the user logs in
	StartOnLogin bool `toml:"start_on_login"`
}

// Duration is a time.Duration written as text, e.g. "5s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			WSAddr:   "127.0.0.1:9001",
			HTTPAddr: "127.0.0.1:9002",
		},
		Capture: CaptureConfig{
			AutoStart:    true,
			IdleInterval: Duration{5 * time.Second},
			IdleTimeout:  Duration{5 * time.Second},
			QueueSize:    1024,
		},
		Log: LogConfig{
			Level: "info",
		},
		General: GeneralConfig{
			Tray:         true,
			StartOnLogin: false,
		},
	}
}

// normalize replaces values that must not be used with their defaults and
// reports what it changed.
func (c *Config) normalize() []string {
	def := DefaultConfig()
	var fixed []string

	if !IsLoopback(c.Server.WSAddr) {
		fixed = append(fixed, fmt.Sprintf("server.ws_addr %q is not a loopback address", c.Server.WSAddr))
		c.Server.WSAddr = def.Server.WSAddr
	}
	if !IsLoopback(c.Server.HTTPAddr) {
		fixed = append(fixed, fmt.Sprintf("server.http_addr %q is not a loopback address", c.Server.HTTPAddr))
		c.Server.HTTPAddr = def.Server.HTTPAddr
	}
	if c.Capture.IdleInterval.Duration <= 0 {
		fixed = append(fixed, "capture.idle_interval must be positive")
		c.Capture.IdleInterval = def.Capture.IdleInterval
	}
	if c.Capture.IdleTimeout.Duration <= 0 {
		fixed = append(fixed, "capture.idle_timeout must be positive")
		c.Capture.IdleTimeout = def.Capture.IdleTimeout
	}
	if c.Capture.QueueSize <= 0 {
		fixed = append(fixed, "capture.queue_size must be positive")
		c.Capture.QueueSize = def.Capture.QueueSize
	}
	return fixed
}

// IsLoopback reports whether addr is a host:port on the loopback interface.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Manager handles loading and saving configuration
type Manager struct {
	mu           sync.Mutex
	dir          string
	configPath   string
	settingsPath string
	config       *Config
	onChanged    func()
}

// NewManager creates a manager rooted at dir, or at the per-user config
// directory when dir is empty.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		var err error
		dir, err = Dir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	return &Manager{
		dir:          dir,
		configPath:   filepath.Join(dir, configFile),
		settingsPath: filepath.Join(dir, settingsFile),
		config:       DefaultConfig(),
	}, nil
}

// Dir returns the per-user config directory
func Dir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, AppName), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	}
}

// Path returns the config file path
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the config file. A missing file is created with defaults.
func (m *Manager) Load() error {
	m.mu.Lock()

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = DefaultConfig()
		err := m.saveLocked()
		m.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to create default config: %w", err)
		}
		return nil
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(m.configPath, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to decode config: %w", err)
	}
	for _, msg := range cfg.normalize() {
		log.Warn().Str("component", "config").Str("path", m.configPath).Msg(msg + ", using default")
	}
	m.config = cfg
	fn := m.onChanged
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	f, err := os.Create(m.configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	log.Debug().Str("component", "config").Str("path", m.configPath).Msg("Saving configuration")
	return toml.NewEncoder(f).Encode(m.config)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set updates the configuration
func (m *Manager) Set(cfg Config) {
	cfg.normalize()

	m.mu.Lock()
	m.config = &cfg
	fn := m.onChanged
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// SetStartOnLogin changes general.start_on_login, notifies the change
// callback and saves the file.
func (m *Manager) SetStartOnLogin(enabled bool) error {
	cfg := m.Get()
	cfg.General.StartOnLogin = enabled
	m.Set(cfg)
	return m.Save()
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// LoadSettings returns the persisted overlay settings, migrated to the
// current defaults. A missing or unreadable file yields the defaults.
func (m *Manager) LoadSettings() []byte {
	data, err := os.ReadFile(m.settingsPath)
	if err != nil && !os.IsNotExist(err) {
		log.Warn().Str("component", "config").Err(err).Msg("Failed to read overlay settings, using defaults")
	}
	return settings.Migrate(data)
}

// SaveSettings persists the overlay settings document as given.
func (m *Manager) SaveSettings(raw []byte) error {
	tmp := m.settingsPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write overlay settings: %w", err)
	}
	if err := os.Rename(tmp, m.settingsPath); err != nil {
		return fmt.Errorf("failed to replace overlay settings: %w", err)
	}
	return nil
}
