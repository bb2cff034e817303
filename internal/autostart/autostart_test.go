package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteLaunchAgent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "LaunchAgents")
	if err := writeLaunchAgent(dir, "/Applications/keyoverlay"); err != nil {
		t.Fatalf("writeLaunchAgent failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, Label+".plist"))
	if err != nil {
		t.Fatalf("Expected plist to be written: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "<string>/Applications/keyoverlay</string>") {
		t.Errorf("Expected executable path in plist, got:\n%s", s)
	}
	if !strings.Contains(s, "<string>"+Label+"</string>") {
		t.Errorf("Expected label in plist, got:\n%s", s)
	}
}

func TestWriteDesktopEntry(t *testing.T) {
	dir := t.TempDir()
	if err := writeDesktopEntry(dir, "/usr/local/bin/keyoverlay"); err != nil {
		t.Fatalf("writeDesktopEntry failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "keyoverlay.desktop"))
	if err != nil {
		t.Fatalf("Expected desktop entry to be written: %v", err)
	}
	if !strings.Contains(string(data), `Exec="/usr/local/bin/keyoverlay"`) {
		t.Errorf("Expected Exec line, got:\n%s", data)
	}
}
