package protocol

import (
	"encoding/json"
	"testing"
)

func TestKeyPressShape(t *testing.T) {
	b, err := json.Marshal(KeyPress("Ctrl+A"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != `{"type":"keypress","combo":"Ctrl+A"}` {
		t.Errorf("Unexpected keypress JSON: %s", b)
	}
}

func TestSettingsShape(t *testing.T) {
	b, err := json.Marshal(Settings(json.RawMessage(`{"comboMode":false}`)))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != `{"type":"settings","data":{"comboMode":false}}` {
		t.Errorf("Unexpected settings JSON: %s", b)
	}
}
