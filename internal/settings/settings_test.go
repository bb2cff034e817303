package settings

import (
	"encoding/json"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	for _, in := range []string{"", "{}", "null", "not json", `{"comboMode": "yes"}`} {
		got := Parse([]byte(in))
		want := Default()
		if got.ComboMode != want.ComboMode ||
			got.ShowModifiersAlone != want.ShowModifiersAlone ||
			got.ShowMouseClicks != want.ShowMouseClicks ||
			got.ShowMouseClickCombos != want.ShowMouseClickCombos ||
			got.KeyFilter != want.KeyFilter ||
			got.KeyFilterEnabled != want.KeyFilterEnabled {
			t.Errorf("Parse(%q): expected defaults, got %+v", in, got)
		}
	}
}

func TestParseOverridesAndIgnoresUnknown(t *testing.T) {
	s := Parse([]byte(`{"comboMode":false,"showMouseClicks":true,"fontSize":30,"keyFilter":"a, b"}`))
	if s.ComboMode {
		t.Error("Expected comboMode false")
	}
	if !s.ShowMouseClicks {
		t.Error("Expected showMouseClicks true")
	}
	if !s.ShowMouseClickCombos {
		t.Error("Expected missing showMouseClickCombos to default to true")
	}
	if s.KeyFilter != "a, b" {
		t.Errorf("Expected keyFilter 'a, b', got %q", s.KeyFilter)
	}
}

func TestAllows(t *testing.T) {
	s := Parse([]byte(`{"keyFilter":"A, B","keyFilterEnabled":true}`))
	for _, k := range []string{"A", "B", "a"} {
		if !s.Allows(k) {
			t.Errorf("Expected %q to be allowed", k)
		}
	}
	if s.Allows("C") {
		t.Error("Expected C to be filtered out")
	}
	if s.Allows("AB") {
		t.Error("Expected exact token match only")
	}

	s = Parse([]byte(`{"keyFilter":"A","keyFilterEnabled":false}`))
	if !s.Allows("C") {
		t.Error("Disabled filter should allow everything")
	}

	s = Parse([]byte(`{"keyFilter":"  , ,","keyFilterEnabled":true}`))
	if !s.Allows("C") {
		t.Error("Blank filter should allow everything")
	}

	lit := Settings{KeyFilter: "Space", KeyFilterEnabled: true}
	if !lit.Allows("space") || lit.Allows("Tab") {
		t.Error("Literal settings should parse the filter lazily")
	}
}

func TestParseFilter(t *testing.T) {
	got := ParseFilter(" q,w  e,,1 ")
	want := []string{"Q", "W", "E", "1"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestStoreUpdate(t *testing.T) {
	st := NewStore()
	if !st.Current().ComboMode {
		t.Fatal("Expected default store to have comboMode on")
	}

	snap := st.Update([]byte(`{"comboMode":false}`))
	if snap.Settings.ComboMode || st.Current().ComboMode {
		t.Error("Expected comboMode off after update")
	}
	if string(st.Snapshot().Raw) != `{"comboMode":false}` {
		t.Errorf("Unexpected raw snapshot %s", st.Snapshot().Raw)
	}

	snap = st.Update([]byte(`{broken`))
	if snap.Raw != nil {
		t.Error("Invalid JSON should not be kept as raw")
	}
	if !st.Current().ComboMode {
		t.Error("Invalid JSON should reset to defaults")
	}

	snap = st.Update([]byte(`[1]`))
	if snap.Raw != nil {
		t.Error("A JSON array should not be kept as raw")
	}
}

func TestMerge(t *testing.T) {
	out, ok := Merge([]byte(`{"fontSize":40,"comboMode":true}`), []byte(`{"comboMode":false}`))
	if !ok {
		t.Fatal("Expected object patch to merge")
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("Merge produced invalid JSON: %v", err)
	}
	if m["fontSize"] != float64(40) {
		t.Errorf("Expected fontSize kept from base, got %v", m["fontSize"])
	}
	if m["comboMode"] != false {
		t.Errorf("Expected comboMode from patch, got %v", m["comboMode"])
	}

	out, ok = Merge(nil, []byte(`{"fontSize":12}`))
	if !ok {
		t.Fatal("Expected merge over defaults")
	}
	m = nil
	json.Unmarshal(out, &m)
	if m["fontSize"] != float64(12) || m["preset"] != "minimal" {
		t.Errorf("Expected defaults with patched fontSize, got %v", m)
	}

	for _, patch := range []string{`[1]`, `"x"`, `3`, `null`, `{broken`, ``} {
		if _, ok := Merge(nil, []byte(patch)); ok {
			t.Errorf("Expected %q to be rejected", patch)
		}
	}
}

func TestMigrate(t *testing.T) {
	out := Migrate([]byte(`{"keyFilter":"","keyFilterEnabled":false,"showMouseClickCombos":false,"showMouseClicks":true,"fontSize":40}`))

	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("Migrate produced invalid JSON: %v", err)
	}
	if m["keyFilter"] != DefaultFilter || m["keyFilterEnabled"] != true {
		t.Errorf("Expected empty filter to be restored, got %v / %v", m["keyFilter"], m["keyFilterEnabled"])
	}
	if m["showMouseClickCombos"] != true || m["showMouseClicks"] != false {
		t.Error("Expected mouse flags to be migrated")
	}
	if m["fontSize"] != float64(40) {
		t.Errorf("Expected saved fontSize to survive, got %v", m["fontSize"])
	}
	if m["layout"] != "horizontal" {
		t.Error("Expected missing fields to come from defaults")
	}

	if s := Parse(Migrate([]byte("garbage"))); s.KeyFilter != DefaultFilter {
		t.Errorf("Expected defaults for garbage input, got filter %q", s.KeyFilter)
	}
}
