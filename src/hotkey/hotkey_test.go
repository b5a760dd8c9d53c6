package hotkey

import (
	"errors"
	"reflect"
	"testing"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		// Modifier keys
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"win", []uint16{91, 92}},
		{"cmd", []uint16{91, 92}},
		{"super", []uint16{91, 92}},

		// Letter keys
		{"q", []uint16{81}},
		{"a", []uint16{65}},
		{"z", []uint16{90}},

		// Number keys
		{"0", []uint16{48}},
		{"9", []uint16{57}},

		// Function keys
		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},

		// Special keys
		{"space", []uint16{32}},
		{"enter", []uint16{13}},
		{"esc", []uint16{27}},
		{"pgdn", []uint16{34}},

		// Unknown keys
		{"unknown", nil},
		{"f25", nil},
		{"f01", nil},
		{"?", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			result := keyNameToRawcodes(tt.keyName)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("keyNameToRawcodes(%q) = %v, expected %v", tt.keyName, result, tt.expected)
			}
		})
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Ctrl+Shift+Q", []string{"ctrl", "shift", "q"}},
		{"Ctrl+alt+e", []string{"ctrl", "alt", "e"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Ctrl+Win+E", []string{"ctrl", "cmd", "e"}},
		{"Super+Alt+T", []string{"cmd", "alt", "t"}},
		{" ctrl + shift + q ", []string{"ctrl", "shift", "q"}},
		{"Control++Q", []string{"ctrl", "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseHotkey(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("parseHotkey(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParse(t *testing.T) {
	c, err := Parse("")
	if err != nil {
		t.Fatalf("Parse(\"\") = %v", err)
	}
	if c.Text != DefaultCombo || len(c.keys) != 3 {
		t.Errorf("default combo = %q with %d keys", c.Text, len(c.keys))
	}

	for _, bad := range []string{"Ctrl+Banana", "+", "Ctrl+F99"} {
		if _, err := Parse(bad); !errors.Is(err, ErrInvalidCombo) {
			t.Errorf("Parse(%q) = %v, expected ErrInvalidCombo", bad, err)
		}
	}
}

func TestMatcher(t *testing.T) {
	c, err := Parse("Ctrl+Shift+Q")
	if err != nil {
		t.Fatal(err)
	}
	m := newMatcher(c)

	if m.keyDown(162) || m.keyDown(161) {
		t.Fatal("combo fired before all keys were held")
	}
	if !m.keyDown(81) {
		t.Fatal("combo did not fire with ctrl+shift+q held")
	}
	if m.keyDown(81) {
		t.Error("combo fired again without re-pressing modifiers")
	}

	// Releasing a modifier breaks the chord.
	m.keyDown(163)
	m.keyDown(160)
	m.keyUp(160)
	if m.keyDown(81) {
		t.Error("combo fired after shift was released")
	}
	m.keyDown(160)
	if !m.keyDown(81) {
		t.Error("combo did not fire after shift was pressed again")
	}

	// Unrelated keys are ignored.
	if m.keyDown(65) {
		t.Error("unrelated key fired the combo")
	}
}
