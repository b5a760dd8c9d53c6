package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// DefaultCombo is used when no HOTKEY is configured.
const DefaultCombo = "Ctrl+Shift+Q"

var ErrInvalidCombo = errors.New("invalid hotkey combination")

// Windows virtual key codes. Modifiers map to both left and right variants.
var namedKeys = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// Combo is a parsed key combination.
type Combo struct {
	Text string
	keys []comboKey
}

type comboKey struct {
	name     string
	rawcodes []uint16
}

// Parse validates a combination such as "Ctrl+Shift+Q".
func Parse(text string) (Combo, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultCombo
	}
	names := parseHotkey(text)
	c := Combo{Text: text}
	for _, name := range names {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return Combo{}, fmt.Errorf("%w: unknown key %q in %q", ErrInvalidCombo, name, text)
		}
		c.keys = append(c.keys, comboKey{name: name, rawcodes: codes})
	}
	if len(c.keys) == 0 {
		return Combo{}, fmt.Errorf("%w: %q", ErrInvalidCombo, text)
	}
	return c, nil
}

// matcher tracks which keys of a combo are currently held.
type matcher struct {
	mu      sync.Mutex
	combo   Combo
	pressed []bool
}

func newMatcher(c Combo) *matcher {
	return &matcher{combo: c, pressed: make([]bool, len(c.keys))}
}

// keyDown records a press and reports whether the whole combo is now held.
// A completed combo resets the state so holding the keys fires once.
func (m *matcher) keyDown(raw uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, k := range m.combo.keys {
		if containsCode(k.rawcodes, raw) {
			m.pressed[i] = true
		}
	}
	for _, p := range m.pressed {
		if !p {
			return false
		}
	}
	for i := range m.pressed {
		m.pressed[i] = false
	}
	return true
}

func (m *matcher) keyUp(raw uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, k := range m.combo.keys {
		if containsCode(k.rawcodes, raw) {
			m.pressed[i] = false
		}
	}
}

func containsCode(codes []uint16, raw uint16) bool {
	for _, c := range codes {
		if c == raw {
			return true
		}
	}
	return false
}

// Listen installs the global keyboard hook and calls onActivate each time the
// combination is pressed. It blocks until ctx is done.
func Listen(ctx context.Context, combo string, onActivate func()) error {
	c, err := Parse(combo)
	if err != nil {
		return err
	}
	m := newMatcher(c)
	log.Printf("Hotkey listener configured for: %s", c.Text)

	events := gohook.Start()
	if events == nil {
		return errors.New("gohook.Start returned nil channel")
	}
	defer gohook.End()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				log.Printf("Hotkey event channel closed")
				return nil
			}
			switch ev.Kind {
			case gohook.KeyDown:
				if m.keyDown(ev.Rawcode) {
					log.Printf("Hotkey activated: %s", c.Text)
					if onActivate != nil {
						onActivate()
					}
				}
			case gohook.KeyUp:
				m.keyUp(ev.Rawcode)
			}
		}
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names.
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	switch keyName {
	case "win", "super":
		keyName = "cmd"
	case "control":
		keyName = "ctrl"
	}
	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}
	if len(keyName) == 1 {
		switch ch := keyName[0]; {
		case ch >= 'a' && ch <= 'z':
			return []uint16{uint16(ch-'a') + 65}
		case ch >= '0' && ch <= '9':
			return []uint16{uint16(ch-'0') + 48}
		}
	}
	if len(keyName) >= 2 && keyName[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(keyName[1:], "%d", &n); err == nil && n >= 1 && n <= 24 && fmt.Sprint(n) == keyName[1:] {
			return []uint16{uint16(111 + n)} // VK_F1 = 112
		}
	}
	return nil
}
