// Package input translates raw browser input into arbiter events.
//
// Keyboard turns key up/down events (by key name or legacy key code) into
// KeyDown/KeyUp/Halt. Pointer turns on-screen control activations into
// PointerToggle, and also parses the kill switch and speed inputs.
package input

import (
	"strconv"
	"strings"

	"github.com/teslashibe/go-ev3panel/pkg/arbiter"
)

// Key is a raw key event as reported by the browser.
// Name is KeyboardEvent.key ("ArrowUp", " "); Code is the legacy keyCode (38, 32).
type Key struct {
	Name string `json:"key"`
	Code int    `json:"code"`
}

// Bindings maps each input code to the key names or numeric codes that trigger it.
type Bindings struct {
	Keys map[arbiter.InputCode][]string
	Halt []string
}

// DefaultBindings are the arrow keys and the space bar.
func DefaultBindings() Bindings {
	return Bindings{
		Keys: map[arbiter.InputCode][]string{
			arbiter.KeyForward:  {"ArrowUp", "Up", "38"},
			arbiter.KeyBackward: {"ArrowDown", "Down", "40"},
			arbiter.KeyLeft:     {"ArrowLeft", "Left", "37"},
			arbiter.KeyRight:    {"ArrowRight", "Right", "39"},
		},
		Halt: []string{" ", "Spacebar", "Space", "32"},
	}
}

// Keyboard is the keyboard input adapter.
type Keyboard struct {
	names map[string]arbiter.InputCode
	codes map[int]arbiter.InputCode

	haltNames map[string]bool
	haltCodes map[int]bool
}

// NewKeyboard builds an adapter from b. Entries that parse as integers match
// the legacy key code; everything else matches the key name exactly.
func NewKeyboard(b Bindings) *Keyboard {
	k := &Keyboard{
		names:     make(map[string]arbiter.InputCode),
		codes:     make(map[int]arbiter.InputCode),
		haltNames: make(map[string]bool),
		haltCodes: make(map[int]bool),
	}
	for code, keys := range b.Keys {
		if !code.Valid() {
			continue
		}
		for _, key := range keys {
			if n, ok := keyCode(key); ok {
				k.codes[n] = code
			} else {
				k.names[key] = code
			}
		}
	}
	for _, key := range b.Halt {
		if n, ok := keyCode(key); ok {
			k.haltCodes[n] = true
		} else {
			k.haltNames[key] = true
		}
	}
	return k
}

// Down translates a key press. ok is false for keys with no binding.
func (k *Keyboard) Down(key Key) (ev arbiter.Event, ok bool) {
	if k.isHalt(key) {
		return arbiter.Halt(), true
	}
	code, ok := k.lookup(key)
	if !ok {
		return arbiter.Event{}, false
	}
	return arbiter.KeyDown(code), true
}

// Up translates a key release. Releasing the halt key does nothing.
func (k *Keyboard) Up(key Key) (ev arbiter.Event, ok bool) {
	if k.isHalt(key) {
		return arbiter.Event{}, false
	}
	code, ok := k.lookup(key)
	if !ok {
		return arbiter.Event{}, false
	}
	return arbiter.KeyUp(code), true
}

// Translate dispatches on the browser event type ("keydown" / "keyup").
func (k *Keyboard) Translate(eventType string, key Key) (arbiter.Event, bool) {
	switch strings.ToLower(eventType) {
	case "keydown", "down", "press":
		return k.Down(key)
	case "keyup", "up", "release":
		return k.Up(key)
	}
	return arbiter.Event{}, false
}

func (k *Keyboard) lookup(key Key) (arbiter.InputCode, bool) {
	if key.Name != "" {
		if code, ok := k.names[key.Name]; ok {
			return code, true
		}
	}
	if key.Code != 0 {
		if code, ok := k.codes[key.Code]; ok {
			return code, true
		}
	}
	return 0, false
}

func (k *Keyboard) isHalt(key Key) bool {
	if key.Name != "" && k.haltNames[key.Name] {
		return true
	}
	return key.Code != 0 && k.haltCodes[key.Code]
}

func keyCode(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
