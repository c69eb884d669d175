package input

import (
	"strconv"
	"strings"

	"github.com/teslashibe/go-ev3panel/pkg/arbiter"
)

// DefaultControls are the element ids of the on-screen direction buttons.
var DefaultControls = map[string]arbiter.Direction{
	"up-arrow":    arbiter.Forward,
	"down-arrow":  arbiter.Backward,
	"left-arrow":  arbiter.Left,
	"right-arrow": arbiter.Right,
}

// Pointer is the pointer (click/tap) input adapter.
type Pointer struct {
	controls map[string]arbiter.Direction
	ids      map[arbiter.Direction]string
}

// NewPointer builds an adapter for the given control ids. A nil map uses DefaultControls.
func NewPointer(controls map[string]arbiter.Direction) *Pointer {
	if controls == nil {
		controls = DefaultControls
	}
	p := &Pointer{
		controls: make(map[string]arbiter.Direction, len(controls)),
		ids:      make(map[arbiter.Direction]string, len(controls)),
	}
	for id, d := range controls {
		if !d.Valid() {
			continue
		}
		p.controls[id] = d
		p.ids[d] = id
	}
	return p
}

// Activate translates a click on a control. Direction names ("left") are
// accepted as well as control ids.
func (p *Pointer) Activate(control string) (arbiter.Event, bool) {
	if d, ok := p.controls[control]; ok {
		return arbiter.PointerToggle(d), true
	}
	if d, ok := arbiter.ParseDirection(strings.ToLower(control)); ok {
		return arbiter.PointerToggle(d), true
	}
	return arbiter.Event{}, false
}

// ControlID returns the element id bound to d, if any.
func (p *Pointer) ControlID(d arbiter.Direction) string {
	return p.ids[d]
}

// KillSwitch translates a click on the kill switch button.
func (p *Pointer) KillSwitch() arbiter.Event {
	return arbiter.KillSwitch()
}

// Speed parses the value of the percentage input. Out-of-range values are
// clamped by the arbiter; non-numeric input is rejected.
func (p *Pointer) Speed(raw string) (arbiter.Event, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return arbiter.Event{}, false
	}
	return arbiter.SpeedChanged(n), true
}
