package arbiter

// Speed limits, in percent of motor duty cycle.
const (
	MinSpeed     = 0
	MaxSpeed     = 100
	DefaultSpeed = 100
)

// State is the complete control state of one panel session.
//
// Keyboard and pointer provenance are kept apart: Keys is only touched by key
// events, Pointer records which on-screen control is toggled on. Both feed the
// shared LastDirection/Stopped pair.
type State struct {
	LastDirection Direction // NoDirection when stopped
	Stopped       bool
	Speed         int
	Keys          KeyState
	Pointer       Direction // active pointer control, NoDirection if none
}

// NewState returns the idle state with the given speed.
func NewState(speed int) State {
	return State{Stopped: true, Speed: clampSpeed(speed)}
}

// Active reports whether the control for d should be shown as active:
// its key is held or its pointer toggle is on.
func (s State) Active(d Direction) bool {
	if !d.Valid() {
		return false
	}
	if s.Pointer == d {
		return true
	}
	for _, c := range InputCodes {
		if s.Keys[c] && c.Direction() == d {
			return true
		}
	}
	return false
}

// Step applies one event to s and returns the next state and what it produced.
// It is total: unknown events and codes leave the state untouched.
func Step(s State, ev Event) (State, Outcome) {
	switch ev.Kind {
	case EventKeyDown:
		return keyDown(s, ev.Code)
	case EventKeyUp:
		return keyUp(s, ev.Code)
	case EventHalt:
		return halt(s)
	case EventPointerToggle:
		return pointerToggle(s, ev.Direction)
	case EventKillSwitch:
		cmd := Kill()
		return s, Outcome{Command: &cmd, Log: MsgKillSwitch}
	case EventSpeedChanged:
		s.Speed = clampSpeed(ev.Speed)
		return s, Outcome{}
	}
	return s, Outcome{}
}

func keyDown(s State, c InputCode) (State, Outcome) {
	if !c.Valid() || s.Keys[c] {
		return s, Outcome{}
	}
	s.Keys[c] = true

	d := c.Direction()
	if d == s.LastDirection {
		return s, Outcome{}
	}
	s.Pointer = NoDirection
	return s.move(d)
}

func keyUp(s State, c InputCode) (State, Outcome) {
	if !c.Valid() || !s.Keys[c] {
		return s, Outcome{}
	}
	s.Keys[c] = false

	if !s.Keys.Any() {
		if s.Stopped {
			return s, Outcome{}
		}
		return s.stop()
	}

	// Several keys were down: fall back to the first other held key whose
	// direction is not already being driven.
	for _, held := range InputCodes {
		if !s.Keys[held] {
			continue
		}
		if d := held.Direction(); d != s.LastDirection {
			s.Pointer = NoDirection
			return s.move(d)
		}
	}
	return s, Outcome{}
}

func halt(s State) (State, Outcome) {
	if s.Stopped {
		return s, Outcome{}
	}
	return s.stop()
}

func pointerToggle(s State, d Direction) (State, Outcome) {
	if !d.Valid() {
		return s, Outcome{}
	}
	// The control of the direction being driven is shown active, so
	// activating it releases the movement whichever modality started it.
	if !s.Stopped && s.LastDirection == d {
		return s.stop()
	}
	s.Pointer = d
	return s.move(d)
}

func (s State) move(d Direction) (State, Outcome) {
	s.LastDirection = d
	s.Stopped = false
	cmd := Move(d, s.Speed)
	return s, Outcome{Command: &cmd, Log: MoveMessage(d)}
}

// stop also clears the pointer toggle: a stopped robot has no active control.
func (s State) stop() (State, Outcome) {
	s.LastDirection = NoDirection
	s.Stopped = true
	s.Pointer = NoDirection
	cmd := Stop()
	return s, Outcome{Command: &cmd, Log: MsgStop}
}

func clampSpeed(v int) int {
	if v < MinSpeed {
		return MinSpeed
	}
	if v > MaxSpeed {
		return MaxSpeed
	}
	return v
}
