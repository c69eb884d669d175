// Package arbiter decides which single movement command the robot receives next.
//
// Keyboard and pointer input arrive as overlapping press/release events. The
// arbiter folds them into one State and emits a deduplicated, ordered stream of
// commands (move, stop, kill switch) plus a human-readable activity message.
// Step is a pure transition; Arbiter wraps it with dispatch and logging.
package arbiter

import "fmt"

// Direction is a robot movement heading. The zero value means "stopped".
type Direction int

const (
	NoDirection Direction = iota
	Forward
	Backward
	Left
	Right
)

// Directions lists every movement direction.
var Directions = [...]Direction{Forward, Backward, Left, Right}

var directionNames = [...]string{
	NoDirection: "",
	Forward:     "forward",
	Backward:    "backward",
	Left:        "left",
	Right:       "right",
}

// String returns the wire name used by the robot API ("forward", ...).
func (d Direction) String() string {
	if d < NoDirection || d > Right {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// Valid reports whether d is one of the four movement directions.
func (d Direction) Valid() bool {
	return d >= Forward && d <= Right
}

// ParseDirection converts a wire name into a Direction.
func ParseDirection(s string) (Direction, bool) {
	for _, d := range Directions {
		if directionNames[d] == s {
			return d, true
		}
	}
	return NoDirection, false
}

// InputCode identifies one of the four logical keyboard controls.
// Declaration order is the tie-break order used when re-resolving held keys.
type InputCode int

const (
	KeyForward InputCode = iota
	KeyBackward
	KeyLeft
	KeyRight

	numInputCodes
)

// InputCodes lists the codes in tie-break order.
var InputCodes = [numInputCodes]InputCode{KeyForward, KeyBackward, KeyLeft, KeyRight}

var codeDirections = [numInputCodes]Direction{
	KeyForward:  Forward,
	KeyBackward: Backward,
	KeyLeft:     Left,
	KeyRight:    Right,
}

var codeNames = [numInputCodes]string{
	KeyForward:  "up",
	KeyBackward: "down",
	KeyLeft:     "left",
	KeyRight:    "right",
}

// Valid reports whether c is a known input code.
func (c InputCode) Valid() bool {
	return c >= 0 && c < numInputCodes
}

// Direction returns the movement direction bound to c.
func (c InputCode) Direction() Direction {
	if !c.Valid() {
		return NoDirection
	}
	return codeDirections[c]
}

func (c InputCode) String() string {
	if !c.Valid() {
		return fmt.Sprintf("code(%d)", int(c))
	}
	return codeNames[c]
}

// ParseInputCode converts a control name ("up", "down", "left", "right") to an InputCode.
func ParseInputCode(s string) (InputCode, bool) {
	for _, c := range InputCodes {
		if codeNames[c] == s {
			return c, true
		}
	}
	return 0, false
}

// KeyState holds the "currently held" flag of every InputCode.
type KeyState [numInputCodes]bool

// Any reports whether at least one code is held.
func (k KeyState) Any() bool {
	for _, held := range k {
		if held {
			return true
		}
	}
	return false
}

// Held returns the held codes in tie-break order.
func (k KeyState) Held() []InputCode {
	var held []InputCode
	for _, c := range InputCodes {
		if k[c] {
			held = append(held, c)
		}
	}
	return held
}

// CommandKind distinguishes the commands the arbiter can issue.
type CommandKind int

const (
	CommandMove CommandKind = iota + 1
	CommandStop
	CommandKillSwitch
)

// Command is a single instruction for the dispatcher.
type Command struct {
	Kind      CommandKind
	Direction Direction // CommandMove only
	Speed     int       // CommandMove only, 0-100
}

// Move returns a movement command.
func Move(d Direction, speed int) Command {
	return Command{Kind: CommandMove, Direction: d, Speed: speed}
}

// Stop returns a stop-movement command.
func Stop() Command {
	return Command{Kind: CommandStop}
}

// Kill returns a kill-switch command.
func Kill() Command {
	return Command{Kind: CommandKillSwitch}
}

func (c Command) String() string {
	switch c.Kind {
	case CommandMove:
		return fmt.Sprintf("move %s %d", c.Direction, c.Speed)
	case CommandStop:
		return "stop"
	case CommandKillSwitch:
		return "killswitch"
	default:
		return fmt.Sprintf("command(%d)", int(c.Kind))
	}
}

// EventKind is the closed set of inputs the arbiter understands.
type EventKind int

const (
	EventKeyDown EventKind = iota + 1
	EventKeyUp
	EventHalt
	EventPointerToggle
	EventKillSwitch
	EventSpeedChanged
)

// Event is the common shape produced by the input adapters.
type Event struct {
	Kind      EventKind
	Code      InputCode // key events
	Direction Direction // pointer toggles
	Speed     int       // speed changes
}

// KeyDown is a key press for c.
func KeyDown(c InputCode) Event { return Event{Kind: EventKeyDown, Code: c} }

// KeyUp is a key release for c.
func KeyUp(c InputCode) Event { return Event{Kind: EventKeyUp, Code: c} }

// Halt stops movement without touching held keys (space bar).
func Halt() Event { return Event{Kind: EventHalt} }

// PointerToggle is an activation of the on-screen control for d.
func PointerToggle(d Direction) Event { return Event{Kind: EventPointerToggle, Direction: d} }

// KillSwitch zeroes all motors on the robot.
func KillSwitch() Event { return Event{Kind: EventKillSwitch} }

// SpeedChanged sets the speed used by subsequent movement commands.
func SpeedChanged(speed int) Event { return Event{Kind: EventSpeedChanged, Speed: speed} }

func (e Event) String() string {
	switch e.Kind {
	case EventKeyDown:
		return "keydown " + e.Code.String()
	case EventKeyUp:
		return "keyup " + e.Code.String()
	case EventHalt:
		return "halt"
	case EventPointerToggle:
		return "pointer " + e.Direction.String()
	case EventKillSwitch:
		return "killswitch"
	case EventSpeedChanged:
		return fmt.Sprintf("speed %d", e.Speed)
	default:
		return fmt.Sprintf("event(%d)", int(e.Kind))
	}
}

// Activity log messages.
const (
	MsgStop       = "Stop movement"
	MsgKillSwitch = "Kill switch initiated."
)

// MoveMessage is the activity log line for a movement command.
func MoveMessage(d Direction) string {
	return "Move robot (" + d.String() + ")"
}

// Outcome is what a single transition produced. Both fields may be empty.
type Outcome struct {
	Command *Command
	Log     string
}

// Emitted reports whether the transition issued a command.
func (o Outcome) Emitted() bool {
	return o.Command != nil
}
