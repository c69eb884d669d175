package robot

// Movement directions understood by the robot API.
const (
	DirectionForward  = "forward"
	DirectionBackward = "backward"
	DirectionLeft     = "left"
	DirectionRight    = "right"
)

// ValidDirection reports whether d is a direction the robot API accepts.
func ValidDirection(d string) bool {
	switch d {
	case DirectionForward, DirectionBackward, DirectionLeft, DirectionRight:
		return true
	}
	return false
}

// MotorType is the kind of EV3 motor plugged into a port.
type MotorType string

const (
	MotorLarge  MotorType = "large"
	MotorMedium MotorType = "medium"
)

// SideConfig binds one side of the robot to a motor port.
type SideConfig struct {
	Address string    `json:"address" yaml:"address"` // outA..outD
	Type    MotorType `json:"type" yaml:"type"`
}

// MovementConfig binds both sides. Empty addresses are sent as-is; the
// robot skips sides without an address.
type MovementConfig struct {
	Left  SideConfig `json:"left" yaml:"left"`
	Right SideConfig `json:"right" yaml:"right"`
}

// MotorStatus is the reported state of one motor.
type MotorStatus struct {
	State     []string `json:"state"` // running, ramping, holding, overloaded, stalled
	DutyCycle int      `json:"duty_cycle"`
}

// Response is the generic JSON body returned by the robot API.
type Response struct {
	Message  string   `json:"message,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Code     int      `json:"code,omitempty"`
	ID       *int     `json:"id,omitempty"`
	Movement string   `json:"movement,omitempty"`
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
