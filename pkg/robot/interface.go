// Package robot is the client for the EV3 robot's HTTP API.
//
// Interfaces are small and focused so consumers depend only on what they use:
// the command dispatcher needs a Mover and a KillSwitcher, the auxiliary
// panels need SoundPlayer and ImageDisplay.
package robot

import "context"

// Mover drives the robot in one of the four directions.
type Mover interface {
	// Move starts a movement; speed 0 stops the movement motors.
	Move(ctx context.Context, direction string, speed int) error
}

// KillSwitcher zeroes every motor on the robot.
type KillSwitcher interface {
	KillSwitch(ctx context.Context) error
}

// MotorDriver controls individual motors.
type MotorDriver interface {
	// SetMotorSpeed runs the motors at addresses ("A", "BC", ...) with a signed duty cycle.
	SetMotorSpeed(ctx context.Context, addresses string, duty int) ([]string, error)
	MotorStatus(ctx context.Context, address string) (MotorStatus, error)
}

// MovementConfigurer binds the logical left/right sides to motor ports.
type MovementConfigurer interface {
	SetMovementConfig(ctx context.Context, cfg MovementConfig) error
}

// SoundPlayer uploads and plays sounds.
type SoundPlayer interface {
	AddSound(ctx context.Context, filename string, data []byte) (int, error)
	PlaySound(ctx context.Context, id int) error
	Speak(ctx context.Context, text string) error
}

// ImageDisplay uploads and shows images on the brick's screen.
type ImageDisplay interface {
	AddImage(ctx context.Context, filename string, data []byte) (int, error)
	// DisplayImage shows an image for seconds (0 = until replaced).
	DisplayImage(ctx context.Context, id int, seconds int) error
}

// Commander is what the movement dispatcher needs.
type Commander interface {
	Mover
	KillSwitcher
}

// Controller is the full robot API.
type Controller interface {
	Commander
	MotorDriver
	MovementConfigurer
	SoundPlayer
	ImageDisplay
}

var (
	_ Controller = (*HTTPController)(nil)
	_ Controller = (*Mock)(nil)
)
