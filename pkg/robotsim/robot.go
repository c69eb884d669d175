// Package robotsim is an in-memory stand-in for the EV3 robot's HTTP API.
//
// Robot holds the simulated brick (four motor ports, the movement side
// binding, sound and image catalogs) and implements robot.Controller so it
// can be used in-process. Server exposes the same REST surface as the real
// robot plus a /ws/motors telemetry stream.
package robotsim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-ev3panel/pkg/protocol"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
)

// Ports are the motor outputs of the brick.
var Ports = [...]string{"outA", "outB", "outC", "outD"}

// MovementNone is reported when the movement motors are stopped.
const MovementNone = "none"

// motor is one simulated output port.
type motor struct {
	Type robot.MotorType
	Duty int
}

// Display is the image currently on the brick's screen.
type Display struct {
	ImageID int
	Until   time.Time // zero means until replaced
}

// Robot is a simulated EV3 brick. It is safe for concurrent use.
type Robot struct {
	mu       sync.Mutex
	motors   map[string]*motor
	movement robot.MovementConfig
	moving   string
	sounds   []string
	images   []string
	played   []int
	spoken   []string
	display  *Display
	now      func() time.Time

	subMu  sync.RWMutex
	subs   map[int]func(protocol.MotorsData)
	nextID int
}

// Option configures a Robot.
type Option func(*Robot)

// WithMotor declares a motor on a port.
func WithMotor(address string, t robot.MotorType) Option {
	return func(r *Robot) {
		r.motors[address] = &motor{Type: t}
	}
}

// WithoutMotors starts with no motors declared.
func WithoutMotors() Option {
	return func(r *Robot) {
		r.motors = make(map[string]*motor)
	}
}

// WithMovement sets the initial movement side binding.
func WithMovement(cfg robot.MovementConfig) Option {
	return func(r *Robot) {
		r.movement = cfg
	}
}

// WithClock replaces the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Robot) {
		r.now = now
	}
}

// DefaultMovement drives with large motors on outB (left) and outC (right).
func DefaultMovement() robot.MovementConfig {
	return robot.MovementConfig{
		Left:  robot.SideConfig{Address: "outB", Type: robot.MotorLarge},
		Right: robot.SideConfig{Address: "outC", Type: robot.MotorLarge},
	}
}

// New creates a brick with a large motor on every port and DefaultMovement.
func New(opts ...Option) *Robot {
	r := &Robot{
		motors:   make(map[string]*motor),
		movement: DefaultMovement(),
		moving:   MovementNone,
		now:      time.Now,
		subs:     make(map[int]func(protocol.MotorsData)),
	}
	for _, p := range Ports {
		r.motors[p] = &motor{Type: robot.MotorLarge}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func badRequest(path, format string, args ...any) *robot.APIError {
	return &robot.APIError{StatusCode: 400, Message: fmt.Sprintf(format, args...), Path: path}
}

// SideSpeeds maps a movement to (left, right) duty cycles. Forward negates
// both sides, left negates the right side and right negates the left side.
func SideSpeeds(direction string, speed int) (left, right int) {
	left, right = speed, speed
	switch direction {
	case robot.DirectionForward:
		left, right = -speed, -speed
	case robot.DirectionLeft:
		right = -speed
	case robot.DirectionRight:
		left = -speed
	}
	return left, right
}

// Move drives the movement motors. Speed 0 stops them.
func (r *Robot) Move(_ context.Context, direction string, speed int) error {
	path := "/api/movement/" + direction
	if !robot.ValidDirection(direction) {
		return badRequest(path, "direction must be one of forward, backward, left, right")
	}
	if speed < 0 || speed > 100 {
		return badRequest(path, "speed_percentage must be between 0 and 100")
	}

	left, right := SideSpeeds(direction, speed)

	r.mu.Lock()
	r.setSide(r.movement.Left, left)
	r.setSide(r.movement.Right, right)
	if speed == 0 {
		r.moving = MovementNone
	} else {
		r.moving = direction
	}
	r.publishLocked()
	r.mu.Unlock()

	return nil
}

// setSide applies duty to the motor bound to a side. Unbound sides are skipped.
func (r *Robot) setSide(side robot.SideConfig, duty int) {
	if side.Address == "" {
		return
	}
	m, ok := r.motors[side.Address]
	if !ok {
		m = &motor{Type: side.Type}
		r.motors[side.Address] = m
	}
	m.Duty = duty
}

// Movement returns the current movement ("none" when stopped).
func (r *Robot) Movement() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moving
}

// KillSwitch stops every motor.
func (r *Robot) KillSwitch(context.Context) error {
	r.mu.Lock()
	for _, m := range r.motors {
		m.Duty = 0
	}
	r.moving = MovementNone
	r.publishLocked()
	r.mu.Unlock()

	return nil
}

// SetMotorSpeed runs each motor in addresses ("A", "BD"). Messages report the
// outcome per motor; undefined motors produce an error while the others run.
func (r *Robot) SetMotorSpeed(_ context.Context, addresses string, duty int) ([]string, error) {
	path := "/api/motor/" + addresses
	if addresses == "" || strings.Trim(addresses, "ABCD") != "" {
		return nil, badRequest(path, "address must only contain A, B, C or D")
	}
	if duty < -100 || duty > 100 {
		return nil, badRequest(path, "duty_cycle must be between -100 and 100")
	}

	var (
		msgs   []string
		failed []string
	)
	r.mu.Lock()
	for _, a := range addresses {
		addr := "out" + string(a)
		m, ok := r.motors[addr]
		if !ok {
			msg := fmt.Sprintf("Motor (address %s) is not defined yet", addr)
			msgs = append(msgs, msg)
			failed = append(failed, msg)
			continue
		}
		m.Duty = duty
		verb := "started"
		if duty == 0 {
			verb = "stopped"
		}
		msgs = append(msgs, fmt.Sprintf("Motor (address %s) successfully %s", addr, verb))
	}
	r.publishLocked()
	r.mu.Unlock()

	if len(failed) > 0 {
		return msgs, &robot.APIError{StatusCode: 400, Message: strings.Join(failed, "; "), Path: path}
	}
	return msgs, nil
}

// MotorStatus reports a port's state and duty cycle.
func (r *Robot) MotorStatus(_ context.Context, address string) (robot.MotorStatus, error) {
	if !validPort(address) {
		return robot.MotorStatus{}, badRequest("/api/motor/"+address, "address must be one of outA, outB, outC, outD")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.motors[address]
	if !ok {
		return robot.MotorStatus{}, badRequest("/api/motor/"+address, "Motor not connected")
	}
	return robot.MotorStatus{State: motorState(m.Duty), DutyCycle: m.Duty}, nil
}

func motorState(duty int) []string {
	if duty == 0 {
		return []string{}
	}
	return []string{"running"}
}

// SetMovementConfig rebinds the movement sides. Empty addresses unbind a side.
func (r *Robot) SetMovementConfig(_ context.Context, cfg robot.MovementConfig) error {
	for _, side := range []robot.SideConfig{cfg.Left, cfg.Right} {
		if side.Type != robot.MotorLarge && side.Type != robot.MotorMedium {
			return badRequest("/api/movement/config", "type must be large or medium")
		}
		if side.Address != "" && !validPort(side.Address) {
			return badRequest("/api/movement/config", "address must be one of outA, outB, outC, outD")
		}
	}
	r.mu.Lock()
	r.movement = cfg
	r.mu.Unlock()
	return nil
}

// MovementConfig returns the current side binding.
func (r *Robot) MovementConfig() robot.MovementConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.movement
}

// AddSound stores a sound and returns its id. The payload is discarded.
func (r *Robot) AddSound(_ context.Context, _ string, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, badRequest("/api/sound", "No file selected")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, "sounds/"+uuid.NewString()+".wav")
	return len(r.sounds) - 1, nil
}

// PlaySound plays a stored sound.
func (r *Robot) PlaySound(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.sounds) {
		return badRequest(fmt.Sprintf("/api/sound/%d", id), "Sound ID out of range")
	}
	r.played = append(r.played, id)
	return nil
}

// Speak records a text-to-speech request.
func (r *Robot) Speak(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
	return nil
}

// AddImage stores an image and returns its id. The payload is discarded.
func (r *Robot) AddImage(_ context.Context, _ string, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, badRequest("/api/image", "No file selected")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, "images/"+uuid.NewString()+".bmp")
	return len(r.images) - 1, nil
}

// DisplayImage shows a stored image for seconds (0 = until replaced).
func (r *Robot) DisplayImage(_ context.Context, id int, seconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.images) {
		return badRequest(fmt.Sprintf("/api/image/%d", id), "Image ID out of range")
	}
	d := &Display{ImageID: id}
	if seconds > 0 {
		d.Until = r.now().Add(time.Duration(seconds) * time.Second)
	}
	r.display = d
	return nil
}

// Displayed returns the image on screen, if it has not expired.
func (r *Robot) Displayed() (Display, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.display == nil {
		return Display{}, false
	}
	if !r.display.Until.IsZero() && r.now().After(r.display.Until) {
		r.display = nil
		return Display{}, false
	}
	return *r.display, true
}

// Played returns the ids of played sounds in order.
func (r *Robot) Played() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.played...)
}

// Spoken returns the texts passed to Speak in order.
func (r *Robot) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoken...)
}

// Telemetry returns the state of every declared motor, in port order.
func (r *Robot) Telemetry() protocol.MotorsData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.telemetryLocked()
}

func (r *Robot) telemetryLocked() protocol.MotorsData {
	d := protocol.MotorsData{Movement: r.moving, Motors: []protocol.MotorReading{}}
	for _, p := range Ports {
		m, ok := r.motors[p]
		if !ok {
			continue
		}
		d.Motors = append(d.Motors, protocol.MotorReading{
			Address:   p,
			DutyCycle: m.Duty,
			State:     motorState(m.Duty),
		})
	}
	return d
}

// Subscribe registers fn for telemetry after every motor change. fn runs
// with the robot locked: it must not block or call back into r. The
// returned function unsubscribes.
func (r *Robot) Subscribe(fn func(protocol.MotorsData)) (cancel func()) {
	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

// publishLocked hands the current telemetry to subscribers. r.mu must be
// held, so frames go out in the order the changes were made.
func (r *Robot) publishLocked() {
	t := r.telemetryLocked()
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for _, fn := range r.subs {
		fn(t)
	}
}

func validPort(address string) bool {
	for _, p := range Ports {
		if p == address {
			return true
		}
	}
	return false
}

var _ robot.Controller = (*Robot)(nil)
