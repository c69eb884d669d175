package web

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-ev3panel/pkg/arbiter"
	"github.com/teslashibe/go-ev3panel/pkg/input"
	"github.com/teslashibe/go-ev3panel/pkg/protocol"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
)

// InputResult is the response to a REST input event.
type InputResult struct {
	Handled bool               `json:"handled"`
	Command string             `json:"command,omitempty"`
	Log     string             `json:"log,omitempty"`
	State   protocol.StateData `json:"state"`
}

// apply feeds ev to the arbiter and describes the result.
func (s *Server) apply(ev arbiter.Event) InputResult {
	out := s.arbiter.Handle(ev)
	res := InputResult{
		Handled: true,
		Log:     out.Log,
		State:   s.stateData(s.arbiter.State()),
	}
	if out.Command != nil {
		res.Command = out.Command.String()
	}
	return res
}

func (s *Server) ignored() InputResult {
	return InputResult{State: s.stateData(s.arbiter.State())}
}

// keyEvent translates a raw keyboard event. Unmapped keys report ok=false.
func (s *Server) keyEvent(d protocol.KeyData) (arbiter.Event, bool) {
	return s.keyboard.Translate(d.Event, input.Key{Name: d.Key, Code: d.Code})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.stateData(s.arbiter.State()))
}

// handleLog returns the history, or only the entries after ?after=<id>.
func (s *Server) handleLog(c *fiber.Ctx) error {
	if after := c.Query("after"); after != "" {
		return c.JSON(s.journal.After(after))
	}
	return c.JSON(s.journal.Entries())
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	if s.stats == nil {
		return fiber.NewError(fiber.StatusNotFound, "dispatch stats not available")
	}
	return c.JSON(s.stats())
}

func (s *Server) handleKey(c *fiber.Ctx) error {
	var req protocol.KeyData
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid key event: "+err.Error())
	}
	ev, ok := s.keyEvent(req)
	if !ok {
		return c.JSON(s.ignored())
	}
	return c.JSON(s.apply(ev))
}

func (s *Server) handlePointer(c *fiber.Ctx) error {
	ev, ok := s.pointer.Activate(c.Params("control"))
	if !ok {
		return c.JSON(s.ignored())
	}
	return c.JSON(s.apply(ev))
}

func (s *Server) handleHalt(c *fiber.Ctx) error {
	return c.JSON(s.apply(arbiter.Halt()))
}

func (s *Server) handleKill(c *fiber.Ctx) error {
	return c.JSON(s.apply(s.pointer.KillSwitch()))
}

func (s *Server) handleSpeed(c *fiber.Ctx) error {
	var req protocol.SpeedData
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid speed: "+err.Error())
	}
	ev, ok := s.pointer.Speed(req.Value)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "speed must be a number")
	}
	return c.JSON(s.apply(ev))
}

// Passthrough endpoints.

func (s *Server) requireRobot(c *fiber.Ctx) error {
	if s.robot == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "robot client not configured")
	}
	return c.Next()
}

func (s *Server) robotContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.requestTimeout)
}

// robotError maps a robot client error onto an HTTP error.
func robotError(err error) error {
	var apiErr *robot.APIError
	switch {
	case errors.As(err, &apiErr):
		return fiber.NewError(apiErr.StatusCode, apiErr.Message)
	case errors.Is(err, robot.ErrInvalidAddress),
		errors.Is(err, robot.ErrInvalidDirection),
		errors.Is(err, robot.ErrEmptyPayload):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}

func intParam(c *fiber.Ctx, name string) (int, error) {
	v, err := strconv.Atoi(c.Params(name))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" must be an integer")
	}
	return v, nil
}

func (s *Server) handleMovementConfig(c *fiber.Ctx) error {
	var cfg robot.MovementConfig
	if err := c.BodyParser(&cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid movement config: "+err.Error())
	}
	ctx, cancel := s.robotContext(c)
	defer cancel()
	if err := s.robot.SetMovementConfig(ctx, cfg); err != nil {
		return robotError(err)
	}
	return c.JSON(fiber.Map{"message": "Movement motors successfully defined"})
}

func (s *Server) handleMotorSpeed(c *fiber.Ctx) error {
	duty, err := intParam(c, "duty")
	if err != nil {
		return err
	}
	ctx, cancel := s.robotContext(c)
	defer cancel()
	msgs, err := s.robot.SetMotorSpeed(ctx, c.Params("addresses"), duty)
	if err != nil {
		return robotError(err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

func (s *Server) handleMotorStatus(c *fiber.Ctx) error {
	ctx, cancel := s.robotContext(c)
	defer cancel()
	status, err := s.robot.MotorStatus(ctx, c.Params("address"))
	if err != nil {
		return robotError(err)
	}
	return c.JSON(status)
}

// readUpload returns the multipart "upload" field.
func readUpload(c *fiber.Ctx) (string, []byte, error) {
	fh, err := c.FormFile("upload")
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "missing upload field")
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}

func (s *Server) handleAddSound(c *fiber.Ctx) error {
	name, data, err := readUpload(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.robotContext(c)
	defer cancel()
	id, err := s.robot.AddSound(ctx, name, data)
	if err != nil {
		return robotError(err)
	}
	return c.JSON(fiber.Map{"message": "Sound successfully saved", "id": id})
}

func (s *Server) handlePlaySound(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := s.robotContext(c)
	defer cancel()
	if err := s.robot.PlaySound(ctx, id); err != nil {
		return robotError(err)
	}
	return c.JSON(fiber.Map{"message": "Sound played"})
}

func (s *Server) handleSpeak(c *fiber.Ctx) error {
	text := c.Params("text")
	if text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is empty")
	}
	ctx, cancel := s.robotContext(c)
	defer cancel()
	if err := s.robot.Speak(ctx, text); err != nil {
		return robotError(err)
	}
	return c.JSON(fiber.Map{"message": "Text spoken"})
}

func (s *Server) handleAddImage(c *fiber.Ctx) error {
	name, data, err := readUpload(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.robotContext(c)
	defer cancel()
	id, err := s.robot.AddImage(ctx, name, data)
	if err != nil {
		return robotError(err)
	}
	return c.JSON(fiber.Map{"message": "Image successfully saved", "id": id})
}

func (s *Server) handleDisplayImage(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	seconds, err := intParam(c, "seconds")
	if err != nil {
		return err
	}
	ctx, cancel := s.robotContext(c)
	defer cancel()
	if err := s.robot.DisplayImage(ctx, id, seconds); err != nil {
		return robotError(err)
	}
	return c.JSON(fiber.Map{"message": "Image displayed"})
}
