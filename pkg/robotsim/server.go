package robotsim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-ev3panel/pkg/hub"
	"github.com/teslashibe/go-ev3panel/pkg/protocol"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
)

// Server exposes a Robot over the robot's REST API.
type Server struct {
	app    *fiber.App
	robot  *Robot
	hub    *hub.Hub
	logger *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	logger    *slog.Logger
	accessLog io.Writer
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(c *serverConfig) {
		c.logger = l
	}
}

// WithAccessLog enables the fiber request logger writing to w.
func WithAccessLog(w io.Writer) ServerOption {
	return func(c *serverConfig) {
		c.accessLog = w
	}
}

// NewServer builds the API around r.
func NewServer(r *Robot, opts ...ServerOption) *Server {
	cfg := serverConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{robot: r, logger: cfg.logger}
	s.hub = hub.New("motors", hub.WithLogger(cfg.logger), hub.WithOnConnect(func(c *hub.Client) {
		t := r.Telemetry()
		if msg, err := protocol.NewMotorsMessage(t.Movement, t.Motors); err == nil {
			c.SendValue(msg)
		}
	}))
	r.Subscribe(func(t protocol.MotorsData) {
		msg, err := protocol.NewMotorsMessage(t.Movement, t.Motors)
		if err != nil {
			return
		}
		s.hub.BroadcastValue(msg)
	})

	app := fiber.New(fiber.Config{
		AppName:               "EV3 Simulator",
		DisableStartupMessage: true,
		UnescapePath:          true,
		BodyLimit:             16 * 1024 * 1024,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	if cfg.accessLog != nil {
		app.Use(logger.New(logger.Config{Output: cfg.accessLog}))
	}

	api := app.Group("/api")
	api.Get("/movement/config", s.getMovementConfig)
	api.Post("/movement/config", s.setMovementConfig)
	api.Post("/movement/:direction/:speed", s.move)
	api.Post("/motor/killswitch", s.killSwitch)
	api.Post("/motor/:addresses/:duty", s.setMotorSpeed)
	api.Get("/motor/:address", s.motorStatus)
	api.Post("/sound", s.addSound)
	api.Post("/sound/tts/:text", s.speak)
	api.Post("/sound/:id", s.playSound)
	api.Post("/image", s.addImage)
	api.Post("/image/:id/:seconds", s.displayImage)
	api.Get("/telemetry", s.telemetry)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/motors", websocket.New(func(c *websocket.Conn) {
		hub.NewClient(s.hub, c, nil).Run()
	}))

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "404 Not Found", "code": 404})
	})

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve runs the telemetry hub and serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.hub.Run(ctx)

	s.logger.Info("robot simulator listening", "url", "http://"+ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	select {
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(5 * time.Second)
	case err := <-errCh:
		return err
	}
}

// errorHandler answers in the robot API's {"message", "code"} shape.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()

	var apiErr *robot.APIError
	var fe *fiber.Error
	switch {
	case errors.As(err, &apiErr):
		code, msg = apiErr.StatusCode, apiErr.Message
	case errors.As(err, &fe):
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"message": msg, "code": code})
}

func ok(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{"message": message, "code": fiber.StatusOK})
}

func intParam(c *fiber.Ctx, name string) (int, error) {
	v, err := strconv.Atoi(c.Params(name))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" must be an integer")
	}
	return v, nil
}

func (s *Server) getMovementConfig(c *fiber.Ctx) error {
	return c.JSON(s.robot.MovementConfig())
}

func (s *Server) setMovementConfig(c *fiber.Ctx) error {
	var cfg robot.MovementConfig
	if err := c.BodyParser(&cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid movement config")
	}
	if err := s.robot.SetMovementConfig(c.UserContext(), cfg); err != nil {
		return err
	}
	s.logger.Info("movement config updated", "left", cfg.Left.Address, "right", cfg.Right.Address)
	return ok(c, "Movement motors successfully defined")
}

func (s *Server) move(c *fiber.Ctx) error {
	speed, err := intParam(c, "speed")
	if err != nil {
		return err
	}
	direction := c.Params("direction")
	if err := s.robot.Move(c.UserContext(), direction, speed); err != nil {
		return err
	}
	s.logger.Debug("move", "direction", direction, "speed", speed)
	return c.JSON(fiber.Map{"movement": s.robot.Movement()})
}

func (s *Server) killSwitch(c *fiber.Ctx) error {
	s.robot.KillSwitch(c.UserContext())
	s.logger.Info("kill switch")
	return ok(c, "All motors successfully stopped")
}

func (s *Server) setMotorSpeed(c *fiber.Ctx) error {
	duty, err := intParam(c, "duty")
	if err != nil {
		return err
	}
	msgs, err := s.robot.SetMotorSpeed(c.UserContext(), c.Params("addresses"), duty)
	if msgs == nil {
		return err
	}
	code := fiber.StatusOK
	if err != nil {
		code = fiber.StatusBadRequest
	}
	return c.Status(code).JSON(fiber.Map{"messages": msgs, "code": code})
}

func (s *Server) motorStatus(c *fiber.Ctx) error {
	status, err := s.robot.MotorStatus(c.UserContext(), c.Params("address"))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// upload reads the multipart "upload" field. A missing field yields nil data.
func upload(c *fiber.Ctx) (string, []byte, error) {
	fh, err := c.FormFile("upload")
	if err != nil {
		return "", nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	return fh.Filename, data, err
}

func (s *Server) addSound(c *fiber.Ctx) error {
	name, data, err := upload(c)
	if err != nil {
		return err
	}
	id, err := s.robot.AddSound(c.UserContext(), name, data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Sound successfully saved", "id": id, "code": fiber.StatusOK})
}

func (s *Server) playSound(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.robot.PlaySound(c.UserContext(), id); err != nil {
		return err
	}
	return ok(c, "Sound successfully played")
}

func (s *Server) speak(c *fiber.Ctx) error {
	s.robot.Speak(c.UserContext(), c.Params("text"))
	return ok(c, "Text-to-speech successfully executed")
}

func (s *Server) addImage(c *fiber.Ctx) error {
	name, data, err := upload(c)
	if err != nil {
		return err
	}
	id, err := s.robot.AddImage(c.UserContext(), name, data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Image successfully saved", "id": id, "code": fiber.StatusOK})
}

func (s *Server) displayImage(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	seconds, err := intParam(c, "seconds")
	if err != nil {
		return err
	}
	if err := s.robot.DisplayImage(c.UserContext(), id, seconds); err != nil {
		return err
	}
	return ok(c, "Image successfully displayed")
}

func (s *Server) telemetry(c *fiber.Ctx) error {
	return c.JSON(s.robot.Telemetry())
}
