// Package web serves the EV3 control panel: the embedded panel page, the
// /ws/control WebSocket that carries input events in and state/log updates
// out, a REST mirror of the input events, and passthrough endpoints for the
// auxiliary robot panels.
package web

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-ev3panel/pkg/activity"
	"github.com/teslashibe/go-ev3panel/pkg/arbiter"
	"github.com/teslashibe/go-ev3panel/pkg/dispatch"
	"github.com/teslashibe/go-ev3panel/pkg/hub"
	"github.com/teslashibe/go-ev3panel/pkg/input"
	"github.com/teslashibe/go-ev3panel/pkg/protocol"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
)

//go:embed static
var staticFiles embed.FS

// DefaultRequestTimeout bounds passthrough calls to the robot.
const DefaultRequestTimeout = 5 * time.Second

// Server is the control panel server
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	arbiter  *arbiter.Arbiter
	journal  *activity.Log
	robot    robot.Controller
	keyboard *input.Keyboard
	pointer  *input.Pointer
	hub      *hub.Hub

	stats          func() dispatch.Stats
	accessLog      io.Writer
	requestTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address (default ":8080").
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithBindings replaces the default keyboard bindings.
func WithBindings(b input.Bindings) Option {
	return func(s *Server) {
		s.keyboard = input.NewKeyboard(b)
	}
}

// WithStats exposes dispatch queue counters on /api/stats.
func WithStats(fn func() dispatch.Stats) Option {
	return func(s *Server) {
		s.stats = fn
	}
}

// WithAccessLog enables the fiber request logger writing to w.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.accessLog = w
	}
}

// WithRequestTimeout bounds passthrough robot calls.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// NewServer wires the panel around an arbiter and its activity log.
// ctrl serves the passthrough endpoints and may be nil to disable them.
func NewServer(arb *arbiter.Arbiter, journal *activity.Log, ctrl robot.Controller, opts ...Option) *Server {
	s := &Server{
		addr:           ":8080",
		logger:         slog.Default(),
		arbiter:        arb,
		journal:        journal,
		robot:          ctrl,
		keyboard:       input.NewKeyboard(input.DefaultBindings()),
		pointer:        input.NewPointer(nil),
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = hub.New("control", hub.WithLogger(s.logger), hub.WithOnConnect(s.sendSnapshot))

	arb.Subscribe(func(st arbiter.State, _ arbiter.Outcome) {
		s.broadcast(s.stateMessage(st))
	})
	journal.Subscribe(func(e activity.Entry) {
		s.broadcast(protocol.NewLogMessage(e.ID, e.Time, e.Message))
	})

	s.app = s.newApp()
	return s
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "EV3 Control Panel",
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024,
		UnescapePath:          true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	if s.accessLog != nil {
		app.Use(logger.New(logger.Config{Output: s.accessLog}))
	}
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/log", s.handleLog)
	api.Get("/stats", s.handleStats)

	in := api.Group("/input")
	in.Post("/key", s.handleKey)
	in.Post("/pointer/:control", s.handlePointer)
	in.Post("/halt", s.handleHalt)
	in.Post("/kill", s.handleKill)
	in.Put("/speed", s.handleSpeed)

	rb := api.Group("/robot", s.requireRobot)
	rb.Post("/movement/config", s.handleMovementConfig)
	rb.Post("/motor/:addresses/:duty", s.handleMotorSpeed)
	rb.Get("/motor/:address", s.handleMotorStatus)
	rb.Post("/sound", s.handleAddSound)
	rb.Post("/sound/tts/:text", s.handleSpeak)
	rb.Post("/sound/:id", s.handlePlaySound)
	rb.Post("/image", s.handleAddImage)
	rb.Post("/image/:id/:seconds", s.handleDisplayImage)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/control", websocket.New(s.handleControlWS))

	root, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	app.Use("/", filesystem.New(filesystem.Config{
		Root:  http.FS(root),
		Index: "index.html",
	}))

	return app
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the control hub.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// Start listens on the configured address until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hub and serves on ln until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.hub.Run(ctx)

	s.logger.Info("control panel listening", "url", "http://"+ln.Addr().String())

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

func (s *Server) broadcast(msg *protocol.Message, err error) {
	if err != nil {
		s.logger.Error("failed to encode broadcast", "error", err)
		return
	}
	if err := s.hub.BroadcastValue(msg); err != nil {
		s.logger.Error("failed to broadcast", "type", msg.Type, "error", err)
	}
}

// stateData converts arbiter state to its wire form.
func (s *Server) stateData(st arbiter.State) protocol.StateData {
	d := protocol.StateData{
		Direction: st.LastDirection.String(),
		Stopped:   st.Stopped,
		Speed:     st.Speed,
		Held:      []string{},
		Pointer:   st.Pointer.String(),
		Active:    []string{},
	}
	for _, c := range st.Keys.Held() {
		d.Held = append(d.Held, c.String())
	}
	for _, dir := range arbiter.Directions {
		if st.Active(dir) {
			if id := s.pointer.ControlID(dir); id != "" {
				d.Active = append(d.Active, id)
			}
		}
	}
	return d
}

func (s *Server) stateMessage(st arbiter.State) (*protocol.Message, error) {
	return protocol.NewStateMessage(s.stateData(st))
}

// sendSnapshot sends the current state and the full history to a new client.
// The history goes out as one message however long the log has grown.
func (s *Server) sendSnapshot(c *hub.Client) {
	st, err := s.stateMessage(s.arbiter.State())
	if err == nil {
		err = c.SendValue(st)
	}
	if err != nil {
		s.logger.Warn("failed to send state snapshot", "error", err)
	}

	entries := s.journal.Entries()
	history := make([]protocol.LogData, len(entries))
	for i, e := range entries {
		history[i] = protocol.LogData{ID: e.ID, Time: e.Time, Message: e.Message}
	}
	msg, err := protocol.NewHistoryMessage(history)
	if err == nil {
		err = c.SendValue(msg)
	}
	if err != nil {
		s.logger.Warn("failed to send history snapshot", "entries", len(history), "error", err)
	}
}

// errorHandler renders errors as {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
