// ev3panel serves the browser control panel for an EV3 robot.
// Keyboard and pointer input from every connected panel is arbitrated into
// one stream of movement commands sent to the robot's HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-ev3panel/internal/config"
	"github.com/teslashibe/go-ev3panel/internal/httpc"
	"github.com/teslashibe/go-ev3panel/internal/log"
	"github.com/teslashibe/go-ev3panel/pkg/activity"
	"github.com/teslashibe/go-ev3panel/pkg/arbiter"
	"github.com/teslashibe/go-ev3panel/pkg/dispatch"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
	"github.com/teslashibe/go-ev3panel/pkg/robotsim"
	"github.com/teslashibe/go-ev3panel/pkg/web"
)

type options struct {
	config   config.Config
	simulate bool
	access   bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ev3panel: %v\n", err)
		os.Exit(2)
	}
	cfg := opts.config

	log.Init(log.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Debug("config loaded", "file", cfg.File, "queue_size", cfg.QueueSize, "request_timeout", cfg.RequestTimeout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var ctrl robot.Controller
	if opts.simulate {
		ctrl = robotsim.New()
		log.Info("using in-process robot simulator")
	} else {
		client := robot.NewHTTPController(cfg.RobotURL,
			robot.WithHTTPClient(httpc.New(cfg.RequestTimeout)),
			robot.WithLogger(log.Component("robot")),
		)
		log.Info("robot api", "url", client.BaseURL())
		ctrl = client
	}

	if cfg.Movement != nil {
		mctx, mcancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		if err := ctrl.SetMovementConfig(mctx, *cfg.Movement); err != nil {
			log.Warn("failed to apply movement config", "error", err)
		}
		mcancel()
	}

	queue := dispatch.NewQueue(ctrl, cfg.QueueSize,
		dispatch.WithTimeout(cfg.RequestTimeout),
		dispatch.WithLogger(log.Component("dispatch")),
	)
	go queue.Run(ctx)

	journal := activity.New()
	arb := arbiter.New(queue, journal, arbiter.WithSpeed(cfg.DefaultSpeed))

	serverOpts := []web.Option{
		web.WithAddr(cfg.Addr),
		web.WithLogger(log.Component("web")),
		web.WithBindings(cfg.Bindings()),
		web.WithStats(queue.Stats),
		web.WithRequestTimeout(cfg.RequestTimeout),
	}
	if opts.access {
		serverOpts = append(serverOpts, web.WithAccessLog(os.Stdout))
	}
	srv := web.NewServer(arb, journal, ctrl, serverOpts...)

	if err := srv.Start(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	queue.Stop()
	log.Info("shut down", "stats", queue.Stats())
}

// parseFlags loads the configuration and applies flags that were set explicitly.
func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("ev3panel", flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML config file (overrides EV3PANEL_CONFIG)")
	addr := fs.String("addr", "", "Listen address (default "+config.DefaultAddr+")")
	robotURL := fs.String("robot", "", "Robot API base URL or host (overrides ROBOT_IP)")
	speed := fs.Int("speed", 0, "Initial movement speed in percent")
	level := fs.String("log-level", "", "Log level: debug, info, warn, error")
	debug := fs.Bool("debug", false, "Shorthand for -log-level debug")
	simulate := fs.Bool("simulate", false, "Drive an in-process simulator instead of a robot")
	access := fs.Bool("access-log", false, "Log every HTTP request")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return options{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "robot":
			cfg.RobotURL = config.RobotURL(*robotURL)
		case "speed":
			cfg.DefaultSpeed = *speed
		case "log-level":
			cfg.LogLevel = *level
		}
	})
	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return options{}, err
	}

	return options{config: cfg, simulate: *simulate, access: *access}, nil
}
