// ev3sim serves a simulated EV3 brick over the robot's REST API, so the
// panel can be run and tested without hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-ev3panel/internal/config"
	"github.com/teslashibe/go-ev3panel/internal/log"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
	"github.com/teslashibe/go-ev3panel/pkg/robotsim"
)

type simConfig struct {
	addr      string
	left      string
	right     string
	medium    []string
	logLevel  string
	logFormat string
	access    bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ev3sim: %v\n", err)
		os.Exit(2)
	}

	log.Init(log.Options{Level: cfg.logLevel, Format: cfg.logFormat})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	brick := robotsim.New(cfg.robotOptions()...)

	serverOpts := []robotsim.ServerOption{robotsim.WithLogger(log.Component("robotsim"))}
	if cfg.access {
		serverOpts = append(serverOpts, robotsim.WithAccessLog(os.Stdout))
	}
	srv := robotsim.NewServer(brick, serverOpts...)

	ln, err := net.Listen("tcp", cfg.addr)
	if err != nil {
		log.Error("listen failed", "addr", cfg.addr, "error", err)
		os.Exit(1)
	}
	if err := srv.Serve(ctx, ln); err != nil {
		log.Error("simulator stopped", "error", err)
		os.Exit(1)
	}
}

func (c simConfig) robotOptions() []robotsim.Option {
	opts := []robotsim.Option{robotsim.WithMovement(robot.MovementConfig{
		Left:  robot.SideConfig{Address: c.left, Type: c.motorType(c.left)},
		Right: robot.SideConfig{Address: c.right, Type: c.motorType(c.right)},
	})}
	for _, port := range c.medium {
		opts = append(opts, robotsim.WithMotor(port, robot.MotorMedium))
	}
	return opts
}

func (c simConfig) motorType(port string) robot.MotorType {
	for _, p := range c.medium {
		if p == port {
			return robot.MotorMedium
		}
	}
	return robot.MotorLarge
}

func parseFlags(args []string) (simConfig, error) {
	fs := flag.NewFlagSet("ev3sim", flag.ContinueOnError)

	cfg := simConfig{}
	fs.StringVar(&cfg.addr, "addr", config.DefaultSimAddr, "Listen address")
	fs.StringVar(&cfg.left, "left", "outB", "Port driving the left side")
	fs.StringVar(&cfg.right, "right", "outC", "Port driving the right side")
	medium := fs.String("medium", "", "Comma-separated ports fitted with medium motors (e.g. outA,outD)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.logFormat, "log-format", "text", "Log format: text or json")
	fs.BoolVar(&cfg.access, "access-log", false, "Log every HTTP request")

	if err := fs.Parse(args); err != nil {
		return simConfig{}, err
	}

	for _, port := range []string{cfg.left, cfg.right} {
		if !validPort(port) {
			return simConfig{}, fmt.Errorf("invalid movement port %q", port)
		}
	}
	for _, port := range strings.Split(*medium, ",") {
		port = strings.TrimSpace(port)
		if port == "" {
			continue
		}
		if !validPort(port) {
			return simConfig{}, fmt.Errorf("invalid medium motor port %q", port)
		}
		cfg.medium = append(cfg.medium, port)
	}
	return cfg, nil
}

func validPort(port string) bool {
	for _, p := range robotsim.Ports {
		if p == port {
			return true
		}
	}
	return false
}
