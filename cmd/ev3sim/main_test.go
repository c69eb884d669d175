package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ev3panel/internal/config"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
	"github.com/teslashibe/go-ev3panel/pkg/robotsim"
)

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSimAddr, cfg.addr)
	assert.Equal(t, "outB", cfg.left)
	assert.Equal(t, "outC", cfg.right)
	assert.Empty(t, cfg.medium)

	brick := robotsim.New(cfg.robotOptions()...)
	assert.Equal(t, robotsim.DefaultMovement(), brick.MovementConfig())
}

func TestParseFlags_MediumMotors(t *testing.T) {
	cfg, err := parseFlags([]string{"-left", "outA", "-right", "outD", "-medium", "outA, outB"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outA", "outB"}, cfg.medium)

	brick := robotsim.New(cfg.robotOptions()...)
	want := robot.MovementConfig{
		Left:  robot.SideConfig{Address: "outA", Type: robot.MotorMedium},
		Right: robot.SideConfig{Address: "outD", Type: robot.MotorLarge},
	}
	assert.Equal(t, want, brick.MovementConfig())

	require.NoError(t, brick.Move(context.Background(), "forward", 40))
	left, err := brick.MotorStatus(context.Background(), "outA")
	require.NoError(t, err)
	assert.Equal(t, -40, left.DutyCycle)
}

func TestParseFlags_InvalidPorts(t *testing.T) {
	_, err := parseFlags([]string{"-left", "outE"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-medium", "outA,B"})
	assert.Error(t, err)
}
