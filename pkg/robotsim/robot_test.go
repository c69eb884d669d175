package robotsim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ev3panel/pkg/protocol"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
)

func duty(t *testing.T, r *Robot, port string) int {
	t.Helper()
	st, err := r.MotorStatus(context.Background(), port)
	require.NoError(t, err)
	return st.DutyCycle
}

func TestSideSpeeds(t *testing.T) {
	tests := []struct {
		direction   string
		left, right int
	}{
		{"forward", -80, -80},
		{"backward", 80, 80},
		{"left", 80, -80},
		{"right", -80, 80},
	}
	for _, tt := range tests {
		l, r := SideSpeeds(tt.direction, 80)
		assert.Equal(t, tt.left, l, "%s left", tt.direction)
		assert.Equal(t, tt.right, r, "%s right", tt.direction)
	}
}

func TestRobot_Move(t *testing.T) {
	r := New()
	ctx := context.Background()

	require.NoError(t, r.Move(ctx, "left", 60))
	assert.Equal(t, "left", r.Movement())
	assert.Equal(t, 60, duty(t, r, "outB"))
	assert.Equal(t, -60, duty(t, r, "outC"))
	assert.Equal(t, 0, duty(t, r, "outA"))

	require.NoError(t, r.Move(ctx, "forward", 0))
	assert.Equal(t, MovementNone, r.Movement())
	assert.Equal(t, 0, duty(t, r, "outB"))
	assert.Equal(t, 0, duty(t, r, "outC"))
}

func TestRobot_MoveValidation(t *testing.T) {
	r := New()
	var apiErr *robot.APIError

	err := r.Move(context.Background(), "up", 10)
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsBadRequest())

	assert.Error(t, r.Move(context.Background(), "forward", 101))
	assert.Error(t, r.Move(context.Background(), "forward", -1))
}

func TestRobot_MovementConfig(t *testing.T) {
	r := New()
	ctx := context.Background()

	cfg := robot.MovementConfig{
		Left:  robot.SideConfig{Address: "outA", Type: robot.MotorMedium},
		Right: robot.SideConfig{Address: "", Type: robot.MotorLarge},
	}
	require.NoError(t, r.SetMovementConfig(ctx, cfg))
	assert.Equal(t, cfg, r.MovementConfig())

	require.NoError(t, r.Move(ctx, "forward", 50))
	assert.Equal(t, -50, duty(t, r, "outA"))
	assert.Equal(t, 0, duty(t, r, "outC"), "unbound right side is skipped")

	assert.Error(t, r.SetMovementConfig(ctx, robot.MovementConfig{
		Left:  robot.SideConfig{Address: "outE", Type: robot.MotorLarge},
		Right: robot.SideConfig{Type: robot.MotorLarge},
	}))
	assert.Error(t, r.SetMovementConfig(ctx, robot.MovementConfig{
		Left:  robot.SideConfig{Address: "outA", Type: "servo"},
		Right: robot.SideConfig{Type: robot.MotorLarge},
	}))
}

func TestRobot_SetMotorSpeed(t *testing.T) {
	r := New(WithoutMotors(), WithMotor("outA", robot.MotorMedium))
	ctx := context.Background()

	msgs, err := r.SetMotorSpeed(ctx, "A", -40)
	require.NoError(t, err)
	assert.Equal(t, []string{"Motor (address outA) successfully started"}, msgs)
	assert.Equal(t, -40, duty(t, r, "outA"))

	msgs, err = r.SetMotorSpeed(ctx, "AB", 0)
	require.Error(t, err)
	assert.Equal(t, []string{
		"Motor (address outA) successfully stopped",
		"Motor (address outB) is not defined yet",
	}, msgs)

	_, err = r.SetMotorSpeed(ctx, "E", 10)
	assert.Error(t, err)
	_, err = r.SetMotorSpeed(ctx, "A", 101)
	assert.Error(t, err)

	_, err = r.MotorStatus(ctx, "outB")
	assert.Error(t, err, "undeclared port is not connected")
	_, err = r.MotorStatus(ctx, "A")
	assert.Error(t, err)
}

func TestRobot_KillSwitch(t *testing.T) {
	r := New()
	ctx := context.Background()
	r.Move(ctx, "backward", 100)
	r.SetMotorSpeed(ctx, "AD", 30)

	require.NoError(t, r.KillSwitch(ctx))
	for _, m := range r.Telemetry().Motors {
		assert.Zero(t, m.DutyCycle, m.Address)
		assert.Empty(t, m.State, m.Address)
	}
	assert.Equal(t, MovementNone, r.Movement())
}

func TestRobot_Sounds(t *testing.T) {
	r := New()
	ctx := context.Background()

	_, err := r.AddSound(ctx, "a.wav", nil)
	assert.Error(t, err)

	id0, err := r.AddSound(ctx, "a.wav", []byte{1})
	require.NoError(t, err)
	id1, err := r.AddSound(ctx, "b.wav", []byte{2})
	require.NoError(t, err)
	assert.Equal(t, 0, id0)
	assert.Equal(t, 1, id1)

	require.NoError(t, r.PlaySound(ctx, 1))
	var apiErr *robot.APIError
	require.True(t, errors.As(r.PlaySound(ctx, 2), &apiErr))
	assert.Equal(t, "Sound ID out of range", apiErr.Message)
	assert.Equal(t, []int{1}, r.Played())

	require.NoError(t, r.Speak(ctx, "hello"))
	assert.Equal(t, []string{"hello"}, r.Spoken())
}

func TestRobot_Images(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	assert.Error(t, r.DisplayImage(ctx, 0, 0))

	id, err := r.AddImage(ctx, "x.bmp", []byte{1})
	require.NoError(t, err)

	require.NoError(t, r.DisplayImage(ctx, id, 5))
	d, ok := r.Displayed()
	require.True(t, ok)
	assert.Equal(t, id, d.ImageID)

	now = now.Add(6 * time.Second)
	_, ok = r.Displayed()
	assert.False(t, ok, "image expires")

	require.NoError(t, r.DisplayImage(ctx, id, 0))
	now = now.Add(time.Hour)
	_, ok = r.Displayed()
	assert.True(t, ok, "0 seconds displays until replaced")
}

func TestRobot_Subscribe(t *testing.T) {
	r := New()
	var frames []protocol.MotorsData
	cancel := r.Subscribe(func(d protocol.MotorsData) { frames = append(frames, d) })

	r.Move(context.Background(), "right", 20)
	r.KillSwitch(context.Background())
	require.Len(t, frames, 2)
	assert.Equal(t, "right", frames[0].Movement)
	assert.Equal(t, MovementNone, frames[1].Movement)

	cancel()
	r.Move(context.Background(), "left", 20)
	assert.Len(t, frames, 2)
}

func TestRobot_SubscribeConcurrentChangesEndOnCurrentFrame(t *testing.T) {
	r := New()
	var frames []protocol.MotorsData
	r.Subscribe(func(d protocol.MotorsData) { frames = append(frames, d) })

	directions := []string{"forward", "backward", "left", "right"}
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%3 == 0 {
				r.SetMotorSpeed(context.Background(), "AD", i-32)
				return
			}
			r.Move(context.Background(), directions[i%4], i)
		}(i)
	}
	wg.Wait()

	require.Len(t, frames, 64)
	assert.Equal(t, r.Telemetry(), frames[len(frames)-1])
}
