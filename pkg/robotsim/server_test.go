package robotsim

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ev3panel/internal/log"
	"github.com/teslashibe/go-ev3panel/pkg/protocol"
	"github.com/teslashibe/go-ev3panel/pkg/robot"
)

// startSim serves a fresh simulator on a loopback port.
func startSim(t *testing.T, opts ...Option) (*Robot, string) {
	t.Helper()
	r := New(opts...)
	srv := NewServer(r, WithLogger(log.Discard()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx, ln)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r, ln.Addr().String()
}

func TestServer_ClientRoundTrip(t *testing.T) {
	sim, addr := startSim(t)
	c := robot.NewHTTPController("http://"+addr, robot.WithLogger(log.Discard()))
	ctx := context.Background()

	require.NoError(t, c.Move(ctx, "backward", 70))
	assert.Equal(t, "backward", sim.Movement())

	status, err := c.MotorStatus(ctx, "outB")
	require.NoError(t, err)
	assert.Equal(t, 70, status.DutyCycle)
	assert.Equal(t, []string{"running"}, status.State)

	require.NoError(t, c.KillSwitch(ctx))
	assert.Equal(t, MovementNone, sim.Movement())

	msgs, err := c.SetMotorSpeed(ctx, "d", 15)
	require.NoError(t, err)
	assert.Equal(t, []string{"Motor (address outD) successfully started"}, msgs)

	cfg := robot.MovementConfig{
		Left:  robot.SideConfig{Address: "outA", Type: robot.MotorLarge},
		Right: robot.SideConfig{Address: "outD", Type: robot.MotorMedium},
	}
	require.NoError(t, c.SetMovementConfig(ctx, cfg))
	assert.Equal(t, cfg, sim.MovementConfig())

	id, err := c.AddSound(ctx, "beep.wav", []byte("RIFF"))
	require.NoError(t, err)
	require.NoError(t, c.PlaySound(ctx, id))
	assert.Equal(t, []int{id}, sim.Played())

	require.NoError(t, c.Speak(ctx, "hello robot"))
	assert.Equal(t, []string{"hello robot"}, sim.Spoken())

	img, err := c.AddImage(ctx, "face.bmp", []byte("BM"))
	require.NoError(t, err)
	require.NoError(t, c.DisplayImage(ctx, img, 0))
	d, ok := sim.Displayed()
	require.True(t, ok)
	assert.Equal(t, img, d.ImageID)
}

func TestServer_ClientErrors(t *testing.T) {
	_, addr := startSim(t, WithoutMotors())
	c := robot.NewHTTPController("http://"+addr, robot.WithLogger(log.Discard()))
	ctx := context.Background()

	var apiErr *robot.APIError

	err := c.PlaySound(ctx, 4)
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Sound ID out of range", apiErr.Message)

	_, err = c.SetMotorSpeed(ctx, "A", 10)
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, "Motor (address outA) is not defined yet", apiErr.Message)

	_, err = c.MotorStatus(ctx, "outC")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Motor not connected", apiErr.Message)
}

func TestServer_Routes(t *testing.T) {
	srv := NewServer(New(), WithLogger(log.Discard()))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/movement/forward/50", http.StatusOK},
		{http.MethodPost, "/api/movement/forward/fast", http.StatusBadRequest},
		{http.MethodPost, "/api/movement/sideways/50", http.StatusBadRequest},
		{http.MethodGet, "/api/movement/config", http.StatusOK},
		{http.MethodPost, "/api/motor/killswitch", http.StatusOK},
		{http.MethodGet, "/api/motor/outA", http.StatusOK},
		{http.MethodGet, "/api/telemetry", http.StatusOK},
		{http.MethodPost, "/api/sound", http.StatusBadRequest},
		{http.MethodPost, "/api/image/0/0", http.StatusBadRequest},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodGet, "/ws/motors", http.StatusUpgradeRequired},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, err := srv.App().Test(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.want, resp.StatusCode, string(body))
		})
	}
}

func TestServer_MoveResponse(t *testing.T) {
	srv := NewServer(New(), WithLogger(log.Discard()))

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodPost, "/api/movement/left/0", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"movement":"none"}`, string(body))
}

func TestServer_TelemetryStream(t *testing.T) {
	sim, addr := startSim(t)

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		var err error
		conn, _, err = websocket.DefaultDialer.Dial("ws://"+addr+"/ws/motors", nil)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer conn.Close()

	read := func() *protocol.MotorsData {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := protocol.ParseMessage(data)
		require.NoError(t, err)
		require.Equal(t, protocol.TypeMotors, msg.Type)
		d, err := msg.MotorsData()
		require.NoError(t, err)
		return d
	}

	snapshot := read()
	assert.Equal(t, MovementNone, snapshot.Movement)
	assert.Len(t, snapshot.Motors, 4)

	require.NoError(t, sim.Move(context.Background(), "forward", 40))
	frame := read()
	assert.Equal(t, "forward", frame.Movement)
	assert.Equal(t, -40, frame.Motors[1].DutyCycle)
}
