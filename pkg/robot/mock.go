package robot

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Mock implements Controller for testing. Every call is recorded.
// Err, when set, is returned by every method.
type Mock struct {
	// Err is returned from every call when non-nil.
	Err error

	// Delay is applied before each call returns (honors ctx).
	Delay time.Duration

	mu     sync.Mutex
	calls  []MockCall
	nextID int
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Args   []string
	Time   time.Time
}

// NewMock creates a mock that succeeds on every call.
func NewMock() *Mock {
	return &Mock{}
}

// Move records the call.
func (m *Mock) Move(ctx context.Context, direction string, speed int) error {
	return m.record(ctx, "Move", direction, strconv.Itoa(speed))
}

// KillSwitch records the call.
func (m *Mock) KillSwitch(ctx context.Context) error {
	return m.record(ctx, "KillSwitch")
}

// SetMotorSpeed records the call.
func (m *Mock) SetMotorSpeed(ctx context.Context, addresses string, duty int) ([]string, error) {
	if err := m.record(ctx, "SetMotorSpeed", addresses, strconv.Itoa(duty)); err != nil {
		return nil, err
	}
	return []string{"ok"}, nil
}

// MotorStatus records the call and reports a stopped motor.
func (m *Mock) MotorStatus(ctx context.Context, address string) (MotorStatus, error) {
	if err := m.record(ctx, "MotorStatus", address); err != nil {
		return MotorStatus{}, err
	}
	return MotorStatus{State: []string{}, DutyCycle: 0}, nil
}

// SetMovementConfig records the call.
func (m *Mock) SetMovementConfig(ctx context.Context, cfg MovementConfig) error {
	return m.record(ctx, "SetMovementConfig", cfg.Left.Address, string(cfg.Left.Type), cfg.Right.Address, string(cfg.Right.Type))
}

// AddSound records the call and returns the next id.
func (m *Mock) AddSound(ctx context.Context, filename string, data []byte) (int, error) {
	if err := m.record(ctx, "AddSound", filename, strconv.Itoa(len(data))); err != nil {
		return 0, err
	}
	return m.id(), nil
}

// PlaySound records the call.
func (m *Mock) PlaySound(ctx context.Context, id int) error {
	return m.record(ctx, "PlaySound", strconv.Itoa(id))
}

// Speak records the call.
func (m *Mock) Speak(ctx context.Context, text string) error {
	return m.record(ctx, "Speak", text)
}

// AddImage records the call and returns the next id.
func (m *Mock) AddImage(ctx context.Context, filename string, data []byte) (int, error) {
	if err := m.record(ctx, "AddImage", filename, strconv.Itoa(len(data))); err != nil {
		return 0, err
	}
	return m.id(), nil
}

// DisplayImage records the call.
func (m *Mock) DisplayImage(ctx context.Context, id int, seconds int) error {
	return m.record(ctx, "DisplayImage", strconv.Itoa(id), strconv.Itoa(seconds))
}

func (m *Mock) record(ctx context.Context, method string, args ...string) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Args:   args,
		Time:   time.Now(),
	})
	return m.Err
}

func (m *Mock) id() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
