// Package protocol defines the WebSocket messages exchanged between the
// control panel page (or ev3key) and the panel server, plus the motor
// telemetry pushed by the robot simulator.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Panel
	TypeKey     MessageType = "key"     // Raw keyboard event
	TypePointer MessageType = "pointer" // Click on a direction control
	TypeHalt    MessageType = "halt"    // Halt key
	TypeKill    MessageType = "kill"    // Kill switch button
	TypeSpeed   MessageType = "speed"   // Percentage input changed

	// Panel → Client
	TypeState   MessageType = "state"   // Arbiter state snapshot
	TypeLog     MessageType = "log"     // Activity log entry
	TypeHistory MessageType = "history" // Full activity log, sent on connect
	TypeError   MessageType = "error"   // Rejected client message

	// Simulator → Client
	TypeMotors MessageType = "motors" // Motor telemetry

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the envelope for every WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a message stamped with the current time
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s data: %w", msgType, err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      raw,
	}, nil
}

// ParseData unmarshals the message data into v. Missing data leaves v untouched.
func (m *Message) ParseData(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("invalid %s data: %w", m.Type, err)
	}
	return nil
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// KeyData is a raw keyboard event as seen by the browser.
type KeyData struct {
	Event string `json:"event"` // "keydown" or "keyup"
	Key   string `json:"key,omitempty"`
	Code  int    `json:"code,omitempty"` // legacy keyCode
}

// PointerData is a click on a control element.
type PointerData struct {
	Control string `json:"control"` // "up-arrow", ... or a direction name
}

// SpeedData is the raw value of the percentage input.
type SpeedData struct {
	Value string `json:"value"`
}

// StateData is a snapshot of the arbiter.
type StateData struct {
	Direction string   `json:"direction"` // "" when stopped
	Stopped   bool     `json:"stopped"`
	Speed     int      `json:"speed"`
	Held      []string `json:"held"`              // held keyboard controls
	Pointer   string   `json:"pointer,omitempty"` // direction toggled by pointer
	Active    []string `json:"active"`            // control ids to highlight
}

// LogData is one activity log entry.
type LogData struct {
	ID      string `json:"id"`
	Time    string `json:"time"` // HH:MM:SS
	Message string `json:"message"`
}

// Text renders the entry the way the panel shows it.
func (l LogData) Text() string {
	return l.Time + " " + l.Message
}

// HistoryData is the activity log in append order.
type HistoryData struct {
	Entries []LogData `json:"entries"`
}

// ErrorData explains why a client message was rejected.
type ErrorData struct {
	Message string `json:"message"`
}

// MotorReading is the simulated state of one motor port.
type MotorReading struct {
	Address   string   `json:"address"`
	DutyCycle int      `json:"duty_cycle"`
	State     []string `json:"state"`
}

// MotorsData is a telemetry frame from the simulator.
type MotorsData struct {
	Motors   []MotorReading `json:"motors"`
	Movement string         `json:"movement,omitempty"`
}

// PingData carries an opaque id echoed in the pong.
type PingData struct {
	ID string `json:"id"`
}
