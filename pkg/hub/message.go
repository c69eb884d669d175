// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import "encoding/json"

// MessageType indicates the websocket frame type
type MessageType int

const (
	// TextMessage is a JSON text frame
	TextMessage MessageType = iota
	// BinaryMessage is raw binary data
	BinaryMessage
)

// Message is a frame queued for one or more clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewTextMessage creates a text message from pre-encoded bytes
func NewTextMessage(data []byte) Message {
	return Message{Type: TextMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Encoder is implemented by values that know their own wire encoding,
// such as *protocol.Message.
type Encoder interface {
	Bytes() ([]byte, error)
}

// Encode turns v into a text message. Encoders use their own encoding;
// anything else is JSON-marshaled.
func Encode(v any) (Message, error) {
	if e, ok := v.(Encoder); ok {
		data, err := e.Bytes()
		if err != nil {
			return Message{}, err
		}
		return NewTextMessage(data), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return NewTextMessage(data), nil
}
