package protocol

// Constructors for client → panel messages.

// NewKeyMessage creates a keyboard event message.
func NewKeyMessage(event, key string, code int) (*Message, error) {
	return NewMessage(TypeKey, KeyData{Event: event, Key: key, Code: code})
}

// NewPointerMessage creates a control click message.
func NewPointerMessage(control string) (*Message, error) {
	return NewMessage(TypePointer, PointerData{Control: control})
}

// NewHaltMessage creates a halt message.
func NewHaltMessage() (*Message, error) {
	return NewMessage(TypeHalt, nil)
}

// NewKillMessage creates a kill switch message.
func NewKillMessage() (*Message, error) {
	return NewMessage(TypeKill, nil)
}

// NewSpeedMessage creates a speed change message.
func NewSpeedMessage(value string) (*Message, error) {
	return NewMessage(TypeSpeed, SpeedData{Value: value})
}

// Constructors for panel → client messages.

// NewStateMessage creates a state snapshot message.
func NewStateMessage(s StateData) (*Message, error) {
	if s.Held == nil {
		s.Held = []string{}
	}
	if s.Active == nil {
		s.Active = []string{}
	}
	return NewMessage(TypeState, s)
}

// NewLogMessage creates an activity log message.
func NewLogMessage(id, clock, message string) (*Message, error) {
	return NewMessage(TypeLog, LogData{ID: id, Time: clock, Message: message})
}

// NewHistoryMessage creates a history message carrying entries in order.
func NewHistoryMessage(entries []LogData) (*Message, error) {
	if entries == nil {
		entries = []LogData{}
	}
	return NewMessage(TypeHistory, HistoryData{Entries: entries})
}

// NewErrorMessage creates an error message.
func NewErrorMessage(msg string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: msg})
}

// NewMotorsMessage creates a telemetry frame.
func NewMotorsMessage(movement string, motors []MotorReading) (*Message, error) {
	return NewMessage(TypeMotors, MotorsData{Movement: movement, Motors: motors})
}

// NewPingMessage creates a ping.
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage answers a ping.
func NewPongMessage(id string) (*Message, error) {
	return NewMessage(TypePong, PingData{ID: id})
}

// Typed accessors.

// KeyData extracts a keyboard event.
func (m *Message) KeyData() (*KeyData, error) {
	var data KeyData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PointerData extracts a control click.
func (m *Message) PointerData() (*PointerData, error) {
	var data PointerData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SpeedData extracts a speed change.
func (m *Message) SpeedData() (*SpeedData, error) {
	var data SpeedData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// StateData extracts a state snapshot.
func (m *Message) StateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// LogData extracts an activity log entry.
func (m *Message) LogData() (*LogData, error) {
	var data LogData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// HistoryData extracts the activity log snapshot.
func (m *Message) HistoryData() (*HistoryData, error) {
	var data HistoryData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// MotorsData extracts a telemetry frame.
func (m *Message) MotorsData() (*MotorsData, error) {
	var data MotorsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PingData extracts a ping or pong id.
func (m *Message) PingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
