package protocol

import (
	"encoding/json"
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
		wantRaw string
	}{
		{"key", TypeKey, KeyData{Event: "keydown", Key: "ArrowUp", Code: 38}, `{"event":"keydown","key":"ArrowUp","code":38}`},
		{"speed", TypeSpeed, SpeedData{Value: "55"}, `{"value":"55"}`},
		{"nil data", TypeHalt, nil, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if err != nil {
				t.Fatalf("NewMessage() error = %v", err)
			}
			if msg.Type != tt.msgType {
				t.Errorf("type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("timestamp should be set")
			}
			if string(msg.Data) != tt.wantRaw {
				t.Errorf("data = %s, want %s", msg.Data, tt.wantRaw)
			}
		})
	}
}

func TestNewMessage_MarshalError(t *testing.T) {
	if _, err := NewMessage(TypeState, make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestParseMessage_FromBrowser(t *testing.T) {
	// The panel page sends messages without a timestamp.
	msg, err := ParseMessage([]byte(`{"type":"pointer","data":{"control":"left-arrow"}}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	p, err := msg.PointerData()
	if err != nil {
		t.Fatalf("PointerData() error = %v", err)
	}
	if p.Control != "left-arrow" {
		t.Errorf("control = %q", p.Control)
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	for _, raw := range []string{`not json`, `{}`, `{"data":{}}`} {
		if _, err := ParseMessage([]byte(raw)); err == nil {
			t.Errorf("ParseMessage(%s) should fail", raw)
		}
	}
}

func TestParseData_WrongShape(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"key","data":{"code":"thirty-eight"}}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if _, err := msg.KeyData(); err == nil {
		t.Error("expected error for non-numeric key code")
	}
}

func TestParseData_Empty(t *testing.T) {
	msg, err := NewHaltMessage()
	if err != nil {
		t.Fatal(err)
	}
	var d KeyData
	if err := msg.ParseData(&d); err != nil {
		t.Errorf("ParseData() on empty data = %v", err)
	}
}

func TestStateMessage_HeldNeverNull(t *testing.T) {
	msg, err := NewStateMessage(StateData{Stopped: true, Speed: 100})
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(msg.Data, &raw); err != nil {
		t.Fatal(err)
	}
	if held, ok := raw["held"].([]any); !ok || len(held) != 0 {
		t.Errorf("held = %#v, want empty array", raw["held"])
	}
	if _, ok := raw["pointer"]; ok {
		t.Error("empty pointer should be omitted")
	}
}

func TestLogMessage(t *testing.T) {
	msg, err := NewLogMessage("abc", "14:03:09", "Move robot (left)")
	if err != nil {
		t.Fatal(err)
	}
	b, err := msg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseMessage(b)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := parsed.LogData()
	if err != nil {
		t.Fatal(err)
	}
	if got := entry.Text(); got != "14:03:09 Move robot (left)" {
		t.Errorf("Text() = %q", got)
	}
}

func TestMotorsMessage(t *testing.T) {
	msg, err := NewMotorsMessage("forward", []MotorReading{{Address: "outB", DutyCycle: -60, State: []string{"running"}}})
	if err != nil {
		t.Fatal(err)
	}
	d, err := msg.MotorsData()
	if err != nil {
		t.Fatal(err)
	}
	if d.Movement != "forward" || len(d.Motors) != 1 || d.Motors[0].DutyCycle != -60 {
		t.Errorf("MotorsData() = %+v", d)
	}
}

func TestHistoryMessage(t *testing.T) {
	empty, err := NewHistoryMessage(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(empty.Data) != `{"entries":[]}` {
		t.Errorf("empty history: got %s", empty.Data)
	}

	msg, err := NewHistoryMessage([]LogData{
		{ID: "a", Time: "10:00:00", Message: "Move robot (forward)"},
		{ID: "b", Time: "10:00:01", Message: "Stop movement"},
	})
	if err != nil {
		t.Fatal(err)
	}
	h, err := msg.HistoryData()
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Entries) != 2 || h.Entries[0].ID != "a" || h.Entries[1].Text() != "10:00:01 Stop movement" {
		t.Errorf("history: got %+v", h.Entries)
	}
}
