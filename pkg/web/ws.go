package web

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-ev3panel/pkg/arbiter"
	"github.com/teslashibe/go-ev3panel/pkg/hub"
	"github.com/teslashibe/go-ev3panel/pkg/protocol"
)

// handleControlWS serves one panel session. Inbound input messages go to
// the arbiter; state and log updates arrive through the hub.
func (s *Server) handleControlWS(c *websocket.Conn) {
	session := uuid.NewString()
	l := s.logger.With("session", session, "remote", c.RemoteAddr().String())
	l.Debug("panel session opened")

	hub.NewClient(s.hub, c, s.handleMessage).Run()

	l.Debug("panel session closed")
}

// handleMessage applies one client message. Unmapped keys and unknown
// controls are ignored; malformed messages are answered with an error.
func (s *Server) handleMessage(c *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.reject(c, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeKey:
		d, err := msg.KeyData()
		if err != nil {
			s.reject(c, err.Error())
			return
		}
		if ev, ok := s.keyEvent(*d); ok {
			s.arbiter.Handle(ev)
		}

	case protocol.TypePointer:
		d, err := msg.PointerData()
		if err != nil {
			s.reject(c, err.Error())
			return
		}
		if ev, ok := s.pointer.Activate(d.Control); ok {
			s.arbiter.Handle(ev)
		}

	case protocol.TypeHalt:
		s.arbiter.Handle(arbiter.Halt())

	case protocol.TypeKill:
		s.arbiter.Handle(s.pointer.KillSwitch())

	case protocol.TypeSpeed:
		d, err := msg.SpeedData()
		if err != nil {
			s.reject(c, err.Error())
			return
		}
		ev, ok := s.pointer.Speed(d.Value)
		if !ok {
			s.reject(c, "speed must be a number")
			return
		}
		s.arbiter.Handle(ev)

	case protocol.TypePing:
		d, err := msg.PingData()
		if err != nil {
			s.reject(c, err.Error())
			return
		}
		if pong, err := protocol.NewPongMessage(d.ID); err == nil {
			c.SendValue(pong)
		}

	default:
		s.reject(c, "unsupported message type: "+string(msg.Type))
	}
}

func (s *Server) reject(c *hub.Client, reason string) {
	s.logger.Debug("rejected panel message", "reason", reason)
	if msg, err := protocol.NewErrorMessage(reason); err == nil {
		c.SendValue(msg)
	}
}
