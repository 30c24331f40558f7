package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/protocol"
	"mapsmith.ai/internal/sim/authoring"
	"mapsmith.ai/internal/sim/scheduler"
)

// Inputs is the scheduler side of the transport.
type Inputs interface {
	Submit(in scheduler.Input) error
	Leave() chan<- string
}

// Info is sent to every operator in WELCOME.
type Info struct {
	MapName string
	Params  protocol.MapParams
	Layouts []string
}

type Server struct {
	sched Inputs
	hub   *Hub
	info  Info
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(sched Inputs, hub *Hub, info Info, logger *log.Logger) *Server {
	return &Server{
		sched: sched,
		hub:   hub,
		info:  info,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		operator, out := s.handshake(conn)
		if operator == "" {
			return
		}
		defer s.hub.Remove(operator)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				b, ok := out.Next(ctx)
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if code, reason := s.handleMessage(operator, msg); code != "" {
				s.reply(out, code, reason)
			}
		}

		// Cleanup.
		s.sched.Leave() <- operator
	}
}

// handleMessage validates one client message and queues it. It returns an
// error code when the message is rejected.
func (s *Server) handleMessage(operator string, msg []byte) (code, reason string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.ErrProtoBadRequest, "invalid json"
	}
	if base.Type != protocol.TypeInput {
		return protocol.ErrProtoBadRequest, "unexpected message type " + base.Type
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.ErrProtoVersion, "bad protocol_version"
	}
	if err := protocol.Validate(protocol.TypeInput, msg); err != nil {
		return protocol.ErrProtoBadRequest, err.Error()
	}
	var m protocol.InputMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return protocol.ErrProtoBadRequest, err.Error()
	}
	in, ok := toInput(operator, m)
	if !ok {
		return protocol.ErrBadRequest, "incomplete " + m.Input
	}
	if err := s.sched.Submit(in); err != nil {
		if errors.Is(err, scheduler.ErrInboxFull) {
			return protocol.ErrBusy, "server busy, retry"
		}
		return protocol.ErrInternal, err.Error()
	}
	return "", ""
}

func toInput(operator string, m protocol.InputMsg) (scheduler.Input, bool) {
	in := scheduler.Input{Operator: operator, Kind: scheduler.InputKind(m.Input)}
	switch m.Input {
	case protocol.InputStart:
		if m.Start == nil {
			return in, false
		}
		in.Start = &authoring.StartRequest{
			Kind:     m.Start.Kind,
			Name:     m.Start.Name,
			Layout:   m.Start.Layout,
			Template: m.Start.Template,
		}
	case protocol.InputPose:
		if m.Eye == nil || m.Dir == nil {
			return in, false
		}
		in.Eye, in.Dir = geom.FromArray(*m.Eye), geom.FromArray(*m.Dir)
	case protocol.InputTarget:
		if m.Target == nil {
			return in, false
		}
		in.Target = geom.FromArray(*m.Target)
	case protocol.InputTrigger, protocol.InputConfirm, protocol.InputAbandon:
	default:
		return in, false
	}
	return in, true
}

func (s *Server) reply(out *Outbox, code, reason string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         reason,
	})
	if err != nil {
		return
	}
	out.push(b)
}

func (s *Server) handshake(conn *websocket.Conn) (operator string, out *Outbox) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}
	if base.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid HELLO"), time.Now().Add(time.Second))
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}

	operator, out = s.hub.Register(64)
	if err := writeJSON(conn, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		OperatorID:      operator,
		MapName:         s.info.MapName,
		Params:          s.info.Params,
		Layouts:         s.info.Layouts,
	}); err != nil {
		s.hub.Remove(operator)
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("operator %s connected as %q", operator, hello.OperatorName)
	}
	return operator, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
