package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"mapsmith.ai/internal/protocol"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		scriptPath = flag.String("script", "", "yaml input script (default: author one region)")
		linger     = flag.Duration("linger", 2*time.Second, "keep reading server messages after the last step")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	script, err := LoadScript(*scriptPath)
	if err != nil {
		logger.Fatalf("load script: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		OperatorName:    script.OperatorName,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			logMessage(logger, msg)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	interval := time.Duration(script.IntervalMS) * time.Millisecond
	for i, st := range script.Steps {
		b, err := st.Encode()
		if err != nil {
			logger.Fatalf("step %d: %v", i, err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			logger.Printf("send step %d: %v", i, err)
			return
		}
		select {
		case <-stop:
			return
		case <-done:
			return
		case <-time.After(interval * time.Duration(1+st.Wait)):
		}
	}

	select {
	case <-stop:
	case <-done:
	case <-time.After(*linger):
	}
}

func logMessage(logger *log.Logger, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return
		}
		logger.Printf("WELCOME operator_id=%s map=%s tick_rate=%d layouts=%v", w.OperatorID, w.MapName, w.Params.TickRateHz, w.Layouts)
	case protocol.TypeFrame:
		var f protocol.FrameMsg
		if err := json.Unmarshal(msg, &f); err != nil {
			return
		}
		logger.Printf("FRAME tick=%d markers=%d", f.Tick, len(f.Markers))
	case protocol.TypeStatus:
		var s protocol.StatusMsg
		if err := json.Unmarshal(msg, &s); err == nil {
			logger.Printf("STATUS %s", s.Text)
		}
	case protocol.TypeNotify:
		var n protocol.NotifyMsg
		if err := json.Unmarshal(msg, &n); err == nil {
			logger.Printf("NOTIFY %s", n.Text)
		}
	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err == nil {
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
		}
	}
}
