package protocol_test

import (
	"encoding/json"
	"testing"

	"mapsmith.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	valid := []struct {
		typ string
		raw string
	}{
		{protocol.TypeHello, `{"type":"HELLO","protocol_version":"1.0","operator_name":"alice"}`},
		{protocol.TypeInput, `{"type":"INPUT","protocol_version":"1.0","input":"START","start":{"kind":"STRUCTURE","name":"red","layout":"island"}}`},
		{protocol.TypeInput, `{"type":"INPUT","protocol_version":"1.0","input":"POSE","eye":[10,64.5,2],"dir":[-1,0,0]}`},
		{protocol.TypeInput, `{"type":"INPUT","protocol_version":"1.0","input":"TARGET","target":[1,64,-3]}`},
		{protocol.TypeInput, `{"type":"INPUT","protocol_version":"1.0","input":"CONFIRM"}`},
		{protocol.TypeFrame, `{"type":"FRAME","protocol_version":"1.0","tick":3,"markers":[{"pos":[0,0,0],"style":"HIGHLIGHT"}]}`},
	}
	for _, c := range valid {
		if err := protocol.Validate(c.typ, []byte(c.raw)); err != nil {
			t.Fatalf("validate %s: %v", c.raw, err)
		}
	}
}

func TestSchemas_RejectMalformedInput(t *testing.T) {
	invalid := []string{
		`{"type":"INPUT","protocol_version":"1.0","input":"JUMP"}`,
		`{"type":"INPUT","protocol_version":"1.0","input":"START"}`,
		`{"type":"INPUT","protocol_version":"1.0","input":"START","start":{"kind":"DELETE","name":"x"}}`,
		`{"type":"INPUT","protocol_version":"1.0","input":"POSE","eye":[1,2,3]}`,
		`{"type":"INPUT","protocol_version":"1.0","input":"TARGET","target":[1,2]}`,
		`{"type":"INPUT","protocol_version":"1.0","input":"TARGET","target":["a","b","c"]}`,
	}
	for _, raw := range invalid {
		if err := protocol.Validate(protocol.TypeInput, []byte(raw)); err == nil {
			t.Fatalf("expected rejection: %s", raw)
		}
	}
}

func TestSchemas_FrameMatchesEncodedMessage(t *testing.T) {
	msg := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            7,
		Markers:         []protocol.MarkerMsg{{Pos: [3]float64{0.5, 64, 0.5}, Style: "POINT"}},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := protocol.Validate(protocol.TypeFrame, b); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := protocol.Validate(protocol.TypeNotify, []byte(`{}`)); err != nil {
		t.Fatalf("types without schema should pass: %v", err)
	}
}
