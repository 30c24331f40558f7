package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeInput   = "INPUT"
	TypeFrame   = "FRAME"
	TypeStatus  = "STATUS"
	TypeNotify  = "NOTIFY"
	TypeError   = "ERROR"
)

// Input kinds carried by INPUT.
const (
	InputStart   = "START"
	InputPose    = "POSE"
	InputTrigger = "TRIGGER"
	InputTarget  = "TARGET"
	InputConfirm = "CONFIRM"
	InputAbandon = "ABANDON"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
