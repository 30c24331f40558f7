package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	OperatorName    string     `json:"operator_name"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	OperatorID      string    `json:"operator_id"`
	MapName         string    `json:"map_name"`
	Params          MapParams `json:"params"`
	Layouts         []string  `json:"layouts,omitempty"`
}

type MapParams struct {
	TickRateHz       int     `json:"tick_rate_hz"`
	RenderInterval   float64 `json:"render_interval"`
	TriggerCooldown  int     `json:"trigger_cooldown_ticks"`
	SessionIdleTicks int     `json:"session_idle_ticks,omitempty"`
}

// INPUT (client -> server). Which fields are set depends on Input.
type InputMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Input           string      `json:"input"`
	Start           *StartParams  `json:"start,omitempty"`
	Eye             *[3]float64 `json:"eye,omitempty"`
	Dir             *[3]float64 `json:"dir,omitempty"`
	Target          *[3]float64 `json:"target,omitempty"`
}

type StartParams struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Layout   string `json:"layout,omitempty"`
	Template string `json:"template,omitempty"`
}

// FRAME (server -> all clients): markers requested during one tick.
type FrameMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Markers         []MarkerMsg `json:"markers"`
}

type MarkerMsg struct {
	Pos   [3]float64 `json:"pos"`
	Style string     `json:"style"`
}

// STATUS (server -> client): replaces the operator's status line.
type StatusMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// NOTIFY (server -> client): one-off message.
type NotifyMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
