package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mapsmith.ai/internal/protocol"
)

// Script is a canned operator session: inputs sent one per interval.
type Script struct {
	OperatorName string `yaml:"operator_name"`
	IntervalMS   int    `yaml:"interval_ms"`
	Steps        []Step `yaml:"steps"`
}

type Step struct {
	Input  string      `yaml:"input"`
	Start  *StartStep  `yaml:"start,omitempty"`
	Eye    *[3]float64 `yaml:"eye,omitempty"`
	Dir    *[3]float64 `yaml:"dir,omitempty"`
	Target *[3]float64 `yaml:"target,omitempty"`
	// Wait is the number of extra intervals to idle after sending.
	Wait int `yaml:"wait,omitempty"`
}

type StartStep struct {
	Kind     string `yaml:"kind"`
	Name     string `yaml:"name"`
	Layout   string `yaml:"layout,omitempty"`
	Template string `yaml:"template,omitempty"`
}

// defaultScript authors one 8x2x5 region called "arena".
const defaultScript = `
operator_name: bot
interval_ms: 100
steps:
  - input: START
    start: {kind: REGION, name: arena}
  - input: TARGET
    target: [0, 64, 0]
  - input: CONFIRM
  - input: TARGET
    target: [3, 64, 3]
  - input: CONFIRM
    wait: 2
  - input: POSE
    eye: [10, 64.5, 2]
    dir: [-1, 0, 0]
  - input: TRIGGER
  - input: POSE
    eye: [13, 64.5, 2]
    dir: [-1, 0, 0]
    wait: 2
  - input: CONFIRM
  - input: CONFIRM
`

func LoadScript(path string) (Script, error) {
	raw := []byte(defaultScript)
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Script{}, err
		}
		raw = b
	}
	var s Script
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Script{}, fmt.Errorf("script: %w", err)
	}
	if s.OperatorName == "" {
		s.OperatorName = "bot"
	}
	if s.IntervalMS <= 0 {
		s.IntervalMS = 100
	}
	if len(s.Steps) == 0 {
		return Script{}, fmt.Errorf("script: no steps")
	}
	for i, st := range s.Steps {
		if _, err := st.Encode(); err != nil {
			return Script{}, fmt.Errorf("script: step %d: %w", i, err)
		}
	}
	return s, nil
}

// Encode renders the step as a schema-valid INPUT message.
func (s Step) Encode() ([]byte, error) {
	m := protocol.InputMsg{
		Type:            protocol.TypeInput,
		ProtocolVersion: protocol.Version,
		Input:           strings.ToUpper(strings.TrimSpace(s.Input)),
		Eye:             s.Eye,
		Dir:             s.Dir,
		Target:          s.Target,
	}
	if s.Start != nil {
		m.Start = &protocol.StartParams{
			Kind:     strings.ToUpper(s.Start.Kind),
			Name:     s.Start.Name,
			Layout:   s.Start.Layout,
			Template: s.Start.Template,
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := protocol.Validate(protocol.TypeInput, b); err != nil {
		return nil, err
	}
	return b, nil
}
