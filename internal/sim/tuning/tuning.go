package tuning

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mapsmith.ai/internal/sim/authoring"
	"mapsmith.ai/internal/sim/tasks"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`
	MapName         string `yaml:"map_name"`

	TickRateHz           int     `yaml:"tick_rate_hz"`
	RenderInterval       float64 `yaml:"render_interval"`
	RenderEveryTicks     int     `yaml:"render_every_ticks"`
	TriggerCooldownTicks int     `yaml:"trigger_cooldown_ticks"`
	Reach                float64 `yaml:"reach"`
	SessionIdleTicks     int     `yaml:"session_idle_ticks"`
	InboxSize            int     `yaml:"inbox_size"`

	Layouts map[string]authoring.Layout `yaml:"layouts"`
}

func Defaults() Tuning {
	s := tasks.DefaultSettings()
	return Tuning{
		ProtocolVersion:      "1.0",
		MapName:              "default",
		TickRateHz:           20,
		RenderInterval:       s.RenderInterval,
		RenderEveryTicks:     s.RenderEveryTicks,
		TriggerCooldownTicks: s.TriggerCooldownTicks,
		Reach:                s.Reach,
		InboxSize:            1024,
		Layouts: map[string]authoring.Layout{
			"island": {
				Kind:    "ISLAND",
				Points:  []string{"spawn", "generator"},
				Regions: []string{"base", "build_area"},
			},
			"mid": {
				Kind:    "MID",
				Points:  []string{"generator"},
				Regions: []string{"build_area"},
			},
		},
	}
}

// Load reads path over Defaults. An empty path returns the defaults. A file
// that defines layouts replaces the built-in set rather than extending it.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	builtin := t.Layouts
	t.Layouts = nil
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.Layouts == nil {
		t.Layouts = builtin
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	t.MapName = strings.TrimSpace(t.MapName)
	for name, l := range t.Layouts {
		l.Kind = strings.ToUpper(strings.TrimSpace(l.Kind))
		if l.Kind == "" {
			l.Kind = strings.ToUpper(name)
		}
		t.Layouts[name] = l
	}
}

func (t Tuning) Validate() error {
	if t.MapName == "" {
		return fmt.Errorf("map_name must not be empty")
	}
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.RenderInterval <= 0 {
		return fmt.Errorf("render_interval must be > 0")
	}
	if t.RenderEveryTicks <= 0 {
		return fmt.Errorf("render_every_ticks must be > 0")
	}
	if t.TriggerCooldownTicks < 0 {
		return fmt.Errorf("trigger_cooldown_ticks must be >= 0")
	}
	if t.Reach <= 0 {
		return fmt.Errorf("reach must be > 0")
	}
	if t.SessionIdleTicks < 0 {
		return fmt.Errorf("session_idle_ticks must be >= 0")
	}
	names := make([]string, 0, len(t.Layouts))
	for name := range t.Layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		l := t.Layouts[name]
		seen := map[string]bool{}
		for _, slot := range append(append([]string(nil), l.Points...), l.Regions...) {
			if strings.TrimSpace(slot) == "" {
				return fmt.Errorf("layout %s has an empty slot name", name)
			}
			if seen[slot] {
				return fmt.Errorf("layout %s duplicate slot: %s", name, slot)
			}
			seen[slot] = true
		}
	}
	return nil
}

// Settings projects the per-session knobs.
func (t Tuning) Settings() tasks.Settings {
	return tasks.Settings{
		RenderInterval:       t.RenderInterval,
		RenderEveryTicks:     t.RenderEveryTicks,
		TriggerCooldownTicks: t.TriggerCooldownTicks,
		Reach:                t.Reach,
	}
}
