package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if got.TickRateHz != 20 || got.RenderEveryTicks != 10 || got.TriggerCooldownTicks != 4 {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func TestLoad_RepoConfig(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.MapName != "sky-islands" {
		t.Fatalf("map_name=%q", got.MapName)
	}
	shop, ok := got.Layouts["shop"]
	if !ok || shop.Kind != "SHOP" || len(shop.Points) != 1 {
		t.Fatalf("shop=%+v ok=%v", shop, ok)
	}
	if s := got.Settings(); s.Reach != 5 || s.RenderInterval != 1 {
		t.Fatalf("settings=%+v", s)
	}
}

func TestLoad_OverridesAndValidates(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  string
	}{
		{name: "tick rate", body: "tick_rate_hz: 0\n", err: "tick_rate_hz"},
		{name: "interval", body: "render_interval: -1\n", err: "render_interval"},
		{name: "idle", body: "session_idle_ticks: -5\n", err: "session_idle_ticks"},
		{name: "dup slot", body: "layouts:\n  x:\n    points: [a]\n    regions: [a]\n", err: "duplicate slot"},
		{name: "bad yaml", body: "tick_rate_hz: [\n", err: "tuning.yaml"},
	}
	for _, c := range cases {
		_, err := Load(writeFile(t, c.body))
		if err == nil || !strings.Contains(err.Error(), c.err) {
			t.Fatalf("%s: err=%v want %q", c.name, err, c.err)
		}
	}

	got, err := Load(writeFile(t, "tick_rate_hz: 5\nsession_idle_ticks: 600\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TickRateHz != 5 || got.SessionIdleTicks != 600 || got.Reach != 5 {
		t.Fatalf("got %+v", got)
	}
}

func TestLoad_LayoutsReplaceBuiltins(t *testing.T) {
	got, err := Load(writeFile(t, "layouts:\n  arena:\n    points: [spawn]\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Layouts) != 1 {
		t.Fatalf("layouts=%v want only arena", got.Layouts)
	}
	if _, ok := got.Layouts["arena"]; !ok {
		t.Fatalf("arena missing: %v", got.Layouts)
	}

	got, err = Load(writeFile(t, "tick_rate_hz: 5\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := got.Layouts["island"]; !ok || len(got.Layouts) != 2 {
		t.Fatalf("built-in layouts lost: %v", got.Layouts)
	}
}
