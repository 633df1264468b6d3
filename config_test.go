package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.TPS != 60 {
		t.Errorf("default tps = %d, want 60", cfg.TPS)
	}
	if !cfg.EntitiesEnabled || !cfg.RoomsEnabled {
		t.Errorf("entities/rooms should default to enabled")
	}
	if len(cfg.Maps) == 0 {
		t.Errorf("defaults carry no maps")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
addr: ":9000"
tps: 30
require_login: true
lobby:
  max_players: 16
room:
  rest_timeout: 2.5
  starting_room: Hub
maps:
  - name: Hub
    width: 640
    height: 480
    start_positions:
      - {x: 100, y: 50}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.TPS != 30 {
		t.Errorf("addr/tps = %q/%d", cfg.Addr, cfg.TPS)
	}
	if !cfg.RequireLogin {
		t.Errorf("require_login not parsed")
	}
	if cfg.Lobby.MaxPlayers != 16 {
		t.Errorf("max_players = %d", cfg.Lobby.MaxPlayers)
	}
	if cfg.Room.RestTimeout != 2.5 || cfg.Room.StartingRoom != "Hub" {
		t.Errorf("room config = %+v", cfg.Room)
	}
	if len(cfg.Maps) != 1 || cfg.Maps[0].Name != "Hub" {
		t.Fatalf("maps = %+v", cfg.Maps)
	}
	if got := cfg.Maps[0].StartPositions[0]; got.X != 100 || got.Y != 50 {
		t.Errorf("start position = %v", got)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		c := defaultConfig()
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tps", func(c *Config) { c.TPS = 0 }},
		{"no maps", func(c *Config) { c.Maps = nil }},
		{"empty map name", func(c *Config) { c.Maps[0].Name = "" }},
		{"duplicate map name", func(c *Config) {
			c.Maps = append(c.Maps, c.Maps[0])
		}},
		{"zero width", func(c *Config) { c.Maps[0].Width = 0 }},
		{"unknown starting room", func(c *Config) { c.Room.StartingRoom = "Atlantis" }},
	}
	for _, tt := range tests {
		cfg := base()
		tt.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tt.name)
		}
	}

	// starting room only matters while rooms are enabled
	cfg := base()
	cfg.RoomsEnabled = false
	cfg.Room.StartingRoom = "Atlantis"
	if err := cfg.Validate(); err != nil {
		t.Errorf("starting room should be ignored with rooms disabled: %v", err)
	}
}
