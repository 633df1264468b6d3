package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all server settings, loaded from a YAML file.
type Config struct {
	Addr       string `yaml:"addr"`
	TPS        int    `yaml:"tps"`
	DBPath     string `yaml:"db_path"`
	JournalDir string `yaml:"journal_dir"` // "" disables the event journal

	EntitiesEnabled bool `yaml:"entities_enabled"`
	RoomsEnabled    bool `yaml:"rooms_enabled"`
	RequireLogin    bool `yaml:"require_login"`
	VerboseLag      bool `yaml:"verbose_lag"`

	Lobby LobbyConfig `yaml:"lobby"`
	Room  RoomConfig  `yaml:"room"`

	Maps []MapSpec `yaml:"maps"`
}

// LobbyConfig holds lobby capacity settings.
type LobbyConfig struct {
	MaxPlayers int `yaml:"max_players"` // 0 = unlimited
}

// RoomConfig holds per-room simulation settings.
type RoomConfig struct {
	// RestTimeout is how long (seconds) a room may sit empty before its tick
	// stops processing entities. <= 0 means rooms never rest.
	RestTimeout  float64 `yaml:"rest_timeout"`
	StartingRoom string  `yaml:"starting_room"`
}

// MapSpec describes one map in the config file.
type MapSpec struct {
	Name           string `yaml:"name"`
	Width          float64 `yaml:"width"`
	Height         float64 `yaml:"height"`
	Contents       string `yaml:"contents"` // JSON array of serialized entities
	StartPositions []Vec2 `yaml:"start_positions"`
}

// LoadConfig reads the config file at path, applying defaults for anything
// unset. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Addr:            ":8080",
		TPS:             60,
		DBPath:          "overworld.db",
		EntitiesEnabled: true,
		RoomsEnabled:    true,
		Lobby:           LobbyConfig{MaxPlayers: 0},
		Room: RoomConfig{
			RestTimeout:  5,
			StartingRoom: "Overworld",
		},
		Maps: []MapSpec{
			{
				Name:           "Overworld",
				Width:          1344,
				Height:         768,
				Contents:       "[]",
				StartPositions: []Vec2{{X: 128, Y: 128}},
			},
		},
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.TPS <= 0 {
		return fmt.Errorf("tps must be positive, got %d", c.TPS)
	}
	if len(c.Maps) == 0 {
		return fmt.Errorf("at least one map is required")
	}
	names := make(map[string]bool, len(c.Maps))
	for _, m := range c.Maps {
		if m.Name == "" {
			return fmt.Errorf("map with empty name")
		}
		if names[m.Name] {
			return fmt.Errorf("duplicate map name %q", m.Name)
		}
		names[m.Name] = true
		if m.Width <= 0 || m.Height <= 0 {
			return fmt.Errorf("map %q: width/height must be positive", m.Name)
		}
	}
	if c.RoomsEnabled && !names[c.Room.StartingRoom] {
		return fmt.Errorf("starting_room %q is not a configured map", c.Room.StartingRoom)
	}
	return nil
}
