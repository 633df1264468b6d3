package main

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// contentsSchema describes the serialized-entity list stored in a map's
// contents field. Entities that fail it are rejected at startup instead of
// surfacing as half-parsed entities mid-game.
const contentsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["type", "x", "y"],
		"properties": {
			"id": {"type": "string"},
			"type": {"type": "string", "minLength": 1},
			"object_name": {"type": "string"},
			"x": {"type": "number"},
			"y": {"type": "number"},
			"xscale": {"type": "number"},
			"yscale": {"type": "number"},
			"spd": {
				"type": "object",
				"properties": {
					"x": {"type": "number"},
					"y": {"type": "number"}
				}
			},
			"props": {"type": "object"}
		}
	}
}`

// GameMap is the static description of one room's region: bounds, initial
// contents and spawn slots.
type GameMap struct {
	Name           string
	Width          float64
	Height         float64
	Contents       string
	StartPositions []Vec2
}

// MapInfo is the wire-visible summary of a map.
type MapInfo struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GetStartPos returns the spawn position for the given player slot, cycling
// through the configured positions.
func (m *GameMap) GetStartPos(slot int) Vec2 {
	if len(m.StartPositions) == 0 {
		return Vec2{X: m.Width / 2, Y: m.Height / 2}
	}
	if slot < 0 {
		slot = 0
	}
	return m.StartPositions[slot%len(m.StartPositions)]
}

// GetInfo returns the map's wire-visible summary.
func (m *GameMap) GetInfo() MapInfo {
	return MapInfo{Name: m.Name, Width: m.Width, Height: m.Height}
}

// MapRegistry holds every configured map. It is built once at startup and
// passed explicitly to lobbies and rooms.
type MapRegistry struct {
	maps []*GameMap
}

// BuildMapRegistry validates the configured maps and their contents against
// the serialized-entity schema.
func BuildMapRegistry(cfg *Config) (*MapRegistry, error) {
	compiler := jsonschema.NewCompiler()
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(contentsSchema))
	if err != nil {
		return nil, err
	}
	if err := compiler.AddResource("contents.json", schemaDoc); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("contents.json")
	if err != nil {
		return nil, err
	}

	reg := &MapRegistry{}
	for _, spec := range cfg.Maps {
		contents := spec.Contents
		if strings.TrimSpace(contents) == "" {
			contents = "[]"
		}
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(contents))
		if err != nil {
			return nil, fmt.Errorf("map %q: contents is not valid JSON: %w", spec.Name, err)
		}
		if err := schema.Validate(doc); err != nil {
			return nil, fmt.Errorf("map %q: invalid contents: %w", spec.Name, err)
		}
		reg.maps = append(reg.maps, &GameMap{
			Name:           spec.Name,
			Width:          spec.Width,
			Height:         spec.Height,
			Contents:       contents,
			StartPositions: spec.StartPositions,
		})
	}
	return reg, nil
}

// FindByName returns the map with the given name, or nil.
func (r *MapRegistry) FindByName(name string) *GameMap {
	for _, m := range r.maps {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// All returns every registered map in configuration order.
func (r *MapRegistry) All() []*GameMap {
	return r.maps
}
