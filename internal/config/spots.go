package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Spot is a stop whose wave sessions are analyzed
type Spot struct {
	ID     string `yaml:"id" validate:"required"`
	Name   string `yaml:"name" validate:"required"`
	StopID string `yaml:"stopId" validate:"required"`
}

type spotsFile struct {
	Spots []Spot `yaml:"spots" validate:"dive"`
}

// LoadSpots reads and validates the spots file
func LoadSpots(path string) ([]Spot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spots file: %w", err)
	}
	return ParseSpots(data)
}

// ParseSpots decodes a YAML spots document
func ParseSpots(data []byte) ([]Spot, error) {
	var f spotsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode spots: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid spots: %w", err)
	}

	seen := make(map[string]bool, len(f.Spots))
	for _, s := range f.Spots {
		if seen[s.ID] {
			return nil, fmt.Errorf("invalid spots: duplicate id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return f.Spots, nil
}
