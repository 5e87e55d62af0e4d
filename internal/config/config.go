// Package config loads the entity manifest that seeds a link's registry and
// keeps the registry in sync with the file while it changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var (
	ErrManifestInvalid = errors.New("config: invalid manifest")
)

// Manifest lists the entities streamed by a link.
type Manifest struct {
	Name     string         `toml:"name"`
	Entities []EntityConfig `toml:"entities"`
}

// EntityConfig is one manifest entry. Rotation is Euler angles in degrees.
type EntityConfig struct {
	ID       string      `toml:"id"`
	Index    int         `toml:"index"`
	Color    string      `toml:"color"`
	Diameter float64     `toml:"diameter"`
	Length   float64     `toml:"length"`
	Position [3]float64  `toml:"position"`
	Rotation [3]float64  `toml:"rotation"`
	Scale    *[3]float64 `toml:"scale"`
}

func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	if err := loadToml(path, &m); err != nil {
		return Manifest{}, err
	}
	if m.Name == "" {
		m.Name = "default"
	}
	if err := ValidateManifest(m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateManifest(m Manifest) error {
	seen := make(map[string]int, len(m.Entities))
	for i, e := range m.Entities {
		if err := ValidateEntity(e); err != nil {
			return fmt.Errorf("%w: entities[%d]: %v", ErrManifestInvalid, i, err)
		}
		if prev, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: entities[%d] duplicates id %q from entities[%d]", ErrManifestInvalid, i, e.ID, prev)
		}
		seen[e.ID] = i
	}
	return nil
}

func ValidateEntity(e EntityConfig) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.Contains(e.ID, "Screw") && (e.Diameter <= 0 || e.Length <= 0) {
		return fmt.Errorf("screw %q needs positive diameter and length", e.ID)
	}
	if e.Scale != nil {
		for _, v := range e.Scale {
			if v == 0 {
				return fmt.Errorf("entity %q has a zero scale component", e.ID)
			}
		}
	}
	return nil
}
