// Package world provides world-generation presets for new clusters
package world

import (
	"os"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/constants"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/logger"

	"gopkg.in/yaml.v3"
)

// Preset is a named pair of per-shard worldgen override tables
type Preset struct {
	Overworld map[string]interface{} `yaml:"overworld"`
	Caves     map[string]interface{} `yaml:"caves"`
}

// builtins are the stock presets. User presets loaded from presets.yaml are
// merged over these by name.
var builtins = map[string]Preset{
	"default": {
		Overworld: map[string]interface{}{
			"location":      "forest",
			"season_start":  "default",
			"world_size":    "default",
			"branching":     "default",
			"loop":          "default",
			"specialevent":  "default",
			"autumn":        "default",
			"winter":        "default",
			"spring":        "default",
			"summer":        "default",
			"day":           "default",
			"resources":     "default",
			"unpredictable": "default",
		},
		Caves: map[string]interface{}{
			"location":      "caves",
			"season_start":  "default",
			"world_size":    "default",
			"branching":     "default",
			"loop":          "default",
			"specialevent":  "default",
			"day":           "default",
			"resources":     "default",
			"unpredictable": "default",
		},
	},
	"endless": {
		Overworld: map[string]interface{}{
			"location":      "forest",
			"season_start":  "autumn",
			"world_size":    "huge",
			"branching":     "most",
			"loop":          "default",
			"specialevent":  "default",
			"autumn":        "very_long",
			"winter":        "very_long",
			"spring":        "very_long",
			"summer":        "very_long",
			"day":           "long",
			"resources":     "plenty",
			"unpredictable": "never",
		},
		Caves: map[string]interface{}{
			"location":      "caves",
			"season_start":  "autumn",
			"world_size":    "huge",
			"branching":     "most",
			"loop":          "default",
			"specialevent":  "default",
			"day":           "long",
			"resources":     "plenty",
			"unpredictable": "never",
		},
	},
	"wilderness": {
		Overworld: map[string]interface{}{
			"location":      "forest",
			"season_start":  "autumn",
			"world_size":    "default",
			"branching":     "random",
			"loop":          "never",
			"specialevent":  "often",
			"autumn":        "random",
			"winter":        "random",
			"spring":        "random",
			"summer":        "random",
			"day":           "default",
			"resources":     "default",
			"unpredictable": "always",
		},
		Caves: map[string]interface{}{
			"location":      "caves",
			"season_start":  "autumn",
			"world_size":    "default",
			"branching":     "random",
			"loop":          "never",
			"specialevent":  "often",
			"day":           "default",
			"resources":     "default",
			"unpredictable": "always",
		},
	},
}

// Catalog resolves preset names to override tables
type Catalog struct {
	presets map[string]Preset
}

// NewCatalog builds a catalog from the builtin presets plus any user
// presets found at presetsPath. A missing file is not an error; a malformed
// file is logged and skipped so a bad presets.yaml never blocks the kit.
func NewCatalog(presetsPath string) *Catalog {
	presets := make(map[string]Preset, len(builtins))
	for name, p := range builtins {
		presets[name] = p
	}

	if presetsPath != "" {
		if data, err := os.ReadFile(presetsPath); err == nil {
			var user map[string]Preset
			if err := yaml.Unmarshal(data, &user); err != nil {
				logger.WithError(err).WithField("path", presetsPath).
					Warn("Ignoring malformed presets file")
			} else {
				for name, p := range user {
					presets[name] = p
				}
			}
		}
	}

	return &Catalog{presets: presets}
}

// Names returns the available preset names
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.presets))
	for name := range c.presets {
		names = append(names, name)
	}
	return names
}

// Apply resolves a preset into per-shard override tables, with optional
// caller overrides merged on top. The result is keyed by shard name and
// feeds straight into the cluster renderer.
func (c *Catalog) Apply(preset string, overrides map[string]map[string]interface{}) (map[string]map[string]interface{}, error) {
	p, ok := c.presets[preset]
	if !ok {
		return nil, errors.InvalidPreset(preset)
	}

	result := map[string]map[string]interface{}{
		constants.ShardMaster: copyTable(p.Overworld),
		constants.ShardCaves:  copyTable(p.Caves),
	}

	for shard, table := range overrides {
		if _, ok := result[shard]; !ok {
			result[shard] = map[string]interface{}{}
		}
		for k, v := range table {
			result[shard][k] = v
		}
	}

	return result, nil
}

func copyTable(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
