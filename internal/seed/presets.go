package seed

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPresetsPath is where cmd/seed looks for presets, relative to the
// backend root.
const DefaultPresetsPath = "seed/presets.yml"

// Preset sizes one seeding run.
type Preset struct {
	Name            string  `yaml:"name"`
	Users           int     `yaml:"users"`
	PostsPerUser    int     `yaml:"posts_per_user"`
	FollowDensity   float64 `yaml:"follow_density"`
	LikeDensity     float64 `yaml:"like_density"`
	BookmarkDensity float64 `yaml:"bookmark_density"`
	ReplyRatio      float64 `yaml:"reply_ratio"`
	Communities     bool    `yaml:"communities"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Validate checks counts are non-negative and densities are probabilities.
func (p Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset name is required")
	}
	if p.Users < 0 || p.PostsPerUser < 0 {
		return fmt.Errorf("preset %s: counts must not be negative", p.Name)
	}
	for field, v := range map[string]float64{
		"follow_density":   p.FollowDensity,
		"like_density":     p.LikeDensity,
		"bookmark_density": p.BookmarkDensity,
		"reply_ratio":      p.ReplyRatio,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("preset %s: %s must be between 0 and 1", p.Name, field)
		}
	}
	return nil
}

// ParsePresets decodes a presets document keyed by lowercase name.
func ParsePresets(raw []byte) (map[string]Preset, error) {
	var doc presetFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	presets := make(map[string]Preset, len(doc.Presets))
	for _, p := range doc.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if _, dup := presets[key]; dup {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		presets[key] = p
	}
	return presets, nil
}

// LoadPresets reads and parses a presets file.
func LoadPresets(path string) (map[string]Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(raw)
}

// Lookup finds a preset by case-insensitive name.
func Lookup(presets map[string]Preset, name string) (Preset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(presets))
		for n := range presets {
			names = append(names, n)
		}
		sort.Strings(names)
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
	}
	return p, nil
}
