package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AllGenres selects every genre, concatenated in manifest order.
const AllGenres = "all"

// Manifest is the on-disk gallery catalog.
type Manifest struct {
	Owner  string  `yaml:"owner"`
	Genres []Genre `yaml:"genres"`
}

// Genre is a named group of images. Images may be listed explicitly,
// generated from a pattern, or both (explicit entries first).
type Genre struct {
	Key     string   `yaml:"key"`
	Label   string   `yaml:"label"`
	Images  []Entry  `yaml:"images"`
	Pattern *Pattern `yaml:"pattern"`
}

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Genres))
	for i, g := range m.Genres {
		if g.Key == "" {
			return nil, fmt.Errorf("genre %d has no key", i)
		}
		if g.Key == AllGenres {
			return nil, fmt.Errorf("genre key %q is reserved", AllGenres)
		}
		if seen[g.Key] {
			return nil, fmt.Errorf("duplicate genre key %q", g.Key)
		}
		seen[g.Key] = true
	}
	return &m, nil
}

// Keys returns the genre keys in manifest order.
func (m *Manifest) Keys() []string {
	keys := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		keys = append(keys, g.Key)
	}
	return keys
}

// Images returns the catalog for a genre key, or every genre for AllGenres
// (or the empty string).
func (m *Manifest) Images(key string) ([]Image, error) {
	if key == "" || key == AllGenres {
		var all []Image
		for _, g := range m.Genres {
			imgs, err := g.images()
			if err != nil {
				return nil, err
			}
			all = append(all, imgs...)
		}
		return all, nil
	}

	for _, g := range m.Genres {
		if g.Key == key {
			return g.images()
		}
	}
	return nil, fmt.Errorf("unknown genre %q", key)
}

func (g Genre) images() ([]Image, error) {
	out, err := Normalize(g.Images)
	if err != nil {
		return nil, fmt.Errorf("genre %s: %w", g.Key, err)
	}
	if g.Pattern != nil {
		out = append(out, g.Pattern.Generate()...)
	}
	return out, nil
}
