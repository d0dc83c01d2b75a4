package sources

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Brand maps a host substring to a friendly label.
type Brand struct {
	Match string `yaml:"match" json:"match"`
	Label string `yaml:"label" json:"label"`
}

// BrandFile is the on-disk layout of a brand table.
type BrandFile struct {
	Brands []Brand `yaml:"brands"`
}

// DefaultBrands is the built-in table. More specific matches come first.
func DefaultBrands() []Brand {
	return []Brand{
		{Match: "madewithnestle", Label: "Made with Nestlé"},
		{Match: "nestle", Label: "Nestlé Official"},
	}
}

// ParseBrands decodes a YAML brand table. Entries are kept in file order and
// matches are lowercased.
func ParseBrands(data []byte) ([]Brand, error) {
	var f BrandFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse brand table: %w", err)
	}

	brands := make([]Brand, 0, len(f.Brands))
	for i, b := range f.Brands {
		b.Match = strings.ToLower(strings.TrimSpace(b.Match))
		b.Label = strings.TrimSpace(b.Label)
		if b.Match == "" || b.Label == "" {
			return nil, fmt.Errorf("brand entry %d: match and label are required", i)
		}
		brands = append(brands, b)
	}
	return brands, nil
}

// LoadBrands reads a YAML brand table from path.
func LoadBrands(path string) ([]Brand, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read brand table %s: %w", path, err)
	}
	return ParseBrands(data)
}

// matchBrand returns the first entry whose match occurs in host.
func matchBrand(brands []Brand, host string) (Brand, bool) {
	for _, b := range brands {
		if strings.Contains(host, b.Match) {
			return b, true
		}
	}
	return Brand{}, false
}
