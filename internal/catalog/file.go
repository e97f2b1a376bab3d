package catalog

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ionlab/internal/exchange"
)

type catalogFile struct {
	Ions []exchange.Ion `yaml:"ions"`
}

// LoadFile reads a yaml ion list into a fresh catalog. Entries are added in
// file order so All() preserves it.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := New()
	for _, ion := range f.Ions {
		if err := c.Add(ion); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func SaveFile(path string, c *Catalog) error {
	data, err := yaml.Marshal(catalogFile{Ions: c.All()})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
