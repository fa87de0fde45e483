package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dataset names the pipeline requires from the catalog.
const (
	DatasetState    = "state"
	DatasetCounties = "counties"
)

//go:embed datasets.yaml
var defaultCatalog []byte

// Dataset describes one downloadable boundary archive.
type Dataset struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	Dir       string `yaml:"dir"`
	Shapefile string `yaml:"shapefile"`
}

// Catalog is the set of boundary archives, keyed by name after loading.
type Catalog struct {
	Datasets []Dataset `yaml:"datasets"`
}

// Lookup returns the dataset with the given name.
func (c Catalog) Lookup(name string) (Dataset, bool) {
	for _, d := range c.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

// DirIn returns the extraction directory under dataDir.
func (d Dataset) DirIn(dataDir string) string {
	return filepath.Join(dataDir, d.Dir)
}

// ShapefileIn returns the path of the dataset's shapefile under dataDir.
func (d Dataset) ShapefileIn(dataDir string) string {
	return filepath.Join(dataDir, d.Dir, d.Shapefile)
}

// LoadCatalog reads the dataset catalog from path, or the embedded default
// when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Catalog{}, fmt.Errorf("read datasets file: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse datasets: %w", err)
	}
	for i, d := range c.Datasets {
		if d.Name == "" || d.URL == "" || d.Dir == "" || d.Shapefile == "" {
			return Catalog{}, fmt.Errorf("dataset %d: name, url, dir and shapefile are required", i)
		}
	}
	for _, name := range []string{DatasetState, DatasetCounties} {
		if _, ok := c.Lookup(name); !ok {
			return Catalog{}, errors.New("datasets: missing required dataset " + name)
		}
	}
	return c, nil
}
