// Package scenario reads analysis job files so a run can be described
// once in YAML and repeated.
package scenario

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Scenario describes one analysis run: the two sources plus parameter
// overrides. Zero values defer to configuration defaults.
type Scenario struct {
	Name       string  `yaml:"name"`
	Facilities string  `yaml:"facilities"`
	Districts  string  `yaml:"districts"`
	Capacity   int     `yaml:"capacity"`
	Radius     float64 `yaml:"radius"`
	NameAttr   string  `yaml:"name_attr"`
	PopAttr    string  `yaml:"pop_attr"`
	Format     string  `yaml:"format"`
	Output     string  `yaml:"output"`
}

// Load reads a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read %s", path)
	}

	// The YAML has a top-level "scenario" key.
	var wrapper struct {
		Scenario Scenario `yaml:"scenario"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "scenario: parse %s", path)
	}

	s := &wrapper.Scenario
	if s.Name == "" {
		base := filepath.Base(path)
		s.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// validate checks presence of the two sources and a known format.
// Parameter values are checked where they are consumed, so a bad
// capacity fails its section instead of the whole file.
func (s *Scenario) validate() error {
	if s.Facilities == "" {
		return eris.New("scenario: facilities source is required")
	}
	if s.Districts == "" {
		return eris.New("scenario: districts source is required")
	}
	switch s.Format {
	case "", "text", "json", "xlsx":
	default:
		return eris.Errorf("scenario: unknown format %q", s.Format)
	}
	return nil
}
