// Package config holds the run configuration of spec.md §6
// ("Configuration"). Load reads an optional YAML file over the defaults;
// the mapextract command does not call it and builds its Config from
// Default() and its CLI flags. Grounded on the pack's config.go pattern
// (wegman-software-osm2pgsql-go/internal/config).
package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MaxClassIndex is the exclusive upper bound on a class bitmask index
// (legal indices are 0..MaxClassIndex-1, spec.md §6).
const MaxClassIndex = 32

// MaxExcludableClasses bounds how many excludable-class combinations a
// profile may declare (spec.md §6).
const MaxExcludableClasses = 8

// DefaultSmallComponentThreshold is the default SCC "tiny" cutoff
// (spec.md §4.6 / §6).
const DefaultSmallComponentThreshold = 1000

var classNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Config is the full run configuration.
type Config struct {
	InputPath          string `yaml:"input_path"`
	OutputPrefix       string `yaml:"output_prefix"`
	ProfilePath        string `yaml:"profile_path"`
	RequestedThreads   int    `yaml:"threads"`
	SmallComponentSize int    `yaml:"small_component_size"`
	UseMetadata        bool   `yaml:"use_metadata"`
	UseLocationsCache  bool   `yaml:"use_locations_cache"`
	ParseConditionals  bool   `yaml:"parse_conditionals"`
	Debug              bool   `yaml:"debug"`

	// ClassNames maps a class name to its bit index (< MaxClassIndex).
	// Populated from the profile at startup, not from YAML, but left
	// exported so validation (and tests) can drive it directly.
	ClassNames map[string]int `yaml:"-"`
	// ExcludableClasses lists combinations of class names that are
	// mutually exclusive for routing purposes (spec.md §6).
	ExcludableClasses [][]string `yaml:"-"`

	// SpatialLeafSize / SpatialFanout tune the R-tree build of C11.
	SpatialLeafSize int `yaml:"spatial_leaf_size"`
	SpatialFanout   int `yaml:"spatial_fanout"`
}

// Default returns a Config with every documented default applied.
func Default() *Config {
	return &Config{
		RequestedThreads:   0,
		SmallComponentSize: DefaultSmallComponentThreshold,
		SpatialLeafSize:    128,
		SpatialFanout:      4,
	}
}

// Load reads a YAML configuration file and merges it onto Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config file")
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config file")
	}
	return cfg, nil
}

// ResolvedThreads returns min(RequestedThreads, available cores), with 0
// meaning "auto" (spec.md §5 "Scheduling model").
func (c *Config) ResolvedThreads() int {
	avail := runtime.GOMAXPROCS(0)
	if c.RequestedThreads <= 0 || c.RequestedThreads > avail {
		return avail
	}
	return c.RequestedThreads
}

// Validate checks the class-name and class-count rules of spec.md §6.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input_path is required")
	}
	if c.OutputPrefix == "" {
		return errors.New("output_prefix is required")
	}
	if len(c.ClassNames) > MaxClassIndex {
		return fmt.Errorf("too many classes: %d > max %d", len(c.ClassNames), MaxClassIndex)
	}
	for name, idx := range c.ClassNames {
		if !classNamePattern.MatchString(name) {
			return fmt.Errorf("class name %q must match [A-Za-z0-9]+", name)
		}
		if idx >= MaxClassIndex {
			return fmt.Errorf("class %q index %d exceeds MAX_CLASS_INDEX %d", name, idx, MaxClassIndex)
		}
	}
	if len(c.ExcludableClasses) > MaxExcludableClasses {
		return fmt.Errorf("too many excludable class combinations: %d > max %d", len(c.ExcludableClasses), MaxExcludableClasses)
	}
	for _, combo := range c.ExcludableClasses {
		for _, name := range combo {
			if _, ok := c.ClassNames[name]; !ok {
				return fmt.Errorf("excludable class combination references unknown class %q", name)
			}
		}
	}
	if c.SmallComponentSize <= 0 {
		c.SmallComponentSize = DefaultSmallComponentThreshold
	}
	return nil
}
