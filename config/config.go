// Package config provides configuration loading and management for semform.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ssconfig "github.com/c360studio/semstreams/config"
	"gopkg.in/yaml.v3"
)

// Config represents the complete semform configuration
type Config struct {
	// Languages orders label and language-tag selection, most preferred first
	Languages []string          `yaml:"languages"`
	Prefixes  map[string]string `yaml:"prefixes"`
	Sources   SourcesConfig     `yaml:"sources"`
	Resolve   ResolveConfig     `yaml:"resolve"`
	Emit      EmitConfig        `yaml:"emit"`
	Loader    LoaderConfig      `yaml:"loader"`
	Metrics   MetricsConfig     `yaml:"metrics"`
}

// SourcesConfig lists the documents to load. Entries may be files,
// directories or glob patterns.
type SourcesConfig struct {
	Shapes  []string `yaml:"shapes"`
	Data    []string `yaml:"data"`
	Imports []string `yaml:"imports"`
}

// ResolveConfig configures template resolution
type ResolveConfig struct {
	// RootShape is the IRI of the shape to render (empty = first root shape)
	RootShape string `yaml:"root_shape"`
	// MaxDepth bounds fresh nested node creation
	MaxDepth int `yaml:"max_depth"`
	// Subclasses includes rdfs:subClassOf descendants in class options
	Subclasses bool `yaml:"subclasses"`
	// RemoveLists deletes consumed rdf:first/rdf:rest triples from the store
	RemoveLists bool `yaml:"remove_lists"`
}

// EmitConfig configures RDF output
type EmitConfig struct {
	// Format is one of turtle, ntriples, jsonld
	Format string `yaml:"format"`
	// MintBase is the IRI prefix for new subjects (empty = blank nodes)
	MintBase string `yaml:"mint_base"`
	// ConformsTo emits dcterms:conformsTo from the root to its shape
	ConformsTo bool `yaml:"conforms_to"`
}

// LoaderConfig configures document loading
type LoaderConfig struct {
	// FollowImports loads owl:imports targets
	FollowImports bool `yaml:"follow_imports"`
	// Concurrency bounds parallel parsing
	Concurrency int `yaml:"concurrency"`
	// ClassCacheSize bounds the class instance cache (0 disables the provider)
	ClassCacheSize int `yaml:"class_cache_size"`
	// InstancesDir holds <class local name>.ttl files served as class instances
	InstancesDir string `yaml:"instances_dir"`
	// Timeout bounds one load
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

var emitFormats = map[string]bool{"turtle": true, "ntriples": true, "jsonld": true}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Languages: []string{"en"},
		Resolve: ResolveConfig{
			MaxDepth: 3,
		},
		Emit: EmitConfig{
			Format: "turtle",
		},
		Loader: LoaderConfig{
			FollowImports:  false,
			Concurrency:    4,
			ClassCacheSize: 256,
			Timeout:        30 * time.Second,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Resolve.MaxDepth < 1 {
		return fmt.Errorf("resolve.max_depth must be at least 1")
	}
	if !emitFormats[c.Emit.Format] {
		return fmt.Errorf("emit.format %q is not one of turtle, ntriples, jsonld", c.Emit.Format)
	}
	if c.Emit.MintBase != "" && !strings.Contains(c.Emit.MintBase, ":") {
		return fmt.Errorf("emit.mint_base must be an absolute IRI")
	}
	if c.Loader.Concurrency < 1 {
		return fmt.Errorf("loader.concurrency must be at least 1")
	}
	if c.Loader.ClassCacheSize < 0 {
		return fmt.Errorf("loader.class_cache_size must not be negative")
	}
	if c.Loader.Timeout < 0 {
		return fmt.Errorf("loader.timeout must not be negative")
	}
	for prefix, ns := range c.Prefixes {
		if ns == "" {
			return fmt.Errorf("prefix %q has an empty namespace", prefix)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. ${VAR} and
// ${VAR:-default} references are expanded before parsing.
func LoadFromFile(path string) (*Config, error) {
	return loadInto(path, DefaultConfig())
}

// loadLayer loads a YAML file without defaults, so that Merge only applies
// the values the file sets.
func loadLayer(path string) (*Config, error) {
	return loadInto(path, &Config{})
}

func loadInto(path string, config *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := ssconfig.ExpandEnvWithDefaults(string(data))
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Languages) > 0 {
		c.Languages = other.Languages
	}
	for prefix, ns := range other.Prefixes {
		if c.Prefixes == nil {
			c.Prefixes = make(map[string]string, len(other.Prefixes))
		}
		c.Prefixes[prefix] = ns
	}

	// Sources
	if len(other.Sources.Shapes) > 0 {
		c.Sources.Shapes = other.Sources.Shapes
	}
	if len(other.Sources.Data) > 0 {
		c.Sources.Data = other.Sources.Data
	}
	if len(other.Sources.Imports) > 0 {
		c.Sources.Imports = other.Sources.Imports
	}

	// Resolve
	if other.Resolve.RootShape != "" {
		c.Resolve.RootShape = other.Resolve.RootShape
	}
	if other.Resolve.MaxDepth != 0 {
		c.Resolve.MaxDepth = other.Resolve.MaxDepth
	}
	if other.Resolve.Subclasses {
		c.Resolve.Subclasses = true
	}
	if other.Resolve.RemoveLists {
		c.Resolve.RemoveLists = true
	}

	// Emit
	if other.Emit.Format != "" {
		c.Emit.Format = other.Emit.Format
	}
	if other.Emit.MintBase != "" {
		c.Emit.MintBase = other.Emit.MintBase
	}
	if other.Emit.ConformsTo {
		c.Emit.ConformsTo = true
	}

	// Loader
	if other.Loader.FollowImports {
		c.Loader.FollowImports = true
	}
	if other.Loader.Concurrency != 0 {
		c.Loader.Concurrency = other.Loader.Concurrency
	}
	if other.Loader.ClassCacheSize != 0 {
		c.Loader.ClassCacheSize = other.Loader.ClassCacheSize
	}
	if other.Loader.InstancesDir != "" {
		c.Loader.InstancesDir = other.Loader.InstancesDir
	}
	if other.Loader.Timeout != 0 {
		c.Loader.Timeout = other.Loader.Timeout
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}

// ResolveRelative makes relative source paths and the instances directory
// relative to dir.
func (c *Config) ResolveRelative(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for _, list := range [][]string{c.Sources.Shapes, c.Sources.Data, c.Sources.Imports} {
		for i, p := range list {
			list[i] = abs(p)
		}
	}
	c.Loader.InstancesDir = abs(c.Loader.InstancesDir)
}
