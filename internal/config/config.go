package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"repogen/internal/archive"
)

// FileName is the configuration file looked up in the site root.
const FileName = "repogen.yaml"

// Config captures how a plugin repository is laid out and published.
type Config struct {
	Version int `yaml:"version"`
	// RepositoryID names the repository's own package. Its archive is copied
	// to the site root after every sync.
	RepositoryID   string         `yaml:"repository_id"`
	Releases       []string       `yaml:"releases"`
	OutputDir      string         `yaml:"output_dir"`
	ManifestName   string         `yaml:"manifest_name"`
	DescriptorName string         `yaml:"descriptor_name"`
	PruneCompiled  *bool          `yaml:"prune_compiled,omitempty"`
	Archive        archive.Policy `yaml:"archive"`
	Index          IndexConfig    `yaml:"index"`
	Transfer       TransferConfig `yaml:"transfer"`
}

// IndexConfig controls directory listing generation.
type IndexConfig struct {
	Enabled      *bool `yaml:"enabled,omitempty"`
	MinNameWidth int   `yaml:"min_name_width"`
}

// TransferConfig describes the remote host finished artifacts are copied to.
// Secrets are normally supplied through the environment instead of the file.
type TransferConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password,omitempty"`
	KeyFile    string `yaml:"key_file"`
	KnownHosts string `yaml:"known_hosts"`
	BaseDir    string `yaml:"base_dir"`
	Insecure   bool   `yaml:"insecure"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:        1,
		Releases:       []string{"repo"},
		OutputDir:      "zips",
		ManifestName:   "addons.xml",
		DescriptorName: "addon.xml",
		PruneCompiled:  boolPtr(true),
		Archive:        archive.DefaultPolicy(),
		Index: IndexConfig{
			Enabled:      boolPtr(true),
			MinNameWidth: 25,
		},
		Transfer: TransferConfig{
			Port: 22,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills fields the YAML left empty.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if len(c.Releases) == 0 {
		c.Releases = defaults.Releases
	}
	if c.OutputDir == "" {
		c.OutputDir = defaults.OutputDir
	}
	if c.ManifestName == "" {
		c.ManifestName = defaults.ManifestName
	}
	if c.DescriptorName == "" {
		c.DescriptorName = defaults.DescriptorName
	}
	if c.PruneCompiled == nil {
		c.PruneCompiled = boolPtr(true)
	}
	if c.Archive.RepositoryInclude == nil {
		c.Archive.RepositoryInclude = defaults.Archive.RepositoryInclude
	}
	if c.Archive.PluginInclude == nil {
		c.Archive.PluginInclude = defaults.Archive.PluginInclude
	}
	if c.Archive.ExcludeDirs == nil {
		c.Archive.ExcludeDirs = defaults.Archive.ExcludeDirs
	}
	if c.Index.Enabled == nil {
		c.Index.Enabled = boolPtr(true)
	}
	if c.Index.MinNameWidth == 0 {
		c.Index.MinNameWidth = defaults.Index.MinNameWidth
	}
	if c.Transfer.Port == 0 {
		c.Transfer.Port = defaults.Transfer.Port
	}
}

// PruneCompiledEnabled reports whether compiled caches are removed before a
// sync. It defaults to true.
func (c Config) PruneCompiledEnabled() bool {
	if c.PruneCompiled == nil {
		return true
	}
	return *c.PruneCompiled
}

// IndexEnabled reports whether directory listings are rendered.
func (c Config) IndexEnabled() bool {
	if c.Index.Enabled == nil {
		return true
	}
	return *c.Index.Enabled
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}
