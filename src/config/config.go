// Package config loads .dbuild.yaml (or .daemonless/config.yaml) and
// resolves the set of buildable variants.
//
// This package has zero side effects. It reads YAML and the filesystem
// and returns plain structs. It does not run podman, know about CI, or
// touch the network.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/daemonless/dbuild/src/gitmeta"
)

// Config file candidates, checked in order.
var configPaths = []string{
	".dbuild.yaml",
	filepath.Join(".daemonless", "config.yaml"),
}

// Config is the top-level build configuration for an image.
type Config struct {
	Image    string `yaml:"-"` // derived from the project directory name
	Registry string `yaml:"-"` // resolved from settings / git remote

	Type  string      `yaml:"type"` // "app" or "base"
	Build BuildConfig `yaml:"build"`
	Test  *TestConfig `yaml:"cit"`
}

// BuildConfig holds the build: section.
type BuildConfig struct {
	AutoVersion   bool      `yaml:"auto_version"`
	PkgName       string    `yaml:"pkg_name"`
	Architectures []string  `yaml:"architectures"`
	Ignore        []string  `yaml:"ignore"` // filenames skipped by auto-detection
	Variants      []Variant `yaml:"variants"`
}

// Variant is a single build variant (e.g. :latest, :pkg, :15-quarterly).
type Variant struct {
	Tag           string            `yaml:"tag"`
	Containerfile string            `yaml:"containerfile"`
	Args          map[string]string `yaml:"args"`
	Aliases       []string          `yaml:"aliases"`
	AutoVersion   bool              `yaml:"auto_version"`
	Default       bool              `yaml:"default"`
	PkgName       string            `yaml:"pkg_name"`
	Architectures []string          `yaml:"architectures"` // overrides build.architectures
}

// TestConfig is the cit: section, container integration test parameters.
// Zero values mean "unset" and fall through to image labels, then defaults.
type TestConfig struct {
	Mode           string   `yaml:"mode"`
	Port           int      `yaml:"port"`
	Health         string   `yaml:"health"`
	Wait           int      `yaml:"wait"`
	Ready          string   `yaml:"ready"`
	ScreenshotWait int      `yaml:"screenshot_wait"`
	Screenshot     string   `yaml:"screenshot"`
	HTTPS          bool     `yaml:"https"`
	Compose        bool     `yaml:"compose"`
	Annotations    []string `yaml:"annotations"` // "key=value" entries
}

// FullImage returns the fully-qualified image reference (registry/image).
func (c *Config) FullImage() string {
	return c.Registry + "/" + c.Image
}

// Architectures returns the configured architecture set, defaulting to amd64.
func (c *Config) Architectures() []string {
	if len(c.Build.Architectures) > 0 {
		return c.Build.Architectures
	}
	return []string{"amd64"}
}

// Load reads configuration for the project rooted at root.
// A missing config file is not an error: auto-detection covers it.
func Load(root string, settings Settings) (*Config, error) {
	cfg := &Config{Type: "app"}

	path := findConfigFile(root)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, configErrorf("reading %s: %v", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, configErrorf("parsing %s: %v", path, err)
			}
		}
	}
	if cfg.Type == "" {
		cfg.Type = "app"
	}

	cfg.Image = filepath.Base(absOrSelf(root))
	cfg.Registry = detectRegistry(root, settings)

	return cfg, nil
}

func absOrSelf(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	return abs
}

func findConfigFile(root string) string {
	for _, name := range configPaths {
		candidate := filepath.Join(root, name)
		if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// detectRegistry resolves the registry: explicit setting, then
// ghcr.io/<org> derived from the git remote, then localhost so local
// builds still work.
func detectRegistry(root string, settings Settings) string {
	if settings.Registry != "" {
		return settings.Registry
	}
	if org := gitmeta.RemoteOrg(gitmeta.Read(root).Remote); org != "" {
		return "ghcr.io/" + org
	}
	return "localhost"
}
