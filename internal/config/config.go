// Package config handles pwakit configuration file parsing and location
// resolution.
package config

import (
	"os"
	"time"
)

// configNames are the file names probed in the working directory when no
// explicit path is given, in preference order.
var configNames = []string{"pwakit.toml", "pwakit.yaml", "pwakit.yml", "pwakit.json"}

// AppConfig identifies the application under development.
type AppConfig struct {
	Name    string `toml:"name" yaml:"name" json:"name"`
	Version string `toml:"version,omitempty" yaml:"version,omitempty" json:"version,omitempty"`
}

// UpdateConfig tunes the update-notification manager.
type UpdateConfig struct {
	// CheckFrequency is the periodic update-check interval.
	CheckFrequency Duration `toml:"check_frequency,omitempty" yaml:"check_frequency,omitempty" json:"check_frequency,omitempty"`
	// Banner selects non-modal banners instead of prompts.
	Banner bool `toml:"banner,omitempty" yaml:"banner,omitempty" json:"banner,omitempty"`
	// Title overrides the notification title.
	Title string `toml:"title,omitempty" yaml:"title,omitempty" json:"title,omitempty"`
	// BannerMessage overrides the banner body text.
	BannerMessage string `toml:"banner_message,omitempty" yaml:"banner_message,omitempty" json:"banner_message,omitempty"`
}

// ServeConfig tunes the dev server.
type ServeConfig struct {
	Listen  string `toml:"listen,omitempty" yaml:"listen,omitempty" json:"listen,omitempty"`
	SiteDir string `toml:"site_dir,omitempty" yaml:"site_dir,omitempty" json:"site_dir,omitempty"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	// Backend is one of memory, file, sqlite.
	Backend string `toml:"backend,omitempty" yaml:"backend,omitempty" json:"backend,omitempty"`
	// Path is the store location for the file and sqlite backends.
	Path string `toml:"path,omitempty" yaml:"path,omitempty" json:"path,omitempty"`
}

// Config is the parsed pwakit configuration file.
type Config struct {
	App     AppConfig     `toml:"app" yaml:"app" json:"app"`
	Update  UpdateConfig  `toml:"update,omitempty" yaml:"update,omitempty" json:"update,omitempty"`
	Serve   ServeConfig   `toml:"serve,omitempty" yaml:"serve,omitempty" json:"serve,omitempty"`
	Storage StorageConfig `toml:"storage,omitempty" yaml:"storage,omitempty" json:"storage,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "app"},
		Update: UpdateConfig{
			CheckFrequency: Duration(time.Hour),
		},
		Serve: ServeConfig{
			Listen:  "127.0.0.1:8080",
			SiteDir: ".",
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    ".pwakit/store.json",
		},
	}
}

// Locate resolves the configuration file path. An explicit path wins; with
// none, the working directory is probed for the standard names. An empty
// result means no file exists and defaults apply.
func Locate(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
