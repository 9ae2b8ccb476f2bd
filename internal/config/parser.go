// Package config handles pwakit configuration file parsing and location
// resolution.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format represents the file format of a configuration file.
type Format int

const (
	FormatUnknown Format = iota
	FormatTOML
	FormatYAML
	FormatJSON
)

// Parse reads and parses the configuration file at path, starting from the
// defaults so omitted sections keep their default values.
func Parse(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	format := detectFormat(path, content)
	return parse(content, format)
}

// detectFormat determines the file format based on extension or content.
func detectFormat(path string, content []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	return sniffFormat(content)
}

// sniffFormat attempts to detect format from content for extensionless
// files.
func sniffFormat(content []byte) Format {
	trimmed := strings.TrimSpace(string(content))

	// JSON starts with { or [
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return FormatJSON
	}

	// TOML has [sections] or key = value; YAML uses key: value
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, " = ") || strings.HasPrefix(line, "[") {
			return FormatTOML
		}
		if strings.Contains(line, ":") && !strings.Contains(line, "=") {
			return FormatYAML
		}
	}

	if strings.Contains(trimmed, ":") {
		return FormatYAML
	}
	return FormatUnknown
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns in content.
func expandEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envVarPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := os.Getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// parse parses the content according to the specified format.
func parse(content []byte, format Format) (*Config, error) {
	content = expandEnvVars(content)

	cfg := Default()

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown file format")
	}

	return cfg, nil
}
