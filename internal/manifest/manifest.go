// Package manifest handles web-app manifest parsing and validation.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Icon describes one manifest icon entry.
type Icon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes,omitempty"`
	Type    string `json:"type,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// Manifest is the subset of the web-app manifest the toolkit inspects.
// Unknown members are ignored on parse.
type Manifest struct {
	Name            string `json:"name,omitempty"`
	ShortName       string `json:"short_name,omitempty"`
	Description     string `json:"description,omitempty"`
	StartURL        string `json:"start_url,omitempty"`
	Scope           string `json:"scope,omitempty"`
	Display         string `json:"display,omitempty"`
	ThemeColor      string `json:"theme_color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	Icons           []Icon `json:"icons,omitempty"`
}

// Parse decodes manifest JSON.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads and parses the manifest file at path.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(content)
}

// HasIconSize reports whether any icon declares the given square size
// (e.g. 192 matches sizes "192x192" or "48x48 192x192").
func (m *Manifest) HasIconSize(px int) bool {
	want := strconv.Itoa(px) + "x" + strconv.Itoa(px)
	for _, icon := range m.Icons {
		for _, size := range strings.Fields(icon.Sizes) {
			if strings.EqualFold(size, want) {
				return true
			}
		}
	}
	return false
}

// HasMaskableIcon reports whether any icon declares the maskable purpose.
func (m *Manifest) HasMaskableIcon() bool {
	for _, icon := range m.Icons {
		for _, p := range strings.Fields(icon.Purpose) {
			if strings.EqualFold(p, "maskable") {
				return true
			}
		}
	}
	return false
}
