package manifest

import (
	"fmt"
	"regexp"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Message)
}

// validDisplays are the display modes installable browsers accept.
var validDisplays = map[string]bool{
	"fullscreen": true,
	"standalone": true,
	"minimal-ui": true,
	"browser":    true,
}

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// shortNameLimit is the length beyond which launchers truncate short_name.
const shortNameLimit = 12

// Validate checks the manifest against installability requirements and
// returns all findings. An empty slice means the manifest is clean.
func Validate(m *Manifest) []Issue {
	var issues []Issue

	issues = append(issues, validateIdentity(m)...)
	issues = append(issues, validateDisplay(m)...)
	issues = append(issues, validateIcons(m)...)
	issues = append(issues, validateColors(m)...)

	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateIdentity(m *Manifest) []Issue {
	var issues []Issue

	if m.Name == "" && m.ShortName == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Field:    "name",
			Message:  "manifest must define name or short_name",
		})
	}
	if m.ShortName != "" && len(m.ShortName) > shortNameLimit {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Field:    "short_name",
			Message:  fmt.Sprintf("short_name longer than %d characters may be truncated on home screens", shortNameLimit),
		})
	}
	if m.StartURL == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Field:    "start_url",
			Message:  "start_url is required for installability",
		})
	}
	return issues
}

func validateDisplay(m *Manifest) []Issue {
	if m.Display == "" {
		return []Issue{{
			Severity: SeverityWarning,
			Field:    "display",
			Message:  "display not set; browsers default to \"browser\", which is not installable",
		}}
	}
	if !validDisplays[m.Display] {
		return []Issue{{
			Severity: SeverityError,
			Field:    "display",
			Message:  fmt.Sprintf("invalid display value %q", m.Display),
		}}
	}
	return nil
}

func validateIcons(m *Manifest) []Issue {
	if len(m.Icons) == 0 {
		return []Issue{{
			Severity: SeverityError,
			Field:    "icons",
			Message:  "at least one icon is required",
		}}
	}

	var issues []Issue
	for i, icon := range m.Icons {
		if icon.Src == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Field:    fmt.Sprintf("icons[%d].src", i),
				Message:  "icon src must not be empty",
			})
		}
	}
	if !m.HasIconSize(192) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Field:    "icons",
			Message:  "a 192x192 icon is required for installability",
		})
	}
	if !m.HasIconSize(512) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Field:    "icons",
			Message:  "a 512x512 icon is required for splash screens",
		})
	}
	if !m.HasMaskableIcon() {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Field:    "icons",
			Message:  "no maskable icon; launchers may letterbox the icon",
		})
	}
	return issues
}

func validateColors(m *Manifest) []Issue {
	var issues []Issue
	if m.ThemeColor != "" && !colorPattern.MatchString(m.ThemeColor) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Field:    "theme_color",
			Message:  fmt.Sprintf("invalid color %q; expected hex notation like #1a2b3c", m.ThemeColor),
		})
	}
	if m.BackgroundColor != "" && !colorPattern.MatchString(m.BackgroundColor) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Field:    "background_color",
			Message:  fmt.Sprintf("invalid color %q; expected hex notation like #1a2b3c", m.BackgroundColor),
		})
	}
	return issues
}
