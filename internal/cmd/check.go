package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pwakit/pwakit/internal/manifest"
)

func newCheckCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [manifest]",
		Short: "Validate a web-app manifest",
		Long: `Check parses a web-app manifest and validates it against installability
requirements: identity, start_url, display mode, icon sizes, and colors.

Defaults to manifest.webmanifest in the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "manifest.webmanifest"
			if len(args) == 1 {
				path = args[0]
			}
			return runCheck(path, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on warnings as well as errors")
	return cmd
}

// checkReport is the check command's output document.
type checkReport struct {
	Path   string           `json:"path"`
	Issues []manifest.Issue `json:"issues"`
}

// RenderText implements output.TextRenderer.
func (r checkReport) RenderText(w io.Writer) error {
	if len(r.Issues) == 0 {
		_, err := fmt.Fprintf(w, "✓ %s looks good\n", r.Path)
		return err
	}
	for _, issue := range r.Issues {
		if _, err := fmt.Fprintf(w, "  %s\n", issue); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s: %d issue(s)\n", r.Path, len(r.Issues))
	return err
}

func runCheck(path string, strict bool) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	issues := manifest.Validate(m)

	w, err := newWriter()
	if err != nil {
		return err
	}
	if err := w.Write(checkReport{Path: path, Issues: issues}); err != nil {
		return err
	}

	if manifest.HasErrors(issues) {
		return fmt.Errorf("manifest has errors")
	}
	if strict && len(issues) > 0 {
		return fmt.Errorf("manifest has warnings (strict mode)")
	}
	return nil
}
