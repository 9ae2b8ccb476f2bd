package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pwakit/pwakit/internal/audit"
)

func newAuditCmd() *cobra.Command {
	var minScore int

	cmd := &cobra.Command{
		Use:   "audit [site-dir]",
		Short: "Audit a built site for PWA readiness",
		Long: `Audit runs offline Lighthouse-style checks over a built site directory:
manifest presence and validity, icon files, service worker script and
registration, and the document meta tags the update manager relies on.

Defaults to the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runAudit(dir, minScore)
		},
	}

	cmd.Flags().IntVar(&minScore, "min-score", 100, "Minimum passing score (0-100)")
	return cmd
}

// auditReport wraps the audit result for text rendering.
type auditReport struct {
	*audit.Report
	Score int `json:"score"`
}

// RenderText implements output.TextRenderer.
func (r auditReport) RenderText(w io.Writer) error {
	for _, res := range r.Results {
		mark := "✓"
		if !res.Passed {
			mark = "✗"
		}
		line := fmt.Sprintf("%s %s", mark, res.Title)
		if res.Detail != "" {
			line += " (" + res.Detail + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\nScore: %d/100 (%d of %d checks passed)\n",
		r.Score, r.Passed(), len(r.Results))
	return err
}

func runAudit(dir string, minScore int) error {
	report, err := audit.Run(dir)
	if err != nil {
		return err
	}

	w, err := newWriter()
	if err != nil {
		return err
	}
	if err := w.Write(auditReport{Report: report, Score: report.Score()}); err != nil {
		return err
	}

	if report.Score() < minScore {
		return fmt.Errorf("score %d below minimum %d", report.Score(), minScore)
	}
	return nil
}
