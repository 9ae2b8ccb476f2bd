package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pwakit/pwakit/internal/install"
	"github.com/pwakit/pwakit/internal/update"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show persisted rollback and install-analytics state",
		Long:  `Status reads the configured store and summarizes the persisted rollback record and install-prompt analytics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

// statusReport is the status command's output document.
type statusReport struct {
	App      string                 `json:"app"`
	Backend  string                 `json:"backend"`
	Rollback *update.RollbackRecord `json:"rollback,omitempty"`
	Install  *install.Stats         `json:"install,omitempty"`
}

// RenderText implements output.TextRenderer.
func (r statusReport) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "App:     %s\n", r.App)
	fmt.Fprintf(w, "Storage: %s\n", r.Backend)

	if r.Rollback == nil {
		fmt.Fprintln(w, "Rollback: no data")
	} else {
		fmt.Fprintf(w, "Rollback: version %s saved %s\n",
			r.Rollback.CurrentVersion,
			time.Unix(r.Rollback.Timestamp, 0).Format(time.RFC3339))
	}

	if r.Install == nil {
		fmt.Fprintln(w, "Install:  no analytics")
	} else {
		fmt.Fprintf(w, "Install:  %d shown, %d accepted, %d dismissed\n",
			r.Install.PromptsShown, r.Install.Accepted, r.Install.Dismissed)
	}
	return nil
}

func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	report := statusReport{
		App:     cfg.App.Name,
		Backend: cfg.Storage.Backend,
	}
	if report.Backend == "" {
		report.Backend = "memory"
	}

	// Missing records are a normal state, not an error.
	if rec, err := update.RollbackFromStore(store); err == nil {
		report.Rollback = rec
	}
	if stats, err := install.StatsFromStore(store); err == nil {
		report.Install = stats
	}

	w, err := newWriter()
	if err != nil {
		return err
	}
	return w.Write(report)
}
