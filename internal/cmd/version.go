package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("pwakit version %s\n", buildVersion)
			if long {
				fmt.Printf("  commit: %s\n", buildCommit)
				fmt.Printf("  built:  %s\n", buildDate)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&long, "long", false, "Include commit and build date")
	return cmd
}
