package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compile every formula of the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, e := loadCatalog()
		if e != nil {
			return e
		}

		logger.Debug("catalog loaded", slog.Any("tables", c.Tables()))
		fmt.Fprintf(cmd.OutOrStdout(), "%d indicators over %d tables\n", c.Indicators(), len(c.Tables()))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
