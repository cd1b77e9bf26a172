package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/netdiag/internal/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Diagnose every configured target",
	Long: `Runs the full diagnosis over all targets from the configuration (inline
targets plus the targets file), bounded by the configured concurrency, and
writes the run report to the output directory.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(cfg.Targets) == 0 {
			return fmt.Errorf("no targets configured; add targets or set targets_file")
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		rep, err := app.runner.Run(cmd.Context(), cfg.Targets)
		if err != nil {
			return err
		}

		if jsonOut {
			data, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			fmt.Fprint(cmd.OutOrStdout(), report.RenderRun(rep))
		}

		if rep.Summary.Failed > 0 {
			return fmt.Errorf("%d of %d targets failed", rep.Summary.Failed, rep.Summary.Targets)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
