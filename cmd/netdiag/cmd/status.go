package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/netdiag/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show resource status and active alerts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		st := app.snap.Status()
		if jsonOut {
			out := map[string]interface{}{
				"resources": st,
				"monitor":   app.mon.Status(),
				"recovery":  app.engine.Status(),
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprint(cmd.OutOrStdout(), report.RenderStatus(st))

		mst := app.mon.Status()
		if len(mst.ActiveAlerts) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "\nActive alerts (%d):\n", len(mst.ActiveAlerts))
			for _, alert := range mst.ActiveAlerts {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s\n", alert.Severity, alert.Message)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
