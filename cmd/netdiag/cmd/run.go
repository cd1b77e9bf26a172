package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
	"github.com/hugo-lorenzo-mato/netdiag/internal/report"
)

var (
	runPort  int
	runURL   string
	runTrace bool
)

var runCmd = &cobra.Command{
	Use:   "run <host>",
	Short: "Diagnose a single target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		target := probe.Target{
			Host:  args[0],
			Port:  runPort,
			URL:   runURL,
			Trace: runTrace,
		}

		started := time.Now()
		result := app.prober.Diagnose(cmd.Context(), target)
		app.monitoringCycle(cmd.Context())

		rep := report.RunReport{
			RunID:      "adhoc",
			ConfigName: cfg.Name,
			Timestamp:  started,
			Summary:    report.Summarize([]probe.Result{result}, time.Since(started)),
			Results:    []probe.Result{result},
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

		if !result.Success {
			return fmt.Errorf("diagnosis of %s failed", target.Host)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runPort, "port", 443, "TCP port to probe")
	runCmd.Flags().StringVar(&runURL, "url", "", "HTTP URL to fetch (optional)")
	runCmd.Flags().BoolVar(&runTrace, "trace", false, "trace the network path with mtr/traceroute")
	rootCmd.AddCommand(runCmd)
}
