package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/netdiag/internal/diagnostics"
)

var sysinfoCmd = &cobra.Command{
	Use:   "sysinfo",
	Short: "Show host and network interface inventory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := diagnostics.CollectSystemInfo()

		if jsonOut {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "host      %s\n", info.Hostname)
		fmt.Fprintf(out, "os        %s (%s)\n", info.Platform, info.OS)
		if info.KernelVersion != "" {
			fmt.Fprintf(out, "kernel    %s\n", info.KernelVersion)
		}
		fmt.Fprintf(out, "cpu       %s (%d logical)\n", info.CPUModel, info.CPUCount)
		if info.MemoryTotalMB > 0 {
			fmt.Fprintf(out, "memory    %.0f MB total, %.0f%% used\n", info.MemoryTotalMB, info.MemoryUsedPct)
		}
		for _, nic := range info.NICs {
			kind := "physical"
			if nic.Virtual {
				kind = "virtual"
			}
			fmt.Fprintf(out, "nic       %-12s %s %s\n", nic.Name, nic.MACAddress, kind)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sysinfoCmd)
}
