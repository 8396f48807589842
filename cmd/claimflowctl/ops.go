package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) processCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run automated validation for every pending appeal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Appeals.ProcessPending(cmd.Context(), concurrency)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %v appeals, %v errors\n", summary.Counts["appeals_processed"], summary.Counts["errors"])
			for status, n := range summary.Counts["by_status"].(map[string]int) {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", status, n)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Maximum validations in flight")
	return cmd
}

func (c *cli) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Overwrite claims and appeals with the built-in sample data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset discards all appeals; pass --yes to confirm")
			}
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Repo.Reset(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "storage reset to sample data")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
