package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) claimsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Inspect rejected claims",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rejected claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			claims := a.Repo.ListClaims(cmd.Context())
			if c.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), claims)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPOLICY HOLDER\tAMOUNT\tALLOCATED\tREJECTED")
			for _, cl := range claims {
				allocated := "-"
				if cl.AllocatedAmount != nil {
					allocated = cl.AllocatedAmount.StringFixed(2)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", cl.ID, cl.PolicyHolderName, cl.ClaimAmount.StringFixed(2), allocated, cl.RejectionDate.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <claim-id>",
		Short: "Show one claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			claim, err := a.Appeals.GetClaim(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), claim)
		},
	})
	return cmd
}
