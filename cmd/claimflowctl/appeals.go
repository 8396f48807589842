package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/claimflow/backend/internal/models"
	"github.com/claimflow/backend/internal/service"
)

func (c *cli) appealsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appeals",
		Short: "Inspect and drive appeals",
	}

	var view string
	list := &cobra.Command{
		Use:   "list",
		Short: "List appeals (all, in-progress or decided)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var appeals []models.Appeal
			switch view {
			case "all":
				appeals = a.Appeals.ListAppeals(cmd.Context())
			case "in-progress":
				appeals = a.Appeals.InProgress(cmd.Context())
			case "decided":
				appeals = a.Appeals.Decided(cmd.Context())
			default:
				return fmt.Errorf("unknown view %q", view)
			}
			return c.printAppeals(cmd.OutOrStdout(), appeals)
		},
	}
	list.Flags().StringVar(&view, "view", "all", "all, in-progress or decided")

	show := &cobra.Command{
		Use:   "show <appeal-id>",
		Short: "Show an appeal with its claim and allowed actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			review, err := a.Appeals.Review(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), review)
		},
	}

	var claimID, reason string
	var docs []string
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Submit an appeal for a rejected claim",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n := len([]rune(reason)); n < 10 || n > 2000 {
				return fmt.Errorf("reason must be 10 to 2000 characters")
			}
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			in := service.SubmitInput{ClaimID: claimID, AppealReason: reason}
			for _, d := range docs {
				in.Documents = append(in.Documents, models.Document{Name: d})
			}
			appeal, err := a.Appeals.Submit(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.printAppeal(cmd.OutOrStdout(), appeal)
		},
	}
	submit.Flags().StringVar(&claimID, "claim", "", "Claim ID")
	submit.Flags().StringVar(&reason, "reason", "", "Why the rejection should be reconsidered")
	submit.Flags().StringSliceVar(&docs, "document", nil, "Supporting document name (repeatable)")
	_ = submit.MarkFlagRequired("claim")
	_ = submit.MarkFlagRequired("reason")

	validate := &cobra.Command{
		Use:   "validate <appeal-id>",
		Short: "Run automated validation for a pending appeal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			appeal, err := a.Appeals.Advance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printAppeal(cmd.OutOrStdout(), appeal)
		},
	}

	var decision, comments string
	decide := &cobra.Command{
		Use:   "decide <appeal-id>",
		Short: "Record an agent decision (Approved, Rejected or Info Requested)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			appeal, err := a.Appeals.Decide(cmd.Context(), args[0], models.AppealStatus(decision), comments)
			if err != nil {
				return err
			}
			return c.printAppeal(cmd.OutOrStdout(), appeal)
		},
	}
	decide.Flags().StringVar(&decision, "decision", "", "Approved, Rejected or Info Requested")
	decide.Flags().StringVar(&comments, "comments", "", "Agent comments")
	_ = decide.MarkFlagRequired("decision")

	var confirmComments string
	confirm := &cobra.Command{
		Use:   "confirm <appeal-id>",
		Short: "Finalize a provisional automated outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			appeal, err := a.Appeals.Confirm(cmd.Context(), args[0], confirmComments)
			if err != nil {
				return err
			}
			return c.printAppeal(cmd.OutOrStdout(), appeal)
		},
	}
	confirm.Flags().StringVar(&confirmComments, "comments", "", "Agent comments")

	cmd.AddCommand(list, show, submit, validate, decide, confirm)
	return cmd
}

func (c *cli) printAppeal(w io.Writer, a models.Appeal) error {
	if c.jsonOutput {
		return outputJSON(w, a)
	}
	fmt.Fprintf(w, "%s  %s  claim=%s  agent=%s\n", a.ID, a.Status, a.ClaimID, a.AssignedAgent)
	if a.ValidationResult != nil {
		fmt.Fprintf(w, "  recommendation: %s\n", a.ValidationResult.SummaryRecommendation)
	}
	if a.ValidationError != "" {
		fmt.Fprintf(w, "  validation error: %s\n", a.ValidationError)
	}
	return nil
}

func (c *cli) printAppeals(w io.Writer, appeals []models.Appeal) error {
	if c.jsonOutput {
		return outputJSON(w, appeals)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLAIM\tSTATUS\tAGENT\tSUBMITTED")
	for _, a := range appeals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.ClaimID, a.Status, a.AssignedAgent, a.SubmissionDate.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
