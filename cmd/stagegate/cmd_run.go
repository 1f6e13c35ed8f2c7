package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <card-id>",
		Short: "Classify a single card and write the results back",
		Long: `Classify a single card and write the results back.

The card's scoring fields are read, evaluated against the rule table and
the resulting tier labels are written to the card's output fields.
With --dry-run the evaluation is printed without updating the card.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || cardID <= 0 {
				return fmt.Errorf("card id must be a positive integer, got %q", args[0])
			}

			a, err := buildApp(1, dryRun)
			if err != nil {
				return err
			}

			eval, err := a.processor.ProcessOne(cmd.Context(), cardID)
			if err != nil {
				return err
			}

			fmt.Printf("card %d:\n", cardID)
			fmt.Printf("  quality tier:   %s\n", eval.QualityTier)
			fmt.Printf("  content type:   %s\n", eval.ContentType)
			fmt.Printf("  presenter tier: %s\n", eval.PresenterTier)
			fmt.Printf("  reach tier:     %s\n", eval.ReachTier)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate without writing back to the card")
	return cmd
}
