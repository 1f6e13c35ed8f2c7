package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCommand() *cobra.Command {
	var (
		boardID int64
		spaceID int64
		workers int
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Classify every card on a board",
		Long: `Classify every card on a board (or in a space) in one pass.

Cards are processed with bounded concurrency; a failure on one card does
not stop the rest. The exit code reflects whether any card failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(workers, dryRun)
			if err != nil {
				return err
			}

			if boardID == 0 {
				boardID = a.cfg.BoardID
			}
			if spaceID == 0 {
				spaceID = a.cfg.SpaceID
			}
			if boardID == 0 && spaceID == 0 {
				return fmt.Errorf("a board or space is required: pass --board/--space or set BOARD_ID/SPACE_ID")
			}

			summary, err := a.processor.Sweep(cmd.Context(), boardID, spaceID)
			if err != nil {
				return err
			}

			fmt.Printf("processed %d cards: %d succeeded, %d failed\n",
				summary.Processed, summary.Succeeded, summary.Failed)
			if summary.Failed > 0 {
				return &ProcessFailureError{
					Message: fmt.Sprintf("%d of %d cards failed processing", summary.Failed, summary.Processed),
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&boardID, "board", 0, "Board id to sweep (default: BOARD_ID from environment)")
	cmd.Flags().Int64Var(&spaceID, "space", 0, "Space id to sweep (default: SPACE_ID from environment)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent workers (default: WORKERS from environment)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate without writing back to the cards")
	return cmd
}
