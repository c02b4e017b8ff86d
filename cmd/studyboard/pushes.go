package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/studyboard/internal/render"
)

func (a *app) pushesCommand() *cobra.Command {
	var (
		boardID string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "pushes",
		Short: "List recent board pushes and their outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.journal == nil {
				return errors.New("push journal is disabled")
			}
			if r := a.cfg.Journal.Retention; r > 0 {
				n, err := a.journal.PrunePushes(time.Now().Add(-r))
				if err != nil {
					return err
				}
				if n > 0 {
					a.logger.Debug("pruned push journal", "removed", n)
				}
			}
			pushes, err := a.journal.RecentPushes(boardID, limit)
			if err != nil {
				return err
			}
			last, err := a.journal.LastSuccessfulPush(boardID)
			if err != nil {
				return err
			}
			render.Pushes(cmd.OutOrStdout(), pushes)
			render.LastAccepted(cmd.OutOrStdout(), last)
			return nil
		},
	}
	cmd.Flags().StringVar(&boardID, "board", "", "Only show pushes of this board")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of pushes to show")
	return cmd
}
