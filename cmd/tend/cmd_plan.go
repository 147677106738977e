package main

import (
	"time"

	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/scheduler"
	"github.com/spf13/cobra"
)

type planOutput struct {
	Pass          planner.PassResult       `json:"pass"`
	Notifications []scheduler.Notification `json:"notifications"`
}

func newPlanCmd() *cobra.Command {
	var sync bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the next 14 days of reminders and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := e.newStack(nil)
			if err != nil {
				return err
			}
			if err := s.planner.Start(ctx, nil); err != nil {
				s.stop()
				return err
			}
			defer s.stop()
			if err := s.planner.Replan(ctx, planner.Request{Reason: planner.ReasonDataChange, ForceSync: sync}); err != nil {
				return err
			}

			pending := s.engine.Pending()
			rows := make([][]string, 0, len(pending))
			for _, n := range pending {
				rows = append(rows, []string{n.TriggerAt.Local().Format(time.DateTime), n.ID, n.Content.Title, n.Content.Body})
			}
			return output(cmd.OutOrStdout(), planOutput{Pass: s.planner.LastPass(), Notifications: pending},
				[]string{"WHEN", "ID", "TITLE", "BODY"}, rows)
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", false, "Re-read contact events before planning")
	return cmd
}
