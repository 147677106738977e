package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/spf13/cobra"
)

var rowHeaders = []string{"ID", "NAME", "CIRCLE", "EVERY", "LAST", "DUE"}

func rowCells(rows []garden.Row, now time.Time, bucket string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := []string{
			r.Contact.SystemID,
			r.Contact.DisplayName(),
			string(r.Contact.Circle),
			fmt.Sprintf("%dd", r.CadenceDays),
			model.LastSpokeLabel(r.LastSpokeAt, now),
			model.DueLabel(r.Due, now),
		}
		if bucket != "" {
			cells = append([]string{bucket}, cells...)
		}
		out = append(out, cells)
	}
	return out
}

func newUpNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upnext",
		Short: "List who to reach out to, grouped by urgency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := e.service()
			b, err := svc.Buckets(ctx)
			if err != nil {
				return err
			}
			now := svc.Now()
			var rows [][]string
			rows = append(rows, rowCells(b.NeedsWater, now, "needs water")...)
			rows = append(rows, rowCells(b.Today, now, "today")...)
			rows = append(rows, rowCells(b.ThisWeek, now, "this week")...)
			rows = append(rows, rowCells(b.Later, now, "later")...)
			return output(cmd.OutOrStdout(), b, append([]string{"BUCKET"}, rowHeaders...), rows)
		},
	}
}

func newGardenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "garden [query]",
		Short: "List every contact, optionally filtered by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := e.service()
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			rows, err := svc.Garden(ctx, query)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), rows, rowHeaders, rowCells(rows, svc.Now(), ""))
		},
	}
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <contact-id>",
		Short: "Show a contact with its history, streak and events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := e.service()
			p, err := svc.Profile(ctx, args[0])
			if err != nil {
				return err
			}
			if flagFmt == "json" {
				return formatJSON(cmd.OutOrStdout(), p)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s, every %d days)\n", p.Contact.DisplayName(), p.Contact.Circle, p.CadenceDays)
			fmt.Fprintf(w, "last spoke: %s | due: %s | streak: %d\n\n", p.LastSpokeLabel, p.DueLabel, p.Streak)
			rows := make([][]string, 0, len(p.Logs))
			for _, l := range p.Logs {
				rows = append(rows, []string{l.CreatedAt.Local().Format(time.DateOnly), strconv.FormatBool(l.WasOverdue), l.Summary})
			}
			formatTable(w, []string{"DATE", "LATE", "SUMMARY"}, rows)
			return nil
		},
	}
}

func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log <contact-id> [summary...]",
		Short: "Record an interaction with a contact",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			entry, err := e.service().LogInteraction(ctx, model.LogInput{
				ContactSystemID: args[0],
				Summary:         strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			if flagFmt == "json" {
				return formatJSON(cmd.OutOrStdout(), entry)
			}
			msg := fmt.Sprintf("logged interaction %d with %s", entry.ID, entry.ContactSystemID)
			if entry.WasOverdue {
				msg += " (was overdue)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var circle string
	cmd := &cobra.Command{
		Use:   "import [device-id...]",
		Short: "Import contacts from the address book; without ids, list candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := e.service()
			if len(args) == 0 {
				candidates, err := svc.ImportCandidates(ctx, "")
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(candidates))
				for _, c := range candidates {
					rows = append(rows, []string{c.ID, c.Name, c.NickName, strconv.FormatBool(c.AlreadyImported)})
				}
				return output(cmd.OutOrStdout(), candidates, []string{"ID", "NAME", "NICKNAME", "IMPORTED"}, rows)
			}

			c, err := model.ParseCircle(circle)
			if err != nil {
				return err
			}
			n, err := svc.Import(ctx, args, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d contact(s)\n", n)
			if n > 0 {
				return syncEvents(cmd, e, true)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&circle, "circle", string(model.CircleMid), "Circle for new contacts: inner|mid|outer")
	return cmd
}

func newSyncCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh birthdays and anniversaries from the address book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()
			return syncEvents(cmd, e, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Sync even if already done today")
	return cmd
}

func syncEvents(cmd *cobra.Command, e *env, force bool) error {
	res, err := e.syncer().SyncIfDue(cmd.Context(), force)
	if err != nil {
		return err
	}
	if flagFmt == "json" {
		return formatJSON(cmd.OutOrStdout(), res)
	}
	if !res.Ran {
		fmt.Fprintln(cmd.OutOrStdout(), "event sync skipped")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "synced %d contact(s), %d event(s), %d failed\n", res.Contacts, res.Events, res.Failed)
	return nil
}
