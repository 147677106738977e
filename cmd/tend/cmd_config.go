package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sandeepkv93/tend/internal/commands"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change reminder settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored reminder settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()
			cfg, err := e.service().Config(ctx)
			if err != nil {
				return err
			}
			return printAppConfig(cmd, cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting: inner|mid|outer|lead|time|fuzzy|persistent|autolog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := commands.Parse(fmt.Sprintf("config %s %s", args[0], args[1]))
			if err != nil {
				var ce *commands.CommandError
				if errors.As(err, &ce) {
					return errors.New(ce.Message)
				}
				return err
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()
			cfg, err := e.service().UpdateConfig(ctx, parsed.Config.Patch)
			if err != nil {
				return err
			}
			return printAppConfig(cmd, cfg)
		},
	})
	return cmd
}

func printAppConfig(cmd *cobra.Command, cfg model.AppConfig) error {
	rows := [][]string{
		{"inner", strconv.Itoa(cfg.DefaultCadenceInnerDays)},
		{"mid", strconv.Itoa(cfg.DefaultCadenceMidDays)},
		{"outer", strconv.Itoa(cfg.DefaultCadenceOuterDays)},
		{"lead", strconv.Itoa(cfg.ContactEventsReminderDays)},
		{"time", cfg.ReminderTime().String()},
		{"fuzzy", strconv.FormatBool(cfg.FuzzyRemindersEnabled)},
		{"persistent", strconv.FormatBool(cfg.ShouldKeepRemindersPersistent)},
		{"autolog", strconv.FormatBool(cfg.AutomaticLogging)},
	}
	return output(cmd.OutOrStdout(), cfg, []string{"KEY", "VALUE"}, rows)
}
