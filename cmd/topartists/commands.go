package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"TopArtistsTracker/internal/app"
	"TopArtistsTracker/internal/domain"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Capture today's top artists and compare them with yesterday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(cmdCtx context.Context, a *app.Application) error {
				_, err := a.Run(cmdCtx)
				return err
			})
		},
	}
}

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Capture on the configured cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(cmdCtx context.Context, a *app.Application) error {
				signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
				defer cancel()
				return a.Daemon(signalCtx)
			})
		},
	}
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize access to your Spotify account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(cmdCtx context.Context, a *app.Application) error {
				signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				name, err := a.Login(signalCtx, func(authURL string) {
					fmt.Fprintln(cmd.OutOrStdout(), "Open this URL in your browser to log in:")
					fmt.Fprintln(cmd.OutOrStdout(), authURL)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", name)
				return nil
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var dayFlag string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored day compared with the day before",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(cmdCtx context.Context, a *app.Application) error {
				day, err := parseDayFlag(dayFlag, a.Location(), time.Now())
				if err != nil {
					return err
				}
				return a.Show(cmdCtx, day)
			})
		},
	}
	cmd.Flags().StringVar(&dayFlag, "day", "", "Day to show (YYYY-MM-DD, default today)")
	return cmd
}

func newDiffCommand(ctx *commandContext) *cobra.Command {
	var dayFlag string
	var againstFlag string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare two stored days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(cmdCtx context.Context, a *app.Application) error {
				day, err := parseDayFlag(dayFlag, a.Location(), time.Now())
				if err != nil {
					return err
				}
				against, err := parseDayFlag(againstFlag, a.Location(), day.AddDate(0, 0, -1))
				if err != nil {
					return err
				}
				return a.Diff(cmdCtx, day, against)
			})
		},
	}
	cmd.Flags().StringVar(&dayFlag, "day", "", "Newer day (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&againstFlag, "against", "", "Older day (YYYY-MM-DD, default the day before --day)")
	return cmd
}

func newDaysCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "days",
		Short: "List stored days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(cmdCtx context.Context, a *app.Application) error {
				days, err := a.Days(cmdCtx)
				if err != nil {
					return err
				}
				if len(days) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No snapshots stored yet.")
					return nil
				}
				for _, day := range days {
					fmt.Fprintln(cmd.OutOrStdout(), day.Format(domain.DayLayout))
				}
				return nil
			})
		},
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve stored snapshots over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(cmdCtx context.Context, a *app.Application) error {
				signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
				defer cancel()
				return a.Serve(signalCtx)
			})
		},
	}
}
