package main

import (
	"context"

	"github.com/urfave/cli/v3"

	luasync "github.com/g5becks/luatags/internal/sync"
	"github.com/g5becks/luatags/internal/ui"
)

func newSyncCommand(ios streams) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Fetch configured github and url sources",
		ArgsUsage: "[source...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Re-download files even when unchanged"},
			&cli.BoolFlag{Name: "clean", Usage: "Delete synced output before syncing"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Show planned changes without writing files"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			printer := ui.NewSyncPrinterWithWriter(ios.err, cmd.Bool("dry-run"))
			result, err := luasync.Run(ctx, cfg, luasync.Options{
				SourceNames: cmd.Args().Slice(),
				Force:       cmd.Bool("force"),
				DryRun:      cmd.Bool("dry-run"),
				Clean:       cmd.Bool("clean"),
				OnEvent:     printer.HandleEvent,
			})

			printer.PrintSummary(result)
			return err
		},
	}
}
