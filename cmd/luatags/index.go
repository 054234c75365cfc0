package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/g5becks/luatags/internal/manifest"
	"github.com/g5becks/luatags/internal/ui"
)

func newIndexCommand(ios streams) *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Scan every source and write the manifest and tag file",
		ArgsUsage: "[source...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-tag-file", Usage: "Write only the manifest"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Hide progress bars"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			opts := manifest.GenerateOptions{
				SourceNames: cmd.Args().Slice(),
				SkipTagFile: cmd.Bool("no-tag-file"),
				Version:     version,
			}

			var progress *ui.IndexProgress
			if !cmd.Bool("quiet") {
				progress = ui.NewIndexProgress(ios.err)
				progress.Start()
				opts.OnCollection = progress.OnCollection
				opts.OnFile = progress.OnFile
			}

			m, err := manifest.Generate(ctx, cfg, opts)
			if progress != nil {
				progress.Stop()
			}

			if err != nil {
				return err
			}

			ui.RenderIndexSummary(ios.out, m)
			return nil
		},
	}
}
