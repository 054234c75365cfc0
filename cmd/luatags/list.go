package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/g5becks/luatags/internal/config"
	"github.com/g5becks/luatags/internal/lockfile"
	"github.com/g5becks/luatags/internal/manifest"
	"github.com/g5becks/luatags/internal/source"
	"github.com/g5becks/luatags/internal/ui"
)

func newListCommand(ios streams) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List configured sources and their sync status",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON output"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Show expanded source fields"},
			&cli.BoolFlag{Name: "files", Usage: "Include file and tag counts"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			statuses, err := sourceStatuses(cfg)
			if err != nil {
				return err
			}

			return ui.RenderSourceList(ios.out, statuses, ui.ListOptions{
				JSON:    cmd.Bool("json"),
				Verbose: cmd.Bool("verbose"),
				Files:   cmd.Bool("files"),
			})
		},
	}
}

func sourceStatuses(cfg *config.Config) ([]ui.SourceStatus, error) {
	lock, err := lockfile.Load(cfg.Output)
	if err != nil {
		return nil, err
	}

	m, err := loadManifestIfPresent(cfg.Output)
	if err != nil {
		return nil, err
	}

	statuses := make([]ui.SourceStatus, 0, len(cfg.Sources))
	for _, name := range cfg.SourceNames() {
		src := cfg.Sources[name]
		status := ui.SourceStatus{
			Name:     name,
			Type:     src.Type,
			Repo:     src.Repo,
			Path:     src.Path,
			URL:      src.URL,
			Ref:      src.Ref,
			Patterns: src.Patterns,
			Root:     cfg.SourceRoot(name, src),
			Status:   ui.StatusLocal,
		}

		if source.IsRemote(src) {
			status.Status = ui.StatusPending
			if entry := lock.GetEntry(name); entry != nil {
				status.Status = ui.StatusSynced
				status.SyncedAt = entry.SyncedAt
				status.FileCount = entry.FileCount()
				if status.Ref == "" {
					status.Ref = entry.RefResolved
				}
			}
		}

		if collection, ok := m.Collections[name]; ok {
			status.FileCount = collection.FileCount
			status.TagCount = collection.TagCount
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

// loadManifestIfPresent returns an empty manifest before the first index.
func loadManifestIfPresent(outputDir string) (*manifest.Manifest, error) {
	if _, err := os.Stat(manifest.Path(outputDir)); errors.Is(err, os.ErrNotExist) {
		return manifest.New(), nil
	}

	return manifest.Load(outputDir)
}
