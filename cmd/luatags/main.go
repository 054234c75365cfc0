package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/luatags/internal/config"
)

var (
	//nolint:gochecknoglobals // Build metadata is injected at build time with ldflags.
	version = "dev"
	//nolint:gochecknoglobals // Build metadata is injected at build time with ldflags.
	commit = "unknown"
	//nolint:gochecknoglobals // Build metadata is injected at build time with ldflags.
	buildTime = "unknown"
)

func main() {
	if err := run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// streams carries the process I/O so tests can capture it.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer, errOut io.Writer) error {
	return newRootCommand(streams{in: in, out: out, err: errOut}).Run(ctx, args)
}

func newRootCommand(ios streams) *cli.Command {
	return &cli.Command{
		Name:      "luatags",
		Usage:     "Generate ctags-style tag files for Lua and Lplus sources",
		Version:   versionString(),
		Writer:    ios.out,
		ErrWriter: ios.err,
		Reader:    ios.in,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
		},
		Commands: []*cli.Command{
			newScanCommand(ios),
			newKindsCommand(ios),
			newOutlineCommand(ios),
			newSyncCommand(ios),
			newIndexCommand(ios),
			newSearchCommand(ios),
			newListCommand(ios),
			newInitCommand(ios),
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"))
}

func versionString() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildTime)
}

func newInitCommand(ios streams) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter luatags.toml in the current directory",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Overwrite an existing config file"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.String("config")
			if path == "" {
				wd, err := os.Getwd()
				if err != nil {
					return oops.Wrapf(err, "resolving working directory")
				}

				path = filepath.Join(wd, config.StarterFilename)
			}

			if err := config.WriteStarter(path, cmd.Bool("force")); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(ios.out, "wrote %s\n", path)
			return nil
		},
	}
}
