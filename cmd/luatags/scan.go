package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/luatags/internal/parser"
	"github.com/g5becks/luatags/internal/tagfile"
)

const stdinPath = "-"

func newScanCommand(ios streams) *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Tag Lua files, or stdin when no files are given",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: ctags, json",
				Value:   tagfile.FormatCTags,
			},
			&cli.StringSliceFlag{
				Name:  "kinds",
				Usage: "Kinds to emit, as names or letters (e.g. fc)",
			},
			&cli.BoolFlag{
				Name:  "no-file-scope",
				Usage: "Omit file-scope tags (classes)",
			},
			&cli.BoolFlag{
				Name:  "unsorted",
				Usage: "Keep tags in input order",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the tag file to this path instead of stdout",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return scanAction(cmd, ios)
		},
	}
}

func scanAction(cmd *cli.Command, ios streams) error {
	opts, err := scanOptions(cmd)
	if err != nil {
		return err
	}

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		paths = []string{stdinPath}
	}

	scanner, err := parser.NewScanner()
	if err != nil {
		return err
	}

	luaParser, err := parser.NewLuaParser()
	if err != nil {
		return err
	}

	var entries []tagfile.Entry
	for _, path := range paths {
		fileEntries, scanErr := scanPath(path, ios, scanner, luaParser)
		if scanErr != nil {
			return scanErr
		}

		entries = append(entries, fileEntries...)
	}

	if output := cmd.String("output"); output != "" {
		return tagfile.WriteFile(output, entries, opts)
	}

	return tagfile.Encode(ios.out, entries, opts)
}

func scanOptions(cmd *cli.Command) (tagfile.Options, error) {
	opts := tagfile.DefaultOptions()
	opts.Format = cmd.String("format")
	opts.FileScope = !cmd.Bool("no-file-scope")
	opts.Sorted = !cmd.Bool("unsorted")
	opts.Version = version

	if values := cmd.StringSlice("kinds"); len(values) > 0 {
		kinds, err := parser.ParseKinds(values)
		if err != nil {
			return tagfile.Options{}, err
		}

		opts.Kinds = kinds
	}

	return opts, nil
}

// scanPath streams stdin line by line and reads named files whole.
func scanPath(
	path string,
	ios streams,
	scanner *parser.Scanner,
	luaParser *parser.LuaParser,
) ([]tagfile.Entry, error) {
	if path == stdinPath {
		writer := tagfile.NewWriter(stdinPath)
		if err := scanner.Scan(parser.NewLineReader(ios.in), writer); err != nil {
			return nil, oops.With("path", stdinPath).Wrapf(err, "scanning stdin")
		}

		return writer.Entries(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.
			Code("FILE_NOT_FOUND").
			With("path", path).
			Wrapf(err, "reading %s", path)
	}

	if parser.IsBinary(content) {
		return nil, oops.
			Code("BINARY_FILE").
			With("path", path).
			Errorf("%s looks like a binary file", path)
	}

	result, err := luaParser.Parse(path, content)
	if err != nil {
		return nil, oops.With("path", path).Wrapf(err, "scanning %s", path)
	}

	return tagfile.EntriesFor(filepath.ToSlash(path), result.Tags), nil
}
