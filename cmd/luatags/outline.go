package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/luatags/internal/parser"
	"github.com/g5becks/luatags/internal/ui"
)

func newKindsCommand(ios streams) *cli.Command {
	return &cli.Command{
		Name:  "kinds",
		Usage: "List the tag kinds luatags emits",
		Action: func(_ context.Context, _ *cli.Command) error {
			ui.RenderKinds(ios.out, parser.LuaKinds())
			return nil
		},
	}
}

func newOutlineCommand(ios streams) *cli.Command {
	return &cli.Command{
		Name:      "outline",
		Usage:     "Show the classes and functions defined in a Lua file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output as JSON",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return outlineAction(cmd, ios)
		},
	}
}

type outlineOutput struct {
	Path  string       `json:"path"`
	Lines int          `json:"lines"`
	Tags  []parser.Tag `json:"tags"`
}

func outlineAction(cmd *cli.Command, ios streams) error {
	if cmd.Args().Len() != 1 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Usage: luatags outline <file>").
			Errorf("expected 1 argument, got %d", cmd.Args().Len())
	}

	path := cmd.Args().First()
	content, err := os.ReadFile(path)
	if err != nil {
		return oops.
			Code("FILE_NOT_FOUND").
			With("path", path).
			Wrapf(err, "reading %s", path)
	}

	luaParser, err := parser.NewLuaParser()
	if err != nil {
		return err
	}

	result, err := luaParser.Parse(path, content)
	if err != nil {
		return err
	}

	displayPath := filepath.ToSlash(path)
	if !cmd.Bool("json") {
		ui.RenderOutline(ios.out, displayPath, result.Lines, result.Tags)
		return nil
	}

	tags := result.Tags
	if tags == nil {
		tags = []parser.Tag{}
	}

	encoder := json.NewEncoder(ios.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(outlineOutput{Path: displayPath, Lines: result.Lines, Tags: tags}); err != nil {
		return oops.Code("JSON_ERROR").Wrapf(err, "encoding outline")
	}

	return nil
}
