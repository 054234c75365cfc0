package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/luatags/internal/config"
	"github.com/g5becks/luatags/internal/manifest"
	"github.com/g5becks/luatags/internal/search"
	"github.com/g5becks/luatags/internal/ui"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"

	contentTextWidth = 80
)

func newSearchCommand(ios streams) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Fuzzy-search indexed tags, or grep indexed files with --content",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Search only within one collection",
			},
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Only tags of this kind (f, function, c, class)",
			},
			&cli.StringFlag{
				Name:  "class",
				Usage: "Only the class and methods of this Lplus class",
			},
			&cli.BoolFlag{
				Name:  "content",
				Usage: "Search file contents instead of tags",
			},
			&cli.BoolFlag{
				Name:  "regex",
				Usage: "Treat query as regex (requires --content)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: table, json, csv",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Max results (0 = unlimited)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return searchAction(cmd, ios)
		},
	}
}

func searchAction(cmd *cli.Command, ios streams) error {
	if cmd.Args().Len() > 1 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Quote multi-word queries: luatags search \"Panel Show\"").
			Errorf("expected at most 1 argument, got %d", cmd.Args().Len())
	}

	query := strings.TrimSpace(cmd.Args().First())

	if cmd.Bool("regex") && !cmd.Bool("content") {
		return oops.
			Code("INVALID_ARGS").
			Hint("--regex requires --content flag").
			Errorf("--regex can only be used with --content")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format, err := resolveFormat(cmd, cfg)
	if err != nil {
		return err
	}

	m, err := manifest.Load(cfg.Output)
	if err != nil {
		return err
	}

	limit := cfg.Display.DefaultLimit
	if cmd.IsSet("limit") {
		limit = int(cmd.Int("limit"))
	}

	if cmd.Bool("content") {
		results, searchErr := search.Content(m, search.ContentOptions{
			Query:      query,
			Collection: cmd.String("collection"),
			UseRegex:   cmd.Bool("regex"),
			Limit:      limit,
		})
		if searchErr != nil {
			return searchErr
		}

		return outputContent(ios.out, results, format)
	}

	results, err := search.Tags(m, search.Options{
		Query:      query,
		Collection: cmd.String("collection"),
		Kind:       cmd.String("kind"),
		Class:      cmd.String("class"),
		Limit:      limit,
	})
	if err != nil {
		return err
	}

	return outputTags(ios.out, results, format)
}

func resolveFormat(cmd *cli.Command, cfg *config.Config) (string, error) {
	format := cfg.Display.Format
	if cmd.IsSet("format") {
		format = cmd.String("format")
	}

	switch format {
	case formatTable, formatJSON, formatCSV:
		return format, nil
	case "":
		return formatTable, nil
	default:
		return "", oops.
			Code("INVALID_ARGS").
			With("format", format).
			Hint("Supported formats: table, json, csv").
			Errorf("unknown output format %q", format)
	}
}

func outputTags(w io.Writer, results []search.TagResult, format string) error {
	switch format {
	case formatJSON:
		return outputJSON(w, results)
	case formatCSV:
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				r.Collection,
				r.Path,
				r.Qualified,
				r.Kind,
				strconv.Itoa(r.Line),
				strconv.Itoa(r.Score),
			})
		}

		return outputCSV(w, []string{"collection", "path", "name", "kind", "line", "score"}, rows)
	default:
		ui.RenderTagTable(w, results)
		return nil
	}
}

func outputContent(w io.Writer, results []search.ContentResult, format string) error {
	switch format {
	case formatJSON:
		return outputJSON(w, results)
	case formatCSV:
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{r.Collection, r.Path, strconv.Itoa(r.Line), r.Text})
		}

		return outputCSV(w, []string{"collection", "path", "line", "text"}, rows)
	default:
		ui.RenderContentTable(w, results, contentTextWidth)
		return nil
	}
}

func outputJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return oops.Code("JSON_ERROR").Wrapf(err, "encoding results")
	}

	return nil
}

func outputCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV header")
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV row")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return oops.Code("CSV_ERROR").Wrapf(err, "flushing CSV output")
	}

	return nil
}
