package ui_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/g5becks/luatags/internal/source"
	luasync "github.com/g5becks/luatags/internal/sync"
	"github.com/g5becks/luatags/internal/ui"
)

var errMock = errors.New("mock error")

func init() {
	color.NoColor = true
}

func TestHandleEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event luasync.Event
		want  []string
	}{
		{
			name:  "start",
			event: luasync.Event{Kind: luasync.EventSourceStart, Source: "game-ui"},
			want:  []string{"syncing", "game-ui"},
		},
		{
			name: "downloaded and deleted",
			event: luasync.Event{
				Kind:   luasync.EventSourceDone,
				Source: "game-ui",
				Result: &source.SyncResult{Downloaded: 5, Deleted: 2},
			},
			want: []string{"game-ui", "(5 downloaded, 2 deleted)"},
		},
		{
			name: "downloaded only",
			event: luasync.Event{
				Kind:   luasync.EventSourceDone,
				Source: "json",
				Result: &source.SyncResult{Downloaded: 1},
			},
			want: []string{"(1 downloaded)"},
		},
		{
			name: "no changes",
			event: luasync.Event{
				Kind:   luasync.EventSourceDone,
				Source: "json",
				Result: &source.SyncResult{},
			},
			want: []string{"(no changes)"},
		},
		{
			name: "skipped",
			event: luasync.Event{
				Kind:   luasync.EventSourceDone,
				Source: "json",
				Result: &source.SyncResult{Skipped: true},
			},
			want: []string{"json", "up to date"},
		},
		{
			name: "failed",
			event: luasync.Event{
				Kind:   luasync.EventSourceDone,
				Source: "broken",
				Err:    errMock,
			},
			want: []string{"broken", "mock error"},
		},
		{
			name: "warning",
			event: luasync.Event{
				Kind:    luasync.EventWarning,
				Source:  "game-ui",
				Message: "github API rate limit low: 3 requests remaining",
			},
			want: []string{"!", "game-ui", "3 requests remaining"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			ui.NewSyncPrinterWithWriter(&buf, false).HandleEvent(tc.event)

			out := buf.String()
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q, got: %q", want, out)
				}
			}
		})
	}
}

func TestHandleEventDoneWithoutResultPrintsNothing(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ui.NewSyncPrinterWithWriter(&buf, false).HandleEvent(luasync.Event{
		Kind:   luasync.EventSourceDone,
		Source: "json",
	})

	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := ui.NewSyncPrinterWithWriter(&buf, false)

	p.PrintSummary(&luasync.RunResult{
		Sources:    3,
		Downloaded: 10,
		Deleted:    2,
		Skipped:    1,
		Pruned:     []string{"archive", "old"},
	})

	out := buf.String()
	for _, want := range []string{
		"sync complete",
		"3 source(s)",
		"10 downloaded",
		"2 deleted",
		"1 up-to-date",
		"pruned from lock file: archive, old",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q, got: %q", want, out)
		}
	}

	if strings.Contains(out, "failed") {
		t.Errorf("summary should not mention failures, got: %q", out)
	}
}

func TestPrintSummaryDryRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := ui.NewSyncPrinterWithWriter(&buf, true)

	p.PrintSummary(&luasync.RunResult{Sources: 1, Downloaded: 3})

	out := buf.String()
	if !strings.Contains(out, "dry-run complete") {
		t.Errorf("dry-run summary missing label, got: %q", out)
	}

	if !strings.Contains(out, "no files were written") {
		t.Errorf("dry-run summary missing notice, got: %q", out)
	}
}

func TestPrintSummaryWithErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := ui.NewSyncPrinterWithWriter(&buf, false)

	p.PrintSummary(&luasync.RunResult{Sources: 2, Errors: 1})

	if !strings.Contains(buf.String(), "1 failed") {
		t.Errorf("summary missing failure count, got: %q", buf.String())
	}
}

func TestPrintSummaryNilResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ui.NewSyncPrinterWithWriter(&buf, false).PrintSummary(nil)

	if buf.Len() != 0 {
		t.Errorf("nil result should produce no output, got: %q", buf.String())
	}
}
