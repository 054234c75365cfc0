package ui

import (
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

const stopPollInterval = 10 * time.Millisecond

func NewProgressWriter() progress.Writer {
	writer := progress.NewWriter()
	writer.SetAutoStop(false)
	writer.SetTrackerLength(30)
	writer.SetStyle(progress.StyleBlocks)
	writer.Style().Visibility.ETA = true
	writer.Style().Visibility.Value = true

	return writer
}

// IndexProgress shows one progress bar per collection while indexing. Its
// OnCollection and OnFile methods match manifest.GenerateOptions and are
// safe for concurrent use.
type IndexProgress struct {
	writer   progress.Writer
	mu       sync.Mutex
	trackers map[string]*progress.Tracker
}

func NewIndexProgress(w io.Writer) *IndexProgress {
	writer := NewProgressWriter()
	writer.SetOutputWriter(w)

	return &IndexProgress{
		writer:   writer,
		trackers: make(map[string]*progress.Tracker),
	}
}

// Start begins rendering in the background and returns once the renderer
// is running.
func (p *IndexProgress) Start() {
	go p.writer.Render()
	for !p.writer.IsRenderInProgress() {
		time.Sleep(stopPollInterval)
	}
}

func (p *IndexProgress) OnCollection(name string, files int) {
	tracker := &progress.Tracker{
		Message: name,
		Total:   int64(files),
		Units:   progress.UnitsDefault,
	}

	p.mu.Lock()
	p.trackers[name] = tracker
	p.mu.Unlock()

	p.writer.AppendTracker(tracker)
	if files == 0 {
		tracker.MarkAsDone()
	}
}

func (p *IndexProgress) OnFile(name string, _ string) {
	p.mu.Lock()
	tracker := p.trackers[name]
	p.mu.Unlock()

	if tracker != nil {
		tracker.Increment(1)
	}
}

// Stop marks every tracker done and waits for the renderer to finish.
func (p *IndexProgress) Stop() {
	p.mu.Lock()
	for _, tracker := range p.trackers {
		if !tracker.IsDone() {
			tracker.MarkAsDone()
		}
	}
	p.mu.Unlock()

	p.writer.Stop()
	for p.writer.IsRenderInProgress() {
		time.Sleep(stopPollInterval)
	}
}
