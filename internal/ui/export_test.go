package ui

//nolint:gochecknoglobals // Test-only exports
var (
	RenderLocation = renderLocation
	RenderStatus   = renderStatus
	Truncate       = truncate
)

// TrackerValue reports the current value and done state of a collection's
// tracker.
func (p *IndexProgress) TrackerValue(name string) (int64, bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.trackers[name]
	if !ok {
		return 0, false, false
	}

	return tracker.Value(), tracker.IsDone(), true
}
