package parser

import "io"

// Test-only exports for internal helper functions.

//nolint:gochecknoglobals // Test-only exports
var (
	ExtractName          = extractName
	MatchGenericFunction = matchGenericFunction
)

// CompilePatterns exposes pattern compilation with arbitrary sources.
func CompilePatterns(classSource, methodSource string) error {
	_, err := compilePatterns(classSource, methodSource)
	return err
}

// ScanLines runs a fresh scanner over the given lines.
func ScanLines(lines ...string) ([]Tag, error) {
	scanner, err := NewScanner()
	if err != nil {
		return nil, err
	}

	reader := &sliceReader{lines: lines}
	collector := &Collector{}
	if scanErr := scanner.Scan(reader, collector); scanErr != nil {
		return nil, scanErr
	}

	return collector.Tags, nil
}

type sliceReader struct {
	lines  []string
	next   int
	offset int64
}

func (r *sliceReader) ReadLine() (Line, error) {
	if r.next >= len(r.lines) {
		return Line{}, io.EOF
	}

	text := r.lines[r.next]
	r.next++
	line := Line{Text: []byte(text), Number: r.next, Offset: r.offset}
	r.offset += int64(len(text)) + 1

	return line, nil
}
