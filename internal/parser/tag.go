package parser

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const scopeKindClass = "class"

// Tag is one extracted definition. Line is 1-based; Offset is the byte
// position of the start of the line in the input.
type Tag struct {
	Name      string `json:"name"`
	Kind      KindID `json:"kind"`
	Line      int    `json:"line"`
	Offset    int64  `json:"offset"`
	FileScope bool   `json:"file_scope,omitempty"`
	Scope     *Scope `json:"scope,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Scope names the class a method tag belongs to.
type Scope struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// QualifiedName joins the scope name and the tag name ("Class.method").
func (t Tag) QualifiedName() string {
	if t.Scope == nil || t.Scope.Name == "" {
		return t.Name
	}

	return t.Scope.Name + "." + t.Name
}

// Line is a raw input line without its terminator.
type Line struct {
	Text   []byte
	Number int
	Offset int64
}

// LineReader supplies lines one at a time and returns io.EOF when the input
// is exhausted.
type LineReader interface {
	ReadLine() (Line, error)
}

type lineReader struct {
	r      *bufio.Reader
	number int
	offset int64
}

// NewLineReader reads lines from r, stripping "\n" or "\r\n" and a leading
// UTF-8 BOM on the first line.
func NewLineReader(r io.Reader) LineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

func (lr *lineReader) ReadLine() (Line, error) {
	raw, err := lr.r.ReadBytes('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(raw) == 0) {
		return Line{}, err
	}

	text := bytes.TrimSuffix(raw, []byte("\n"))
	text = bytes.TrimSuffix(text, []byte("\r"))
	if lr.number == 0 {
		text = StripBOM(text)
	}

	lr.number++
	line := Line{
		Text:   text,
		Number: lr.number,
		Offset: lr.offset,
	}
	lr.offset += int64(len(raw))

	return line, nil
}

// Sink accepts tags as they are produced.
type Sink interface {
	Emit(tag Tag) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tag Tag) error

func (f SinkFunc) Emit(tag Tag) error {
	return f(tag)
}

// Collector is a Sink that keeps every tag in emission order.
type Collector struct {
	Tags []Tag
}

func (c *Collector) Emit(tag Tag) error {
	c.Tags = append(c.Tags, tag)
	return nil
}
