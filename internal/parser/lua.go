package parser

import (
	"bytes"
	"errors"
	"io"
	"regexp"

	"github.com/samber/oops"
)

// Both idiom patterns use POSIX leftmost-longest matching; [[:alnum:]_]
// stands in for \w and [[:space:]] for \s.
const (
	classPatternSource  = `Lplus\.(Class|Extend)\(.*"([[:alnum:]_]+)".*\)`
	methodPatternSource = `def\.(final|method|virtual|override|static)\([^\\)]*\).([[:alnum:]_]+)` +
		`[[:space:]]*=[[:space:]]*function[[:space:]]*\(`

	identifierGroup = 2
	functionKeyword = "function"
	// keyword plus the separating space
	functionSkip = len(functionKeyword) + 1
)

func init() {
	Register(Definition{
		Name:       "Lua",
		Extensions: []string{"lua"},
		Kinds:      LuaKinds(),
		New: func() (Parser, error) {
			return NewLuaParser()
		},
	})
}

type patternSet struct {
	class  *regexp.Regexp
	method *regexp.Regexp
}

func compilePatterns(classSource, methodSource string) (*patternSet, error) {
	class, err := regexp.CompilePOSIX(classSource)
	if err != nil {
		return nil, oops.
			Code("PATTERN_COMPILE_FAILED").
			With("pattern", classSource).
			Wrapf(err, "compiling class pattern")
	}

	method, err := regexp.CompilePOSIX(methodSource)
	if err != nil {
		return nil, oops.
			Code("PATTERN_COMPILE_FAILED").
			With("pattern", methodSource).
			Wrapf(err, "compiling method pattern")
	}

	return &patternSet{class: class, method: method}, nil
}

func (p *patternSet) matchClass(text []byte) (string, bool) {
	return matchIdentifier(p.class, text)
}

func (p *patternSet) matchMethod(text []byte) (string, bool) {
	return matchIdentifier(p.method, text)
}

func matchIdentifier(re *regexp.Regexp, text []byte) (string, bool) {
	idx := re.FindSubmatchIndex(text)
	start, end := 2*identifierGroup, 2*identifierGroup+1
	if idx == nil || len(idx) <= end || idx[start] < 0 {
		return "", false
	}

	return string(text[idx[start]:idx[end]]), true
}

// Scanner extracts Lua tags line by line. It holds only the compiled
// patterns, so one Scanner may serve concurrent scans.
type Scanner struct {
	patterns *patternSet
}

func NewScanner() (*Scanner, error) {
	patterns, err := compilePatterns(classPatternSource, methodPatternSource)
	if err != nil {
		return nil, err
	}

	return &Scanner{patterns: patterns}, nil
}

// scanContext is the only state carried from one line to the next. The
// class name is overwritten by each class declaration and never popped.
type scanContext struct {
	className string
	hasClass  bool
}

func (c *scanContext) enterClass(name string) {
	c.className = name
	c.hasClass = true
}

// Scan reads r to the end and sends every tag to sink in line order.
func (s *Scanner) Scan(r LineReader, sink Sink) error {
	ctx := &scanContext{}
	out := emitter{sink: sink}
	lastLine := 0

	for {
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return oops.
				Code("READ_FAILED").
				With("after_line", lastLine).
				Wrapf(err, "reading source line")
		}

		lastLine = line.Number

		if lineErr := s.processLine(ctx, line, out); lineErr != nil {
			return lineErr
		}
	}
}

func (s *Scanner) processLine(ctx *scanContext, line Line, out emitter) error {
	if !IsCodeLine(line.Text) {
		return nil
	}

	if name, ok := s.patterns.matchClass(line.Text); ok {
		ctx.enterClass(name)
		return out.class(line, name)
	}

	if name, ok := s.patterns.matchMethod(line.Text); ok && ctx.hasClass {
		return out.method(line, ctx.className, name)
	}

	begin, end, ok := matchGenericFunction(line.Text)
	if !ok {
		return nil
	}

	name, ok := extractName(line.Text, begin, end)
	if !ok {
		return nil
	}

	return out.function(line, name)
}

// IsCodeLine reports whether line holds anything besides whitespace or a
// "--" comment.
func IsCodeLine(line []byte) bool {
	rest := bytes.TrimLeftFunc(line, isSpace)
	if len(rest) == 0 {
		return false
	}

	return !bytes.HasPrefix(rest, []byte("--"))
}

// matchGenericFunction locates the name span of "NAME = function(" or
// "function NAME (". The span is not trimmed.
func matchGenericFunction(text []byte) (int, int, bool) {
	keyword := bytes.Index(text, []byte(functionKeyword))
	if keyword < 0 {
		return 0, 0, false
	}

	if assign := bytes.IndexByte(text, '='); assign >= 0 {
		return 0, assign, true
	}

	begin := keyword + functionSkip
	if begin > len(text) {
		return 0, 0, false
	}

	paren := bytes.IndexByte(text[begin:], '(')
	if paren < 0 {
		return 0, 0, false
	}

	return begin, begin + paren, true
}

func extractName(text []byte, begin, end int) (string, bool) {
	if begin < 0 || end > len(text) || begin >= end {
		return "", false
	}

	name := bytes.TrimFunc(text[begin:end], isSpace)
	if len(name) == 0 {
		return "", false
	}

	return string(name), true
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

type emitter struct {
	sink Sink
}

func (e emitter) class(line Line, name string) error {
	return e.emit(Tag{
		Name:      name,
		Kind:      KindClass,
		Line:      line.Number,
		Offset:    line.Offset,
		FileScope: true,
		Text:      string(line.Text),
	})
}

func (e emitter) method(line Line, className string, name string) error {
	return e.emit(Tag{
		Name:   name,
		Kind:   KindFunction,
		Line:   line.Number,
		Offset: line.Offset,
		Scope:  &Scope{Kind: scopeKindClass, Name: className},
		Text:   string(line.Text),
	})
}

func (e emitter) function(line Line, name string) error {
	return e.emit(Tag{
		Name:   name,
		Kind:   KindFunction,
		Line:   line.Number,
		Offset: line.Offset,
		Text:   string(line.Text),
	})
}

func (e emitter) emit(tag Tag) error {
	if err := e.sink.Emit(tag); err != nil {
		return oops.
			Code("SINK_FAILED").
			With("tag", tag.Name).
			With("line", tag.Line).
			Wrapf(err, "emitting tag")
	}

	return nil
}

// LuaParser runs the Lua scanner over a whole file held in memory.
type LuaParser struct {
	scanner *Scanner
}

func NewLuaParser() (*LuaParser, error) {
	scanner, err := NewScanner()
	if err != nil {
		return nil, err
	}

	return &LuaParser{scanner: scanner}, nil
}

func (p *LuaParser) CanParse(path string) bool {
	return DetectFileType(path) == "lua"
}

func (p *LuaParser) Parse(_ string, content []byte) (*ParseResult, error) {
	content = StripBOM(content)
	lines := bytes.Count(content, []byte("\n")) + 1

	collector := &Collector{}
	if err := p.scanner.Scan(NewLineReader(bytes.NewReader(content)), collector); err != nil {
		return nil, err
	}

	return &ParseResult{
		Tags:  collector.Tags,
		Lines: lines,
	}, nil
}
