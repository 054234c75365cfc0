package parser

import (
	"strings"

	"github.com/samber/oops"
)

// KindID identifies a tag kind of the Lua vocabulary.
type KindID int

const (
	KindFunction KindID = iota
	KindClass
)

// Kind describes a tag category: its stable letter, its display names and
// whether it is emitted by default.
type Kind struct {
	ID      KindID `json:"-"`
	Letter  byte   `json:"letter"`
	Name    string `json:"name"`
	Plural  string `json:"plural"`
	Enabled bool   `json:"enabled"`
}

// LuaKinds returns the kind table of the Lua scanner.
func LuaKinds() []Kind {
	return []Kind{
		{ID: KindFunction, Letter: 'f', Name: "function", Plural: "functions", Enabled: true},
		{ID: KindClass, Letter: 'c', Name: "class", Plural: "classes", Enabled: true},
	}
}

func (k KindID) kind() (Kind, bool) {
	for _, kind := range LuaKinds() {
		if kind.ID == k {
			return kind, true
		}
	}

	return Kind{}, false
}

func (k KindID) Letter() byte {
	kind, ok := k.kind()
	if !ok {
		return '?'
	}

	return kind.Letter
}

func (k KindID) String() string {
	kind, ok := k.kind()
	if !ok {
		return "unknown"
	}

	return kind.Name
}

func (k KindID) MarshalText() ([]byte, error) {
	if _, ok := k.kind(); !ok {
		return nil, oops.
			Code("UNKNOWN_KIND").
			With("kind", int(k)).
			Errorf("unknown tag kind %d", int(k))
	}

	return []byte(k.String()), nil
}

func (k *KindID) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = parsed
	return nil
}

// ParseKind accepts a kind letter, name or plural name.
func ParseKind(value string) (KindID, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, kind := range LuaKinds() {
		if normalized == string(kind.Letter) || normalized == kind.Name || normalized == kind.Plural {
			return kind.ID, nil
		}
	}

	return 0, oops.
		Code("UNKNOWN_KIND").
		With("kind", value).
		Hint("Supported kinds: f (function), c (class)").
		Errorf("unknown tag kind %q", value)
}

// ParseKinds parses a list of kinds, each either a name or a run of letters
// such as "fc".
func ParseKinds(values []string) ([]KindID, error) {
	var kinds []KindID
	seen := map[KindID]struct{}{}

	for _, value := range values {
		parts := []string{value}
		if isLetterRun(value) {
			parts = strings.Split(strings.TrimSpace(value), "")
		}

		for _, part := range parts {
			kind, err := ParseKind(part)
			if err != nil {
				return nil, err
			}

			if _, dup := seen[kind]; dup {
				continue
			}

			seen[kind] = struct{}{}
			kinds = append(kinds, kind)
		}
	}

	return kinds, nil
}

func isLetterRun(value string) bool {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < 2 {
		return false
	}

	for _, r := range trimmed {
		if _, err := ParseKind(string(r)); err != nil {
			return false
		}
	}

	return true
}
