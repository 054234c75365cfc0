package parser_test

import (
	"os"
	"testing"

	"github.com/g5becks/luatags/internal/parser"
)

func TestLuaParserOnSampleFile(t *testing.T) {
	t.Parallel()

	content, err := os.ReadFile("testdata/lplus_sample.lua")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	def, ok := parser.ForExtension(".lua")
	if !ok {
		t.Fatal("ForExtension(.lua) found no definition")
	}

	p, err := def.New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !p.CanParse("testdata/lplus_sample.lua") {
		t.Fatal("CanParse() = false, want true")
	}

	result, err := p.Parse("testdata/lplus_sample.lua", content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []struct {
		name  string
		kind  parser.KindID
		line  int
		scope string
	}{
		{name: "ECShopPanel", kind: parser.KindClass, line: 5},
		{name: "Instance", kind: parser.KindFunction, line: 12, scope: "ECShopPanel"},
		{name: "OnCreate", kind: parser.KindFunction, line: 19, scope: "ECShopPanel"},
		{name: "SetPage", kind: parser.KindFunction, line: 23, scope: "ECShopPanel"},
		{name: "sortItems", kind: parser.KindFunction, line: 27},
	}

	if len(result.Tags) != len(want) {
		t.Fatalf("tags len = %d, want %d: %+v", len(result.Tags), len(want), result.Tags)
	}

	for i, w := range want {
		got := result.Tags[i]
		if got.Name != w.name || got.Kind != w.kind || got.Line != w.line {
			t.Errorf("tags[%d] = %s/%v@%d, want %s/%v@%d", i, got.Name, got.Kind, got.Line, w.name, w.kind, w.line)
		}

		gotScope := ""
		if got.Scope != nil {
			gotScope = got.Scope.Name
		}
		if gotScope != w.scope {
			t.Errorf("tags[%d] scope = %q, want %q", i, gotScope, w.scope)
		}
	}
}

func TestRegistryAnnouncesLua(t *testing.T) {
	t.Parallel()

	def, ok := parser.Lookup("lua")
	if !ok {
		t.Fatal("Lookup(lua) found no definition")
	}

	if def.Name != "Lua" {
		t.Errorf("Name = %q, want %q", def.Name, "Lua")
	}

	if len(def.Extensions) != 1 || def.Extensions[0] != "lua" {
		t.Errorf("Extensions = %v, want [lua]", def.Extensions)
	}

	if len(def.Kinds) != 2 {
		t.Fatalf("Kinds len = %d, want 2", len(def.Kinds))
	}

	for _, kind := range def.Kinds {
		if !kind.Enabled {
			t.Errorf("kind %q disabled by default", kind.Name)
		}
	}

	if _, found := parser.ForExtension("py"); found {
		t.Error("ForExtension(py) found a definition, want none")
	}
}
