package preprocessor

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func newTestPreprocessor(t *testing.T, files map[string]string) (*Preprocessor, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	var logs bytes.Buffer
	return &Preprocessor{Fs: fs, Logger: log.New(&logs)}, &logs
}

func TestProcess(t *testing.T) {
	pp, logs := newTestPreprocessor(t, map[string]string{
		"defs.inc": lines(
			"; shared definitions",
			"#define ONE vf01",
			"#define SCALE 2.0",
			"#macro LOADI: reg, val",
			"  loi val",
			"  addi.x reg, vf00, I",
			"#endmacro",
		),
		"main.vcl": lines(
			`#include "defs.inc"`,
			"#define TWO vf02",
			"#define SCALE 4.0",
			"#vuprog",
			"  LOADI{ TWO, SCALE }",
			"  add.xyz ONE, ONE, TWO ; sum",
			"#endvuprog",
		),
	})

	res, err := pp.Process("main.vcl")
	if err != nil {
		t.Fatalf("process error: %v", err)
	}

	want := []string{
		"\n  loi 2.0\n  addi.x vf02, vf00, I\n",
		"  add.xyz vf01, vf01, vf02 ; sum",
	}
	if diff := cmp.Diff(want, res.Lines); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if len(res.Context) != 2 || res.Context[0].Path != "defs.inc" || res.Context[1].Path != "main.vcl" {
		t.Errorf("unexpected merge order: %+v", res.Context)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected log output: %s", logs.String())
	}
}

func TestMissingProgramMarkers(t *testing.T) {
	pp, logs := newTestPreprocessor(t, map[string]string{
		"lib.inc":  "#define A 1\n",
		"main.vcl": lines(`#include "lib.inc"`, "nop"),
	})

	if _, err := pp.Process("main.vcl"); err != nil {
		t.Fatalf("missing markers must not be fatal: %v", err)
	}
	out := logs.String()
	for _, marker := range []string{"'#vuprog' was not found", "'#endvuprog' was not found"} {
		if !strings.Contains(out, marker) {
			t.Errorf("missing warning %q in %q", marker, out)
		}
	}
	if strings.Contains(out, "lib.inc") {
		t.Errorf("include units must not warn about markers: %q", out)
	}
}

func TestIncludeSearch(t *testing.T) {
	pp, _ := newTestPreprocessor(t, map[string]string{
		"src/main.vcl": lines(`#include "local.inc"`, `#include "shared.inc"`, "A B"),
		"src/local.inc": "#define A local\n",
		"lib/shared.inc": "#define B shared\n",
	})
	pp.IncludeDirs = []string{"lib"}

	res, err := pp.Process("src/main.vcl")
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if diff := cmp.Diff([]string{"local shared"}, res.Lines); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingIncludes(t *testing.T) {
	pp, _ := newTestPreprocessor(t, map[string]string{
		"found.inc": "#define A 1\n",
		"main.vcl": lines(
			`#include "missing1.inc"`,
			`#include "found.inc"`,
			`#include "missing2.inc"`,
		),
	})

	_, err := pp.Process("main.vcl")
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := KindOf(err); kind != IOError {
		t.Errorf("got kind %v, want %v", kind, IOError)
	}
	msg := err.Error()
	for _, want := range []string{`main.vcl(1): unable to open include file "missing1.inc"`, `main.vcl(3): unable to open include file "missing2.inc"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not report %q", msg, want)
		}
	}
	if !errors.Is(err, &Error{Kind: IOError}) {
		t.Errorf("errors.Is(err, IOError) = false")
	}
}

func TestRecursiveInclude(t *testing.T) {
	pp, _ := newTestPreprocessor(t, map[string]string{
		"a.inc":    lines("#define A 1", `#include "b.inc"`),
		"b.inc":    "#define B 1\n",
		"main.vcl": lines(`#include "a.inc"`, "nop"),
	})

	_, err := pp.Process("main.vcl")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "a.inc(2): recursive includes: include directives are not allowed inside included files"
	if diff := cmp.Diff(want, err.Error()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if kind := KindOf(err); kind != StructuralError {
		t.Errorf("got kind %v, want %v", kind, StructuralError)
	}
}

func TestIncludeSyntaxError(t *testing.T) {
	pp, _ := newTestPreprocessor(t, map[string]string{
		"bad.inc":  lines("#macro M", "nop"),
		"main.vcl": lines(`#include "bad.inc"`, "M{}"),
	})

	_, err := pp.Process("main.vcl")
	want := "bad.inc(2): end of file reached while parsing a macro directive, last macro seen 'M'"
	if err == nil || err.Error() != want {
		t.Errorf("got: %v want: %s", err, want)
	}
}

func TestMissingSource(t *testing.T) {
	pp, _ := newTestPreprocessor(t, nil)

	_, err := pp.Process("nope.vcl")
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := KindOf(err); kind != IOError {
		t.Errorf("got kind %v, want %v", kind, IOError)
	}
	if !strings.HasPrefix(err.Error(), "nope.vcl: unable to open file for reading") {
		t.Errorf("unexpected message %q", err)
	}
}
