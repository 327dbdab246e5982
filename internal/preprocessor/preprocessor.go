package preprocessor

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// ---------------- Preprocessor ----------------

// Preprocessor resolves #include, #define and #macro directives of a VU
// microcode source. The zero value reads from the OS filesystem and logs
// nothing.
type Preprocessor struct {
	// IncludeDirs are searched, in order, for include paths that cannot be
	// opened as written or relative to the main source.
	IncludeDirs []string
	Fs          afero.Fs
	Logger      *log.Logger
}

// Result is a fully expanded main unit.
type Result struct {
	Main    *Unit
	Context Context
	// Lines holds one entry per main unit code line; macro expansion can
	// turn an entry into several newline separated lines.
	Lines []string
}

// Process runs the whole pipeline on the main source at path: parse,
// resolve includes, merge, expand macros and then constants.
func (p *Preprocessor) Process(path string) (*Result, error) {
	main, err := p.ParseFile(path, false)
	if err != nil {
		return nil, err
	}

	includes, err := p.ResolveIncludes(main)
	if err != nil {
		return nil, err
	}

	ctx := Merge(includes, main.Directives)
	nconst, nmacro := ctx.counts()
	p.logger().Debug("directives merged", "units", len(ctx), "constants", nconst, "macros", nmacro)

	expanded, err := ExpandMacros(main.Path, main.Code, ctx)
	if err != nil {
		return nil, err
	}

	return &Result{
		Main:    main,
		Context: ctx,
		Lines:   ExpandDefines(expanded, ctx),
	}, nil
}

// ParseFile opens and parses one source unit. A main unit missing either
// program marker only produces a warning.
func (p *Preprocessor) ParseFile(path string, isInclude bool) (*Unit, error) {
	f, err := p.fs().Open(path)
	if err != nil {
		return nil, &Error{Kind: IOError, Path: path, Msg: "unable to open file for reading", Err: err}
	}
	defer f.Close()

	return p.parse(path, f, isInclude)
}

func (p *Preprocessor) parse(path string, r io.Reader, isInclude bool) (*Unit, error) {
	unit, err := ParseUnit(path, r, isInclude)
	if err != nil {
		return nil, err
	}

	if !isInclude {
		if !unit.ProgramStart {
			p.logger().Warn("program start directive '#vuprog' was not found", "file", path)
		}
		if !unit.ProgramEnd {
			p.logger().Warn("program end directive '#endvuprog' was not found", "file", path)
		}
	}
	return unit, nil
}

func (p *Preprocessor) fs() afero.Fs {
	if p.Fs == nil {
		p.Fs = afero.NewOsFs()
	}
	return p.Fs
}

func (p *Preprocessor) logger() *log.Logger {
	if p.Logger == nil {
		p.Logger = log.New(io.Discard)
	}
	return p.Logger
}
