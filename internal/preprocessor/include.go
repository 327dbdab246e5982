package preprocessor

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ---------------- Include resolution ----------------

// ResolveIncludes parses every include of main and returns their directive
// sets in discovery order. All includes are opened before any is parsed so
// that every missing file is reported in one run. Included units may not
// include further units.
func (p *Preprocessor) ResolveIncludes(main *Unit) ([]DirectiveSet, error) {
	incs := main.Directives.Includes
	files := make([]afero.File, len(incs))
	paths := make([]string, len(incs))
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()

	var failed []error
	for i, inc := range incs {
		f, resolved, err := p.openInclude(inc.Path, main.Path)
		if err != nil {
			failed = append(failed, &Error{
				Kind: IOError,
				Path: main.Path,
				Line: inc.Line,
				Msg:  fmt.Sprintf("unable to open include file %q", inc.Path),
				Err:  err,
			})
			continue
		}
		p.logger().Debug("include resolved", "include", inc.Path, "file", resolved)
		files[i], paths[i] = f, resolved
	}
	if len(failed) > 0 {
		return nil, fmt.Errorf("failed to open %d include file(s): %w", len(failed), errors.Join(failed...))
	}

	sets := make([]DirectiveSet, 0, len(incs))
	for i := range incs {
		unit, err := p.parse(paths[i], files[i], true)
		files[i].Close()
		files[i] = nil
		if err != nil {
			return nil, err
		}
		if len(unit.Directives.Includes) > 0 {
			return nil, errorf(StructuralError, unit.Path, unit.Directives.Includes[0].Line,
				"recursive includes: include directives are not allowed inside included files")
		}
		sets = append(sets, unit.Directives)
	}
	return sets, nil
}

// openInclude tries path as written, then relative to the including file,
// then each include directory.
func (p *Preprocessor) openInclude(path, includingFile string) (afero.File, string, error) {
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		if dir := filepath.Dir(includingFile); dir != "." {
			candidates = append(candidates, filepath.Join(dir, path))
		}
		for _, dir := range p.IncludeDirs {
			candidates = append(candidates, filepath.Join(dir, path))
		}
	}

	var firstErr error
	for _, cand := range candidates {
		if st, err := p.fs().Stat(cand); err == nil && st.IsDir() {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s is a directory", cand)
			}
			continue
		}
		f, err := p.fs().Open(cand)
		if err == nil {
			return f, filepath.Clean(cand), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, "", firstErr
}
