package preprocessor

import (
	"strings"
)

// ---------------- Merged context ----------------

// Context is the lookup universe for expansion: every include's directive
// set in discovery order followed by the main unit's set. Lookups walk the
// sets in order and the first match wins; shadowed names are not reported.
type Context []DirectiveSet

// Merge builds the context for a main unit and its parsed includes.
func Merge(includes []DirectiveSet, main DirectiveSet) Context {
	ctx := make(Context, 0, len(includes)+1)
	ctx = append(ctx, includes...)
	return append(ctx, main)
}

// LookupMacro returns the first macro named name.
func (c Context) LookupMacro(name string) (Macro, bool) {
	for _, set := range c {
		for _, m := range set.Macros {
			if m.Name == name {
				return m, true
			}
		}
	}
	return Macro{}, false
}

// LookupConstant returns the first constant named name.
func (c Context) LookupConstant(name string) (Constant, bool) {
	for _, set := range c {
		for _, def := range set.Constants {
			if def.Name == name {
				return def, true
			}
		}
	}
	return Constant{}, false
}

func (c Context) counts() (constants, macros int) {
	for _, set := range c {
		constants += len(set.Constants)
		macros += len(set.Macros)
	}
	return
}

// ---------------- Macro expansion ----------------

// ExpandMacros replaces each code line holding a macro invocation with the
// macro body. At most one invocation is recognized per line. The result has
// one entry per input line; expanded entries span several lines.
func ExpandMacros(path string, code []Line, ctx Context) ([]string, error) {
	out := make([]string, 0, len(code))
	for _, ln := range code {
		expanded, ok, err := expandInvocation(ln.Text, ctx)
		if err != nil {
			err.Path, err.Line = path, ln.Num
			return nil, err
		}
		if !ok {
			expanded = ln.Text
		}
		out = append(out, expanded)
	}
	return out, nil
}

// expandInvocation expands the first macro of ctx invoked in line. ok is
// false when line calls no known macro.
func expandInvocation(line string, ctx Context) (string, bool, *Error) {
	for _, set := range ctx {
		for _, m := range set.Macros {
			pos := findInvocation(line, m.Name)
			if pos < 0 {
				continue
			}
			out, err := expandMacro(line, pos, m)
			if err != nil {
				return "", false, err
			}
			return out, true, nil
		}
	}
	return "", false, nil
}

// expandMacro binds the arguments of the call at line[pos:] to m's params.
func expandMacro(line string, pos int, m Macro) (string, *Error) {
	args, err := invocationArgs(line[pos+len(m.Name)+1:])
	if err != nil {
		err.Msg = "macro '" + m.Name + "': " + err.Msg
		return "", err
	}

	if len(m.Params) == 0 && len(args) > 0 {
		return "", errorf(InvocationError, "", 0,
			"macro '%s' takes no arguments, but %d were provided", m.Name, len(args))
	}
	if len(args) != len(m.Params) {
		return "", errorf(InvocationError, "", 0,
			"macro '%s' takes %d arguments, but %d were provided", m.Name, len(m.Params), len(args))
	}

	if len(m.Body) == 0 {
		return "", nil
	}

	body := make([]string, len(m.Body))
	copy(body, m.Body)
	for i := range body {
		for p, param := range m.Params {
			body[i] = Substitute(body[i], param, args[p])
		}
	}

	var b strings.Builder
	b.WriteByte('\n')
	for _, l := range body {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// invocationArgs splits the text following "name{" into whitespace
// delimited arguments up to the closing '}', stripping one separating comma
// from each end of every argument.
func invocationArgs(s string) ([]string, *Error) {
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return nil, errorf(SyntaxError, "", 0, "unterminated macro invocation, missing '}'")
	}
	args := strings.Fields(s[:end])
	for i, arg := range args {
		args[i] = stripCommas(arg)
	}
	return args, nil
}

func stripCommas(s string) string {
	s = strings.TrimSuffix(s, ",")
	return strings.TrimPrefix(s, ",")
}

// ---------------- Define expansion ----------------

// ExpandDefines substitutes every constant of ctx, in context order, once
// into each line. Values are never rescanned for other constants.
func ExpandDefines(lines []string, ctx Context) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		for _, set := range ctx {
			for _, def := range set.Constants {
				line = Substitute(line, def.Name, def.Value)
			}
		}
		out = append(out, line)
	}
	return out
}
