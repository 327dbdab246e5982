package preprocessor

import (
	"bufio"
	"io"
	"strings"
)

// ---------------- Directive sets ----------------

// Constant is a #define: Name is replaced by Value wherever it appears at a
// token boundary.
type Constant struct {
	Name  string
	Value string
}

// Macro is a #macro ... #endmacro block. Params bind positionally.
type Macro struct {
	Name   string
	Params []string
	Body   []string
	Line   int
}

// Include is a quoted #include path and the line it was declared on.
type Include struct {
	Path string
	Line int
}

// DirectiveSet holds the directives of one source unit, in declaration order.
type DirectiveSet struct {
	Path      string
	Includes  []Include
	Constants []Constant
	Macros    []Macro
}

// Line is a code line of the main unit with its 1-based source line number.
type Line struct {
	Num  int
	Text string
}

// Unit is the parse result of one source file.
type Unit struct {
	Path         string
	IsInclude    bool
	Directives   DirectiveSet
	Code         []Line
	ProgramStart bool // #vuprog seen
	ProgramEnd   bool // #endvuprog seen
}

// ---------------- Directive parser ----------------

type parseState int

const (
	stateNormal parseState = iota
	stateInsideMacro
)

type unitParser struct {
	unit   *Unit
	lineNo int
	state  parseState
	macro  Macro
}

// ParseUnit classifies every line of r into directives, macro bodies and
// code lines. Code lines are only meaningful for the main unit but are
// collected for includes too.
func ParseUnit(path string, r io.Reader, isInclude bool) (*Unit, error) {
	up := &unitParser{
		unit: &Unit{
			Path:       path,
			IsInclude:  isInclude,
			Directives: DirectiveSet{Path: path},
		},
	}

	lr := newLineReader(r)
	for {
		line, ok, err := lr.next()
		if err != nil {
			return nil, &Error{Kind: IOError, Path: path, Line: up.lineNo + 1, Msg: "read failed", Err: err}
		}
		if !ok {
			break
		}
		up.lineNo++
		if err := up.handleLine(line); err != nil {
			return nil, err
		}
	}

	if up.state == stateInsideMacro {
		return nil, errorf(SyntaxError, path, up.lineNo,
			"end of file reached while parsing a macro directive, last macro seen '%s'", up.macro.Name)
	}
	return up.unit, nil
}

func (up *unitParser) handleLine(line string) error {
	if isBlank(line) {
		return nil
	}

	if up.state == stateInsideMacro {
		if line == "#endmacro" {
			up.unit.Directives.Macros = append(up.unit.Directives.Macros, up.macro)
			up.macro = Macro{}
			up.state = stateNormal
			return nil
		}
		if line[0] == '#' {
			return up.errorf("preprocessor directive inside macro block: '%s'", line)
		}
		up.macro.Body = append(up.macro.Body, line)
		return nil
	}

	if line[0] != '#' {
		// full-line comments never reach the code stream
		if line[0] != ';' {
			up.unit.Code = append(up.unit.Code, Line{Num: up.lineNo, Text: line})
		}
		return nil
	}

	tokens := strings.Fields(line)
	switch tokens[0] {
	case "#include":
		inc, err := up.parseInclude(tokens)
		if err != nil {
			return err
		}
		up.unit.Directives.Includes = append(up.unit.Directives.Includes, inc)

	case "#define":
		def, err := up.parseDefine(tokens)
		if err != nil {
			return err
		}
		up.unit.Directives.Constants = append(up.unit.Directives.Constants, def)

	case "#macro":
		m, err := up.parseMacroHeader(tokens)
		if err != nil {
			return err
		}
		up.macro = m
		up.state = stateInsideMacro

	case "#endmacro":
		return up.errorf("'#endmacro' without a matching '#macro'")

	case "#vuprog":
		up.unit.ProgramStart = true

	case "#endvuprog":
		up.unit.ProgramEnd = true

	default:
		return up.errorf("unknown preprocessor directive '%s'", tokens[0])
	}
	return nil
}

func (up *unitParser) errorf(format string, args ...any) error {
	return errorf(SyntaxError, up.unit.Path, up.lineNo, format, args...)
}

func (up *unitParser) parseInclude(tokens []string) (Include, error) {
	if len(tokens) < 2 {
		return Include{}, up.errorf("missing file name after #include")
	}
	path, ok := parseIncludeArg(tokens[1])
	if !ok {
		return Include{}, up.errorf("include directive must be between double quotes and contain no spaces")
	}
	return Include{Path: path, Line: up.lineNo}, nil
}

// parseIncludeArg unquotes a "path" token. Empty paths are rejected.
func parseIncludeArg(arg string) (string, bool) {
	if len(arg) >= 3 && arg[0] == '"' && arg[len(arg)-1] == '"' {
		return arg[1 : len(arg)-1], true
	}
	return "", false
}

// parseDefine reads "#define NAME value..."; the value is the remaining
// tokens joined by single spaces and may be empty.
func (up *unitParser) parseDefine(tokens []string) (Constant, error) {
	if len(tokens) < 2 {
		return Constant{}, up.errorf("missing constant name after #define")
	}
	return Constant{Name: tokens[1], Value: strings.Join(tokens[2:], " ")}, nil
}

// parseMacroHeader reads "#macro NAME" or "#macro NAME: a, b, c".
func (up *unitParser) parseMacroHeader(tokens []string) (Macro, error) {
	if len(tokens) < 2 {
		return Macro{}, up.errorf("missing macro name after #macro")
	}
	m := Macro{Name: tokens[1], Line: up.lineNo}

	if !strings.HasSuffix(m.Name, ":") {
		if len(tokens) > 2 && tokens[2][0] != ';' {
			return Macro{}, up.errorf("more text follows macro declaration, "+
				"add a ':' right after the macro name to define a param list")
		}
		return m, nil
	}

	m.Name = strings.TrimSuffix(m.Name, ":")
	if m.Name == "" {
		return Macro{}, up.errorf("missing macro name before ':'")
	}

	params := tokens[2:]
	for i, tok := range params {
		if tok[0] == ';' {
			params = params[:i]
			break
		}
	}

	m.Params = make([]string, 0, len(params))
	for i, param := range params {
		last := i == len(params)-1

		if param == "," {
			return Macro{}, up.errorf("lost comma in macro '%s' parameter list", m.Name)
		}
		if strings.HasSuffix(param, ",") {
			param = param[:len(param)-1]
			if last {
				return Macro{}, up.errorf("extraneous comma after last macro parameter '%s'", param)
			}
			if strings.HasSuffix(param, ",") {
				return Macro{}, up.errorf("lost comma after macro parameter '%s'", param[:len(param)-1])
			}
		} else if !last {
			return Macro{}, up.errorf("missing comma after macro parameter '%s'", param)
		}
		m.Params = append(m.Params, param)
	}
	return m, nil
}

// ---------------- Line reading ----------------

type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// next returns the next line without its terminator; ok is false at EOF.
func (lr *lineReader) next() (line string, ok bool, err error) {
	s, err := lr.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, err
	}
	if len(s) == 0 && err == io.EOF {
		return "", false, nil
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, true, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
