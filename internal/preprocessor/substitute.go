package preprocessor

import "strings"

// ---------------- Boundary-safe substitution ----------------

// Substitute replaces every occurrence of name in line that sits on a token
// boundary with repl. Scanning resumes after the inserted text, so a
// replacement containing name is never rescanned.
func Substitute(line, name, repl string) string {
	if name == "" {
		return line
	}
	for pos := 0; pos < len(line); {
		i := strings.Index(line[pos:], name)
		if i < 0 {
			break
		}
		i += pos
		if !isNameBoundary(line, i, len(name)) {
			pos = i + len(name)
			continue
		}
		line = line[:i] + repl + line[i+len(name):]
		pos = i + len(repl)
	}
	return line
}

// isNameBoundary reports whether s[pos:pos+n] is flanked by whitespace,
// punctuation or the ends of the line.
//
// E.g. in "func(FOO+42)" FOO is a match, in "FOOBAR" it is not.
func isNameBoundary(s string, pos, n int) bool {
	before := pos == 0 || isBoundaryByte(s[pos-1])
	after := pos+n >= len(s) || isBoundaryByte(s[pos+n])
	return before && after
}

// isInvocationBoundary reports whether s[pos:pos+n] is immediately followed
// by '{' and preceded by whitespace, punctuation or the start of the line.
func isInvocationBoundary(s string, pos, n int) bool {
	if pos+n >= len(s) || s[pos+n] != '{' {
		return false
	}
	return pos == 0 || isBoundaryByte(s[pos-1])
}

// findInvocation returns the index of the first occurrence of name in line
// that looks like a macro call, or -1.
func findInvocation(line, name string) int {
	if name == "" {
		return -1
	}
	for pos := 0; pos < len(line); {
		i := strings.Index(line[pos:], name)
		if i < 0 {
			return -1
		}
		i += pos
		if isInvocationBoundary(line, i, len(name)) {
			return i
		}
		pos = i + len(name)
	}
	return -1
}

func isBoundaryByte(b byte) bool {
	return isSpace(b) || isPunct(b)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// isPunct matches the printable ASCII characters that are neither letters,
// digits nor space. '_' is an identifier character, not punctuation.
func isPunct(b byte) bool {
	if b == '_' {
		return false
	}
	return (b >= '!' && b <= '/') ||
		(b >= ':' && b <= '@') ||
		(b >= '[' && b <= '`') ||
		(b >= '{' && b <= '~')
}
