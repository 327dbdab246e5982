/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package vclpp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/fwessels/vclpp/internal/preprocessor"
)

// DefaultExtension replaces the input extension when no output path is given.
const DefaultExtension = ".vsm"

// Prologue and Epilogue wrap the output for consumption by VCL.
const (
	Prologue = "\n" +
		".init_vf_all\n" +
		".init_vi_all\n" +
		".syntax new\n" +
		".vu\n" +
		"\n" +
		"--enter\n" +
		"--endenter\n" +
		"\n"

	Epilogue = "\n" +
		"--exit\n" +
		"--endexit\n" +
		"\n"
)

type Options struct {
	Input string
	// Output is the destination path; "" derives it from Input and "-"
	// writes to Stdout.
	Output      string
	Extension   string
	VCLJunk     bool
	IncludeDirs []string

	Fs     afero.Fs
	Logger *log.Logger
	Stdout io.Writer
}

// Run preprocesses opts.Input and writes the result. Nothing is written
// unless every stage succeeded.
func Run(opts Options) error {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Output == "" {
		ext := opts.Extension
		if ext == "" {
			ext = DefaultExtension
		}
		opts.Output = DefaultOutputPath(opts.Input, ext)
	}
	if filepath.Clean(opts.Output) == filepath.Clean(opts.Input) {
		return &preprocessor.Error{
			Kind: preprocessor.IOError,
			Path: opts.Output,
			Msg:  "output path would overwrite the input file",
		}
	}

	pp := &preprocessor.Preprocessor{
		IncludeDirs: opts.IncludeDirs,
		Fs:          opts.Fs,
		Logger:      opts.Logger,
	}
	res, err := pp.Process(opts.Input)
	if err != nil {
		return err
	}

	out := Render(res.Lines, opts.VCLJunk)

	if opts.Output == "-" {
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		_, err := io.WriteString(w, out)
		return err
	}

	if err := afero.WriteFile(opts.Fs, opts.Output, []byte(out), 0o644); err != nil {
		return &preprocessor.Error{
			Kind: preprocessor.IOError,
			Path: opts.Output,
			Msg:  "unable to open file for writing",
			Err:  err,
		}
	}
	opts.Logger.Debug("output written", "file", opts.Output, "lines", strings.Count(out, "\n"))
	return nil
}

// Render produces the final text: comments and trailing whitespace are
// stripped, empty lines dropped, and the VCL prologue/epilogue added when
// vclJunk is set.
func Render(lines []string, vclJunk bool) string {
	var b strings.Builder
	if vclJunk {
		b.WriteString(Prologue)
	}
	for _, entry := range lines {
		// macro expansion turns one entry into several lines
		for _, line := range strings.Split(entry, "\n") {
			line = strings.TrimRight(StripComment(line), " \t\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if vclJunk {
		b.WriteString(Epilogue)
	}
	return b.String()
}

// StripComment truncates line at its first ';'.
func StripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

// DefaultOutputPath replaces the extension of input with ext.
func DefaultOutputPath(input, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

// Describe summarises an error chain for terminal display: one line per
// diagnostic, joined include failures expanded.
func Describe(err error) string {
	var b strings.Builder
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case *preprocessor.Error:
			fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(e.Kind.String()), e.Error())
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			var pe *preprocessor.Error
			if errors.As(err, &pe) {
				walk(e.Unwrap())
			} else {
				fmt.Fprintf(&b, "ERROR: %v\n", err)
			}
		default:
			fmt.Fprintf(&b, "ERROR: %v\n", err)
		}
	}
	walk(err)
	return strings.TrimSuffix(b.String(), "\n")
}
