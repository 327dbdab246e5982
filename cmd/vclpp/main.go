package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fwessels/vclpp"
	"github.com/fwessels/vclpp/internal/config"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "vclpp <input-file> [output-file]",
		Short: "Preprocess VU microcode before running VCL",
		Long: `Applies custom preprocessing to a source file prior to running VCL.

Supports C-style #define constants, #include files and #macro/#endmacro
blocks invoked as NAME{ arg, arg }. If no output file is given, the input
name is used with its extension replaced (default '.vsm'). Use '-' as the
output file to write to stdout.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{
				ConfigFile: cfgFile,
				SearchDirs: []string{"."},
				Flags:      cmd.Flags(),
			})
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			if cfg.File != "" {
				logger.Debug("config loaded", "file", cfg.File)
			}

			opts := vclpp.Options{
				Input:       args[0],
				Extension:   cfg.Extension,
				VCLJunk:     cfg.VCLJunk,
				IncludeDirs: cfg.IncludeDirs,
				Logger:      logger,
				Stdout:      cmd.OutOrStdout(),
			}
			if len(args) == 2 {
				opts.Output = args[1]
			}
			return vclpp.Run(opts)
		},
	}

	cmd.Flags().BoolP("vcljunk", "j", false, "add the standard VCL prologue/epilogue to the output")
	cmd.Flags().StringSliceP("include", "I", nil, "additional directory to search for #include files")
	cmd.Flags().StringP("extension", "e", vclpp.DefaultExtension, "extension of the derived output file name")
	cmd.Flags().BoolP("verbose", "v", false, "log include resolution and directive counts")
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.FileName+".yaml)")

	return cmd
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "vclpp"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	styles := log.DefaultStyles()
	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARNING").
		Bold(true).
		Foreground(lipgloss.Color("214"))
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Bold(true).
		Foreground(lipgloss.Color("204"))
	logger.SetStyles(styles)
	return logger
}

func errorHandler(w io.Writer, _ fang.Styles, err error) {
	fmt.Fprintln(w, vclpp.Describe(err))
	fmt.Fprintln(w, "Terminating due to previous error(s)...")
}

func main() {
	err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(strings.TrimSpace(version)),
		fang.WithErrorHandler(errorHandler),
	)
	if err != nil {
		os.Exit(1)
	}
}
