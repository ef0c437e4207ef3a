package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dop251/goja"
	gojacommonjs "github.com/joeycumines/goja-commonjs"
	"github.com/joeycumines/goja-commonjs/internal/host"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	root      string
	builtins  []string
	globals   []string
	logLevel  string
	process   bool
	noRequire bool
}

func newRootCommand() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "cjsrun [flags] <entry.js>",
		Short: "Run a CommonJS script with Goja",
		Long: `cjsrun runs a JavaScript file as the main module of a CommonJS module
system, on an event loop providing timers and a console.

Modules are resolved from the root directory (default: the working
directory), including node_modules packages. Core module names may be
redirected to other modules with --builtin.`,
		Example: `  cjsrun main.js
  cjsrun --root ./app --builtin path:./shims/path.js app/main.js
  cjsrun --global ./polyfills --log-level debug main.js`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.root, "root", "", "root directory for module resolution (default is the working directory)")
	f.StringArrayVar(&flags.builtins, "builtin", nil, "replace a core module, as name:specifier (repeatable, or comma separated)")
	f.StringArrayVar(&flags.globals, "global", nil, "module whose exports are copied onto the global target at startup (repeatable)")
	f.BoolVar(&flags.process, "process", true, "copy --global module exports onto the process object, rather than the global object")
	f.StringVar(&flags.logLevel, "log-level", logiface.LevelWarning.String(), "log level, written to stderr (disabled, err, warning, info, debug, trace, ...)")
	f.BoolVar(&flags.noRequire, "no-require", false, "do not install the require, __dirname and __filename globals")

	return cmd
}

func run(cmd *cobra.Command, flags rootFlags, entry string) error {
	level, err := parseLevel(flags.logLevel)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), level)

	entry, err = filepath.Abs(entry)
	if err != nil {
		return err
	}

	opts := []gojacommonjs.Option{
		gojacommonjs.WithRequire(!flags.noRequire),
		gojacommonjs.WithProcessGlobal(flags.process),
		gojacommonjs.WithGlobalModules(flags.globals...),
	}
	if flags.root != "" {
		opts = append(opts, gojacommonjs.WithRoot(flags.root))
	}
	for _, s := range flags.builtins {
		opts = append(opts, gojacommonjs.WithBuiltinReplacementsString(s))
	}

	h := host.New(host.WriterPrinter{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}, logger, opts...)
	_, err = h.Run(cmd.Context(), entry)
	return err
}

func newLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

func parseLevel(s string) (logiface.Level, error) {
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == s {
			return level, nil
		}
	}
	return logiface.LevelDisabled, fmt.Errorf("invalid log level %q", s)
}

// errorText formats err for the terminal, including the JavaScript stack
// trace of uncaught exceptions.
func errorText(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.String()
	}
	return "cjsrun: " + err.Error()
}
