package gojacommonjs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/logiface"
	"github.com/spf13/afero"
)

// Option configures a [Context]. Options are immutable value types that
// validate on construction.
type Option interface {
	apply(*config) error
}

type config struct {
	fs             afero.Fs
	logger         *logiface.Logger[logiface.Event]
	builtins       BuiltinTable
	natives        map[string]require.ModuleLoader
	root           string
	globalModules  []string
	requireEnabled bool
	processGlobal  bool
}

func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{
		requireEnabled: true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// WithRoot sets the root directory. Relative and bare specifiers required
// from top-level code resolve against it, and the node_modules lookup never
// climbs above it. The directory must exist; [New] fails with an
// [*InvalidRootDirectoryError] otherwise. Defaults to the working directory.
func WithRoot(dir string) Option {
	return withRoot{dir: dir}
}

type withRoot struct {
	dir string
}

func (o withRoot) apply(cfg *config) error {
	if o.dir == "" {
		return errors.New("root directory must not be empty")
	}
	cfg.root = o.dir
	return nil
}

// WithRequire controls whether the require, __dirname and __filename
// globals are installed. It defaults to true. When disabled, modules can
// still be loaded from Go via [Context.Require].
func WithRequire(enabled bool) Option {
	return withRequire(enabled)
}

type withRequire bool

func (o withRequire) apply(cfg *config) error {
	cfg.requireEnabled = bool(o)
	return nil
}

// WithBuiltinReplacements configures the builtin override table. Entries
// are merged into any table configured by earlier options, later entries
// winning.
func WithBuiltinReplacements(table BuiltinTable) Option {
	return withBuiltins{table: table}
}

// WithBuiltinReplacementsString is like [WithBuiltinReplacements], but
// accepts the textual form parsed by [ParseBuiltinReplacements], e.g.
// "path:./shims/path.js,fs:./shims/fs.js".
func WithBuiltinReplacementsString(s string) Option {
	table, err := ParseBuiltinReplacements(s)
	return withBuiltins{table: table, err: err}
}

type withBuiltins struct {
	table BuiltinTable
	err   error
}

func (o withBuiltins) apply(cfg *config) error {
	if o.err != nil {
		return o.err
	}
	if err := o.table.validate(); err != nil {
		return err
	}
	if cfg.builtins == nil {
		cfg.builtins = make(BuiltinTable, len(o.table))
	}
	for name, target := range o.table {
		cfg.builtins[name] = target
	}
	return nil
}

// WithGlobalModules configures modules that are required, from the root,
// while the [Context] is constructed. The enumerable properties of each
// module's exports are copied onto the shared global target, see
// [WithProcessGlobal]. Failing to load any of them fails [New].
func WithGlobalModules(names ...string) Option {
	return withGlobalModules{names: names}
}

type withGlobalModules struct {
	names []string
}

func (o withGlobalModules) apply(cfg *config) error {
	for _, name := range o.names {
		if strings.TrimSpace(name) == "" {
			return errors.New("global module name must not be empty")
		}
	}
	cfg.globalModules = append(cfg.globalModules, o.names...)
	return nil
}

// WithProcessGlobal makes the global "process" object (created if absent)
// the target for modules configured via [WithGlobalModules]. When disabled,
// their exports are copied onto the global object itself.
func WithProcessGlobal(enabled bool) Option {
	return withProcessGlobal(enabled)
}

type withProcessGlobal bool

func (o withProcessGlobal) apply(cfg *config) error {
	cfg.processGlobal = bool(o)
	return nil
}

// WithNativeModule registers a core module implemented in Go, using the
// same loader signature as [require.Registry.RegisterNativeModule]. The
// module is addressed by name, with or without a "node:" prefix, and may
// itself be replaced via the builtin override table.
func WithNativeModule(name string, loader require.ModuleLoader) Option {
	return withNativeModule{name: name, loader: loader}
}

type withNativeModule struct {
	loader require.ModuleLoader
	name   string
}

func (o withNativeModule) apply(cfg *config) error {
	if o.name == "" || strings.HasPrefix(o.name, nativePrefix) || isPathSpecifier(o.name) {
		return fmt.Errorf("invalid native module name %q", o.name)
	}
	if o.loader == nil {
		return fmt.Errorf("native module %q: loader must not be nil", o.name)
	}
	if cfg.natives == nil {
		cfg.natives = make(map[string]require.ModuleLoader)
	}
	cfg.natives[o.name] = o.loader
	return nil
}

// WithFs sets the filesystem modules are resolved and read from. Defaults
// to [afero.NewOsFs].
func WithFs(fs afero.Fs) Option {
	return withFs{fs: fs}
}

type withFs struct {
	fs afero.Fs
}

func (o withFs) apply(cfg *config) error {
	if o.fs == nil {
		return errors.New("filesystem must not be nil")
	}
	cfg.fs = o.fs
	return nil
}

// WithLogger enables structured logging of resolution and load events.
// Logging is disabled by default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return withLogger{logger: logger}
}

type withLogger struct {
	logger *logiface.Logger[logiface.Event]
}

func (o withLogger) apply(cfg *config) error {
	cfg.logger = o.logger
	return nil
}
