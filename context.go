package gojacommonjs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dop251/goja"
	"github.com/spf13/afero"
)

// Context is a CommonJS module system bound to a single [goja.Runtime].
type Context struct {
	runtime  *goja.Runtime
	resolver *Resolver
	cache    *Cache
	loader   *Loader
	cfg      *config
}

// New creates a new [Context] bound to the given [goja.Runtime], installing
// the require, __dirname and __filename globals (unless disabled via
// [WithRequire]) and loading any modules configured via
// [WithGlobalModules].
//
// New panics if runtime is nil, as this is a programming error. It returns an error if option validation fails,
// or an [*InvalidRootDirectoryError] if the root directory does not exist.
func New(runtime *goja.Runtime, opts ...Option) (*Context, error) {
	if runtime == nil {
		panic("gojacommonjs: runtime must not be nil")
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("gojacommonjs: %w", err)
	}

	if cfg.fs == nil {
		cfg.fs = afero.NewOsFs()
	}

	if cfg.root == "" {
		if cfg.root, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("gojacommonjs: working directory: %w", err)
		}
	}
	if root, err := filepath.Abs(cfg.root); err == nil {
		cfg.root = root
	}
	if info, err := cfg.fs.Stat(cfg.root); err != nil || !info.IsDir() {
		return nil, &InvalidRootDirectoryError{Path: cfg.root}
	}

	natives := cfg.natives
	resolver := NewResolver(cfg.fs, cfg.root, cfg.builtins, func(name string) bool {
		_, ok := natives[name]
		return ok
	})
	cache := NewCache()
	loader, err := newLoader(runtime, resolver, cache, cfg)
	if err != nil {
		return nil, fmt.Errorf("gojacommonjs: %w", err)
	}

	x := &Context{
		runtime:  runtime,
		resolver: resolver,
		cache:    cache,
		loader:   loader,
		cfg:      cfg,
	}

	if cfg.requireEnabled {
		if err := loader.binder.bindTopLevel(resolver.Root()); err != nil {
			return nil, fmt.Errorf("gojacommonjs: installing globals: %w", err)
		}
	}

	target := runtime.GlobalObject()
	if cfg.processGlobal {
		if target, err = loader.binder.processObject(); err != nil {
			return nil, fmt.Errorf("gojacommonjs: installing process: %w", err)
		}
	}
	if err := loader.binder.loadGlobalModules(resolver.Root(), cfg.globalModules, target); err != nil {
		return nil, err
	}

	cfg.logger.Debug().
		Str(`root`, resolver.Root()).
		Bool(`require`, cfg.requireEnabled).
		Int(`globals`, len(cfg.globalModules)).
		Log(`commonjs context ready`)

	return x, nil
}

// Require loads specifier as if required from top-level code, i.e.
// relative to the root, returning its exports. Unlike the JavaScript
// require function, errors are returned rather than thrown.
func (x *Context) Require(specifier string) (goja.Value, error) {
	return x.loader.Require(specifier, x.resolver.Root())
}

// Resolve returns the canonical path specifier resolves to from the root,
// without loading it.
func (x *Context) Resolve(specifier string) (string, error) {
	return x.loader.Resolve(specifier, x.resolver.Root())
}

// RunFile runs the file at path (relative to the root, unless absolute) as
// the entry script, returning its completion value.
//
// The file is registered in the cache before it runs, so modules that
// require it back observe its partial exports, as with any other cycle.
// The entry gets its own require, module, exports, __dirname and
// __filename, in scope for its whole lifetime, including callbacks that
// run after RunFile returns. The top-level globals are left untouched. If
// the file was already loaded, as an entry or a module, it is not run
// again and its exports are returned instead. JSON files are loaded as
// modules, returning the parsed value.
func (x *Context) RunFile(path string) (goja.Value, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(x.resolver.Root(), abs)
	}
	abs = filepath.Clean(abs)
	if !x.resolver.isFile(abs) {
		return nil, &ModuleNotFoundError{Specifier: path}
	}

	if kindOf(abs) != KindScript {
		return x.loader.load(abs)
	}

	rec, created := x.cache.CreateIfAbsent(abs, KindScript)
	if !created {
		if rec.state == StateFailed {
			return nil, rec.err
		}
		return rec.exports.Value(), nil
	}

	x.cfg.logger.Debug().
		Str(`path`, abs).
		Log(`running entry file`)

	src, err := x.loader.readFile(abs)
	if err != nil {
		_, err = x.loader.complete(rec, nil, err)
		return nil, err
	}

	module, exports := x.loader.binder.NewModule(abs)
	x.cache.bind(abs, module)

	result, err := x.runEntry(abs, stripShebang(string(src)), module, exports)
	if _, err := x.loader.complete(rec, module.Get("exports"), err); err != nil {
		return nil, err
	}
	return result, nil
}

func (x *Context) runEntry(path string, src string, module *goja.Object, exports *goja.Object) (goja.Value, error) {
	if !x.cfg.requireEnabled {
		return x.runtime.RunScript(path, src)
	}
	body, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	fnValue, err := x.runtime.RunScript(path, entryHeader+string(body)+entryFooter)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return nil, fmt.Errorf("gojacommonjs: %s: entry wrapper is not a function", path)
	}
	dirname := filepath.Dir(path)
	return fn(exports, exports, x.loader.binder.RequireFunction(dirname), module, x.runtime.ToValue(path), x.runtime.ToValue(dirname))
}

// RunString runs src as top-level code, named after the root, returning
// its completion value.
func (x *Context) RunString(src string) (goja.Value, error) {
	return x.runtime.RunScript(filepath.Join(x.resolver.Root(), evalFilename), src)
}

// Cache returns the module cache.
func (x *Context) Cache() *Cache {
	return x.cache
}

// Root returns the absolute root directory.
func (x *Context) Root() string {
	return x.resolver.Root()
}

// Runtime returns the runtime the Context is bound to.
func (x *Context) Runtime() *goja.Runtime {
	return x.runtime
}

// IsModuleNotFound reports whether err is, or wraps, a
// [*ModuleNotFoundError].
func IsModuleNotFound(err error) bool {
	var target *ModuleNotFoundError
	return errors.As(err, &target)
}
