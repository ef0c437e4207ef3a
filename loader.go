package gojacommonjs

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/logiface"
	"github.com/spf13/afero"
)

const (
	wrapperHeader = "(function (exports, require, module, __filename, __dirname) {"
	wrapperFooter = "\n})"

	// entryHeader and entryFooter wrap the quoted source of an entry file,
	// which runs through direct eval so its completion value is returned.
	entryHeader = "(function (exports, require, module, __filename, __dirname) { return eval("
	entryFooter = "); })"
)

// Loader implements require: it resolves specifiers, consults and updates
// the [Cache], and evaluates modules that are not yet cached.
type Loader struct {
	runtime   *goja.Runtime
	resolver  *Resolver
	cache     *Cache
	binder    *Binder
	fs        afero.Fs
	logger    *logiface.Logger[logiface.Event]
	natives   map[string]require.ModuleLoader
	jsonParse goja.Callable
}

func newLoader(runtime *goja.Runtime, resolver *Resolver, cache *Cache, cfg *config) (*Loader, error) {
	jsonObj := runtime.Get("JSON")
	if jsonObj == nil || goja.IsUndefined(jsonObj) || goja.IsNull(jsonObj) {
		return nil, fmt.Errorf("runtime has no JSON global")
	}
	parse, ok := goja.AssertFunction(jsonObj.ToObject(runtime).Get("parse"))
	if !ok {
		return nil, fmt.Errorf("runtime JSON.parse is not a function")
	}
	x := &Loader{
		runtime:   runtime,
		resolver:  resolver,
		cache:     cache,
		fs:        cfg.fs,
		logger:    cfg.logger,
		natives:   cfg.natives,
		jsonParse: parse,
	}
	x.binder = &Binder{runtime: runtime, loader: x}
	return x, nil
}

// Require resolves specifier relative to fromDir and returns the module's
// exports. A module that is already loaded, or still loading because of a
// cycle, is not evaluated again: its current exports are returned. A
// module that previously failed returns the same error again.
func (x *Loader) Require(specifier string, fromDir string) (goja.Value, error) {
	path, err := x.resolver.Resolve(specifier, fromDir)
	if err != nil {
		x.logger.Debug().
			Str(`specifier`, specifier).
			Str(`from`, fromDir).
			Log(`module not found`)
		return nil, err
	}
	x.logger.Trace().
		Str(`specifier`, specifier).
		Str(`path`, path).
		Log(`module resolved`)
	return x.load(path)
}

// Resolve returns the canonical path for specifier without loading it.
func (x *Loader) Resolve(specifier string, fromDir string) (string, error) {
	return x.resolver.Resolve(specifier, fromDir)
}

func (x *Loader) load(path string) (goja.Value, error) {
	rec, created := x.cache.CreateIfAbsent(path, kindOf(path))
	if !created {
		x.logger.Trace().
			Str(`path`, path).
			Stringer(`state`, rec.state).
			Log(`module cache hit`)
		if rec.state == StateFailed {
			return nil, rec.err
		}
		return rec.exports.Value(), nil
	}

	x.logger.Debug().
		Str(`path`, path).
		Stringer(`kind`, rec.kind).
		Log(`loading module`)

	var (
		value goja.Value
		err   error
	)
	switch rec.kind {
	case KindJSON:
		value, err = x.evalJSON(path)
	case KindNative:
		value, err = x.evalNative(path)
	default:
		value, err = x.evalScript(path)
	}

	return x.complete(rec, value, err)
}

// complete finalizes or fails a loading record, depending on err.
func (x *Loader) complete(rec *Record, value goja.Value, err error) (goja.Value, error) {
	if err != nil {
		if e := x.cache.Fail(rec.path, err); e != nil {
			return nil, e
		}
		x.logger.Warning().
			Str(`path`, rec.path).
			Err(err).
			Log(`module failed to load`)
		return nil, err
	}
	if err := x.cache.Finalize(rec.path, value); err != nil {
		return nil, err
	}
	if module := rec.exports.module; module != nil {
		_ = module.Set("loaded", true)
	}
	x.logger.Debug().
		Str(`path`, rec.path).
		Log(`module loaded`)
	return value, nil
}

func (x *Loader) evalScript(path string) (goja.Value, error) {
	src, err := x.readFile(path)
	if err != nil {
		return nil, err
	}

	module, exports := x.binder.NewModule(path)
	x.cache.bind(path, module)

	fnValue, err := x.runtime.RunScript(path, wrapperHeader+stripShebang(string(src))+wrapperFooter)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return nil, fmt.Errorf("gojacommonjs: %s: module wrapper is not a function", path)
	}

	dirname := filepath.Dir(path)
	_, err = fn(exports, exports, x.binder.RequireFunction(dirname), module, x.runtime.ToValue(path), x.runtime.ToValue(dirname))
	if err != nil {
		return nil, err
	}
	return module.Get("exports"), nil
}

func (x *Loader) evalJSON(path string) (goja.Value, error) {
	data, err := x.readFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if err := checkJSON(path, data); err != nil {
		return nil, err
	}
	return x.jsonParse(goja.Undefined(), x.runtime.ToValue(string(data)))
}

func (x *Loader) evalNative(path string) (goja.Value, error) {
	loader, ok := x.natives[strings.TrimPrefix(path, nativePrefix)]
	if !ok {
		return nil, fmt.Errorf("gojacommonjs: native module %s is not registered", path)
	}

	module, _ := x.binder.NewModule(path)
	x.cache.bind(path, module)

	if ex := x.runtime.Try(func() { loader(x.runtime, module) }); ex != nil {
		return nil, ex
	}
	return module.Get("exports"), nil
}

func (x *Loader) readFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(x.fs, path)
	if err != nil {
		return nil, fmt.Errorf("gojacommonjs: reading %s: %w", path, err)
	}
	return data, nil
}

// stripShebang comments out a leading #! line, keeping line numbers.
func stripShebang(src string) string {
	if strings.HasPrefix(src, "#!") {
		return "//" + src
	}
	return src
}
