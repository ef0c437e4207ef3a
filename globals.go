package gojacommonjs

import (
	"fmt"
	"path/filepath"

	"github.com/dop251/goja"
)

const (
	processGlobalName = "process"
	// evalFilename is the base name of __filename for top-level code.
	evalFilename = "[eval]"
)

// Binder builds the per-module scope (require, module, exports, __dirname,
// __filename) and the top-level globals.
type Binder struct {
	runtime *goja.Runtime
	loader  *Loader
}

// NewModule returns a new module object and its initial, empty, exports
// object.
func (x *Binder) NewModule(path string) (module *goja.Object, exports *goja.Object) {
	exports = x.runtime.NewObject()
	module = x.runtime.NewObject()
	_ = module.Set("exports", exports)
	_ = module.Set("id", path)
	_ = module.Set("filename", path)
	_ = module.Set("loaded", false)
	return module, exports
}

// RequireFunction returns a JavaScript require function that resolves
// specifiers relative to dir. It also carries require.resolve.
func (x *Binder) RequireFunction(dir string) *goja.Object {
	fn := x.runtime.ToValue(func(call goja.FunctionCall) goja.Value {
		value, err := x.loader.Require(x.specifierArgument(call), dir)
		if err != nil {
			throw(x.runtime, err)
		}
		return value
	}).ToObject(x.runtime)

	_ = fn.Set("resolve", func(call goja.FunctionCall) goja.Value {
		path, err := x.loader.Resolve(x.specifierArgument(call), dir)
		if err != nil {
			throw(x.runtime, err)
		}
		return x.runtime.ToValue(path)
	})

	return fn
}

func (x *Binder) specifierArgument(call goja.FunctionCall) string {
	specifier, ok := call.Argument(0).Export().(string)
	if !ok {
		panic(x.runtime.NewTypeError("The \"id\" argument must be of type string"))
	}
	return specifier
}

// bindTopLevel installs require, __dirname and __filename for code that
// does not run as a module, resolving against root.
func (x *Binder) bindTopLevel(root string) error {
	global := x.runtime.GlobalObject()
	if err := global.Set("require", x.RequireFunction(root)); err != nil {
		return err
	}
	if err := global.Set("__dirname", root); err != nil {
		return err
	}
	return global.Set("__filename", filepath.Join(root, evalFilename))
}

// loadGlobalModules requires each of names from root, copying the
// enumerable own properties of their exports onto target.
func (x *Binder) loadGlobalModules(root string, names []string, target *goja.Object) error {
	for _, name := range names {
		value, err := x.loader.Require(name, root)
		if err != nil {
			return fmt.Errorf("gojacommonjs: loading global module %q: %w", name, err)
		}
		obj, ok := value.(*goja.Object)
		if !ok {
			continue
		}
		for _, key := range obj.Keys() {
			if err := target.Set(key, obj.Get(key)); err != nil {
				return fmt.Errorf("gojacommonjs: global module %q: setting %q: %w", name, key, err)
			}
		}
	}
	return nil
}

// processObject returns the global process object, creating it if needed.
func (x *Binder) processObject() (*goja.Object, error) {
	global := x.runtime.GlobalObject()
	if obj, ok := global.Get(processGlobalName).(*goja.Object); ok {
		return obj, nil
	}
	obj := x.runtime.NewObject()
	if err := global.Set(processGlobalName, obj); err != nil {
		return nil, err
	}
	return obj, nil
}
