// Package gojacommonjs provides a CommonJS module system (require,
// module.exports, __dirname and __filename) for the Goja JavaScript engine.
//
// A [Context] binds the module system to a single [goja.Runtime]. It owns
// the module cache for that runtime, resolves specifiers against a fixed
// root directory, and evaluates script and JSON modules on demand.
//
// # Usage
//
//	runtime := goja.New()
//	ctx, err := gojacommonjs.New(runtime,
//		gojacommonjs.WithRoot("/srv/scripts"),
//		gojacommonjs.WithBuiltinReplacements(gojacommonjs.BuiltinTable{
//			"fs": "./shims/fs.js",
//		}),
//	)
//	if err != nil {
//		return err
//	}
//	v, err := ctx.RunFile("main.js")
//
// From JavaScript:
//
//	const lib = require('./lib');      // ./lib.js, ./lib.json or ./lib/
//	const pkg = require('left-pad');   // node_modules lookup
//	module.exports = { dir: __dirname };
//
// # Resolution
//
// Specifiers resolve in this order:
//
//   - exact match in the builtin override table, replaced by its target
//   - native modules registered via [WithNativeModule] (optionally
//     prefixed with "node:")
//   - absolute paths, then "./" and "../" relative paths, trying the path
//     verbatim, then with ".js" and ".json" appended, then as a directory
//   - bare names, looked up in node_modules directories from the
//     requesting directory upward, stopping at the root
//
// A directory resolves through the "main" field of its package.json, with
// index.js as the fallback. Files ending in ".mjs" never resolve.
//
// # Caching and cycles
//
// Each canonical path is loaded at most once per [Context]. The cache
// record is created before the module body runs, so a module that is
// required again while still loading (a cycle) yields its partially
// populated exports rather than being evaluated twice. A module that fails
// to load stays failed; requiring it again raises the same error.
//
// # Thread Safety
//
// A Context is not safe for concurrent use. Like the [goja.Runtime] it is
// bound to, it must only be used from the goroutine driving that runtime.
package gojacommonjs
