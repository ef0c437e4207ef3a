package gojacommonjs

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// ModuleNotFoundError indicates that a specifier did not resolve to a
// loadable file or native module. In JavaScript it surfaces as a TypeError.
type ModuleNotFoundError struct {
	// Specifier is the specifier as passed to require, before any builtin
	// replacement.
	Specifier string
}

// Error implements the error interface.
func (e *ModuleNotFoundError) Error() string {
	return "Cannot load CommonJS module: '" + e.Specifier + "'"
}

// InvalidJSONError indicates that a JSON module could not be parsed. In
// JavaScript it surfaces as a SyntaxError.
type InvalidJSONError struct {
	// Path is the canonical path of the JSON file.
	Path string
	// Detail describes the syntax error.
	Detail string
	// Excerpt is the source line containing the error.
	Excerpt string
	// Line is the 1-based line of the offending character.
	Line int
	// Column is the 0-based character offset of the offending character,
	// within its line.
	Column int
}

// Error implements the error interface. The message ends with the source
// excerpt and a caret under the offending character.
func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("Invalid JSON: %s:%d:%d %s\n%s\n%s^",
		e.Path, e.Line, e.Column, e.Detail,
		e.Excerpt, strings.Repeat(" ", e.Column))
}

// InvalidRootDirectoryError is returned by [New] when the configured root
// does not exist or is not a directory.
type InvalidRootDirectoryError struct {
	Path string
}

// Error implements the error interface.
func (e *InvalidRootDirectoryError) Error() string {
	return "Invalid CommonJS root folder: " + e.Path
}

// toJS converts err into the value thrown to JavaScript. Exceptions raised
// by module code are rethrown as they are.
func toJS(runtime *goja.Runtime, err error) any {
	switch e := err.(type) {
	case *goja.Exception:
		return e
	case *ModuleNotFoundError:
		return runtime.NewTypeError("%s", e.Error())
	case *InvalidJSONError:
		return newNamedError(runtime, "SyntaxError", e.Error())
	case *InvalidRootDirectoryError:
		return newNamedError(runtime, "Error", e.Error())
	default:
		return runtime.NewGoError(err)
	}
}

func newNamedError(runtime *goja.Runtime, ctor string, msg string) *goja.Object {
	obj, err := runtime.New(runtime.Get(ctor), runtime.ToValue(msg))
	if err != nil {
		return runtime.NewGoError(fmt.Errorf("%s: %s", ctor, msg))
	}
	return obj
}

// throw panics with err converted by [toJS]; used from functions called by
// JavaScript.
func throw(runtime *goja.Runtime, err error) {
	panic(toJS(runtime, err))
}
