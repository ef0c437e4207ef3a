package gojacommonjs_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/util"
	gojacommonjs "github.com/joeycumines/goja-commonjs"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	rt   *goja.Runtime
	cjs  *gojacommonjs.Context
	out  *consoleBuffer
	root string
	t    *testing.T
}

// newTestEnv creates a runtime with a [gojacommonjs.Context] rooted at the
// fixture directory, plus a console whose output is captured.
func newTestEnv(t *testing.T, opts ...gojacommonjs.Option) *testEnv {
	t.Helper()
	rt := goja.New()
	out := new(consoleBuffer)
	root := fixtureRoot(t)
	cjs, err := gojacommonjs.New(rt, append([]gojacommonjs.Option{
		gojacommonjs.WithRoot(root),
		gojacommonjs.WithNativeModule(util.ModuleName, util.Require),
		gojacommonjs.WithNativeModule(console.ModuleName, console.RequireWithPrinter(out)),
	}, opts...)...)
	require.NoError(t, err)
	console.Enable(rt)
	return &testEnv{rt: rt, cjs: cjs, out: out, root: root, t: t}
}

func (e *testEnv) run(code string) goja.Value {
	e.t.Helper()
	v, err := e.cjs.RunString(code)
	require.NoError(e.t, err)
	return v
}

// mustThrow runs code, which must throw, and returns the thrown value's
// string form, e.g. "TypeError: message".
func (e *testEnv) mustThrow(code string) string {
	e.t.Helper()
	_, err := e.cjs.RunString(code)
	require.Error(e.t, err)
	var ex *goja.Exception
	require.True(e.t, errors.As(err, &ex), "expected *goja.Exception, got %T: %v", err, err)
	return ex.Value().String()
}

func (e *testEnv) path(elem ...string) string {
	return filepath.Join(append([]string{e.root}, elem...)...)
}

func fixtureRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("testdata", "commonjs"))
	require.NoError(t, err)
	return root
}

// consoleBuffer implements console.Printer, recording each line.
type consoleBuffer struct {
	lines  []string
	errors []string
}

func (x *consoleBuffer) Log(s string) { x.lines = append(x.lines, s) }

func (x *consoleBuffer) Warn(s string) { x.errors = append(x.errors, s) }

func (x *consoleBuffer) Error(s string) { x.errors = append(x.errors, s) }
