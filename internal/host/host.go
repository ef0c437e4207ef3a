// Package host runs a CommonJS entry script on a goja_nodejs event loop,
// so that timers and other loop-driven callbacks behave as in a Node.js
// process.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	gojaloop "github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/util"
	gojacommonjs "github.com/joeycumines/goja-commonjs"
	"github.com/joeycumines/logiface"
)

// ErrAlreadyRunning is returned when Run is called more than once.
var ErrAlreadyRunning = errors.New("host: already running")

// Host owns a goja_nodejs event loop, and the runtime driven by it.
type Host struct {
	loop    *gojaloop.EventLoop
	printer console.Printer
	logger  *logiface.Logger[logiface.Event]
	opts    []gojacommonjs.Option
	running atomic.Bool
}

// New creates a [Host]. The console module writes through printer, and
// opts configure the module system of the loop's runtime.
func New(printer console.Printer, logger *logiface.Logger[logiface.Event], opts ...gojacommonjs.Option) *Host {
	return &Host{
		// console is provided via the module system, see Run
		loop:    gojaloop.NewEventLoop(gojaloop.EnableConsole(false)),
		printer: printer,
		logger:  logger,
		opts:    opts,
	}
}

// Run runs entry as the main module, then keeps running the loop until no
// timers or other jobs remain. It returns the entry's completion value.
//
// Cancelling ctx interrupts any running script and terminates the loop,
// in which case ctx.Err() is returned.
func (x *Host) Run(ctx context.Context, entry string) (result goja.Value, err error) {
	if !x.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}

	loopDone := make(chan struct{})
	defer close(loopDone)

	// uncaught exceptions thrown by loop callbacks panic out of Run
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			result, err = nil, e
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			result, err = nil, ctxErr
		}
	}()

	x.loop.Run(func(vm *goja.Runtime) {
		go func() {
			select {
			case <-ctx.Done():
				vm.Interrupt(ctx.Err())
				x.loop.Terminate()
			case <-loopDone:
			}
		}()
		result, err = x.runEntry(vm, entry)
	})

	return result, err
}

func (x *Host) runEntry(vm *goja.Runtime, entry string) (goja.Value, error) {
	// the loop installs its own registry's require, which is replaced (or,
	// with require disabled, removed) in favour of the module system
	if err := vm.GlobalObject().Delete("require"); err != nil {
		return nil, fmt.Errorf("host: removing require: %w", err)
	}

	opts := append([]gojacommonjs.Option{
		gojacommonjs.WithLogger(x.logger),
		gojacommonjs.WithNativeModule(util.ModuleName, util.Require),
		gojacommonjs.WithNativeModule(console.ModuleName, console.RequireWithPrinter(x.printer)),
	}, x.opts...)

	cjs, err := gojacommonjs.New(vm, opts...)
	if err != nil {
		return nil, err
	}

	// console depends on util, loaded through the global require
	if _, ok := goja.AssertFunction(vm.Get("require")); !ok {
		x.logger.Debug().
			Log(`require disabled, console unavailable`)
	} else if c, err := cjs.Require(console.ModuleName); err != nil {
		x.logger.Warning().
			Err(err).
			Log(`console unavailable`)
	} else if err := vm.Set(console.ModuleName, c); err != nil {
		return nil, fmt.Errorf("host: setting console: %w", err)
	}

	x.logger.Debug().
		Str(`entry`, entry).
		Str(`root`, cjs.Root()).
		Log(`running entry`)

	return cjs.RunFile(entry)
}

// WriterPrinter is a [console.Printer] writing lines to Stdout (log) and
// Stderr (warn and error).
type WriterPrinter struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (x WriterPrinter) Log(s string) { _, _ = fmt.Fprintln(x.Stdout, s) }

func (x WriterPrinter) Warn(s string) { _, _ = fmt.Fprintln(x.Stderr, s) }

func (x WriterPrinter) Error(s string) { _, _ = fmt.Fprintln(x.Stderr, s) }
