package gojacommonjs

import (
	"fmt"

	"github.com/dop251/goja"
)

// State is the lifecycle state of a [Record].
type State int

const (
	// StateLoading means the module body has started but not completed.
	StateLoading State = iota
	// StateLoaded means the module body completed and its exports are final.
	StateLoaded
	// StateFailed means loading failed. The record keeps the error and is
	// never retried.
	StateFailed
)

// String implements fmt.Stringer.
func (x State) String() string {
	switch x {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(x))
	}
}

// Kind determines how a module's exports are produced.
type Kind int

const (
	// KindScript modules are JavaScript source, run as a function body.
	KindScript Kind = iota
	// KindJSON modules are parsed JSON text; the value is the exports.
	KindJSON
	// KindNative modules are implemented in Go.
	KindNative
)

// String implements fmt.Stringer.
func (x Kind) String() string {
	switch x {
	case KindScript:
		return "script"
	case KindJSON:
		return "json"
	case KindNative:
		return "native"
	default:
		return fmt.Sprintf("Kind(%d)", int(x))
	}
}

// Exports is the indirection through which every requester observes a
// module's exports. While the module is loading, reads go through the live
// module object, so partial assignments (including replacing
// module.exports) are visible. Once finalized, the final value is pinned.
type Exports struct {
	module *goja.Object
	value  goja.Value
}

// Value returns the current exports value. It is undefined until a module
// object is attached, which the loader does before evaluating the module
// body, so requesters never observe it.
func (x *Exports) Value() goja.Value {
	if x.value != nil {
		return x.value
	}
	if x.module != nil {
		return x.module.Get("exports")
	}
	return goja.Undefined()
}

// Record is the cache entry for one canonical path.
type Record struct {
	exports *Exports
	err     error
	path    string
	kind    Kind
	state   State
}

// Path returns the canonical path, which is also the cache key.
func (x *Record) Path() string { return x.path }

// Kind returns the kind of module.
func (x *Record) Kind() Kind { return x.kind }

// State returns the current lifecycle state.
func (x *Record) State() State { return x.state }

// Exports returns the exports handle. It is the same handle for the whole
// lifetime of the record.
func (x *Record) Exports() *Exports { return x.exports }

// Err returns the error recorded by [Cache.Fail], if any.
func (x *Record) Err() error { return x.err }

// Cache holds one [Record] per canonical path, for the lifetime of a
// [Context]. Records are never removed.
//
// Cache performs no locking: it relies on the single goroutine that drives
// the runtime, with reentrant requires handled by the loading state alone.
type Cache struct {
	records map[string]*Record
	order   []string
}

// NewCache returns an empty [Cache].
func NewCache() *Cache {
	return &Cache{records: make(map[string]*Record)}
}

// Get returns the record for path, if any.
func (x *Cache) Get(path string) (*Record, bool) {
	rec, ok := x.records[path]
	return rec, ok
}

// CreateIfAbsent returns the record for path, creating and inserting a new
// loading record if there is none. Its exports handle reads undefined until
// the loader attaches the module object, see [Exports.Value]. The boolean
// reports whether the record was created. Existing records are returned
// unchanged, whatever their state.
func (x *Cache) CreateIfAbsent(path string, kind Kind) (*Record, bool) {
	if rec, ok := x.records[path]; ok {
		return rec, false
	}
	rec := &Record{
		path:    path,
		kind:    kind,
		state:   StateLoading,
		exports: new(Exports),
	}
	x.records[path] = rec
	x.order = append(x.order, path)
	return rec, true
}

// bind attaches the live module object to a loading record's exports
// handle.
func (x *Cache) bind(path string, module *goja.Object) {
	if rec, ok := x.records[path]; ok && rec.state == StateLoading {
		rec.exports.module = module
	}
}

// Finalize transitions a loading record to loaded, pinning value as its
// exports. Holders of the exports handle observe value from then on.
func (x *Cache) Finalize(path string, value goja.Value) error {
	rec, err := x.loading(path)
	if err != nil {
		return err
	}
	if value == nil {
		value = goja.Undefined()
	}
	rec.exports.value = value
	rec.state = StateLoaded
	return nil
}

// Fail transitions a loading record to failed. The record stays in the
// cache, and err is returned for every later require of the same path.
func (x *Cache) Fail(path string, err error) error {
	rec, e := x.loading(path)
	if e != nil {
		return e
	}
	if err == nil {
		err = fmt.Errorf("module %s failed", path)
	}
	rec.err = err
	rec.state = StateFailed
	return nil
}

func (x *Cache) loading(path string) (*Record, error) {
	rec, ok := x.records[path]
	if !ok {
		return nil, fmt.Errorf("gojacommonjs: no cache record for %s", path)
	}
	if rec.state != StateLoading {
		return nil, fmt.Errorf("gojacommonjs: cache record for %s is %s, not loading", path, rec.state)
	}
	return rec, nil
}

// Len returns the number of records.
func (x *Cache) Len() int {
	return len(x.records)
}

// Paths returns the canonical paths of all records, in creation order.
func (x *Cache) Paths() []string {
	return append([]string(nil), x.order...)
}
