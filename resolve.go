package gojacommonjs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	nativePrefix      = "node:"
	nodeModulesDir    = "node_modules"
	packageJSONFile   = "package.json"
	directoryIndex    = "index.js"
	esModuleExtension = ".mjs"
	// maxMainDepth bounds package.json main chains that point at other
	// directories.
	maxMainDepth = 8
)

// resolveExtensions are appended, in order, to a specifier that does not
// name an existing file.
var resolveExtensions = [...]string{".js", ".json"}

// Resolver maps specifiers to canonical paths. It only reads the
// filesystem to check for existence and to read package.json files.
type Resolver struct {
	fs       afero.Fs
	builtins BuiltinTable
	isNative func(name string) bool
	root     string
}

// NewResolver returns a [Resolver] for the given root directory, which
// must be absolute. Native module names are recognised via isNative, which
// may be nil.
func NewResolver(fs afero.Fs, root string, builtins BuiltinTable, isNative func(name string) bool) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if isNative == nil {
		isNative = func(string) bool { return false }
	}
	return &Resolver{
		fs:       fs,
		builtins: builtins,
		isNative: isNative,
		root:     filepath.Clean(root),
	}
}

// Root returns the root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the canonical path for specifier, as required from
// fromDir. Native modules resolve to "node:<name>". If nothing matches,
// it returns a [*ModuleNotFoundError] carrying the specifier unchanged.
func (r *Resolver) Resolve(specifier string, fromDir string) (string, error) {
	target := specifier
	if replacement, ok := r.builtins.replace(specifier); ok {
		target = replacement
	}
	if path, ok := r.resolve(target, fromDir); ok {
		return path, nil
	}
	return "", &ModuleNotFoundError{Specifier: specifier}
}

func (r *Resolver) resolve(specifier string, fromDir string) (string, bool) {
	switch {
	case specifier == "":
		return "", false

	case strings.HasPrefix(specifier, nativePrefix):
		if name := specifier[len(nativePrefix):]; r.isNative(name) {
			return nativePrefix + name, true
		}
		return "", false

	case filepath.IsAbs(specifier):
		return r.resolvePath(filepath.Clean(specifier))

	case isRelativeSpecifier(specifier):
		return r.resolvePath(filepath.Join(fromDir, specifier))

	case r.isNative(specifier):
		return nativePrefix + specifier, true

	default:
		return r.resolvePackage(specifier, fromDir)
	}
}

// resolvePath applies the file, extension, then directory rules to an
// absolute, clean path.
func (r *Resolver) resolvePath(path string) (string, bool) {
	if p, ok := r.resolveFile(path); ok {
		return p, true
	}
	return r.resolveDirectory(path, 0)
}

func (r *Resolver) resolveFile(path string) (string, bool) {
	if r.isFile(path) {
		return path, true
	}
	for _, ext := range resolveExtensions {
		if r.isFile(path + ext) {
			return path + ext, true
		}
	}
	return "", false
}

func (r *Resolver) resolveDirectory(dir string, depth int) (string, bool) {
	if !r.isDir(dir) {
		return "", false
	}

	if main, ok := r.packageMain(dir); ok {
		candidate := filepath.Join(dir, main)
		if p, ok := r.resolveFile(candidate); ok {
			return p, true
		}
		if candidate != dir && depth < maxMainDepth {
			if p, ok := r.resolveDirectory(candidate, depth+1); ok {
				return p, true
			}
		}
	}

	index := filepath.Join(dir, directoryIndex)
	if r.isFile(index) {
		return index, true
	}
	return "", false
}

// resolvePackage searches node_modules directories, starting in fromDir and
// walking up to the root. If fromDir is outside the root, the walk continues
// to the top of the filesystem.
func (r *Resolver) resolvePackage(specifier string, fromDir string) (string, bool) {
	dir := filepath.Clean(fromDir)
	for {
		if p, ok := r.resolvePath(filepath.Join(dir, nodeModulesDir, specifier)); ok {
			return p, true
		}
		if dir == r.root {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// packageMain returns the "main" field of dir/package.json, if the file
// exists, parses, and has a non-empty string main.
func (r *Resolver) packageMain(dir string) (string, bool) {
	data, err := afero.ReadFile(r.fs, filepath.Join(dir, packageJSONFile))
	if err != nil {
		return "", false
	}
	var pkg struct {
		Main *string `json:"main"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil || pkg.Main == nil || *pkg.Main == "" {
		return "", false
	}
	return *pkg.Main, true
}

func (r *Resolver) isFile(path string) bool {
	if strings.EqualFold(filepath.Ext(path), esModuleExtension) {
		return false
	}
	info, err := r.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (r *Resolver) isDir(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && info.IsDir()
}

func isRelativeSpecifier(s string) bool {
	if s == "." || s == ".." {
		return true
	}
	for _, prefix := range [...]string{"./", "../", "." + string(os.PathSeparator), ".." + string(os.PathSeparator)} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func isPathSpecifier(s string) bool {
	return filepath.IsAbs(s) || isRelativeSpecifier(s)
}

// kindOf returns the kind of module stored at a canonical path.
func kindOf(path string) Kind {
	switch {
	case strings.HasPrefix(path, nativePrefix):
		return KindNative
	case strings.EqualFold(filepath.Ext(path), ".json"):
		return KindJSON
	default:
		return KindScript
	}
}
