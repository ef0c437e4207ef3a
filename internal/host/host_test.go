package host_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gojacommonjs "github.com/joeycumines/goja-commonjs"
	"github.com/joeycumines/goja-commonjs/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestHost_Run(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", "..", "testdata", "commonjs"))
	require.NoError(t, err)
	var stdout, stderr bytes.Buffer
	h := host.New(host.WriterPrinter{Stdout: &stdout, Stderr: &stderr}, nil, gojacommonjs.WithRoot(root))

	v, err := h.Run(context.Background(), "cycle_main.js")
	require.NoError(t, err)
	assert.Equal(t, int64(84), v.ToInteger())
	assert.Equal(t, "main starting at "+filepath.Join(root, "cycle_main.js")+"\n"+
		"other starting at "+filepath.Join(root, "cycle_other.js")+"\n"+
		"main.done = false\n"+
		"other done\n"+
		"other.done = true\n"+
		"main done\n", stdout.String())
	assert.Empty(t, stderr.String())

	_, err = h.Run(context.Background(), "cycle_main.js")
	assert.ErrorIs(t, err, host.ErrAlreadyRunning)
}

func TestHost_Run_timers(t *testing.T) {
	root := writeScripts(t, map[string]string{
		"main.js": `
			const later = require('./later');
			setTimeout(function () {
				console.log(later.message);
				console.error('done');
			}, 1);
			console.log('now');
			1;
		`,
		"later.js": `exports.message = 'later';`,
	})
	var stdout, stderr bytes.Buffer
	h := host.New(host.WriterPrinter{Stdout: &stdout, Stderr: &stderr}, nil, gojacommonjs.WithRoot(root))

	v, err := h.Run(context.Background(), filepath.Join(root, "main.js"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.ToInteger())
	assert.Equal(t, "now\nlater\n", stdout.String())
	assert.Equal(t, "done\n", stderr.String())
}

func TestHost_Run_timerKeepsEntryScope(t *testing.T) {
	root := writeScripts(t, map[string]string{
		"sib.js":      `exports.x = 'root';`,
		"sub/sib.js":  `exports.x = 'sub';`,
		"sub/main.js": `
			console.log('sync', __dirname, require('./sib').x);
			setTimeout(function () {
				console.log('async', __dirname, typeof module, require('./sib').x);
			}, 1);
		`,
	})
	var stdout, stderr bytes.Buffer
	h := host.New(host.WriterPrinter{Stdout: &stdout, Stderr: &stderr}, nil, gojacommonjs.WithRoot(root))

	_, err := h.Run(context.Background(), filepath.Join(root, "sub", "main.js"))
	require.NoError(t, err)
	sub := filepath.Join(root, "sub")
	assert.Equal(t, "sync "+sub+" sub\nasync "+sub+" object sub\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestHost_Run_error(t *testing.T) {
	root := writeScripts(t, map[string]string{
		"main.js": `require('./missing');`,
	})
	var stdout bytes.Buffer
	h := host.New(host.WriterPrinter{Stdout: &stdout, Stderr: &stdout}, nil, gojacommonjs.WithRoot(root))

	_, err := h.Run(context.Background(), "main.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot load CommonJS module: './missing'")
}

func TestHost_Run_invalidRoot(t *testing.T) {
	var stdout bytes.Buffer
	h := host.New(host.WriterPrinter{Stdout: &stdout, Stderr: &stdout}, nil,
		gojacommonjs.WithRoot(filepath.Join(t.TempDir(), "missing")))

	_, err := h.Run(context.Background(), "main.js")
	var rootErr *gojacommonjs.InvalidRootDirectoryError
	assert.ErrorAs(t, err, &rootErr)
}

func TestHost_Run_requireDisabled(t *testing.T) {
	root := writeScripts(t, map[string]string{
		"main.js": `typeof require + ',' + typeof console;`,
	})
	var stdout bytes.Buffer
	h := host.New(host.WriterPrinter{Stdout: &stdout, Stderr: &stdout}, nil,
		gojacommonjs.WithRoot(root),
		gojacommonjs.WithRequire(false),
	)

	v, err := h.Run(context.Background(), "main.js")
	require.NoError(t, err)
	assert.Equal(t, "undefined,undefined", v.String())
}

func TestHost_Run_cancel(t *testing.T) {
	root := writeScripts(t, map[string]string{
		"main.js": `for (;;) {}`,
	})
	var stdout bytes.Buffer
	h := host.New(host.WriterPrinter{Stdout: &stdout, Stderr: &stdout}, nil, gojacommonjs.WithRoot(root))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.Run(ctx, "main.js")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
