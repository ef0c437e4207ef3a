package gojacommonjs_test

import (
	"testing"

	gojacommonjs "github.com/joeycumines/goja-commonjs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuiltinReplacements(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  gojacommonjs.BuiltinTable
	}{
		{"", gojacommonjs.BuiltinTable{}},
		{"  ", gojacommonjs.BuiltinTable{}},
		{"path:./module", gojacommonjs.BuiltinTable{"path": "./module"}},
		{"path:./module,fs:./module.js", gojacommonjs.BuiltinTable{"path": "./module", "fs": "./module.js"}},
		{" path:./module , fs:memfs ", gojacommonjs.BuiltinTable{"path": "./module", "fs": "memfs"}},
		{"url:node:url", gojacommonjs.BuiltinTable{"url": "node:url"}},
	} {
		t.Run(tc.input, func(t *testing.T) {
			got, err := gojacommonjs.ParseBuiltinReplacements(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseBuiltinReplacements_errors(t *testing.T) {
	for _, input := range []string{
		"path",
		":./module",
		"path:",
		"path:./a,",
		"path:./a,path:./b",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := gojacommonjs.ParseBuiltinReplacements(input)
			assert.Error(t, err)
		})
	}
}

func TestBuiltinTable_String(t *testing.T) {
	table := gojacommonjs.BuiltinTable{"path": "./module", "fs": "./module.js", "assert": "chai"}
	s := table.String()
	assert.Equal(t, "assert:chai,fs:./module.js,path:./module", s)

	parsed, err := gojacommonjs.ParseBuiltinReplacements(s)
	require.NoError(t, err)
	assert.Equal(t, table, parsed)

	assert.Equal(t, "", gojacommonjs.BuiltinTable(nil).String())
}

func TestWithBuiltinReplacements_merge(t *testing.T) {
	env := newTestEnv(t,
		gojacommonjs.WithBuiltinReplacementsString("path:./unknown,fs:./module"),
		gojacommonjs.WithBuiltinReplacements(gojacommonjs.BuiltinTable{"path": "./valid.json"}),
	)
	assert.Equal(t, int64(84), env.run(`require('path').foo + require('fs').foo;`).ToInteger())
}
