package gojacommonjs

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckJSON(t *testing.T) {
	for _, tc := range []struct {
		name    string
		data    string
		line    int
		column  int
		excerpt string
	}{
		{"first line", `{not_a_valid:##json}`, 1, 1, `{not_a_valid:##json}`},
		{"later line", "{\n  \"a\": 1,\n  \"b\": x\n}", 3, 7, `  "b": x`},
		{"crlf", "{\r\n  \"a\": ?\r\n}", 2, 7, `  "a": ?`},
		{"leading", `]`, 1, 0, `]`},
		{"trailing garbage", "{}\n{}", 2, 0, `{}`},
		{"multibyte", "{\"a\":\n  \"é\" x}", 2, 6, `  "é" x}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := checkJSON("/x.json", []byte(tc.data))
			var jsonErr *InvalidJSONError
			require.True(t, errors.As(err, &jsonErr), "%T: %v", err, err)
			assert.Equal(t, "/x.json", jsonErr.Path)
			assert.Equal(t, tc.line, jsonErr.Line)
			assert.Equal(t, tc.column, jsonErr.Column)
			assert.Equal(t, tc.excerpt, jsonErr.Excerpt)
			assert.NotEmpty(t, jsonErr.Detail)
		})
	}
}

func TestCheckJSON_valid(t *testing.T) {
	for _, data := range []string{`{}`, `42`, `"s"`, `[1, {"a": null}]`, " {\"foo\": 42}\n"} {
		assert.NoError(t, checkJSON("/x.json", []byte(data)), data)
	}
}

func TestCheckJSON_empty(t *testing.T) {
	err := checkJSON("/x.json", nil)
	var jsonErr *InvalidJSONError
	require.True(t, errors.As(err, &jsonErr))
	assert.Equal(t, 1, jsonErr.Line)
	assert.Equal(t, 0, jsonErr.Column)
}

func TestInvalidJSONError_Error(t *testing.T) {
	err := &InvalidJSONError{
		Path:    "/x.json",
		Detail:  "unexpected character",
		Excerpt: "{not_a_valid:##json}",
		Line:    1,
		Column:  1,
	}
	assert.Equal(t, "Invalid JSON: /x.json:1:1 unexpected character\n{not_a_valid:##json}\n ^", err.Error())
}

func TestInvalidJSONError_Error_multibyte(t *testing.T) {
	err := checkJSON("/x.json", []byte("{\"a\":\n  \"é\" x}"))
	require.Error(t, err)
	lines := strings.Split(err.Error(), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Invalid JSON: /x.json:2:6 "), lines[0])
	caret := utf8.RuneCountInString(lines[2]) - 1
	assert.Equal(t, "x", string([]rune(lines[1])[caret]))
}
