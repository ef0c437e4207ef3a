package gojacommonjs

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// checkJSON reports the position of the first syntax error in data, as an
// [*InvalidJSONError]. The runtime's JSON.parse does the actual parsing;
// this only exists to produce a useful location and excerpt.
func checkJSON(path string, data []byte) error {
	err := json.Unmarshal(data, new(json.RawMessage))
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	return newInvalidJSONError(path, data, syntaxErr.Offset, syntaxErr.Error())
}

// newInvalidJSONError locates the byte before offset (the offending one, as
// offset counts the bytes consumed including it).
func newInvalidJSONError(path string, data []byte, offset int64, detail string) *InvalidJSONError {
	pos := int(offset) - 1
	if pos > len(data) {
		pos = len(data)
	}
	if pos < 0 {
		pos = 0
	}

	lineStart := bytes.LastIndexByte(data[:pos], '\n') + 1
	lineEnd := len(data)
	if i := bytes.IndexByte(data[lineStart:], '\n'); i >= 0 {
		lineEnd = lineStart + i
	}

	return &InvalidJSONError{
		Path:    path,
		Detail:  detail,
		Excerpt: strings.TrimSuffix(string(data[lineStart:lineEnd]), "\r"),
		Line:    bytes.Count(data[:lineStart], []byte{'\n'}) + 1,
		Column:  utf8.RuneCount(data[lineStart:pos]),
	}
}
