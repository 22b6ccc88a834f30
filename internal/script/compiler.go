// Package script turns serialized action batches and stored templates into
// the text the remote engine executes.
package script

import (
	"strings"
)

const (
	// LineSeparator terminates every record of a compiled script so the whole
	// script travels as one HTTP body.
	LineSeparator = "&#13"

	markerDelim = '%'
)

// Compile replaces every %name% marker in text with vars[name].
//
// Markers are scanned left to right. Scanning resumes after the substituted
// value, so values containing '%' are never expanded again. An unknown name
// or an unterminated marker yields a *CompileError and no output.
func Compile(text string, vars map[string]string) (string, error) {
	if strings.IndexByte(text, markerDelim) < 0 {
		return text, nil
	}

	var out strings.Builder
	out.Grow(len(text))

	cursor := 0
	for {
		start, end, found, err := scanMarker(text, cursor)
		if err != nil {
			return "", err
		}
		if !found {
			out.WriteString(text[cursor:])
			return out.String(), nil
		}

		name := text[start+1 : end]
		value, ok := vars[name]
		if !ok {
			return "", &CompileError{Marker: name, Offset: start}
		}
		out.WriteString(text[cursor:start])
		out.WriteString(value)
		cursor = end + 1
	}
}

// scanMarker finds the next marker at or after pos. It returns the offsets of
// the opening and closing delimiters.
func scanMarker(text string, pos int) (start, end int, found bool, err error) {
	open := strings.IndexByte(text[pos:], markerDelim)
	if open < 0 {
		return 0, 0, false, nil
	}
	start = pos + open

	closing := strings.IndexByte(text[start+1:], markerDelim)
	if closing < 0 {
		return 0, 0, false, &CompileError{Marker: text[start:], Offset: start, Unclosed: true}
	}
	return start, start + 1 + closing, true, nil
}

// Markers lists the distinct marker names of text in order of appearance.
func Markers(text string) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})
	cursor := 0
	for {
		start, end, found, err := scanMarker(text, cursor)
		if err != nil {
			return nil, err
		}
		if !found {
			return names, nil
		}
		name := text[start+1 : end]
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
		cursor = end + 1
	}
}
