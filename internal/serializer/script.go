package serializer

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/xkilldash9x/handbridge/internal/script"
)

// Record is one action rendered as a header row and a parallel value row.
// Raw records (include directives) are emitted verbatim as a single line.
type Record struct {
	Header []string
	Values []string
	Raw    string
}

// Script is an ordered list of records ready to be rendered for the engine.
type Script struct {
	Records []Record
}

// Len returns the number of records.
func (s *Script) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// String renders every row as a CSV line terminated by script.LineSeparator.
func (s *Script) String() string {
	if s == nil {
		return ""
	}
	var out strings.Builder
	for _, r := range s.Records {
		if r.Raw != "" {
			out.WriteString(r.Raw)
			out.WriteString(script.LineSeparator)
			continue
		}
		out.WriteString(csvLine(r.Header))
		out.WriteString(script.LineSeparator)
		out.WriteString(csvLine(r.Values))
		out.WriteString(script.LineSeparator)
	}
	return out.String()
}

func csvLine(fields []string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_ = w.Write(fields)
	w.Flush()
	return strings.TrimSuffix(buf.String(), "\n")
}

// row accumulates the header and value rows of one record in lockstep.
type row struct {
	header []string
	values []string
}

func newRow(displayName string) *row {
	return &row{header: []string{"#action"}, values: []string{displayName}}
}

func (r *row) add(column, value string) *row {
	r.header = append(r.header, column)
	r.values = append(r.values, value)
	return r
}

func (r *row) addInt(column string, v int) *row {
	return r.add(column, strconv.Itoa(v))
}

func (r *row) addBool(column string, v bool) *row {
	return r.add(column, strconv.FormatBool(v))
}

// addIfNotEmpty adds the column only when value is non-empty, keeping both
// rows aligned.
func (r *row) addIfNotEmpty(column, value string) *row {
	if value == "" {
		return r
	}
	return r.add(column, value)
}

func (r *row) addIntIfSet(column string, v *int) *row {
	if v == nil {
		return r
	}
	return r.addInt(column, *v)
}

func (r *row) addIfTrue(column string, v bool) *row {
	if !v {
		return r
	}
	return r.addBool(column, v)
}

func (r *row) record() Record {
	return Record{Header: r.header, Values: r.values}
}
