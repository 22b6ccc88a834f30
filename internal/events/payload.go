// Package events builds the report events attached to executed batches.
package events

import (
	"sort"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Row is one name/value line of a payload table.
type Row struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RowsFromMap returns the entries of m sorted by name.
func RowsFromMap(m map[string]string) []Row {
	rows := make([]Row, 0, len(m))
	for k, v := range m {
		rows = append(rows, Row{Name: k, Value: v})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

type payloadMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type payloadTable struct {
	Type string `json:"type"`
	Rows []Row  `json:"rows"`
}

// PayloadBuilder accumulates the human readable body of an event.
type PayloadBuilder struct {
	items []any
}

func NewPayloadBuilder() *PayloadBuilder {
	return &PayloadBuilder{}
}

// PrintText appends a text block.
func (p *PayloadBuilder) PrintText(text string) *PayloadBuilder {
	p.items = append(p.items, payloadMessage{Type: "message", Data: text})
	return p
}

// PrintTable appends a titled table. Rows keep the given order.
func (p *PayloadBuilder) PrintTable(title string, rows []Row) *PayloadBuilder {
	p.items = append(p.items,
		payloadMessage{Type: "message", Data: title},
		payloadTable{Type: "table", Rows: rows},
	)
	return p
}

// Bytes encodes the payload as a JSON array.
func (p *PayloadBuilder) Bytes() ([]byte, error) {
	if len(p.items) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(p.items)
}
