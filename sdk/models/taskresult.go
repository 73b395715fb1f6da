package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// TableData is a rendered table: a header row plus data rows. Cells keep the
// JSON type the server used (string, number, bool or null).
type TableData struct {
	Headers []string        `json:"headers"`
	Rows    [][]interface{} `json:"rows"`
}

// Len returns the number of data rows.
func (t TableData) Len() int {
	return len(t.Rows)
}

// StringRows returns the rows with every cell formatted as text.
func (t TableData) StringRows() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = FormatCell(cell)
		}
		out[i] = cells
	}
	return out
}

// FormatCell renders a decoded JSON value the way it should appear in a table.
func FormatCell(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// ModelResult is the per-file result of a completed task
type ModelResult struct {
	CanonicalPairs    TableData `json:"canonicalPairs"`
	NonCanonicalPairs TableData `json:"nonCanonicalPairs"`
	Stackings         TableData `json:"stackings"`
	DotBracket        string    `json:"dotBracket"`
}

// ResultSet is the aggregate result of a completed task together with the
// per-model results fetched for each surviving file
type ResultSet struct {
	Ranking           TableData `json:"ranking"`
	CanonicalPairs    TableData `json:"canonicalPairs"`
	NonCanonicalPairs TableData `json:"nonCanonicalPairs"`
	Stackings         TableData `json:"stackings"`
	FileNames         []string  `json:"fileNames"`
	DotBracket        string    `json:"dotBracket"`
	UserRequest       string    `json:"userRequest,omitempty"`

	// Models is keyed by file name; it is filled by the client, not decoded.
	Models map[string]*ModelResult `json:"-"`
}

// Model returns the per-model result of the given file, or nil.
func (r *ResultSet) Model(fileName string) *ModelResult {
	if r.Models == nil {
		return nil
	}
	return r.Models[fileName]
}

// SplitFile is one model file produced by the split endpoint
type SplitFile struct {
	Name     string  `json:"name"`
	Content  string  `json:"content"`
	IsBinary bool    `json:"isBinary,omitempty"`
	Sequence *string `json:"sequence,omitempty"`
}

// Bytes returns the file content, decoding base64 for binary entries.
func (f SplitFile) Bytes() ([]byte, error) {
	if !f.IsBinary {
		return []byte(f.Content), nil
	}

	b, err := base64.StdEncoding.DecodeString(f.Content)
	if err != nil {
		return nil, fmt.Errorf("unable to decode binary content of %s: %w", f.Name, err)
	}
	return b, nil
}

// SplitResponse is the body returned by the split endpoint
type SplitResponse struct {
	Files []SplitFile `json:"files"`
}
