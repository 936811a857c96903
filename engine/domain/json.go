package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// BlockID identifies a block within its chunk. Models emit it either as a
// number or as a string; both decode to the same BlockID.
type BlockID string

// UnmarshalJSON accepts a JSON number, string or null.
func (id *BlockID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = BlockID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("block_id: %w", err)
		}
		*id = BlockID(n.String())
	}
	return nil
}

// MarshalJSON writes canonical integer IDs back as numbers. Anything else,
// including "01" and "+2", stays a string.
func (id BlockID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.Atoi(string(id)); err == nil && strconv.Itoa(n) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// MarshalJSON always writes error and output_path, as null when empty.
func (e ProcessingLogEntry) MarshalJSON() ([]byte, error) {
	type plain ProcessingLogEntry
	return json.Marshal(struct {
		plain
		Error      *string `json:"error"`
		OutputPath *string `json:"output_path"`
	}{plain(e), nullable(e.Error), nullable(e.OutputPath)})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Lines is the raw text of a block. Anything other than a JSON array of
// strings decodes to nil, which downstream stages report as missing lines.
type Lines []string

// UnmarshalJSON never fails; invalid shapes become nil.
func (l *Lines) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil || raw == nil {
		*l = nil
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			*l = nil
			return nil
		}
		out = append(out, s)
	}
	*l = out
	return nil
}
