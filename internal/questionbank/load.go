package questionbank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// RawBank is the on-disk bank format: free-form metadata plus the question list.
type RawBank struct {
	Meta      map[string]interface{} `json:"meta"`
	Questions []Question             `json:"questions"`
}

// LoadFile reads a bank from a JSON file. See Decode for the accepted formats.
func LoadFile(path string) (*Corpus, map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	c, meta, err := Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("load bank %s: %w", path, err)
	}
	return c, meta, nil
}

// Decode parses either a {"meta": ..., "questions": [...]} document or a bare
// array of questions, validates it and builds a Corpus.
func Decode(r io.Reader) (*Corpus, map[string]interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}

	var raw RawBank
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw.Questions); err != nil {
			return nil, nil, err
		}
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, nil, err
	}

	if err := Validate(raw.Questions); err != nil {
		return nil, nil, err
	}
	if raw.Meta == nil {
		raw.Meta = map[string]interface{}{}
	}
	return NewCorpus(raw.Questions), raw.Meta, nil
}
