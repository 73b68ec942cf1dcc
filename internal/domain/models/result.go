package models

import "encoding/json"

// SearchResult is the canonical shape every response contract decodes into.
type SearchResult struct {
	Cases      []CaseSummary
	Pagination Pagination
	Message    string
}

// Statistics is passed through untouched; its shape belongs to the API.
type Statistics json.RawMessage

func (s Statistics) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}
