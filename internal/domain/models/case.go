package models

// CaseSummary is one legal case as served by the case-summary API.
// Values are never mutated after decoding; a new response replaces them.
type CaseSummary struct {
	ID                 string `json:"id"`
	CaseID             string `json:"case_id"`
	TotalDocuments     int    `json:"total_documents"`
	AbstractiveSummary string `json:"abstractive_summary"`
	ExtractiveSummary  string `json:"extractive_summary"`
}

func NewCaseSummary(id, caseID string, totalDocuments int, abstractive, extractive string) *CaseSummary {
	return &CaseSummary{
		ID:                 id,
		CaseID:             caseID,
		TotalDocuments:     totalDocuments,
		AbstractiveSummary: abstractive,
		ExtractiveSummary:  extractive,
	}
}
