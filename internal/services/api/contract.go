package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"casesearch/internal/domain/models"
)

const (
	ContractStandard = "standard"
	ContractLegacy   = "legacy"
)

type Paths struct {
	List       string
	Search     string
	DateRange  string
	Case       string
	Statistics string
}

func DefaultPaths() Paths {
	return Paths{
		List:       "/cases",
		Search:     "/cases/search",
		DateRange:  "/cases/date-range",
		Case:       "/cases",
		Statistics: "/statistics",
	}
}

func LegacyPaths() Paths {
	return Paths{
		List:       "/case_summaries",
		Search:     "/case_summaries",
		DateRange:  "/case_summaries",
		Case:       "/case_summaries",
		Statistics: "/statistics",
	}
}

// Contract maps search requests onto one API response format.
type Contract interface {
	Name() string
	Paths() Paths
	Endpoint(req models.SearchRequest) (path string, params url.Values)
	DecodeList(body []byte, req models.SearchRequest) (*models.SearchResult, error)
	DecodeCase(body []byte) (*models.CaseSummary, error)
}

func NewContract(name string, paths Paths) (Contract, error) {
	switch name {
	case ContractStandard, "":
		return &Standard{paths: paths}, nil
	case ContractLegacy:
		return &Legacy{paths: paths}, nil
	default:
		return nil, fmt.Errorf("unknown api contract %q", name)
	}
}

// Standard speaks the enveloped format:
// {success, data: case | [case], pagination?, message}.
type Standard struct {
	paths Paths
}

type envelope struct {
	Success    *bool              `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Pagination *models.Pagination `json:"pagination"`
	Message    string             `json:"message"`
}

func (s *Standard) Name() string { return ContractStandard }
func (s *Standard) Paths() Paths { return s.paths }

func (s *Standard) Endpoint(req models.SearchRequest) (string, url.Values) {
	params := url.Values{}
	path := s.paths.List

	switch req.Query.Mode() {
	case models.ModeDateRange:
		path = s.paths.DateRange
		params.Set("start_date", req.Query.DateRange.StartParam())
		params.Set("end_date", req.Query.DateRange.EndParam())
	case models.ModeText:
		path = s.paths.Search
		params.Set("search", req.Query.Text)
	}

	params.Set("page", strconv.Itoa(req.Page))
	params.Set("page_size", strconv.Itoa(req.PageSize))

	return path, params
}

func (s *Standard) DecodeList(body []byte, req models.SearchRequest) (*models.SearchResult, error) {
	env, err := s.decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	cases, err := decodeCases(env.Data)
	if err != nil {
		return nil, &ParseError{Contract: ContractStandard, Err: err}
	}

	var p models.Pagination
	if env.Pagination != nil {
		p = *env.Pagination
		if p.CurrentPage <= 0 {
			p.CurrentPage = req.Page
		}
		if p.PageSize <= 0 {
			p.PageSize = req.PageSize
		}
		p = p.Normalize()
	} else {
		total := (req.Page-1)*req.PageSize + len(cases)
		p = models.NewPagination(req.Page, req.PageSize, total)
	}

	return &models.SearchResult{Cases: cases, Pagination: p, Message: env.Message}, nil
}

func (s *Standard) DecodeCase(body []byte) (*models.CaseSummary, error) {
	env, err := s.decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	cases, err := decodeCases(env.Data)
	if err != nil {
		return nil, &ParseError{Contract: ContractStandard, Err: err}
	}
	if len(cases) == 0 {
		return nil, &ParseError{Contract: ContractStandard, Err: errors.New("no case in data")}
	}

	return &cases[0], nil
}

func (s *Standard) decodeEnvelope(body []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ParseError{Contract: ContractStandard, Err: err}
	}
	if env.Success != nil && !*env.Success {
		return nil, &APIError{Message: env.Message}
	}
	return &env, nil
}

// decodeCases accepts a single object, an array or null.
func decodeCases(data json.RawMessage) ([]models.CaseSummary, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.CaseSummary{}, nil
	}

	if trimmed[0] == '[' {
		var cases []models.CaseSummary
		if err := json.Unmarshal(trimmed, &cases); err != nil {
			return nil, err
		}
		return cases, nil
	}

	var c models.CaseSummary
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return nil, err
	}
	return []models.CaseSummary{c}, nil
}

// Legacy speaks the flat format served by the first API generation:
// {total_cases, returned_cases, offset, limit, case_summaries}.
// Pages are translated to offset/limit on the way out and back on the way in.
type Legacy struct {
	paths Paths
}

type flatResponse struct {
	TotalCases    int                  `json:"total_cases"`
	ReturnedCases int                  `json:"returned_cases"`
	Offset        int                  `json:"offset"`
	Limit         int                  `json:"limit"`
	CaseSummaries []models.CaseSummary `json:"case_summaries"`
}

func (l *Legacy) Name() string { return ContractLegacy }
func (l *Legacy) Paths() Paths { return l.paths }

func (l *Legacy) Endpoint(req models.SearchRequest) (string, url.Values) {
	params := url.Values{}
	path := l.paths.List

	switch req.Query.Mode() {
	case models.ModeDateRange:
		path = l.paths.DateRange
		params.Set("start_date", req.Query.DateRange.StartParam())
		params.Set("end_date", req.Query.DateRange.EndParam())
	case models.ModeText:
		path = l.paths.Search
		params.Set("search", req.Query.Text)
	}

	if offset := (req.Page - 1) * req.PageSize; offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	params.Set("limit", strconv.Itoa(req.PageSize))

	return path, params
}

func (l *Legacy) DecodeList(body []byte, req models.SearchRequest) (*models.SearchResult, error) {
	var flat flatResponse
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, &ParseError{Contract: ContractLegacy, Err: err}
	}

	limit := flat.Limit
	if limit <= 0 {
		limit = req.PageSize
	}
	page := flat.Offset/limit + 1

	cases := flat.CaseSummaries
	if cases == nil {
		cases = []models.CaseSummary{}
	}

	return &models.SearchResult{
		Cases:      cases,
		Pagination: models.NewPagination(page, limit, flat.TotalCases),
	}, nil
}

func (l *Legacy) DecodeCase(body []byte) (*models.CaseSummary, error) {
	var c models.CaseSummary
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, &ParseError{Contract: ContractLegacy, Err: err}
	}
	if c.ID == "" && c.CaseID == "" {
		return nil, &ParseError{Contract: ContractLegacy, Err: errors.New("no case in body")}
	}
	return &c, nil
}
