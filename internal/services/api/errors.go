package api

import (
	"errors"
	"fmt"
)

// NetworkError covers transport failures and non-2xx answers. Status is 0
// when no response was received.
type NetworkError struct {
	Status int
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError means the body could not be decoded under the active contract.
type ParseError struct {
	Contract string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Contract, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// APIError is an enveloped answer with success set to false.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "api reported failure"
	}
	return "api reported failure: " + e.Message
}

var ErrEmptyID = errors.New("empty case id")
