package fopbridge

import (
	"encoding/json"
	"net/http"
)

// RecordResponse wraps a single record.
type RecordResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	status  int
}

func NewRecordResponse[T any](record T) RecordResponse[T] {
	return RecordResponse[T]{Success: true, Data: record}
}

// NewCreatedResponse answers with 201.
func NewCreatedResponse[T any](record T) RecordResponse[T] {
	return RecordResponse[T]{Success: true, Data: record, status: http.StatusCreated}
}

func (r RecordResponse[T]) Encode() ([]byte, string, error) {
	data, err := json.Marshal(r)
	return data, "application/json", err
}

func (r RecordResponse[T]) HTTPStatus() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// CountedResponse is an unpaginated list.
type CountedResponse[T any] struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    []T  `json:"data"`
}

func NewCountedResponse[T any](records []T) CountedResponse[T] {
	if records == nil {
		records = []T{}
	}
	return CountedResponse[T]{Success: true, Count: len(records), Data: records}
}

func (c CountedResponse[T]) Encode() ([]byte, string, error) {
	data, err := json.Marshal(c)
	return data, "application/json", err
}

// TokenResponse carries a freshly signed session token.
type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func NewTokenResponse(token string) TokenResponse {
	return TokenResponse{Success: true, Token: token}
}

func (t TokenResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(t)
	return data, "application/json", err
}
