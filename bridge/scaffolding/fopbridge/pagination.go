// Package fopbridge holds the response envelopes list and record endpoints
// answer with.
package fopbridge

import (
	"encoding/json"

	"github.com/jrazmi/devcamper/core/scaffolding/fop"
)

// ResultEnvelope is one page of a list endpoint.
type ResultEnvelope[T any] struct {
	Success    bool                 `json:"success"`
	Count      int                  `json:"count"`
	Pagination fop.PaginationResult `json:"pagination"`
	Data       []T                  `json:"data"`
}

// NewResultEnvelope computes the page neighbours from the descriptor and the
// total count.
func NewResultEnvelope[T any](items []T, d fop.QueryDescriptor, total int64) ResultEnvelope[T] {
	if items == nil {
		items = []T{}
	}
	return ResultEnvelope[T]{
		Success:    true,
		Count:      len(items),
		Pagination: fop.Paginate(d.Page, d.Limit, total),
		Data:       items,
	}
}

func (e ResultEnvelope[T]) Encode() ([]byte, string, error) {
	data, err := json.Marshal(e)
	return data, "application/json", err
}
