package fop_test

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/jrazmi/devcamper/core/scaffolding/fop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateScenario(t *testing.T) {
	res := fop.Paginate(2, 5, 12)

	require.NotNil(t, res.Previous)
	assert.Equal(t, fop.PageRef{Page: 1, Limit: 5}, *res.Previous)
	require.NotNil(t, res.Next)
	assert.Equal(t, fop.PageRef{Page: 3, Limit: 5}, *res.Next)
}

func TestPaginateProperties(t *testing.T) {
	for page := 1; page <= 6; page++ {
		for limit := 1; limit <= 6; limit++ {
			for total := int64(0); total <= 30; total++ {
				name := fmt.Sprintf("page=%d/limit=%d/total=%d", page, limit, total)
				res := fop.Paginate(page, limit, total)

				if int64(page*limit) < total {
					if assert.NotNil(t, res.Next, name) {
						assert.Equal(t, fop.PageRef{Page: page + 1, Limit: limit}, *res.Next, name)
					}
				} else {
					assert.Nil(t, res.Next, name)
				}

				if page > 1 {
					if assert.NotNil(t, res.Previous, name) {
						assert.Equal(t, fop.PageRef{Page: page - 1, Limit: limit}, *res.Previous, name)
					}
				} else {
					assert.Nil(t, res.Previous, name)
				}
			}
		}
	}
}

func TestPaginateLastPage(t *testing.T) {
	res := fop.Paginate(3, 5, 12)
	assert.Nil(t, res.Next)
	assert.NotNil(t, res.Previous)

	res = fop.Paginate(1, 100, 0)
	assert.Nil(t, res.Next)
	assert.Nil(t, res.Previous)
}

func TestPaginationJSON(t *testing.T) {
	b, err := json.Marshal(fop.Paginate(1, 10, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	b, err = json.Marshal(fop.Paginate(2, 5, 12))
	require.NoError(t, err)
	assert.JSONEq(t, `{"next":{"page":3,"limit":5},"prev":{"page":1,"limit":5}}`, string(b))
}

func TestPaginateHugeValues(t *testing.T) {
	res := fop.Paginate(1<<62, 4, 10)
	assert.Nil(t, res.Next)
	assert.Equal(t, &fop.PageRef{Page: 1<<62 - 1, Limit: 4}, res.Previous)

	res = fop.Paginate(math.MaxInt, math.MaxInt, math.MaxInt64)
	assert.Nil(t, res.Next)

	res = fop.Paginate(1, math.MaxInt, math.MaxInt64)
	assert.Nil(t, res.Next)

	res = fop.Paginate(2, 1<<40, 1<<42)
	assert.Equal(t, &fop.PageRef{Page: 3, Limit: 1 << 40}, res.Next)
}
