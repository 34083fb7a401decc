// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows per page.
const PageSize = 20

// MaxPageSize caps the limit a caller may ask for.
const MaxPageSize = 100

// Params is a 1-based page number and a page size.
type Params struct {
	Page  int
	Limit int
}

// Default returns the first page at PageSize.
func Default() Params { return Params{Page: 1, Limit: PageSize} }

// Parse reads "page" and "limit" from the query string. Missing or
// invalid values fall back to page 1 and PageSize; limit is capped at
// MaxPageSize.
func Parse(r *http.Request) Params {
	return Clamp(atoi(query.Get(r, "page")), atoi(query.Get(r, "limit")))
}

// Clamp normalizes raw page/limit values.
func Clamp(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = PageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return Params{Page: page, Limit: limit}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Offset is the number of rows to skip.
func (p Params) Offset() int { return (p.Page - 1) * p.Limit }

// Info is the pagination block returned next to a page of results.
type Info struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"total"`
	PerPage     int   `json:"perPage"`
}

// InfoFor computes the pagination block for total matching rows.
func (p Params) InfoFor(total int64) Info {
	return Info{
		CurrentPage: p.Page,
		TotalPages:  TotalPages(total, p.Limit),
		Total:       total,
		PerPage:     p.Limit,
	}
}

// TotalPages is ceil(total/limit); zero rows is zero pages.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ApplyToFind sets newest-first sort, skip and limit on find.
func ApplyToFind(find *options.FindOptions, offset, limit int) *options.FindOptions {
	find.SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	if offset > 0 {
		find.SetSkip(int64(offset))
	}
	if limit > 0 {
		find.SetLimit(int64(limit))
	}
	return find
}

// Window slices rows[offset:offset+limit] with bounds checks. A limit of
// zero or less returns everything from offset.
func Window[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	if offset < 0 {
		offset = 0
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}
