// Package listquery reads list filters from the query string.
package listquery

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/waffle/pantry/query"
)

// Parse reads page, limit, search and the enum filters. Unparseable
// numbers become 0, which the coordinator replaces with defaults.
func Parse(r *http.Request) coordinator.ListParams {
	return coordinator.ListParams{
		Page:     atoi(query.Get(r, "page")),
		Limit:    atoi(query.Get(r, "limit")),
		Search:   strings.TrimSpace(query.Get(r, "search")),
		Role:     query.Get(r, "role"),
		Status:   query.Get(r, "status"),
		Priority: query.Get(r, "priority"),
		Type:     query.Get(r, "type"),
		Project:  query.Get(r, "project"),
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
