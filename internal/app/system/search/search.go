// internal/app/system/search/search.go
package search

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clause returns a case-insensitive substring match of q against any of
// fields, or nil when q is blank. The query is matched literally; regex
// metacharacters in q have no special meaning.
//
//	filter := bson.M{"role": "admin"}
//	search.Into(filter, q, "name", "email")
func Clause(q string, fields ...string) bson.M {
	q = strings.TrimSpace(q)
	if q == "" || len(fields) == 0 {
		return nil
	}
	re := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	if len(fields) == 1 {
		return bson.M{fields[0]: re}
	}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: re})
	}
	return bson.M{"$or": or}
}

// Into merges the search clause for q into filter.
func Into(filter bson.M, q string, fields ...string) bson.M {
	for k, v := range Clause(q, fields...) {
		filter[k] = v
	}
	return filter
}
