// Package memory is an in-process implementation of the repo interfaces.
//
// All collections share one mutex, so each uniqueness check and the write
// it guards happen atomically. It backs unit tests and the
// store_backend=memory mode.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/paging"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB holds every collection.
type DB struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]models.User
	projects map[primitive.ObjectID]models.Project
	tasks    map[primitive.ObjectID]models.Task
	now      func() time.Time
}

// New returns an empty database.
func New() *DB {
	return &DB{
		users:    make(map[primitive.ObjectID]models.User),
		projects: make(map[primitive.ObjectID]models.Project),
		tasks:    make(map[primitive.ObjectID]models.Task),
		now:      time.Now,
	}
}

// Stores returns the three collection views over db.
func (db *DB) Stores() repo.Stores {
	return repo.Stores{
		Users:    &Users{db: db},
		Projects: &Projects{db: db},
		Tasks:    &Tasks{db: db},
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matchesSearch(search string, fields ...string) bool {
	search = strings.TrimSpace(search)
	if search == "" {
		return true
	}
	for _, f := range fields {
		if containsFold(f, search) {
			return true
		}
	}
	return false
}

// newestFirst sorts by created time descending, then id descending.
func newestFirst[T any](rows []T, created func(T) time.Time, id func(T) primitive.ObjectID) {
	sort.SliceStable(rows, func(i, j int) bool {
		ci, cj := created(rows[i]), created(rows[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		a, b := id(rows[i]), id(rows[j])
		return a.Hex() > b.Hex()
	})
}

func page[T any](rows []T, q repo.ListQuery) repo.Page[T] {
	return repo.Page[T]{Items: paging.Window(rows, q.Offset, q.Limit), Total: int64(len(rows))}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneProject(p models.Project) models.Project {
	p.Tags = cloneStrings(p.Tags)
	p.Members = append([]models.Member(nil), p.Members...)
	return p
}

func cloneTask(t models.Task) models.Task {
	t.Labels = cloneStrings(t.Labels)
	t.Comments = append([]models.Comment(nil), t.Comments...)
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		t.AssigneeID = &id
	}
	return t
}
