package memory

import (
	"context"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Tasks struct{ db *DB }

func (s *Tasks) Create(_ context.Context, t models.Task) (models.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.TitleCI = text.Fold(t.Title)
	if t.Comments == nil {
		t.Comments = []models.Comment{}
	}
	now := s.db.now()
	t.CreatedAt, t.UpdatedAt = now, now
	s.db.tasks[t.ID] = cloneTask(t)
	return cloneTask(t), nil
}

func (s *Tasks) GetByID(_ context.Context, id primitive.ObjectID) (models.Task, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	t, ok := s.db.tasks[id]
	if !ok {
		return models.Task{}, repo.ErrNotFound
	}
	return cloneTask(t), nil
}

func (s *Tasks) Update(_ context.Context, id primitive.ObjectID, upd repo.TaskUpdate) (models.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, ok := s.db.tasks[id]
	if !ok {
		return models.Task{}, repo.ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
		t.TitleCI = text.Fold(t.Title)
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.Type != nil {
		t.Type = *upd.Type
	}
	switch {
	case upd.ClearAssignee:
		t.AssigneeID = nil
	case upd.AssigneeID != nil:
		id := *upd.AssigneeID
		t.AssigneeID = &id
	}
	switch {
	case upd.ClearDueDate:
		t.DueDate = nil
	case upd.DueDate != nil:
		d := *upd.DueDate
		t.DueDate = &d
	}
	if upd.EstimatedHours != nil {
		h := *upd.EstimatedHours
		t.EstimatedHours = &h
	}
	if upd.ActualHours != nil {
		h := *upd.ActualHours
		t.ActualHours = &h
	}
	if upd.Labels != nil {
		t.Labels = cloneStrings(*upd.Labels)
	}
	t.UpdatedAt = s.db.now()
	s.db.tasks[id] = t
	return cloneTask(t), nil
}

func (s *Tasks) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.tasks[id]; !ok {
		return 0, nil
	}
	delete(s.db.tasks, id)
	return 1, nil
}

func inProjects(id primitive.ObjectID, set []primitive.ObjectID) bool {
	for _, p := range set {
		if p == id {
			return true
		}
	}
	return false
}

func (s *Tasks) List(_ context.Context, q repo.ListQuery) (repo.Page[models.Task], error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows := make([]models.Task, 0, len(s.db.tasks))
	for _, t := range s.db.tasks {
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		if q.Type != "" && t.Type != q.Type {
			continue
		}
		if q.ProjectID != nil && t.ProjectID != *q.ProjectID {
			continue
		}
		if q.ProjectIn != nil && !inProjects(t.ProjectID, q.ProjectIn) {
			continue
		}
		if q.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *q.AssigneeID) {
			continue
		}
		if !matchesSearch(q.Search, t.Title, t.Description) {
			continue
		}
		rows = append(rows, cloneTask(t))
	}
	newestFirst(rows, func(t models.Task) time.Time { return t.CreatedAt }, func(t models.Task) primitive.ObjectID { return t.ID })
	return page(rows, q), nil
}

func (s *Tasks) AppendComment(_ context.Context, taskID primitive.ObjectID, c models.Comment) (models.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tasks[taskID]
	if !ok {
		return models.Task{}, repo.ErrNotFound
	}
	t.Comments = append(append([]models.Comment(nil), t.Comments...), c)
	t.UpdatedAt = s.db.now()
	s.db.tasks[taskID] = t
	return cloneTask(t), nil
}

func (s *Tasks) DeleteByProject(_ context.Context, projectID primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for id, t := range s.db.tasks {
		if t.ProjectID == projectID {
			delete(s.db.tasks, id)
			n++
		}
	}
	return n, nil
}

func (s *Tasks) ClearAssignee(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for id, t := range s.db.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == userID {
			t.AssigneeID = nil
			s.db.tasks[id] = t
			n++
		}
	}
	return n, nil
}

func (s *Tasks) ReassignReporter(_ context.Context, from, to primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for id, t := range s.db.tasks {
		if t.ReporterID == from {
			t.ReporterID = to
			s.db.tasks[id] = t
			n++
		}
	}
	return n, nil
}

func (s *Tasks) Count(_ context.Context, c repo.TaskCount) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var n int64
	for _, t := range s.db.tasks {
		if c.Status != "" && t.Status != c.Status {
			continue
		}
		if c.OverdueAt != nil && !t.IsOverdue(*c.OverdueAt) {
			continue
		}
		n++
	}
	return n, nil
}
