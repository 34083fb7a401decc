package state

import (
	"context"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Session) loadTasks(ctx context.Context) error {
	cred, gen, err := s.signedIn()
	if err != nil {
		return err
	}
	list, err := fetchAll(ctx, func(ctx context.Context, lp coordinator.ListParams) (coordinator.PageResult[models.TaskView], error) {
		return s.backend.ListTasks(ctx, cred, lp)
	})
	if err != nil {
		return s.check(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.applyTasksLocked(list)
	}
	return nil
}

// applyTasksLocked replaces the task cache. A task id seen twice (a page
// boundary that shifted under a concurrent write) is kept once, at its
// first position.
func (s *Session) applyTasksLocked(list []models.TaskView) {
	tasks := make(map[primitive.ObjectID]models.TaskView, len(list))
	order := make([]primitive.ObjectID, 0, len(list))
	for _, t := range list {
		if _, dup := tasks[t.ID]; dup {
			continue
		}
		tasks[t.ID] = t
		order = append(order, t.ID)
	}
	s.tasks = tasks
	s.taskOrder = order
}

// Tasks returns the tasks of the selected project, or nothing when no
// project is selected.
func (s *Session) Tasks() []models.TaskView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.IsZero() {
		return nil
	}
	var out []models.TaskView
	for _, id := range s.taskOrder {
		if t := s.tasks[id]; t.Project.ID == s.current {
			out = append(out, t)
		}
	}
	return out
}

// AllTasks returns every cached task across the user's projects.
func (s *Session) AllTasks() []models.TaskView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TaskView, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		out = append(out, s.tasks[id])
	}
	return out
}

// Task looks a cached task up by id.
func (s *Session) Task(id string) (models.TaskView, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.TaskView{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[oid]
	return t, ok
}

// CreateTask creates a task. An empty in.Project means the selected project.
func (s *Session) CreateTask(ctx context.Context, in coordinator.CreateTaskInput) (models.TaskView, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.TaskView{}, err
	}
	if in.Project, err = s.projectOrCurrent(in.Project); err != nil {
		return models.TaskView{}, err
	}
	v, err := s.backend.CreateTask(ctx, cred, in)
	if err != nil {
		return v, s.check(err)
	}
	s.afterWrite(ctx, colTasks|colAdmin)
	return v, nil
}

func (s *Session) UpdateTask(ctx context.Context, id string, in coordinator.UpdateTaskInput) (models.TaskView, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.TaskView{}, err
	}
	v, err := s.backend.UpdateTask(ctx, cred, id, in)
	if err != nil {
		return v, s.check(err)
	}
	s.afterWrite(ctx, colTasks|colAdmin)
	return v, nil
}

func (s *Session) DeleteTask(ctx context.Context, id string) error {
	cred, _, err := s.signedIn()
	if err != nil {
		return err
	}
	if err := s.backend.DeleteTask(ctx, cred, id); err != nil {
		return s.check(err)
	}
	s.afterWrite(ctx, colTasks|colAdmin)
	return nil
}

func (s *Session) AddComment(ctx context.Context, taskID, content string) (models.TaskView, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.TaskView{}, err
	}
	v, err := s.backend.AddComment(ctx, cred, taskID, coordinator.CommentInput{Content: content})
	if err != nil {
		return v, s.check(err)
	}
	s.afterWrite(ctx, colTasks|colAdmin)
	return v, nil
}
