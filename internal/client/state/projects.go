package state

import (
	"context"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/domain/projectkey"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Session) loadProjects(ctx context.Context) error {
	cred, gen, err := s.signedIn()
	if err != nil {
		return err
	}
	list, err := fetchAll(ctx, func(ctx context.Context, lp coordinator.ListParams) (coordinator.PageResult[models.ProjectView], error) {
		return s.backend.ListProjects(ctx, cred, lp)
	})
	if err != nil {
		return s.check(err)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	changed := s.applyProjectsLocked(list)
	f := s.persistLocked()
	s.mu.Unlock()

	if changed {
		s.save(f)
	}
	return nil
}

// applyProjectsLocked replaces the project list and keeps the selection
// valid: a selection that vanished is cleared, and with nothing selected
// the first project is picked. It reports whether the selection changed.
func (s *Session) applyProjectsLocked(list []models.ProjectView) bool {
	s.projects = list
	before := s.current
	if !s.current.IsZero() && indexOfProject(list, s.current) < 0 {
		s.current = primitive.NilObjectID
	}
	if s.current.IsZero() && len(list) > 0 {
		s.current = list[0].ID
	}
	return s.current != before
}

func indexOfProject(list []models.ProjectView, id primitive.ObjectID) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Projects returns the projects the user owns or belongs to.
func (s *Session) Projects() []models.ProjectView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ProjectView(nil), s.projects...)
}

// CurrentProject returns the selected project, if any.
func (s *Session) CurrentProject() (models.ProjectView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOfProject(s.projects, s.current); i >= 0 {
		return s.projects[i], true
	}
	return models.ProjectView{}, false
}

// SelectProject makes the project with the given id (or key) current.
func (s *Session) SelectProject(idOrKey string) error {
	s.mu.Lock()
	found := -1
	for i, p := range s.projects {
		if p.ID.Hex() == idOrKey || p.Key == projectkey.Normalize(idOrKey) {
			found = i
			break
		}
	}
	if found < 0 {
		s.mu.Unlock()
		return apperr.NotFoundf("project %s not found", idOrKey)
	}
	s.current = s.projects[found].ID
	f := s.persistLocked()
	s.mu.Unlock()

	s.save(f)
	return nil
}

func (s *Session) selectID(id primitive.ObjectID) {
	s.mu.Lock()
	if indexOfProject(s.projects, id) < 0 {
		s.mu.Unlock()
		return
	}
	s.current = id
	f := s.persistLocked()
	s.mu.Unlock()
	s.save(f)
}

// CreateProject creates a project and selects it. With no key one is
// derived from the name; if the key is taken the next candidates (KEY2,
// KEY3) are tried, for at most projectkey.MaxAttempts attempts.
func (s *Session) CreateProject(ctx context.Context, in coordinator.CreateProjectInput) (models.ProjectView, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.ProjectView{}, err
	}
	base := projectkey.Resolve(in.Key, in.Name)
	for attempt := 0; attempt < projectkey.MaxAttempts; attempt++ {
		in.Key = projectkey.Candidate(base, attempt)
		v, err := s.backend.CreateProject(ctx, cred, in)
		if err == nil {
			s.afterWrite(ctx, colProjects|colAdmin)
			s.selectID(v.ID)
			return v, nil
		}
		if !apperr.IsSub(err, apperr.DuplicateKey) || attempt == projectkey.MaxAttempts-1 {
			return models.ProjectView{}, s.check(err)
		}
	}
	return models.ProjectView{}, apperr.New(apperr.InvalidInput, "no free project key")
}

// UpdateProject edits a project. Task views carry the project key and
// name, so tasks are refetched too.
func (s *Session) UpdateProject(ctx context.Context, id string, in coordinator.UpdateProjectInput) (models.ProjectView, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.ProjectView{}, err
	}
	v, err := s.backend.UpdateProject(ctx, cred, id, in)
	if err != nil {
		return v, s.check(err)
	}
	s.afterWrite(ctx, colProjects|colTasks|colAdmin)
	return v, nil
}

// DeleteProject deletes a project and its tasks.
func (s *Session) DeleteProject(ctx context.Context, id string) error {
	cred, _, err := s.signedIn()
	if err != nil {
		return err
	}
	if err := s.backend.DeleteProject(ctx, cred, id); err != nil {
		return s.check(err)
	}
	s.afterWrite(ctx, colProjects|colTasks|colAdmin)
	return nil
}

// AddMember adds (or re-roles) a member of the selected project when
// projectID is empty, otherwise of projectID.
func (s *Session) AddMember(ctx context.Context, projectID string, in coordinator.AddMemberInput) (models.ProjectView, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.ProjectView{}, err
	}
	if projectID, err = s.projectOrCurrent(projectID); err != nil {
		return models.ProjectView{}, err
	}
	v, err := s.backend.AddMember(ctx, cred, projectID, in)
	if err != nil {
		return v, s.check(err)
	}
	s.afterWrite(ctx, colProjects|colAdmin)
	return v, nil
}

// RemoveMember removes a member from projectID (or the selected project).
func (s *Session) RemoveMember(ctx context.Context, projectID, userID string) (models.ProjectView, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.ProjectView{}, err
	}
	if projectID, err = s.projectOrCurrent(projectID); err != nil {
		return models.ProjectView{}, err
	}
	v, err := s.backend.RemoveMember(ctx, cred, projectID, userID)
	if err != nil {
		return v, s.check(err)
	}
	s.afterWrite(ctx, colProjects|colTasks|colAdmin)
	return v, nil
}

func (s *Session) projectOrCurrent(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	p, ok := s.CurrentProject()
	if !ok {
		return "", apperr.Invalidf("no project selected")
	}
	return p.ID.Hex(), nil
}
