package state

import (
	"context"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

func (s *Session) loadAdmin(ctx context.Context) error {
	cred, gen, err := s.signedIn()
	if err != nil {
		return err
	}

	var (
		users    []models.User
		projects []models.ProjectView
		tasks    []models.TaskView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = fetchAll(gctx, func(ctx context.Context, lp coordinator.ListParams) (coordinator.PageResult[models.User], error) {
			return s.backend.AdminListUsers(ctx, cred, lp)
		})
		return err
	})
	g.Go(func() (err error) {
		projects, err = fetchAll(gctx, func(ctx context.Context, lp coordinator.ListParams) (coordinator.PageResult[models.ProjectView], error) {
			return s.backend.AdminListProjects(ctx, cred, lp)
		})
		return err
	})
	g.Go(func() (err error) {
		tasks, err = fetchAll(gctx, func(ctx context.Context, lp coordinator.ListParams) (coordinator.PageResult[models.TaskView], error) {
			return s.backend.AdminListTasks(ctx, cred, lp)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return s.check(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.adminUsers, s.adminProjects, s.adminTasks = users, projects, tasks
	}
	return nil
}

// AdminUsers returns the cached site-wide user list (admins only).
func (s *Session) AdminUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.adminUsers...)
}

// AdminProjects returns the cached site-wide project list.
func (s *Session) AdminProjects() []models.ProjectView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ProjectView(nil), s.adminProjects...)
}

// AdminTasks returns the cached site-wide task list.
func (s *Session) AdminTasks() []models.TaskView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TaskView(nil), s.adminTasks...)
}

// Dashboard is fetched on demand and not cached.
func (s *Session) Dashboard(ctx context.Context) (models.Dashboard, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.Dashboard{}, err
	}
	d, err := s.backend.AdminDashboard(ctx, cred)
	return d, s.check(err)
}

// AdminUpdateUser edits any user. Editing yourself refreshes your own
// identity as well.
func (s *Session) AdminUpdateUser(ctx context.Context, id string, in coordinator.AdminUserInput) (models.User, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.User{}, err
	}
	u, err := s.backend.AdminUpdateUser(ctx, cred, id, in)
	if err != nil {
		return u, s.check(err)
	}
	s.mu.Lock()
	if s.user != nil && s.user.ID == u.ID {
		me := u
		s.user = &me
	}
	s.mu.Unlock()
	s.afterWrite(ctx, colProjects|colTasks|colAdmin)
	return u, nil
}

// AdminDeleteUser deletes a user; their memberships and assignments go too.
func (s *Session) AdminDeleteUser(ctx context.Context, id string) error {
	cred, _, err := s.signedIn()
	if err != nil {
		return err
	}
	if err := s.backend.AdminDeleteUser(ctx, cred, id); err != nil {
		return s.check(err)
	}
	s.afterWrite(ctx, colProjects|colTasks|colAdmin)
	return nil
}

func (s *Session) AdminUpdateProject(ctx context.Context, id string, in coordinator.UpdateProjectInput) (models.ProjectView, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.ProjectView{}, err
	}
	v, err := s.backend.AdminUpdateProject(ctx, cred, id, in)
	if err != nil {
		return v, s.check(err)
	}
	s.afterWrite(ctx, colProjects|colTasks|colAdmin)
	return v, nil
}

func (s *Session) AdminDeleteProject(ctx context.Context, id string) error {
	cred, _, err := s.signedIn()
	if err != nil {
		return err
	}
	if err := s.backend.AdminDeleteProject(ctx, cred, id); err != nil {
		return s.check(err)
	}
	s.afterWrite(ctx, colProjects|colTasks|colAdmin)
	return nil
}

func (s *Session) AdminUpdateTask(ctx context.Context, id string, in coordinator.UpdateTaskInput) (models.TaskView, error) {
	cred, _, err := s.signedIn()
	if err != nil {
		return models.TaskView{}, err
	}
	v, err := s.backend.AdminUpdateTask(ctx, cred, id, in)
	if err != nil {
		return v, s.check(err)
	}
	s.afterWrite(ctx, colTasks|colAdmin)
	return v, nil
}

func (s *Session) AdminDeleteTask(ctx context.Context, id string) error {
	cred, _, err := s.signedIn()
	if err != nil {
		return err
	}
	if err := s.backend.AdminDeleteTask(ctx, cred, id); err != nil {
		return s.check(err)
	}
	s.afterWrite(ctx, colTasks|colAdmin)
	return nil
}
