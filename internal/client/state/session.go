// Package state keeps a client's view of the server: who is signed in,
// their projects and tasks, the selected project and, for admins, the
// site-wide lists. Every write goes to the backend first and is followed
// by a refetch that replaces the affected caches wholesale.
package state

import (
	"context"
	"sync"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/paging"
	"github.com/dalemusser/trackhub/internal/client/credfile"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errNotSignedIn = apperr.New(apperr.Unauthenticated, "not signed in")

// Session is one signed-in client. The zero value is not usable; call New.
type Session struct {
	backend Backend
	creds   CredentialStore
	log     *zap.Logger

	mu        sync.RWMutex
	gen       uint64 // bumped on sign-in and sign-out; stale loads are dropped
	file      credfile.File
	cred      auth.Credential
	user      *models.User
	projects  []models.ProjectView
	tasks     map[primitive.ObjectID]models.TaskView
	taskOrder []primitive.ObjectID
	current   primitive.ObjectID

	adminUsers    []models.User
	adminProjects []models.ProjectView
	adminTasks    []models.TaskView

	projectsR *refresher
	tasksR    *refresher
	adminR    *refresher
}

// New builds a signed-out Session.
func New(b Backend, creds CredentialStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{backend: b, creds: creds, log: logger}
	s.projectsR = newRefresher(s.loadProjects)
	s.tasksR = newRefresher(s.loadTasks)
	s.adminR = newRefresher(s.loadAdmin)
	return s
}

// Init restores the stored credential. An expired or revoked credential is
// cleared and Init returns nil with the session signed out. Any other
// failure is returned and leaves the stored credential alone.
func (s *Session) Init(ctx context.Context) error {
	f, err := s.creds.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.file = f
	s.mu.Unlock()
	if f.Token == "" {
		return nil
	}

	cred := auth.Credential(f.Token)
	u, err := s.backend.VerifyCredential(ctx, cred)
	if err != nil {
		if apperr.Is(err, apperr.Unauthenticated) {
			s.log.Info("stored credential rejected; signing out")
			return s.Logout()
		}
		return err
	}

	s.mu.Lock()
	s.gen++
	s.cred = cred
	s.user = &u
	if id, err := primitive.ObjectIDFromHex(f.ProjectID); err == nil {
		s.current = id
	}
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// Login signs in and loads everything the user can see.
func (s *Session) Login(ctx context.Context, email, password string) error {
	res, err := s.backend.Login(ctx, coordinator.LoginInput{Email: email, Password: password})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.gen++
	s.resetLocked()
	s.cred = res.Credential
	s.user = &res.User
	s.file.Token = string(res.Credential)
	s.file.ProjectID = ""
	f := s.file
	s.mu.Unlock()

	if err := s.creds.Save(f); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Logout forgets the identity, every cache and the stored credential.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.gen++
	s.resetLocked()
	s.file.Token = ""
	s.file.ProjectID = ""
	s.mu.Unlock()
	return s.creds.Clear()
}

func (s *Session) resetLocked() {
	s.cred = ""
	s.user = nil
	s.projects = nil
	s.tasks = nil
	s.taskOrder = nil
	s.current = primitive.NilObjectID
	s.adminUsers = nil
	s.adminProjects = nil
	s.adminTasks = nil
}

// check signs the session out when the server no longer accepts the
// credential. Other errors leave local state as it was.
func (s *Session) check(err error) error {
	if apperr.Is(err, apperr.Unauthenticated) {
		if lerr := s.Logout(); lerr != nil {
			s.log.Warn("clearing credentials failed", zap.Error(lerr))
		}
	}
	return err
}

// signedIn returns the credential and the generation it belongs to.
func (s *Session) signedIn() (auth.Credential, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == "" {
		return "", 0, errNotSignedIn
	}
	return s.cred, s.gen, nil
}

// User returns the signed-in user.
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// SignedIn reports whether a credential is held.
func (s *Session) SignedIn() bool {
	_, ok := s.User()
	return ok
}

func (s *Session) isAdmin() bool {
	u, ok := s.User()
	return ok && u.IsAdmin()
}

// Refresh reloads every collection the user can see.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refresh(ctx, colProjects|colTasks|colAdmin)
}

// RefreshProjects reloads the project list.
func (s *Session) RefreshProjects(ctx context.Context) error { return s.projectsR.Do(ctx) }

// RefreshTasks reloads the task cache.
func (s *Session) RefreshTasks(ctx context.Context) error { return s.tasksR.Do(ctx) }

// RefreshAdmin reloads the admin lists. Non-admins get nil and no request.
func (s *Session) RefreshAdmin(ctx context.Context) error {
	if !s.isAdmin() {
		return nil
	}
	return s.adminR.Do(ctx)
}

type collection uint8

const (
	colProjects collection = 1 << iota
	colTasks
	colAdmin
)

func (s *Session) refresh(ctx context.Context, cols collection) error {
	g, gctx := errgroup.WithContext(ctx)
	if cols&colProjects != 0 {
		g.Go(func() error { return s.RefreshProjects(gctx) })
	}
	if cols&colTasks != 0 {
		g.Go(func() error { return s.RefreshTasks(gctx) })
	}
	if cols&colAdmin != 0 {
		g.Go(func() error { return s.RefreshAdmin(gctx) })
	}
	return g.Wait()
}

// afterWrite refetches what a successful write touched. The write already
// succeeded, so a failed refetch is logged rather than returned; the
// caches stay as they were until the next refresh.
func (s *Session) afterWrite(ctx context.Context, cols collection) {
	if err := s.refresh(ctx, cols); err != nil {
		s.log.Warn("refresh after write failed", zap.Error(err))
	}
}

// fetchAll walks every page of a list.
func fetchAll[T any](ctx context.Context, list func(context.Context, coordinator.ListParams) (coordinator.PageResult[T], error)) ([]T, error) {
	var out []T
	for page := 1; ; page++ {
		res, err := list(ctx, coordinator.ListParams{Page: page, Limit: paging.MaxPageSize})
		if err != nil {
			return nil, err
		}
		out = append(out, res.Items...)
		if len(res.Items) == 0 || page >= res.Pagination.TotalPages {
			return out, nil
		}
	}
}

func (s *Session) persistLocked() credfile.File {
	if s.current.IsZero() {
		s.file.ProjectID = ""
	} else {
		s.file.ProjectID = s.current.Hex()
	}
	return s.file
}

func (s *Session) save(f credfile.File) {
	if err := s.creds.Save(f); err != nil {
		s.log.Warn("saving credentials failed", zap.Error(err))
	}
}
