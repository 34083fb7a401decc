package memory

import (
	"context"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/normalize"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Users struct{ db *DB }

// emailTaken must be called with the lock held.
func (s *Users) emailTaken(email string, except primitive.ObjectID) bool {
	for id, u := range s.db.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *Users) Create(_ context.Context, u models.User) (models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = normalize.Email(u.Email)
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	if s.emailTaken(u.Email, primitive.NilObjectID) {
		return models.User{}, repo.ErrDuplicateEmail
	}
	now := s.db.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.db.users[u.ID] = u
	return u, nil
}

func (s *Users) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	email = normalize.Email(email)
	for _, u := range s.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (s *Users) GetMany(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.db.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Users) Update(_ context.Context, id primitive.ObjectID, upd repo.UserUpdate) (models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	if upd.Email != nil {
		email := normalize.Email(*upd.Email)
		if s.emailTaken(email, id) {
			return models.User{}, repo.ErrDuplicateEmail
		}
		u.Email = email
	}
	if upd.Name != nil {
		u.Name = normalize.Name(*upd.Name)
		u.NameCI = text.Fold(u.Name)
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	u.UpdatedAt = s.db.now()
	s.db.users[id] = u
	return u, nil
}

func (s *Users) SetPasswordHash(_ context.Context, id primitive.ObjectID, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.db.now()
	s.db.users[id] = u
	return nil
}

func (s *Users) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return 0, nil
	}
	delete(s.db.users, id)
	return 1, nil
}

func (s *Users) List(_ context.Context, q repo.ListQuery) (repo.Page[models.User], error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows := make([]models.User, 0, len(s.db.users))
	for _, u := range s.db.users {
		if q.Role != "" && u.Role != q.Role {
			continue
		}
		if !matchesSearch(q.Search, u.Name, u.Email) {
			continue
		}
		rows = append(rows, u)
	}
	newestFirst(rows, func(u models.User) time.Time { return u.CreatedAt }, func(u models.User) primitive.ObjectID { return u.ID })
	return page(rows, q), nil
}

func (s *Users) Count(_ context.Context, role string) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var n int64
	for _, u := range s.db.users {
		if role == "" || u.Role == role {
			n++
		}
	}
	return n, nil
}
