package memory

import (
	"context"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/domain/projectkey"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Projects struct{ db *DB }

// keyTaken must be called with the lock held.
func (s *Projects) keyTaken(key string, except primitive.ObjectID) bool {
	for id, p := range s.db.projects {
		if id != except && p.Key == key {
			return true
		}
	}
	return false
}

func (s *Projects) Create(_ context.Context, p models.Project) (models.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Key = projectkey.Normalize(p.Key)
	p.NameCI = text.Fold(p.Name)
	if s.keyTaken(p.Key, primitive.NilObjectID) {
		return models.Project{}, repo.ErrDuplicateKey
	}
	now := s.db.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.db.projects[p.ID] = cloneProject(p)
	return cloneProject(p), nil
}

func (s *Projects) GetByID(_ context.Context, id primitive.ObjectID) (models.Project, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	p, ok := s.db.projects[id]
	if !ok {
		return models.Project{}, repo.ErrNotFound
	}
	return cloneProject(p), nil
}

func (s *Projects) Update(_ context.Context, id primitive.ObjectID, upd repo.ProjectUpdate) (models.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.projects[id]
	if !ok {
		return models.Project{}, repo.ErrNotFound
	}
	if upd.Key != nil {
		key := projectkey.Normalize(*upd.Key)
		if s.keyTaken(key, id) {
			return models.Project{}, repo.ErrDuplicateKey
		}
		p.Key = key
	}
	if upd.Name != nil {
		p.Name = *upd.Name
		p.NameCI = text.Fold(p.Name)
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.Visibility != nil {
		p.Visibility = *upd.Visibility
	}
	if upd.Tags != nil {
		p.Tags = cloneStrings(*upd.Tags)
	}
	p.UpdatedAt = s.db.now()
	s.db.projects[id] = p
	return cloneProject(p), nil
}

func (s *Projects) PutMember(_ context.Context, id primitive.ObjectID, m models.Member) (models.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.projects[id]
	if !ok {
		return models.Project{}, repo.ErrNotFound
	}
	if p.OwnerID == m.UserID && m.Role != models.MemberManager {
		return models.Project{}, repo.ErrOwnerMember
	}
	members := append([]models.Member(nil), p.Members...)
	found := false
	for i := range members {
		if members[i].UserID == m.UserID {
			members[i].Role = m.Role
			found = true
		}
	}
	if !found {
		members = append(members, m)
	}
	p.Members = members
	p.UpdatedAt = s.db.now()
	s.db.projects[id] = p
	return cloneProject(p), nil
}

func (s *Projects) RemoveMember(_ context.Context, id, userID primitive.ObjectID) (models.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.projects[id]
	if !ok {
		return models.Project{}, repo.ErrNotFound
	}
	if p.OwnerID == userID {
		return models.Project{}, repo.ErrOwnerMember
	}
	kept := make([]models.Member, 0, len(p.Members))
	for _, m := range p.Members {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(p.Members) {
		return models.Project{}, repo.ErrNotMember
	}
	p.Members = kept
	p.UpdatedAt = s.db.now()
	s.db.projects[id] = p
	return cloneProject(p), nil
}

func (s *Projects) TransferOwnership(_ context.Context, from, to primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	now := s.db.now()
	for id, p := range s.db.projects {
		if p.OwnerID != from {
			continue
		}
		members := append([]models.Member(nil), p.Members...)
		found := false
		for i := range members {
			if members[i].UserID == to {
				members[i].Role = models.MemberManager
				found = true
			}
		}
		if !found {
			members = append(members, models.Member{UserID: to, Role: models.MemberManager, JoinedAt: now})
		}
		p.OwnerID = to
		p.Members = members
		p.UpdatedAt = now
		s.db.projects[id] = p
		n++
	}
	return n, nil
}

func (s *Projects) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.projects[id]; !ok {
		return 0, nil
	}
	delete(s.db.projects, id)
	return 1, nil
}

func (s *Projects) List(_ context.Context, q repo.ListQuery) (repo.Page[models.Project], error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows := make([]models.Project, 0, len(s.db.projects))
	for _, p := range s.db.projects {
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.MemberOf != nil && !p.HasMember(*q.MemberOf) {
			continue
		}
		if !matchesSearch(q.Search, p.Name, p.Key) {
			continue
		}
		rows = append(rows, cloneProject(p))
	}
	newestFirst(rows, func(p models.Project) time.Time { return p.CreatedAt }, func(p models.Project) primitive.ObjectID { return p.ID })
	return page(rows, q), nil
}

func (s *Projects) IDsForMember(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var ids []primitive.ObjectID
	for id, p := range s.db.projects {
		if p.HasMember(userID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Projects) PullMember(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for id, p := range s.db.projects {
		kept := p.Members[:0:0]
		for _, m := range p.Members {
			if m.UserID != userID {
				kept = append(kept, m)
			}
		}
		if len(kept) != len(p.Members) {
			p.Members = kept
			p.UpdatedAt = s.db.now()
			s.db.projects[id] = p
			n++
		}
	}
	return n, nil
}

func (s *Projects) Count(_ context.Context) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return int64(len(s.db.projects)), nil
}
