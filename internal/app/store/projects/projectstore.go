package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/paging"
	"github.com/dalemusser/trackhub/internal/app/system/search"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/trackhub/internal/domain/projectkey"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the MongoDB implementation of repo.Projects.
// Key uniqueness relies on the uniq_projects_key index.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

var _ repo.Projects = (*Store)(nil)

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repo.ErrNotFound
	case wafflemongo.IsDup(err):
		return repo.ErrDuplicateKey
	}
	return err
}

func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Key = projectkey.Normalize(p.Key)
	p.NameCI = text.Fold(p.Name)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Members == nil {
		p.Members = []models.Member{}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Project{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) findAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Project, error) {
	set["updated_at"] = time.Now().UTC()
	var p models.Project
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		return models.Project{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd repo.ProjectUpdate) (models.Project, error) {
	set := bson.M{}
	if upd.Key != nil {
		set["key"] = projectkey.Normalize(*upd.Key)
	}
	if upd.Name != nil {
		set["name"] = *upd.Name
		set["name_ci"] = text.Fold(*upd.Name)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Visibility != nil {
		set["visibility"] = *upd.Visibility
	}
	if upd.Tags != nil {
		tags := *upd.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}
	return s.findAndSet(ctx, id, set)
}

// PutMember adds m, or changes the role of an existing entry in place with
// the positional operator. A push is guarded by members.user_id $ne, so two
// adds of the same user cannot both land.
func (s *Store) PutMember(ctx context.Context, id primitive.ObjectID, m models.Member) (models.Project, error) {
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	for attempt := 0; attempt < 3; attempt++ {
		now := time.Now().UTC()

		existing := bson.M{"_id": id, "members.user_id": m.UserID}
		if m.Role != models.MemberManager {
			existing["owner_id"] = bson.M{"$ne": m.UserID}
		}
		var p models.Project
		err := s.c.FindOneAndUpdate(ctx, existing,
			bson.M{"$set": bson.M{"members.$.role": m.Role, "updated_at": now}}, after).Decode(&p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, err
		}

		err = s.c.FindOneAndUpdate(ctx,
			bson.M{"_id": id, "members.user_id": bson.M{"$ne": m.UserID}},
			bson.M{"$push": bson.M{"members": m}, "$set": bson.M{"updated_at": now}}, after).Decode(&p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, err
		}

		// Neither matched: the project is gone, the owner would be demoted,
		// or another writer added the user between the two updates.
		cur, err := s.GetByID(ctx, id)
		if err != nil {
			return models.Project{}, err
		}
		if cur.OwnerID == m.UserID && m.Role != models.MemberManager {
			return models.Project{}, repo.ErrOwnerMember
		}
	}
	return models.Project{}, errors.New("projectstore: membership kept changing during update")
}

// RemoveMember pulls userID from the project. The owner's entry is never
// pulled.
func (s *Store) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (models.Project, error) {
	var p models.Project
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner_id": bson.M{"$ne": userID}, "members.user_id": userID},
		bson.M{
			"$pull": bson.M{"members": bson.M{"user_id": userID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Project{}, err
	}
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if cur.OwnerID == userID {
		return models.Project{}, repo.ErrOwnerMember
	}
	return models.Project{}, repo.ErrNotMember
}

// TransferOwnership hands every project owned by from to to. Where to is
// already a member the entry is promoted to manager; elsewhere a manager
// entry is pushed. The pass repeats while projects owned by from remain,
// which covers a member added between the two updates.
func (s *Store) TransferOwnership(ctx context.Context, from, to primitive.ObjectID) (int64, error) {
	var n int64
	for attempt := 0; attempt < 3; attempt++ {
		now := time.Now().UTC()
		promoted, err := s.c.UpdateMany(ctx,
			bson.M{"owner_id": from, "members.user_id": to},
			bson.M{"$set": bson.M{"owner_id": to, "members.$.role": models.MemberManager, "updated_at": now}})
		if err != nil {
			return n, err
		}
		pushed, err := s.c.UpdateMany(ctx,
			bson.M{"owner_id": from, "members.user_id": bson.M{"$ne": to}},
			bson.M{
				"$set":  bson.M{"owner_id": to, "updated_at": now},
				"$push": bson.M{"members": models.Member{UserID: to, Role: models.MemberManager, JoinedAt: now}},
			})
		if err != nil {
			return n, err
		}
		n += promoted.ModifiedCount + pushed.ModifiedCount
		left, err := s.c.CountDocuments(ctx, bson.M{"owner_id": from})
		if err != nil {
			return n, err
		}
		if left == 0 {
			return n, nil
		}
	}
	return n, errors.New("projectstore: ownership transfer did not converge")
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func memberClause(userID primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"owner_id": userID},
		bson.M{"members.user_id": userID},
	}}
}

func listFilter(q repo.ListQuery) bson.M {
	var and bson.A
	if q.Status != "" {
		and = append(and, bson.M{"status": q.Status})
	}
	if q.MemberOf != nil {
		and = append(and, memberClause(*q.MemberOf))
	}
	if c := search.Clause(q.Search, "name", "key"); c != nil {
		and = append(and, c)
	}
	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

// List returns one page of projects, newest first.
func (s *Store) List(ctx context.Context, q repo.ListQuery) (repo.Page[models.Project], error) {
	filter := listFilter(q)
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return repo.Page[models.Project]{}, err
	}

	cur, err := s.c.Find(ctx, filter, paging.ApplyToFind(options.Find(), q.Offset, q.Limit))
	if err != nil {
		return repo.Page[models.Project]{}, err
	}
	defer cur.Close(ctx)

	items := []models.Project{}
	if err := cur.All(ctx, &items); err != nil {
		return repo.Page[models.Project]{}, err
	}
	return repo.Page[models.Project]{Items: items, Total: total}, nil
}

// IDsForMember lists the projects userID owns or belongs to.
func (s *Store) IDsForMember(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, memberClause(userID), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// PullMember removes userID from every membership list and reports how
// many projects changed.
func (s *Store) PullMember(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"members.user_id": userID},
		bson.M{
			"$pull": bson.M{"members": bson.M{"user_id": userID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
