package taskstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/paging"
	"github.com/dalemusser/trackhub/internal/app/system/search"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the MongoDB implementation of repo.Tasks. Comments live
// embedded in the task document.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

var _ repo.Tasks = (*Store)(nil)

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repo.ErrNotFound
	}
	return err
}

func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.TitleCI = text.Fold(t.Title)
	if t.Labels == nil {
		t.Labels = []string{}
	}
	if t.Comments == nil {
		t.Comments = []models.Comment{}
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return models.Task{}, notFound(err)
	}
	return t, nil
}

func (s *Store) findAndModify(ctx context.Context, id primitive.ObjectID, update bson.M) (models.Task, error) {
	var t models.Task
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if err != nil {
		return models.Task{}, notFound(err)
	}
	return t, nil
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd repo.TaskUpdate) (models.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.Title != nil {
		set["title"] = *upd.Title
		set["title_ci"] = text.Fold(*upd.Title)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}
	if upd.Type != nil {
		set["type"] = *upd.Type
	}
	switch {
	case upd.ClearAssignee:
		set["assignee_id"] = nil
	case upd.AssigneeID != nil:
		set["assignee_id"] = *upd.AssigneeID
	}
	switch {
	case upd.ClearDueDate:
		unset["due_date"] = ""
	case upd.DueDate != nil:
		set["due_date"] = *upd.DueDate
	}
	if upd.EstimatedHours != nil {
		set["estimated_hours"] = *upd.EstimatedHours
	}
	if upd.ActualHours != nil {
		set["actual_hours"] = *upd.ActualHours
	}
	if upd.Labels != nil {
		labels := *upd.Labels
		if labels == nil {
			labels = []string{}
		}
		set["labels"] = labels
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return s.findAndModify(ctx, id, update)
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func listFilter(q repo.ListQuery) bson.M {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Priority != "" {
		filter["priority"] = q.Priority
	}
	if q.Type != "" {
		filter["type"] = q.Type
	}
	if q.AssigneeID != nil {
		filter["assignee_id"] = *q.AssigneeID
	}
	switch {
	case q.ProjectID != nil && q.ProjectIn != nil:
		filter["$and"] = bson.A{
			bson.M{"project_id": *q.ProjectID},
			bson.M{"project_id": bson.M{"$in": q.ProjectIn}},
		}
	case q.ProjectID != nil:
		filter["project_id"] = *q.ProjectID
	case q.ProjectIn != nil:
		filter["project_id"] = bson.M{"$in": q.ProjectIn}
	}
	return search.Into(filter, q.Search, "title", "description")
}

// List returns one page of tasks, newest first.
func (s *Store) List(ctx context.Context, q repo.ListQuery) (repo.Page[models.Task], error) {
	filter := listFilter(q)
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return repo.Page[models.Task]{}, err
	}

	cur, err := s.c.Find(ctx, filter, paging.ApplyToFind(options.Find(), q.Offset, q.Limit))
	if err != nil {
		return repo.Page[models.Task]{}, err
	}
	defer cur.Close(ctx)

	items := []models.Task{}
	if err := cur.All(ctx, &items); err != nil {
		return repo.Page[models.Task]{}, err
	}
	return repo.Page[models.Task]{Items: items, Total: total}, nil
}

// AppendComment pushes c onto the task's comment list.
func (s *Store) AppendComment(ctx context.Context, taskID primitive.ObjectID, c models.Comment) (models.Task, error) {
	return s.findAndModify(ctx, taskID, bson.M{
		"$push": bson.M{"comments": c},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ClearAssignee unassigns userID from every task. updated_at is left alone.
func (s *Store) ClearAssignee(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"assignee_id": userID},
		bson.M{"$set": bson.M{"assignee_id": nil}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ReassignReporter moves every task reported by from to to.
func (s *Store) ReassignReporter(ctx context.Context, from, to primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"reporter_id": from},
		bson.M{"$set": bson.M{"reporter_id": to}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) Count(ctx context.Context, c repo.TaskCount) (int64, error) {
	filter := bson.M{}
	if c.Status != "" {
		filter["status"] = c.Status
	}
	if c.OverdueAt != nil {
		filter["due_date"] = bson.M{"$lt": *c.OverdueAt}
		if c.Status == "" {
			filter["status"] = bson.M{"$ne": models.TaskDone}
		}
	}
	return s.c.CountDocuments(ctx, filter)
}
