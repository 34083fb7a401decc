// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
The unique indexes here are what make email and project-key uniqueness hold
under concurrent writers.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureProjects(ctx, db); err != nil {
		problems = append(problems, "projects: "+err.Error())
	}
	if err := ensureTasks(ctx, db); err != nil {
		problems = append(problems, "tasks: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// sameBoolPtr treats nil as false.
func sameBoolPtr(a, b *bool) bool {
	return (a != nil && *a) == (b != nil && *b)
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

// duplicateFinders gives operators a query that lists the rows blocking a
// unique index.
var duplicateFinders = map[string]string{
	"users":    `db.users.aggregate([{ $group: { _id: "$email", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
	"projects": `db.projects.aggregate([{ $group: { _id: "$key", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
}

func createFailure(coll *mongo.Collection, name string, unique bool, err error) string {
	if unique && isDuplicateKeyErr(err) {
		helper := ""
		if q, ok := duplicateFinders[coll.Name()]; ok {
			helper = "; duplicates exist. Example finder:\n" + q
		}
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s", coll.Name(), name, helper)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops ex and creates m in its place.
func recreate(ctx context.Context, coll *mongo.Collection, ex existingIndex, m mongo.IndexModel, name string, unique bool) error {
	if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
		return fmt.Errorf("%s(%s): drop failed: %w", coll.Name(), name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		return errors.New(createFailure(coll, name, unique, err))
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		unique := desiredUnique != nil && *desiredUnique
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique))
		log.Info("ensuring index")

		if ex, ok := listExisting(ctx, coll)[desiredSig]; ok {
			switch {
			case !sameBoolPtr(desiredUnique, ex.Unique):
				// Options mismatch (e.g., upgrading to unique).
				if err := recreate(ctx, coll, ex, m, desiredName, unique); err != nil {
					errs = append(errs, err.Error())
					continue
				}
				log.Info("index dropped and recreated", zap.Duration("took", time.Since(start)))
			case desiredName != "" && ex.Name != desiredName:
				log.Info("renaming index to align with desired name", zap.String("from", ex.Name))
				if err := recreate(ctx, coll, ex, m, desiredName, unique); err != nil {
					errs = append(errs, err.Error())
					continue
				}
				log.Info("index renamed", zap.Duration("took", time.Since(start)))
			default:
				log.Info("reusing existing index", zap.Duration("took", time.Since(start)))
			}
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err == nil {
			log.Info("index ensured",
				zap.String("created_name", created),
				zap.Duration("took", time.Since(start)))
			continue
		}
		if isOptionsConflictErr(err) {
			if ex, ok := listExisting(ctx, coll)[desiredSig]; ok {
				if sameBoolPtr(desiredUnique, ex.Unique) {
					log.Info("reusing existing index (post-conflict)", zap.String("existing", ex.Name))
					continue
				}
				if rerr := recreate(ctx, coll, ex, m, desiredName, unique); rerr != nil {
					errs = append(errs, rerr.Error())
					continue
				}
				log.Info("index dropped and recreated (post-conflict)", zap.Duration("took", time.Since(start)))
				continue
			}
		}
		log.Warn("index ensure failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		errs = append(errs, createFailure(coll, desiredName, unique, err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Emails are stored lowercased, so this is case-insensitive uniqueness.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Admin user list: role filter, newest first.
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_users_role_created"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_users_created"),
		},
	})
}

func ensureProjects(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("projects")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_projects_key"),
		},
		// Member-scoped listings and the user-delete membership sweep.
		{
			Keys:    bson.D{{Key: "members.user_id", Value: 1}},
			Options: options.Index().SetName("idx_projects_members_user"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("idx_projects_owner"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_projects_status_created"),
		},
	})
}

func ensureTasks(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("tasks")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Task lists by project, newest first; also serves the project-delete cascade.
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_tasks_project_created"),
		},
		{
			Keys:    bson.D{{Key: "assignee_id", Value: 1}},
			Options: options.Index().SetName("idx_tasks_assignee"),
		},
		{
			Keys:    bson.D{{Key: "reporter_id", Value: 1}},
			Options: options.Index().SetName("idx_tasks_reporter"),
		},
		// Dashboard counts: completed and overdue.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}},
			Options: options.Index().SetName("idx_tasks_status_due"),
		},
	})
}
