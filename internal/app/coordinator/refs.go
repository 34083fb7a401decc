package coordinator

import (
	"context"
	"errors"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// A write that stores a reference checks the referenced document first and
// writes second, so a delete cascade can run in between. Such writes check
// again afterwards and undo themselves when the target is gone, and the
// delete plans sweep once more after removing their target. A reference
// stored before the target was removed is caught by the sweep; one stored
// after it is caught by the second check.

// usersExist reports whether every non-zero id still names a user.
func (c *Coordinator) usersExist(ctx context.Context, ids ...primitive.ObjectID) (bool, error) {
	uniq := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	if len(uniq) == 0 {
		return true, nil
	}
	sctx, cancel := c.writeCtx(ctx, "confirm users")
	defer cancel()
	found, err := c.users.GetMany(sctx, uniq)
	if err != nil {
		return false, storeErr(err, "user")
	}
	return len(found) == len(uniq), nil
}

func (c *Coordinator) projectExists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	sctx, cancel := c.storeCtx(ctx, "confirm project")
	defer cancel()
	_, err := c.projects.GetByID(sctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr(err, "project")
	}
	return true, nil
}

// undo reverts a write whose reference disappeared while it ran and
// returns result, the error the caller should see.
func (c *Coordinator) undo(ctx context.Context, op string, revert func(context.Context) error, result error) error {
	c.log.Info("referenced document deleted during write; reverting", zap.String("operation", op))
	sctx, cancel := c.writeCtx(ctx, "revert "+op)
	defer cancel()
	if err := revert(sctx); err != nil && !errors.Is(err, repo.ErrNotFound) {
		c.log.Error("revert failed", zap.String("operation", op), zap.Error(err))
		return storeErr(err, op)
	}
	return result
}
