package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/metrics"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Step names used by the delete plans.
const (
	stepDeleteTasks       = "delete_tasks"
	stepDeleteProject     = "delete_project"
	stepSweepTasks        = "sweep_tasks"
	stepTransferOwnership = "transfer_ownership"
	stepPullMemberships   = "pull_memberships"
	stepClearAssignee     = "clear_assignee"
	stepReassignReporter  = "reassign_reporter"
	stepDeleteUser        = "delete_user"
	stepSweepReferences   = "sweep_references"
)

// Step is one store call in a cascade. Run returns the number of
// documents it touched.
type Step struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Plan is an ordered list of steps run one after another. There is no
// rollback: a failure leaves the earlier steps applied.
type Plan struct {
	Name  string
	Steps []Step
}

// StepNames lists the plan's steps in order.
func (p Plan) StepNames() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

// PartialCascadeError reports a plan that stopped part way.
type PartialCascadeError struct {
	Plan      string
	Completed []string
	Failed    string
	Err       error
}

func (e *PartialCascadeError) Error() string {
	return fmt.Sprintf("cascade %s stopped at %s after [%s]: %v",
		e.Plan, e.Failed, strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialCascadeError) Unwrap() error { return e.Err }

// CascadeResult maps step names to the documents each one touched.
type CascadeResult map[string]int64

// Count returns the documents touched by step.
func (r CascadeResult) Count(step string) int64 { return r[step] }

// Execute runs every step in order and stops at the first error.
func (p Plan) Execute(ctx context.Context, log *zap.Logger) (CascadeResult, error) {
	res := CascadeResult{}
	completed := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		sctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), log, p.Name+"/"+s.Name)
		n, err := s.Run(sctx)
		cancel()
		if err != nil {
			metrics.CascadeStepsTotal.WithLabelValues(p.Name, s.Name, "error").Inc()
			return res, &PartialCascadeError{Plan: p.Name, Completed: completed, Failed: s.Name, Err: err}
		}
		metrics.CascadeStepsTotal.WithLabelValues(p.Name, s.Name, "ok").Inc()
		res[s.Name] = n
		completed = append(completed, s.Name)
	}
	return res, nil
}

// projectDeletePlan removes a project's tasks, then the project, then
// sweeps for tasks created while the first step ran. A task inserted after
// the project is gone is removed by CreateTask itself.
func projectDeletePlan(tasks repo.Tasks, projects repo.Projects, projectID primitive.ObjectID) Plan {
	deleteTasks := func(ctx context.Context) (int64, error) {
		return tasks.DeleteByProject(ctx, projectID)
	}
	return Plan{
		Name: "project_delete",
		Steps: []Step{
			{Name: stepDeleteTasks, Run: deleteTasks},
			{Name: stepDeleteProject, Run: func(ctx context.Context) (int64, error) {
				return projects.Delete(ctx, projectID)
			}},
			{Name: stepSweepTasks, Run: deleteTasks},
		},
	}
}

// userDeletePlan hands the user's projects and reported tasks to
// successor, detaches them from every other project and task, removes the
// user, and finally repeats the detaching steps to catch references
// written while the plan ran.
func userDeletePlan(users repo.Users, projects repo.Projects, tasks repo.Tasks, userID, successor primitive.ObjectID) Plan {
	detach := []Step{
		{Name: stepTransferOwnership, Run: func(ctx context.Context) (int64, error) {
			return projects.TransferOwnership(ctx, userID, successor)
		}},
		{Name: stepPullMemberships, Run: func(ctx context.Context) (int64, error) {
			return projects.PullMember(ctx, userID)
		}},
		{Name: stepClearAssignee, Run: func(ctx context.Context) (int64, error) {
			return tasks.ClearAssignee(ctx, userID)
		}},
		{Name: stepReassignReporter, Run: func(ctx context.Context) (int64, error) {
			return tasks.ReassignReporter(ctx, userID, successor)
		}},
	}
	sweep := Step{Name: stepSweepReferences, Run: func(ctx context.Context) (int64, error) {
		var total int64
		for _, s := range detach {
			n, err := s.Run(ctx)
			if err != nil {
				return total, fmt.Errorf("%s: %w", s.Name, err)
			}
			total += n
		}
		return total, nil
	}}

	steps := append([]Step(nil), detach...)
	steps = append(steps,
		Step{Name: stepDeleteUser, Run: func(ctx context.Context) (int64, error) {
			return users.Delete(ctx, userID)
		}},
		sweep,
	)
	return Plan{Name: "user_delete", Steps: steps}
}

// runPlan executes plan and audits a partial failure. The caller sees an
// Unavailable error. Every step is safe to repeat, so retrying the same
// delete finishes the job, unless only the final sweep failed: the target
// is already gone then and a retry reports NotFound.
func (c *Coordinator) runPlan(ctx context.Context, caller models.User, plan Plan, kind string, id primitive.ObjectID) (CascadeResult, error) {
	res, err := plan.Execute(ctx, c.log)
	if err == nil {
		return res, nil
	}
	pe := err.(*PartialCascadeError)
	c.log.Error("cascade stopped",
		zap.String("plan", pe.Plan),
		zap.Strings("completed", pe.Completed),
		zap.String("failed", pe.Failed),
		zap.Error(pe.Err))
	c.audit.CascadePartial(ctx, caller.ID, kind, id, pe.Completed, pe.Failed, pe.Err)
	return res, apperr.Wrap(apperr.Unavailable, "the delete did not finish, retry to complete it", pe)
}
