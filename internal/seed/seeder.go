package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/bpmctl/internal/bpmdb"
	"github.com/eugenenazirov/bpmctl/internal/render"
)

// ErrProcessMissing is returned by SetupProcess when the business process of
// the plan does not exist.
var ErrProcessMissing = errors.New("business process not found")

// Store is the database the seeder writes to.
type Store interface {
	bpmdb.Repository
	WithTx(ctx context.Context, fn func(bpmdb.Repository) error) error
}

// Seeder runs the seeding steps and prints a report of each one.
type Seeder struct {
	store   Store
	printer *render.Printer
	logger  *zap.Logger
}

// NewSeeder returns a Seeder. A nil logger is replaced by a no-op logger.
func NewSeeder(store Store, printer *render.Printer, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{store: store, printer: printer, logger: logger}
}

// GroupOutcome is a group handled by CreateUsersAndGroups.
type GroupOutcome struct {
	Group   bpmdb.Group
	Created bool
}

// UserOutcome is a user handled by CreateUsersAndGroups.
type UserOutcome struct {
	User    bpmdb.User
	Created bool
	Groups  []bpmdb.Group
}

// UsersResult is the outcome of CreateUsersAndGroups.
type UsersResult struct {
	Groups []GroupOutcome
	Users  []UserOutcome
}

// CreateUsersAndGroups gets or creates every group and user of the plan and
// adds each user to its group. Everything happens in one transaction.
func (s *Seeder) CreateUsersAndGroups(ctx context.Context, plan Plan) (UsersResult, error) {
	var result UsersResult
	p := s.printer

	err := s.store.WithTx(ctx, func(repo bpmdb.Repository) error {
		result = UsersResult{}
		groups := make(map[string]bpmdb.Group, len(plan.Groups))

		p.Line("Creating groups (roles)...")
		for _, gp := range plan.Groups {
			g, created, err := repo.GetOrCreateGroup(ctx, gp.Name)
			if err != nil {
				return err
			}
			if created {
				p.OK("Created group: %s (ID: %d)", g.Name, g.ID)
			} else {
				p.Skip("Group already exists: %s (ID: %d)", g.Name, g.ID)
			}
			groups[gp.Name] = g
			result.Groups = append(result.Groups, GroupOutcome{Group: g, Created: created})
		}

		p.Blank()
		p.Line("Creating users...")
		for _, up := range plan.Users {
			u, created, err := repo.GetOrCreateUser(ctx, bpmdb.UserParams{
				Username:  up.Username,
				Email:     up.Email,
				FirstName: up.FirstName,
				LastName:  up.LastName,
				Password:  up.Password,
			})
			if err != nil {
				return err
			}
			if created {
				p.OK("Created user: %s (ID: %d)", u.Username, u.ID)
			} else {
				p.Skip("User already exists: %s (ID: %d)", u.Username, u.ID)
			}

			if up.Group != "" {
				g, ok := groups[up.Group]
				if !ok {
					return fmt.Errorf("user %s: group %q is not part of the plan", up.Username, up.Group)
				}
				if err := repo.AddUserToGroup(ctx, u.ID, g.ID); err != nil {
					return err
				}
				p.Line("  → User %s added to group '%s'", u.Username, g.Name)
			}

			memberOf, err := repo.UserGroups(ctx, u.ID)
			if err != nil {
				return err
			}
			result.Users = append(result.Users, UserOutcome{User: u, Created: created, Groups: memberOf})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("creating users and groups failed", zap.Error(err))
		return UsersResult{}, err
	}

	s.logger.Info("users and groups ready",
		zap.Int("groups", len(result.Groups)),
		zap.Int("users", len(result.Users)),
	)
	s.printUsersResult(plan, result)
	return result, nil
}

func (s *Seeder) printUsersResult(plan Plan, result UsersResult) {
	p := s.printer

	p.Section("RESULTS:", render.NarrowRule)
	p.Blank()
	p.Line("Groups (roles):")
	for _, g := range result.Groups {
		p.Line("  - %s (ID: %d)", g.Group.Name, g.Group.ID)
	}
	p.Blank()
	p.Line("Users:")
	for _, u := range result.Users {
		p.Line("  - %s (ID: %d, Groups: %s)", u.User.Username, u.User.ID, groupNames(u.Groups))
	}

	groups := make(map[string]bpmdb.Group, len(result.Groups))
	for _, g := range result.Groups {
		groups[g.Group.Name] = g.Group
	}

	p.Section("INFORMATION FOR ASSIGNING RESPONSIBLES:", render.NarrowRule)
	for i, up := range plan.Users {
		if up.ForTask == "" {
			continue
		}
		u := result.Users[i].User
		p.Blank()
		p.Line("For task '%s':", up.ForTask)
		p.Line("  - User: %d (%s)", u.ID, u.Username)
		if g, ok := groups[up.Group]; ok {
			p.Line("  - Group: %d (%s)", g.ID, g.Name)
		}
	}
}

// AssignmentOutcome is one responsible assignment. Err is set when the task,
// user or group could not be found.
type AssignmentOutcome struct {
	TaskID int64
	Task   bpmdb.Task
	User   bpmdb.User
	Group  bpmdb.Group
	Err    error
}

// TaskResponsibles is the state of a task read back after assignment.
type TaskResponsibles struct {
	TaskID   int64
	TaskName string
	Found    bool
	// User is nil when the task has no responsible user.
	User   *bpmdb.User
	Groups []bpmdb.Group
}

// ResponsiblesResult is the outcome of AssignResponsibles.
type ResponsiblesResult struct {
	Assignments []AssignmentOutcome
	Verified    []TaskResponsibles
}

// Failed counts assignments that were skipped.
func (r ResponsiblesResult) Failed() int {
	n := 0
	for _, a := range r.Assignments {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// AssignResponsibles sets the responsible user and group of each task in the
// plan. A missing task, user or group is reported and the next assignment is
// processed. A verification pass then prints what each task ended up with.
func (s *Seeder) AssignResponsibles(ctx context.Context, plan Plan) (ResponsiblesResult, error) {
	var result ResponsiblesResult
	p := s.printer

	for _, rp := range plan.Responsibles {
		outcome, err := s.assign(ctx, rp)
		if err != nil && !errors.Is(err, bpmdb.ErrNotFound) {
			return result, err
		}
		result.Assignments = append(result.Assignments, outcome)

		if outcome.Err != nil {
			s.logger.Warn("responsible assignment skipped",
				zap.Int64("task_id", rp.TaskID),
				zap.Error(outcome.Err),
			)
			p.Fail("Error: %s", capitalize(outcome.Err.Error()))
			continue
		}
		p.OK("Assigned responsibles for task '%s':", outcome.Task.Name)
		p.Line("  - User: %s (ID: %d)", outcome.User.Username, outcome.User.ID)
		p.Line("  - Group: %s (ID: %d)", outcome.Group.Name, outcome.Group.ID)
	}

	p.Section("Checking assigned responsibles:", render.NarrowRule)
	for _, rp := range plan.Responsibles {
		v, err := s.verify(ctx, rp)
		if err != nil {
			return result, err
		}
		result.Verified = append(result.Verified, v)

		if !v.Found {
			p.Line("Task with ID %d not found", rp.TaskID)
			continue
		}
		p.Blank()
		p.Line("Task: %s (ID: %d)", v.TaskName, v.TaskID)
		if v.User != nil {
			p.Line("  Responsible user: %s (ID: %d)", v.User.Username, v.User.ID)
		} else {
			p.Line("  Responsible user: not assigned")
		}
		if len(v.Groups) > 0 {
			p.Line("  Responsible groups: %s", groupNames(v.Groups))
		} else {
			p.Line("  Responsible groups: not assigned")
		}
	}

	s.logger.Info("responsibles assigned",
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("failed", result.Failed()),
	)
	return result, nil
}

// assign runs one assignment in its own transaction. A not-found error is
// recorded on the outcome and also returned so the caller can tell it apart
// from database failures.
func (s *Seeder) assign(ctx context.Context, rp ResponsiblePlan) (AssignmentOutcome, error) {
	outcome := AssignmentOutcome{TaskID: rp.TaskID}

	err := s.store.WithTx(ctx, func(repo bpmdb.Repository) error {
		var err error
		if outcome.Task, err = repo.GetTask(ctx, rp.TaskID); err != nil {
			return err
		}
		if outcome.User, err = repo.GetUser(ctx, rp.UserID); err != nil {
			return err
		}
		if outcome.Group, err = repo.GetGroup(ctx, rp.GroupID); err != nil {
			return err
		}
		if err := repo.SetTaskResponsible(ctx, rp.TaskID, rp.UserID); err != nil {
			return err
		}
		return repo.SetTaskResponsibleGroups(ctx, rp.TaskID, []int64{rp.GroupID})
	})
	if errors.Is(err, bpmdb.ErrNotFound) {
		outcome.Err = err
	}
	return outcome, err
}

func (s *Seeder) verify(ctx context.Context, rp ResponsiblePlan) (TaskResponsibles, error) {
	v := TaskResponsibles{TaskID: rp.TaskID, TaskName: rp.TaskName}

	task, err := s.store.GetTask(ctx, rp.TaskID)
	if errors.Is(err, bpmdb.ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	v.Found = true
	if v.TaskName == "" {
		v.TaskName = task.Name
	}

	if task.ResponsibleID != nil {
		u, err := s.store.GetUser(ctx, *task.ResponsibleID)
		if err != nil {
			return v, err
		}
		v.User = &u
	}

	if v.Groups, err = s.store.TaskResponsibleGroups(ctx, rp.TaskID); err != nil {
		return v, err
	}
	return v, nil
}

// StepOutcome is a per-task step of SetupProcess. Err is set when the task or
// one of its document types could not be found.
type StepOutcome struct {
	TaskID   int64
	TaskName string
	Err      error
}

// ProcessResult is the outcome of SetupProcess.
type ProcessResult struct {
	Process           bpmdb.BusinessProcess
	LinkedEntityTypes int
	Documents         []StepOutcome
	StartConditions   []StepOutcome
}

// SetupProcess attaches document types to the business process and its
// tasks and replaces the task start conditions. A missing business process
// aborts with ErrProcessMissing. Missing tasks and document types are
// reported and skipped.
func (s *Seeder) SetupProcess(ctx context.Context, plan Plan) (ProcessResult, error) {
	var result ProcessResult
	p := s.printer
	pp := plan.Process

	bp, err := s.store.GetBusinessProcess(ctx, pp.ID)
	if errors.Is(err, bpmdb.ErrNotFound) {
		p.Fail("Error: business process with ID %d not found", pp.ID)
		return result, fmt.Errorf("%w: ID %d", ErrProcessMissing, pp.ID)
	}
	if err != nil {
		return result, err
	}
	result.Process = bp
	p.Line("Found business process: %s", bp.Name)

	entityTypes, err := s.store.EntityTypesByIDs(ctx, pp.EntityTypes)
	if err != nil {
		return result, err
	}
	ids := make([]int64, len(entityTypes))
	for i, et := range entityTypes {
		ids[i] = et.ID
	}
	if err := s.store.SetProcessEntityTypes(ctx, bp.ID, ids); err != nil {
		return result, err
	}
	result.LinkedEntityTypes = len(ids)
	p.OK("Linked %d document types to the business process", len(ids))

	for _, tp := range pp.Tasks {
		outcome, err := s.bindDocuments(ctx, tp)
		if err != nil && !errors.Is(err, bpmdb.ErrNotFound) {
			return result, err
		}
		result.Documents = append(result.Documents, outcome)
		if outcome.Err != nil {
			p.Fail("Error: %s", capitalize(outcome.Err.Error()))
			continue
		}
		p.OK("Linked documents to task '%s'", outcome.TaskName)
	}

	for _, cp := range pp.StartConditions {
		outcome, err := s.replaceStartCondition(ctx, cp)
		if err != nil && !errors.Is(err, bpmdb.ErrNotFound) {
			return result, err
		}
		result.StartConditions = append(result.StartConditions, outcome)
		if outcome.Err != nil {
			p.Fail("Error: %s", capitalize(outcome.Err.Error()))
			continue
		}
		p.OK("Created start condition for task '%s'", outcome.TaskName)
	}

	s.logger.Info("business process configured",
		zap.Int64("process_id", bp.ID),
		zap.Int("entity_types", result.LinkedEntityTypes),
	)

	p.Blank()
	p.OK("Business process setup complete!")
	p.Line("Business process '%s' is ready to use.", bp.Name)
	return result, nil
}

func (s *Seeder) bindDocuments(ctx context.Context, tp TaskDocumentsPlan) (StepOutcome, error) {
	outcome := StepOutcome{TaskID: tp.TaskID}

	err := s.store.WithTx(ctx, func(repo bpmdb.Repository) error {
		task, err := repo.GetTask(ctx, tp.TaskID)
		if err != nil {
			return err
		}
		outcome.TaskName = task.Name

		for _, id := range append(append([]int64{}, tp.Readable...), tp.Editable...) {
			if _, err := repo.GetEntityType(ctx, id); err != nil {
				return err
			}
		}
		if len(tp.Readable) > 0 {
			if err := repo.SetTaskReadableEntityTypes(ctx, tp.TaskID, tp.Readable); err != nil {
				return err
			}
		}
		if len(tp.Editable) > 0 {
			if err := repo.SetTaskEditableEntityTypes(ctx, tp.TaskID, tp.Editable); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, bpmdb.ErrNotFound) {
		outcome.Err = err
	}
	return outcome, err
}

func (s *Seeder) replaceStartCondition(ctx context.Context, cp StartConditionPlan) (StepOutcome, error) {
	outcome := StepOutcome{TaskID: cp.TaskID}

	err := s.store.WithTx(ctx, func(repo bpmdb.Repository) error {
		task, err := repo.GetTask(ctx, cp.TaskID)
		if err != nil {
			return err
		}
		outcome.TaskName = task.Name

		removed, err := repo.DeleteStartConditions(ctx, cp.TaskID)
		if err != nil {
			return err
		}
		if removed > 0 {
			s.logger.Debug("start conditions removed", zap.Int64("task_id", cp.TaskID), zap.Int64("count", removed))
		}
		_, err = repo.CreateStartCondition(ctx, cp.TaskID, cp.Condition)
		return err
	})
	if errors.Is(err, bpmdb.ErrNotFound) {
		outcome.Err = err
	}
	return outcome, err
}

func groupNames(groups []bpmdb.Group) string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return strings.Join(names, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
