package bpmdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type queries struct {
	q          querier
	iterations int
}

func (r *queries) with(q querier) *queries {
	return &queries{q: q, iterations: r.iterations}
}

// GetOrCreateGroup returns the group called name, creating it when absent.
// The boolean reports whether the group was created.
func (r *queries) GetOrCreateGroup(ctx context.Context, name string) (Group, bool, error) {
	g := Group{Name: name}
	err := r.q.QueryRowContext(ctx, `SELECT id FROM auth_group WHERE name = ?`, name).Scan(&g.ID)
	switch {
	case err == nil:
		return g, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Group{}, false, fmt.Errorf("select group %q: %w", name, err)
	}

	res, err := r.q.ExecContext(ctx, `INSERT INTO auth_group (name) VALUES (?)`, name)
	if err != nil {
		return Group{}, false, fmt.Errorf("insert group %q: %w", name, err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return Group{}, false, fmt.Errorf("insert group %q: %w", name, err)
	}
	return g, true, nil
}

// GetOrCreateUser returns the user with params.Username, creating it with the
// remaining fields when absent. The password is hashed only on creation.
func (r *queries) GetOrCreateUser(ctx context.Context, params UserParams) (User, bool, error) {
	u, err := r.userBy(ctx, "username", params.Username)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, false, fmt.Errorf("select user %q: %w", params.Username, err)
	}

	password, err := r.encodePassword(params.Password)
	if err != nil {
		return User{}, false, err
	}

	u = User{
		Username:    params.Username,
		Email:       params.Email,
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		Password:    password,
		IsSuperuser: params.IsSuperuser,
		IsStaff:     params.IsSuperuser,
		IsActive:    true,
		DateJoined:  time.Now().UTC().Truncate(time.Second),
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO auth_user
		(password, is_superuser, username, first_name, last_name, email, is_staff, is_active, date_joined)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Password, u.IsSuperuser, u.Username, u.FirstName, u.LastName, u.Email, u.IsStaff, u.IsActive, u.DateJoined)
	if err != nil {
		return User{}, false, fmt.Errorf("insert user %q: %w", params.Username, err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return User{}, false, fmt.Errorf("insert user %q: %w", params.Username, err)
	}
	return u, true, nil
}

func (r *queries) encodePassword(password string) (string, error) {
	if password == "" {
		return UnusablePassword()
	}
	salt, err := newSalt()
	if err != nil {
		return "", err
	}
	return HashPassword(password, salt, r.iterations), nil
}

// AddUserToGroup adds a membership; existing memberships are left untouched.
func (r *queries) AddUserToGroup(ctx context.Context, userID, groupID int64) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO auth_user_groups (user_id, group_id) VALUES (?, ?)`, userID, groupID)
	if err != nil {
		return fmt.Errorf("add user %d to group %d: %w", userID, groupID, err)
	}
	return nil
}

// UserGroups lists the groups of a user ordered by id.
func (r *queries) UserGroups(ctx context.Context, userID int64) ([]Group, error) {
	return r.groups(ctx, `SELECT g.id, g.name FROM auth_group g
		JOIN auth_user_groups ug ON ug.group_id = g.id
		WHERE ug.user_id = ? ORDER BY g.id`, userID)
}

// GetUser looks a user up by primary key.
func (r *queries) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := r.userBy(ctx, "id", id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, &NotFoundError{Kind: KindUser, ID: id}
	}
	if err != nil {
		return User{}, fmt.Errorf("select user %d: %w", id, err)
	}
	return u, nil
}

func (r *queries) userBy(ctx context.Context, column string, value any) (User, error) {
	var u User
	err := r.q.QueryRowContext(ctx, `SELECT id, username, email, first_name, last_name, password,
		is_superuser, is_staff, is_active, date_joined FROM auth_user WHERE `+column+` = ?`, value).
		Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Password,
			&u.IsSuperuser, &u.IsStaff, &u.IsActive, &u.DateJoined)
	return u, err
}

// GetGroup looks a group up by primary key.
func (r *queries) GetGroup(ctx context.Context, id int64) (Group, error) {
	g := Group{ID: id}
	err := r.q.QueryRowContext(ctx, `SELECT name FROM auth_group WHERE id = ?`, id).Scan(&g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Group{}, &NotFoundError{Kind: KindGroup, ID: id}
	}
	if err != nil {
		return Group{}, fmt.Errorf("select group %d: %w", id, err)
	}
	return g, nil
}

// GetTask looks a task up by primary key.
func (r *queries) GetTask(ctx context.Context, id int64) (Task, error) {
	t := Task{ID: id}
	var responsible sql.NullInt64
	err := r.q.QueryRowContext(ctx, `SELECT business_process_id, name, "order", description, responsible_id
		FROM processes_task WHERE id = ?`, id).
		Scan(&t.BusinessProcessID, &t.Name, &t.Order, &t.Description, &responsible)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, &NotFoundError{Kind: KindTask, ID: id}
	}
	if err != nil {
		return Task{}, fmt.Errorf("select task %d: %w", id, err)
	}
	if responsible.Valid {
		v := responsible.Int64
		t.ResponsibleID = &v
	}
	return t, nil
}

// GetBusinessProcess looks a business process up by primary key.
func (r *queries) GetBusinessProcess(ctx context.Context, id int64) (BusinessProcess, error) {
	bp := BusinessProcess{ID: id}
	err := r.q.QueryRowContext(ctx, `SELECT name, description FROM processes_businessprocess WHERE id = ?`, id).
		Scan(&bp.Name, &bp.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return BusinessProcess{}, &NotFoundError{Kind: KindBusinessProcess, ID: id}
	}
	if err != nil {
		return BusinessProcess{}, fmt.Errorf("select business process %d: %w", id, err)
	}
	return bp, nil
}

// GetEntityType looks an entity type up by primary key.
func (r *queries) GetEntityType(ctx context.Context, id int64) (EntityType, error) {
	et := EntityType{ID: id}
	err := r.q.QueryRowContext(ctx, `SELECT name, fields FROM processes_entitytype WHERE id = ?`, id).
		Scan(&et.Name, &et.Fields)
	if errors.Is(err, sql.ErrNoRows) {
		return EntityType{}, &NotFoundError{Kind: KindEntityType, ID: id}
	}
	if err != nil {
		return EntityType{}, fmt.Errorf("select entity type %d: %w", id, err)
	}
	return et, nil
}

// SetTaskResponsible makes userID the responsible user of a task.
func (r *queries) SetTaskResponsible(ctx context.Context, taskID, userID int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE processes_task SET responsible_id = ? WHERE id = ?`, userID, taskID)
	if err != nil {
		return fmt.Errorf("set responsible of task %d: %w", taskID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{Kind: KindTask, ID: taskID}
	}
	return nil
}

// SetTaskResponsibleGroups replaces the responsible groups of a task.
func (r *queries) SetTaskResponsibleGroups(ctx context.Context, taskID int64, groupIDs []int64) error {
	return r.replaceLinks(ctx, tableTaskResponsibleGroup, "task_id", "group_id", taskID, groupIDs)
}

// TaskResponsibleGroups lists the responsible groups of a task ordered by id.
func (r *queries) TaskResponsibleGroups(ctx context.Context, taskID int64) ([]Group, error) {
	return r.groups(ctx, `SELECT g.id, g.name FROM auth_group g
		JOIN processes_task_responsible_groups l ON l.group_id = g.id
		WHERE l.task_id = ? ORDER BY g.id`, taskID)
}

// EntityTypesByIDs returns the entity types among ids that exist, ordered by
// id. Unknown ids are skipped.
func (r *queries) EntityTypesByIDs(ctx context.Context, ids []int64) ([]EntityType, error) {
	if len(ids) == 0 {
		return []EntityType{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.entityTypes(ctx, `SELECT id, name, fields FROM processes_entitytype
		WHERE id IN (`+placeholders+`) ORDER BY id`, args...)
}

// SetProcessEntityTypes replaces the document types attached to a process.
func (r *queries) SetProcessEntityTypes(ctx context.Context, processID int64, entityTypeIDs []int64) error {
	return r.replaceLinks(ctx, tableProcessEntityTypes, "businessprocess_id", "entitytype_id", processID, entityTypeIDs)
}

// ProcessEntityTypes lists the document types attached to a process.
func (r *queries) ProcessEntityTypes(ctx context.Context, processID int64) ([]EntityType, error) {
	return r.entityTypes(ctx, `SELECT e.id, e.name, e.fields FROM processes_entitytype e
		JOIN processes_businessprocess_entity_types l ON l.entitytype_id = e.id
		WHERE l.businessprocess_id = ? ORDER BY e.id`, processID)
}

// SetTaskReadableEntityTypes replaces the document types a task may read.
func (r *queries) SetTaskReadableEntityTypes(ctx context.Context, taskID int64, entityTypeIDs []int64) error {
	return r.replaceLinks(ctx, tableTaskReadableTypes, "task_id", "entitytype_id", taskID, entityTypeIDs)
}

// SetTaskEditableEntityTypes replaces the document types a task may edit.
func (r *queries) SetTaskEditableEntityTypes(ctx context.Context, taskID int64, entityTypeIDs []int64) error {
	return r.replaceLinks(ctx, tableTaskEditableTypes, "task_id", "entitytype_id", taskID, entityTypeIDs)
}

// TaskEntityTypes returns the readable and editable document types of a task.
func (r *queries) TaskEntityTypes(ctx context.Context, taskID int64) ([]EntityType, []EntityType, error) {
	readable, err := r.linkedEntityTypes(ctx, tableTaskReadableTypes, taskID)
	if err != nil {
		return nil, nil, err
	}
	editable, err := r.linkedEntityTypes(ctx, tableTaskEditableTypes, taskID)
	if err != nil {
		return nil, nil, err
	}
	return readable, editable, nil
}

func (r *queries) linkedEntityTypes(ctx context.Context, table string, taskID int64) ([]EntityType, error) {
	return r.entityTypes(ctx, `SELECT e.id, e.name, e.fields FROM processes_entitytype e
		JOIN `+table+` l ON l.entitytype_id = e.id
		WHERE l.task_id = ? ORDER BY e.id`, taskID)
}

// DeleteStartConditions removes every start condition of a task and returns
// how many were removed.
func (r *queries) DeleteStartConditions(ctx context.Context, taskID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM processes_taskstartcondition WHERE task_id = ?`, taskID)
	if err != nil {
		return 0, fmt.Errorf("delete start conditions of task %d: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete start conditions of task %d: %w", taskID, err)
	}
	return n, nil
}

// CreateStartCondition stores a new start condition for a task.
func (r *queries) CreateStartCondition(ctx context.Context, taskID int64, tree ConditionTree) (StartCondition, error) {
	raw, err := json.Marshal(tree)
	if err != nil {
		return StartCondition{}, fmt.Errorf("encode condition tree: %w", err)
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO processes_taskstartcondition (task_id, condition_tree) VALUES (?, ?)`, taskID, string(raw))
	if err != nil {
		return StartCondition{}, fmt.Errorf("insert start condition for task %d: %w", taskID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return StartCondition{}, fmt.Errorf("insert start condition for task %d: %w", taskID, err)
	}
	return StartCondition{ID: id, TaskID: taskID, Tree: tree}, nil
}

// StartConditions lists the start conditions of a task ordered by id.
func (r *queries) StartConditions(ctx context.Context, taskID int64) ([]StartCondition, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, condition_tree FROM processes_taskstartcondition WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("select start conditions of task %d: %w", taskID, err)
	}
	defer rows.Close()

	out := []StartCondition{}
	for rows.Next() {
		sc := StartCondition{TaskID: taskID}
		var raw string
		if err := rows.Scan(&sc.ID, &raw); err != nil {
			return nil, fmt.Errorf("scan start condition: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &sc.Tree); err != nil {
			return nil, fmt.Errorf("decode condition tree %d: %w", sc.ID, err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// replaceLinks rewrites a many-to-many table so that ownerID links to
// exactly targetIDs.
func (r *queries) replaceLinks(ctx context.Context, table, ownerCol, targetCol string, ownerID int64, targetIDs []int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+ownerCol+` = ?`, ownerID); err != nil {
		return fmt.Errorf("clear %s for %d: %w", table, ownerID, err)
	}
	for _, id := range targetIDs {
		_, err := r.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (`+ownerCol+`, `+targetCol+`) VALUES (?, ?)`, ownerID, id)
		if err != nil {
			return fmt.Errorf("link %s %d -> %d: %w", table, ownerID, id, err)
		}
	}
	return nil
}

func (r *queries) groups(ctx context.Context, query string, args ...any) ([]Group, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()

	out := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *queries) entityTypes(ctx context.Context, query string, args ...any) ([]EntityType, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select entity types: %w", err)
	}
	defer rows.Close()

	out := []EntityType{}
	for rows.Next() {
		var et EntityType
		if err := rows.Scan(&et.ID, &et.Name, &et.Fields); err != nil {
			return nil, fmt.Errorf("scan entity type: %w", err)
		}
		out = append(out, et)
	}
	return out, rows.Err()
}
