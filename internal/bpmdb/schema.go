package bpmdb

import (
	"context"
	"fmt"
)

// Many-to-many link tables rewritten by replaceLinks.
const (
	tableTaskResponsibleGroup = "processes_task_responsible_groups"
	tableProcessEntityTypes   = "processes_businessprocess_entity_types"
	tableTaskReadableTypes    = "processes_task_readable_entity_types"
	tableTaskEditableTypes    = "processes_task_editable_entity_types"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS auth_group (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(150) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS auth_user (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		password VARCHAR(128) NOT NULL,
		last_login DATETIME NULL,
		is_superuser BOOL NOT NULL DEFAULT 0,
		username VARCHAR(150) NOT NULL UNIQUE,
		first_name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		email VARCHAR(254) NOT NULL DEFAULT '',
		is_staff BOOL NOT NULL DEFAULT 0,
		is_active BOOL NOT NULL DEFAULT 1,
		date_joined DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auth_user_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES auth_user (id),
		group_id INTEGER NOT NULL REFERENCES auth_group (id),
		UNIQUE (user_id, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS processes_businessprocess (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS processes_entitytype (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(255) NOT NULL,
		fields TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS processes_task (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		business_process_id INTEGER NOT NULL REFERENCES processes_businessprocess (id),
		name VARCHAR(255) NOT NULL,
		"order" INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		responsible_id INTEGER NULL REFERENCES auth_user (id)
	)`,
	`CREATE TABLE IF NOT EXISTS processes_task_responsible_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL REFERENCES processes_task (id),
		group_id INTEGER NOT NULL REFERENCES auth_group (id),
		UNIQUE (task_id, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS processes_businessprocess_entity_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		businessprocess_id INTEGER NOT NULL REFERENCES processes_businessprocess (id),
		entitytype_id INTEGER NOT NULL REFERENCES processes_entitytype (id),
		UNIQUE (businessprocess_id, entitytype_id)
	)`,
	`CREATE TABLE IF NOT EXISTS processes_task_readable_entity_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL REFERENCES processes_task (id),
		entitytype_id INTEGER NOT NULL REFERENCES processes_entitytype (id),
		UNIQUE (task_id, entitytype_id)
	)`,
	`CREATE TABLE IF NOT EXISTS processes_task_editable_entity_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL REFERENCES processes_task (id),
		entitytype_id INTEGER NOT NULL REFERENCES processes_entitytype (id),
		UNIQUE (task_id, entitytype_id)
	)`,
	`CREATE TABLE IF NOT EXISTS processes_taskstartcondition (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL REFERENCES processes_task (id),
		condition_tree TEXT NOT NULL
	)`,
}

// EnsureSchema creates the BPM tables that do not exist yet. The BPM app owns
// the schema; this is for fresh development databases and tests.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
