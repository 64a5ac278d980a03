package bpmdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is the set of operations the seeding commands run against the
// BPM schema. *Store implements it directly and hands a transactional
// implementation to WithTx callbacks.
type Repository interface {
	GetOrCreateGroup(ctx context.Context, name string) (Group, bool, error)
	GetOrCreateUser(ctx context.Context, params UserParams) (User, bool, error)
	AddUserToGroup(ctx context.Context, userID, groupID int64) error
	UserGroups(ctx context.Context, userID int64) ([]Group, error)

	GetUser(ctx context.Context, id int64) (User, error)
	GetGroup(ctx context.Context, id int64) (Group, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	GetBusinessProcess(ctx context.Context, id int64) (BusinessProcess, error)
	GetEntityType(ctx context.Context, id int64) (EntityType, error)

	SetTaskResponsible(ctx context.Context, taskID, userID int64) error
	SetTaskResponsibleGroups(ctx context.Context, taskID int64, groupIDs []int64) error
	TaskResponsibleGroups(ctx context.Context, taskID int64) ([]Group, error)

	EntityTypesByIDs(ctx context.Context, ids []int64) ([]EntityType, error)
	SetProcessEntityTypes(ctx context.Context, processID int64, entityTypeIDs []int64) error
	ProcessEntityTypes(ctx context.Context, processID int64) ([]EntityType, error)
	SetTaskReadableEntityTypes(ctx context.Context, taskID int64, entityTypeIDs []int64) error
	SetTaskEditableEntityTypes(ctx context.Context, taskID int64, entityTypeIDs []int64) error
	TaskEntityTypes(ctx context.Context, taskID int64) (readable, editable []EntityType, err error)

	DeleteStartConditions(ctx context.Context, taskID int64) (int64, error)
	CreateStartCondition(ctx context.Context, taskID int64, tree ConditionTree) (StartCondition, error)
	StartConditions(ctx context.Context, taskID int64) ([]StartCondition, error)
}

// Store is a handle on a BPM app database.
type Store struct {
	*queries
	db   *sql.DB
	path string
}

// Option configures Open.
type Option func(*Store)

// WithPasswordIterations overrides the PBKDF2 work factor (primarily for tests).
func WithPasswordIterations(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.queries.iterations = n
		}
	}
}

// Open connects to the SQLite database at path and checks the connection.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database %s: %w", path, err)
	}

	s := &Store{
		queries: &queries{q: db, iterations: DefaultPasswordIterations},
		db:      db,
		path:    path,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func dsn(path string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + params.Encode()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back when it returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(Repository) error) error {
	return s.inTx(ctx, func(q *queries) error {
		return fn(q)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(s.queries.with(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ Repository = (*Store)(nil)
