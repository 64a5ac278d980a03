// Package bpmdb reads and writes the BPM app's database tables: users, groups,
// business processes, tasks, entity (document) types and task start
// conditions. Table and column names follow the web framework that owns the
// schema, so the package can seed the app's own SQLite database.
//
// Primary-key lookups that find nothing return a *NotFoundError, which
// matches ErrNotFound. Multi-step changes run inside Store.WithTx.
package bpmdb
