package bpmdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eugenenazirov/bpmctl/internal/process"
)

// ImportTemplate writes a process template into the database, keeping the ids
// of the process, its tasks and its document types. Existing rows with the
// same ids are updated, so the import can be repeated.
func (s *Store) ImportTemplate(ctx context.Context, p process.Process) error {
	return s.inTx(ctx, func(q *queries) error {
		if _, err := q.q.ExecContext(ctx, `INSERT INTO processes_businessprocess (id, name, description)
			VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, description = excluded.description`,
			p.ID, p.Name, p.Description); err != nil {
			return fmt.Errorf("upsert business process %d: %w", p.ID, err)
		}

		for _, t := range p.Tasks {
			if _, err := q.q.ExecContext(ctx, `INSERT INTO processes_task (id, business_process_id, name, "order", description)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET business_process_id = excluded.business_process_id,
					name = excluded.name, "order" = excluded."order", description = excluded.description`,
				t.ID, p.ID, t.Name, t.Order, t.Description); err != nil {
				return fmt.Errorf("upsert task %d: %w", t.ID, err)
			}
		}

		for _, dt := range p.DocumentTypes {
			fields, err := json.Marshal(dt.Fields)
			if err != nil {
				return fmt.Errorf("encode fields of entity type %d: %w", dt.ID, err)
			}
			if _, err := q.q.ExecContext(ctx, `INSERT INTO processes_entitytype (id, name, fields)
				VALUES (?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET name = excluded.name, fields = excluded.fields`,
				dt.ID, dt.Name, string(fields)); err != nil {
				return fmt.Errorf("upsert entity type %d: %w", dt.ID, err)
			}
		}
		return nil
	})
}

// EnsureAdmin creates a superuser with an unusable password when no user
// called username exists. A fresh BPM database always starts with one, which
// is why seeded users begin at id 2.
func (s *Store) EnsureAdmin(ctx context.Context, username string) (User, bool, error) {
	return s.GetOrCreateUser(ctx, UserParams{Username: username, IsSuperuser: true})
}
