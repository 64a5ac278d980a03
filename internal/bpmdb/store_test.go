package bpmdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eugenenazirov/bpmctl/internal/process"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "bpm.sqlite3"), WithPasswordIterations(1000))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}
	return store
}

func seedTemplate(t *testing.T, store *Store) {
	t.Helper()
	if err := store.ImportTemplate(context.Background(), process.Sample()[0]); err != nil {
		t.Fatalf("ImportTemplate returned error: %v", err)
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema returned error: %v", err)
	}
}

func TestGetOrCreateGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g, created, err := store.GetOrCreateGroup(ctx, "Создатели заявок")
	if err != nil || !created {
		t.Fatalf("expected group to be created, got created=%v err=%v", created, err)
	}

	again, created, err := store.GetOrCreateGroup(ctx, "Создатели заявок")
	if err != nil || created {
		t.Fatalf("expected existing group, got created=%v err=%v", created, err)
	}
	if again.ID != g.ID {
		t.Fatalf("expected same id %d, got %d", g.ID, again.ID)
	}

	byID, err := store.GetGroup(ctx, g.ID)
	if err != nil || byID.Name != g.Name {
		t.Fatalf("GetGroup mismatch: %+v %v", byID, err)
	}
}

func TestGetOrCreateUserHashesPasswordOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	params := UserParams{Username: "creator_user", Email: "creator@example.com", FirstName: "Иван", LastName: "Создатель", Password: "creator123"}
	u, created, err := store.GetOrCreateUser(ctx, params)
	if err != nil || !created {
		t.Fatalf("expected user to be created, got created=%v err=%v", created, err)
	}
	if !CheckPassword("creator123", u.Password) {
		t.Fatalf("stored password does not verify: %s", u.Password)
	}
	if !u.IsActive || u.IsSuperuser {
		t.Fatalf("unexpected flags %+v", u)
	}

	params.Password = "other"
	params.Email = "changed@example.com"
	again, created, err := store.GetOrCreateUser(ctx, params)
	if err != nil || created {
		t.Fatalf("expected existing user, got created=%v err=%v", created, err)
	}
	if again.Password != u.Password || again.Email != "creator@example.com" {
		t.Fatalf("existing user must not be modified: %+v", again)
	}

	loaded, err := store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if loaded.FirstName != "Иван" || loaded.DateJoined.IsZero() {
		t.Fatalf("unexpected loaded user %+v", loaded)
	}
}

func TestEnsureAdminUsesUnusablePassword(t *testing.T) {
	store := newTestStore(t)

	admin, created, err := store.EnsureAdmin(context.Background(), "admin")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got %v %v", created, err)
	}
	if admin.ID != 1 || !admin.IsSuperuser || !admin.IsStaff {
		t.Fatalf("unexpected admin %+v", admin)
	}
	if admin.Password[0] != '!' {
		t.Fatalf("expected unusable password, got %q", admin.Password)
	}
}

func TestGroupsMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u, _, err := store.GetOrCreateUser(ctx, UserParams{Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	g1, _, _ := store.GetOrCreateGroup(ctx, "a")
	g2, _, _ := store.GetOrCreateGroup(ctx, "b")

	for _, g := range []Group{g2, g1, g1} {
		if err := store.AddUserToGroup(ctx, u.ID, g.ID); err != nil {
			t.Fatalf("AddUserToGroup returned error: %v", err)
		}
	}

	got, err := store.UserGroups(ctx, u.ID)
	if err != nil {
		t.Fatalf("UserGroups returned error: %v", err)
	}
	if diff := cmp.Diff([]Group{g1, g2}, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestNotFoundErrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	checks := []struct {
		kind string
		call func() error
	}{
		{KindUser, func() error { _, err := store.GetUser(ctx, 99); return err }},
		{KindGroup, func() error { _, err := store.GetGroup(ctx, 99); return err }},
		{KindTask, func() error { _, err := store.GetTask(ctx, 99); return err }},
		{KindBusinessProcess, func() error { _, err := store.GetBusinessProcess(ctx, 99); return err }},
		{KindEntityType, func() error { _, err := store.GetEntityType(ctx, 99); return err }},
		{KindTask, func() error { return store.SetTaskResponsible(ctx, 99, 1) }},
	}

	for _, c := range checks {
		err := c.call()
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", c.kind, err)
		}
		var nf *NotFoundError
		if !errors.As(err, &nf) || nf.Kind != c.kind || nf.ID != 99 {
			t.Fatalf("%s: unexpected error %v", c.kind, err)
		}
	}
}

func TestImportTemplate(t *testing.T) {
	store := newTestStore(t)
	seedTemplate(t, store)
	seedTemplate(t, store)
	ctx := context.Background()

	bp, err := store.GetBusinessProcess(ctx, 1)
	if err != nil || bp.Name != "Обработка заявки" {
		t.Fatalf("unexpected business process %+v %v", bp, err)
	}

	task, err := store.GetTask(ctx, 2)
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if task.Name != "Рассмотрение заявки" || task.Order != 2 || task.BusinessProcessID != 1 || task.ResponsibleID != nil {
		t.Fatalf("unexpected task %+v", task)
	}

	types, err := store.EntityTypesByIDs(ctx, []int64{3, 1, 42})
	if err != nil {
		t.Fatalf("EntityTypesByIDs returned error: %v", err)
	}
	if len(types) != 2 || types[0].ID != 1 || types[1].ID != 3 {
		t.Fatalf("expected entity types 1 and 3, got %+v", types)
	}

	empty, err := store.EntityTypesByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no entity types, got %v %v", empty, err)
	}
}

func TestResponsibles(t *testing.T) {
	store := newTestStore(t)
	seedTemplate(t, store)
	ctx := context.Background()

	u, _, _ := store.GetOrCreateUser(ctx, UserParams{Username: "reviewer_user", Password: "x"})
	g1, _, _ := store.GetOrCreateGroup(ctx, "one")
	g2, _, _ := store.GetOrCreateGroup(ctx, "two")

	if err := store.SetTaskResponsible(ctx, 2, u.ID); err != nil {
		t.Fatalf("SetTaskResponsible returned error: %v", err)
	}
	if err := store.SetTaskResponsibleGroups(ctx, 2, []int64{g1.ID, g2.ID}); err != nil {
		t.Fatalf("SetTaskResponsibleGroups returned error: %v", err)
	}
	if err := store.SetTaskResponsibleGroups(ctx, 2, []int64{g2.ID}); err != nil {
		t.Fatalf("SetTaskResponsibleGroups returned error: %v", err)
	}

	task, _ := store.GetTask(ctx, 2)
	if task.ResponsibleID == nil || *task.ResponsibleID != u.ID {
		t.Fatalf("expected responsible %d, got %v", u.ID, task.ResponsibleID)
	}
	groups, err := store.TaskResponsibleGroups(ctx, 2)
	if err != nil {
		t.Fatalf("TaskResponsibleGroups returned error: %v", err)
	}
	if diff := cmp.Diff([]Group{g2}, groups); diff != "" {
		t.Fatalf("responsible groups should be replaced (-want +got):\n%s", diff)
	}
}

func TestEntityTypeLinks(t *testing.T) {
	store := newTestStore(t)
	seedTemplate(t, store)
	ctx := context.Background()

	if err := store.SetProcessEntityTypes(ctx, 1, []int64{1, 2, 3}); err != nil {
		t.Fatalf("SetProcessEntityTypes returned error: %v", err)
	}
	linked, err := store.ProcessEntityTypes(ctx, 1)
	if err != nil || len(linked) != 3 {
		t.Fatalf("expected 3 linked entity types, got %d %v", len(linked), err)
	}

	if err := store.SetTaskReadableEntityTypes(ctx, 3, []int64{1, 2}); err != nil {
		t.Fatalf("SetTaskReadableEntityTypes returned error: %v", err)
	}
	if err := store.SetTaskEditableEntityTypes(ctx, 3, []int64{3}); err != nil {
		t.Fatalf("SetTaskEditableEntityTypes returned error: %v", err)
	}
	readable, editable, err := store.TaskEntityTypes(ctx, 3)
	if err != nil {
		t.Fatalf("TaskEntityTypes returned error: %v", err)
	}
	if len(readable) != 2 || len(editable) != 1 || editable[0].Name != "Утверждение заявки" {
		t.Fatalf("unexpected task entity types: %+v / %+v", readable, editable)
	}
}

func TestLinkToMissingRowFails(t *testing.T) {
	store := newTestStore(t)
	seedTemplate(t, store)

	if err := store.SetTaskEditableEntityTypes(context.Background(), 1, []int64{77}); err == nil {
		t.Fatalf("expected foreign key violation for unknown entity type")
	}
}

func TestStartConditions(t *testing.T) {
	store := newTestStore(t)
	seedTemplate(t, store)
	ctx := context.Background()

	tree := ConditionTree{AssignmentTask: "Создание заявки", Operator: "equals", Value: "completed"}
	if _, err := store.CreateStartCondition(ctx, 2, tree); err != nil {
		t.Fatalf("CreateStartCondition returned error: %v", err)
	}
	if _, err := store.CreateStartCondition(ctx, 2, tree); err != nil {
		t.Fatalf("CreateStartCondition returned error: %v", err)
	}

	n, err := store.DeleteStartConditions(ctx, 2)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 deleted conditions, got %d %v", n, err)
	}

	created, err := store.CreateStartCondition(ctx, 2, tree)
	if err != nil {
		t.Fatalf("CreateStartCondition returned error: %v", err)
	}
	got, err := store.StartConditions(ctx, 2)
	if err != nil {
		t.Fatalf("StartConditions returned error: %v", err)
	}
	if diff := cmp.Diff([]StartCondition{created}, got); diff != "" {
		t.Fatalf("conditions mismatch (-want +got):\n%s", diff)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(repo Repository) error {
		if _, _, err := repo.GetOrCreateGroup(ctx, "temp"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	_, created, err := store.GetOrCreateGroup(ctx, "temp")
	if err != nil || !created {
		t.Fatalf("expected group to be rolled back, created=%v err=%v", created, err)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = store.WithTx(ctx, func(repo Repository) error {
			_, _, _ = repo.GetOrCreateGroup(ctx, "temp")
			panic("boom")
		})
	}()

	_, created, err := store.GetOrCreateGroup(ctx, "temp")
	if err != nil || !created {
		t.Fatalf("expected group to be rolled back, created=%v err=%v", created, err)
	}
}

func TestWithTxCommits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(repo Repository) error {
		_, _, err := repo.GetOrCreateGroup(ctx, "kept")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx returned error: %v", err)
	}

	_, created, err := store.GetOrCreateGroup(ctx, "kept")
	if err != nil || created {
		t.Fatalf("expected committed group, created=%v err=%v", created, err)
	}
}
