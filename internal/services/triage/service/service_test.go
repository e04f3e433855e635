package service

import (
	"context"
	"testing"

	"sahay/internal/modkit/repokit"
	"sahay/internal/platform/store"

	core "sahay/internal/core/triage"
	"sahay/internal/services/triage/domain"
	"sahay/internal/services/triage/repo"
)

type fakeTx struct{}

func (fakeTx) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error { return fn(nil) }
func (fakeTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return nil, nil
}
func (fakeTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return nil, nil
}
func (fakeTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row { return nil }

type fakeRepo struct {
	rows   map[string]domain.Session
	nextID int
}

func newFakeRepo() *fakeRepo { return &fakeRepo{rows: map[string]domain.Session{}} }

func (r *fakeRepo) Insert(ctx context.Context, s domain.Session) (domain.Session, error) {
	r.nextID++
	s.ID = string(rune('a' + r.nextID))
	r.rows[s.ID] = s
	return s, nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (domain.Session, bool, error) {
	s, ok := r.rows[id]
	return s, ok, nil
}

func (r *fakeRepo) DeleteForOwner(ctx context.Context, ownerID string) error {
	for id, s := range r.rows {
		if s.OwnerID == ownerID {
			delete(r.rows, id)
		}
	}
	return nil
}

var _ repo.Repo = (*fakeRepo)(nil)

type fakeBinder struct{ r *fakeRepo }

func (b fakeBinder) Bind(q repokit.Queryer) repo.Repo { return b.r }

func mustEngine(t *testing.T) *core.Engine {
	t.Helper()
	pack, err := core.LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded rule pack: %v", err)
	}
	return core.New(pack, core.NewGuidanceSet(), nil)
}

func TestCreate_PersistsEvaluatedSession(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()}, mustEngine(t))

	sess, err := svc.Create(context.Background(), "owner1", domain.Input{
		SymptomsText: "chest pain and shortness of breath", Age: 45, Sex: "M",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("expected a persisted session id")
	}
	if sess.Category != core.CategoryEmergency {
		t.Fatalf("category = %q, want emergency", sess.Category)
	}
	if sess.OwnerID != "owner1" {
		t.Fatalf("owner_id = %q, want owner1", sess.OwnerID)
	}
}

func TestGet_ForbidsNonOwner(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()}, mustEngine(t))

	sess, err := svc.Create(context.Background(), "owner1", domain.Input{
		SymptomsText: "mild headache", Age: 30, Sex: "F",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(context.Background(), "someone-else", sess.ID); err == nil {
		t.Fatalf("expected Forbidden for a non-owner caller")
	}
	if _, err := svc.Get(context.Background(), "owner1", sess.ID); err != nil {
		t.Fatalf("owner should be able to read their own session: %v", err)
	}
}

func TestGet_NotFoundForUnknownSession(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()}, mustEngine(t))

	if _, err := svc.Get(context.Background(), "owner1", "does-not-exist"); err == nil {
		t.Fatalf("expected NotFound for an unknown session id")
	}
}
