package service

import (
	"context"
	"testing"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/platform/store"
	"sahay/internal/services/ident/domain"
	"sahay/internal/services/ident/repo"
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
	users   map[string]domain.User
	byPhone map[string]string
	tokens  map[string]tokenRow
	roles   map[string][]domain.Role
	nextID  int
}

type tokenRow struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:   map[string]domain.User{},
		byPhone: map[string]string{},
		tokens:  map[string]tokenRow{},
		roles:   map[string][]domain.Role{},
	}
}

func (r *fakeRepo) FindOrCreateUser(ctx context.Context, phone string) (domain.User, error) {
	if id, ok := r.byPhone[phone]; ok {
		return r.users[id], nil
	}
	r.nextID++
	u := domain.User{ID: string(rune('a' + r.nextID)), Phone: phone, CreatedAt: time.Now().UTC()}
	r.users[u.ID] = u
	r.byPhone[phone] = u.ID
	return u, nil
}

func (r *fakeRepo) FindUserByPhone(ctx context.Context, phone string) (domain.User, bool, error) {
	id, ok := r.byPhone[phone]
	if !ok {
		return domain.User{}, false, nil
	}
	return r.users[id], true, nil
}

func (r *fakeRepo) InsertToken(ctx context.Context, tokenHash, userID string, issuedAt, expiresAt time.Time) error {
	r.tokens[tokenHash] = tokenRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *fakeRepo) ResolveTokenHash(ctx context.Context, tokenHash string) (string, bool, error) {
	t, ok := r.tokens[tokenHash]
	if !ok || t.revoked || t.expiresAt.Before(time.Now().UTC()) {
		return "", false, nil
	}
	return t.userID, true, nil
}

func (r *fakeRepo) RevokeTokenHash(ctx context.Context, tokenHash string) error {
	if t, ok := r.tokens[tokenHash]; ok {
		t.revoked = true
		r.tokens[tokenHash] = t
	}
	return nil
}

func (r *fakeRepo) AssignRole(ctx context.Context, userID string, role domain.Role) error {
	for _, have := range r.roles[userID] {
		if have == role {
			return nil
		}
	}
	r.roles[userID] = append(r.roles[userID], role)
	return nil
}

func (r *fakeRepo) RolesFor(ctx context.Context, userID string) ([]domain.Role, error) {
	return r.roles[userID], nil
}

func (r *fakeRepo) DeleteUser(ctx context.Context, userID string) error {
	if phone, ok := r.users[userID]; ok {
		delete(r.byPhone, phone.Phone)
	}
	delete(r.users, userID)
	delete(r.roles, userID)
	for hash, t := range r.tokens {
		if t.userID == userID {
			delete(r.tokens, hash)
		}
	}
	return nil
}

var _ repo.Repo = (*fakeRepo)(nil)

type fakeBinder struct{ r *fakeRepo }

func (b fakeBinder) Bind(q repokit.Queryer) repo.Repo { return b.r }

func TestRegister_IsIdempotentOnPhone(t *testing.T) {
	t.Parallel()
	r := newFakeRepo()
	svc := New(fakeTx{}, fakeBinder{r})

	u1, err := svc.Register(context.Background(), "+910000000001")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	u2, err := svc.Register(context.Background(), "+910000000001")
	if err != nil {
		t.Fatalf("Register (again): %v", err)
	}
	if u1.ID != u2.ID {
		t.Fatalf("repeated Register for the same phone must return the same user: %q != %q", u1.ID, u2.ID)
	}
}

func TestLogin_IssuesTokenThatResolves(t *testing.T) {
	t.Parallel()
	r := newFakeRepo()
	svc := New(fakeTx{}, fakeBinder{r})

	u, err := svc.Register(context.Background(), "+910000000002")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, loggedIn, err := svc.Login(context.Background(), "+910000000002")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.ID != u.ID {
		t.Fatalf("Login returned user %q, want %q", loggedIn.ID, u.ID)
	}

	p, err := svc.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.UserID != u.ID {
		t.Fatalf("Resolve returned user %q, want %q", p.UserID, u.ID)
	}
}

func TestLogin_RejectsUnregisteredPhone(t *testing.T) {
	t.Parallel()
	r := newFakeRepo()
	svc := New(fakeTx{}, fakeBinder{r})

	if _, _, err := svc.Login(context.Background(), "+91nonexistent"); err == nil {
		t.Fatalf("expected error logging in with an unregistered phone")
	}
}

func TestRevoke_MakesTokenUnresolvable(t *testing.T) {
	t.Parallel()
	r := newFakeRepo()
	svc := New(fakeTx{}, fakeBinder{r})

	if _, err := svc.Register(context.Background(), "+910000000003"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, _, err := svc.Login(context.Background(), "+910000000003")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), token); err == nil {
		t.Fatalf("expected Resolve to fail for a revoked token")
	}
}

func TestResolve_RejectsEmptyToken(t *testing.T) {
	t.Parallel()
	r := newFakeRepo()
	svc := New(fakeTx{}, fakeBinder{r})

	if _, err := svc.Resolve(context.Background(), ""); err == nil {
		t.Fatalf("expected Unauthorized for an empty token")
	}
}

func TestAssignRole_RejectsUnknownRole(t *testing.T) {
	t.Parallel()
	r := newFakeRepo()
	svc := New(fakeTx{}, fakeBinder{r})

	if err := svc.AssignRole(context.Background(), "u1", domain.Role("wizard")); err == nil {
		t.Fatalf("expected InvalidArg for an unknown role")
	}
}

func TestAssignRole_IsIdempotentAndVisibleViaRolesFor(t *testing.T) {
	t.Parallel()
	r := newFakeRepo()
	svc := New(fakeTx{}, fakeBinder{r})

	if err := svc.AssignRole(context.Background(), "u1", domain.RoleDistrictOfficer); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := svc.AssignRole(context.Background(), "u1", domain.RoleDistrictOfficer); err != nil {
		t.Fatalf("AssignRole (again): %v", err)
	}

	roles, err := svc.RolesFor(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RolesFor: %v", err)
	}
	if len(roles) != 1 || roles[0] != domain.RoleDistrictOfficer {
		t.Fatalf("roles = %v, want exactly [district_officer]", roles)
	}
}
