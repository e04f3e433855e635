package service

import (
	"context"
	"strings"
	"testing"

	"sahay/internal/modkit/repokit"
	"sahay/internal/platform/store"
	adomain "sahay/internal/services/audit/domain"
	"sahay/internal/services/tele/domain"
	"sahay/internal/services/tele/repo"
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
	requests      map[string]domain.TeleRequest
	prescriptions []domain.Prescription
	nextID        int
}

func newFakeRepo() *fakeRepo { return &fakeRepo{requests: map[string]domain.TeleRequest{}} }

func (r *fakeRepo) InsertRequest(ctx context.Context, t domain.TeleRequest) (domain.TeleRequest, error) {
	r.nextID++
	t.ID = string(rune('a' + r.nextID))
	r.requests[t.ID] = t
	return t, nil
}

func (r *fakeRepo) GetRequest(ctx context.Context, id string) (domain.TeleRequest, bool, error) {
	t, ok := r.requests[id]
	return t, ok, nil
}

func (r *fakeRepo) UpdateRequestStatus(ctx context.Context, id, clinicianID string, status domain.Status) error {
	t := r.requests[id]
	t.Status = status
	if clinicianID != "" {
		t.ClinicianID = clinicianID
	}
	r.requests[id] = t
	return nil
}

func (r *fakeRepo) InsertPrescription(ctx context.Context, p domain.Prescription) (domain.Prescription, error) {
	r.nextID++
	p.ID = string(rune('a' + r.nextID))
	r.prescriptions = append(r.prescriptions, p)
	return p, nil
}

func (r *fakeRepo) DeleteForCitizen(ctx context.Context, citizenID string) error {
	for id, t := range r.requests {
		if t.CitizenID == citizenID {
			delete(r.requests, id)
		}
	}
	kept := r.prescriptions[:0]
	for _, p := range r.prescriptions {
		if p.ClinicianID != citizenID {
			kept = append(kept, p)
		}
	}
	r.prescriptions = kept
	return nil
}

var _ repo.Repo = (*fakeRepo)(nil)

type fakeBinder struct{ r *fakeRepo }

func (b fakeBinder) Bind(q repokit.Queryer) repo.Repo { return b.r }

type fakeAudit struct{ calls int }

func (a *fakeAudit) AppendInTx(ctx context.Context, q repokit.Queryer, in adomain.Append) (adomain.Entry, error) {
	a.calls++
	return adomain.Entry{}, nil
}

func summaryOfLen(n int) string { return strings.Repeat("x", n) }

func TestCreate_OpensRequestedRequest(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()}, nil)

	tr, err := svc.Create(context.Background(), "citizen1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tr.Status != domain.StatusRequested {
		t.Fatalf("status = %s, want requested", tr.Status)
	}
	if tr.CitizenID != "citizen1" {
		t.Fatalf("citizen_id = %q, want citizen1", tr.CitizenID)
	}
}

func TestTransition_RequiresClinicianToSchedule(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()}, nil)

	tr, err := svc.Create(context.Background(), "citizen1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Transition(context.Background(), tr.ID, domain.TransitionInput{To: domain.StatusScheduled}); err == nil {
		t.Fatalf("expected InvalidArg scheduling without a clinician_id")
	}

	out, err := svc.Transition(context.Background(), tr.ID, domain.TransitionInput{
		ClinicianID: "clinician1", To: domain.StatusScheduled,
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if out.Status != domain.StatusScheduled || out.ClinicianID != "clinician1" {
		t.Fatalf("out = %+v, want scheduled/clinician1", out)
	}
}

func TestTransition_RejectsIllegalMove(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()}, nil)

	tr, err := svc.Create(context.Background(), "citizen1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Transition(context.Background(), tr.ID, domain.TransitionInput{
		ClinicianID: "clinician1", To: domain.StatusCompleted,
	}); err == nil {
		t.Fatalf("expected StateInvalid jumping straight from requested to completed")
	}
}

func TestGet_ForbidsNonOwnerNonClinician(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()}, nil)

	tr, err := svc.Create(context.Background(), "citizen1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(context.Background(), "someone-else", false, tr.ID); err == nil {
		t.Fatalf("expected Forbidden for an unrelated caller")
	}
	if _, err := svc.Get(context.Background(), "citizen1", false, tr.ID); err != nil {
		t.Fatalf("owner should be able to read their own request: %v", err)
	}
}

func TestPrescribe_RejectsRequestThatHasNotStarted(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()}, nil)

	tr, err := svc.Create(context.Background(), "citizen1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Prescribe(context.Background(), domain.PrescribeInput{
		TeleRequestID: tr.ID, ClinicianID: "clinician1",
		Items: []string{"paracetamol"}, SummaryText: summaryOfLen(200),
	})
	if err == nil {
		t.Fatalf("expected StateInvalid prescribing against a request still in requested")
	}
}

func TestPrescribe_RejectsSummaryOutsideLengthBounds(t *testing.T) {
	t.Parallel()
	r := newFakeRepo()
	svc := New(fakeTx{}, fakeBinder{r}, nil)

	tr, err := svc.Create(context.Background(), "citizen1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Transition(context.Background(), tr.ID, domain.TransitionInput{
		ClinicianID: "clinician1", To: domain.StatusScheduled,
	}); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if _, err := svc.Transition(context.Background(), tr.ID, domain.TransitionInput{To: domain.StatusInProgress}); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if _, err := svc.Prescribe(context.Background(), domain.PrescribeInput{
		TeleRequestID: tr.ID, ClinicianID: "clinician1",
		Items: []string{"paracetamol"}, SummaryText: summaryOfLen(159),
	}); err == nil {
		t.Fatalf("expected InvalidArg for a summary below 160 chars")
	}
	if _, err := svc.Prescribe(context.Background(), domain.PrescribeInput{
		TeleRequestID: tr.ID, ClinicianID: "clinician1",
		Items: []string{"paracetamol"}, SummaryText: summaryOfLen(301),
	}); err == nil {
		t.Fatalf("expected InvalidArg for a summary above 300 chars")
	}

	p, err := svc.Prescribe(context.Background(), domain.PrescribeInput{
		TeleRequestID: tr.ID, ClinicianID: "clinician1",
		Items: []string{"paracetamol"}, SummaryText: summaryOfLen(200),
	})
	if err != nil {
		t.Fatalf("Prescribe: %v", err)
	}
	if p.TeleRequestID != tr.ID {
		t.Fatalf("tele_request_id = %q, want %q", p.TeleRequestID, tr.ID)
	}
}

func TestTransition_AppendsAuditEntryOnEachMove(t *testing.T) {
	t.Parallel()
	audit := &fakeAudit{}
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()}, audit)

	tr, err := svc.Create(context.Background(), "citizen1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if audit.calls != 1 {
		t.Fatalf("audit calls after Create = %d, want 1", audit.calls)
	}

	if _, err := svc.Transition(context.Background(), tr.ID, domain.TransitionInput{
		ClinicianID: "clinician1", To: domain.StatusScheduled,
	}); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if audit.calls != 2 {
		t.Fatalf("audit calls after Transition = %d, want 2", audit.calls)
	}
}
