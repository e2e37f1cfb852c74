package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/internal/events"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

type fakeMail struct {
	sent     []Message
	failures int // fail this many calls with a transient error
	permFail bool
}

func (f *fakeMail) Send(ctx context.Context, msg Message) error {
	if f.permFail {
		return errors.NewValidationError("bad recipient", "recipient")
	}
	if f.failures > 0 {
		f.failures--
		return errors.NewTransientError("mail gateway timeout", nil)
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePages struct {
	upserts  []PlanPage
	failures int
	pageRef  string
}

func (f *fakePages) UpsertPlanPage(ctx context.Context, page PlanPage) (string, error) {
	if f.failures > 0 {
		f.failures--
		return "", errors.NewTransientError("rate limited", nil)
	}
	f.upserts = append(f.upserts, page)
	if f.pageRef != "" {
		return f.pageRef, nil
	}
	return "page-001", nil
}

type fakeStore struct {
	plans     map[string]*domain.ReorderPlan
	attempts  []*domain.NotificationAttempt
	pageRefs  map[string]string
	followUps map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:     make(map[string]*domain.ReorderPlan),
		pageRefs:  make(map[string]string),
		followUps: make(map[string]bool),
	}
}

func (f *fakeStore) GetPlan(ctx context.Context, planID string) (*domain.ReorderPlan, error) {
	p, ok := f.plans[planID]
	if !ok {
		return nil, errors.NewNotFound("plan", planID)
	}
	return p, nil
}

func (f *fakeStore) SetExternalPageRef(ctx context.Context, planID, pageRef string) error {
	f.pageRefs[planID] = pageRef
	return nil
}

func (f *fakeStore) FlagFollowUp(ctx context.Context, planID string) error {
	f.followUps[planID] = true
	return nil
}

func (f *fakeStore) RecordAttempt(ctx context.Context, attempt *domain.NotificationAttempt) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}

func testOptions() Options {
	return Options{MaxAttempts: 3, BackoffBase: time.Millisecond, BackoffCap: 50 * time.Millisecond}
}

func seedPlan(store *fakeStore) *domain.ReorderPlan {
	item := &domain.InventoryItem{
		ItemID: "ITEM001", Name: "Widget", CurrentStock: 8, MinThreshold: 10,
		DailyUsage: 2, Supplier: domain.Supplier{Name: "ABC Corp"}, UnitCost: 1.50,
	}
	depletion := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	plan := domain.NewReorderPlan(item, &domain.ReorderDecision{
		ItemID: "ITEM001", Quantity: 50, EstimatedCost: 75.0,
		Priority: domain.PriorityHigh, Justification: "low stock",
		DepletionDate: &depletion,
	})
	store.plans[plan.PlanID.String()] = plan
	return plan
}

func testAlert(planID string) *domain.Alert {
	return &domain.Alert{
		ItemID: "ITEM001", ItemName: "Widget", CurrentStock: 8, MinThreshold: 10,
		Supplier: "ABC Corp", Priority: domain.PriorityHigh,
		Timestamp: time.Now().UTC(), IdempotencyKey: "idem-1", PlanID: planID,
	}
}

func TestHandle_Success(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	mail := &fakeMail{}
	pages := &fakePages{}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	outcome := o.Handle(context.Background(), testAlert(plan.PlanID.String()))

	assert.Equal(t, OutcomeSuccess, outcome.Status)
	assert.Equal(t, 1, outcome.MailAttempts)
	assert.Equal(t, 1, outcome.PageAttempts)
	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].Subject, "Widget")
	assert.Contains(t, mail.sent[0].Subject, "High")
	require.Len(t, pages.upserts, 1)
	assert.Equal(t, "idem-1", pages.upserts[0].IdempotencyKey)
	assert.Equal(t, "page-001", store.pageRefs[plan.PlanID.String()])
	assert.False(t, store.followUps[plan.PlanID.String()])
}

func TestHandle_TransientFailuresThenSuccess(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	mail := &fakeMail{failures: 2}
	pages := &fakePages{}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	outcome := o.Handle(context.Background(), testAlert(plan.PlanID.String()))

	assert.Equal(t, OutcomeSuccess, outcome.Status)
	assert.Equal(t, 3, outcome.MailAttempts, "two failures then a success is exactly three attempts")
	require.Len(t, mail.sent, 1)

	// every attempt was recorded
	var mailAttempts []*domain.NotificationAttempt
	for _, a := range store.attempts {
		if a.Channel == "mail" {
			mailAttempts = append(mailAttempts, a)
		}
	}
	require.Len(t, mailAttempts, 3)
	assert.Equal(t, domain.AttemptFailed, mailAttempts[0].Outcome)
	assert.Equal(t, domain.AttemptFailed, mailAttempts[1].Outcome)
	assert.Equal(t, domain.AttemptSucceeded, mailAttempts[2].Outcome)
}

func TestHandle_ExhaustedRetries(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	mail := &fakeMail{failures: 10}
	pages := &fakePages{}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	outcome := o.Handle(context.Background(), testAlert(plan.PlanID.String()))

	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Equal(t, 3, outcome.MailAttempts)
	assert.Equal(t, errors.CodeTransient, outcome.LastErrorKind)
	assert.Empty(t, mail.sent)
	assert.True(t, store.followUps[plan.PlanID.String()], "exhausted notification flags the plan")

	// plan state is untouched by the notification failure
	assert.Equal(t, domain.StatusPending, store.plans[plan.PlanID.String()].Status)
}

func TestHandle_ValidationFailureNotRetried(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	mail := &fakeMail{permFail: true}
	pages := &fakePages{}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	outcome := o.Handle(context.Background(), testAlert(plan.PlanID.String()))

	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Equal(t, 1, outcome.MailAttempts, "validation failures surface immediately")
	assert.Equal(t, errors.CodeValidation, outcome.LastErrorKind)
}

func TestHandle_MissingDraftFieldRejected(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	mail := &fakeMail{}
	pages := &fakePages{}
	// no recipient configured -> draft fails validation
	o := New(TemplateDrafter{}, mail, pages, store, testOptions(), zap.NewNop())

	outcome := o.Handle(context.Background(), testAlert(plan.PlanID.String()))

	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Equal(t, errors.CodeValidation, outcome.LastErrorKind)
	assert.Empty(t, mail.sent, "invalid draft is never sent")
	assert.Empty(t, pages.upserts)
}

func TestHandle_IndependentChannelRetries(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	mail := &fakeMail{}
	pages := &fakePages{failures: 1}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	outcome := o.Handle(context.Background(), testAlert(plan.PlanID.String()))

	assert.Equal(t, OutcomeSuccess, outcome.Status)
	assert.Equal(t, 1, outcome.MailAttempts)
	assert.Equal(t, 2, outcome.PageAttempts, "page retries do not affect the mail budget")
}

func TestHandle_PageUpsertCarriesIdempotencyKey(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	mail := &fakeMail{}
	pages := &fakePages{failures: 2}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	o.Handle(context.Background(), testAlert(plan.PlanID.String()))

	require.Len(t, pages.upserts, 1)
	assert.Equal(t, "idem-1", pages.upserts[0].IdempotencyKey,
		"the surviving upsert still carries the original idempotency key")
}

func TestHandle_PageCarriesDepletionDate(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	mail := &fakeMail{}
	pages := &fakePages{}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	o.Handle(context.Background(), testAlert(plan.PlanID.String()))

	require.Len(t, pages.upserts, 1)
	require.NotNil(t, pages.upserts[0].DepletionDate)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), *pages.upserts[0].DepletionDate)
}

func TestHandleTransition_PageCarriesDepletionDate(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	plan.Status = domain.StatusRejected
	mail := &fakeMail{}
	pages := &fakePages{}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	o.HandleTransition(context.Background(), &events.PlanTransitionEvent{
		PlanID:   plan.PlanID.String(),
		ItemID:   "ITEM001",
		ItemName: "Widget",
		From:     domain.StatusPending,
		To:       domain.StatusRejected,
	})

	require.Len(t, pages.upserts, 1)
	require.NotNil(t, pages.upserts[0].DepletionDate)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), *pages.upserts[0].DepletionDate)
}

func TestHandleTransition_ApprovalSendsOrderRequest(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	plan.Status = domain.StatusApproved
	mail := &fakeMail{}
	pages := &fakePages{}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	outcome := o.HandleTransition(context.Background(), &events.PlanTransitionEvent{
		PlanID:        plan.PlanID.String(),
		ItemID:        "ITEM001",
		ItemName:      "Widget",
		From:          domain.StatusPending,
		To:            domain.StatusApproved,
		Supplier:      "orders@abccorp.example",
		Quantity:      50,
		EstimatedCost: 75.0,
		OccurredAt:    time.Now().UTC(),
	})

	assert.Equal(t, OutcomeSuccess, outcome.Status)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "orders@abccorp.example", mail.sent[0].Recipient)
	assert.Contains(t, mail.sent[0].Body, "50 units")
	require.Len(t, pages.upserts, 1)
	assert.Equal(t, domain.StatusApproved, pages.upserts[0].Status)
}

func TestHandleTransition_RejectionOnlyUpdatesPage(t *testing.T) {
	store := newFakeStore()
	plan := seedPlan(store)
	plan.Status = domain.StatusRejected
	mail := &fakeMail{}
	pages := &fakePages{}
	o := New(TemplateDrafter{Recipient: "ops@example.com"}, mail, pages, store, testOptions(), zap.NewNop())

	outcome := o.HandleTransition(context.Background(), &events.PlanTransitionEvent{
		PlanID:   plan.PlanID.String(),
		ItemID:   "ITEM001",
		ItemName: "Widget",
		From:     domain.StatusPending,
		To:       domain.StatusRejected,
	})

	assert.Equal(t, OutcomeSuccess, outcome.Status)
	assert.Empty(t, mail.sent)
	require.Len(t, pages.upserts, 1)
	assert.Equal(t, domain.StatusRejected, pages.upserts[0].Status)
}
