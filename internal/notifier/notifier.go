package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/internal/events"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// MailSender delivers a drafted message through the mail collaborator
type MailSender interface {
	Send(ctx context.Context, msg Message) error
}

// PlanPage is the mirror record pushed to the workspace-page collaborator
type PlanPage struct {
	IdempotencyKey  string
	ExternalPageRef string // empty on first sync, set on updates
	Item            string
	CurrentStock    int
	DepletionDate   *time.Time
	OrderQuantity   int
	Supplier        string
	Cost            float64
	Priority        domain.Priority
	Status          domain.PlanStatus
}

// PageSender mirrors plans into the workspace collaborator. Upsert is keyed
// by idempotency key / page ref so retries never create duplicate pages.
type PageSender interface {
	UpsertPlanPage(ctx context.Context, page PlanPage) (pageRef string, err error)
}

// PlanStore is the slice of the plan store the orchestrator needs
type PlanStore interface {
	GetPlan(ctx context.Context, planID string) (*domain.ReorderPlan, error)
	SetExternalPageRef(ctx context.Context, planID, pageRef string) error
	FlagFollowUp(ctx context.Context, planID string) error
	RecordAttempt(ctx context.Context, attempt *domain.NotificationAttempt) error
}

// OutcomeStatus classifies the overall result of handling one alert
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "Success"
	OutcomeFailed  OutcomeStatus = "Failed"
)

// Outcome reports what happened across both downstream channels
type Outcome struct {
	Status        OutcomeStatus
	MailAttempts  int
	PageAttempts  int
	LastErrorKind string
}

// Options bound the retry/backoff budget per downstream call
type Options struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// DefaultOptions matches the documented policy: 3 attempts, 1s base, x2, 10s cap
func DefaultOptions() Options {
	return Options{MaxAttempts: 3, BackoffBase: time.Second, BackoffCap: 10 * time.Second}
}

// Orchestrator turns alerts and plan transitions into mail sends and page
// mirrors, with independent retry budgets per downstream call. A failed
// notification never rolls back plan state; it flags the plan for manual
// follow-up instead.
type Orchestrator struct {
	drafter Drafter
	mail    MailSender
	pages   PageSender
	store   PlanStore
	opts    Options
	logger  *zap.Logger
}

// New creates an orchestrator
func New(drafter Drafter, mail MailSender, pages PageSender, store PlanStore, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.MaxAttempts <= 0 {
		opts = DefaultOptions()
	}
	return &Orchestrator{
		drafter: drafter,
		mail:    mail,
		pages:   pages,
		store:   store,
		opts:    opts,
		logger:  logger,
	}
}

// Handle processes one low-stock alert: draft, validate, send mail and mirror
// the plan page. Each channel retries independently; validation failures
// surface immediately without a send.
func (o *Orchestrator) Handle(ctx context.Context, alert *domain.Alert) Outcome {
	var plan *domain.ReorderPlan
	if alert.PlanID != "" {
		p, err := o.store.GetPlan(ctx, alert.PlanID)
		if err != nil {
			o.logger.Warn("Alert references unknown plan, notifying without plan detail",
				zap.String("plan_id", alert.PlanID),
				zap.String("item_id", alert.ItemID),
				zap.Error(err),
			)
		} else {
			plan = p
		}
	}

	msg, err := o.drafter.DraftAlert(alert, plan)
	if err == nil {
		err = msg.Validate()
	}
	if err != nil {
		o.logger.Error("Alert draft rejected",
			zap.String("item_id", alert.ItemID),
			zap.String("error_kind", errors.Code(err)),
			zap.Error(err),
		)
		return Outcome{Status: OutcomeFailed, LastErrorKind: errors.Code(err)}
	}

	outcome := Outcome{Status: OutcomeSuccess}

	mailAttempts, mailErr := o.callWithRetry(ctx, alert.PlanID, "mail", func(ctx context.Context) error {
		return o.mail.Send(ctx, msg)
	})
	outcome.MailAttempts = mailAttempts

	var pageErr error
	if plan != nil {
		var pageRef string
		var pageAttempts int
		pageAttempts, pageErr = o.callWithRetry(ctx, alert.PlanID, "page", func(ctx context.Context) error {
			ref, err := o.pages.UpsertPlanPage(ctx, pageFor(alert, plan))
			if err == nil {
				pageRef = ref
			}
			return err
		})
		outcome.PageAttempts = pageAttempts

		if pageErr == nil && pageRef != "" && pageRef != plan.ExternalPageRef {
			if err := o.store.SetExternalPageRef(ctx, alert.PlanID, pageRef); err != nil {
				o.logger.Warn("Failed to save external page ref",
					zap.String("plan_id", alert.PlanID), zap.Error(err))
			}
		}
	}

	if mailErr != nil || pageErr != nil {
		outcome.Status = OutcomeFailed
		lastErr := mailErr
		if pageErr != nil {
			lastErr = pageErr
		}
		outcome.LastErrorKind = errors.Code(lastErr)
		o.flagForFollowUp(ctx, alert.PlanID, lastErr)
	}

	return outcome
}

// HandleTransition reacts to plan lifecycle events: an approval triggers the
// order-request mail to the supplier plus a page status update; every other
// transition just refreshes the mirrored page.
func (o *Orchestrator) HandleTransition(ctx context.Context, ev *events.PlanTransitionEvent) Outcome {
	outcome := Outcome{Status: OutcomeSuccess}

	if ev.To == domain.StatusApproved {
		msg, err := o.drafter.DraftOrderRequest(&OrderContext{
			PlanID:        ev.PlanID,
			ItemName:      ev.ItemName,
			Supplier:      ev.Supplier,
			Quantity:      ev.Quantity,
			EstimatedCost: ev.EstimatedCost,
		})
		if err == nil {
			err = msg.Validate()
		}
		if err != nil {
			o.logger.Error("Order request draft rejected",
				zap.String("plan_id", ev.PlanID),
				zap.String("error_kind", errors.Code(err)),
				zap.Error(err),
			)
			return Outcome{Status: OutcomeFailed, LastErrorKind: errors.Code(err)}
		}

		attempts, mailErr := o.callWithRetry(ctx, ev.PlanID, "mail", func(ctx context.Context) error {
			return o.mail.Send(ctx, msg)
		})
		outcome.MailAttempts = attempts
		if mailErr != nil {
			outcome.Status = OutcomeFailed
			outcome.LastErrorKind = errors.Code(mailErr)
			o.flagForFollowUp(ctx, ev.PlanID, mailErr)
		}
	}

	plan, err := o.store.GetPlan(ctx, ev.PlanID)
	if err != nil {
		o.logger.Warn("Transition references unknown plan, skipping page sync",
			zap.String("plan_id", ev.PlanID), zap.Error(err))
		return outcome
	}

	attempts, pageErr := o.callWithRetry(ctx, ev.PlanID, "page", func(ctx context.Context) error {
		_, err := o.pages.UpsertPlanPage(ctx, pageForPlan(plan))
		return err
	})
	outcome.PageAttempts = attempts
	if pageErr != nil {
		outcome.Status = OutcomeFailed
		outcome.LastErrorKind = errors.Code(pageErr)
		o.flagForFollowUp(ctx, ev.PlanID, pageErr)
	}

	return outcome
}

// callWithRetry runs fn up to the configured attempt budget with exponential
// backoff, retrying transient failures only. Every attempt is recorded.
func (o *Orchestrator) callWithRetry(ctx context.Context, planID, channel string, fn func(ctx context.Context) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.BackoffCap)
		err := fn(callCtx)
		cancel()

		o.recordAttempt(ctx, planID, channel, attempt, err)

		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !errors.IsTransient(err) {
			o.logger.Warn("Non-retryable notification failure",
				zap.String("plan_id", planID),
				zap.String("channel", channel),
				zap.String("error_kind", errors.Code(err)),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return attempt, err
		}

		o.logger.Warn("Transient notification failure",
			zap.String("plan_id", planID),
			zap.String("channel", channel),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.opts.MaxAttempts),
			zap.Error(err),
		)

		if attempt < o.opts.MaxAttempts {
			if err := o.backoff(ctx, attempt); err != nil {
				return attempt, err
			}
		}
	}

	return o.opts.MaxAttempts, lastErr
}

func (o *Orchestrator) backoff(ctx context.Context, attempt int) error {
	delay := o.opts.BackoffBase * time.Duration(1<<uint(attempt-1))
	if delay > o.opts.BackoffCap {
		delay = o.opts.BackoffCap
	}
	select {
	case <-ctx.Done():
		return errors.NewTransientError("cancelled during backoff", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

func (o *Orchestrator) recordAttempt(ctx context.Context, planID, channel string, attempt int, callErr error) {
	if planID == "" {
		return
	}
	record := &domain.NotificationAttempt{
		PlanID:        planID,
		Channel:       channel,
		AttemptNumber: attempt,
		Outcome:       domain.AttemptSucceeded,
		Timestamp:     time.Now().UTC(),
	}
	if callErr != nil {
		record.Outcome = domain.AttemptFailed
		record.ErrorKind = errors.Code(callErr)
	}
	if err := o.store.RecordAttempt(ctx, record); err != nil {
		o.logger.Warn("Failed to record notification attempt",
			zap.String("plan_id", planID), zap.Error(err))
	}
}

func (o *Orchestrator) flagForFollowUp(ctx context.Context, planID string, cause error) {
	if planID == "" {
		return
	}
	o.logger.Error("Notification exhausted, plan flagged for manual follow-up",
		zap.String("plan_id", planID),
		zap.String("error_kind", errors.Code(cause)),
		zap.Error(cause),
	)
	if err := o.store.FlagFollowUp(ctx, planID); err != nil {
		o.logger.Warn("Failed to flag plan for follow-up",
			zap.String("plan_id", planID), zap.Error(err))
	}
}

func pageFor(alert *domain.Alert, plan *domain.ReorderPlan) PlanPage {
	return PlanPage{
		IdempotencyKey:  alert.IdempotencyKey,
		ExternalPageRef: plan.ExternalPageRef,
		Item:            plan.ItemName,
		CurrentStock:    alert.CurrentStock,
		DepletionDate:   plan.DepletionDate,
		OrderQuantity:   plan.Quantity,
		Supplier:        alert.Supplier,
		Cost:            plan.EstimatedCost,
		Priority:        plan.Priority,
		Status:          plan.Status,
	}
}

func pageForPlan(plan *domain.ReorderPlan) PlanPage {
	return PlanPage{
		ExternalPageRef: plan.ExternalPageRef,
		Item:            plan.ItemName,
		DepletionDate:   plan.DepletionDate,
		OrderQuantity:   plan.Quantity,
		Supplier:        plan.Supplier.Name,
		Cost:            plan.EstimatedCost,
		Priority:        plan.Priority,
		Status:          plan.Status,
	}
}
