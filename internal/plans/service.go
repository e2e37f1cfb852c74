package plans

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/internal/events"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// Store is the slice of the plan store the service drives transitions through
type Store interface {
	CreatePlan(ctx context.Context, plan *domain.ReorderPlan) error
	Transition(ctx context.Context, planID string, from, to domain.PlanStatus) error
	GetPlan(ctx context.Context, planID string) (*domain.ReorderPlan, error)
	SetExternalPageRef(ctx context.Context, planID, pageRef string) error
	ListPlans(ctx context.Context, status domain.PlanStatus) ([]*domain.ReorderPlan, error)
}

// Decision is an approval-channel verdict
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Service owns the ReorderPlan lifecycle. Creation is exclusive per item
// (enforced by the store's uniqueness constraint); every other transition is
// compare-and-swap on the expected status. Transitions publish events the
// notification side consumes.
type Service struct {
	store           Store
	bus             events.Publisher
	autoApproveCost float64 // 0 disables the auto-approval hook
	logger          *zap.Logger
	now             func() time.Time
}

// New creates a plan service
func New(store Store, bus events.Publisher, autoApproveCost float64, logger *zap.Logger) *Service {
	return &Service{
		store:           store,
		bus:             bus,
		autoApproveCost: autoApproveCost,
		logger:          logger,
		now:             time.Now,
	}
}

// Create opens a plan for the item and publishes the low-stock alert. A
// second create while a plan is active returns ConflictError — callers treat
// that as "already tracked". Plans at or under the auto-approval cost go
// straight through the normal Pending -> Approved transition.
func (s *Service) Create(ctx context.Context, item *domain.InventoryItem, decision *domain.ReorderDecision) (*domain.ReorderPlan, error) {
	plan := domain.NewReorderPlan(item, decision)

	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.Info("Reorder plan created",
		zap.String("plan_id", plan.PlanID.String()),
		zap.String("item_id", plan.ItemID),
		zap.String("priority", string(plan.Priority)),
		zap.Int("quantity", plan.Quantity),
		zap.Float64("estimated_cost", plan.EstimatedCost),
	)

	if s.autoApproveCost > 0 && plan.EstimatedCost <= s.autoApproveCost {
		approved, err := s.Approve(ctx, plan.PlanID.String())
		if err != nil {
			s.logger.Warn("Auto-approval failed, plan stays pending",
				zap.String("plan_id", plan.PlanID.String()), zap.Error(err))
		} else {
			plan = approved
			s.logger.Info("Plan auto-approved under cost threshold",
				zap.String("plan_id", plan.PlanID.String()),
				zap.Float64("estimated_cost", plan.EstimatedCost),
				zap.Float64("threshold", s.autoApproveCost),
			)
		}
	}

	alert := domain.NewAlert(item, decision.Priority, plan.PlanID.String(), s.now())
	if err := s.bus.Publish(ctx, alert); err != nil {
		// The plan exists either way; a lost alert is a reported fault for
		// manual remediation, not a rollback.
		s.logger.Error("Failed to publish low-stock alert",
			zap.String("plan_id", plan.PlanID.String()),
			zap.String("item_id", plan.ItemID),
			zap.Error(err),
		)
	}

	return plan, nil
}

// Approve moves a pending plan to Approved
func (s *Service) Approve(ctx context.Context, planID string) (*domain.ReorderPlan, error) {
	return s.transition(ctx, planID, domain.StatusPending, domain.StatusApproved)
}

// Reject moves a pending plan to Rejected
func (s *Service) Reject(ctx context.Context, planID string) (*domain.ReorderPlan, error) {
	return s.transition(ctx, planID, domain.StatusPending, domain.StatusRejected)
}

// PlaceOrder moves an approved plan to Ordered, recording the order
// confirmation token when the supplier returned one
func (s *Service) PlaceOrder(ctx context.Context, planID, orderRef string) (*domain.ReorderPlan, error) {
	plan, err := s.transition(ctx, planID, domain.StatusApproved, domain.StatusOrdered)
	if err != nil {
		return nil, err
	}
	if orderRef != "" {
		if err := s.store.SetExternalPageRef(ctx, planID, orderRef); err != nil {
			s.logger.Warn("Failed to record order reference",
				zap.String("plan_id", planID), zap.Error(err))
		} else {
			plan.ExternalPageRef = orderRef
		}
	}
	return plan, nil
}

// ConfirmReceipt moves an ordered plan to Received
func (s *Service) ConfirmReceipt(ctx context.Context, planID string) (*domain.ReorderPlan, error) {
	return s.transition(ctx, planID, domain.StatusOrdered, domain.StatusReceived)
}

// Cancel moves any active plan to Cancelled
func (s *Service) Cancel(ctx context.Context, planID string) (*domain.ReorderPlan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status.Terminal() {
		return nil, errors.NewInvalidTransitionError(planID, string(plan.Status), string(domain.StatusCancelled))
	}
	return s.transition(ctx, planID, plan.Status, domain.StatusCancelled)
}

// Decide applies an approval-channel verdict. Replays of a decision already
// applied to the plan are no-ops so at-least-once webhook delivery stays
// harmless; applied reports whether this call changed anything.
func (s *Service) Decide(ctx context.Context, planID string, decision Decision) (plan *domain.ReorderPlan, applied bool, err error) {
	switch decision {
	case DecisionApprove:
		plan, err = s.Approve(ctx, planID)
	case DecisionReject:
		plan, err = s.Reject(ctx, planID)
	default:
		return nil, false, errors.NewValidationError("decision must be approve or reject", "decision")
	}

	if err == nil {
		return plan, true, nil
	}
	if !errors.IsCode(err, errors.CodeInvalidTransition) {
		return nil, false, err
	}

	// Transition failed: a duplicate delivery of an already-applied decision
	// is fine, anything else is a genuine invalid transition.
	current, getErr := s.store.GetPlan(ctx, planID)
	if getErr != nil {
		return nil, false, getErr
	}
	if decisionAlreadyApplied(decision, current.Status) {
		s.logger.Info("Duplicate approval delivery ignored",
			zap.String("plan_id", planID),
			zap.String("decision", string(decision)),
			zap.String("status", string(current.Status)),
		)
		return current, false, nil
	}
	return nil, false, err
}

func decisionAlreadyApplied(decision Decision, status domain.PlanStatus) bool {
	switch decision {
	case DecisionApprove:
		return status == domain.StatusApproved || status == domain.StatusOrdered || status == domain.StatusReceived
	case DecisionReject:
		return status == domain.StatusRejected
	}
	return false
}

// Get returns one plan
func (s *Service) Get(ctx context.Context, planID string) (*domain.ReorderPlan, error) {
	return s.store.GetPlan(ctx, planID)
}

// List returns plans, optionally filtered by status
func (s *Service) List(ctx context.Context, status domain.PlanStatus) ([]*domain.ReorderPlan, error) {
	return s.store.ListPlans(ctx, status)
}

func (s *Service) transition(ctx context.Context, planID string, from, to domain.PlanStatus) (*domain.ReorderPlan, error) {
	if err := s.store.Transition(ctx, planID, from, to); err != nil {
		return nil, err
	}

	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Plan transitioned",
		zap.String("plan_id", planID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	ev := events.PlanTransitionEvent{
		PlanID:        planID,
		ItemID:        plan.ItemID,
		ItemName:      plan.ItemName,
		From:          from,
		To:            to,
		Supplier:      supplierAddress(plan),
		Quantity:      plan.Quantity,
		EstimatedCost: plan.EstimatedCost,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Error("Failed to publish plan transition event",
			zap.String("plan_id", planID),
			zap.String("to", string(to)),
			zap.Error(err),
		)
	}

	return plan, nil
}

func supplierAddress(plan *domain.ReorderPlan) string {
	if plan.Supplier.Contact != "" {
		return plan.Supplier.Contact
	}
	return plan.Supplier.Name
}
