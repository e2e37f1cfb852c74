package notifier

import (
	"fmt"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// Message is an outbound mail draft. All three fields are required before a
// send is attempted.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Validate rejects drafts missing a required field. A bad draft is never
// silently sent.
func (m Message) Validate() error {
	if m.Recipient == "" {
		return errors.NewValidationError("drafted message missing recipient", "recipient")
	}
	if m.Subject == "" {
		return errors.NewValidationError("drafted message missing subject", "subject")
	}
	if m.Body == "" {
		return errors.NewValidationError("drafted message missing body", "body")
	}
	return nil
}

// Drafter produces the outbound message content for an alert. Pluggable so
// content generation (templates, LLM, ...) stays out of the orchestrator.
type Drafter interface {
	DraftAlert(alert *domain.Alert, plan *domain.ReorderPlan) (Message, error)
	DraftOrderRequest(ev *OrderContext) (Message, error)
}

// OrderContext carries what the order-request draft needs after an approval
type OrderContext struct {
	PlanID        string
	ItemName      string
	Supplier      string
	Quantity      int
	EstimatedCost float64
}

// TemplateDrafter renders deterministic plain-text drafts
type TemplateDrafter struct {
	Recipient string // approval recipient (mail account of the operator)
}

// DraftAlert summarizes item, stock, supplier and urgency for the approver
func (d TemplateDrafter) DraftAlert(alert *domain.Alert, plan *domain.ReorderPlan) (Message, error) {
	body := fmt.Sprintf(
		"Item %s (%s) is low on stock.\n\nCurrent stock: %d\nMinimum threshold: %d\nSupplier: %s\nUrgency: %s\n",
		alert.ItemName, alert.ItemID, alert.CurrentStock, alert.MinThreshold, alert.Supplier, alert.Priority)

	if plan != nil {
		body += fmt.Sprintf(
			"\nProposed reorder: %d units, estimated cost %.2f\nJustification: %s\nPlan ID: %s\n",
			plan.Quantity, plan.EstimatedCost, plan.Justification, plan.PlanID)
	}

	return Message{
		Recipient: d.Recipient,
		Subject:   fmt.Sprintf("[%s] Low stock: %s", alert.Priority, alert.ItemName),
		Body:      body,
	}, nil
}

// DraftOrderRequest writes the purchase request sent once a plan is approved
func (d TemplateDrafter) DraftOrderRequest(oc *OrderContext) (Message, error) {
	return Message{
		Recipient: oc.Supplier,
		Subject:   fmt.Sprintf("Purchase order request: %s", oc.ItemName),
		Body: fmt.Sprintf(
			"Please supply %d units of %s.\nEstimated cost: %.2f\nReference: %s\n",
			oc.Quantity, oc.ItemName, oc.EstimatedCost, oc.PlanID),
	}, nil
}
