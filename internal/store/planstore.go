package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// PlanStore persists reorder plans and notification attempts in SQLite using
// the Single Writer Principle: one connection, serialized writes.
//
// The "one active plan per item" invariant lives in the schema as a partial
// unique index, so concurrent create attempts race on the index rather than
// on application locks. Transitions are compare-and-swap on
// (plan_id, expected_status).
type PlanStore struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// Open opens (or creates) the plan database at path. Use ":memory:" in tests.
func Open(path string, logger *zap.Logger) (*PlanStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &PlanStore{db: db, logger: logger}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *PlanStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reorder_plans (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		supplier_name TEXT NOT NULL DEFAULT '',
		supplier_contact TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL,
		estimated_cost REAL NOT NULL,
		priority TEXT NOT NULL,
		justification TEXT NOT NULL DEFAULT '',
		depletion_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Pending',
		external_page_ref TEXT NOT NULL DEFAULT '',
		needs_follow_up INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK(quantity > 0),
		CHECK(estimated_cost >= 0),
		CHECK(priority IN ('High', 'Medium', 'Low')),
		CHECK(status IN ('Pending', 'Approved', 'Ordered', 'Received', 'Cancelled', 'Rejected')),
		CHECK(needs_follow_up IN (0, 1))
	);

	-- One active (non-terminal) plan per item. Concurrent creates for the same
	-- item collide here instead of in application code.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_plans_active_item
		ON reorder_plans(item_id)
		WHERE status IN ('Pending', 'Approved', 'Ordered');

	CREATE INDEX IF NOT EXISTS idx_plans_item_id ON reorder_plans(item_id);
	CREATE INDEX IF NOT EXISTS idx_plans_status ON reorder_plans(status);

	CREATE TABLE IF NOT EXISTS notification_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plan_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error_kind TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		CHECK(channel IN ('mail', 'page')),
		CHECK(outcome IN ('Succeeded', 'Failed'))
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_plan_id ON notification_attempts(plan_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *PlanStore) Close() error {
	return s.db.Close()
}

// CreatePlan inserts a plan in Pending. A second active plan for the same
// item violates the partial unique index and is reported as ConflictError.
func (s *PlanStore) CreatePlan(ctx context.Context, plan *domain.ReorderPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO reorder_plans
			(id, item_id, item_name, supplier_name, supplier_contact, quantity, estimated_cost, priority, justification, depletion_date, status, external_page_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	depletion := ""
	if plan.DepletionDate != nil {
		depletion = plan.DepletionDate.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, query,
		plan.PlanID.String(), plan.ItemID, plan.ItemName,
		plan.Supplier.Name, plan.Supplier.Contact,
		plan.Quantity, plan.EstimatedCost, string(plan.Priority), plan.Justification,
		depletion, string(plan.Status), plan.ExternalPageRef,
		plan.CreatedAt.UTC().Format(time.RFC3339), plan.UpdatedAt.UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError("an active plan already exists for this item", plan.ItemID)
		}
		return errors.NewDatabaseError("create plan", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Transition applies a compare-and-swap status change. A status mismatch is
// InvalidTransitionError carrying the actual status; a missing plan is
// NotFound. It never blocks on a competing transition.
func (s *PlanStore) Transition(ctx context.Context, planID string, from, to domain.PlanStatus) error {
	if !from.CanTransitionTo(to) {
		return errors.NewInvalidTransitionError(planID, string(from), string(to))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE reorder_plans
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		string(to), time.Now().UTC().Format(time.RFC3339),
		planID, string(from),
	)
	if err != nil {
		return errors.NewDatabaseError("transition plan", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("transition plan", err)
	}

	if rowsAffected == 0 {
		actual, err := s.currentStatus(ctx, planID)
		if err != nil {
			return err
		}
		return errors.NewInvalidTransitionError(planID, string(actual), string(to))
	}

	return nil
}

func (s *PlanStore) currentStatus(ctx context.Context, planID string) (domain.PlanStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM reorder_plans WHERE id = ?`, planID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", errors.NewNotFound("plan", planID)
	}
	if err != nil {
		return "", errors.NewDatabaseError("read plan status", err)
	}
	return domain.PlanStatus(status), nil
}

// GetPlan fetches a single plan by id
func (s *PlanStore) GetPlan(ctx context.Context, planID string) (*domain.ReorderPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, item_id, item_name, supplier_name, supplier_contact, quantity, estimated_cost, priority, justification, depletion_date,
		       status, external_page_ref, needs_follow_up, created_at, updated_at
		FROM reorder_plans WHERE id = ?
	`, planID)

	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("plan", planID)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("read plan", err)
	}
	return plan, nil
}

// ActivePlanForItem returns the item's non-terminal plan, or NotFound
func (s *PlanStore) ActivePlanForItem(ctx context.Context, itemID string) (*domain.ReorderPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, item_id, item_name, supplier_name, supplier_contact, quantity, estimated_cost, priority, justification, depletion_date,
		       status, external_page_ref, needs_follow_up, created_at, updated_at
		FROM reorder_plans
		WHERE item_id = ? AND status IN ('Pending', 'Approved', 'Ordered')
	`, itemID)

	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("active plan", itemID)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("read active plan", err)
	}
	return plan, nil
}

// ListPlans returns plans newest first, optionally filtered by status
func (s *PlanStore) ListPlans(ctx context.Context, status domain.PlanStatus) ([]*domain.ReorderPlan, error) {
	query := `
		SELECT id, item_id, item_name, supplier_name, supplier_contact, quantity, estimated_cost, priority, justification, depletion_date,
		       status, external_page_ref, needs_follow_up, created_at, updated_at
		FROM reorder_plans
	`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("list plans", err)
	}
	defer rows.Close()

	var plans []*domain.ReorderPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("scan plan", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list plans", err)
	}
	return plans, nil
}

// SetExternalPageRef records the mirrored page id after a successful sync
func (s *PlanStore) SetExternalPageRef(ctx context.Context, planID, pageRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE reorder_plans SET external_page_ref = ?, updated_at = ? WHERE id = ?
	`, pageRef, time.Now().UTC().Format(time.RFC3339), planID)
	if err != nil {
		return errors.NewDatabaseError("set page ref", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFound("plan", planID)
	}
	return nil
}

// FlagFollowUp marks a plan whose notification exhausted its retries
func (s *PlanStore) FlagFollowUp(ctx context.Context, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE reorder_plans SET needs_follow_up = 1, updated_at = ? WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339), planID)
	if err != nil {
		return errors.NewDatabaseError("flag follow-up", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFound("plan", planID)
	}
	return nil
}

// RecordAttempt persists one notification attempt for auditability
func (s *PlanStore) RecordAttempt(ctx context.Context, attempt *domain.NotificationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_attempts (plan_id, channel, attempt_number, outcome, error_kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, attempt.PlanID, attempt.Channel, attempt.AttemptNumber,
		string(attempt.Outcome), attempt.ErrorKind, attempt.Timestamp.UTC().Format(time.RFC3339))
	if err != nil {
		return errors.NewDatabaseError("record attempt", err)
	}
	return nil
}

// AttemptsForPlan returns recorded attempts, oldest first
func (s *PlanStore) AttemptsForPlan(ctx context.Context, planID string) ([]*domain.NotificationAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT plan_id, channel, attempt_number, outcome, error_kind, created_at
		FROM notification_attempts WHERE plan_id = ? ORDER BY id ASC
	`, planID)
	if err != nil {
		return nil, errors.NewDatabaseError("list attempts", err)
	}
	defer rows.Close()

	var attempts []*domain.NotificationAttempt
	for rows.Next() {
		var a domain.NotificationAttempt
		var outcome, createdAt string
		if err := rows.Scan(&a.PlanID, &a.Channel, &a.AttemptNumber, &outcome, &a.ErrorKind, &createdAt); err != nil {
			return nil, errors.NewDatabaseError("scan attempt", err)
		}
		a.Outcome = domain.AttemptOutcome(outcome)
		a.Timestamp, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.NewDatabaseError("scan attempt", err)
		}
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list attempts", err)
	}
	return attempts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (*domain.ReorderPlan, error) {
	var p domain.ReorderPlan
	var id, priority, status, depletion, createdAt, updatedAt string
	var followUp int

	err := row.Scan(&id, &p.ItemID, &p.ItemName, &p.Supplier.Name, &p.Supplier.Contact,
		&p.Quantity, &p.EstimatedCost,
		&priority, &p.Justification, &depletion, &status, &p.ExternalPageRef, &followUp, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	planID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	p.PlanID = planID
	p.Priority = domain.Priority(priority)
	p.Status = domain.PlanStatus(status)
	p.NeedsFollowUp = followUp == 1

	if depletion != "" {
		d, err := time.Parse(time.RFC3339, depletion)
		if err != nil {
			return nil, err
		}
		p.DepletionDate = &d
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, err
	}

	return &p, nil
}
