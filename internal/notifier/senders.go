package notifier

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogMailSender writes outbound mail to the log instead of a mail provider.
// Deployments swap in a real provider behind the same interface.
type LogMailSender struct {
	Account string // sending account, shown as the from address
	logger  *zap.Logger
}

// NewLogMailSender creates a log-backed mail sender
func NewLogMailSender(account string, logger *zap.Logger) *LogMailSender {
	return &LogMailSender{Account: account, logger: logger}
}

func (s *LogMailSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("Mail sent",
		zap.String("from", s.Account),
		zap.String("to", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}

// MemoryPageSender mirrors plan pages into process memory, standing in for
// the workspace database collaborator. Upserts are keyed by page ref first
// and idempotency key second, so retries and updates land on the same page.
type MemoryPageSender struct {
	WorkspaceDBID string
	logger        *zap.Logger

	mu     sync.Mutex
	pages  map[string]PlanPage // by page ref
	byKey  map[string]string   // idempotency key -> page ref
}

// NewMemoryPageSender creates an in-memory page sender
func NewMemoryPageSender(workspaceDBID string, logger *zap.Logger) *MemoryPageSender {
	return &MemoryPageSender{
		WorkspaceDBID: workspaceDBID,
		logger:        logger,
		pages:         make(map[string]PlanPage),
		byKey:         make(map[string]string),
	}
}

func (s *MemoryPageSender) UpsertPlanPage(ctx context.Context, page PlanPage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := page.ExternalPageRef
	if ref == "" && page.IdempotencyKey != "" {
		ref = s.byKey[page.IdempotencyKey]
	}
	if ref == "" {
		ref = "page-" + uuid.New().String()
	}

	page.ExternalPageRef = ref
	s.pages[ref] = page
	if page.IdempotencyKey != "" {
		s.byKey[page.IdempotencyKey] = ref
	}

	s.logger.Info("Plan page upserted",
		zap.String("workspace_db", s.WorkspaceDBID),
		zap.String("page_ref", ref),
		zap.String("item", page.Item),
		zap.String("status", string(page.Status)),
	)
	return ref, nil
}

// Page returns the stored page for a ref, for inspection
func (s *MemoryPageSender) Page(ref string) (PlanPage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[ref]
	return page, ok
}
