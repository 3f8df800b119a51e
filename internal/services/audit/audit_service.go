package audit

import (
	"context"
	"fmt"
	"log/slog"
)

type AuditService struct {
	repo *AuditRepo
}

func NewAuditService(repo *AuditRepo) *AuditService {
	return &AuditService{repo: repo}
}

// Record appends an audit entry. Failures are logged and swallowed so that a
// broken audit sink never fails the operation being audited.
func (s *AuditService) Record(ctx context.Context, entry *Entry) {
	if _, err := s.repo.Insert(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "Unable to record audit entry",
			slog.String("action", entry.Action),
			slog.String("entity_type", entry.EntityType),
			slog.Any("error", err))
	}
}

func (s *AuditService) List(ctx context.Context, q *Query) ([]*Entry, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}

	entries, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit trail: %w", err)
	}

	if entries == nil {
		entries = []*Entry{}
	}

	return entries, total, nil
}
