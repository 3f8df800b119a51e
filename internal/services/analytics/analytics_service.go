package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// AnalyticsService records usage events and serves aggregates for the admin
// dashboard. It is optional: the server runs without it when ClickHouse is
// not configured.
type AnalyticsService struct {
	conn driver.Conn
}

func NewAnalyticsService(conn driver.Conn) *AnalyticsService {
	return &AnalyticsService{conn: conn}
}

// Track is fire-and-forget: the write happens off the request path and
// failures are only logged.
func (s *AnalyticsService) Track(ctx context.Context, event *Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		err := s.conn.AsyncInsert(ctx, `
			INSERT INTO usage_events (EventType, UserId, EntityId, Amount)
			VALUES (?, ?, ?, ?)
		`, false, string(event.Type), event.UserID, event.EntityID, event.Amount)
		if err != nil {
			slog.WarnContext(ctx, "Unable to record usage event",
				slog.String("event_type", string(event.Type)),
				slog.Any("error", err))
		}
	}()
}

// Summary returns per-day, per-event-type counts over the trailing window.
func (s *AnalyticsService) Summary(ctx context.Context, days int) ([]SummaryRow, error) {
	if days <= 0 {
		days = 30
	}
	if days > 180 {
		days = 180
	}

	rows, err := s.conn.Query(ctx, `
		SELECT
			toStartOfDay(Timestamp) as Day,
			EventType,
			count() as Count,
			sum(Amount) as TotalValue
		FROM usage_events
		WHERE Timestamp >= now() - INTERVAL ? DAY
		GROUP BY Day, EventType
		ORDER BY Day DESC, EventType
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage events: %w", err)
	}
	defer rows.Close()

	var summary []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.Day, &row.EventType, &row.Count, &row.TotalValue); err != nil {
			return nil, fmt.Errorf("failed to scan usage event row: %w", err)
		}
		summary = append(summary, row)
	}

	if summary == nil {
		summary = []SummaryRow{}
	}

	return summary, nil
}
