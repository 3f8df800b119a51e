package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/cosify/cosify/internal/config"
)

// LedgerTable identifies which table produced a ledger change notification
type LedgerTable string

const (
	TableCreditTransactions LedgerTable = "credit_transactions"
	TableInviteRedemptions  LedgerTable = "invite_code_redemptions"
)

// LedgerChangeEvent represents a credit-affecting change on another instance
type LedgerChangeEvent struct {
	Table     LedgerTable
	Operation string // INSERT, UPDATE, DELETE, RELOAD
	UserID    string
}

// LedgerChangeHandler is a callback function for ledger changes
type LedgerChangeHandler func(event LedgerChangeEvent)

// PubSub handles PostgreSQL LISTEN/NOTIFY for ledger changes. Instances use
// it to drop stale cached balances when another instance writes the ledger.
type PubSub struct {
	connStr  string
	listener *pq.Listener
	handlers []LedgerChangeHandler
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPubSub creates a new PubSub instance
func NewPubSub(conf *config.Config) *PubSub {
	ctx, cancel := context.WithCancel(context.Background())

	return &PubSub{
		connStr:  conf.ConnString(),
		handlers: make([]LedgerChangeHandler, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe adds a handler for ledger change events
func (ps *PubSub) Subscribe(handler LedgerChangeHandler) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handlers = append(ps.handlers, handler)
}

// Start begins listening for notifications
func (ps *PubSub) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Error("PubSub listener error", slog.Any("error", err))
		}
		if ev == pq.ListenerEventConnectionAttemptFailed {
			slog.Warn("PubSub connection attempt failed, will retry")
		}
		if ev == pq.ListenerEventDisconnected {
			slog.Warn("PubSub disconnected, will attempt reconnect")
		}
		if ev == pq.ListenerEventReconnected {
			slog.Info("PubSub reconnected, flushing cached balances")
			// Notifications may have been missed while disconnected, so
			// handlers get a RELOAD with no user scoping
			ps.notifyHandlers(LedgerChangeEvent{
				Table:     TableCreditTransactions,
				Operation: "RELOAD",
			})
		}
	}

	ps.listener = pq.NewListener(ps.connStr, 10*time.Second, time.Minute, reportProblem)

	if err := ps.listener.Listen("ledger_changes"); err != nil {
		return fmt.Errorf("failed to listen on ledger_changes channel: %w", err)
	}

	slog.Info("PubSub started listening for ledger changes")

	go ps.processNotifications()

	return nil
}

// Stop closes the listener
func (ps *PubSub) Stop() {
	ps.cancel()
	if ps.listener != nil {
		ps.listener.Close()
	}
	slog.Info("PubSub stopped")
}

func (ps *PubSub) processNotifications() {
	for {
		select {
		case <-ps.ctx.Done():
			return
		case notification := <-ps.listener.Notify:
			if notification == nil {
				// Connection lost, will be handled by reportProblem callback
				continue
			}

			// Parse the payload: "table_name:operation:user_id"
			parts := strings.SplitN(notification.Extra, ":", 3)
			if len(parts) != 3 {
				slog.Warn("Invalid notification payload", slog.String("payload", notification.Extra))
				continue
			}

			event := LedgerChangeEvent{
				Table:     LedgerTable(parts[0]),
				Operation: parts[1],
				UserID:    parts[2],
			}

			slog.Debug("Received ledger change notification",
				slog.String("table", string(event.Table)),
				slog.String("operation", event.Operation),
				slog.String("user_id", event.UserID))

			ps.notifyHandlers(event)
		}
	}
}

func (ps *PubSub) notifyHandlers(event LedgerChangeEvent) {
	ps.mu.RLock()
	handlers := make([]LedgerChangeHandler, len(ps.handlers))
	copy(handlers, ps.handlers)
	ps.mu.RUnlock()

	for _, handler := range handlers {
		// Run handlers in goroutines to avoid blocking the notification loop
		go handler(event)
	}
}
