package services

import (
	"context"
	"log"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/cosify/cosify/internal/config"
	"github.com/cosify/cosify/internal/db"
	"github.com/cosify/cosify/internal/pubsub"
	"github.com/cosify/cosify/internal/services/analytics"
	"github.com/cosify/cosify/internal/services/audit"
	"github.com/cosify/cosify/internal/services/credit"
	"github.com/cosify/cosify/internal/services/flowrun"
	"github.com/cosify/cosify/internal/services/invite"
	"github.com/cosify/cosify/internal/services/pipeline"
	"github.com/cosify/cosify/internal/services/user"
	"github.com/cosify/cosify/internal/storage"
	"github.com/cosify/cosify/pkg/genapi"
)

type Services struct {
	User      *user.UserService
	Credit    *credit.CreditService
	Invite    *invite.InviteService
	Audit     *audit.AuditService
	FlowRun   *flowrun.FlowRunService
	Pipeline  *pipeline.PipelineService
	Analytics *analytics.AnalyticsService
	Store     storage.ObjectStore
	PubSub    *pubsub.PubSub
}

func NewServices(conf *config.Config) *Services {
	dbconn := db.NewConn(conf)

	var cache *redis.Client
	if conf.REDIS_ADDR != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     conf.REDIS_ADDR,
			Password: conf.REDIS_PASSWORD,
		})
		if err := cache.Ping(context.Background()).Err(); err != nil {
			slog.Warn("Failed to connect to Redis, balance caching disabled", slog.Any("error", err))
			cache = nil
		} else {
			slog.Info("Connected to Redis for balance caching")
		}
	}

	var analyticsSvc *analytics.AnalyticsService
	if conf.CLICKHOUSE_HOST != "" {
		chConn, err := analytics.NewClickHouseConn(&analytics.ClickHouseConfig{
			Host:     conf.CLICKHOUSE_HOST,
			Port:     conf.CLICKHOUSE_PORT,
			Database: conf.CLICKHOUSE_DATABASE,
			Username: conf.CLICKHOUSE_USERNAME,
			Password: conf.CLICKHOUSE_PASSWORD,
			UseTLS:   conf.CLICKHOUSE_USE_TLS,
		})
		if err != nil {
			slog.Warn("Failed to connect to ClickHouse for analytics", slog.Any("error", err))
		} else {
			analyticsSvc = analytics.NewAnalyticsService(chConn)
			slog.Info("Connected to ClickHouse for analytics")
		}
	}

	store, err := storage.NewR2Store(context.Background(), conf)
	if err != nil {
		log.Fatal("Failed to initialize object storage: ", err)
	}

	auditSvc := audit.NewAuditService(audit.NewAuditRepo(dbconn))
	creditSvc := credit.NewCreditService(credit.NewCreditRepo(dbconn), cache)
	flowRunSvc := flowrun.NewFlowRunService(flowrun.NewFlowRunRepo(dbconn), store)

	// A typed nil would look non-nil behind the interface.
	var tracker pipeline.EventTracker
	if analyticsSvc != nil {
		tracker = analyticsSvc
	}

	gen := genapi.NewClient(&genapi.ClientOptions{
		BaseURL: conf.GENAPI_BASE_URL,
		ApiKey:  conf.GENAPI_API_KEY,
		Model:   conf.GENAPI_MODEL,
	})

	svc := &Services{
		User:      user.NewUserService(user.NewUserRepo(dbconn), creditSvc, auditSvc),
		Credit:    creditSvc,
		Invite:    invite.NewInviteService(invite.NewInviteRepo(dbconn), creditSvc, auditSvc),
		Audit:     auditSvc,
		FlowRun:   flowRunSvc,
		Pipeline:  pipeline.NewPipelineService(gen, store, creditSvc, flowRunSvc, tracker),
		Analytics: analyticsSvc,
		Store:     store,
		PubSub:    pubsub.NewPubSub(conf),
	}

	// Other instances write the ledger too, their notifications drop our
	// cached balances.
	svc.PubSub.Subscribe(func(event pubsub.LedgerChangeEvent) {
		if event.UserID != "" {
			creditSvc.InvalidateBalance(context.Background(), event.UserID)
		}
	})
	if err := svc.PubSub.Start(); err != nil {
		slog.Warn("Failed to start ledger change listener", slog.Any("error", err))
	}

	return svc
}
