package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/redis/go-redis/v9"
)

const balanceCacheTTL = 30 * time.Second

type CreditService struct {
	repo  *CreditRepo
	cache *redis.Client
}

// NewCreditService creates the ledger service. cache may be nil, in which case
// every Balance call hits the database.
func NewCreditService(repo *CreditRepo, cache *redis.Client) *CreditService {
	return &CreditService{repo: repo, cache: cache}
}

// Grant appends a positive transaction to the user's ledger.
func (s *CreditService) Grant(ctx context.Context, userID string, amount int64, typ TransactionType, reason string, expiresAt *time.Time) (*CreditTransaction, error) {
	if amount <= 0 {
		return nil, perrors.NewErrInvalidInput("Grant amount must be positive", fmt.Errorf("invalid amount %d", amount))
	}
	if typ == "" {
		typ = TypeGrant
	}
	if !typ.Valid() || typ == TypeConsumption {
		return nil, perrors.NewErrInvalidInput("Invalid transaction type", fmt.Errorf("invalid type %q", typ))
	}

	tx, err := s.repo.Insert(ctx, userID, amount, typ, reason, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to grant credits: %w", err)
	}

	s.InvalidateBalance(ctx, userID)

	return tx, nil
}

// Adjust appends a signed admin adjustment. Unlike Consume, a negative
// adjustment is not balance-guarded; only consumption transactions refuse
// to take the balance below zero.
func (s *CreditService) Adjust(ctx context.Context, userID string, amount int64, reason string, expiresAt *time.Time) (*CreditTransaction, error) {
	if amount == 0 {
		return nil, perrors.NewErrInvalidInput("Adjustment amount must be non-zero", errors.New("zero amount"))
	}

	tx, err := s.repo.Insert(ctx, userID, amount, TypeAdminAdjustment, reason, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust credits: %w", err)
	}

	s.InvalidateBalance(ctx, userID)

	return tx, nil
}

// Consume appends a negative transaction only if the current non-expired
// balance covers the amount.
func (s *CreditService) Consume(ctx context.Context, userID string, amount int64, reason string) (*CreditTransaction, error) {
	if amount <= 0 {
		return nil, perrors.NewErrInvalidInput("Consume amount must be positive", fmt.Errorf("invalid amount %d", amount))
	}

	tx, err := s.repo.InsertConsumption(ctx, userID, amount, reason)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, perrors.New(perrors.ErrCodeInsufficientCredits, "Not enough credits", err, map[string]interface{}{"user_id": userID, "amount": amount})
		}
		return nil, fmt.Errorf("failed to consume credits: %w", err)
	}

	s.InvalidateBalance(ctx, userID)

	return tx, nil
}

// Balance returns the sum of the user's non-expired transactions.
func (s *CreditService) Balance(ctx context.Context, userID string) (int64, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, balanceCacheKey(userID)).Result()
		if err == nil {
			if balance, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
				return balance, nil
			}
		}
	}

	balance, err := s.repo.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, balanceCacheKey(userID), strconv.FormatInt(balance, 10), balanceCacheTTL).Err(); err != nil {
			slog.WarnContext(ctx, "Unable to cache balance", slog.String("user_id", userID), slog.Any("error", err))
		}
	}

	return balance, nil
}

func (s *CreditService) History(ctx context.Context, userID string, limit int) ([]*CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	txs, err := s.repo.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	if txs == nil {
		txs = []*CreditTransaction{}
	}

	return txs, nil
}

// InvalidateBalance drops the cached balance for a user. Called after every
// ledger write and by the LISTEN/NOTIFY listener when another instance writes.
func (s *CreditService) InvalidateBalance(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, balanceCacheKey(userID)).Err(); err != nil {
		slog.WarnContext(ctx, "Unable to invalidate balance cache", slog.String("user_id", userID), slog.Any("error", err))
	}
}

func balanceCacheKey(userID string) string {
	return "credits:balance:" + userID
}
