package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services/audit"
	"github.com/cosify/cosify/internal/services/credit"
	"golang.org/x/crypto/bcrypt"
)

const (
	// Every new account may claim this once.
	SignupBonusAmount = int64(100)
	SignupBonusTTL    = 365 * 24 * time.Hour
)

type UserService struct {
	repo    *UserRepo
	credits *credit.CreditService
	auditor *audit.AuditService
}

func NewUserService(repo *UserRepo, credits *credit.CreditService, auditor *audit.AuditService) *UserService {
	return &UserService{repo: repo, credits: credits, auditor: auditor}
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !user.PasswordAuthEnabled {
		return nil, fmt.Errorf("password authentication is disabled for this user")
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, fmt.Errorf("invalid password")
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// EnsureUser creates the account record on first authentication. Role defaults
// to free_user.
func (s *UserService) EnsureUser(ctx context.Context, id, email string) (*User, error) {
	if id == "" || email == "" {
		return nil, perrors.NewErrInvalidInput("userId and email are required", errors.New("missing user identity"))
	}

	return s.repo.Ensure(ctx, id, email)
}

// List returns a page of users for the admin back-office.
func (s *UserService) List(ctx context.Context, q *ListUsersQuery) ([]*User, *Pagination, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Role != "" && !q.Role.Valid() {
		return nil, nil, perrors.NewErrInvalidInput("Invalid role filter", fmt.Errorf("unknown role %q", q.Role))
	}

	users, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	if users == nil {
		users = []*User{}
	}

	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	pagination := &Pagination{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: totalPages,
	}

	return users, pagination, nil
}

// ClaimSignupBonus grants the one-shot signup credit. The claimed flag is
// flipped by a conditional update, so concurrent claims cannot double-grant.
func (s *UserService) ClaimSignupBonus(ctx context.Context, userID, email string) (*SignupBonusResult, error) {
	u, err := s.EnsureUser(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	claimed, err := s.repo.MarkSignupBonusClaimed(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim signup bonus: %w", err)
	}
	if !claimed {
		return nil, perrors.New(perrors.ErrCodeBonusAlreadyClaimed, "Signup bonus already claimed", errors.New("bonus already claimed"), map[string]interface{}{"user_id": u.ID})
	}

	expiresAt := time.Now().UTC().Add(SignupBonusTTL)
	if _, err := s.credits.Grant(ctx, u.ID, SignupBonusAmount, credit.TypeGrant, "signup bonus", &expiresAt); err != nil {
		return nil, fmt.Errorf("failed to grant signup bonus: %w", err)
	}

	s.auditor.Record(ctx, &audit.Entry{
		Action:     "signup_bonus.granted",
		ActorID:    &u.ID,
		ActorEmail: u.Email,
		EntityType: "user",
		EntityID:   u.ID,
		NewValue:   audit.JSONMap{"bonus_amount": SignupBonusAmount, "expires_at": expiresAt},
	})

	return &SignupBonusResult{BonusAmount: SignupBonusAmount, ExpiresAt: expiresAt}, nil
}

// SetRole changes a user's role and audit-logs the transition.
func (s *UserService) SetRole(ctx context.Context, actor *User, userID string, role UserRole) (*User, error) {
	if !role.Valid() {
		return nil, perrors.NewErrInvalidInput("Invalid role", fmt.Errorf("unknown role %q", role))
	}

	target, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, perrors.NewErrNotFound("User not found", err)
		}
		return nil, err
	}

	if err := s.repo.SetRole(ctx, target.ID, role); err != nil {
		return nil, fmt.Errorf("failed to set role: %w", err)
	}

	s.auditor.Record(ctx, &audit.Entry{
		Action:     "user.role_changed",
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		EntityType: "user",
		EntityID:   target.ID,
		OldValue:   audit.JSONMap{"role": target.Role},
		NewValue:   audit.JSONMap{"role": role},
	})

	target.Role = role
	return target, nil
}

// AdjustCredits applies an admin credit adjustment and audit-logs it.
func (s *UserService) AdjustCredits(ctx context.Context, actor *User, userID string, amount int64, reason string, expiresAt *time.Time) (*credit.CreditTransaction, error) {
	target, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, perrors.NewErrNotFound("User not found", err)
		}
		return nil, err
	}

	tx, err := s.credits.Adjust(ctx, target.ID, amount, reason, expiresAt)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, &audit.Entry{
		Action:     "user.credits_adjusted",
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		EntityType: "user",
		EntityID:   target.ID,
		NewValue:   audit.JSONMap{"amount": amount, "reason": reason},
	})

	return tx, nil
}
