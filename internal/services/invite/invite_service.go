package invite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services/audit"
	"github.com/cosify/cosify/internal/services/credit"
)

// createAttempts bounds retries when a generated code collides.
const createAttempts = 5

type InviteService struct {
	repo    *InviteRepo
	credits *credit.CreditService
	auditor *audit.AuditService
}

func NewInviteService(repo *InviteRepo, credits *credit.CreditService, auditor *audit.AuditService) *InviteService {
	return &InviteService{repo: repo, credits: credits, auditor: auditor}
}

func (s *InviteService) Create(ctx context.Context, createdBy, creatorEmail string, req *CreateInviteCodeRequest) (*InviteCode, error) {
	if req.MaxUses <= 0 {
		return nil, perrors.NewErrInvalidInput("maxUses must be positive", fmt.Errorf("invalid maxUses %d", req.MaxUses))
	}
	if req.CreditBonus < 0 {
		return nil, perrors.NewErrInvalidInput("creditBonus cannot be negative", fmt.Errorf("invalid creditBonus %d", req.CreditBonus))
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, perrors.NewErrInvalidInput("expiresAt is in the past", errors.New("expiry before now"))
	}

	var created *InviteCode
	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := GenerateCode(DefaultCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate invite code: %w", err)
		}

		created, err = s.repo.Create(ctx, code, createdBy, req)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateCode) {
			continue
		}
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("failed to create invite code after %d attempts", createAttempts)
	}

	s.auditor.Record(ctx, &audit.Entry{
		Action:     "invite_code.created",
		ActorID:    &createdBy,
		ActorEmail: creatorEmail,
		EntityType: "invite_code",
		EntityID:   created.ID,
		NewValue:   audit.JSONMap{"code": created.Code, "max_uses": created.MaxUses, "credit_bonus": created.CreditBonus},
	})

	return created, nil
}

// Validate checks a code and reports the outcome in the result, never as an
// error. Unknown and malformed codes both come back as NOT_FOUND.
func (s *InviteService) Validate(ctx context.Context, code string) (*ValidationResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !ValidCodeFormat(code) {
		return &ValidationResult{Valid: false, Error: ValidationErrNotFound}, nil
	}

	ic, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return &ValidationResult{Valid: false, Error: ValidationErrNotFound}, nil
		}
		return nil, err
	}

	return s.validationResult(ic), nil
}

func (s *InviteService) validationResult(ic *InviteCode) *ValidationResult {
	switch {
	case !ic.Active:
		return &ValidationResult{Valid: false, Error: ValidationErrInactive}
	case ic.ExpiresAt != nil && ic.ExpiresAt.Before(time.Now()):
		return &ValidationResult{Valid: false, Error: ValidationErrExpired}
	case ic.CurrentUses >= ic.MaxUses:
		return &ValidationResult{Valid: false, Error: ValidationErrExhausted}
	}

	return &ValidationResult{
		Valid:         true,
		RemainingUses: ic.MaxUses - ic.CurrentUses,
		CreditBonus:   ic.CreditBonus,
	}
}

// Redeem takes one use slot for the user and grants the code's credit bonus.
func (s *InviteService) Redeem(ctx context.Context, code, userID, userEmail string) (*RedeemResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !ValidCodeFormat(code) {
		return nil, s.validationError(ValidationErrNotFound)
	}

	ic, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return nil, s.validationError(ValidationErrNotFound)
		}
		return nil, err
	}

	if result := s.validationResult(ic); !result.Valid {
		return nil, s.validationError(result.Error)
	}

	redemption, err := s.repo.Redeem(ctx, ic.ID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyRedeemed):
			return nil, perrors.New(perrors.ErrCodeAlreadyRedeemed, "Invite code already redeemed", err, map[string]interface{}{"code": code, "user_id": userID})
		case errors.Is(err, ErrNoUsesLeft):
			return nil, perrors.New(perrors.ErrCodeCodeExhausted, "Invite code has no uses left", err, map[string]interface{}{"code": code})
		}
		return nil, err
	}

	if ic.CreditBonus > 0 {
		if _, err := s.credits.Grant(ctx, userID, ic.CreditBonus, credit.TypeGrant, "invite code "+ic.Code, nil); err != nil {
			return nil, fmt.Errorf("failed to grant invite bonus: %w", err)
		}
	}

	s.auditor.Record(ctx, &audit.Entry{
		Action:     "invite_code.redeemed",
		ActorID:    &userID,
		ActorEmail: userEmail,
		EntityType: "invite_code",
		EntityID:   ic.ID,
		NewValue:   audit.JSONMap{"code": ic.Code, "credit_bonus": ic.CreditBonus},
	})

	return &RedeemResult{Redemption: redemption, CreditBonus: ic.CreditBonus}, nil
}

func (s *InviteService) validationError(code string) error {
	switch code {
	case ValidationErrExpired:
		return perrors.New(perrors.ErrCodeCodeExpired, "Invite code expired", errors.New("code expired"))
	case ValidationErrExhausted:
		return perrors.New(perrors.ErrCodeCodeExhausted, "Invite code has no uses left", errors.New("code exhausted"))
	case ValidationErrInactive:
		return perrors.New(perrors.ErrCodeCodeExhausted, "Invite code deactivated", errors.New("code inactive"))
	default:
		return perrors.NewErrNotFound("Invite code not found", errors.New("code not found"))
	}
}

func (s *InviteService) List(ctx context.Context) ([]*InviteCode, error) {
	codes, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if codes == nil {
		codes = []*InviteCode{}
	}

	return codes, nil
}

func (s *InviteService) Deactivate(ctx context.Context, actorID, actorEmail, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return perrors.NewErrNotFound("Invite code not found", err)
		}
		return err
	}

	s.auditor.Record(ctx, &audit.Entry{
		Action:     "invite_code.deactivated",
		ActorID:    &actorID,
		ActorEmail: actorEmail,
		EntityType: "invite_code",
		EntityID:   id,
	})

	return nil
}
