package interest

import (
	"context"
	"fmt"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/google/uuid"
)

// GetAccountUseCase - use case для получения счёта по ID.
type GetAccountUseCase struct {
	accountRepo ports.AccountRepository
}

// NewGetAccountUseCase создаёт новый use case.
func NewGetAccountUseCase(accountRepo ports.AccountRepository) *GetAccountUseCase {
	return &GetAccountUseCase{
		accountRepo: accountRepo,
	}
}

// Execute возвращает счёт по ID.
func (uc *GetAccountUseCase) Execute(ctx context.Context, query dtos.GetAccountQuery) (*dtos.AccountDTO, error) {
	accountID, err := uuid.Parse(query.AccountID)
	if err != nil {
		return nil, errors.ValidationError{Field: "account_id", Message: "invalid UUID"}
	}

	account, err := uc.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: account %s", errors.ErrAccountNotFound, query.AccountID)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	dto := dtos.ToAccountDTO(account)
	return &dto, nil
}
