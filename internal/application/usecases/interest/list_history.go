package interest

import (
	"context"
	"fmt"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/google/uuid"
)

// defaultInterestHistoryLimit - размер страницы истории начислений,
// когда клиент не задал limit.
const defaultInterestHistoryLimit = 30

// ListInterestHistoryUseCase - история начислений по счёту,
// сортировка по calculation_date по убыванию.
type ListInterestHistoryUseCase struct {
	interestRepo ports.InterestLogRepository
}

// NewListInterestHistoryUseCase создаёт новый use case.
func NewListInterestHistoryUseCase(interestRepo ports.InterestLogRepository) *ListInterestHistoryUseCase {
	return &ListInterestHistoryUseCase{interestRepo: interestRepo}
}

// Execute возвращает страницу истории начислений счёта.
func (uc *ListInterestHistoryUseCase) Execute(ctx context.Context, query dtos.ListInterestHistoryQuery) (*dtos.InterestHistoryDTO, error) {
	accountID, err := uuid.Parse(query.AccountID)
	if err != nil {
		return nil, errors.ValidationError{Field: "account_id", Message: "invalid UUID"}
	}

	offset, limit := query.Offset, query.Limit
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultInterestHistoryLimit
	}

	logs, err := uc.interestRepo.ListByAccount(ctx, accountID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interest history: %w", err)
	}

	return &dtos.InterestHistoryDTO{
		Entries: dtos.ToInterestLogDTOList(logs),
		Offset:  offset,
		Limit:   limit,
	}, nil
}
