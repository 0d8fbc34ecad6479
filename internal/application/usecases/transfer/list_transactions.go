package transfer

import (
	"context"
	"fmt"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/google/uuid"
)

// defaultHistoryLimit - размер страницы истории, когда клиент не задал limit.
const defaultHistoryLimit = 50

// ListTransactionsUseCase - история переводов кошелька.
// Возвращает записи журнала, где кошелёк был источником ИЛИ получателем,
// сортировка по created_at по убыванию.
type ListTransactionsUseCase struct {
	logRepo ports.TransactionLogRepository
}

// NewListTransactionsUseCase создаёт новый use case.
func NewListTransactionsUseCase(logRepo ports.TransactionLogRepository) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{logRepo: logRepo}
}

// Execute возвращает страницу истории переводов кошелька.
func (uc *ListTransactionsUseCase) Execute(ctx context.Context, query dtos.ListWalletTransactionsQuery) (*dtos.TransactionListDTO, error) {
	walletID, err := uuid.Parse(query.WalletID)
	if err != nil {
		return nil, errors.ValidationError{Field: "wallet_id", Message: "invalid UUID"}
	}

	offset, limit := normalizePage(query.Offset, query.Limit)

	logs, err := uc.logRepo.ListByWallet(ctx, walletID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &dtos.TransactionListDTO{
		Transactions: dtos.ToTransactionLogDTOList(logs),
		Offset:       offset,
		Limit:        limit,
	}, nil
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return offset, limit
}
