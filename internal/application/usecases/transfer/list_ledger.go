package transfer

import (
	"context"
	"fmt"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/google/uuid"
)

// ListLedgerUseCase - выписка из гроссбуха по кошельку.
// Каждая запись несёт transaction_log_id породившего перевода и снимок
// баланса до/после, сортировка по created_at по убыванию.
type ListLedgerUseCase struct {
	ledgerRepo ports.LedgerRepository
}

// NewListLedgerUseCase создаёт новый use case.
func NewListLedgerUseCase(ledgerRepo ports.LedgerRepository) *ListLedgerUseCase {
	return &ListLedgerUseCase{ledgerRepo: ledgerRepo}
}

// Execute возвращает страницу ledger-записей кошелька.
func (uc *ListLedgerUseCase) Execute(ctx context.Context, query dtos.ListWalletLedgerQuery) (*dtos.LedgerListDTO, error) {
	walletID, err := uuid.Parse(query.WalletID)
	if err != nil {
		return nil, errors.ValidationError{Field: "wallet_id", Message: "invalid UUID"}
	}

	offset, limit := normalizePage(query.Offset, query.Limit)

	entries, err := uc.ledgerRepo.ListByWallet(ctx, walletID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return &dtos.LedgerListDTO{
		Entries: dtos.ToLedgerEntryDTOList(entries),
		Offset:  offset,
		Limit:   limit,
	}, nil
}
