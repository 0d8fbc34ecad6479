// Package dtos - Transfer DTOs для журнала переводов и ledger.
package dtos

import "time"

// ============================================
// Commands (Write операции)
// ============================================

// ExecuteTransferCommand - команда для перевода между кошельками.
//
// IdempotencyKey обязателен: повторная отправка с тем же ключом
// возвращает исходный результат, а не выполняет второй перевод.
type ExecuteTransferCommand struct {
	FromWalletID   string `json:"from_wallet_id" validate:"required,uuid"`
	ToWalletID     string `json:"to_wallet_id" validate:"required,uuid"`
	Amount         string `json:"amount" validate:"required,money_amount"` // Decimal string: "100.50"
	IdempotencyKey string `json:"idempotency_key" validate:"required,max=255"`
}

// ============================================
// Response DTOs
// ============================================

// TransactionLogDTO - представление записи журнала переводов для API.
type TransactionLogDTO struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	FromWalletID   string    `json:"from_wallet_id"`
	ToWalletID     string    `json:"to_wallet_id"`
	Amount         string    `json:"amount"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TransferResultDTO - результат выполнения перевода.
//
// IsIdempotent = true означает replay: поля Transaction взяты из исходной
// записи (те же ID и timestamps), свежие значения не генерируются.
type TransferResultDTO struct {
	Transaction  TransactionLogDTO `json:"transaction"`
	Success      bool              `json:"success"`
	IsIdempotent bool              `json:"is_idempotent"`
	Message      string            `json:"message,omitempty"`
}

// TransactionListDTO - результат для истории переводов.
type TransactionListDTO struct {
	Transactions []TransactionLogDTO `json:"transactions"`
	Offset       int                 `json:"offset"`
	Limit        int                 `json:"limit"`
}

// LedgerEntryDTO - представление ledger-записи для API.
type LedgerEntryDTO struct {
	ID               string    `json:"id"`
	WalletID         string    `json:"wallet_id"`
	TransactionLogID string    `json:"transaction_log_id"`
	EntryType        string    `json:"entry_type"`
	Amount           string    `json:"amount"`
	BalanceBefore    string    `json:"balance_before"`
	BalanceAfter     string    `json:"balance_after"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// LedgerListDTO - результат для ledger-истории кошелька.
type LedgerListDTO struct {
	Entries []LedgerEntryDTO `json:"entries"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}
