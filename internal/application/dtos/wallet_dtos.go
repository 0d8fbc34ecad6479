// Package dtos - Wallet DTOs для передачи данных о кошельках.
package dtos

import "time"

// ============================================
// Commands (Write операции)
// ============================================

// CreateWalletCommand - команда для создания кошелька.
// InitialBalance опционален; пустая строка означает нулевой баланс.
type CreateWalletCommand struct {
	InitialBalance string `json:"initial_balance,omitempty" validate:"omitempty,money_amount"` // Decimal string: "100.50"
}

// ============================================
// Queries (Read операции)
// ============================================

// GetWalletQuery - запрос кошелька по ID.
type GetWalletQuery struct {
	WalletID string `json:"wallet_id" validate:"required,uuid"`
}

// ListWalletTransactionsQuery - запрос истории переводов кошелька.
type ListWalletTransactionsQuery struct {
	WalletID string `json:"wallet_id" validate:"required,uuid"`
	Offset   int    `json:"offset" validate:"min=0"`
	Limit    int    `json:"limit" validate:"min=1,max=100"`
}

// ListWalletLedgerQuery - запрос ledger-записей кошелька.
type ListWalletLedgerQuery struct {
	WalletID string `json:"wallet_id" validate:"required,uuid"`
	Offset   int    `json:"offset" validate:"min=0"`
	Limit    int    `json:"limit" validate:"min=1,max=100"`
}

// ============================================
// Response DTOs
// ============================================

// WalletDTO - представление кошелька для API.
// Balance - каноническая строка scale 2: "1000.00".
type WalletDTO struct {
	ID        string    `json:"id"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
