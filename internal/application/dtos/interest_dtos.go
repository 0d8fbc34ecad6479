// Package dtos - Interest DTOs для процентных счетов и журнала начислений.
package dtos

import "time"

// ============================================
// Commands (Write операции)
// ============================================

// CreateAccountCommand - команда для создания процентного счёта.
// InitialBalance опционален; баланс хранится в scale 8.
type CreateAccountCommand struct {
	InitialBalance string `json:"initial_balance,omitempty" validate:"omitempty,account_amount"` // Decimal string: "10000.00000000"
}

// CalculateDailyInterestCommand - команда начисления процентов за один день.
// Date - ISO дата ("2023-06-15"), интерпретируется как UTC календарный день.
type CalculateDailyInterestCommand struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Date      string `json:"date" validate:"required,iso_date"`
}

// CalculateInterestRangeCommand - команда начисления за диапазон дней.
// Диапазон включительный с обеих сторон; дни обрабатываются по порядку,
// каждый в своей транзакции.
type CalculateInterestRangeCommand struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	StartDate string `json:"start_date" validate:"required,iso_date"`
	EndDate   string `json:"end_date" validate:"required,iso_date"`
}

// ============================================
// Queries (Read операции)
// ============================================

// GetAccountQuery - запрос счёта по ID.
type GetAccountQuery struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
}

// ListInterestHistoryQuery - запрос истории начислений счёта.
type ListInterestHistoryQuery struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Offset    int    `json:"offset" validate:"min=0"`
	Limit     int    `json:"limit" validate:"min=1,max=100"`
}

// ============================================
// Response DTOs
// ============================================

// AccountDTO - представление счёта для API.
// Balance - каноническая строка scale 8: "10000.00000000".
type AccountDTO struct {
	ID        string    `json:"id"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InterestLogDTO - представление записи о начислении для API.
// Денежные поля - строки scale 8, AnnualRate - scale 6,
// DailyRate - полная точность деления (для отображения).
type InterestLogDTO struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"account_id"`
	CalculationDate  string    `json:"calculation_date"` // ISO дата: "2023-06-15"
	PrincipalBalance string    `json:"principal_balance"`
	DailyRate        string    `json:"daily_rate"`
	InterestAmount   string    `json:"interest_amount"`
	NewBalance       string    `json:"new_balance"`
	AnnualRate       string    `json:"annual_rate"`
	DaysInYear       int       `json:"days_in_year"`
	CreatedAt        time.Time `json:"created_at"`
}

// InterestCalculationDTO - результат начисления за один день.
// IsNew = false означает replay существующей записи.
type InterestCalculationDTO struct {
	Interest InterestLogDTO `json:"interest"`
	IsNew    bool           `json:"is_new"`
	Message  string         `json:"message,omitempty"`
}

// InterestRangeDTO - результат начисления за диапазон дней.
type InterestRangeDTO struct {
	AccountID       string                   `json:"account_id"`
	StartDate       string                   `json:"start_date"`
	EndDate         string                   `json:"end_date"`
	DaysProcessed   int                      `json:"days_processed"`
	NewEntries      int                      `json:"new_entries"`
	ReplayedEntries int                      `json:"replayed_entries"`
	FinalBalance    string                   `json:"final_balance"`
	Entries         []InterestCalculationDTO `json:"entries"`
}

// InterestHistoryDTO - результат для истории начислений.
type InterestHistoryDTO struct {
	Entries []InterestLogDTO `json:"entries"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}
