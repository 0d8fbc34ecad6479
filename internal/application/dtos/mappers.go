// Package dtos - Mappers для конвертации domain entities в DTOs.
//
// SOLID Principles:
// - SRP: Mappers отвечают только за конвертацию
// - OCP: Новые мапперы добавляются без изменения существующих
//
// Pattern: Mapper/Converter
// Отделяет domain representation от API representation
package dtos

import (
	"github.com/Haleralex/ledgerhub/internal/domain/entities"
)

// ============================================
// Wallet Mappers
// ============================================

// ToWalletDTO конвертирует domain entity Wallet в DTO.
func ToWalletDTO(wallet *entities.Wallet) WalletDTO {
	return WalletDTO{
		ID:        wallet.ID().String(),
		Balance:   wallet.Balance().String(),
		CreatedAt: wallet.CreatedAt(),
		UpdatedAt: wallet.UpdatedAt(),
	}
}

// ============================================
// Transaction Log Mappers
// ============================================

// ToTransactionLogDTO конвертирует запись журнала переводов в DTO.
func ToTransactionLogDTO(log *entities.TransactionLog) TransactionLogDTO {
	return TransactionLogDTO{
		ID:             log.ID().String(),
		IdempotencyKey: log.IdempotencyKey(),
		FromWalletID:   log.FromWalletID().String(),
		ToWalletID:     log.ToWalletID().String(),
		Amount:         log.Amount().String(),
		Status:         string(log.Status()),
		ErrorMessage:   log.ErrorMessage(),
		CreatedAt:      log.CreatedAt(),
		UpdatedAt:      log.UpdatedAt(),
	}
}

// ToTransactionLogDTOList конвертирует список записей журнала.
func ToTransactionLogDTOList(logs []*entities.TransactionLog) []TransactionLogDTO {
	result := make([]TransactionLogDTO, len(logs))
	for i, log := range logs {
		result[i] = ToTransactionLogDTO(log)
	}
	return result
}

// ============================================
// Ledger Mappers
// ============================================

// ToLedgerEntryDTO конвертирует ledger-запись в DTO.
func ToLedgerEntryDTO(entry *entities.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:               entry.ID().String(),
		WalletID:         entry.WalletID().String(),
		TransactionLogID: entry.TransactionLogID().String(),
		EntryType:        string(entry.EntryType()),
		Amount:           entry.Amount().String(),
		BalanceBefore:    entry.BalanceBefore().String(),
		BalanceAfter:     entry.BalanceAfter().String(),
		Description:      entry.Description(),
		CreatedAt:        entry.CreatedAt(),
	}
}

// ToLedgerEntryDTOList конвертирует список ledger-записей.
func ToLedgerEntryDTOList(entries []*entities.LedgerEntry) []LedgerEntryDTO {
	result := make([]LedgerEntryDTO, len(entries))
	for i, entry := range entries {
		result[i] = ToLedgerEntryDTO(entry)
	}
	return result
}

// ============================================
// Account Mappers
// ============================================

// ToAccountDTO конвертирует domain entity Account в DTO.
func ToAccountDTO(account *entities.Account) AccountDTO {
	return AccountDTO{
		ID:        account.ID().String(),
		Balance:   account.BalanceString(),
		CreatedAt: account.CreatedAt(),
		UpdatedAt: account.UpdatedAt(),
	}
}

// ============================================
// Interest Log Mappers
// ============================================

// ToInterestLogDTO конвертирует запись о начислении в DTO.
// Суммы форматируются в scale 8, ставка - в scale 6; daily_rate
// отдаётся полной строкой деления.
func ToInterestLogDTO(log *entities.InterestLog) InterestLogDTO {
	return InterestLogDTO{
		ID:               log.ID().String(),
		AccountID:        log.AccountID().String(),
		CalculationDate:  log.CalculationDate().Format("2006-01-02"),
		PrincipalBalance: log.PrincipalBalance().StringFixed(entities.AccountBalanceScale),
		DailyRate:        log.DailyRateValue().String(),
		InterestAmount:   log.InterestAmount().StringFixed(entities.AccountBalanceScale),
		NewBalance:       log.NewBalance().StringFixed(entities.AccountBalanceScale),
		AnnualRate:       log.AnnualRateString(),
		DaysInYear:       log.DaysInYear(),
		CreatedAt:        log.CreatedAt(),
	}
}

// ToInterestLogDTOList конвертирует список записей о начислениях.
func ToInterestLogDTOList(logs []*entities.InterestLog) []InterestLogDTO {
	result := make([]InterestLogDTO, len(logs))
	for i, log := range logs {
		result[i] = ToInterestLogDTO(log)
	}
	return result
}
