// Package postgres - LedgerRepository implementation.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/entities"
	domainErrors "github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.LedgerRepository = (*LedgerRepository)(nil)

// LedgerRepository реализует ports.LedgerRepository.
//
// Гроссбух append-only: только INSERT, ни одного UPDATE или DELETE.
// Аудиторский след восстанавливается по balance_before/balance_after
// без пересчёта.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository создаёт новый LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// InsertPair вставляет обе стороны перевода (DEBIT + CREDIT).
//
// Обе записи уходят одним INSERT'ом и обязаны жить в той же транзакции,
// что и обновления балансов: пол-перевода в гроссбухе - худший из
// инвариантных сбоев.
func (r *LedgerRepository) InsertPair(ctx context.Context, debit, credit *entities.LedgerEntry) error {
	if !hasTx(ctx) {
		return fmt.Errorf("%w: InsertPair requires an open transaction",
			domainErrors.ErrInternalInconsistency)
	}
	if debit.EntryType() != entities.EntryTypeDebit || credit.EntryType() != entities.EntryTypeCredit {
		return fmt.Errorf("%w: InsertPair called with mismatched entry types",
			domainErrors.ErrInternalInconsistency)
	}

	q := r.getQuerier(ctx)

	query := `
		INSERT INTO ledgers (
			id, wallet_id, transaction_log_id, entry_type,
			amount, balance_before, balance_after, description, created_at
		) VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9),
			($10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := q.Exec(ctx, query,
		debit.ID(), debit.WalletID(), debit.TransactionLogID(), string(debit.EntryType()),
		debit.Amount().String(), debit.BalanceBefore().String(), debit.BalanceAfter().String(),
		debit.Description(), debit.CreatedAt(),

		credit.ID(), credit.WalletID(), credit.TransactionLogID(), string(credit.EntryType()),
		credit.Amount().String(), credit.BalanceBefore().String(), credit.BalanceAfter().String(),
		credit.Description(), credit.CreatedAt(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: ledger pair references a missing wallet or transaction log",
				domainErrors.ErrInternalInconsistency)
		}
		return fmt.Errorf("failed to insert ledger pair: %w", err)
	}

	return nil
}

// ListByWallet возвращает записи гроссбуха кошелька, новые первыми.
func (r *LedgerRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.LedgerEntry, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT
			id, wallet_id, transaction_log_id, entry_type,
			amount::text, balance_before::text, balance_after::text,
			description, created_at
		FROM ledgers
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := q.Query(ctx, query, walletID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}

func scanLedgerEntry(row pgx.Row) (*entities.LedgerEntry, error) {
	var (
		id, walletID, transactionLogID uuid.UUID
		entryTypeStr, description      string
		amountStr, beforeStr, afterStr string
		createdAt                      time.Time
	)

	err := row.Scan(
		&id, &walletID, &transactionLogID, &entryTypeStr,
		&amountStr, &beforeStr, &afterStr,
		&description, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	amount, err := valueobjects.NewMoney(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger amount in database: %w", err)
	}
	before, err := valueobjects.NewMoney(beforeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance_before in database: %w", err)
	}
	after, err := valueobjects.NewMoney(afterStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance_after in database: %w", err)
	}

	entryType := entities.EntryType(entryTypeStr)
	if !entryType.IsValid() {
		return nil, fmt.Errorf("%w: unknown ledger entry type %q",
			domainErrors.ErrInternalInconsistency, entryTypeStr)
	}

	return entities.ReconstructLedgerEntry(
		id, walletID, transactionLogID, entryType,
		amount, before, after, description, createdAt,
	), nil
}
