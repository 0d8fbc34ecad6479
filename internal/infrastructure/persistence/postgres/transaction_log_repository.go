// Package postgres - TransactionLogRepository implementation.
package postgres

import (
	"context"
	"errors"
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
var _ ports.TransactionLogRepository = (*TransactionLogRepository)(nil)

// TransactionLogRepository реализует ports.TransactionLogRepository.
//
// Журнал переводов - источник истины идемпотентности: UNIQUE constraint
// на idempotency_key разрешает гонку конкурентных дубликатов на стороне
// БД, без read-then-write проверок. Строки никогда не удаляются.
type TransactionLogRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionLogRepository создаёт новый TransactionLogRepository.
func NewTransactionLogRepository(pool *pgxpool.Pool) *TransactionLogRepository {
	return &TransactionLogRepository{pool: pool}
}

func (r *TransactionLogRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const transactionLogColumns = `
	id, idempotency_key, from_wallet_id, to_wallet_id,
	amount::text, status, COALESCE(error_message, ''), created_at, updated_at`

// Insert вставляет новую запись журнала (в статусе PENDING).
//
// Гонка за ключ: проигравший получает ErrDuplicateIdempotencyKey и
// реплеит запись победителя. FK violation означает, что кошелёк исчез
// между валидацией и вставкой - невозможно при штатной работе,
// т.к. кошельки не удаляются.
func (r *TransactionLogRepository) Insert(ctx context.Context, log *entities.TransactionLog) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO transaction_logs (
			id, idempotency_key, from_wallet_id, to_wallet_id,
			amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		log.ID(),
		log.IdempotencyKey(),
		log.FromWalletID(),
		log.ToWalletID(),
		log.Amount().String(),
		string(log.Status()),
		log.CreatedAt(),
		log.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, constraintIdempotencyKey) {
			return fmt.Errorf("%w: %s", domainErrors.ErrDuplicateIdempotencyKey, log.IdempotencyKey())
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: transfer references a missing wallet", domainErrors.ErrWalletNotFound)
		}
		return fmt.Errorf("failed to insert transaction log: %w", err)
	}

	return nil
}

// FindByID загружает запись по ID.
func (r *TransactionLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.TransactionLog, error) {
	q := r.getQuerier(ctx)

	query := `SELECT` + transactionLogColumns + `
		FROM transaction_logs
		WHERE id = $1`

	return r.scanLog(q.QueryRow(ctx, query, id))
}

// FindByIdempotencyKey находит запись по ключу идемпотентности.
// Используется fast-path'ом replay и после ErrDuplicateIdempotencyKey.
// Без блокировки: replay читает терминальные записи.
func (r *TransactionLogRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entities.TransactionLog, error) {
	q := r.getQuerier(ctx)

	query := `SELECT` + transactionLogColumns + `
		FROM transaction_logs
		WHERE idempotency_key = $1`

	return r.scanLog(q.QueryRow(ctx, query, key))
}

// MarkCompleted переводит запись PENDING -> COMPLETED.
// WHERE status = 'PENDING' защищает терминальность на уровне БД:
// повторный переход не затронет ни одной строки.
func (r *TransactionLogRepository) MarkCompleted(ctx context.Context, log *entities.TransactionLog) error {
	return r.transition(ctx, log, string(entities.TransactionStatusCompleted), "")
}

// MarkFailed переводит запись PENDING -> FAILED с сообщением об ошибке.
func (r *TransactionLogRepository) MarkFailed(ctx context.Context, log *entities.TransactionLog) error {
	return r.transition(ctx, log, string(entities.TransactionStatusFailed), log.ErrorMessage())
}

// transition выполняет единственный разрешённый переход конечного
// автомата: из PENDING в терминальный статус.
func (r *TransactionLogRepository) transition(ctx context.Context, log *entities.TransactionLog, status, errorMessage string) error {
	q := r.getQuerier(ctx)

	query := `
		UPDATE transaction_logs
		SET status = $2, error_message = NULLIF($3, ''), updated_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`

	result, err := q.Exec(ctx, query, log.ID(), status, errorMessage, log.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to update transaction log status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction log %s", domainErrors.ErrTransactionNotPending, log.ID())
	}

	return nil
}

// ListByWallet возвращает записи, где кошелёк был отправителем или
// получателем, новые первыми.
func (r *TransactionLogRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, offset, limit int) ([]*entities.TransactionLog, error) {
	q := r.getQuerier(ctx)

	query := `SELECT` + transactionLogColumns + `
		FROM transaction_logs
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`

	rows, err := q.Query(ctx, query, walletID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction logs: %w", err)
	}
	defer rows.Close()

	var logs []*entities.TransactionLog
	for rows.Next() {
		log, err := r.scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction log rows: %w", err)
	}

	return logs, nil
}

// scanLog сканирует одну строку в TransactionLog entity.
func (r *TransactionLogRepository) scanLog(row pgx.Row) (*entities.TransactionLog, error) {
	var (
		id, fromWalletID, toWalletID uuid.UUID
		idempotencyKey, amountStr    string
		statusStr, errorMessage      string
		createdAt, updatedAt         time.Time
	)

	err := row.Scan(
		&id,
		&idempotencyKey,
		&fromWalletID,
		&toWalletID,
		&amountStr,
		&statusStr,
		&errorMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction log: %w", err)
	}

	amount, err := valueobjects.NewMoney(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in database: %w", err)
	}

	status := entities.TransactionStatus(statusStr)
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown transaction status %q",
			domainErrors.ErrInternalInconsistency, statusStr)
	}

	return entities.ReconstructTransactionLog(
		id, idempotencyKey, fromWalletID, toWalletID,
		amount, status, errorMessage, createdAt, updatedAt,
	), nil
}
