// Package postgres - AccountRepository implementation.
//
// Балансы счетов хранятся как NUMERIC(30,8); сканирование через ::text,
// как и у кошельков.
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
var _ ports.AccountRepository = (*AccountRepository)(nil)

// AccountRepository реализует ports.AccountRepository.
//
// Начисление процентов читает principal под FOR UPDATE и пишет новый
// баланс в той же транзакции - схема та же, что у кошельков.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository создаёт новый AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Save сохраняет новый счёт.
func (r *AccountRepository) Save(ctx context.Context, account *entities.Account) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO accounts (id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := q.Exec(ctx, query,
		account.ID(),
		account.BalanceString(),
		account.CreatedAt(),
		account.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// FindByID загружает счёт по ID. Без блокировки!
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT id, balance::text, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	return r.scanAccount(q.QueryRow(ctx, query, id))
}

// FindByIDForUpdate загружает счёт с эксклюзивной блокировкой строки.
// Вызывается только внутри транзакции начисления.
func (r *AccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	if !hasTx(ctx) {
		return nil, fmt.Errorf("%w: FindByIDForUpdate requires an open transaction",
			domainErrors.ErrInternalInconsistency)
	}

	q := r.getQuerier(ctx)

	query := `
		SELECT id, balance::text, created_at, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	return r.scanAccount(q.QueryRow(ctx, query, id))
}

// UpdateBalance записывает новый баланс счёта.
func (r *AccountRepository) UpdateBalance(ctx context.Context, account *entities.Account) error {
	q := r.getQuerier(ctx)

	query := `
		UPDATE accounts
		SET balance = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := q.Exec(ctx, query,
		account.ID(),
		account.BalanceString(),
		account.UpdatedAt(),
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: account %s balance check violated",
				domainErrors.ErrInternalInconsistency, account.ID())
		}
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", domainErrors.ErrAccountNotFound, account.ID())
	}

	return nil
}

// scanAccount сканирует одну строку в Account entity.
func (r *AccountRepository) scanAccount(row pgx.Row) (*entities.Account, error) {
	var (
		id                   uuid.UUID
		balanceStr           string
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&id, &balanceStr, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	balance, err := valueobjects.ParseDecimal(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid account balance in database: %w", err)
	}

	return entities.ReconstructAccount(id, balance, createdAt, updatedAt), nil
}
