// Package postgres - WalletRepository implementation.
//
// Балансы хранятся как NUMERIC(20,2) и сканируются через ::text -
// деньги никогда не проходят через binary floating point.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/entities"
	domainErrors "github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.WalletRepository = (*WalletRepository)(nil)

// WalletRepository реализует ports.WalletRepository.
//
// Конкурентный доступ:
// - FindByIDForUpdate берёт эксклюзивную блокировку строки (FOR UPDATE)
// - UpdateBalance вызывается только под этой блокировкой, внутри той же
//   транзакции - optimistic locking не нужен
type WalletRepository struct {
	pool *pgxpool.Pool
}

// querier - абстракция для выполнения запросов.
// Позволяет использовать как pool, так и transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewWalletRepository создаёт новый WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// getQuerier возвращает querier из context (transaction) или pool.
func (r *WalletRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Save сохраняет новый кошелёк.
func (r *WalletRepository) Save(ctx context.Context, wallet *entities.Wallet) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO wallets (id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := q.Exec(ctx, query,
		wallet.ID(),
		wallet.Balance().String(),
		wallet.CreatedAt(),
		wallet.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert wallet: %w", err)
	}

	return nil
}

// FindByID загружает кошелёк по ID. Без блокировки!
func (r *WalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT id, balance::text, created_at, updated_at
		FROM wallets
		WHERE id = $1
	`

	return r.scanWallet(q.QueryRow(ctx, query, id))
}

// FindByIDForUpdate загружает кошелёк с эксклюзивной блокировкой строки.
//
// SELECT ... FOR UPDATE блокирует строку до конца транзакции:
// конкурентные FindByIDForUpdate на ту же строку будут ждать commit
// или rollback держателя. Вызывается только внутри транзакции -
// вне транзакции блокировка отпускается сразу и бессмысленна.
func (r *WalletRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	if !hasTx(ctx) {
		return nil, fmt.Errorf("%w: FindByIDForUpdate requires an open transaction",
			domainErrors.ErrInternalInconsistency)
	}

	q := r.getQuerier(ctx)

	query := `
		SELECT id, balance::text, created_at, updated_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`

	return r.scanWallet(q.QueryRow(ctx, query, id))
}

// UpdateBalance записывает новый баланс кошелька.
// Вызывается после Debit/Credit на entity, под блокировкой FOR UPDATE.
func (r *WalletRepository) UpdateBalance(ctx context.Context, wallet *entities.Wallet) error {
	q := r.getQuerier(ctx)

	query := `
		UPDATE wallets
		SET balance = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := q.Exec(ctx, query,
		wallet.ID(),
		wallet.Balance().String(),
		wallet.UpdatedAt(),
	)
	if err != nil {
		if isCheckViolation(err) {
			// CHECK (balance >= 0) - страховка; доменный слой обязан
			// был отклонить такой Debit раньше.
			return fmt.Errorf("%w: wallet %s balance check violated",
				domainErrors.ErrInternalInconsistency, wallet.ID())
		}
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: wallet %s", domainErrors.ErrWalletNotFound, wallet.ID())
	}

	return nil
}

// scanWallet сканирует одну строку в Wallet entity.
func (r *WalletRepository) scanWallet(row pgx.Row) (*entities.Wallet, error) {
	var (
		id                   uuid.UUID
		balanceStr           string
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&id, &balanceStr, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}

	balance, err := valueobjects.NewMoney(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance in database: %w", err)
	}

	return entities.ReconstructWallet(id, balance, createdAt, updatedAt), nil
}
