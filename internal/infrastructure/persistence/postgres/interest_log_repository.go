// Package postgres - InterestLogRepository implementation.
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
var _ ports.InterestLogRepository = (*InterestLogRepository)(nil)

// InterestLogRepository реализует ports.InterestLogRepository.
//
// UNIQUE (account_id, calculation_date) - арбитр идемпотентности
// начислений: для одного счёта и одного UTC-дня существует ровно одна
// запись, кто бы и сколько раз ни пересчитывал этот день.
type InterestLogRepository struct {
	pool *pgxpool.Pool
}

// NewInterestLogRepository создаёт новый InterestLogRepository.
func NewInterestLogRepository(pool *pgxpool.Pool) *InterestLogRepository {
	return &InterestLogRepository{pool: pool}
}

func (r *InterestLogRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const interestLogColumns = `
	id, account_id, calculation_date,
	principal_balance::text, interest_amount::text, new_balance::text,
	annual_rate::text, days_in_year, created_at`

// Insert вставляет запись о начислении.
// Проигравший гонку за (account_id, calculation_date) получает
// ErrDuplicateInterestEntry и реплеит запись победителя.
func (r *InterestLogRepository) Insert(ctx context.Context, log *entities.InterestLog) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO interest_logs (
			id, account_id, calculation_date,
			principal_balance, interest_amount, new_balance,
			annual_rate, days_in_year, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.Exec(ctx, query,
		log.ID(),
		log.AccountID(),
		log.CalculationDate(),
		log.PrincipalBalance().StringFixed(entities.AccountBalanceScale),
		log.InterestAmount().StringFixed(entities.AccountBalanceScale),
		log.NewBalance().StringFixed(entities.AccountBalanceScale),
		log.AnnualRateString(),
		log.DaysInYear(),
		log.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, constraintInterestEntry) {
			return fmt.Errorf("%w: account %s, date %s",
				domainErrors.ErrDuplicateInterestEntry,
				log.AccountID(), log.CalculationDate().Format("2006-01-02"))
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: interest log references a missing account",
				domainErrors.ErrAccountNotFound)
		}
		return fmt.Errorf("failed to insert interest log: %w", err)
	}

	return nil
}

// FindByAccountAndDate находит запись за конкретный UTC-день.
func (r *InterestLogRepository) FindByAccountAndDate(ctx context.Context, accountID uuid.UUID, date time.Time) (*entities.InterestLog, error) {
	q := r.getQuerier(ctx)

	query := `SELECT` + interestLogColumns + `
		FROM interest_logs
		WHERE account_id = $1 AND calculation_date = $2`

	return r.scanLog(q.QueryRow(ctx, query, accountID, entities.NormalizeCalculationDate(date)))
}

// ListByAccount возвращает записи счёта, новые дни первыми.
func (r *InterestLogRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, offset, limit int) ([]*entities.InterestLog, error) {
	q := r.getQuerier(ctx)

	query := `SELECT` + interestLogColumns + `
		FROM interest_logs
		WHERE account_id = $1
		ORDER BY calculation_date DESC
		OFFSET $2 LIMIT $3`

	rows, err := q.Query(ctx, query, accountID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interest logs: %w", err)
	}
	defer rows.Close()

	var logs []*entities.InterestLog
	for rows.Next() {
		log, err := r.scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interest log rows: %w", err)
	}

	return logs, nil
}

// scanLog сканирует одну строку в InterestLog entity.
func (r *InterestLogRepository) scanLog(row pgx.Row) (*entities.InterestLog, error) {
	var (
		id, accountID                uuid.UUID
		calculationDate, createdAt   time.Time
		principalStr, interestStr    string
		newBalanceStr, annualRateStr string
		daysInYear                   int
	)

	err := row.Scan(
		&id,
		&accountID,
		&calculationDate,
		&principalStr,
		&interestStr,
		&newBalanceStr,
		&annualRateStr,
		&daysInYear,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: interest log", domainErrors.ErrEntityNotFound)
		}
		return nil, fmt.Errorf("failed to scan interest log: %w", err)
	}

	principal, err := valueobjects.ParseDecimal(principalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid principal_balance in database: %w", err)
	}
	interest, err := valueobjects.ParseDecimal(interestStr)
	if err != nil {
		return nil, fmt.Errorf("invalid interest_amount in database: %w", err)
	}
	newBalance, err := valueobjects.ParseDecimal(newBalanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid new_balance in database: %w", err)
	}
	annualRate, err := valueobjects.ParseDecimal(annualRateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid annual_rate in database: %w", err)
	}

	return entities.ReconstructInterestLog(
		id, accountID, calculationDate,
		principal, interest, newBalance, annualRate,
		daysInYear, createdAt,
	), nil
}
