package interest

import (
	"context"
	"fmt"
	"time"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/entities"
	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// isoDateLayout - формат календарной даты во входных командах.
const isoDateLayout = "2006-01-02"

// CalculateDailyInterestUseCase - идемпотентное начисление процентов
// за один календарный день.
//
// Протокол:
//  1. Fast path: запись за (счёт, дата) уже есть - реплеим её,
//     баланс не трогаем (IsNew=false).
//  2. Транзакция: блокировка счёта FOR UPDATE, расчёт процентов от
//     текущего баланса, вставка записи журнала, обновление баланса.
//  3. Гонку за (счёт, дата) разрешает UNIQUE constraint: проигравший
//     реплеит запись победителя.
//
// Формула:
//
//	daily_rate = annual_rate / days_in_year(год даты)
//	interest   = principal × daily_rate  (half-up, scale 8)
type CalculateDailyInterestUseCase struct {
	accountRepo    ports.AccountRepository
	interestRepo   ports.InterestLogRepository
	eventPublisher ports.EventPublisher
	uowFactory     ports.UnitOfWorkFactory
	annualRate     decimal.Decimal
}

// NewCalculateDailyInterestUseCase создаёт новый use case.
// annualRate - годовая ставка из конфигурации, например 0.275.
func NewCalculateDailyInterestUseCase(
	accountRepo ports.AccountRepository,
	interestRepo ports.InterestLogRepository,
	eventPublisher ports.EventPublisher,
	uowFactory ports.UnitOfWorkFactory,
	annualRate decimal.Decimal,
) *CalculateDailyInterestUseCase {
	return &CalculateDailyInterestUseCase{
		accountRepo:    accountRepo,
		interestRepo:   interestRepo,
		eventPublisher: eventPublisher,
		uowFactory:     uowFactory,
		annualRate:     annualRate,
	}
}

// Execute начисляет проценты за день. Повторный вызов для той же пары
// (счёт, дата) возвращает исходную запись с IsNew=false и не меняет баланс.
func (uc *CalculateDailyInterestUseCase) Execute(ctx context.Context, cmd dtos.CalculateDailyInterestCommand) (*dtos.InterestCalculationDTO, error) {
	accountID, err := uuid.Parse(cmd.AccountID)
	if err != nil {
		return nil, errors.ValidationError{Field: "account_id", Message: "invalid UUID"}
	}

	date, err := parseISODate("date", cmd.Date)
	if err != nil {
		return nil, err
	}

	// 1. Fast path: день уже посчитан.
	existing, err := uc.interestRepo.FindByAccountAndDate(ctx, accountID, date)
	if err == nil {
		return replayCalculation(existing), nil
	}
	if !errors.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check interest log: %w", err)
	}

	// 2. Начисляем в одной транзакции: журнал и баланс меняются атомарно.
	result, err := uc.applyInterest(ctx, accountID, date)
	if err == nil {
		return result, nil
	}

	// 3. Конкурент успел вставить запись за этот день первым - его
	// результат и есть ответ.
	if errors.IsDuplicateKey(err) {
		winner, ferr := uc.interestRepo.FindByAccountAndDate(ctx, accountID, date)
		if ferr != nil {
			if errors.IsNotFound(ferr) {
				return nil, fmt.Errorf(
					"%w: interest log missing after duplicate entry for account %s on %s",
					errors.ErrInternalInconsistency, accountID, cmd.Date,
				)
			}
			return nil, fmt.Errorf("failed to fetch interest log after duplicate entry: %w", ferr)
		}
		return replayCalculation(winner), nil
	}

	return nil, err
}

// applyInterest выполняет начисление в границах одной транзакции.
func (uc *CalculateDailyInterestUseCase) applyInterest(ctx context.Context, accountID uuid.UUID, date time.Time) (*dtos.InterestCalculationDTO, error) {
	var result *dtos.InterestCalculationDTO

	uow := uc.uowFactory.NewReadCommitted()
	err := uow.Execute(ctx, func(txCtx context.Context) error {
		// Блокируем счёт: principal читается под row lock, конкурентные
		// начисления за разные дни выстраиваются в очередь.
		account, err := uc.accountRepo.FindByIDForUpdate(txCtx, accountID)
		if err != nil {
			if errors.IsNotFound(err) {
				return fmt.Errorf("%w: account %s", errors.ErrAccountNotFound, accountID)
			}
			return fmt.Errorf("failed to lock account: %w", err)
		}

		log, err := entities.NewInterestLog(accountID, date, account.Balance(), uc.annualRate)
		if err != nil {
			return err
		}

		if err := uc.interestRepo.Insert(txCtx, log); err != nil {
			return err
		}

		if err := account.ApplyInterest(log.InterestAmount()); err != nil {
			return err
		}
		if err := uc.accountRepo.UpdateBalance(txCtx, account); err != nil {
			return fmt.Errorf("failed to update account balance: %w", err)
		}

		event := events.NewInterestApplied(
			accountID, log.CalculationDate(),
			log.InterestAmount().StringFixed(entities.AccountBalanceScale),
			log.NewBalance().StringFixed(entities.AccountBalanceScale),
		)
		if err := uc.eventPublisher.Publish(txCtx, event); err != nil {
			return fmt.Errorf("failed to publish InterestApplied event: %w", err)
		}

		result = &dtos.InterestCalculationDTO{
			Interest: dtos.ToInterestLogDTO(log),
			IsNew:    true,
			Message:  "interest applied",
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

// replayCalculation строит ответ-replay из существующей записи журнала.
// daily_rate пересчитывается из сохранённых annual_rate и days_in_year,
// баланс счёта не трогается.
func replayCalculation(log *entities.InterestLog) *dtos.InterestCalculationDTO {
	return &dtos.InterestCalculationDTO{
		Interest: dtos.ToInterestLogDTO(log),
		IsNew:    false,
		Message:  "interest already calculated for this date",
	}
}

// parseISODate разбирает календарную дату "2006-01-02" как UTC-день.
func parseISODate(field, value string) (time.Time, error) {
	t, err := time.Parse(isoDateLayout, value)
	if err != nil {
		return time.Time{}, errors.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid date, expected %s", isoDateLayout),
		}
	}
	return entities.NormalizeCalculationDate(t), nil
}
