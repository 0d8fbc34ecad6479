// Package interest содержит use cases движка начисления процентов:
// создание счёта, начисление за день и за диапазон, история начислений.
package interest

import (
	"context"
	"fmt"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/entities"
	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/events"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
	"github.com/shopspring/decimal"
)

// CreateAccountUseCase - use case для создания процентного счёта.
type CreateAccountUseCase struct {
	accountRepo    ports.AccountRepository
	eventPublisher ports.EventPublisher
	uow            ports.UnitOfWork
}

// NewCreateAccountUseCase создаёт новый use case.
func NewCreateAccountUseCase(
	accountRepo ports.AccountRepository,
	eventPublisher ports.EventPublisher,
	uow ports.UnitOfWork,
) *CreateAccountUseCase {
	return &CreateAccountUseCase{
		accountRepo:    accountRepo,
		eventPublisher: eventPublisher,
		uow:            uow,
	}
}

// Execute выполняет создание счёта.
func (uc *CreateAccountUseCase) Execute(ctx context.Context, cmd dtos.CreateAccountCommand) (*dtos.AccountDTO, error) {
	// 1. Парсим начальный баланс до любого I/O.
	initialBalance := decimal.Zero
	if cmd.InitialBalance != "" {
		parsed, err := valueobjects.ParseDecimal(cmd.InitialBalance)
		if err != nil {
			return nil, errors.ValidationError{
				Field:   "initial_balance",
				Message: err.Error(),
			}
		}
		if !parsed.Truncate(entities.AccountBalanceScale).Equal(parsed) {
			return nil, errors.ValidationError{
				Field:   "initial_balance",
				Message: fmt.Sprintf("more than %d decimal places", entities.AccountBalanceScale),
			}
		}
		initialBalance = parsed
	}

	var result *dtos.AccountDTO

	err := uc.uow.Execute(ctx, func(txCtx context.Context) error {
		// 2. Создаём domain entity Account. Отрицательный баланс
		// отбивается здесь.
		account, err := entities.NewAccount(initialBalance)
		if err != nil {
			return err
		}

		// 3. Сохраняем в repository
		if err := uc.accountRepo.Save(txCtx, account); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		// 4. Публикуем событие
		event := events.NewAccountCreated(account.ID(), account.BalanceString())
		if err := uc.eventPublisher.Publish(txCtx, event); err != nil {
			return fmt.Errorf("failed to publish AccountCreated event: %w", err)
		}

		// 5. Конвертируем в DTO
		dto := dtos.ToAccountDTO(account)
		result = &dto
		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}
