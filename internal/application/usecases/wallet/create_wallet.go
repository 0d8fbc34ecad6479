// Package wallet содержит use cases для работы с кошельками.
package wallet

import (
	"context"
	"fmt"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/entities"
	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/events"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
)

// CreateWalletUseCase - use case для создания нового кошелька.
//
// Сценарий:
// 1. Распарсить начальный баланс (пустая строка = ноль)
// 2. Создать кошелёк через domain entity
// 3. Сохранить в БД
// 4. Опубликовать событие WalletCreated
//
// Бизнес-правила:
// - Начальный баланс не может быть отрицательным
// - Дальше баланс меняется только переводами
type CreateWalletUseCase struct {
	walletRepo     ports.WalletRepository
	eventPublisher ports.EventPublisher
	uow            ports.UnitOfWork
}

// NewCreateWalletUseCase создаёт новый use case.
func NewCreateWalletUseCase(
	walletRepo ports.WalletRepository,
	eventPublisher ports.EventPublisher,
	uow ports.UnitOfWork,
) *CreateWalletUseCase {
	return &CreateWalletUseCase{
		walletRepo:     walletRepo,
		eventPublisher: eventPublisher,
		uow:            uow,
	}
}

// Execute выполняет создание кошелька.
func (uc *CreateWalletUseCase) Execute(ctx context.Context, cmd dtos.CreateWalletCommand) (*dtos.WalletDTO, error) {
	// 1. Парсим начальный баланс до любого I/O. Отрицательное значение
	// отбивает NewMoney.
	initialBalance := valueobjects.ZeroMoney()
	if cmd.InitialBalance != "" {
		parsed, err := valueobjects.NewMoney(cmd.InitialBalance)
		if err != nil {
			return nil, errors.ValidationError{
				Field:   "initial_balance",
				Message: err.Error(),
			}
		}
		initialBalance = parsed
	}

	var result *dtos.WalletDTO

	err := uc.uow.Execute(ctx, func(txCtx context.Context) error {
		// 2. Создаём domain entity Wallet
		wallet := entities.NewWallet(initialBalance)

		// 3. Сохраняем в repository
		if err := uc.walletRepo.Save(txCtx, wallet); err != nil {
			return fmt.Errorf("failed to save wallet: %w", err)
		}

		// 4. Публикуем событие
		event := events.NewWalletCreated(wallet.ID(), wallet.Balance().String())
		if err := uc.eventPublisher.Publish(txCtx, event); err != nil {
			return fmt.Errorf("failed to publish WalletCreated event: %w", err)
		}

		// 5. Конвертируем в DTO
		dto := dtos.ToWalletDTO(wallet)
		result = &dto
		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}
