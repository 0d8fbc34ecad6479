// Package transfer - use cases движка переводов: идемпотентный перевод
// между кошельками плюс read-операции по журналу и гроссбуху.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/application/ports"
	"github.com/Haleralex/ledgerhub/internal/domain/entities"
	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/Haleralex/ledgerhub/internal/domain/events"
	"github.com/Haleralex/ledgerhub/internal/domain/valueobjects"
	"github.com/google/uuid"
)

const (
	// maxSerializationRetries - сколько раз перезапускаем SERIALIZABLE
	// транзакцию после аборта 40001/40P01, прежде чем сдаться.
	maxSerializationRetries = 3

	// idempotencyCacheTTL - время жизни записи в кэше идемпотентности.
	idempotencyCacheTTL = 24 * time.Hour
)

// ExecuteTransferUseCase - идемпотентный перевод средств между кошельками.
//
// Протокол:
//  1. Валидация команды до любого I/O (ключ, сумма, разные кошельки).
//  2. Fast path: поиск существующей записи журнала по ключу идемпотентности
//     (сначала кэш, затем БД) - найденная запись реплеится без side effects.
//  3. SERIALIZABLE транзакция: вставка PENDING-записи, блокировка обоих
//     кошельков в лексикографическом порядке ID, проверки, двойная запись
//     в гроссбух, COMPLETED.
//  4. Бизнес-отказы (кошелёк не найден, недостаточно средств) коммитятся
//     как FAILED-записи и только потом отдаются наружу: replay того же
//     ключа вернёт тот же отказ.
//
// Кэш - только ускоритель: при любом расхождении истина в БД.
type ExecuteTransferUseCase struct {
	walletRepo ports.WalletRepository
	logRepo    ports.TransactionLogRepository
	ledgerRepo ports.LedgerRepository
	publisher  ports.EventPublisher
	cache      ports.IdempotencyCache
	uowFactory ports.UnitOfWorkFactory
}

// NewExecuteTransferUseCase создаёт новый use case.
// cache может быть nil - движок работает и без кэша, только медленнее.
func NewExecuteTransferUseCase(
	walletRepo ports.WalletRepository,
	logRepo ports.TransactionLogRepository,
	ledgerRepo ports.LedgerRepository,
	publisher ports.EventPublisher,
	cache ports.IdempotencyCache,
	uowFactory ports.UnitOfWorkFactory,
) *ExecuteTransferUseCase {
	return &ExecuteTransferUseCase{
		walletRepo: walletRepo,
		logRepo:    logRepo,
		ledgerRepo: ledgerRepo,
		publisher:  publisher,
		cache:      cache,
		uowFactory: uowFactory,
	}
}

// Execute выполняет перевод. Повторный вызов с тем же ключом идемпотентности
// возвращает исходный результат (IsIdempotent=true) и не трогает балансы.
func (uc *ExecuteTransferUseCase) Execute(ctx context.Context, cmd dtos.ExecuteTransferCommand) (*dtos.TransferResultDTO, error) {
	// 1. Предусловия - синхронно, до любого обращения к хранилищу.
	if cmd.IdempotencyKey == "" {
		return nil, errors.ErrMissingIdempotencyKey
	}

	fromID, err := uuid.Parse(cmd.FromWalletID)
	if err != nil {
		return nil, errors.ValidationError{Field: "from_wallet_id", Message: "invalid UUID"}
	}

	toID, err := uuid.Parse(cmd.ToWalletID)
	if err != nil {
		return nil, errors.ValidationError{Field: "to_wallet_id", Message: "invalid UUID"}
	}

	amount, err := valueobjects.NewMoney(cmd.Amount)
	if err != nil {
		return nil, errors.ValidationError{Field: "amount", Message: err.Error()}
	}
	if !amount.IsPositive() {
		return nil, errors.ValidationError{Field: "amount", Message: "transfer amount must be positive"}
	}

	if fromID == toID {
		return nil, errors.NewBusinessRuleViolation(
			"SELF_TRANSFER",
			"cannot transfer to the same wallet",
			map[string]interface{}{"wallet_id": fromID.String()},
		)
	}

	// 2. Fast path: ключ уже встречался - реплеим сохранённый результат.
	if replay, err := uc.tryFastPath(ctx, cmd.IdempotencyKey); err != nil {
		return nil, err
	} else if replay != nil {
		return replay, nil
	}

	// 3. Конечный автомат с ограниченным числом повторов по serialization
	// failures. Повторяем только когда FAILED-запись НЕ была закоммичена:
	// бизнес-отказы и duplicate key выходят из цикла сразу.
	var lastErr error
	for attempt := 0; attempt <= maxSerializationRetries; attempt++ {
		result, log, err := uc.runStateMachine(ctx, cmd.IdempotencyKey, fromID, toID, amount)
		switch {
		case err == nil:
			uc.cacheResult(ctx, log)
			return result, nil

		case errors.IsDuplicateKey(err):
			// Конкурент выиграл гонку за ключ: наша вставка откатилась,
			// его запись реплеится как обычный повтор.
			return uc.replayAfterRace(ctx, cmd.IdempotencyKey)

		case errors.IsSerializationFailure(err):
			lastErr = err

		default:
			if isUnexpected(err) {
				uc.bestEffortMarkFailed(ctx, log, err)
			}
			return nil, err
		}
	}

	return nil, fmt.Errorf("transfer aborted after %d serialization retries: %w", maxSerializationRetries, lastErr)
}

// runStateMachine прогоняет шаги перевода в одной SERIALIZABLE транзакции.
// Возвращает вставленную запись журнала даже при ошибке - она нужна
// для best-effort маркировки FAILED снаружи транзакции.
func (uc *ExecuteTransferUseCase) runStateMachine(
	ctx context.Context,
	idempotencyKey string,
	fromID, toID uuid.UUID,
	amount valueobjects.Money,
) (*dtos.TransferResultDTO, *entities.TransactionLog, error) {
	// Свежая запись на каждую попытку: предыдущая откатилась вместе
	// с транзакцией, а её in-memory статус мог уже уйти из PENDING.
	log, err := entities.NewTransactionLog(idempotencyKey, fromID, toID, amount)
	if err != nil {
		return nil, nil, err
	}

	var result *dtos.TransferResultDTO
	var businessErr error

	uow := uc.uowFactory.NewSerializable()
	execErr := uow.Execute(ctx, func(txCtx context.Context) error {
		// Вставляем PENDING до блокировок: гонку за ключ разрешает
		// UNIQUE constraint, а не проверка read-then-write.
		if err := uc.logRepo.Insert(txCtx, log); err != nil {
			return err
		}

		fromWallet, toWallet, err := uc.lockWalletPair(txCtx, fromID, toID)
		if err != nil {
			if errors.IsNotFound(err) {
				// Отказ фиксируем и КОММИТИМ: replay этого ключа обязан
				// вернуть тот же отказ, а не повторить попытку.
				if ferr := uc.commitFailure(txCtx, log, err.Error()); ferr != nil {
					return ferr
				}
				businessErr = err
				return nil
			}
			return err
		}

		if !fromWallet.HasSufficientBalance(amount) {
			insufficientErr := fmt.Errorf(
				"%w: available %s, required %s",
				errors.ErrInsufficientFunds, fromWallet.Balance(), amount,
			)
			if ferr := uc.commitFailure(txCtx, log, insufficientErr.Error()); ferr != nil {
				return ferr
			}
			businessErr = insufficientErr
			return nil
		}

		fromBefore := fromWallet.Balance()
		toBefore := toWallet.Balance()

		if err := fromWallet.Debit(amount); err != nil {
			return err
		}
		if err := toWallet.Credit(amount); err != nil {
			return err
		}

		if err := uc.walletRepo.UpdateBalance(txCtx, fromWallet); err != nil {
			return fmt.Errorf("failed to update source wallet balance: %w", err)
		}
		if err := uc.walletRepo.UpdateBalance(txCtx, toWallet); err != nil {
			return fmt.Errorf("failed to update destination wallet balance: %w", err)
		}

		// Двойная запись: DEBIT и CREDIT создаются и вставляются парой,
		// их связывает общий transaction_log_id.
		debitEntry, err := entities.NewDebitEntry(
			fromID, log.ID(), amount,
			fromBefore, fromWallet.Balance(),
			"transfer to "+toID.String(),
		)
		if err != nil {
			return err
		}
		creditEntry, err := entities.NewCreditEntry(
			toID, log.ID(), amount,
			toBefore, toWallet.Balance(),
			"transfer from "+fromID.String(),
		)
		if err != nil {
			return err
		}
		if err := uc.ledgerRepo.InsertPair(txCtx, debitEntry, creditEntry); err != nil {
			return fmt.Errorf("failed to insert ledger pair: %w", err)
		}

		if err := log.MarkCompleted(); err != nil {
			return err
		}
		if err := uc.logRepo.MarkCompleted(txCtx, log); err != nil {
			return fmt.Errorf("failed to complete transaction log: %w", err)
		}

		event := events.NewTransferCompleted(log.ID(), fromID, toID, amount.String(), idempotencyKey)
		if err := uc.publisher.Publish(txCtx, event); err != nil {
			return fmt.Errorf("failed to publish transfer completed event: %w", err)
		}

		result = &dtos.TransferResultDTO{
			Transaction:  dtos.ToTransactionLogDTO(log),
			Success:      true,
			IsIdempotent: false,
			Message:      "transfer completed",
		}
		return nil
	})

	if execErr != nil {
		return nil, log, execErr
	}
	if businessErr != nil {
		return nil, log, businessErr
	}
	return result, log, nil
}

// lockWalletPair блокирует оба кошелька FOR UPDATE в лексикографическом
// порядке ID. Глобальный порядок блокировок исключает AB/BA deadlock
// между встречными переводами. Возвращает кошельки как (from, to).
func (uc *ExecuteTransferUseCase) lockWalletPair(
	txCtx context.Context,
	fromID, toID uuid.UUID,
) (*entities.Wallet, *entities.Wallet, error) {
	firstID, secondID := fromID, toID
	if bytes.Compare(toID[:], fromID[:]) < 0 {
		firstID, secondID = toID, fromID
	}

	first, err := uc.lockWallet(txCtx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := uc.lockWallet(txCtx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if firstID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

func (uc *ExecuteTransferUseCase) lockWallet(txCtx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	wallet, err := uc.walletRepo.FindByIDForUpdate(txCtx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: wallet %s", errors.ErrWalletNotFound, id)
		}
		return nil, fmt.Errorf("failed to lock wallet %s: %w", id, err)
	}
	return wallet, nil
}

// commitFailure переводит запись журнала в FAILED внутри текущей транзакции
// и публикует событие отказа через outbox.
func (uc *ExecuteTransferUseCase) commitFailure(txCtx context.Context, log *entities.TransactionLog, reason string) error {
	if err := log.MarkFailed(reason); err != nil {
		return err
	}
	if err := uc.logRepo.MarkFailed(txCtx, log); err != nil {
		return fmt.Errorf("failed to persist failed transaction log: %w", err)
	}

	event := events.NewTransferFailed(
		log.ID(), log.FromWalletID(), log.ToWalletID(),
		log.Amount().String(), log.IdempotencyKey(), reason,
	)
	return uc.publisher.Publish(txCtx, event)
}

// tryFastPath ищет существующую запись по ключу идемпотентности.
// (nil, nil) означает промах - перевод пойдёт по полному пути.
func (uc *ExecuteTransferUseCase) tryFastPath(ctx context.Context, idempotencyKey string) (*dtos.TransferResultDTO, error) {
	// Кэш хранит только ID записи: сама запись всегда перечитывается
	// из БД, поэтому устаревший кэш не может подменить результат.
	if uc.cache != nil {
		if logID, ok := uc.cache.Get(ctx, idempotencyKey); ok {
			log, err := uc.logRepo.FindByID(ctx, logID)
			if err == nil && log.IdempotencyKey() == idempotencyKey {
				return uc.replayResult(ctx, log), nil
			}
			// Кэш разошёлся с БД - игнорируем и спрашиваем БД напрямую.
		}
	}

	log, err := uc.logRepo.FindByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return uc.replayResult(ctx, log), nil
}

// replayAfterRace достаёт запись-победителя после duplicate key.
// Отсутствие записи после UNIQUE violation - сломанный инвариант.
func (uc *ExecuteTransferUseCase) replayAfterRace(ctx context.Context, idempotencyKey string) (*dtos.TransferResultDTO, error) {
	log, err := uc.logRepo.FindByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf(
				"%w: transaction log missing after duplicate key on %q",
				errors.ErrInternalInconsistency, idempotencyKey,
			)
		}
		return nil, fmt.Errorf("failed to fetch transaction log after duplicate key: %w", err)
	}
	return uc.replayResult(ctx, log), nil
}

// replayResult строит ответ повторного вызова из сохранённой записи журнала.
// Все поля Transaction берутся из исходной записи: id, статус, сумма и
// created_at совпадают с первым ответом.
func (uc *ExecuteTransferUseCase) replayResult(ctx context.Context, log *entities.TransactionLog) *dtos.TransferResultDTO {
	result := &dtos.TransferResultDTO{
		Transaction:  dtos.ToTransactionLogDTO(log),
		IsIdempotent: true,
	}

	switch {
	case log.IsCompleted():
		result.Success = true
		result.Message = "transfer already completed"
	case log.IsFailed():
		result.Success = false
		result.Message = log.ErrorMessage()
	default:
		// PENDING-сирота: оригинальная транзакция упала после вставки.
		// Запись не трогаем - переводить её в терминальный статус может
		// только породившая транзакция.
		result.Success = false
		result.Message = "previously pending"
	}

	if log.Status().IsTerminal() {
		uc.cacheResult(ctx, log)
	}
	return result
}

// cacheResult запоминает терминальную запись в кэше идемпотентности.
// PENDING не кэшируем: статус ещё может измениться.
func (uc *ExecuteTransferUseCase) cacheResult(ctx context.Context, log *entities.TransactionLog) {
	if uc.cache == nil || log == nil || !log.Status().IsTerminal() {
		return
	}
	uc.cache.Set(ctx, log.IdempotencyKey(), log.ID(), idempotencyCacheTTL)
}

// bestEffortMarkFailed пытается пометить запись журнала FAILED в отдельной
// транзакции после отката основной. Обычно вставка откатилась вместе с
// транзакцией и записи уже нет - тогда это no-op. Ошибки глотаются:
// вызывающий в любом случае получает исходную ошибку.
func (uc *ExecuteTransferUseCase) bestEffortMarkFailed(ctx context.Context, log *entities.TransactionLog, cause error) {
	if log == nil {
		return
	}

	uow := uc.uowFactory.NewReadCommitted()
	_ = uow.Execute(ctx, func(txCtx context.Context) error {
		stored, err := uc.logRepo.FindByID(txCtx, log.ID())
		if err != nil || !stored.IsPending() {
			return nil
		}
		if err := stored.MarkFailed(fmt.Sprintf("internal error: %v", cause)); err != nil {
			return nil
		}
		return uc.logRepo.MarkFailed(txCtx, stored)
	})
}

// isUnexpected отделяет инфраструктурные сбои от ожидаемых исходов
// конечного автомата. Только для неожиданных ошибок есть смысл в
// best-effort маркировке FAILED.
func isUnexpected(err error) bool {
	return !errors.IsNotFound(err) &&
		!errors.IsInsufficientFunds(err) &&
		!errors.IsValidation(err) &&
		!errors.IsBusinessRuleViolation(err)
}
