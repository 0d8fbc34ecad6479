package interest

import (
	"context"
	"fmt"

	"github.com/Haleralex/ledgerhub/internal/application/dtos"
	"github.com/Haleralex/ledgerhub/internal/domain/errors"
	"github.com/google/uuid"
)

// maxRangeDays - верхняя граница диапазона на один запрос.
// Трёх лет хватает на любой разумный backfill; диапазоны длиннее
// почти наверняка опечатка в датах.
const maxRangeDays = 1096

// CalculateInterestRangeUseCase - начисление процентов за диапазон дней.
//
// Диапазон включительный с обеих сторон. Дни обрабатываются строго по
// порядку, каждый в собственной транзакции: день N+1 считается от баланса,
// уже включающего проценты дня N. Уже посчитанные дни реплеятся, поэтому
// операция безопасна для повторного запуска с того же диапазона.
type CalculateInterestRangeUseCase struct {
	daily *CalculateDailyInterestUseCase
}

// NewCalculateInterestRangeUseCase создаёт новый use case поверх
// однодневного начисления.
func NewCalculateInterestRangeUseCase(daily *CalculateDailyInterestUseCase) *CalculateInterestRangeUseCase {
	return &CalculateInterestRangeUseCase{daily: daily}
}

// Execute начисляет проценты за каждый день диапазона.
// Ошибка на дне N оставляет дни 1..N-1 закоммиченными: повторный запуск
// того же диапазона реплеит их и продолжает с N.
func (uc *CalculateInterestRangeUseCase) Execute(ctx context.Context, cmd dtos.CalculateInterestRangeCommand) (*dtos.InterestRangeDTO, error) {
	if _, err := uuid.Parse(cmd.AccountID); err != nil {
		return nil, errors.ValidationError{Field: "account_id", Message: "invalid UUID"}
	}

	start, err := parseISODate("start_date", cmd.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseISODate("end_date", cmd.EndDate)
	if err != nil {
		return nil, err
	}

	if end.Before(start) {
		return nil, errors.ValidationError{
			Field:   "end_date",
			Message: "end date is before start date",
		}
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > maxRangeDays {
		return nil, errors.ValidationError{
			Field:   "end_date",
			Message: fmt.Sprintf("range of %d days exceeds the maximum of %d", days, maxRangeDays),
		}
	}

	result := &dtos.InterestRangeDTO{
		AccountID: cmd.AccountID,
		StartDate: start.Format(isoDateLayout),
		EndDate:   end.Format(isoDateLayout),
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dayCmd := dtos.CalculateDailyInterestCommand{
			AccountID: cmd.AccountID,
			Date:      day.Format(isoDateLayout),
		}

		calc, err := uc.daily.Execute(ctx, dayCmd)
		if err != nil {
			return nil, fmt.Errorf("interest range stopped at %s: %w", dayCmd.Date, err)
		}

		result.DaysProcessed++
		if calc.IsNew {
			result.NewEntries++
		} else {
			result.ReplayedEntries++
		}
		result.FinalBalance = calc.Interest.NewBalance
		result.Entries = append(result.Entries, *calc)
	}

	return result, nil
}
