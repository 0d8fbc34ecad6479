// Package entities - InterestLog is the immutable daily interest record and
// the home of the interest formulas. One row per (account, UTC calendar day);
// the unique constraint on that pair is the idempotency primitive.
package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Haleralex/ledgerhub/internal/domain/errors"
)

// AnnualRateScale is the fractional precision the annual rate is persisted at
// ("0.275" is stored as "0.275000").
const AnnualRateScale = 6

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInYear returns 366 for leap years, 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// DailyRate divides the annual rate by the day count of the given year.
// Precision comes from the process-wide decimal division setting, which keeps
// more than 20 significant digits for rates in this range.
func DailyRate(annualRate decimal.Decimal, year int) decimal.Decimal {
	return annualRate.Div(decimal.NewFromInt(int64(DaysInYear(year))))
}

// ComputeInterest returns principal × dailyRate, rounded half-up to scale 8.
func ComputeInterest(principal, dailyRate decimal.Decimal) decimal.Decimal {
	return principal.Mul(dailyRate).Round(AccountBalanceScale)
}

// NormalizeCalculationDate truncates an instant to its UTC calendar day.
// Every calculation date in the system passes through here, so the
// (account, date) unique constraint is deterministic across deployments.
func NormalizeCalculationDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// InterestLog records one day's interest application to one account.
// Append-only and immutable.
type InterestLog struct {
	id               uuid.UUID
	accountID        uuid.UUID
	calculationDate  time.Time // UTC midnight
	principalBalance decimal.Decimal
	interestAmount   decimal.Decimal
	newBalance       decimal.Decimal
	annualRate       decimal.Decimal
	daysInYear       int

	createdAt time.Time
}

// NewInterestLog computes a day's interest for the given principal and
// builds the log row.
//
//	dailyRate = annualRate / daysInYear(year)   (year of the UTC date)
//	interest  = principal × dailyRate           (half-up, scale 8)
//	newBalance = principal + interest
func NewInterestLog(
	accountID uuid.UUID,
	calculationDate time.Time,
	principal, annualRate decimal.Decimal,
) (*InterestLog, error) {
	if principal.IsNegative() {
		return nil, errors.ValidationError{
			Field:   "principal_balance",
			Message: "principal cannot be negative",
		}
	}
	if !annualRate.IsPositive() {
		return nil, errors.ValidationError{
			Field:   "annual_rate",
			Message: "annual rate must be positive",
		}
	}

	date := NormalizeCalculationDate(calculationDate)
	year := date.Year()

	rate := DailyRate(annualRate, year)
	interest := ComputeInterest(principal, rate)

	return &InterestLog{
		id:               uuid.New(),
		accountID:        accountID,
		calculationDate:  date,
		principalBalance: principal,
		interestAmount:   interest,
		newBalance:       principal.Add(interest),
		annualRate:       annualRate,
		daysInYear:       DaysInYear(year),
		createdAt:        time.Now().UTC(),
	}, nil
}

// ReconstructInterestLog reconstructs an InterestLog from stored data.
func ReconstructInterestLog(
	id, accountID uuid.UUID,
	calculationDate time.Time,
	principalBalance, interestAmount, newBalance, annualRate decimal.Decimal,
	daysInYear int,
	createdAt time.Time,
) *InterestLog {
	return &InterestLog{
		id:               id,
		accountID:        accountID,
		calculationDate:  NormalizeCalculationDate(calculationDate),
		principalBalance: principalBalance,
		interestAmount:   interestAmount,
		newBalance:       newBalance,
		annualRate:       annualRate,
		daysInYear:       daysInYear,
		createdAt:        createdAt,
	}
}

// Getters

func (l *InterestLog) ID() uuid.UUID {
	return l.id
}

func (l *InterestLog) AccountID() uuid.UUID {
	return l.accountID
}

func (l *InterestLog) CalculationDate() time.Time {
	return l.calculationDate
}

func (l *InterestLog) PrincipalBalance() decimal.Decimal {
	return l.principalBalance
}

func (l *InterestLog) InterestAmount() decimal.Decimal {
	return l.interestAmount
}

func (l *InterestLog) NewBalance() decimal.Decimal {
	return l.newBalance
}

func (l *InterestLog) AnnualRate() decimal.Decimal {
	return l.annualRate
}

func (l *InterestLog) DaysInYear() int {
	return l.daysInYear
}

func (l *InterestLog) CreatedAt() time.Time {
	return l.createdAt
}

// DailyRateValue recomputes the daily rate this log was produced with,
// for display on replays.
func (l *InterestLog) DailyRateValue() decimal.Decimal {
	return l.annualRate.Div(decimal.NewFromInt(int64(l.daysInYear)))
}

// AnnualRateString returns the canonical scale-6 rate form, e.g. "0.275000".
func (l *InterestLog) AnnualRateString() string {
	return l.annualRate.StringFixed(AnnualRateScale)
}
