package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

// DefaultCurrency валюта площадки.
const DefaultCurrency = "PHP"

// minorPerUnit количество минимальных единиц (сентаво) в одном песо.
const minorPerUnit = 100

// Money сумма в минимальных единицах валюты.
type Money int64

// Границы бюджета объявления в целых единицах валюты.
const (
	BudgetFloorUnits   = 50
	BudgetCeilingUnits = 50000
)

// MaxAmountUnits верхняя граница любой суммы на площадке в единицах валюты.
// При такой границе total*rate в CalculatePayment укладывается в int64.
const MaxAmountUnits = 100_000_000

// MaxAmount MaxAmountUnits в минимальных единицах.
const MaxAmount = Money(MaxAmountUnits * minorPerUnit)

// NewMoney переводит сумму в единицах валюты в минимальные единицы с округлением half-up.
func NewMoney(units float64) (Money, error) {
	if math.IsNaN(units) || math.IsInf(units, 0) {
		return 0, apperror.Validation("некорректная сумма")
	}
	if units < 0 {
		return 0, apperror.Validation("сумма не может быть отрицательной")
	}
	if units > MaxAmountUnits {
		return 0, apperror.Validation("сумма не может превышать %d", MaxAmountUnits)
	}
	return Money(roundHalfUp(units * minorPerUnit)), nil
}

// Units возвращает сумму в единицах валюты.
// CheckAmount проверяет, что сумма положительна и не выходит за MaxAmount.
func CheckAmount(m Money, what string) error {
	if m <= 0 {
		return apperror.Validation("%s должна быть положительной", what)
	}
	if m > MaxAmount {
		return apperror.Validation("%s не может превышать %d", what, MaxAmountUnits)
	}
	return nil
}

func (m Money) Units() float64 {
	return float64(m) / minorPerUnit
}

// MulHours умножает ставку на количество часов, округляя до минимальной единицы.
// Результат, не представимый в int64, насыщается до math.MaxInt64, поэтому
// после умножения сумму нужно проверять через CheckAmount.
func (m Money) MulHours(hours float64) Money {
	v := float64(m) * hours
	if math.IsNaN(v) || v >= math.MaxInt64 {
		return Money(math.MaxInt64)
	}
	if v <= math.MinInt64 {
		return Money(math.MinInt64)
	}
	return Money(roundHalfUp(v))
}

// PerHour делит сумму на часы и округляет до целых единиц валюты.
// hours == 0 является нарушением предусловия: длительность проверяется при создании объявления.
func (m Money) PerHour(hours int) Money {
	if hours <= 0 {
		panic("valueobject: PerHour с неположительной длительностью")
	}
	units := roundHalfUp(m.Units() / float64(hours))
	return Money(units * minorPerUnit)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %.2f", DefaultCurrency, m.Units())
}

// roundHalfUp округляет неотрицательные значения половиной вверх.
func roundHalfUp(v float64) int64 {
	if v < 0 {
		return -int64(math.Floor(-v + 0.5))
	}
	return int64(math.Floor(v + 0.5))
}

type Budget struct {
	Min  Money
	Max  Money
	Mode BudgetMode
}

func NewBudget(min, max Money, mode BudgetMode) (Budget, error) {
	if !mode.IsValid() {
		return Budget{}, apperror.Validation("некорректный тип бюджета: %q", mode)
	}
	floor := Money(BudgetFloorUnits * minorPerUnit)
	ceiling := Money(BudgetCeilingUnits * minorPerUnit)
	if min < floor || min > ceiling || max < floor || max > ceiling {
		return Budget{}, apperror.Validation("бюджет должен быть в диапазоне [%d, %d]", BudgetFloorUnits, BudgetCeilingUnits)
	}
	if min > max {
		return Budget{}, apperror.Validation("минимальный бюджет не может превышать максимальный")
	}
	return Budget{Min: min, Max: max, Mode: mode}, nil
}

func (b Budget) IsInRange(amount Money) bool {
	return amount >= b.Min && amount <= b.Max
}

func (b Budget) String() string {
	return fmt.Sprintf("%s %.2f - %.2f (%s)", DefaultCurrency, b.Min.Units(), b.Max.Units(), b.Mode)
}

// CommissionRate ставка комиссии площадки в базисных пунктах (1/10000).
type CommissionRate int64

// DefaultCommissionRate 15%.
const DefaultCommissionRate CommissionRate = 1500

const basisPoints = 10000

// NewCommissionRate конвертирует долю (0.15) в базисные пункты.
func NewCommissionRate(fraction float64) (CommissionRate, error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction >= 1 {
		return 0, apperror.ErrInvalidCommission
	}
	return CommissionRate(roundHalfUp(fraction * basisPoints)), nil
}

func (r CommissionRate) Fraction() float64 {
	return float64(r) / basisPoints
}

// Payment разбиение итоговой суммы между площадкой и исполнителем.
type Payment struct {
	Total        Money
	Commission   Money
	WorkerPayout Money
}

// CalculatePayment считает комиссию с округлением half-up до минимальной единицы.
// Остаток от округления всегда уходит в выплату исполнителю, так что
// Commission + WorkerPayout == Total выполняется точно.
// total должен быть в пределах [0, MaxAmount].
func CalculatePayment(total Money, rate CommissionRate) Payment {
	if total < 0 || total > MaxAmount {
		panic("valueobject: CalculatePayment с суммой вне [0, MaxAmount]")
	}
	commission := (int64(total)*int64(rate) + basisPoints/2) / basisPoints
	return Payment{
		Total:        total,
		Commission:   Money(commission),
		WorkerPayout: total - Money(commission),
	}
}
