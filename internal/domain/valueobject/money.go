package valueobject

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
)

// Money - сумма, которая при выводе округляется до копеек.
// Внутри хранится с полной точностью, округление только в MarshalJSON и String.
type Money struct {
	decimal.Decimal
}

func NewMoney(amount decimal.Decimal) Money {
	return Money{Decimal: amount}
}

// ParseMoney разбирает неотрицательную сумму из строки.
func ParseMoney(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "некорректная сумма")
	}
	if d.IsNegative() {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return Money{Decimal: d}, nil
}

func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}
