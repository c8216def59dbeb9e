package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
)

// Константы валидации
const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

// MaxAmount - верхняя граница суммы, помещающаяся в NUMERIC(12,2).
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Errors собирает ошибки по полям, чтобы вернуть их все разом.
type Errors struct {
	fields map[string]string
}

func New() *Errors {
	return &Errors{fields: make(map[string]string)}
}

// Add запоминает первую ошибку поля.
func (e *Errors) Add(field, message string) {
	if _, exists := e.fields[field]; !exists {
		e.fields[field] = message
	}
}

// Check добавляет ошибку, если условие не выполнено.
func (e *Errors) Check(ok bool, field, message string) {
	if !ok {
		e.Add(field, message)
	}
}

// Has сообщает, есть ли уже ошибка у поля.
func (e *Errors) Has(field string) bool {
	_, ok := e.fields[field]
	return ok
}

// Err возвращает apperror VALIDATION_ERROR или nil.
func (e *Errors) Err() error {
	if len(e.fields) == 0 {
		return nil
	}
	fields := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		fields[k] = v
	}
	return apperror.Validation(fields)
}

// Binding переносит ошибки gin binding (validator/v10 и json) в набор полей.
func (e *Errors) Binding(err error) {
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			e.Add(toSnake(fe.Field()), tagMessage(fe))
		}
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		e.Add(typeErr.Field, "неверный тип значения")
		return
	}

	e.Add("body", "некорректный JSON")
}

// Date разбирает дату YYYY-MM-DD. Пустой указатель - поле не задано.
func (e *Errors) Date(field string, raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	d, err := time.Parse(DateLayout, strings.TrimSpace(*raw))
	if err != nil {
		e.Add(field, "ожидается дата в формате YYYY-MM-DD")
		return nil
	}
	return &d
}

// TimeOfDay разбирает время HH:MM и возвращает его в каноническом виде.
func (e *Errors) TimeOfDay(field string, raw *string) *string {
	if raw == nil {
		return nil
	}
	t, err := time.Parse(TimeOfDayLayout, strings.TrimSpace(*raw))
	if err != nil {
		e.Add(field, "ожидается время в формате HH:MM")
		return nil
	}
	s := t.Format(TimeOfDayLayout)
	return &s
}

// Amount проверяет неотрицательную (или строго положительную) сумму с копейками.
// Лишние знаки после запятой не округляются молча, это ошибка поля.
func (e *Errors) Amount(field string, amount *decimal.Decimal, positive bool) *vo.Money {
	if amount == nil {
		return nil
	}
	switch {
	case amount.IsNegative():
		e.Add(field, "сумма не может быть отрицательной")
		return nil
	case positive && amount.IsZero():
		e.Add(field, "сумма должна быть больше нуля")
		return nil
	case amount.GreaterThan(MaxAmount):
		e.Add(field, "сумма слишком большая")
		return nil
	case !amount.Equal(amount.Truncate(2)):
		e.Add(field, "не более двух знаков после запятой")
		return nil
	}
	m := vo.NewMoney(*amount)
	return &m
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "oneof":
		return "допустимые значения: " + fe.Param()
	case "max":
		return "не более " + fe.Param() + " символов"
	case "min":
		return "не менее " + fe.Param() + " символов"
	case "uuid", "uuid4":
		return "ожидается UUID"
	default:
		return "некорректное значение"
	}
}

// toSnake переводит имя поля структуры в snake_case, как в JSON.
func toSnake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
