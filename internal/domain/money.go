package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Money — денежная сумма в минимальных единицах (центах).
// Два десятичных знака фиксированы, арифметика целочисленная, без дрейфа округления.
type Money int64

// ParseMoney разбирает строку вида "10", "10.5", "10.50" в минимальные единицы.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money value is empty")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("money value %q has more than two fractional digits", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}

	value := units*100 + cents
	if negative {
		value = -value
	}
	return Money(value), nil
}

// MulQty умножает цену за единицу на количество.
func (m Money) MulQty(qty int32) Money {
	return m * Money(qty)
}

// Minor возвращает сумму в минимальных единицах.
func (m Money) Minor() int64 {
	return int64(m)
}

// String форматирует сумму как десятичную строку с двумя знаками, например "30.00".
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON сериализует сумму как строку "10.00" для API.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON принимает строку "10.00" или число 10.00 (для совместимости).
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Числовой литерал тоже разбираем как текст, чтобы не терять точность.
		s = string(data)
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
