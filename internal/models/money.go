package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidDecimal marks a value that is neither a JSON number nor a numeric string,
// or one outside the range a ledger amount can hold
var ErrInvalidDecimal = errors.New("invalid decimal value")

const (
	maxDecimalTextLen  = 40
	maxDecimalExponent = 20
)

// Money commission amount, two decimal places, serialised as a JSON number
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal builds a Money rounded to two places
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// MustMoney parses a literal amount, panicking on malformed input
func MustMoney(raw string) Money {
	d := decimal.RequireFromString(raw)
	return NewMoneyFromDecimal(d)
}

// MarshalJSON writes the amount as a plain JSON number
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.Round(2).String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string
func (m *Money) UnmarshalJSON(b []byte) error {
	d, err := decodeDecimal(b)
	if err != nil {
		return err
	}
	m.Decimal = d.Round(2)
	return nil
}

// Value implements driver.Valuer
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(2).Value()
}

// Scan implements sql.Scanner
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(2)
	return nil
}

// String returns the amount with two decimals
func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}

// Percent commission rate, serialised as a two-decimal string such as "10.00"
type Percent struct {
	decimal.Decimal
}

// ParsePercent parses a rate from its string form
func ParsePercent(raw string) (Percent, error) {
	d, err := parseBoundedDecimal(raw)
	if err != nil {
		return Percent{}, err
	}
	return Percent{Decimal: d.Round(2)}, nil
}

// MarshalJSON writes the rate as a quoted two-decimal string
func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts a numeric string or a JSON number
func (p *Percent) UnmarshalJSON(b []byte) error {
	d, err := decodeDecimal(b)
	if err != nil {
		return err
	}
	p.Decimal = d.Round(2)
	return nil
}

// Value implements driver.Valuer
func (p Percent) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner
func (p *Percent) Scan(value interface{}) error {
	if err := p.Decimal.Scan(value); err != nil {
		return err
	}
	p.Decimal = p.Decimal.Round(2)
	return nil
}

// String returns the rate with two decimals
func (p Percent) String() string {
	return p.Decimal.Round(2).StringFixed(2)
}

func decodeDecimal(b []byte) (decimal.Decimal, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return decimal.Zero, ErrInvalidDecimal
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return decimal.Zero, err
		}
	}
	return parseBoundedDecimal(raw)
}

// parseBoundedDecimal rejects long literals and large exponents before anything rescales them
func parseBoundedDecimal(raw string) (decimal.Decimal, error) {
	if len(raw) > maxDecimalTextLen {
		return decimal.Zero, fmt.Errorf("%w: literal too long", ErrInvalidDecimal)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDecimal, raw)
	}
	if exp := d.Exponent(); exp > maxDecimalExponent || exp < -maxDecimalExponent {
		return decimal.Zero, fmt.Errorf("%w: exponent out of range: %q", ErrInvalidDecimal, raw)
	}
	return d, nil
}
