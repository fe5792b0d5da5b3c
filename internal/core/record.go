package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for expense dates.
const DateLayout = "2006-01-02"

// UnassignedID marks a record that has not been through the store yet.
// The store replaces it with the lowest unused non-negative id on Add.
const UnassignedID = -1

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid record")
)

// Record is one expense entry. Amount is nullable because a record may be
// mid-edit with no amount yet; Date stays in its serialized string form and
// is parsed on demand.
type Record struct {
	ID          int                 `json:"id"`
	Description string              `json:"description,omitempty"`
	Amount      decimal.NullDecimal `json:"amount"`
	Category    string              `json:"category"`
	Date        string              `json:"date"`
}

// NewRecord returns a record with an unassigned id.
func NewRecord(description string, amount decimal.NullDecimal, category, date string) Record {
	return Record{
		ID:          UnassignedID,
		Description: description,
		Amount:      amount,
		Category:    category,
		Date:        date,
	}
}

// Amount helpers for the common case of a known value.
func SomeAmount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func NoAmount() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// AmountOrZero treats an absent amount as zero, the summation convention.
func (r Record) AmountOrZero() decimal.Decimal {
	if !r.Amount.Valid {
		return decimal.Zero
	}
	return r.Amount.Decimal
}

// ParsedDate parses the record's date string.
func (r Record) ParsedDate() (time.Time, error) {
	return ParseDate(r.Date)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidRecord)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return t, nil
}

// EncodeRecord renders the persisted JSON form.
func EncodeRecord(r Record) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode record %d: %w", r.ID, err)
	}
	return string(b), nil
}

// DecodeRecord parses a persisted entry. Entries with unparseable JSON, a
// negative id or a missing category are rejected so the store can skip them
// at load instead of crashing.
func DecodeRecord(value string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(value), &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if r.ID < 0 {
		return Record{}, fmt.Errorf("%w: id %d", ErrInvalidRecord, r.ID)
	}
	if r.Category == "" {
		return Record{}, fmt.Errorf("%w: missing category", ErrInvalidRecord)
	}
	return r, nil
}
