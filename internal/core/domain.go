package core

import (
	"errors"
	"strings"
	"time"
)

// Categories is the fixed set of expense categories accepted by the API.
var Categories = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Bills & Utilities",
	"Healthcare",
	"Education",
	"Others",
}

const DefaultCategory = "Others"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID        int64
		Item      string
		Category  string
		Amount    Money
		Date      Date
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Budget is the single monthly budget configured for the account.
	Budget struct {
		Amount         Money
		AlertThreshold int // percent, 50..100
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrEmptyItem        = errors.New("empty item name")
	ErrItemTooLong      = errors.New("item name too long (max 200 characters)")
	ErrInvalidThreshold = errors.New("alert threshold must be between 50 and 100")
	ErrNotFound         = errors.New("not found")
)

// maxAmountCents mirrors the API limit of 999999.99.
const maxAmountCents = 99999999

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// YearMonth returns the date formatted as YYYY-MM.
func (d Date) YearMonth() string {
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > maxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// ValidCategory reports whether name is one of the fixed categories.
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Item)) == 0 {
		return ErrEmptyItem
	}
	if len(e.Item) > 200 {
		return ErrItemTooLong
	}
	if !ValidCategory(e.Category) {
		return ErrInvalidCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}

func (b Budget) Validate() error {
	if b.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if b.AlertThreshold < 50 || b.AlertThreshold > 100 {
		return ErrInvalidThreshold
	}
	return nil
}
