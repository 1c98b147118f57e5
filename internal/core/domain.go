package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record kinds as persisted and as carried on sync messages.
const (
	KindExpense = "expense"
	KindIncome  = "income"
)

type (
	// Expense is a single spending record. Emoji and Name are the category
	// display strings captured at creation time; the record keeps no link to
	// the catalog entry they came from.
	Expense struct {
		ID     string
		Emoji  string
		Name   string
		Amount Money
		Date   time.Time
		Note   string
	}

	// Income is a single earning record. It carries no category.
	Income struct {
		ID     string
		Amount Money
		Date   time.Time
		Note   string
	}

	// UserCategory is a catalog entry added by the user at runtime.
	// The catalog is append-only and duplicates are allowed.
	UserCategory struct {
		ID    string
		Name  string
		Emoji string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyField    = errors.New("empty field")
	ErrEmptyName     = errors.New("empty category name")
	ErrEmptyEmoji    = errors.New("empty category emoji")
	ErrZeroDate      = errors.New("zero date")
)

// EnsureID assigns a fresh UUID when the record has none yet.
func (e *Expense) EnsureID() {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
}

func (i *Income) EnsureID() {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
}

func (c *UserCategory) EnsureID() {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
}

// Validate checks the preconditions for storing an expense. Amounts already
// present in the store are never re-validated; zero and negative cents are
// tolerated everywhere downstream.
func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(e.Emoji) == "" {
		return ErrEmptyEmoji
	}
	if e.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i Income) Validate() error {
	if i.Date.IsZero() {
		return ErrZeroDate
	}
	if i.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate enforces the catalog precondition: trimmed name and emoji must be
// non-empty. Uniqueness is deliberately not checked.
func (c UserCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Emoji) == "" {
		return ErrEmptyField
	}
	return nil
}
