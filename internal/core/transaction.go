package core

import "time"

// ColorTag is the semantic color of a ledger row.
type ColorTag string

const (
	ColorCredit ColorTag = "credit"
	ColorDebit  ColorTag = "debit"
)

// Display strings for income rows. Income records carry no category, so the
// ledger presents them under a fixed title and emoji.
const (
	incomeTitle = "Income"
	incomeEmoji = "💰"
	incomeNote  = " "
)

// TransactionItem is a closed sum over {Expense, Income}. Every derived
// field is computed from the underlying record; nothing is stored on the
// item itself, and one item always maps to exactly one record.
type TransactionItem struct {
	kind    string
	expense Expense
	income  Income
}

func ExpenseItem(e Expense) TransactionItem {
	return TransactionItem{kind: KindExpense, expense: e}
}

func IncomeItem(i Income) TransactionItem {
	return TransactionItem{kind: KindIncome, income: i}
}

// Kind reports KindExpense or KindIncome.
func (t TransactionItem) Kind() string { return t.kind }

// Expense returns the underlying expense record; the bool is false for
// income items.
func (t TransactionItem) Expense() (Expense, bool) {
	return t.expense, t.kind == KindExpense
}

func (t TransactionItem) Income() (Income, bool) {
	return t.income, t.kind == KindIncome
}

func (t TransactionItem) ID() string {
	if t.kind == KindExpense {
		return t.expense.ID
	}
	return t.income.ID
}

func (t TransactionItem) Date() time.Time {
	if t.kind == KindExpense {
		return t.expense.Date
	}
	return t.income.Date
}

func (t TransactionItem) Title() string {
	if t.kind == KindExpense {
		return t.expense.Name
	}
	return incomeTitle
}

func (t TransactionItem) Emoji() string {
	if t.kind == KindExpense {
		return t.expense.Emoji
	}
	return incomeEmoji
}

func (t TransactionItem) Amount() Money {
	if t.kind == KindExpense {
		return t.expense.Amount
	}
	return t.income.Amount
}

// AmountText renders the amount with two decimals, matching how rows are
// displayed.
func (t TransactionItem) AmountText() string {
	return t.Amount().String()
}

// Note returns the expense note. Income rows present a blank note even
// though the record stores one; search consequently never matches on it.
func (t TransactionItem) Note() string {
	if t.kind == KindExpense {
		return t.expense.Note
	}
	return incomeNote
}

func (t TransactionItem) Color() ColorTag {
	if t.kind == KindExpense {
		return ColorDebit
	}
	return ColorCredit
}
