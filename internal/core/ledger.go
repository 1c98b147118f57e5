package core

import (
	"sort"
	"strings"
	"time"
)

// Period selects the calendar bucket a ledger view is restricted to.
// Buckets follow the calendar of the reference instant's location, not a
// rolling window: "week" is the ISO week (Monday start), "month" the
// calendar month.
type Period int

const (
	PeriodDay Period = iota
	PeriodWeek
	PeriodMonth
)

func (p Period) String() string {
	switch p {
	case PeriodDay:
		return "day"
	case PeriodWeek:
		return "week"
	case PeriodMonth:
		return "month"
	default:
		return "unknown"
	}
}

// ParsePeriod maps the wire names used by the API back to a Period.
func ParsePeriod(s string) (Period, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day":
		return PeriodDay, true
	case "week":
		return PeriodWeek, true
	case "month":
		return PeriodMonth, true
	default:
		return 0, false
	}
}

// MergeTransactions combines both record sets into one ledger ordered by
// date descending. The sort is stable: records sharing a date keep the
// expenses-then-incomes order of the concatenation between calls.
func MergeTransactions(expenses []Expense, incomes []Income) []TransactionItem {
	items := make([]TransactionItem, 0, len(expenses)+len(incomes))
	for _, e := range expenses {
		items = append(items, ExpenseItem(e))
	}
	for _, i := range incomes {
		items = append(items, IncomeItem(i))
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Date().After(items[b].Date())
	})
	return items
}

// InPeriod reports whether d falls in the same calendar bucket as ref.
// The comparison happens in ref's location. Zero dates belong to no bucket.
func InPeriod(d time.Time, p Period, ref time.Time) bool {
	if d.IsZero() {
		return false
	}
	d = d.In(ref.Location())
	switch p {
	case PeriodDay:
		dy, dm, dd := d.Date()
		ry, rm, rd := ref.Date()
		return dy == ry && dm == rm && dd == rd
	case PeriodWeek:
		dy, dw := d.ISOWeek()
		ry, rw := ref.ISOWeek()
		return dy == ry && dw == rw
	case PeriodMonth:
		return d.Year() == ref.Year() && d.Month() == ref.Month()
	default:
		return false
	}
}

// FilterByPeriod keeps the items whose date shares ref's calendar bucket.
func FilterByPeriod(items []TransactionItem, p Period, ref time.Time) []TransactionItem {
	out := make([]TransactionItem, 0, len(items))
	for _, it := range items {
		if InPeriod(it.Date(), p, ref) {
			out = append(out, it)
		}
	}
	return out
}

// SearchTransactions keeps items whose title or note contains the query,
// case-insensitively. An empty query returns the input unchanged; callers
// apply it after FilterByPeriod so the two filters compose predictably.
func SearchTransactions(items []TransactionItem, query string) []TransactionItem {
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	out := make([]TransactionItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title()), q) ||
			strings.Contains(strings.ToLower(it.Note()), q) {
			out = append(out, it)
		}
	}
	return out
}

// DeleteAt removes the item at the given ledger position and returns it so
// the caller can delete the underlying record from the store. The relative
// order of the remaining items is untouched. ok is false when the index is
// out of range.
func DeleteAt(items []TransactionItem, index int) (removed TransactionItem, remaining []TransactionItem, ok bool) {
	if index < 0 || index >= len(items) {
		return TransactionItem{}, items, false
	}
	removed = items[index]
	remaining = make([]TransactionItem, 0, len(items)-1)
	remaining = append(remaining, items[:index]...)
	remaining = append(remaining, items[index+1:]...)
	return removed, remaining, true
}
