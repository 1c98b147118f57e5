package core

import (
	"sort"
	"time"
)

type (
	// PeriodTotals holds independent income and expense sums for one
	// calendar bucket.
	PeriodTotals struct {
		Income  Money
		Expense Money
	}

	// CategoryTotal aggregates expenses sharing one stored category name.
	// Share is the fraction of the grand total in [0,1].
	CategoryTotal struct {
		Name  string
		Emoji string
		Total Money
		Share float64
	}

	// DailyPoint is one calendar day's expense total.
	DailyPoint struct {
		Day   time.Time
		Total Money
	}
)

// Totals sums income and expense amounts after restricting each set to
// ref's calendar bucket with the same predicate the ledger uses.
func Totals(expenses []Expense, incomes []Income, p Period, ref time.Time) PeriodTotals {
	var t PeriodTotals
	for _, e := range expenses {
		if InPeriod(e.Date, p, ref) {
			t.Expense = t.Expense.Add(e.Amount)
		}
	}
	for _, i := range incomes {
		if InPeriod(i.Date, p, ref) {
			t.Income = t.Income.Add(i.Amount)
		}
	}
	return t
}

// CategoryBreakdown groups expenses by their stored category name.
//
// Grouping is an exact, case-sensitive string match; names differing only
// in case stay separate. Each group's emoji comes from the first expense
// encountered carrying that name, not the most recent one. Both behaviors
// are load-bearing for existing data and must not be normalized here.
//
// The result is sorted by total descending; equal totals keep
// first-encountered order. Shares are clamped to [0,1] and are all zero
// when the grand total is zero.
func CategoryBreakdown(expenses []Expense) []CategoryTotal {
	totals := make([]CategoryTotal, 0)
	index := make(map[string]int)
	for _, e := range expenses {
		i, seen := index[e.Name]
		if !seen {
			index[e.Name] = len(totals)
			totals = append(totals, CategoryTotal{Name: e.Name, Emoji: e.Emoji})
			i = index[e.Name]
		}
		totals[i].Total = totals[i].Total.Add(e.Amount)
	}

	sort.SliceStable(totals, func(a, b int) bool {
		return totals[a].Total.Cents > totals[b].Total.Cents
	})

	var grand int64
	for _, t := range totals {
		grand += t.Total.Cents
	}
	for i := range totals {
		totals[i].Share = share(totals[i].Total.Cents, grand)
	}
	return totals
}

func share(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	s := float64(part) / float64(total)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// DailySeries groups the full expense set by calendar day (midnight to
// midnight in loc) and returns the per-day totals ascending by day. Days
// without expenses are omitted; the series is sparse, not zero-filled.
func DailySeries(expenses []Expense, loc *time.Location) []DailyPoint {
	if loc == nil {
		loc = time.Local
	}
	points := make([]DailyPoint, 0)
	index := make(map[time.Time]int)
	for _, e := range expenses {
		y, m, d := e.Date.In(loc).Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		i, seen := index[day]
		if !seen {
			index[day] = len(points)
			points = append(points, DailyPoint{Day: day})
			i = index[day]
		}
		points[i].Total = points[i].Total.Add(e.Amount)
	}
	sort.Slice(points, func(a, b int) bool {
		return points[a].Day.Before(points[b].Day)
	})
	return points
}
