package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"piggyflow/internal/core"
	"piggyflow/internal/services"
)

type transactionJSON struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Emoji       string    `json:"emoji"`
	AmountCents int64     `json:"amount_cents"`
	Amount      string    `json:"amount"`
	Note        string    `json:"note"`
	Color       string    `json:"color"`
}

func toTransactionJSON(items []core.TransactionItem) []transactionJSON {
	out := make([]transactionJSON, 0, len(items))
	for _, it := range items {
		out = append(out, transactionJSON{
			Kind:        it.Kind(),
			ID:          it.ID(),
			Date:        it.Date(),
			Title:       it.Title(),
			Emoji:       it.Emoji(),
			AmountCents: it.Amount().Cents,
			Amount:      it.AmountText(),
			Note:        it.Note(),
			Color:       string(it.Color()),
		})
	}
	return out
}

type ledgerResponse struct {
	Items []transactionJSON `json:"items"`
	Count int               `json:"count"`
}

// ledgerView reads the shared period/q/ref query parameters and assembles
// the filtered timeline. The list and the positional delete must agree on
// these semantics, so both go through here.
func (s *Server) ledgerView(r *http.Request) ([]core.TransactionItem, error) {
	q := r.URL.Query()

	var period *core.Period
	if raw := q.Get("period"); raw != "" {
		p, ok := core.ParsePeriod(raw)
		if !ok {
			return nil, &services.ValidationError{Err: fmt.Errorf("unknown period %q: want day, week or month", raw)}
		}
		period = &p
	}

	ref, err := parseRef(q.Get("ref"), s.loc)
	if err != nil {
		return nil, &services.ValidationError{Err: err}
	}

	return s.tracker.Ledger(r.Context(), period, ref, q.Get("q"))
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledgerView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgerResponse{Items: toTransactionJSON(items), Count: len(items)})
}

// handleLedgerDelete removes the record behind one position of the filtered
// view. The same period/q/ref parameters as the list must be passed so the
// index addresses the view the caller saw.
func (s *Server) handleLedgerDelete(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
		return
	}

	items, err := s.ledgerView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	removed, remaining, ok := core.DeleteAt(items, index)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no transaction at that position"})
		return
	}

	if err := s.tracker.DeleteTransaction(r.Context(), removed); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats()

	writeJSON(w, http.StatusOK, struct {
		Deleted   transactionJSON `json:"deleted"`
		Remaining int             `json:"remaining"`
	}{
		Deleted:   toTransactionJSON([]core.TransactionItem{removed})[0],
		Remaining: len(remaining),
	})
}

type expenseRequest struct {
	Emoji  string    `json:"emoji"`
	Name   string    `json:"name"`
	Amount string    `json:"amount"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note"`
}

type expenseJSON struct {
	ID          string    `json:"id"`
	Emoji       string    `json:"emoji"`
	Name        string    `json:"name"`
	AmountCents int64     `json:"amount_cents"`
	Amount      string    `json:"amount"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Emoji:       e.Emoji,
		Name:        e.Name,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.String(),
		Date:        e.Date,
		Note:        e.Note,
	}
}

func (s *Server) handleExpenseCreate(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	e, err := s.tracker.AddExpense(r.Context(), services.ExpenseInput{
		Emoji:  req.Emoji,
		Name:   req.Name,
		Amount: req.Amount,
		Date:   req.Date,
		Note:   req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats()
	writeJSON(w, http.StatusCreated, toExpenseJSON(e))
}

func (s *Server) handleExpenseUpdate(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	e, err := s.tracker.UpdateExpense(r.Context(), r.PathValue("id"), services.ExpenseInput{
		Emoji:  req.Emoji,
		Name:   req.Name,
		Amount: req.Amount,
		Date:   req.Date,
		Note:   req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats()
	writeJSON(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) handleExpenseDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats()
	w.WriteHeader(http.StatusNoContent)
}

type incomeRequest struct {
	Amount string    `json:"amount"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note"`
}

type incomeJSON struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Amount      string    `json:"amount"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note"`
}

func toIncomeJSON(i core.Income) incomeJSON {
	return incomeJSON{
		ID:          i.ID,
		AmountCents: i.Amount.Cents,
		Amount:      i.Amount.String(),
		Date:        i.Date,
		Note:        i.Note,
	}
}

func (s *Server) handleIncomeCreate(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	i, err := s.tracker.AddIncome(r.Context(), services.IncomeInput{
		Amount: req.Amount,
		Date:   req.Date,
		Note:   req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats()
	writeJSON(w, http.StatusCreated, toIncomeJSON(i))
}

func (s *Server) handleIncomeUpdate(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	i, err := s.tracker.UpdateIncome(r.Context(), r.PathValue("id"), services.IncomeInput{
		Amount: req.Amount,
		Date:   req.Date,
		Note:   req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats()
	writeJSON(w, http.StatusOK, toIncomeJSON(i))
}

func (s *Server) handleIncomeDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteIncome(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats()
	w.WriteHeader(http.StatusNoContent)
}

type categoryJSON struct {
	Emoji string `json:"emoji"`
	Name  string `json:"name"`
}

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	all, err := s.catalog.All(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryJSON, 0, len(all))
	for _, c := range all {
		out = append(out, categoryJSON{Emoji: c.Emoji, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, struct {
		Categories []categoryJSON `json:"categories"`
	}{Categories: out})
}

func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryJSON
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	cat, err := s.catalog.AddCategory(r.Context(), req.Name, req.Emoji)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ID    string `json:"id"`
		Emoji string `json:"emoji"`
		Name  string `json:"name"`
	}{ID: cat.ID, Emoji: cat.Emoji, Name: cat.Name})
}

type totalsJSON struct {
	Period       string `json:"period"`
	IncomeCents  int64  `json:"income_cents"`
	ExpenseCents int64  `json:"expense_cents"`
	BalanceCents int64  `json:"balance_cents"`
	Income       string `json:"income"`
	Expense      string `json:"expense"`
	Balance      string `json:"balance"`
}

func toTotalsJSON(p core.Period, t core.PeriodTotals) totalsJSON {
	balance := core.Money{Cents: t.Income.Cents - t.Expense.Cents}
	return totalsJSON{
		Period:       p.String(),
		IncomeCents:  t.Income.Cents,
		ExpenseCents: t.Expense.Cents,
		BalanceCents: balance.Cents,
		Income:       t.Income.String(),
		Expense:      t.Expense.String(),
		Balance:      balance.String(),
	}
}

func (s *Server) handleStatsTotals(w http.ResponseWriter, r *http.Request) {
	period := core.PeriodMonth
	if raw := r.URL.Query().Get("period"); raw != "" {
		p, ok := core.ParsePeriod(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown period %q: want day, week or month", raw)})
			return
		}
		period = p
	}
	ref, err := parseRef(r.URL.Query().Get("ref"), s.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	key := fmt.Sprintf("totals:%s:%s", period, ref.In(s.loc).Format("2006-01-02"))
	s.serveStats(w, r, key, func() (any, error) {
		t, err := s.tracker.Totals(r.Context(), period, ref)
		if err != nil {
			return nil, err
		}
		return toTotalsJSON(period, t), nil
	})
}

type categoryTotalJSON struct {
	Name       string  `json:"name"`
	Emoji      string  `json:"emoji"`
	TotalCents int64   `json:"total_cents"`
	Total      string  `json:"total"`
	Share      float64 `json:"share"`
}

func toCategoryTotalsJSON(totals []core.CategoryTotal) []categoryTotalJSON {
	out := make([]categoryTotalJSON, 0, len(totals))
	for _, t := range totals {
		out = append(out, categoryTotalJSON{
			Name:       t.Name,
			Emoji:      t.Emoji,
			TotalCents: t.Total.Cents,
			Total:      t.Total.String(),
			Share:      t.Share,
		})
	}
	return out
}

func (s *Server) handleStatsBreakdown(w http.ResponseWriter, r *http.Request) {
	s.serveStats(w, r, "breakdown", func() (any, error) {
		totals, err := s.tracker.Breakdown(r.Context())
		if err != nil {
			return nil, err
		}
		return struct {
			Categories []categoryTotalJSON `json:"categories"`
		}{Categories: toCategoryTotalsJSON(totals)}, nil
	})
}

type dailyPointJSON struct {
	Day        string `json:"day"`
	TotalCents int64  `json:"total_cents"`
	Total      string `json:"total"`
}

func (s *Server) handleStatsDaily(w http.ResponseWriter, r *http.Request) {
	s.serveStats(w, r, "daily", func() (any, error) {
		points, err := s.tracker.Daily(r.Context())
		if err != nil {
			return nil, err
		}
		out := make([]dailyPointJSON, 0, len(points))
		for _, p := range points {
			out = append(out, dailyPointJSON{
				Day:        p.Day.Format("2006-01-02"),
				TotalCents: p.Total.Cents,
				Total:      p.Total.String(),
			})
		}
		return struct {
			Days []dailyPointJSON `json:"days"`
		}{Days: out}, nil
	})
}

func (s *Server) handleStatsMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil || year < 1 || year > 9999 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "year must be a four-digit integer"})
		return
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "month must be between 1 and 12"})
		return
	}

	key := fmt.Sprintf("month:%04d-%02d", year, month)
	s.serveStats(w, r, key, func() (any, error) {
		totals, categories, err := s.tracker.MonthStats(r.Context(), year, time.Month(month))
		if err != nil {
			return nil, err
		}
		return struct {
			Year       int                 `json:"year"`
			Month      int                 `json:"month"`
			Totals     totalsJSON          `json:"totals"`
			Categories []categoryTotalJSON `json:"categories"`
		}{
			Year:       year,
			Month:      month,
			Totals:     toTotalsJSON(core.PeriodMonth, totals),
			Categories: toCategoryTotalsJSON(categories),
		}, nil
	})
}

// serveStats answers from the statistics cache when it can, otherwise builds
// the response, caches the marshaled form, and sends it.
func (s *Server) serveStats(w http.ResponseWriter, r *http.Request, key string, build func() (any, error)) {
	if body, ok := s.statsCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	v, err := build()
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, fmt.Errorf("encode stats: %w", err))
		return
	}
	body = append(body, '\n')
	s.statsCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type scanRequest struct {
	Text string `json:"text"`
}

type scanResponse struct {
	Added    int           `json:"added"`
	Expenses []expenseJSON `json:"expenses"`
}

// handleScan ingests recognized bill text and stores one expense per
// extracted line item. Unreadable text is not an error; it just adds zero
// expenses.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	created, err := s.tracker.IngestScan(r.Context(), req.Text, time.Now().In(s.loc))
	if len(created) > 0 {
		s.invalidateStats()
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]expenseJSON, 0, len(created))
	for _, e := range created {
		out = append(out, toExpenseJSON(e))
	}
	writeJSON(w, http.StatusCreated, scanResponse{Added: len(out), Expenses: out})
}

// parseRef reads an optional reference instant from a query parameter.
// Empty means now.
func parseRef(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Now().In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid ref %q: want RFC3339 or YYYY-MM-DD", raw)
}
