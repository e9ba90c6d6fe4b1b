package http

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"strconv"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/store"
)

// Flash messages shown after a redirect, keyed by the flash query value.
var flashMessages = map[string]string{
	"created": "Đã thêm giao dịch",
	"updated": "Đã cập nhật giao dịch",
	"deleted": "Đã xóa giao dịch",
}

const msgFillAllFields = "Điền đầy đủ thông tin nha!"

// ViewState is everything the dashboard template renders. It is rebuilt on
// every request.
type ViewState struct {
	Form         FormState
	Editing      bool
	Transactions []TransactionView
	Summary      SummaryView
	Chart        ChartData
	Flash        string
	Error        string
}

// FormState holds the raw form values so a rejected submit re-renders what
// the user typed.
type FormState struct {
	ID     string
	Text   string
	Amount string
	Date   string
	Type   string
}

type TransactionView struct {
	ID     string
	Text   string
	Amount string
	Date   string
	Income bool
}

type SummaryView struct {
	TotalIncome  string
	TotalExpense string
	Balance      string
	Negative     bool
	Breakdown    []SliceView
	Daily        []DailyView
}

// SliceView is one breakdown slot with its share of income plus expense.
type SliceView struct {
	Label   string
	Name    string
	Value   string
	Percent string
	Width   int
}

type DailyView struct {
	Day     string
	Income  string
	Expense string
}

// ChartData is embedded in the page as JSON for client-side charts.
type ChartData struct {
	Breakdown []core.CategorySlice `json:"breakdown"`
	Daily     []core.DailyPoint    `json:"daily"`
}

var sliceNames = map[core.Type]string{
	core.Income:  "Thu",
	core.Expense: "Chi",
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := ViewState{
		Form:  FormState{Type: string(core.Income)},
		Flash: flashMessages[r.URL.Query().Get("flash")],
	}

	if id := r.URL.Query().Get("edit"); id != "" {
		tx, err := s.svc.GetTransaction(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			view.Error = "Không tìm thấy giao dịch"
		case err != nil:
			s.events.LogError(r.Context(), "Load transaction for edit failed", err, log.ComponentDashboard, log.OpRead, nil)
			view.Error = "Không tải được giao dịch"
		default:
			view.Editing = true
			view.Form = s.formFromTransaction(tx)
		}
	}

	s.render(w, r, http.StatusOK, view)
}

// handleSaveForm creates a transaction, or updates one when the form carries
// an id, then redirects back to the dashboard.
func (s *Server) handleSaveForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := FormState{
		ID:     sanitizeInput(r.PostForm.Get("id")),
		Text:   sanitizeInput(r.PostForm.Get("text")),
		Amount: sanitizeInput(r.PostForm.Get("amount")),
		Date:   sanitizeInput(r.PostForm.Get("date")),
		Type:   sanitizeInput(r.PostForm.Get("type")),
	}
	in, err := parseForm(form)
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, ViewState{
			Form:    form,
			Editing: form.ID != "",
			Error:   err.Error(),
		})
		return
	}

	flash, op := "created", log.OpCreate
	if form.ID != "" {
		_, err = s.update(r.Context(), form.ID, in)
		flash, op = "updated", log.OpUpdate
	} else {
		_, err = s.create(r.Context(), in)
	}
	if err != nil {
		s.formFailure(w, r, op, form, err)
		return
	}
	http.Redirect(w, r, "/?flash="+flash, http.StatusSeeOther)
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := s.delete(r.Context(), r.PathValue("id")); err != nil {
		s.formFailure(w, r, log.OpDelete, FormState{Type: string(core.Income)}, err)
		return
	}
	http.Redirect(w, r, "/?flash=deleted", http.StatusSeeOther)
}

func (s *Server) formFailure(w http.ResponseWriter, r *http.Request, op string, form FormState, err error) {
	view := ViewState{Form: form, Editing: form.ID != ""}
	status := http.StatusInternalServerError
	if errors.Is(err, store.ErrNotFound) {
		status = http.StatusNotFound
		view.Error = "Không tìm thấy giao dịch"
		view.Editing = false
		view.Form = FormState{Type: string(core.Income)}
	} else {
		s.events.LogError(r.Context(), "Dashboard write failed", err, log.ComponentDashboard, op, nil)
		view.Error = "Lỗi khi lưu dữ liệu"
	}
	s.render(w, r, status, view)
}

// parseForm checks that every field is filled and reads the grouped amount.
func parseForm(f FormState) (core.Transaction, error) {
	if f.Text == "" || f.Amount == "" || f.Date == "" {
		return core.Transaction{}, errors.New(msgFillAllFields)
	}
	amount, err := core.ParseGroupedAmount(f.Amount)
	if err != nil {
		return core.Transaction{}, errors.New("Số tiền không hợp lệ")
	}
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return core.Transaction{}, errors.New("Ngày không hợp lệ")
	}
	typ := core.Type(f.Type)
	if !typ.Known() {
		typ = core.Income
	}
	return core.Transaction{Text: f.Text, Amount: amount, Type: typ, Date: date}, nil
}

func (s *Server) formFromTransaction(tx core.Transaction) FormState {
	amount := ""
	if tx.Amount.Valid() {
		amount = strconv.FormatFloat(float64(tx.Amount), 'f', -1, 64)
	}
	return FormState{
		ID:     tx.ID,
		Text:   tx.Text,
		Amount: amount,
		Date:   tx.Date.Key(),
		Type:   tx.Type.String(),
	}
}

// render fills the list and summary parts of view and writes the page.
// The template runs into a buffer so a failure never sends half a page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, view ViewState) {
	txs, err := s.svc.ListTransactions(r.Context())
	if err != nil {
		s.events.LogError(r.Context(), "List transactions for dashboard failed", err, log.ComponentDashboard, log.OpList, nil)
		if view.Error == "" {
			view.Error = "Lỗi khi tải dữ liệu"
		}
	}

	summary := core.Derive(core.SortChronological(txs))
	view.Transactions = s.transactionViews(txs)
	view.Summary = s.summaryView(summary)
	view.Chart = ChartData{Breakdown: summary.Breakdown, Daily: summary.Daily}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", view); err != nil {
		s.events.LogError(r.Context(), "Dashboard template execution failed", err, log.ComponentDashboard, log.OpRender, nil)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) transactionViews(txs []core.Transaction) []TransactionView {
	views := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, TransactionView{
			ID:     tx.ID,
			Text:   tx.Text,
			Amount: s.formatter.Money(tx.Amount),
			Date:   tx.Date.Key(),
			Income: tx.Type == core.Income,
		})
	}
	return views
}

func (s *Server) summaryView(summary core.Summary) SummaryView {
	t := summary.Totals
	view := SummaryView{
		TotalIncome:  s.formatter.Money(t.TotalIncome),
		TotalExpense: s.formatter.Money(t.TotalExpense),
		Balance:      s.formatter.Money(t.Balance),
		Negative:     t.Balance < 0,
	}

	total := float64(t.TotalIncome + t.TotalExpense)
	for _, slot := range summary.Breakdown {
		share := 0.0
		if total > 0 {
			share = float64(slot.Value) / total
		}
		view.Breakdown = append(view.Breakdown, SliceView{
			Label:   slot.Label.String(),
			Name:    sliceNames[slot.Label],
			Value:   s.formatter.Money(slot.Value),
			Percent: strconv.Itoa(int(math.Round(share*100))) + "%",
			Width:   int(math.Round(share * 100)),
		})
	}

	for _, p := range summary.Daily {
		view.Daily = append(view.Daily, DailyView{
			Day:     p.Day,
			Income:  s.formatter.Money(p.Income),
			Expense: s.formatter.Money(p.Expense),
		})
	}
	return view
}
