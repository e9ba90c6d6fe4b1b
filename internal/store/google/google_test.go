package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finance/internal/core"
	"finance/internal/store"
)

// fakeSheets emulates the subset of the Sheets v4 REST API the client uses.
// Ranges are limited to the shapes the client produces: A:A, A:G, A2:G and
// An:Gm.
type fakeSheets struct {
	mu   sync.Mutex
	rows [][]any
}

var a1Pattern = regexp.MustCompile(`^[^!]+!([A-Z]+)(\d*):([A-Z]+)(\d*)$`)

func (f *fakeSheets) bounds(rng string) (start, end int, oneCol bool) {
	m := a1Pattern.FindStringSubmatch(rng)
	if m == nil {
		return 0, 0, false
	}
	start, end = 1, len(f.rows)
	if m[2] != "" {
		start, _ = strconv.Atoi(m[2])
	}
	if m[4] != "" {
		end, _ = strconv.Atoi(m[4])
	}
	return start, end, m[1] == m[3]
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, q := range req.Requests {
			if d := q.DeleteDimension; d != nil {
				s, e := int(d.Range.StartIndex), int(d.Range.EndIndex)
				f.rows = append(f.rows[:s], f.rows[e:]...)
			}
		}
		w.Write([]byte(`{}`))
	case !strings.Contains(path, "/values/"):
		w.Write([]byte(`{"spreadsheetId":"sid","sheets":[{"properties":{"sheetId":7,"title":"Transactions"}}]}`))
	case strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(f.rows, vr.Values...)
		w.Write([]byte(`{"updates":{"updatedRange":"Transactions!A` + strconv.Itoa(len(f.rows)) + `"}}`))
	case strings.HasSuffix(path, ":clear"):
		rng := strings.TrimSuffix(path[strings.Index(path, "/values/")+len("/values/"):], ":clear")
		start, _, _ := f.bounds(rng)
		if start-1 < len(f.rows) {
			f.rows = f.rows[:start-1]
		}
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		start, _, _ := f.bounds(rng)
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		for i, row := range vr.Values {
			idx := start - 1 + i
			for len(f.rows) <= idx {
				f.rows = append(f.rows, []any{})
			}
			f.rows[idx] = row
		}
		w.Write([]byte(`{}`))
	default:
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		start, end, oneCol := f.bounds(rng)
		var out [][]any
		for i := start - 1; i < end && i < len(f.rows); i++ {
			row := f.rows[i]
			if oneCol && len(row) > 1 {
				row = row[:1]
			}
			out = append(out, row)
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": out})
	}
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return NewWithService(svc, "sid", ""), fake
}

func TestClientCRUD(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	created, err := c.CreateTransaction(ctx, core.Transaction{
		Text:   "Lương",
		Amount: 15000000,
		Type:   core.Income,
		Date:   core.NewDate(2024, 1, 5),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(fake.rows) != 2 || fake.rows[0][0] != "ID" {
		t.Fatalf("expected header plus one row, got %v", fake.rows)
	}

	got, err := c.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != "Lương" || got.Amount != 15000000 || got.Date.Key() != "2024-01-05" {
		t.Fatalf("unexpected record: %+v", got)
	}

	updated, err := c.UpdateTransaction(ctx, created.ID, core.Transaction{
		Text: "Thưởng", Amount: 2000000, Type: core.Income, Date: core.NewDate(2024, 1, 6),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Text != "Thưởng" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	list, err := c.ListTransactions(ctx)
	if err != nil || len(list) != 1 || list[0].Text != "Thưởng" {
		t.Fatalf("list after update: %+v err=%v", list, err)
	}

	if err := c.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetTransaction(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestClientMirror(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	tx := core.Transaction{ID: "fixed", Text: "a", Amount: 1, Type: core.Expense, Date: core.NewDate(2024, 2, 1)}
	if err := c.PutTransaction(ctx, tx); err != nil {
		t.Fatalf("put: %v", err)
	}
	tx.Text = "b"
	if err := c.PutTransaction(ctx, tx); err != nil {
		t.Fatalf("second put: %v", err)
	}
	if len(fake.rows) != 2 {
		t.Fatalf("put should upsert by id, rows=%v", fake.rows)
	}

	err := c.ReplaceAll(ctx, []core.Transaction{
		{ID: "x", Type: core.Income, Amount: 3, Date: core.NewDate(2024, 1, 1)},
		{ID: "y", Type: "transfer", Amount: core.ParseAmount("abc")},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	list, err := c.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "x" || list[1].ID != "y" {
		t.Fatalf("unexpected mirror content: %+v", list)
	}
	if list[1].Amount.Valid() {
		t.Fatalf("malformed amount should read back as NaN")
	}
	if err := c.DeleteTransaction(ctx, "fixed"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("old record should be gone, got %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Options{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	_, err := New(ctx, Options{SpreadsheetID: "sid"})
	if err == nil || !strings.Contains(err.Error(), "missing credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
	_, err = New(ctx, Options{SpreadsheetID: "sid", Credentials: Credentials{
		OAuthClientJSON: `{"installed":{"client_id":"id","client_secret":"s","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`,
	}})
	if err == nil || !strings.Contains(err.Error(), "missing oauth token") {
		t.Fatalf("expected missing token error, got %v", err)
	}
	_, err = New(ctx, Options{SpreadsheetID: "sid", Credentials: Credentials{
		OAuthClientJSON: "invalid-json",
		OAuthTokenJSON:  `{"access_token":"test"}`,
	}})
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}
}
