package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finance/internal/core"
	"finance/internal/store"
)

// Ensure interface conformance
var (
	_ store.Repository = (*Client)(nil)
	_ store.Mirror     = (*Client)(nil)
	_ store.Pinger     = (*Client)(nil)
)

const defaultSheetName = "Transactions"

// Credentials selects how the client authenticates. A service account takes
// precedence over an OAuth client and token pair.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

type Options struct {
	SpreadsheetID string
	SheetName     string
	Credentials   Credentials
	// Extra options appended when building the Sheets service.
	ClientOptions []goption.ClientOption
}

// Client stores one transaction per row of a single sheet. Row 1 holds the
// header; column A holds the transaction id.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time

	mu                 sync.Mutex
	headerChecked      bool
	sheetID            *int64
	rowIndex           map[string]int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// New builds a client from explicit options.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	clientOpts, err := credentialOptions(ctx, opts.Credentials)
	if err != nil {
		return nil, err
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID, "sheet", opts.SheetName)
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		now:                time.Now,
		cacheValidDuration: 2 * time.Minute,
	}
}

// credentialOptions turns the configured credentials into client options.
func credentialOptions(ctx context.Context, c Credentials) ([]goption.ClientOption, error) {
	saJSON, err := inlineOrFile(c.ServiceAccountJSON, c.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	if len(saJSON) > 0 {
		slog.InfoContext(ctx, "Using service account credentials", "credentials_size", len(saJSON))
		return []goption.ClientOption{
			goption.WithCredentialsJSON(saJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	}

	clientJSON, err := inlineOrFile(c.OAuthClientJSON, c.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	if len(clientJSON) == 0 {
		return nil, errors.New("missing credentials (set a service account or an oauth client and token)")
	}
	tokenJSON, err := inlineOrFile(c.OAuthTokenJSON, c.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	if len(tokenJSON) == 0 {
		return nil, errors.New("missing oauth token (run oauth-init first)")
	}

	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}

	slog.InfoContext(ctx, "Using OAuth user credentials", "token_expiry", tok.Expiry)
	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return []goption.ClientOption{
		goption.WithHTTPClient(cfg.Client(base, &tok)),
	}, nil
}

func inlineOrFile(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if path = strings.TrimSpace(path); path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("ping spreadsheet: %w", err)
	}
	return nil
}

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := c.readRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		if t, ok := rowToTransaction(r); ok {
			out = append(out, t)
		}
	}
	store.SortNewestFirst(out)
	return out, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := c.locate(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	return c.readRow(ctx, id, row)
}

func (c *Client) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := c.now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	if err := c.appendRow(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	row, err := c.locate(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	cur, err := c.readRow(ctx, id, row)
	if err != nil {
		return core.Transaction{}, err
	}
	next := cur.Replace(t)
	next.UpdatedAt = c.now().UTC()
	if err := c.writeRow(ctx, row, next); err != nil {
		return core.Transaction{}, err
	}
	return next, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	row, err := c.locate(ctx, id)
	if err != nil {
		return err
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	c.InvalidateRowCache()
	slog.InfoContext(ctx, "Transaction row deleted from sheet", "id", id, "row", row, "sheet", c.sheetName)
	return nil
}

// PutTransaction overwrites the row holding t.ID or appends a new one.
func (c *Client) PutTransaction(ctx context.Context, t core.Transaction) error {
	if t.ID == "" {
		return errors.New("put transaction: empty id")
	}
	row, err := c.locate(ctx, t.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.appendRow(ctx, t)
	case err != nil:
		return err
	}
	return c.writeRow(ctx, row, t)
}

// ReplaceAll rewrites the sheet so that it holds exactly txs, in order.
func (c *Client) ReplaceAll(ctx context.Context, txs []core.Transaction) error {
	clearRng := fmt.Sprintf("%s!A2:G", c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRng, err)
	}
	values := make([][]any, 0, len(txs)+1)
	values = append(values, headerRow())
	for _, t := range txs {
		values = append(values, transactionToRow(t))
	}
	rng := fmt.Sprintf("%s!A1:G%d", c.sheetName, len(values))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	c.mu.Lock()
	c.headerChecked = true
	c.mu.Unlock()
	c.InvalidateRowCache()
	slog.InfoContext(ctx, "Sheet rewritten", "sheet", c.sheetName, "rows", len(txs))
	return nil
}

// InvalidateRowCache forces the next lookup to re-read the id column.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	c.rowIndex = nil
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *Client) readRows(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A2:G", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) readRow(ctx context.Context, id string, row int) (core.Transaction, error) {
	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, row, row)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		c.InvalidateRowCache()
		return core.Transaction{}, store.ErrNotFound
	}
	t, ok := rowToTransaction(resp.Values[0])
	if !ok || t.ID != id {
		// The sheet changed under us.
		c.InvalidateRowCache()
		return core.Transaction{}, store.ErrNotFound
	}
	return t, nil
}

func (c *Client) writeRow(ctx context.Context, row int, t core.Transaction) error {
	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{transactionToRow(t)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Transaction row updated in sheet", "id", t.ID, "row", row)
	return nil
}

func (c *Client) appendRow(ctx context.Context, t core.Transaction) error {
	if err := c.ensureHeader(ctx); err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{transactionToRow(t)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	c.InvalidateRowCache()
	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Transaction appended to sheet", "id", t.ID, "range", ref)
	return nil
}

func (c *Client) ensureHeader(ctx context.Context) error {
	c.mu.Lock()
	checked := c.headerChecked
	c.mu.Unlock()
	if checked {
		return nil
	}
	rng := fmt.Sprintf("%s!A1:G1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		vr := &gsheet.ValueRange{Values: [][]any{headerRow()}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header %s: %w", rng, err)
		}
		slog.InfoContext(ctx, "Header row written", "sheet", c.sheetName)
	}
	c.mu.Lock()
	c.headerChecked = true
	c.mu.Unlock()
	return nil
}

// locate returns the 1-based sheet row holding id.
func (c *Client) locate(ctx context.Context, id string) (int, error) {
	c.mu.Lock()
	if c.rowIndex != nil && c.now().Before(c.cacheExpiresAt) {
		row, ok := c.rowIndex[id]
		c.mu.Unlock()
		if !ok {
			return 0, store.ErrNotFound
		}
		return row, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read ids %s: %w", rng, err)
	}
	index := buildRowIndex(resp.Values)

	c.mu.Lock()
	c.rowIndex = index
	c.cacheExpiresAt = c.now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	row, ok := index[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	return row, nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.sheetID != nil {
		id := *c.sheetID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.mu.Lock()
			c.sheetID = &id
			c.mu.Unlock()
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
