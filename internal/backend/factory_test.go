package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finance/internal/config"
	"finance/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config should fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("unknown backend should fail")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:              "sheets",
		GoogleSpreadsheetID:      "sheet-id",
		GoogleSheetName:          "Ledger",
		GoogleServiceAccountJSON: "{}",
		CacheTTL:                 time.Minute,
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.CacheTTL != time.Minute {
		t.Errorf("unexpected config: %+v", cfg)
	}
	opts := cfg.SheetsOptions()
	if opts.SpreadsheetID != "sheet-id" || opts.SheetName != "Ledger" || opts.Credentials.ServiceAccountJSON != "{}" {
		t.Errorf("unexpected sheets options: %+v", opts)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, ""},
		{"invalid type", Config{Type: "csv"}, "invalid backend type"},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"sheets without id", Config{Type: SheetsBackend}, "Google Spreadsheet ID is required"},
		{"negative ttl", Config{Type: MemoryBackend, CacheTTL: -time.Second}, "cache TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackendWithSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	body := `[{"id":"a","text":"Lương","amount":1000,"type":"income","date":"2024-01-01"}]`
	if err := os.WriteFile(seed, []byte(body), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           MemoryBackend,
		MemorySeedFile: seed,
		CacheTTL:       time.Minute,
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if res.ListCache == nil {
		t.Fatal("cache should be built when TTL > 0")
	}
	txs, err := res.Service.ListTransactions(context.Background())
	if err != nil || len(txs) != 1 || txs[0].Type != core.Income {
		t.Fatalf("list = %+v err=%v", txs, err)
	}
}

func TestCreateSQLiteBackendWithoutCacheOrAMQP(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "db", "finance.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if res.ListCache != nil {
		t.Fatal("zero TTL should disable the cache")
	}
	created, err := res.Service.CreateTransaction(ctx, core.Transaction{
		Text: "Cà phê", Amount: 45000, Type: core.Expense, Date: core.NewDate(2024, 3, 2),
	})
	if err != nil {
		t.Fatalf("create without AMQP: %v", err)
	}
	if err := res.Service.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	got, err := res.Service.GetTransaction(ctx, created.ID)
	if err != nil || got.Amount != 45000 {
		t.Fatalf("get = %+v err=%v", got, err)
	}
}

func TestCreateSheetsBackendRequiresCredentials(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:                SheetsBackend,
		GoogleSpreadsheetID: "sheet-id",
	})
	if err == nil || !strings.Contains(err.Error(), "missing credentials") {
		t.Fatalf("error = %v, want missing credentials", err)
	}
}
