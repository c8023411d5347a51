package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
)

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := New(context.Background(), Config{SpreadsheetID: "id"}, nil)
	if err == nil || !strings.Contains(err.Error(), "service account") {
		t.Fatalf("expected credentials error, got %v", err)
	}
	_, err = New(context.Background(), Config{SpreadsheetID: "id", CredentialsFile: "/does/not/exist.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file error, got %v", err)
	}
}

func TestEventRow(t *testing.T) {
	at := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	row, ok := eventRow(ledger.Event{
		Type: ledger.EventTransactionCreated, At: at,
		Transaction: &core.Transaction{
			ID: "t1", WalletID: "w1", Type: core.Expense, Amount: core.Money{Cents: 1250},
			Category: "dining", Description: "lunch", Date: at,
		},
	})
	if !ok {
		t.Fatal("expected row")
	}
	want := []any{"2024-05-02T08:00:00Z", "transaction.created", "t1", "w1", "2024-05-02", "expense", "dining", "lunch", "12.50"}
	if len(row) != len(want) {
		t.Fatalf("row len %d, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("col %d: got %v want %v", i, row[i], want[i])
		}
	}

	walletRow, ok := eventRow(ledger.Event{Type: ledger.EventWalletDeleted, WalletID: "w9", At: at})
	if !ok || walletRow[3] != "w9" || walletRow[8] != "" {
		t.Fatalf("unexpected wallet row %v", walletRow)
	}
	if _, ok := eventRow(ledger.Event{Type: "wallet.renamed"}); ok {
		t.Fatal("unknown event should be skipped")
	}
}

func TestMirrorAppendsRow(t *testing.T) {
	var gotPath string
	var got struct {
		Values [][]any `json:"values"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRows":1}}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1", SheetName: "Ledger"}, nil,
		goption.WithEndpoint(srv.URL+"/"), goption.WithHTTPClient(srv.Client()), goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = c.Mirror(context.Background(), ledger.Event{
		Type: ledger.EventTransactionDeleted, TransactionID: "t7", WalletID: "w1",
		At: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if !strings.Contains(gotPath, "/spreadsheets/sheet-1/values/") || !strings.HasSuffix(gotPath, ":append") {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if len(got.Values) != 1 || got.Values[0][1] != "transaction.deleted" || got.Values[0][2] != "t7" {
		t.Fatalf("unexpected values %v", got.Values)
	}
}
