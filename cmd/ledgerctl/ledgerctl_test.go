package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
	"ledgerly/internal/storage"
)

func seedDB(t *testing.T) (string, core.Wallet) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")

	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	engine := ledger.New(repo, ledger.Config{})
	w, err := engine.SaveWallet(ctx, ledger.WalletInput{OwnerID: "owner-1", Name: "Cash"})
	if err != nil {
		t.Fatalf("save wallet: %v", err)
	}
	if _, err := engine.UpsertTransaction(ctx, ledger.TransactionInput{
		OwnerID:  "owner-1",
		WalletID: w.ID,
		Type:     core.Income,
		Amount:   core.Money{Cents: 10000},
		Category: "income",
	}); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	// Simulate an interrupted mutation.
	w, err = repo.GetWallet(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	w.Balance = core.Money{}
	if _, err := repo.PutWallet(ctx, w); err != nil {
		t.Fatalf("put wallet: %v", err)
	}
	return path, w
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	return execute(context.Background(), args)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "")
	t.Setenv("SQLITE_DB_PATH", "")
	t.Setenv("LOG_LEVEL", "")

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	if err := os.WriteFile(dbPath, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "ledgerctl.yaml")
	yaml := "sqlite_db_path: " + dbPath + "\nlog_level: debug\ncascade_batch_size: 25\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("file values", func(t *testing.T) {
		cfg, err := loadConfig(cfgPath, "")
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if cfg.SQLiteDBPath != dbPath {
			t.Errorf("SQLiteDBPath = %q, want %q", cfg.SQLiteDBPath, dbPath)
		}
		if cfg.DataBackend != "sqlite" {
			t.Errorf("DataBackend = %q, want sqlite", cfg.DataBackend)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.CascadeBatchSize != 25 {
			t.Errorf("CascadeBatchSize = %d, want 25", cfg.CascadeBatchSize)
		}
	})

	t.Run("environment wins over file", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "error")
		cfg, err := loadConfig(cfgPath, "")
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if cfg.LogLevel != "error" {
			t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(dir, "nope.yaml"), "")
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Fatalf("loadConfig() error = %v, want not found", err)
		}
	})

	t.Run("missing database", func(t *testing.T) {
		if _, err := loadConfig("", filepath.Join(dir, "missing.db")); err == nil {
			t.Fatal("loadConfig() expected error for missing database")
		}
	})
}

func TestAuditFix(t *testing.T) {
	t.Setenv("DATA_BACKEND", "")
	path, w := seedDB(t)

	if err := run(t, "--db", path, "audit", w.ID); err != nil {
		t.Fatalf("audit error = %v", err)
	}
	if err := run(t, "--db", path, "audit", w.ID, "--fix"); err != nil {
		t.Fatalf("audit --fix error = %v", err)
	}

	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()
	got, err := repo.GetWallet(context.Background(), w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance.Cents != 10000 {
		t.Errorf("balance after fix = %d, want 10000", got.Balance.Cents)
	}
}

func TestPurgeRefusesLiveWallet(t *testing.T) {
	t.Setenv("DATA_BACKEND", "")
	path, w := seedDB(t)

	err := run(t, "--db", path, "purge", w.ID)
	if err == nil || !strings.Contains(err.Error(), "still exists") {
		t.Fatalf("purge error = %v, want refusal", err)
	}
	if err := run(t, "--db", path, "purge", "gone-wallet"); err != nil {
		t.Fatalf("purge of missing wallet error = %v", err)
	}
}

func TestCommandsRequireOwner(t *testing.T) {
	t.Setenv("DATA_BACKEND", "")
	path, _ := seedDB(t)

	for _, name := range []string{"wallets", "stats"} {
		if err := run(t, "--db", path, name); err == nil {
			t.Errorf("%s without --owner expected error", name)
		}
	}
	if err := run(t, "--db", path, "wallets", "--owner", "owner-1"); err != nil {
		t.Errorf("wallets error = %v", err)
	}
	if err := run(t, "--db", path, "stats", "--owner", "owner-1", "--period", "month"); err != nil {
		t.Errorf("stats error = %v", err)
	}
	if err := run(t, "--db", path, "stats", "--owner", "owner-1", "--period", "decade"); err == nil {
		t.Error("stats with bad period expected error")
	}
}
