package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var clock = func() time.Time {
	return time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)
}

func generate(t *testing.T, cfg Config) []Record {
	t.Helper()
	g := New(cfg)
	g.WithClock(clock)
	records, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return records
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	cfg := Config{NumTransactions: 200, NumAccounts: 10, FraudRate: 0.1, Seed: 42}

	first := generate(t, cfg)
	second := generate(t, cfg)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].TransactionID != second[i].TransactionID ||
			first[i].FromAccount != second[i].FromAccount ||
			first[i].ToAccount != second[i].ToAccount ||
			first[i].Amount != second[i].Amount ||
			first[i].Timestamp != second[i].Timestamp {
			t.Fatalf("record %d differs:\n%+v\n%+v", i, first[i], second[i])
		}
		if first[i].Metadata["trace_id"] != second[i].Metadata["trace_id"] {
			t.Fatalf("record %d trace_id differs", i)
		}
	}
}

func TestGenerateRecordShape(t *testing.T) {
	records := generate(t, Config{NumTransactions: 50, NumAccounts: 5, FraudRate: 0.2, Seed: 7})
	if len(records) != 50 {
		t.Fatalf("expected 50 records, got %d", len(records))
	}

	for i, r := range records {
		if want := fmt.Sprintf("tx_%06d", i); r.TransactionID != want {
			t.Errorf("record %d: expected id %q, got %q", i, want, r.TransactionID)
		}
		if r.FromAccount == r.ToAccount {
			t.Errorf("record %d: self transfer %s", i, r.FromAccount)
		}
		if r.Amount <= 0 {
			t.Errorf("record %d: non-positive amount %g", i, r.Amount)
		}
		if _, err := time.Parse(time.RFC3339, r.Timestamp); err != nil {
			t.Errorf("record %d: bad timestamp %q: %v", i, r.Timestamp, err)
		}
		if r.Metadata["type"] != "transfer" || r.Metadata["currency"] != "USD" {
			t.Errorf("record %d: metadata %v", i, r.Metadata)
		}
		if r.Metadata["trace_id"] == "" {
			t.Errorf("record %d: missing trace_id", i)
		}
	}
}

func TestGenerateAmountBands(t *testing.T) {
	records := generate(t, Config{NumTransactions: 500, NumAccounts: 10, FraudRate: 0.2, Seed: 42})

	var fraud int
	for _, r := range records {
		switch {
		case r.Amount >= fraudAmountMin && r.Amount < fraudAmountMax:
			fraud++
		case r.Amount >= normalAmountMin && r.Amount < normalAmountMax:
		default:
			t.Errorf("amount %g outside both bands", r.Amount)
		}
	}
	// 20% of 500 with generous slack.
	if fraud < 50 || fraud > 200 {
		t.Errorf("fraud count %d implausible for rate 0.2", fraud)
	}
}

func TestGenerateZeroFraudRate(t *testing.T) {
	records := generate(t, Config{NumTransactions: 300, NumAccounts: 10, FraudRate: 0, Seed: 42})
	for _, r := range records {
		if r.Amount >= fraudAmountMin {
			t.Errorf("fraud-band amount %g with rate 0", r.Amount)
		}
	}
}

func TestGenerateTimestampsTrailTheClock(t *testing.T) {
	records := generate(t, Config{NumTransactions: 100, NumAccounts: 10, Seed: 42})

	base := clock()
	earliest := base.Add(-25 * time.Hour)
	for _, r := range records {
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			t.Fatalf("parse %q: %v", r.Timestamp, err)
		}
		if ts.After(base) {
			t.Errorf("timestamp %s after the base time", r.Timestamp)
		}
		if ts.Before(earliest) {
			t.Errorf("timestamp %s older than the trailing window", r.Timestamp)
		}
	}
}

func TestGenerateRespectsCancellation(t *testing.T) {
	g := New(Config{NumTransactions: 100, NumAccounts: 10, Seed: 42})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Generate(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestConfigDefaultsApplied(t *testing.T) {
	g := New(Config{NumTransactions: -1, NumAccounts: 1, FraudRate: 3})
	if g.cfg.NumTransactions != DefaultConfig().NumTransactions {
		t.Errorf("transactions default: got %d", g.cfg.NumTransactions)
	}
	if g.cfg.NumAccounts != DefaultConfig().NumAccounts {
		t.Errorf("accounts default: got %d", g.cfg.NumAccounts)
	}
	if g.cfg.FraudRate != 1 {
		t.Errorf("fraud rate clamp: got %g", g.cfg.FraudRate)
	}
}

func TestRecordToTransaction(t *testing.T) {
	r := Record{
		TransactionID: "tx_000001",
		FromAccount:   "acc_001",
		ToAccount:     "acc_002",
		Amount:        123.45,
		Timestamp:     "2024-04-20T11:30:00Z",
		Metadata:      map[string]any{"currency": "USD"},
	}
	tx, err := r.ToTransaction()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.ID != r.TransactionID || tx.Amount != r.Amount {
		t.Errorf("unexpected transaction: %+v", tx)
	}
	if !tx.Timestamp.Equal(time.Date(2024, 4, 20, 11, 30, 0, 0, time.UTC)) {
		t.Errorf("timestamp: got %s", tx.Timestamp)
	}

	r.Timestamp = "not-a-time"
	if _, err := r.ToTransaction(); err == nil {
		t.Error("expected error for malformed timestamp")
	}
}

func TestWriteDataset(t *testing.T) {
	records := generate(t, Config{NumTransactions: 5, NumAccounts: 4, Seed: 42})

	path := filepath.Join(t.TempDir(), "nested", "sample.json")
	if err := WriteDataset(records, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var decoded []Record
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(decoded))
	}
	if decoded[0].TransactionID != records[0].TransactionID {
		t.Errorf("roundtrip mismatch: %+v vs %+v", decoded[0], records[0])
	}
}
