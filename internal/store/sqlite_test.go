package store

import (
	"context"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func sampleTransactions() []domain.Transaction {
	buy := decimal.RequireFromString("-1234.56")
	dividend := decimal.RequireFromString("12.30")
	order := "W111"
	return []domain.Transaction{
		{
			AcctNum:     "1234",
			Date:        civil.Date{Year: 2025, Month: 11, Day: 28},
			Description: "BOUGHT FXAIX",
			Amount:      &buy,
			OrderNumber: &order,
		},
		{
			AcctNum:     "1234",
			Date:        civil.Date{Year: 2025, Month: 12, Day: 1},
			Description: "DIVIDEND RECEIVED",
			Amount:      &dividend,
		},
		{
			AcctNum:     "6789",
			Date:        civil.Date{Year: 2025, Month: 12, Day: 2},
			Description: "PENDING ACTIVITY",
			Pending:     true,
		},
	}
}

func TestUpsertAndList(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	if err := ledger.Upsert(ctx, sampleTransactions()); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := ledger.ListByAccount(ctx, "1234")
	if err != nil {
		t.Fatalf("ListByAccount failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions for account 1234, got %d", len(got))
	}
	if got[0].Description != "BOUGHT FXAIX" {
		t.Errorf("rows must be date-ordered, got %q first", got[0].Description)
	}
	if got[0].Amount == nil || !got[0].Amount.Equal(decimal.RequireFromString("-1234.56")) {
		t.Errorf("amount did not round-trip: %v", got[0].Amount)
	}
	if got[0].OrderNumber == nil || *got[0].OrderNumber != "W111" {
		t.Errorf("order number did not round-trip: %v", got[0].OrderNumber)
	}

	pending, err := ledger.ListByAccount(ctx, "6789")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 transaction for account 6789, got %d", len(pending))
	}
	if !pending[0].Pending {
		t.Error("pending flag did not round-trip")
	}
	if pending[0].Amount != nil {
		t.Errorf("absent amount must stay absent, got %v", pending[0].Amount)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := ledger.Upsert(ctx, sampleTransactions()); err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
	}

	n, err := ledger.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("re-upserting the same rows must not duplicate: count = %d, want 3", n)
	}
}

func TestUpsertUpdatesChangedRow(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	txns := sampleTransactions()
	if err := ledger.Upsert(ctx, txns); err != nil {
		t.Fatal(err)
	}

	// The same order number with a corrected description must update in
	// place, not insert.
	txns[0].Description = "BOUGHT FXAIX (CORRECTED)"
	if err := ledger.Upsert(ctx, txns[:1]); err != nil {
		t.Fatal(err)
	}

	got, err := ledger.ListByAccount(ctx, "1234")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Description != "BOUGHT FXAIX (CORRECTED)" {
		t.Errorf("row was not updated: %q", got[0].Description)
	}
}
