package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tabiguide-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupGormReferralStoreTest(t *testing.T) *GormReferralStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate referrals failed: %v", err)
	}
	store := NewGormReferralStore(db, "sqlite")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func setupBoltReferralStoreTest(t *testing.T) *BoltReferralStore {
	t.Helper()
	store, err := OpenBoltReferralStore(filepath.Join(t.TempDir(), "nested", "referrals.db"))
	if err != nil {
		t.Fatalf("open bolt store failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleReferrals(n int) []models.Referral {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Referral, 0, n)
	for i := 0; i < n; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		rate, _ := models.ParsePercent("10.00")
		ref := models.Referral{
			// ids deliberately out of lexical order
			ID:               fmt.Sprintf("ref-%d", n-i),
			GuideID:          fmt.Sprintf("guide-%d", i%2),
			SponsorStoreID:   "store-1",
			ReferralDate:     at,
			CommissionRate:   rate,
			CommissionStatus: "pending",
			ReferralSource:   "web",
			CreatedAt:        at,
			UpdatedAt:        at,
		}
		if i%2 == 0 {
			amount := models.MustMoney("12.50")
			ref.CommissionAmount = &amount
			ref.PaymentDate = &at
		}
		out = append(out, ref)
	}
	return out
}

// checkStoreContract exercises the Load/Save contract shared by every driver
func checkStoreContract(t *testing.T, store ReferralStore) {
	t.Helper()
	ctx := context.Background()

	initial, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("initial load failed: %v", err)
	}
	if initial == nil || len(initial) != 0 {
		t.Fatalf("expected empty non-nil collection, got %v", initial)
	}

	want := sampleReferrals(5)
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load after save failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected count: got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Fatalf("storage order lost at %d: got=%s want=%s", i, got[i].ID, want[i].ID)
		}
		if !got[i].ReferralDate.Equal(want[i].ReferralDate) {
			t.Fatalf("referral date mismatch at %d", i)
		}
		if got[i].CommissionRate.String() != "10.00" {
			t.Fatalf("rate mismatch at %d: %s", i, got[i].CommissionRate.String())
		}
		if (got[i].CommissionAmount == nil) != (want[i].CommissionAmount == nil) {
			t.Fatalf("amount nullability mismatch at %d", i)
		}
		if want[i].CommissionAmount != nil && !got[i].CommissionAmount.Equal(want[i].CommissionAmount.Decimal) {
			t.Fatalf("amount mismatch at %d: %s", i, got[i].CommissionAmount.String())
		}
		if (got[i].PaymentDate == nil) != (want[i].PaymentDate == nil) {
			t.Fatalf("payment date nullability mismatch at %d", i)
		}
	}

	// shrink and reorder: removed rows must disappear
	shrunk := []models.Referral{want[3], want[0]}
	shrunk[1].Notes = "updated"
	if err := store.Save(ctx, shrunk); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != want[3].ID || got[1].ID != want[0].ID {
		t.Fatalf("unexpected collection after shrink: %+v", got)
	}
	if got[1].Notes != "updated" {
		t.Fatalf("update not persisted: %q", got[1].Notes)
	}

	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("save empty failed: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load empty failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty collection, got %d", len(got))
	}
}

func TestJSONReferralStoreContract(t *testing.T) {
	checkStoreContract(t, NewJSONReferralStore(filepath.Join(t.TempDir(), "data", "sponsor_referrals.json")))
}

func TestGormReferralStoreContract(t *testing.T) {
	checkStoreContract(t, setupGormReferralStoreTest(t))
}

func TestGormReferralStoreSavesLedgerBeyondBindLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("large ledger")
	}
	store := setupGormReferralStoreTest(t)
	ctx := context.Background()

	// more rows than sqlite accepts as bound parameters in one statement
	big := sampleReferrals(40000)
	if err := store.Save(ctx, big); err != nil {
		t.Fatalf("save large ledger failed: %v", err)
	}

	trimmed := append([]models.Referral{}, big[1:]...)
	trimmed[0], trimmed[len(trimmed)-1] = trimmed[len(trimmed)-1], trimmed[0]
	if err := store.Save(ctx, trimmed); err != nil {
		t.Fatalf("resave large ledger failed: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load large ledger failed: %v", err)
	}
	if len(got) != len(trimmed) {
		t.Fatalf("unexpected count: got=%d want=%d", len(got), len(trimmed))
	}
	if got[0].ID != trimmed[0].ID || got[len(got)-1].ID != trimmed[len(trimmed)-1].ID {
		t.Fatalf("storage order lost: first=%s last=%s", got[0].ID, got[len(got)-1].ID)
	}
	for i := range got {
		if got[i].ID == big[0].ID {
			t.Fatalf("removed referral %s still stored", big[0].ID)
		}
	}
}

func TestBoltReferralStoreContract(t *testing.T) {
	checkStoreContract(t, setupBoltReferralStoreTest(t))
}

func TestJSONReferralStoreCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sponsor_referrals.json")
	store := NewJSONReferralStore(path)

	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ledger file not created: %v", err)
	}
	if string(content) != "[]" {
		t.Fatalf("unexpected initial content: %q", content)
	}
}

func TestJSONReferralStoreCorruptContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sponsor_referrals.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file failed: %v", err)
	}
	store := NewJSONReferralStore(path)

	if _, err := store.Load(context.Background()); !errors.Is(err, ErrStoreCorrupt) {
		t.Fatalf("expected ErrStoreCorrupt, got %v", err)
	}
}

func TestJSONReferralStoreWritesCamelCaseArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sponsor_referrals.json")
	store := NewJSONReferralStore(path)
	if err := store.Save(context.Background(), sampleReferrals(1)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ledger failed: %v", err)
	}
	text := string(content)
	if !strings.HasPrefix(text, "[") {
		t.Fatalf("ledger must be a top-level array: %s", text)
	}
	for _, key := range []string{`"sponsorStoreId"`, `"commissionRate": "10.00"`, `"commissionAmount": 12.5`} {
		if !strings.Contains(text, key) {
			t.Fatalf("expected %s in %s", key, text)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestJSONReferralStoreSaveFailsWhenDirIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker failed: %v", err)
	}
	store := NewJSONReferralStore(filepath.Join(blocker, "ledger.json"))

	if err := store.Save(context.Background(), sampleReferrals(1)); err == nil {
		t.Fatalf("expected save to fail when parent is a file")
	}
}

func TestStoresHonourCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewJSONReferralStore(filepath.Join(t.TempDir(), "ledger.json"))
	if _, err := store.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	bolt := setupBoltReferralStoreTest(t)
	if err := bolt.Save(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
