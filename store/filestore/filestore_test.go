package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JhonneBoy/sistema-estoque-vendas/auth"
	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
	"github.com/JhonneBoy/sistema-estoque-vendas/store/filestore"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var soldAt = time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

func sampleSnapshot() inventory.Snapshot {
	return inventory.Snapshot{
		Products: []inventory.Product{{
			Code: "001", Name: "Vanish 1L", Category: "Limpeza", Quantity: 6, Volume: "1L",
			PurchasePrice: decimal.RequireFromString("10.00"),
			SalePrice:     decimal.RequireFromString("20.00"),
			MarketPrice:   decimal.RequireFromString("35.00"),
		}},
		Sales: []inventory.Sale{
			{Code: "V001", ProductCode: "001", ProductName: "Vanish 1L", VendorID: "V001", Quantity: 4, CreatedAt: soldAt},
		},
		Vendors: []inventory.Vendor{{ID: "V001", Name: "Fulano", Phone: "(11) 98765-4321"}},
	}
}

// clock returns a time source that advances one second per call.
func clock() func() time.Time {
	now := soldAt
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestStore_MissingFile_IsEmpty(t *testing.T) {
	store := filestore.New(filepath.Join(t.TempDir(), "estoque.yaml"), filestore.Options{})

	snap, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "estoque.yaml")
	store := filestore.New(path, filestore.Options{})
	ctx := context.Background()
	want := sampleSnapshot()

	require.NoError(t, store.SaveAll(ctx, want))

	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	assert.True(t, got.Products[0].SalePrice.Equal(want.Products[0].SalePrice))
	assert.Equal(t, want.Products[0].Quantity, got.Products[0].Quantity)
	require.Len(t, got.Sales, 1)
	assert.True(t, got.Sales[0].CreatedAt.Equal(soldAt))
	assert.Equal(t, want.Sales[0].Quantity, got.Sales[0].Quantity)
	assert.Equal(t, want.Vendors, got.Vendors)

	// No temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "estoque.yaml", entries[0].Name())
}

func TestStore_WritesNamedSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estoque.yaml")
	store := filestore.New(path, filestore.Options{})
	require.NoError(t, store.SaveAll(context.Background(), sampleSnapshot()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := filestore.Parse(data)
	require.NoError(t, err)

	require.Len(t, doc.Products, 1)
	assert.Equal(t, "20", doc.Products[0].SalePrice)
	require.Len(t, doc.Sales, 1)
	assert.Equal(t, "2025-03-10T14:30:00Z", doc.Sales[0].Timestamp)
	assert.Equal(t, 4, doc.Sales[0].QuantitySold)
	assert.Contains(t, string(data), "vendor_id: V001")
}

func TestStore_BackupBeforeRewrite(t *testing.T) {
	// GIVEN: A data file that has been saved once
	// WHEN: Saving twice more with backups enabled and KeepBackups = 1
	// THEN: Only the newest backup remains and it holds the previous content

	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	store := filestore.New(filepath.Join(dir, "estoque.yaml"), filestore.Options{
		BackupDir:   backups,
		KeepBackups: 1,
		Now:         clock(),
	})
	ctx := context.Background()

	// First save has nothing to back up
	require.NoError(t, store.SaveAll(ctx, inventory.Snapshot{}))
	_, err := os.Stat(backups)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.SaveAll(ctx, sampleSnapshot()))
	names, err := store.Backups()
	require.NoError(t, err)
	require.Equal(t, []string{"backup_20250310_143001.yaml"}, names)

	next := sampleSnapshot()
	next.Products[0].Quantity = 1
	require.NoError(t, store.SaveAll(ctx, next))

	names, err = store.Backups()
	require.NoError(t, err)
	require.Equal(t, []string{"backup_20250310_143002.yaml"}, names)

	data, err := os.ReadFile(filepath.Join(backups, names[0]))
	require.NoError(t, err)
	doc, err := filestore.Parse(data)
	require.NoError(t, err)
	require.Len(t, doc.Products, 1)
	assert.Equal(t, 6, doc.Products[0].Quantity)
}

func TestStore_BackupFailureIsIgnored(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the backup directory should be
	blocker := filepath.Join(dir, "backups")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := filestore.New(filepath.Join(dir, "estoque.yaml"), filestore.Options{BackupDir: blocker})
	ctx := context.Background()
	require.NoError(t, store.SaveAll(ctx, inventory.Snapshot{}))

	require.NoError(t, store.SaveAll(ctx, sampleSnapshot()))

	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Products, 1)
}

func TestStore_CredentialsSurviveRewrite(t *testing.T) {
	store := filestore.New(filepath.Join(t.TempDir(), "estoque.yaml"), filestore.Options{})
	ctx := context.Background()

	require.NoError(t, store.PutCredential(ctx, auth.Credential{User: "admin", PasswordHash: "hash"}))
	require.NoError(t, store.SaveAll(ctx, sampleSnapshot()))

	creds, err := store.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, []auth.Credential{{User: "admin", PasswordHash: "hash"}}, creds)

	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Sales, 1)
}

func TestStore_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estoque.yaml")
	require.NoError(t, os.WriteFile(path, []byte("products: [\n"), 0o644))

	_, err := filestore.New(path, filestore.Options{}).LoadAll(context.Background())
	assert.Error(t, err)
}

func TestStore_EngineCommitsThroughSaveAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estoque.yaml")
	ctx := context.Background()

	e := inventory.NewEngine(filestore.New(path, filestore.Options{}))
	require.NoError(t, e.Load(ctx))
	_, err := e.SeedIfEmpty(ctx)
	require.NoError(t, err)
	_, err = e.CreateSale(ctx, "002", "V001", "5")
	require.NoError(t, err)

	reloaded := inventory.NewEngine(filestore.New(path, filestore.Options{}))
	require.NoError(t, reloaded.Load(ctx))
	snap := reloaded.Snapshot()
	require.Len(t, snap.Products, 2)
	assert.Equal(t, 15, snap.Products[1].Quantity)
	assert.Len(t, snap.Sales, 1)
}
