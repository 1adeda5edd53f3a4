package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JhonneBoy/sistema-estoque-vendas/auth"
	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
	"github.com/JhonneBoy/sistema-estoque-vendas/store/sqlstore"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlstore.Store {
	store, err := sqlstore.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var soldAt = time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

func sampleSnapshot() inventory.Snapshot {
	return inventory.Snapshot{
		Products: []inventory.Product{
			{
				Code: "002", Name: "Água Sanitária 1L", Category: "Limpeza", Quantity: 20, Volume: "1L",
				PurchasePrice: decimal.RequireFromString("1.50"),
				SalePrice:     decimal.RequireFromString("3.00"),
				MarketPrice:   decimal.RequireFromString("4.00"),
			},
			{
				Code: "001", Name: "Vanish 1L", Category: "Limpeza", Quantity: 6, Volume: "1L",
				PurchasePrice: decimal.RequireFromString("10"),
				SalePrice:     decimal.RequireFromString("20"),
				MarketPrice:   decimal.RequireFromString("35"),
			},
		},
		Sales: []inventory.Sale{
			{Code: "V001", ProductCode: "001", ProductName: "Vanish 1L", VendorID: "V001", Quantity: 4, CreatedAt: soldAt},
		},
		Vendors: []inventory.Vendor{
			{ID: "V001", Name: "Fulano", Phone: "(11) 98765-4321", Email: "fulano@example.com"},
		},
	}
}

func assertSnapshotEqual(t *testing.T, want, got inventory.Snapshot) {
	t.Helper()
	require.Len(t, got.Products, len(want.Products))
	for i := range want.Products {
		w, g := want.Products[i], got.Products[i]
		assert.Equal(t, w.Code, g.Code)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Category, g.Category)
		assert.Equal(t, w.Quantity, g.Quantity)
		assert.Equal(t, w.Volume, g.Volume)
		assert.True(t, w.PurchasePrice.Equal(g.PurchasePrice), "purchase price of %s", w.Code)
		assert.True(t, w.SalePrice.Equal(g.SalePrice), "sale price of %s", w.Code)
		assert.True(t, w.MarketPrice.Equal(g.MarketPrice), "market price of %s", w.Code)
	}
	require.Len(t, got.Sales, len(want.Sales))
	for i := range want.Sales {
		w, g := want.Sales[i], got.Sales[i]
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt), "timestamp of %s", w.Code)
		w.CreatedAt, g.CreatedAt = time.Time{}, time.Time{}
		assert.Equal(t, w, g)
	}
	assert.Equal(t, want.Vendors, got.Vendors)
}

// =============================================================================
// BULK CONTRACT
// =============================================================================

func TestStore_SaveAllLoadAll_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	want := sampleSnapshot()

	require.NoError(t, store.SaveAll(ctx, want))

	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assertSnapshotEqual(t, want, got)
}

func TestStore_SaveAll_ReplacesEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveAll(ctx, sampleSnapshot()))

	next := inventory.Snapshot{Vendors: []inventory.Vendor{{ID: "V002", Name: "Beltrano"}}}
	require.NoError(t, store.SaveAll(ctx, next))

	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Products)
	assert.Empty(t, got.Sales)
	assert.Equal(t, next.Vendors, got.Vendors)
}

func TestStore_LoadAll_Empty(t *testing.T) {
	got, err := newTestStore(t).LoadAll(context.Background())
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

// =============================================================================
// ROW-LEVEL TRANSACTIONS
// =============================================================================

func TestStore_WithTx_RowChanges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveAll(ctx, sampleSnapshot()))

	err := store.WithTx(ctx, func(w inventory.RowWriter) error {
		p := sampleSnapshot().Products[1]
		p.Quantity = 10
		if err := w.Update(ctx, p); err != nil {
			return err
		}
		return w.Delete(ctx, inventory.EntitySale, "V001")
	})
	require.NoError(t, err)

	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Sales)
	require.Len(t, got.Products, 2)
	// UPDATE keeps the row's position
	assert.Equal(t, "001", got.Products[1].Code)
	assert.Equal(t, 10, got.Products[1].Quantity)
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveAll(ctx, sampleSnapshot()))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(w inventory.RowWriter) error {
		if err := w.Insert(ctx, inventory.Vendor{ID: "V002", Name: "Beltrano"}); err != nil {
			return err
		}
		if err := w.Delete(ctx, inventory.EntityProduct, "002"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assertSnapshotEqual(t, sampleSnapshot(), got)
}

func TestStore_RowErrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveAll(ctx, sampleSnapshot()))

	err := store.WithTx(ctx, func(w inventory.RowWriter) error {
		return w.Insert(ctx, inventory.Product{Code: "001", Name: "Outro"})
	})
	var dup *inventory.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, inventory.EntityProduct, dup.Entity)
	assert.Equal(t, "001", dup.Key)

	err = store.WithTx(ctx, func(w inventory.RowWriter) error {
		return w.Update(ctx, inventory.Vendor{ID: "V404", Name: "Ninguém"})
	})
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	err = store.WithTx(ctx, func(w inventory.RowWriter) error {
		return w.Delete(ctx, inventory.EntitySale, "V404")
	})
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

// =============================================================================
// ENGINE INTEGRATION
// =============================================================================

func TestStore_EngineReloadsCommittedState(t *testing.T) {
	// GIVEN: An engine on SQLite with seeded data
	// WHEN: Recording a sale and loading a fresh engine from the same store
	// THEN: The new engine sees the sale and the reduced stock

	store := newTestStore(t)
	ctx := context.Background()

	e := inventory.NewEngine(store)
	require.NoError(t, e.Load(ctx))
	_, err := e.SeedIfEmpty(ctx)
	require.NoError(t, err)
	sale, err := e.CreateSale(ctx, "001", "V001", "4")
	require.NoError(t, err)

	reloaded := inventory.NewEngine(store)
	require.NoError(t, reloaded.Load(ctx))
	snap := reloaded.Snapshot()

	require.Len(t, snap.Sales, 1)
	assert.Equal(t, sale.Code, snap.Sales[0].Code)
	assert.Equal(t, 6, snap.Products[0].Quantity)
	assert.Equal(t, "V002", reloaded.NextSaleCode())
}

// =============================================================================
// CREDENTIALS
// =============================================================================

func TestStore_Credentials(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	creds, err := store.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Empty(t, creds)

	require.NoError(t, store.PutCredential(ctx, auth.Credential{User: "admin", PasswordHash: "h1"}))
	require.NoError(t, store.PutCredential(ctx, auth.Credential{User: "admin", PasswordHash: "h2"}))

	creds, err = store.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, []auth.Credential{{User: "admin", PasswordHash: "h2"}}, creds)

	// Credentials survive a bulk rewrite of the data tables
	require.NoError(t, store.SaveAll(ctx, sampleSnapshot()))
	creds, err = store.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}
