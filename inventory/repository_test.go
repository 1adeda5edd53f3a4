package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
)

func TestTable_KeepsInsertionOrder(t *testing.T) {
	repo := inventory.NewRepository()
	vendors := repo.Vendors()
	for _, id := range []string{"V003", "V001", "V002"} {
		require.NoError(t, vendors.Insert(inventory.Vendor{ID: id, Name: id}))
	}

	require.NoError(t, vendors.Update("V001", inventory.Vendor{ID: "V001", Name: "Fulano"}))
	_, idx, err := vendors.Delete("V003")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	all := vendors.All()
	require.Len(t, all, 2)
	assert.Equal(t, "V001", all[0].ID)
	assert.Equal(t, "Fulano", all[0].Name)
	assert.Equal(t, "V002", all[1].ID)
	assert.Equal(t, 2, vendors.Len())
}

func TestTable_Errors(t *testing.T) {
	products := inventory.NewRepository().Products()
	require.NoError(t, products.Insert(inventory.Product{Code: "001", Name: "Vanish"}))

	assert.ErrorIs(t, products.Insert(inventory.Product{Code: "001", Name: "Outro"}), inventory.ErrDuplicateKey)
	assert.ErrorIs(t, products.Update("002", inventory.Product{Code: "002"}), inventory.ErrNotFound)
	assert.ErrorIs(t, products.Update("001", inventory.Product{Code: "002"}), inventory.ErrValidation)

	_, _, err := products.Delete("002")
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	_, err = products.Find("002")
	var nf *inventory.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, inventory.EntityProduct, nf.Entity)
	assert.True(t, inventory.IsNotFound(err))
	assert.False(t, inventory.IsClientError(err))
}

func TestRepository_SalesReferencing(t *testing.T) {
	repo := inventory.NewRepository()
	require.NoError(t, repo.LoadFrom(inventory.Snapshot{
		Sales: []inventory.Sale{
			{Code: "V001", ProductCode: "001", ProductName: "Vanish", VendorID: "V001", Quantity: 1},
			{Code: "V002", ProductCode: "002", ProductName: "Água", VendorID: "V001", Quantity: 1},
			{Code: "V003", ProductCode: "001", ProductName: "Vanish", VendorID: "V002", Quantity: 2},
		},
	}))

	assert.Equal(t, []string{"V001", "V003"}, repo.SalesReferencing(inventory.EntityProduct, "001"))
	assert.Equal(t, []string{"V001", "V002"}, repo.SalesReferencing(inventory.EntityVendor, "V001"))
	assert.Empty(t, repo.SalesReferencing(inventory.EntityVendor, "V009"))
}

func TestRepository_LoadFrom_KeepsStateOnError(t *testing.T) {
	repo := inventory.NewRepository()
	require.NoError(t, repo.Vendors().Insert(inventory.Vendor{ID: "V001", Name: "Fulano"}))

	err := repo.LoadFrom(inventory.Snapshot{
		Vendors: []inventory.Vendor{{ID: "V009", Name: "A"}, {ID: "V009", Name: "B"}},
	})

	assert.ErrorIs(t, err, inventory.ErrDuplicateKey)
	assert.True(t, repo.Vendors().Has("V001"))
	assert.False(t, repo.Vendors().Has("V009"))
}

func TestRepository_LoadFrom_RejectsInvalidRow(t *testing.T) {
	repo := inventory.NewRepository()
	require.NoError(t, repo.Vendors().Insert(inventory.Vendor{ID: "V001", Name: "Fulano"}))

	err := repo.LoadFrom(inventory.Snapshot{
		Sales: []inventory.Sale{{Code: "V001", ProductCode: "001", ProductName: "Vanish", Quantity: 0}},
	})

	var le *inventory.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, inventory.EntitySale, le.Entity)
	assert.Equal(t, "V001", le.Key)
	assert.ErrorIs(t, err, inventory.ErrValidation)
	assert.True(t, repo.Vendors().Has("V001"))
}

func TestChange_Apply_UnknownOp(t *testing.T) {
	c := inventory.Change{Op: "upsert", Entity: inventory.EntityVendor, Key: "V001"}

	err := c.Apply(context.Background(), nil)

	assert.ErrorContains(t, err, "unknown change op")
}

func TestNextSaleCode(t *testing.T) {
	sales := func(codes ...string) []inventory.Sale {
		out := make([]inventory.Sale, len(codes))
		for i, c := range codes {
			out[i] = inventory.Sale{Code: c}
		}
		return out
	}

	assert.Equal(t, "V001", inventory.NextSaleCode(nil))
	assert.Equal(t, "V011", inventory.NextSaleCode(sales("V001", "V002", "V010")))
	assert.Equal(t, "V1000", inventory.NextSaleCode(sales("V999")))
	assert.Equal(t, "V003", inventory.NextSaleCode(sales("A-1", "B-2")))
	assert.Equal(t, "V006", inventory.NextSaleCode(sales("A-1", "V005")))
}

func TestErrors_Unwrap(t *testing.T) {
	warn := &inventory.ReferencedRowWarning{Entity: inventory.EntityProduct, Key: "001", SaleCodes: []string{"V001", "V002"}}
	assert.ErrorIs(t, warn, inventory.ErrReferencedRow)
	assert.True(t, inventory.IsClientError(warn))
	assert.Contains(t, warn.Error(), "V001, V002")

	stockErr := &inventory.InsufficientStockError{ProductCode: "001", Available: 2, Requested: 3}
	assert.True(t, inventory.IsClientError(stockErr))
}
