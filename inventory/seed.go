/*
seed.go - Demo dataset for a fresh installation

PURPOSE:
  A brand-new store has no products to sell and no vendor to sell them.
  SeedIfEmpty fills an empty dataset with two cleaning products and one
  placeholder vendor so the tool is usable right after install.

HOW SEEDING WORKS:
  1. Skip unless products, sales and vendors are all empty
  2. Parse every seed row through the normal parsers (same validation
     as form input)
  3. Stage all inserts in one unit of work and commit once

SEE ALSO:
  - engine.go: unit of work and commit
  - app/config.go: SEED_DEMO toggles seeding at startup
*/
package inventory

import (
	"context"
	"log/slog"
)

var seedProducts = []Fields{
	{
		FieldCode: "001", FieldName: "Vanish 1L", FieldCategory: "Limpeza",
		FieldQuantity: "10", FieldVolume: "1L",
		FieldPurchasePrice: "10.00", FieldSalePrice: "20.00", FieldMarketPrice: "35.00",
	},
	{
		FieldCode: "002", FieldName: "Água Sanitária 1L", FieldCategory: "Limpeza",
		FieldQuantity: "20", FieldVolume: "1L",
		FieldPurchasePrice: "1.50", FieldSalePrice: "3.00", FieldMarketPrice: "4.00",
	},
}

var seedVendors = []Fields{
	{FieldVendorID: "V001", FieldName: "Fulano"},
}

// SeedIfEmpty loads the demo dataset when nothing has been recorded yet.
// It reports whether rows were added.
func (e *Engine) SeedIfEmpty(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !e.repo.Snapshot().IsEmpty() {
		return false, nil
	}

	u := e.begin()
	for _, data := range seedProducts {
		p, err := ParseProduct(data)
		if err == nil {
			err = stageInsert(u, e.repo.products, p)
		}
		if err != nil {
			u.rollback()
			return false, err
		}
	}
	for _, data := range seedVendors {
		v, err := ParseVendor(data)
		if err == nil {
			err = stageInsert(u, e.repo.vendors, v)
		}
		if err != nil {
			u.rollback()
			return false, err
		}
	}
	if err := e.commit(ctx, "seed", u); err != nil {
		return false, err
	}
	e.logger.Info("demo dataset seeded",
		slog.Int("products", len(seedProducts)),
		slog.Int("vendors", len(seedVendors)))
	return true, nil
}
