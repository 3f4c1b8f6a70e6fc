package model

// ProductVariant is the purchasable SKU with its live inventory counter.
// Inventory never goes below zero; reaching exactly zero delists the variant,
// and restocking does not automatically relist it.
type ProductVariant struct {
	ID        int64
	ProductID int64
	SKU       string
	Inventory int64
	IsActive  bool
}
