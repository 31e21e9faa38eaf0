package handlers

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// catalogEntry is the live catalog view a cart mutation prices against.
type catalogEntry struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Price       float64            `json:"price"`
	SaleEnabled bool               `json:"saleEnabled"`
	SalePrice   float64            `json:"salePrice"`
	Stock       int                `json:"stock"`
	ImagePath   string             `json:"imagePath"`
}

// findCartLine locates the line for a (product, variant selection) pair.
// Canonical key match wins; otherwise lines persisted before canonical
// keys existed (no key stored) are matched field by field on productId,
// color and size. Lines that already carry a key never legacy-match, so a
// selection differing in some other attribute cannot collide with them.
func findCartLine(items []models.CartItem, productID primitive.ObjectID, key string, normalized map[string]string) int {
	for i := range items {
		if items[i].Key != "" && items[i].Key == key {
			return i
		}
	}

	color := normalized["color"]
	size := normalized["size"]
	for i := range items {
		if items[i].Key != "" {
			continue
		}
		if items[i].ProductID == productID && items[i].Color == color && items[i].Size == size {
			return i
		}
	}

	return -1
}

// healLegacyLine backfills the canonical key, and the variants map when
// absent, on a line found through the legacy match. One-time migration on
// write; the legacy color/size fields are left in place for older readers.
func healLegacyLine(line *models.CartItem, key string, normalized map[string]string) {
	if line.Key == "" {
		line.Key = key
	}
	if len(line.Variants) == 0 && len(normalized) > 0 {
		line.Variants = normalized
	}
}

// applyLineUpdate sets the matched line to the requested quantity and
// re-snapshots its price from the catalog. It is a set, not an add:
// repeating the call with the same arguments leaves the same quantity and
// total. Returns the updated line.
func applyLineUpdate(cart *models.Cart, product catalogEntry, selection map[string]string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, errInvalidQuantity
	}
	if product.Stock < quantity {
		return nil, outOfStockError{ProductID: product.ID, Available: product.Stock, Requested: quantity}
	}

	normalized := normalizeVariants(selection)
	key, err := variantKey(product.ID.Hex(), normalized)
	if err != nil {
		return nil, err
	}

	idx := findCartLine(cart.Items, product.ID, key, normalized)
	if idx < 0 {
		return nil, lineNotFoundError{Key: key}
	}

	line := &cart.Items[idx]
	healLegacyLine(line, key, normalized)
	line.Quantity = quantity
	line.Price = effectiveProductPrice(product.Price, product.SaleEnabled, product.SalePrice)
	line.Total = line.Price * float64(quantity)

	return line, nil
}

// addCartLine merges the requested quantity into an existing line for the
// same identity, or appends a new line. Unlike applyLineUpdate this is a
// creation path, so a missing line is not an error.
func addCartLine(cart *models.Cart, product catalogEntry, selection map[string]string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, errInvalidQuantity
	}

	normalized := normalizeVariants(selection)
	key, err := variantKey(product.ID.Hex(), normalized)
	if err != nil {
		return nil, err
	}

	price := effectiveProductPrice(product.Price, product.SaleEnabled, product.SalePrice)

	idx := findCartLine(cart.Items, product.ID, key, normalized)
	if idx >= 0 {
		line := &cart.Items[idx]
		merged := line.Quantity + quantity
		if product.Stock < merged {
			return nil, outOfStockError{ProductID: product.ID, Available: product.Stock, Requested: merged}
		}
		healLegacyLine(line, key, normalized)
		line.Quantity = merged
		line.Price = price
		line.Total = price * float64(merged)
		return line, nil
	}

	if product.Stock < quantity {
		return nil, outOfStockError{ProductID: product.ID, Available: product.Stock, Requested: quantity}
	}

	cart.Items = append(cart.Items, models.CartItem{
		ProductID: product.ID,
		Key:       key,
		Variants:  normalized,
		Quantity:  quantity,
		Price:     price,
		Total:     price * float64(quantity),
	})
	return &cart.Items[len(cart.Items)-1], nil
}

// removeCartLine removes the line for the given identity using the same
// canonical-then-legacy lookup as applyLineUpdate. Other lines and the
// cart document itself are untouched, even when the cart becomes empty.
func removeCartLine(cart *models.Cart, productID primitive.ObjectID, selection map[string]string) error {
	normalized := normalizeVariants(selection)
	key, err := variantKey(productID.Hex(), normalized)
	if err != nil {
		return err
	}

	idx := findCartLine(cart.Items, productID, key, normalized)
	if idx < 0 {
		return lineNotFoundError{Key: key}
	}

	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	return nil
}
