package handlers

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func testProduct(stock int) catalogEntry {
	return catalogEntry{
		ID:          primitive.NewObjectID(),
		Name:        "Shirt",
		Price:       20,
		SaleEnabled: true,
		SalePrice:   15,
		Stock:       stock,
	}
}

func cartWithLine(product catalogEntry, selection map[string]string) models.Cart {
	normalized := normalizeVariants(selection)
	key, _ := variantKey(product.ID.Hex(), normalized)
	return models.Cart{
		UserID: primitive.NewObjectID(),
		Items: []models.CartItem{{
			ProductID: product.ID,
			Key:       key,
			Variants:  normalized,
			Quantity:  1,
			Price:     product.Price,
			Total:     product.Price,
		}},
	}
}

func TestApplyLineUpdateSetsSalePriceAndTotal(t *testing.T) {
	product := testProduct(5)
	cart := cartWithLine(product, map[string]string{"color": "red"})

	line, err := applyLineUpdate(&cart, product, map[string]string{"color": "red"}, 3)
	if err != nil {
		t.Fatalf("applyLineUpdate returned error: %v", err)
	}
	if line.Price != 15 {
		t.Fatalf("expected discount price 15, got %v", line.Price)
	}
	if line.Total != 45 {
		t.Fatalf("expected total 45, got %v", line.Total)
	}
	if line.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", line.Quantity)
	}
}

func TestApplyLineUpdateIsIdempotent(t *testing.T) {
	product := testProduct(5)
	cart := cartWithLine(product, map[string]string{"color": "red"})

	if _, err := applyLineUpdate(&cart, product, map[string]string{"color": "red"}, 3); err != nil {
		t.Fatalf("first update returned error: %v", err)
	}
	if _, err := applyLineUpdate(&cart, product, map[string]string{"color": "red"}, 3); err != nil {
		t.Fatalf("second update returned error: %v", err)
	}

	if cart.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity to stay 3, got %d", cart.Items[0].Quantity)
	}
	if cart.Items[0].Total != 45 {
		t.Fatalf("expected total to stay 45, got %v", cart.Items[0].Total)
	}
}

func TestApplyLineUpdateVariantOrderIrrelevant(t *testing.T) {
	product := testProduct(5)
	cart := cartWithLine(product, map[string]string{"color": "red", "size": "M"})

	if _, err := applyLineUpdate(&cart, product, map[string]string{"size": "M", "color": "red"}, 2); err != nil {
		t.Fatalf("expected reordered selection to match, got error: %v", err)
	}
}

func TestApplyLineUpdateLegacyLineHealed(t *testing.T) {
	product := testProduct(5)
	// A line persisted before canonical keys existed: only the legacy
	// color/size fields are set.
	cart := models.Cart{
		Items: []models.CartItem{{
			ProductID: product.ID,
			Color:     "red",
			Size:      "M",
			Quantity:  1,
			Price:     20,
			Total:     20,
		}},
	}

	line, err := applyLineUpdate(&cart, product, map[string]string{"color": "red", "size": "M"}, 2)
	if err != nil {
		t.Fatalf("expected legacy match, got error: %v", err)
	}

	wantKey, _ := variantKey(product.ID.Hex(), map[string]string{"color": "red", "size": "M"})
	if line.Key != wantKey {
		t.Fatalf("expected backfilled key %q, got %q", wantKey, line.Key)
	}
	if line.Variants["color"] != "red" || line.Variants["size"] != "M" {
		t.Fatalf("expected variants populated, got %v", line.Variants)
	}
	if line.Quantity != 2 || line.Total != 30 {
		t.Fatalf("expected quantity 2 total 30, got %d/%v", line.Quantity, line.Total)
	}
}

func TestApplyLineUpdateLegacyMatchSkipsKeyedLines(t *testing.T) {
	product := testProduct(5)
	// This line carries a canonical key for a richer selection; a request
	// for just {color: red} must not adopt it through the legacy path.
	normalized := normalizeVariants(map[string]string{"color": "red", "material": "cotton"})
	key, _ := variantKey(product.ID.Hex(), normalized)
	cart := models.Cart{
		Items: []models.CartItem{{
			ProductID: product.ID,
			Key:       key,
			Variants:  normalized,
			Quantity:  1,
			Price:     20,
			Total:     20,
		}},
	}

	_, err := applyLineUpdate(&cart, product, map[string]string{"color": "red"}, 2)
	var lineErr lineNotFoundError
	if !errors.As(err, &lineErr) {
		t.Fatalf("expected lineNotFoundError, got %v", err)
	}
}

func TestApplyLineUpdateLineNotFound(t *testing.T) {
	product := testProduct(5)
	cart := cartWithLine(product, map[string]string{"color": "red"})

	_, err := applyLineUpdate(&cart, product, map[string]string{"color": "blue"}, 1)
	var lineErr lineNotFoundError
	if !errors.As(err, &lineErr) {
		t.Fatalf("expected lineNotFoundError, got %v", err)
	}
}

func TestApplyLineUpdateInvalidQuantity(t *testing.T) {
	product := testProduct(5)
	cart := cartWithLine(product, map[string]string{"color": "red"})

	for _, quantity := range []int{0, -1} {
		if _, err := applyLineUpdate(&cart, product, map[string]string{"color": "red"}, quantity); !errors.Is(err, errInvalidQuantity) {
			t.Fatalf("expected errInvalidQuantity for quantity %d, got %v", quantity, err)
		}
	}
}

func TestApplyLineUpdateOutOfStockLeavesCartUnmodified(t *testing.T) {
	product := testProduct(2)
	cart := cartWithLine(product, map[string]string{"color": "red"})

	_, err := applyLineUpdate(&cart, product, map[string]string{"color": "red"}, 3)
	var stockErr outOfStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected outOfStockError, got %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 3 {
		t.Fatalf("unexpected stock error detail: %+v", stockErr)
	}
	if cart.Items[0].Quantity != 1 || cart.Items[0].Total != 20 {
		t.Fatalf("expected cart untouched, got quantity=%d total=%v", cart.Items[0].Quantity, cart.Items[0].Total)
	}
}

func TestAddCartLineMergesSameIdentity(t *testing.T) {
	product := testProduct(10)
	cart := models.Cart{Items: []models.CartItem{}}

	if _, err := addCartLine(&cart, product, map[string]string{"color": "red"}, 2); err != nil {
		t.Fatalf("first add returned error: %v", err)
	}
	if _, err := addCartLine(&cart, product, map[string]string{"color": "red"}, 3); err != nil {
		t.Fatalf("second add returned error: %v", err)
	}
	if _, err := addCartLine(&cart, product, map[string]string{"color": "blue"}, 1); err != nil {
		t.Fatalf("distinct variant add returned error: %v", err)
	}

	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", cart.Items[0].Quantity)
	}
}

func TestAddCartLineStockLimitsMergedQuantity(t *testing.T) {
	product := testProduct(3)
	cart := models.Cart{Items: []models.CartItem{}}

	if _, err := addCartLine(&cart, product, map[string]string{"color": "red"}, 2); err != nil {
		t.Fatalf("first add returned error: %v", err)
	}

	_, err := addCartLine(&cart, product, map[string]string{"color": "red"}, 2)
	var stockErr outOfStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected outOfStockError on merged quantity, got %v", err)
	}
}

func TestRemoveCartLineCanonical(t *testing.T) {
	product := testProduct(5)
	cart := cartWithLine(product, map[string]string{"color": "red"})

	if err := removeCartLine(&cart, product.ID, map[string]string{"color": "red"}); err != nil {
		t.Fatalf("removeCartLine returned error: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(cart.Items))
	}
}

func TestRemoveCartLineLegacyFallback(t *testing.T) {
	product := testProduct(5)
	cart := models.Cart{
		Items: []models.CartItem{
			{ProductID: product.ID, Color: "red", Quantity: 1, Price: 20, Total: 20},
			{ProductID: product.ID, Color: "blue", Quantity: 2, Price: 20, Total: 40},
		},
	}

	if err := removeCartLine(&cart, product.ID, map[string]string{"color": "red"}); err != nil {
		t.Fatalf("removeCartLine returned error: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Color != "blue" {
		t.Fatalf("expected only the blue line to remain, got %+v", cart.Items)
	}
}

func TestRemoveCartLineNotFound(t *testing.T) {
	product := testProduct(5)
	cart := cartWithLine(product, map[string]string{"color": "red"})

	err := removeCartLine(&cart, product.ID, map[string]string{"color": "blue"})
	var lineErr lineNotFoundError
	if !errors.As(err, &lineErr) {
		t.Fatalf("expected lineNotFoundError, got %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatal("expected cart to be unmodified")
	}
}
