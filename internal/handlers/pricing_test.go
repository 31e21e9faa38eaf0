package handlers

import "testing"

func TestValidateSaleFieldsMissingSalePrice(t *testing.T) {
	if err := validateSaleFields(100, true, 0, false); err == nil {
		t.Fatal("expected validation error when saleEnabled=true and salePrice is missing")
	}
}

func TestValidateSaleFieldsSalePriceGreaterOrEqualPrice(t *testing.T) {
	for _, salePrice := range []float64{100, 120} {
		if err := validateSaleFields(100, true, salePrice, true); err == nil {
			t.Fatalf("expected validation error for salePrice=%v", salePrice)
		}
	}
}

func TestValidateSaleFieldsDisabledSaleSkipsChecks(t *testing.T) {
	if err := validateSaleFields(100, false, 0, false); err != nil {
		t.Fatalf("expected no error when sale disabled, got %v", err)
	}
}

func TestEffectiveProductPrice(t *testing.T) {
	if got := effectiveProductPrice(100, true, 75); got != 75 {
		t.Fatalf("expected sale price 75, got %v", got)
	}
	if got := effectiveProductPrice(100, false, 75); got != 100 {
		t.Fatalf("expected regular price 100 when sale disabled, got %v", got)
	}
	if got := effectiveProductPrice(100, true, 120); got != 100 {
		t.Fatalf("expected regular price when sale price above list, got %v", got)
	}
}

func TestResolveSaleUpdateDisableClearsSalePrice(t *testing.T) {
	disabled := false
	result, err := resolveSaleUpdate(100, true, 80, saleUpdateInput{SaleEnabled: &disabled})
	if err != nil {
		t.Fatalf("resolveSaleUpdate returned error: %v", err)
	}
	if result.SalePrice != 0 || !result.SetSalePrice {
		t.Fatalf("expected sale price cleared, got %+v", result)
	}
}

func TestResolveSaleUpdateRejectsInvalidCombination(t *testing.T) {
	enabled := true
	salePrice := 150.0
	if _, err := resolveSaleUpdate(100, false, 0, saleUpdateInput{SaleEnabled: &enabled, SalePrice: &salePrice}); err == nil {
		t.Fatal("expected error for sale price above list price")
	}
}
