package handlers

import "testing"

func TestVariantKeyOrderIndependent(t *testing.T) {
	first, err := variantKey("p1", normalizeVariants(map[string]string{"color": "red", "size": "M"}))
	if err != nil {
		t.Fatalf("variantKey returned error: %v", err)
	}
	second, err := variantKey("p1", normalizeVariants(map[string]string{"size": "M", "color": "red"}))
	if err != nil {
		t.Fatalf("variantKey returned error: %v", err)
	}
	if first != second {
		t.Fatalf("expected equal keys, got %q and %q", first, second)
	}
}

func TestVariantKeyDistinctSelections(t *testing.T) {
	base, _ := variantKey("p1", normalizeVariants(map[string]string{"color": "red"}))
	tests := []map[string]string{
		{"color": "blue"},
		{"color": "red", "size": "M"},
		{"size": "red"},
		{},
	}
	for _, selection := range tests {
		key, err := variantKey("p1", normalizeVariants(selection))
		if err != nil {
			t.Fatalf("variantKey(%v) returned error: %v", selection, err)
		}
		if key == base {
			t.Fatalf("expected key for %v to differ from %q", selection, base)
		}
	}
}

func TestVariantKeyDropsEmptyAttributes(t *testing.T) {
	withEmpty, _ := variantKey("p1", normalizeVariants(map[string]string{"color": "red", "size": "", "material": "  "}))
	without, _ := variantKey("p1", normalizeVariants(map[string]string{"color": "red"}))
	if withEmpty != without {
		t.Fatalf("expected empty attributes to be dropped, got %q vs %q", withEmpty, without)
	}
}

func TestVariantKeyNoVariants(t *testing.T) {
	key, err := variantKey("p1", normalizeVariants(nil))
	if err != nil {
		t.Fatalf("variantKey returned error: %v", err)
	}
	if key != "p1::" {
		t.Fatalf("expected bare product key, got %q", key)
	}

	variantKeyed, _ := variantKey("p1", normalizeVariants(map[string]string{"color": "red"}))
	if key == variantKeyed {
		t.Fatal("expected no-variant key to differ from variant-bearing key")
	}
}

func TestVariantKeyEmptyProductID(t *testing.T) {
	if _, err := variantKey("", nil); err == nil {
		t.Fatal("expected error for empty productId")
	}
	if _, err := variantKey("   ", nil); err == nil {
		t.Fatal("expected error for blank productId")
	}
}

func TestNormalizeVariantsTrimsValues(t *testing.T) {
	normalized := normalizeVariants(map[string]string{"color": " red ", "size": "M"})
	if normalized["color"] != "red" {
		t.Fatalf("expected trimmed value, got %q", normalized["color"])
	}
	if len(normalized) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(normalized))
	}
}
