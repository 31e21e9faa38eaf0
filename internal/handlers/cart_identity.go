package handlers

import (
	"errors"
	"sort"
	"strings"
)

// normalizeVariants reduces a variant selection to its non-empty
// attributes. Values are trimmed, attribute names compared as given.
// Two selections with the same non-empty attributes normalize equal no
// matter how the caller ordered them.
func normalizeVariants(selection map[string]string) map[string]string {
	normalized := make(map[string]string, len(selection))
	for name, value := range selection {
		value = strings.TrimSpace(value)
		if strings.TrimSpace(name) == "" || value == "" {
			continue
		}
		normalized[name] = value
	}
	return normalized
}

// variantKey derives the canonical cart-line identity for a product and a
// normalized variant selection: the product id, "::", then the
// attribute=value pairs sorted by attribute name and joined with "|".
// A selection with no attributes keys as "<id>::", which can never collide
// with a variant-bearing key for the same product.
func variantKey(productID string, normalized map[string]string) (string, error) {
	if strings.TrimSpace(productID) == "" {
		return "", errors.New("productId is required")
	}

	names := make([]string, 0, len(normalized))
	for name := range normalized {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+normalized[name])
	}

	return productID + "::" + strings.Join(pairs, "|"), nil
}
