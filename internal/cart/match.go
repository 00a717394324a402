package cart

import (
	"maps"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// sameLine reports whether an existing row is the line an incoming item
// belongs to: equal seller offer (absent only matches absent) and
// key-for-key equal variants.
func sameLine(row models.CartItem, sellerProductID *uuid.UUID, variants map[string]string) bool {
	if !sameSellerProduct(row.SellerProductID, sellerProductID) {
		return false
	}
	return maps.Equal(row.Variants, variants)
}

func sameSellerProduct(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func matchingLines(rows []models.CartItem, sellerProductID *uuid.UUID, variants map[string]string) []models.CartItem {
	var out []models.CartItem
	for _, row := range rows {
		if sameLine(row, sellerProductID, variants) {
			out = append(out, row)
		}
	}
	return out
}
