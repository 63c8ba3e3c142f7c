package cart

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Eidanhurtado/Bibliowave/internal/domain"
)

// normalizeItems decodes persisted cart items and upgrades records
// written by older versions of the storefront: items saved before
// cover images existed get an explicit null image_ref, and the
// deprecated pages field is stripped. The returned flag tells the
// caller whether anything changed and the cart needs re-persisting.
func normalizeItems(raws []bson.Raw) ([]domain.LineItem, bool, error) {
	items := make([]domain.LineItem, 0, len(raws))
	changed := false

	for _, raw := range raws {
		var item domain.LineItem
		if err := bson.Unmarshal(raw, &item); err != nil {
			return nil, false, fmt.Errorf("failed to decode cart item: %w", err)
		}

		if _, err := raw.LookupErr("image_ref"); err != nil {
			// Legacy record without the field; backfill as null.
			item.ImageRef = nil
			changed = true
		}
		if _, err := raw.LookupErr("pages"); err == nil {
			// Deprecated field still present; dropping it on decode
			// counts as a change so the clean shape gets written back.
			changed = true
		}

		items = append(items, item)
	}

	return items, changed, nil
}
