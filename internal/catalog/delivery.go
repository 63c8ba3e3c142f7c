package catalog

// DeliveryEntry describes an item with automated e-book delivery
// configured: its id on the delivery service side plus the static
// asset used by the direct-download fallback when that service is
// unreachable.
type DeliveryEntry struct {
	EbookID      string
	AssetPath    string
	DownloadName string
}

// deliveryTable maps catalog item ids to delivery configuration.
// Items missing here are out of scope for automated delivery and are
// skipped at fulfillment time.
var deliveryTable = map[string]DeliveryEntry{
	"aprende-ia": {
		EbookID:      "aprende-ia",
		AssetPath:    "./ebooks-downloads/aprende-ia-ebook.pdf",
		DownloadName: "Aprende a utilizar la IA - E-book.pdf",
	},
}

// DeliveryConfig returns the automated-delivery entry for an item id,
// if one is configured.
func DeliveryConfig(itemID string) (DeliveryEntry, bool) {
	e, ok := deliveryTable[itemID]
	return e, ok
}
