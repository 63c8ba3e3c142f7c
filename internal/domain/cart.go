package domain

import "time"

type Cart struct {
	ID           string     `bson:"_id,omitempty" json:"-"`
	OwnerID      string     `bson:"owner_id" json:"owner_id"`
	Items        []LineItem `bson:"items" json:"items"`
	DiscountRate float64    `bson:"discount_rate" json:"discount_rate"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}

// LineItem is one purchasable e-book as placed in a cart. UnitPrice is
// in minor currency units (euro cents). ImageRef stays a pointer so a
// missing cover serializes as an explicit null.
type LineItem struct {
	ID          string    `bson:"item_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Category    string    `bson:"category" json:"category"`
	UnitPrice   int64     `bson:"unit_price" json:"unit_price"`
	ImageRef    *string   `bson:"image_ref" json:"image_ref"`
	AddedAt     time.Time `bson:"added_at" json:"added_at"`
}

// HasItem reports whether an item with the given id is already present.
func (c *Cart) HasItem(id string) bool {
	for _, it := range c.Items {
		if it.ID == id {
			return true
		}
	}
	return false
}
