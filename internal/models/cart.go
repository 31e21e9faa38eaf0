package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is one line of a cart. Key is the canonical identity of the
// (product, variant selection) pair. Color and Size are the legacy identity
// fields from before canonical keys existed; lines persisted under the old
// scheme carry only those and are healed on first touch.
type CartItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Key       string             `bson:"key,omitempty" json:"key,omitempty"`
	Variants  map[string]string  `bson:"variants,omitempty" json:"variants,omitempty"`
	Color     string             `bson:"color,omitempty" json:"color,omitempty"`
	Size      string             `bson:"size,omitempty" json:"size,omitempty"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
	Total     float64            `bson:"total" json:"total"`
}

// Cart holds the line items for a single user. Version is bumped on every
// save through a conditional update so racing requests cannot overwrite
// each other's lines.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Items     []CartItem         `bson:"items" json:"items"`
	Version   int64              `bson:"version" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TotalPrice sums the line totals.
func (c *Cart) TotalPrice() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Total
	}
	return total
}

// ItemCount sums the quantities across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
