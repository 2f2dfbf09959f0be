package cart

import "time"

// Item is a single purchasable line in a cart. UnitPrice is in øre; the
// customization map carries the made-to-order attributes (fabric choices,
// vest, face style) chosen by the customer.
type Item struct {
	ID            string            `bson:"id" json:"id"`
	Name          string            `bson:"name" json:"name"`
	UnitPrice     int64             `bson:"unit_price" json:"unit_price"`
	Quantity      int               `bson:"quantity" json:"quantity"`
	Customization map[string]string `bson:"customization,omitempty" json:"customization,omitempty"`
	AddedAt       time.Time         `bson:"added_at" json:"added_at"`
}

type Cart struct {
	ID        string    `bson:"_id,omitempty" json:"-"`
	SessionID string    `bson:"session_id" json:"session_id"`
	Items     []Item    `bson:"items" json:"items"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Add appends the item with quantity 1, or increments the quantity when an
// item with the same id is already present. Re-adding never changes the
// stored price or customization, only the count.
func (c *Cart) Add(item Item) {
	for i := range c.Items {
		if c.Items[i].ID == item.ID {
			c.Items[i].Quantity++
			return
		}
	}
	item.Quantity = 1
	c.Items = append(c.Items, item)
}

// Remove deletes the row with the given id. Removing an absent id is a no-op.
func (c *Cart) Remove(id string) bool {
	for i, item := range c.Items {
		if item.ID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// SetQuantity replaces the quantity for the given id. A quantity of zero or
// below removes the row instead of storing a non-positive count.
func (c *Cart) SetQuantity(id string, quantity int) bool {
	if quantity <= 0 {
		return c.Remove(id)
	}
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items[i].Quantity = quantity
			return true
		}
	}
	return false
}

func (c *Cart) Clear() {
	c.Items = nil
}

// Total is the sum of unit price times quantity over all rows, in øre.
func (c *Cart) Total() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}
