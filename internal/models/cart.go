package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart lives in redis only; it is never persisted as an order artifact.
type Cart struct {
	ID    string     `json:"id"`
	Lines []CartLine `json:"lines"`
}

type CartLine struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int32     `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// LineForProduct returns the index of the line holding productID or -1.
func (c *Cart) LineForProduct(productID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) Line(lineID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}
