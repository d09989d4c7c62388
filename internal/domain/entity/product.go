package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog's view of a listing, as much as negotiation needs.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Title       string          `json:"title"`
	IsTradeable bool            `json:"is_tradeable"`
	Price       decimal.Decimal `json:"price"`
}
