package value

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxOfferMessageLen    = 2000
	MaxOfferedProducts    = 20
	maxMoneyDecimalPlaces = 2
)

// Money is a non-float amount that travels as a bare JSON number.
type Money struct {
	decimal.Decimal
}

func NewMoney(amount int64) Money {
	return Money{decimal.NewFromInt(amount)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// OfferDetails is the negotiable payload of an offer.
type OfferDetails struct {
	OfferedProducts []uuid.UUID `json:"offeredProducts"`
	OfferMoney      Money       `json:"offerMoney"`
	RequestMoney    Money       `json:"requestMoney"`
	OfferMessage    string      `json:"offerMessage"`
}

var ErrEmptyProposal = errors.New("offer proposes nothing")

func (d OfferDetails) Validate() error {
	if d.OfferMoney.IsNegative() {
		return errors.New("offerMoney must not be negative")
	}
	if d.RequestMoney.IsNegative() {
		return errors.New("requestMoney must not be negative")
	}
	if !d.OfferMoney.Equal(d.OfferMoney.Round(maxMoneyDecimalPlaces)) ||
		!d.RequestMoney.Equal(d.RequestMoney.Round(maxMoneyDecimalPlaces)) {
		return fmt.Errorf("money amounts allow at most %d decimal places", maxMoneyDecimalPlaces)
	}
	if len(d.OfferedProducts) > MaxOfferedProducts {
		return fmt.Errorf("at most %d offered products", MaxOfferedProducts)
	}

	seen := make(map[uuid.UUID]struct{}, len(d.OfferedProducts))
	for _, id := range d.OfferedProducts {
		if id == uuid.Nil {
			return errors.New("offered product id is empty")
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("offered product %s listed twice", id)
		}
		seen[id] = struct{}{}
	}

	if utf8.RuneCountInString(d.OfferMessage) > MaxOfferMessageLen {
		return fmt.Errorf("offerMessage longer than %d characters", MaxOfferMessageLen)
	}

	if len(d.OfferedProducts) == 0 && d.OfferMoney.IsZero() && d.RequestMoney.IsZero() && d.OfferMessage == "" {
		return ErrEmptyProposal
	}

	return nil
}
