package entity

import "time"

// Deal is an accepted offer together with the trade it closes.
type Deal struct {
	Trade      Trade
	Offer      Offer
	AcceptedAt time.Time
}
