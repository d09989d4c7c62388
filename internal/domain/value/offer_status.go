package value

import (
	"fmt"
	"strings"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusDeclined OfferStatus = "declined"
	// OfferStatusSuperseded marks an offer replaced by a counter-offer. The
	// stored value keeps the historical "offer_updated" spelling.
	OfferStatusSuperseded OfferStatus = "offer_updated"
)

// Party is the role a user plays on a single offer.
type Party uint8

const (
	PartyNone Party = iota
	PartySender
	PartyReceiver
)

func (p Party) String() string {
	switch p {
	case PartySender:
		return "sender"
	case PartyReceiver:
		return "receiver"
	default:
		return "none"
	}
}

type transition struct {
	from OfferStatus
	to   OfferStatus
}

//nolint:gochecknoglobals
var offerTransitions = map[transition][]Party{
	{OfferStatusPending, OfferStatusAccepted}:   {PartySender, PartyReceiver},
	{OfferStatusPending, OfferStatusDeclined}:   {PartySender, PartyReceiver},
	{OfferStatusPending, OfferStatusSuperseded}: {PartySender, PartyReceiver},
}

func ParseOfferStatus(s string) (OfferStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(OfferStatusPending):
		return OfferStatusPending, nil
	case string(OfferStatusAccepted):
		return OfferStatusAccepted, nil
	case string(OfferStatusDeclined):
		return OfferStatusDeclined, nil
	case string(OfferStatusSuperseded), "superseded":
		return OfferStatusSuperseded, nil
	default:
		return "", fmt.Errorf("unknown offer status %q", s)
	}
}

func (s OfferStatus) String() string {
	return string(s)
}

func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusAccepted || s == OfferStatusDeclined || s == OfferStatusSuperseded
}

// CanTransition reports whether from -> to is a legal edge at all.
func (s OfferStatus) CanTransition(to OfferStatus) bool {
	_, ok := offerTransitions[transition{s, to}]
	return ok
}

// AllowedFor reports whether a party may drive the from -> to edge.
// It returns false for illegal edges as well.
func (s OfferStatus) AllowedFor(to OfferStatus, party Party) bool {
	for _, p := range offerTransitions[transition{s, to}] {
		if p == party {
			return true
		}
	}
	return false
}
