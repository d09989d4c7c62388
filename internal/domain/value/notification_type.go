package value

import "fmt"

type NotificationType string

const (
	NotificationFavorite     NotificationType = "favorite"
	NotificationOffer        NotificationType = "offer"
	NotificationCounterOffer NotificationType = "counter_offer"
	NotificationOfferStatus  NotificationType = "offer_status"
	NotificationTrade        NotificationType = "trade"
	NotificationGeneric      NotificationType = "generic"
)

func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case NotificationFavorite, NotificationOffer, NotificationCounterOffer,
		NotificationOfferStatus, NotificationTrade, NotificationGeneric:
		return t, nil
	default:
		return "", fmt.Errorf("unknown notification type %q", s)
	}
}

func (t NotificationType) String() string {
	return string(t)
}
