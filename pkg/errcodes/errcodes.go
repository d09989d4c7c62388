package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	StorageUnavailable  failure.ErrorCode = "StorageUnavailable"
	Forbidden           failure.ErrorCode = "Forbidden"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"
	Conflict            failure.ErrorCode = "Conflict"
	AccessTokenExpired  failure.ErrorCode = "AccessTokenExpired"
	AccessTokenInvalid  failure.ErrorCode = "AccessTokenInvalid"
	Unauthorized        failure.ErrorCode = "Unauthorized"
	InvalidUserID       failure.ErrorCode = "InvalidUserID"
	InvalidTradeID      failure.ErrorCode = "InvalidTradeID"
	InvalidOfferID      failure.ErrorCode = "InvalidOfferID"
	InvalidProductID    failure.ErrorCode = "InvalidProductID"
	InvalidNotification failure.ErrorCode = "InvalidNotificationID"

	// Trades
	TradeNotFound       failure.ErrorCode = "TradeNotFound"
	TradeWithYourself   failure.ErrorCode = "TradeWithYourself"
	NotTradeParty       failure.ErrorCode = "NotTradeParty"
	ProductNotFound     failure.ErrorCode = "ProductNotFound"
	ProductNotInTrade   failure.ErrorCode = "ProductNotInTrade"
	ProductNotOwned     failure.ErrorCode = "ProductNotOwned"
	CatalogUnavailable  failure.ErrorCode = "CatalogUnavailable"
	MissingTradeFields  failure.ErrorCode = "MissingTradeFields"
	IdempotencyMismatch failure.ErrorCode = "IdempotencyKeyReused"

	// Offers
	OfferNotFound          failure.ErrorCode = "OfferNotFound"
	InvalidOfferDetails    failure.ErrorCode = "InvalidOfferDetails"
	InvalidOfferStatus     failure.ErrorCode = "InvalidOfferStatus"
	CannotCounterOwnOffer  failure.ErrorCode = "CannotCounterOwnOffer"
	OfferNotInTrade        failure.ErrorCode = "OfferNotInTrade"
	OfferTransitionDenied  failure.ErrorCode = "OfferTransitionDenied"
	IllegalOfferTransition failure.ErrorCode = "IllegalOfferTransition"
	OfferVersionConflict   failure.ErrorCode = "OfferVersionConflict"

	// Notifications
	NotificationNotFound failure.ErrorCode = "NotificationNotFound"
)
