// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTradeRequest Запрос на создание сделки
type CreateTradeRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
	ProductID  string `json:"product_id" validate:"required,uuid"`
}

// Trade Сделка
type Trade struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	ProductID  string    `json:"product_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExistingTrade Результат поиска сделки, Trade равен null, если сделки нет
type ExistingTrade struct {
	Trade *Trade `json:"trade"`
}

// Money Денежная сумма, передаётся JSON-числом
type Money struct {
	decimal.Decimal
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// OfferDetails Условия предложения
type OfferDetails struct {
	OfferedProducts []string `json:"offeredProducts" validate:"omitempty,dive,uuid"`
	OfferMoney      Money    `json:"offerMoney"`
	RequestMoney    Money    `json:"requestMoney"`
	OfferMessage    string   `json:"offerMessage"`
}

// CreateOfferRequest Запрос на создание предложения или встречного предложения
type CreateOfferRequest struct {
	Details OfferDetails `json:"offer_details"`
	// ProductID Товар, к которому относится уведомление, по умолчанию товар сделки
	ProductID string `json:"product_id" validate:"omitempty,uuid"`
}

// UpdateOfferStatusRequest Запрос на смену статуса предложения
type UpdateOfferStatusRequest struct {
	Status string `json:"status" validate:"required"`
	// Version Ожидаемая версия предложения, необязательна
	Version *int64 `json:"version" validate:"omitempty,min=1"`
}

// Offer Предложение
type Offer struct {
	ID            string       `json:"id"`
	TradeID       string       `json:"trade_id"`
	SenderID      string       `json:"sender_id"`
	ReceiverID    string       `json:"receiver_id"`
	Details       OfferDetails `json:"offer_details"`
	Status        string       `json:"status"`
	Version       int64        `json:"version"`
	ParentOfferID *string      `json:"parent_offer_id"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// OfferNode Предложение с ответами на него
type OfferNode struct {
	Offer    Offer       `json:"offer"`
	Counters []OfferNode `json:"counters"`
}

// Notification Уведомление
type Notification struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	ProductID  *string   `json:"product_id"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`

	// SupportID Идентификатор запроса для поддержки
	SupportID string `json:"supportId"`
}

// ErrorCode Код ошибки
type ErrorCode string
