package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Address struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
}

// Pricing is the totals breakdown for a set of lines.
type Pricing struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// PaymentProof is the attachment a shopper uploads as evidence of payment.
type PaymentProof struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// OrderDraft is the not-yet-persisted order assembled at checkout.
type OrderDraft struct {
	ShippingAddress      Address       `json:"shippingAddress"`
	PaymentMethod        string        `json:"paymentMethod"`
	TransactionReference string        `json:"transactionReference"`
	Notes                string        `json:"notes,omitempty"`
	Lines                []CartLine    `json:"lines"`
	Pricing              Pricing       `json:"pricing"`
	PaymentProof         *PaymentProof `json:"paymentProof,omitempty"`
}

// Order is a persisted order.
type Order struct {
	ID                   string     `json:"id"`
	OrderNumber          string     `json:"orderNumber"`
	SessionID            string     `json:"-"`
	ShippingAddress      Address    `json:"shippingAddress"`
	PaymentMethod        string     `json:"paymentMethod"`
	TransactionReference string     `json:"transactionReference"`
	Notes                string     `json:"notes,omitempty"`
	PaymentStatus        string     `json:"paymentStatus"`
	PaymentProofLocation string     `json:"paymentProofLocation,omitempty"`
	TrackingNumber       string     `json:"trackingNumber"`
	Lines                []CartLine `json:"lines"`
	Pricing              Pricing    `json:"pricing"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// OrderConfirmation is what the order service returns on success.
type OrderConfirmation struct {
	OrderNumber    string    `json:"orderNumber"`
	CreatedAt      time.Time `json:"createdAt"`
	PaymentStatus  string    `json:"paymentStatus"`
	TrackingNumber string    `json:"trackingNumber"`
}
