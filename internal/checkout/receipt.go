package checkout

import (
	"time"

	"storefront/internal/domain"
)

const (
	deliveryMinDays = 3
	deliveryMaxDays = 5
)

// Receipt is what the shopper sees after a successful order.
type Receipt struct {
	OrderNumber           string            `json:"orderNumber"`
	CreatedAt             time.Time         `json:"createdAt"`
	PaymentStatus         string            `json:"paymentStatus"`
	TrackingNumber        string            `json:"trackingNumber"`
	EstimatedDeliveryFrom time.Time         `json:"estimatedDeliveryFrom"`
	EstimatedDeliveryTo   time.Time         `json:"estimatedDeliveryTo"`
	ShippingAddress       domain.Address    `json:"shippingAddress"`
	Lines                 []domain.CartLine `json:"lines"`
	Pricing               domain.Pricing    `json:"pricing"`
}

func newReceipt(conf domain.OrderConfirmation, draft domain.OrderDraft, now time.Time) Receipt {
	created := conf.CreatedAt
	if created.IsZero() {
		created = now
	}
	day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, created.Location())
	return Receipt{
		OrderNumber:           conf.OrderNumber,
		CreatedAt:             created,
		PaymentStatus:         conf.PaymentStatus,
		TrackingNumber:        conf.TrackingNumber,
		EstimatedDeliveryFrom: day.AddDate(0, 0, deliveryMinDays),
		EstimatedDeliveryTo:   day.AddDate(0, 0, deliveryMaxDays),
		ShippingAddress:       draft.ShippingAddress,
		Lines:                 draft.Lines,
		Pricing:               draft.Pricing,
	}
}
