package model

import "time"

type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
)

type OrderStatus string

const (
	OrderStatusPending             OrderStatus = "PENDING"
	OrderStatusWaitingBuyerInvoice OrderStatus = "WAITING_BUYER_INVOICE"
	OrderStatusWaitingPayment      OrderStatus = "WAITING_PAYMENT"
	OrderStatusActive              OrderStatus = "ACTIVE"
	OrderStatusPaidHoldInvoice     OrderStatus = "PAID_HOLD_INVOICE"
	OrderStatusSuccess             OrderStatus = "SUCCESS"
	OrderStatusExpired             OrderStatus = "EXPIRED"
	OrderStatusCanceled            OrderStatus = "CANCELED"
)

// Order is the trade record the wizards read and update. Amounts are in
// satoshis, fiat amounts in whole units of FiatCode.
type Order struct {
	ID          string      `json:"id"`
	CreatorID   string      `json:"creator_id"`
	SellerID    string      `json:"seller_id"`
	BuyerID     string      `json:"buyer_id"`
	CommunityID string      `json:"community_id,omitempty"`
	Type        OrderType   `json:"type"`
	Status      OrderStatus `json:"status"`
	Amount      int64       `json:"amount"`
	FiatCode    string      `json:"fiat_code"`
	FiatAmount  int64       `json:"fiat_amount"`
	MinAmount   int64       `json:"min_amount"`
	MaxAmount   int64       `json:"max_amount"`
	Description string      `json:"description"`

	BuyerInvoice string `json:"buyer_invoice,omitempty"`
	Hash         string `json:"hash,omitempty"`
	Secret       string `json:"secret,omitempty"`
	// PendingHoldInvoiceUpdate is set once the buyer replaced the invoice of a
	// failed payout; a second replacement is refused.
	PendingHoldInvoiceUpdate bool `json:"pending_hold_invoice_update"`

	TakenAt       *time.Time `json:"taken_at,omitempty"`
	InvoiceHeldAt *time.Time `json:"invoice_held_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsRange reports whether the fiat amount is chosen by the taker.
func (o *Order) IsRange() bool { return o.MaxAmount > 0 }

func (o *Order) InRange(fiat int64) bool {
	return fiat >= o.MinAmount && fiat <= o.MaxAmount
}

func (o *Order) AcceptsBuyerInvoice() bool {
	return o.Status == OrderStatusWaitingBuyerInvoice
}

func (o *Order) Touch() { o.UpdatedAt = time.Now() }
