package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusPaid       OrderStatus = "Paid"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// Order is materialized from a session snapshot exactly once, when the
// payment resolves successfully. Its status lifecycle is the fulfilment
// lifecycle and is independent of the payment session's status.
type Order struct {
	ID        string // ULID
	BuyerID   string
	SessionID string // originating payment session
	Items     []OrderItem
	Total     int64
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ProductID string `json:"product_id"`
	VendorID  string `json:"vendor_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// NewOrderFromSnapshot builds the paid order for a resolved session.
func NewOrderFromSnapshot(id string, s *PaymentSession, now time.Time) *Order {
	items := make([]OrderItem, 0, len(s.Snapshot.Items))
	for _, it := range s.Snapshot.Items {
		items = append(items, OrderItem{
			ProductID: it.ProductID,
			VendorID:  it.VendorID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return &Order{
		ID:        id,
		BuyerID:   s.BuyerID,
		SessionID: s.ID,
		Items:     items,
		Total:     s.Amount,
		Status:    OrderStatusPaid,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
