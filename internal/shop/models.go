package shop

import "time"

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartLineItem is a session's claim on a product. It never reserves stock;
// availability is re-checked against live stock at checkout commit.
type CartLineItem struct {
	ID        int64
	SessionID string
	ProductID int64
	Quantity  int
}

type DiscountCode struct {
	ID         int64
	Code       string // stored upper-case, matched case-insensitively
	Percent    float64
	Active     bool
	ExpiryDate *time.Time
}

type Order struct {
	ID              int64
	OrderNumber     string
	SessionID       string
	Subtotal        float64
	DiscountAmount  float64
	TotalAmount     float64
	Status          OrderStatus
	Email           string
	PaymentMethod   string
	ShippingAddress string
	CreatedAt       time.Time
}

// CartView is what GetCart returns: per-line subtotals plus the cart total.
type CartView struct {
	Items     []CartViewItem `json:"items"`
	Total     float64        `json:"total"`
	ItemCount int            `json:"item_count"`
}

type CartViewItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

// DiscountQuote is advisory only; nothing is persisted until checkout
// re-resolves the code.
type DiscountQuote struct {
	Code           string  `json:"discount_code"`
	Percent        float64 `json:"discount_percent"`
	OriginalTotal  float64 `json:"original_total"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalTotal     float64 `json:"final_total"`
}

// OrderReceipt is the public result of a checkout. Card number and CVV are
// never part of the order entity, so they cannot leak here.
type OrderReceipt struct {
	OrderNumber string      `json:"order_number"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"total_amount"`
}

// OrderView is the read model served by GetOrder.
type OrderView struct {
	OrderNumber    string      `json:"order_number"`
	Status         OrderStatus `json:"status"`
	TotalAmount    float64     `json:"total_amount"`
	DiscountAmount float64     `json:"discount_amount"`
	Email          string      `json:"email"`
	CreatedAt      time.Time   `json:"created_at"`
	PaymentMethod  string      `json:"payment_method"`
}

func (o *Order) View() OrderView {
	return OrderView{
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		TotalAmount:    o.TotalAmount,
		DiscountAmount: o.DiscountAmount,
		Email:          o.Email,
		CreatedAt:      o.CreatedAt,
		PaymentMethod:  o.PaymentMethod,
	}
}
