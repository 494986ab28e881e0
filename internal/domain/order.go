package domain

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
)

// Order represents a request to trade. Orders are created by the decision
// intake with status NEW and owned by the executor until terminal.
type Order struct {
	ID             int64       `json:"id"`
	Symbol         string      `json:"symbol"`
	Side           Side        `json:"side"`
	Type           OrderType   `json:"type"`
	Quantity       int64       `json:"quantity"`
	Status         OrderStatus `json:"status"`
	Reason         string      `json:"reason,omitempty"`
	FilledQuantity int64       `json:"filled_quantity"`
	FilledAvgPrice float64     `json:"filled_avg_price"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// FillResult is the outcome of executing a single order.
type FillResult struct {
	Success    bool    `json:"success"`
	OrderID    int64   `json:"order_id"`
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Quantity   int64   `json:"quantity"`
	Price      float64 `json:"price"`
	RealizedPL float64 `json:"realized_pl"`
	Message    string  `json:"message"`
}
