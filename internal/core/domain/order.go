package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "Pending"
	OrderStatusPreparing      OrderStatus = "Preparing"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
)

// OrderStatuses lists the statuses in fulfilment order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// ShippingAddress is the address snapshot stored on an order.
type ShippingAddress struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

func ShippingAddressFrom(a Address) ShippingAddress {
	return ShippingAddress{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip}
}

// OrderCustomer is the order's owner. The admin listing embeds name and
// email; other endpoints only send the user id.
type OrderCustomer struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c *OrderCustomer) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*c = OrderCustomer{ID: id}
		return nil
	}
	type plain OrderCustomer
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = OrderCustomer(p)
	return nil
}

type Order struct {
	ID            string          `json:"_id"`
	Customer      OrderCustomer   `json:"user"`
	Items         []OrderItem     `json:"items"`
	Address       ShippingAddress `json:"address"`
	DeliveryNotes string          `json:"deliveryNotes,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}
