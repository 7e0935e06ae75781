package dtos

import (
	"bytes"
	"encoding/json"
)

type ShippingAddress struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required,max=30"`
	Address   string `json:"address" binding:"required,max=300"`
	City      string `json:"city" binding:"required,max=100"`
	PostCode  string `json:"postCode" binding:"required,max=20"`
	Country   string `json:"country" binding:"required,max=100"`
}

// OrderItem is one line of the order payload. Price is the unit price.
type OrderItem struct {
	ProductID string      `json:"product"`
	Quantity  int         `json:"quantity"`
	Price     json.Number `json:"price"`
}

// CheckoutOrder is the body of POST /api/orders/checkout.
type CheckoutOrder struct {
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	TotalAmount     json.Number     `json:"totalAmount"`
	UserEmail       string          `json:"userEmail"`
}

type CheckoutResponse struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Order   struct {
		ID string `json:"_id"`
	} `json:"order"`
}

// Confirmed reports whether the API accepted the order: an order id is
// present and the success flag, when sent, is true.
func (r CheckoutResponse) Confirmed() bool {
	if r.Success != nil && !*r.Success {
		return false
	}
	return r.Order.ID != ""
}

// OrderUpdate is the admin dashboard's order edit. At least one field must be set.
type OrderUpdate struct {
	Status        string `json:"status,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
}

// Record keeps an upstream JSON object intact while exposing the id and
// status the dashboard needs.
type Record struct {
	ID     string
	Status string
	Raw    json.RawMessage
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var head struct {
		ID     json.RawMessage `json:"_id"`
		Status string          `json:"status"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	id, err := parseID(head.ID)
	if err != nil {
		return err
	}
	r.ID = id
	r.Status = head.Status
	r.Raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw, nil
}

type OrderList struct {
	Orders []Record `json:"orders"`
}
