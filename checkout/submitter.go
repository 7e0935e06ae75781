// Package checkout turns a session cart into an order on the external API.
// Ordered lines leave the cart only once the API has confirmed the order, so a
// failed submission can always be retried with every item still in place.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"syntrad-backend/cart"
	"syntrad-backend/dtos"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderRejected = errors.New("order was not accepted")
)

type OrderClient interface {
	CreateOrder(ctx context.Context, order dtos.CheckoutOrder, idempotencyKey string) (*dtos.CheckoutResponse, error)
	MarkOrderPaid(ctx context.Context, orderID string) error
}

// Notifier sends the customer's order confirmation. Implementations must not block.
type Notifier interface {
	SendOrderConfirmation(to, name, orderID, total string)
}

// Cart is the part of cart.Store the submitter needs.
type Cart interface {
	Snapshot() cart.State
	Settle(ctx context.Context, ordered []cart.LineItem) (cart.State, error)
}

type Details struct {
	Shipping         dtos.ShippingAddress
	UserEmail        string
	PaymentReference string
}

type Receipt struct {
	OrderID         string          `json:"order_id"`
	Total           decimal.Decimal `json:"-"`
	Items           []cart.LineItem `json:"items"`
	PaymentRecorded bool            `json:"payment_recorded"`
	CartCleared     bool            `json:"cart_cleared"`
}

type Submitter struct {
	orders   OrderClient
	notifier Notifier
	log      logrus.FieldLogger
	newKey   func() string
}

// NewSubmitter builds a Submitter. notifier may be nil.
func NewSubmitter(orders OrderClient, notifier Notifier, log logrus.FieldLogger) *Submitter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Submitter{
		orders:   orders,
		notifier: notifier,
		log:      log,
		newKey:   uuid.NewString,
	}
}

// Submit places an order for everything in c. Any failure before the API
// confirms the order leaves c untouched.
func (s *Submitter) Submit(ctx context.Context, c Cart, d Details) (Receipt, error) {
	state := c.Snapshot()
	if state.IsEmpty() {
		return Receipt{}, ErrEmptyCart
	}

	order := BuildOrder(state, d)
	key := s.newKey()
	log := s.log.WithFields(logrus.Fields{
		"idempotency_key": key,
		"items":           len(state.Items),
		"total":           order.TotalAmount.String(),
	})

	resp, err := s.orders.CreateOrder(ctx, order, key)
	if err != nil {
		log.WithError(err).Warn("order creation failed")
		return Receipt{}, fmt.Errorf("create order: %w", err)
	}
	if !resp.Confirmed() {
		log.WithField("message", resp.Message).Warn("order not confirmed")
		if resp.Message != "" {
			return Receipt{}, fmt.Errorf("%w: %s", ErrOrderRejected, resp.Message)
		}
		return Receipt{}, ErrOrderRejected
	}

	receipt := Receipt{
		OrderID: resp.Order.ID,
		Total:   OrderTotal(state),
		Items:   state.Items,
	}
	log = log.WithField("order_id", receipt.OrderID)

	// The order exists now. Nothing below may turn this into a failure.
	// Anything added to the cart while the order was in flight stays.
	if _, err := c.Settle(ctx, state.Items); err != nil {
		log.WithError(err).Error("order placed but cart could not be cleared")
	} else {
		receipt.CartCleared = true
	}

	if d.PaymentReference != "" {
		if err := s.orders.MarkOrderPaid(ctx, receipt.OrderID); err != nil {
			log.WithError(err).Warn("order placed but payment could not be recorded")
		} else {
			receipt.PaymentRecorded = true
		}
	}

	if s.notifier != nil && d.Shipping.Email != "" {
		s.notifier.SendOrderConfirmation(d.Shipping.Email, d.Shipping.FirstName, receipt.OrderID, cart.FormatAmount(receipt.Total))
	}

	log.Info("order placed")
	return receipt, nil
}

// BuildOrder renders a cart state as the API's order payload. Unit prices
// are rounded to pennies here and nowhere earlier, and the total is summed
// from those rounded prices so the payload always adds up.
func BuildOrder(state cart.State, d Details) dtos.CheckoutOrder {
	items := make([]dtos.OrderItem, 0, len(state.Items))
	for _, it := range state.Items {
		items = append(items, dtos.OrderItem{
			ProductID: it.ID,
			Quantity:  it.Quantity,
			Price:     json.Number(cart.FormatAmount(it.Price)),
		})
	}
	email := d.UserEmail
	if email == "" {
		email = d.Shipping.Email
	}
	return dtos.CheckoutOrder{
		Items:           items,
		ShippingAddress: d.Shipping,
		TotalAmount:     json.Number(cart.FormatAmount(OrderTotal(state))),
		UserEmail:       email,
	}
}

// OrderTotal is what the customer is charged: each unit price rounded to
// pennies, times its quantity.
func OrderTotal(state cart.State) decimal.Decimal {
	total := decimal.Zero
	for _, it := range state.Items {
		total = total.Add(it.Price.Round(2).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
