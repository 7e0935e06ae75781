package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidArgument marks a mutation rejected before it touched the cart.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPersistenceDecode marks a stored snapshot that could not be turned back into a cart.
	ErrPersistenceDecode = errors.New("cart snapshot could not be decoded")
	// ErrPersist marks a mutation that was rolled back because its snapshot could not be written.
	ErrPersist = errors.New("cart snapshot could not be saved")
)

// MaxQuantity caps a single line so counts and totals stay in range.
const MaxQuantity = 999

// Product is the descriptor a catalog hands to Add.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}

func (p Product) validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative, got %s", ErrInvalidArgument, p.Price)
	}
	return nil
}

// LineItem is one distinct product in the cart. Quantity is always between 1 and MaxQuantity.
type LineItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal returns price * quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// State is a read-only snapshot of the cart with its derived values.
type State struct {
	Items []LineItem      `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func newState(items []LineItem) State {
	st := State{Items: cloneItems(items), Total: decimal.Zero}
	for _, it := range items {
		st.Count += it.Quantity
		st.Total = st.Total.Add(it.Subtotal())
	}
	return st
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the line item for id, if present.
func (s State) Find(id string) (LineItem, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return LineItem{}, false
}

// FormatAmount renders a currency amount with two decimal places, rounding
// half away from zero. Totals stay exact until they are formatted.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

func indexOf(items []LineItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
