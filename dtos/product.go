package dtos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"syntrad-backend/cart"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry as served by the products API.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Stock       int             `json:"stock"`
}

// UnmarshalJSON accepts the id under either "id" or "_id", as a string or a number.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	aux := struct {
		*plain
		ID      json.RawMessage `json:"id"`
		MongoID json.RawMessage `json:"_id"`
	}{plain: (*plain)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := aux.ID
	if len(raw) == 0 || string(raw) == "null" {
		raw = aux.MongoID
	}
	id, err := parseID(raw)
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	p.ID = id
	return nil
}

func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// ToCartProduct keeps the fields the cart stores for a line item.
func (p Product) ToCartProduct() cart.Product {
	return cart.Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Image:       p.Image,
		Description: p.Description,
	}
}

// Matches applies the shop page filter: a case-insensitive search over name
// and description plus exact category and subcategory matches. Empty
// arguments match everything.
func (p Product) Matches(search, category, subcategory string) bool {
	if search != "" {
		q := strings.ToLower(search)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if category != "" && p.Category != category {
		return false
	}
	if subcategory != "" && p.Subcategory != subcategory {
		return false
	}
	return true
}

type ProductList struct {
	Products []Product `json:"products"`
}

// CreateProductRequest is the admin dashboard's new-product form. The
// validator cannot compare decimals, so Validate checks the price.
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,max=200"`
	Description string          `json:"description" binding:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image" binding:"omitempty,url"`
	Category    string          `json:"category" binding:"required"`
	Subcategory string          `json:"subcategory"`
	Stock       int             `json:"stock" binding:"gte=0"`
}

func (r CreateProductRequest) Validate() error {
	if r.Price.IsNegative() {
		return errors.New("price must be 0 or more")
	}
	return nil
}

// MarshalJSON sends the price as a JSON number, the form the products API stores.
func (r CreateProductRequest) MarshalJSON() ([]byte, error) {
	type plain CreateProductRequest
	return json.Marshal(struct {
		plain
		Price json.Number `json:"price"`
	}{plain: plain(r), Price: json.Number(r.Price.String())})
}
