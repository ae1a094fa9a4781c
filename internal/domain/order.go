package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ContactForm is the customer block of the checkout form. All fields are required.
type ContactForm struct {
	Name    string `json:"customerName" validate:"required"`
	Email   string `json:"customerEmail" validate:"required,email"`
	Phone   string `json:"customerPhone" validate:"required"`
	Address string `json:"customerAddress" validate:"required"`
}

// OrderProduct is one line of an order payload.
type OrderProduct struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderSubmission is the body POSTed to the order endpoint. It is built once and sent once.
type OrderSubmission struct {
	CustomerName    string         `json:"customerName"`
	CustomerEmail   string         `json:"customerEmail"`
	CustomerPhone   string         `json:"customerPhone"`
	CustomerAddress string         `json:"customerAddress"`
	TotalPrice      float64        `json:"totalPrice"`
	Products        []OrderProduct `json:"products"`
}

func NewOrderSubmission(form ContactForm, items []CartLineItem) OrderSubmission {
	products := make([]OrderProduct, 0, len(items))
	for _, item := range items {
		products = append(products, OrderProduct{ProductID: item.ID, Quantity: item.Quantity})
	}
	return OrderSubmission{
		CustomerName:    form.Name,
		CustomerEmail:   form.Email,
		CustomerPhone:   form.Phone,
		CustomerAddress: form.Address,
		TotalPrice:      TotalPrice(items),
		Products:        products,
	}
}

// Subtotal is unitPrice * quantity for one line.
func (li CartLineItem) Subtotal() float64 {
	return lineSubtotal(li).InexactFloat64()
}

// TotalPrice sums unitPrice * quantity over all lines. Arithmetic is decimal so that totals such as
// 3 x 19.99 come out exact.
func TotalPrice(items []CartLineItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(lineSubtotal(item))
	}
	return total.InexactFloat64()
}

func lineSubtotal(li CartLineItem) decimal.Decimal {
	return decimal.NewFromFloat(li.UnitPrice).Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// OrderConfirmation is what a successful submission hands back to the caller.
type OrderConfirmation struct {
	OrderID    string  `json:"order_id,omitempty"`
	TotalPrice float64 `json:"total_price"`
	Redirect   string  `json:"redirect"`
}

// ConfirmationPath is the view shown after an order is placed.
const ConfirmationPath = "/thankyou"

// OrderLine is a product reference inside an admin order listing. The server may send the
// product id as a plain string or expand it into the product document.
type OrderLine struct {
	ProductID string   `json:"productId"`
	Product   *Product `json:"product,omitempty"`
	Quantity  int      `json:"quantity"`
}

func (l *OrderLine) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductID json.RawMessage `json:"productId"`
		Quantity  int             `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Quantity = raw.Quantity
	l.Product = nil
	l.ProductID = ""

	ref := bytes.TrimSpace(raw.ProductID)
	switch {
	case len(ref) == 0 || bytes.Equal(ref, []byte("null")):
		return nil
	case ref[0] == '"':
		return json.Unmarshal(ref, &l.ProductID)
	case ref[0] == '{':
		var p Product
		if err := json.Unmarshal(ref, &p); err != nil {
			return fmt.Errorf("decode expanded product: %w", err)
		}
		l.Product = &p
		l.ProductID = p.ID
		return nil
	default:
		return fmt.Errorf("unexpected productId %s", ref)
	}
}

// Order is the admin view of a placed order.
type Order struct {
	ID              string      `json:"_id"`
	CustomerName    string      `json:"customerName"`
	CustomerEmail   string      `json:"customerEmail"`
	CustomerPhone   string      `json:"customerPhone"`
	CustomerAddress string      `json:"customerAddress"`
	Products        []OrderLine `json:"products"`
	TotalPrice      float64     `json:"totalPrice"`
	CreatedAt       time.Time   `json:"createdAt"`
}
