package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// CartEntry is one product/quantity pair of the persisted cart mapping.
type CartEntry struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the productId -> quantity mapping. Entries keep insertion order so that hydration
// can return line items in the order the shopper added them. At most one entry per product.
type Cart struct {
	entries []CartEntry
	dropped []string
}

func NewCart(entries ...CartEntry) Cart {
	var c Cart
	for _, e := range entries {
		c.Set(e.ProductID, e.Quantity)
	}
	return c
}

// Entries returns a copy of the entries in insertion order.
func (c Cart) Entries() []CartEntry {
	out := make([]CartEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c Cart) Len() int { return len(c.entries) }

func (c Cart) IsEmpty() bool { return len(c.entries) == 0 }

func (c Cart) Quantity(productID string) (int, bool) {
	i := c.index(productID)
	if i < 0 {
		return 0, false
	}
	return c.entries[i].Quantity, true
}

// TotalQuantity is the number shown on the cart badge.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, e := range c.entries {
		total += e.Quantity
	}
	return total
}

// Add increments an existing entry or appends a new one.
func (c *Cart) Add(productID string, delta int) {
	if i := c.index(productID); i >= 0 {
		c.entries[i].Quantity += delta
		return
	}
	c.entries = append(c.entries, CartEntry{ProductID: productID, Quantity: delta})
}

// Set overwrites the quantity, appending the entry if absent.
func (c *Cart) Set(productID string, quantity int) {
	if i := c.index(productID); i >= 0 {
		c.entries[i].Quantity = quantity
		return
	}
	c.entries = append(c.entries, CartEntry{ProductID: productID, Quantity: quantity})
}

// Remove deletes the entry; it reports whether anything was removed.
func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

func (c Cart) Clone() Cart {
	return Cart{entries: c.Entries()}
}

// Map returns the mapping without ordering.
func (c Cart) Map() map[string]int {
	m := make(map[string]int, len(c.entries))
	for _, e := range c.entries {
		m[e.ProductID] = e.Quantity
	}
	return m
}

func (c Cart) index(productID string) int {
	for i, e := range c.entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

// MarshalJSON writes the mapping as a JSON object whose key order follows insertion order.
func (c Cart) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ProductID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", e.Quantity)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Dropped lists the product ids whose persisted quantity was unusable (below 1 or fractional)
// and was skipped by the last UnmarshalJSON.
func (c Cart) Dropped() []string { return c.dropped }

// UnmarshalJSON reads a JSON object, keeping the key order of the document. Quantities may be
// encoded as numbers or numeric strings; duplicate keys keep the last value. Entries with an
// empty product id or a quantity that is not a whole number >= 1 are skipped and reported by
// Dropped.
func (c *Cart) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		c.entries = nil
		c.dropped = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode cart: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode cart: expected object, got %v", tok)
	}

	var out Cart
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode cart key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode cart: unexpected key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode cart quantity for %q: %w", key, err)
		}
		qty, err := parseQuantity(raw)
		if err != nil {
			return fmt.Errorf("decode cart quantity for %q: %w", key, err)
		}
		if key == "" || qty < 1 {
			out.Remove(key)
			out.dropped = append(out.dropped, key)
			continue
		}
		out.Set(key, qty)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode cart: %w", err)
	}

	*c = out
	return nil
}

// parseQuantity returns -1 for a fractional value.
func parseQuantity(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if errStr := json.Unmarshal(raw, &s); errStr != nil {
			return 0, err
		}
		n = json.Number(s)
	}
	v, err := n.Int64()
	if err != nil {
		f, errFloat := n.Float64()
		if errFloat != nil {
			return 0, err
		}
		if f != math.Trunc(f) {
			return -1, nil
		}
		v = int64(f)
	}
	return int(v), nil
}

// CartLineItem is a cart entry joined with live catalog data. It is rebuilt on every render and
// never persisted.
type CartLineItem struct {
	Product
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

func NewLineItem(p Product, quantity int) CartLineItem {
	return CartLineItem{
		Product:   p,
		Quantity:  quantity,
		UnitPrice: p.EffectivePrice(),
	}
}
