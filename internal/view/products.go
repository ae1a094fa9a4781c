package view

import (
	"context"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/resource"
)

// ProductList is the browse screen with its sort and category selection.
type ProductList struct {
	Options catalog.ListOptions
	res     *resource.Resource[[]ProductCard]
}

func NewProductList(c Catalog, opts catalog.ListOptions) *ProductList {
	return &ProductList{
		Options: opts,
		res: resource.New(func(ctx context.Context) ([]ProductCard, error) {
			products, err := c.ListProducts(ctx, opts)
			if err != nil {
				return nil, err
			}
			cards := make([]ProductCard, len(products))
			for i, p := range products {
				cards[i] = newCard(c, p)
			}
			return cards, nil
		}),
	}
}

func (v *ProductList) Load(ctx context.Context) ([]ProductCard, error) { return v.res.Load(ctx) }

func (v *ProductList) State() State[[]ProductCard] { return Render(v.res.Snapshot()) }

func (v *ProductList) Close() { v.res.Close() }

// ProductDetail is the single-product screen with its quantity selector.
type ProductDetail struct {
	id    string
	cart  CartStore
	res   *resource.Resource[ProductCard]
	count int
}

func NewProductDetail(c Catalog, cart CartStore, id string) *ProductDetail {
	return &ProductDetail{
		id:    id,
		cart:  cart,
		count: 1,
		res: resource.New(func(ctx context.Context) (ProductCard, error) {
			p, err := c.GetProduct(ctx, id)
			if err != nil {
				return ProductCard{}, err
			}
			return newCard(c, p), nil
		}),
	}
}

func (v *ProductDetail) Load(ctx context.Context) (ProductCard, error) { return v.res.Load(ctx) }

func (v *ProductDetail) State() State[ProductCard] { return Render(v.res.Snapshot()) }

func (v *ProductDetail) Close() { v.res.Close() }

// Quantity is the selector value. It never goes below 1.
func (v *ProductDetail) Quantity() int { return v.count }

func (v *ProductDetail) SetQuantity(n int) {
	if n < 1 {
		n = 1
	}
	v.count = n
}

func (v *ProductDetail) Increment() { v.count++ }

func (v *ProductDetail) Decrement() { v.SetQuantity(v.count - 1) }

// AddToCart adds the selected quantity on top of whatever the cart already holds.
func (v *ProductDetail) AddToCart(ctx context.Context) error {
	if v.id == "" {
		return &domain.ValidationError{Field: "productId", Reason: "is required"}
	}
	return v.cart.Add(ctx, v.id, v.count)
}
