// Package admin is the product and order console. It talks to the catalog's admin endpoints
// directly and never touches the cart.
package admin

import (
	"context"
	"fmt"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/resource"
	"github.com/fjod/go_storefront/internal/view"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ProductClient interface {
	ListProducts(ctx context.Context, opts catalog.ListOptions) ([]domain.Product, error)
	CreateProduct(ctx context.Context, np domain.NewProduct) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type OrderClient interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	CompleteOrder(ctx context.Context, id string) error
}

// ProductPanel lists every product. Create and delete update the listed products only after
// the server confirmed them.
type ProductPanel struct {
	client ProductClient
	res    *resource.Resource[[]domain.Product]
	log    zerolog.Logger
}

func NewProductPanel(client ProductClient, log zerolog.Logger) *ProductPanel {
	return &ProductPanel{
		client: client,
		log:    log,
		res: resource.New(func(ctx context.Context) ([]domain.Product, error) {
			return client.ListProducts(ctx, catalog.ListOptions{})
		}),
	}
}

func (p *ProductPanel) Load(ctx context.Context) ([]domain.Product, error) { return p.res.Load(ctx) }

func (p *ProductPanel) State() view.State[[]domain.Product] { return view.Render(p.res.Snapshot()) }

func (p *ProductPanel) Close() { p.res.Close() }

func (p *ProductPanel) Create(ctx context.Context, np domain.NewProduct) (domain.Product, error) {
	if err := domain.Validate(np); err != nil {
		return domain.Product{}, err
	}
	if np.DiscountedPrice != nil && *np.DiscountedPrice >= np.Price {
		p.log.Info().Str("name", np.Name).Msg("discounted price not below price; no discount will show")
	}

	created, err := p.client.CreateProduct(ctx, np)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	p.res.Mutate(func(products []domain.Product) []domain.Product {
		return append(append([]domain.Product{}, products...), created)
	})
	p.log.Info().Str("product_id", created.ID).Msg("product created")
	return created, nil
}

func (p *ProductPanel) Delete(ctx context.Context, id string) error {
	if err := p.client.DeleteProduct(ctx, id); err != nil {
		p.log.Warn().Err(err).Str("product_id", id).Msg("delete product failed")
		return fmt.Errorf("delete product: %w", err)
	}
	p.res.Mutate(func(products []domain.Product) []domain.Product {
		out := make([]domain.Product, 0, len(products))
		for _, pr := range products {
			if pr.ID != id {
				out = append(out, pr)
			}
		}
		return out
	})
	p.log.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// OrderPanel lists open orders. Completing an order removes it from the list once confirmed.
type OrderPanel struct {
	client OrderClient
	res    *resource.Resource[[]domain.Order]
	log    zerolog.Logger
}

func NewOrderPanel(client OrderClient, log zerolog.Logger) *OrderPanel {
	return &OrderPanel{
		client: client,
		log:    log,
		res:    resource.New(client.ListOrders),
	}
}

func (o *OrderPanel) Load(ctx context.Context) ([]domain.Order, error) { return o.res.Load(ctx) }

func (o *OrderPanel) State() view.State[[]domain.Order] { return view.Render(o.res.Snapshot()) }

func (o *OrderPanel) Close() { o.res.Close() }

func (o *OrderPanel) Complete(ctx context.Context, id string) error {
	if err := o.client.CompleteOrder(ctx, id); err != nil {
		o.log.Warn().Err(err).Str("order_id", id).Msg("complete order failed")
		return fmt.Errorf("complete order: %w", err)
	}
	o.res.Mutate(func(orders []domain.Order) []domain.Order {
		out := make([]domain.Order, 0, len(orders))
		for _, ord := range orders {
			if ord.ID != id {
				out = append(out, ord)
			}
		}
		return out
	})
	o.log.Info().Str("order_id", id).Msg("order completed")
	return nil
}

// Summary is the dashboard header over the listed orders.
type Summary struct {
	Orders  int     `json:"orders"`
	Items   int     `json:"items"`
	Revenue float64 `json:"revenue"`
}

func (o *OrderPanel) Summary() Summary {
	orders := o.res.Snapshot().Value
	revenue := decimal.Zero
	s := Summary{Orders: len(orders)}
	for _, ord := range orders {
		revenue = revenue.Add(decimal.NewFromFloat(ord.TotalPrice))
		for _, line := range ord.Products {
			s.Items += line.Quantity
		}
	}
	s.Revenue = revenue.InexactFloat64()
	return s
}
