package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
)

// ListOptions narrows a product listing. Category "all" or "" means no filter.
type ListOptions struct {
	Sort     domain.SortOrder
	Category string
}

func (o ListOptions) category() string {
	if strings.EqualFold(o.Category, "all") {
		return ""
	}
	return o.Category
}

func (o ListOptions) sorted() bool {
	return o.Sort != domain.SortNone && o.Sort != domain.SortAll
}

// ListProducts returns the catalog listing. The API has separate endpoints for sorted and
// category-filtered listings; when both are asked for, the filtered listing is fetched and
// sorted here.
func (c *Client) ListProducts(ctx context.Context, opts ListOptions) ([]domain.Product, error) {
	if !opts.Sort.Valid() {
		return nil, &domain.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort %q", opts.Sort)}
	}

	var (
		path  = productsPath
		query url.Values
	)
	switch {
	case opts.category() != "":
		query = url.Values{"category": {opts.category()}}
	case opts.sorted():
		path = productPath + string(opts.Sort)
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do("list products", req)
	if err != nil {
		return nil, err
	}

	products, err := decodeProducts(body)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	if opts.category() != "" && opts.sorted() {
		SortProducts(products, opts.Sort)
	}
	return products, nil
}

func decodeProducts(body []byte) ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(body, &products); err == nil {
		return nonNil(products), nil
	}

	var wrapped struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return nonNil(wrapped.Products), nil
}

func nonNil(p []domain.Product) []domain.Product {
	if p == nil {
		return []domain.Product{}
	}
	return p
}

// SortProducts orders products in place the way the API's sorted listings do.
func SortProducts(products []domain.Product, order domain.SortOrder) {
	var less func(a, b domain.Product) bool
	switch order {
	case domain.SortNewest:
		less = func(a, b domain.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	case domain.SortOldest:
		less = func(a, b domain.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case domain.SortPriceHigh:
		less = func(a, b domain.Product) bool { return a.Price > b.Price }
	case domain.SortPriceLow:
		less = func(a, b domain.Product) bool { return a.Price < b.Price }
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

// GetProduct fetches one product. Concurrent requests for the same id share one round trip.
// A 404 or an empty body matches domain.ErrNotFound.
//
// The shared request is detached from any single caller's cancellation and bounded by the client
// timeout; each caller stops waiting when its own ctx is done.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, &domain.ValidationError{Field: "id", Reason: "product id is required"}
	}

	ch := c.group.DoChan(id, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetchProduct(fetchCtx, id)
	})

	select {
	case <-ctx.Done():
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.Product{}, res.Err
		}
		return res.Val.(domain.Product), nil
	}
}

func (c *Client) fetchProduct(ctx context.Context, id string) (domain.Product, error) {
	req, err := c.newRequest(ctx, http.MethodGet, productPath+url.PathEscape(id), nil, nil)
	if err != nil {
		return domain.Product{}, err
	}
	body, err := c.do("get product "+id, req)
	if err != nil {
		return domain.Product{}, err
	}

	var p *domain.Product
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Product{}, fmt.Errorf("decode product %s: %w", id, err)
	}
	if p == nil || p.ID == "" {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, domain.ErrNotFound)
	}
	return *p, nil
}

// CreateProduct uploads a new product as multipart form data.
func (c *Client) CreateProduct(ctx context.Context, np domain.NewProduct) (domain.Product, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"name", np.Name},
		{"description", np.Description},
		{"price", formatFloat(np.Price)},
	}
	if np.DiscountedPrice != nil {
		fields = append(fields, [2]string{"Discounted_price", formatFloat(*np.DiscountedPrice)})
	}
	fields = append(fields,
		[2]string{"category", np.Category},
		[2]string{"ratings", formatFloat(np.Ratings)},
	)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return domain.Product{}, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	if np.Image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="picture"; filename=%q`, np.Image.Filename))
		contentType := np.Image.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return domain.Product{}, fmt.Errorf("create picture part: %w", err)
		}
		if _, err := part.Write(np.Image.Content); err != nil {
			return domain.Product{}, fmt.Errorf("write picture: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return domain.Product{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, adminProductsPath, nil, &buf)
	if err != nil {
		return domain.Product{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do("create product", req)
	if err != nil {
		return domain.Product{}, err
	}

	var created struct {
		domain.Product
		Wrapped *domain.Product `json:"product"`
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &created); err != nil {
			return domain.Product{}, fmt.Errorf("decode created product: %w", err)
		}
	}
	if created.Wrapped != nil {
		return *created.Wrapped, nil
	}
	return created.Product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if id == "" {
		return &domain.ValidationError{Field: "id", Reason: "product id is required"}
	}
	req, err := c.newRequest(ctx, http.MethodDelete, adminProductsPath+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	_, err = c.do("delete product "+id, req)
	return err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
