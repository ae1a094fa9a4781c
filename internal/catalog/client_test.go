package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second, MaxFailures: 3, OpenTimeout: time.Minute},
		WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "not a url"})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "https://shop.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/uploads/a.png", c.PictureURL("/uploads/a.png"))
	assert.Equal(t, "https://cdn.example.com/a.png", c.PictureURL("https://cdn.example.com/a.png"))
	assert.Empty(t, c.PictureURL(""))
}

func TestListProducts_Endpoints(t *testing.T) {
	var (
		mu   sync.Mutex
		hits []string
	)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.RequestURI())
		mu.Unlock()
		writeJSON(w, http.StatusOK, []domain.Product{{ID: "a", Price: 10}, {ID: "b", Price: 30}, {ID: "c", Price: 20}})
	}))
	ctx := context.Background()

	_, err := c.ListProducts(ctx, ListOptions{})
	require.NoError(t, err)
	_, err = c.ListProducts(ctx, ListOptions{Sort: domain.SortAll, Category: "all"})
	require.NoError(t, err)
	_, err = c.ListProducts(ctx, ListOptions{Sort: domain.SortNewest})
	require.NoError(t, err)
	_, err = c.ListProducts(ctx, ListOptions{Category: "Casual Wear"})
	require.NoError(t, err)

	products, err := c.ListProducts(ctx, ListOptions{Sort: domain.SortPriceHigh, Category: "Casual Wear"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, []string{products[0].ID, products[1].ID, products[2].ID})

	assert.Equal(t, []string{
		"/user/getAllProducts",
		"/user/getAllProducts",
		"/products/newest",
		"/user/getAllProducts?category=Casual+Wear",
		"/user/getAllProducts?category=Casual+Wear",
	}, hits)
}

func TestListProducts_InvalidSort(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())

	_, err := c.ListProducts(context.Background(), ListOptions{Sort: "cheapest"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListProducts_WrappedAndEmpty(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("category") == "none" {
			_, _ = w.Write([]byte("null"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"products": []domain.Product{{ID: "a"}}})
	}))

	products, err := c.ListProducts(context.Background(), ListOptions{Category: "x"})
	require.NoError(t, err)
	assert.Len(t, products, 1)

	products, err = c.ListProducts(context.Background(), ListOptions{Category: "none"})
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestSortProducts(t *testing.T) {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	products := []domain.Product{
		{ID: "a", Price: 5, CreatedAt: old},
		{ID: "b", Price: 5, CreatedAt: old.Add(time.Hour)},
		{ID: "c", Price: 1, CreatedAt: old.Add(-time.Hour)},
	}

	SortProducts(products, domain.SortNewest)
	assert.Equal(t, "b", products[0].ID)

	SortProducts(products, domain.SortOldest)
	assert.Equal(t, "c", products[0].ID)

	SortProducts(products, domain.SortPriceLow)
	assert.Equal(t, []string{"c", "a", "b"}, []string{products[0].ID, products[1].ID, products[2].ID})
}

func TestGetProduct(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/p1":
			writeJSON(w, http.StatusOK, domain.Product{ID: "p1", Name: "Shirt", Price: 100})
		case "/products/gone":
			http.Error(w, "no such product", http.StatusNotFound)
		case "/products/null":
			_, _ = w.Write([]byte("null"))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	ctx := context.Background()

	p, err := c.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Shirt", p.Name)

	_, err = c.GetProduct(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var se *domain.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "no such product", se.Body)

	_, err = c.GetProduct(ctx, "null")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.GetProduct(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = c.GetProduct(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetProduct_SharedFetchSurvivesCallerCancel(t *testing.T) {
	var hits atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		started <- struct{}{}
		<-release
		writeJSON(w, http.StatusOK, domain.Product{ID: "A", Name: "Shirt", Price: 100})
	}))
	t.Cleanup(unblock)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := c.GetProduct(ctxA, "A")
		errA <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the server")
	}

	type result struct {
		p   domain.Product
		err error
	}
	resB := make(chan result, 1)
	go func() {
		p, err := c.GetProduct(context.Background(), "A")
		resB <- result{p, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("canceled caller did not return")
	}

	unblock()
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		assert.Equal(t, "A", r.p.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetProduct_NetworkFailure(t *testing.T) {
	c, srv := newTestClient(t, http.NotFoundHandler())
	srv.Close()

	_, err := c.GetProduct(context.Background(), "p1")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestBreaker_OpensOnServerErrorsOnly(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/products/missing" {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	ctx := context.Background()

	// 404s never trip it
	for i := 0; i < 5; i++ {
		_, err := c.GetProduct(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, int32(5), calls.Load())

	for i := 0; i < 3; i++ {
		_, err := c.ListProducts(ctx, ListOptions{})
		require.ErrorIs(t, err, domain.ErrNetwork)
	}
	assert.Equal(t, int32(8), calls.Load())

	_, err := c.ListProducts(ctx, ListOptions{})
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(8), calls.Load(), "open breaker must not reach the server")
}

func TestCreateProduct_Multipart(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/user/admin/products", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Shirt", r.FormValue("name"))
		assert.Equal(t, "100", r.FormValue("price"))
		assert.Equal(t, "79.5", r.FormValue("Discounted_price"))
		assert.Equal(t, "Casual Wear", r.FormValue("category"))
		assert.Equal(t, "4", r.FormValue("ratings"))

		file, header, err := r.FormFile("picture")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "shirt.png", header.Filename)
		assert.Equal(t, "PNGDATA", string(content))

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "created",
			"product": domain.Product{ID: "new", Name: "Shirt"},
		})
	}))

	discounted := 79.5
	p, err := c.CreateProduct(context.Background(), domain.NewProduct{
		Name:            "Shirt",
		Price:           100,
		DiscountedPrice: &discounted,
		Category:        "Casual Wear",
		Ratings:         4,
		Image:           &domain.Image{Filename: "shirt.png", ContentType: "image/png", Content: []byte("PNGDATA")},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", p.ID)
}

func TestCreateProduct_NoDiscountNoImage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hasDiscount := r.MultipartForm.Value["Discounted_price"]
		assert.False(t, hasDiscount)
		assert.Empty(t, r.MultipartForm.File)
		writeJSON(w, http.StatusOK, domain.Product{ID: "plain"})
	}))

	p, err := c.CreateProduct(context.Background(), domain.NewProduct{Name: "Cap", Price: 5, Category: "Hats"})
	require.NoError(t, err)
	assert.Equal(t, "plain", p.ID)
}

func TestDeleteProduct(t *testing.T) {
	var got string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, c.DeleteProduct(context.Background(), "p1"))
	assert.Equal(t, "DELETE /user/admin/products/p1", got)
	assert.ErrorIs(t, c.DeleteProduct(context.Background(), ""), domain.ErrValidation)
}

func TestCreateOrder(t *testing.T) {
	var received domain.OrderSubmission
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "ok", "order": map[string]string{"_id": "o1"}})
	}))

	id, err := c.CreateOrder(context.Background(), domain.OrderSubmission{
		CustomerName: "Ann",
		TotalPrice:   240,
		Products:     []domain.OrderProduct{{ProductID: "A", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", id)
	assert.Equal(t, 240.0, received.TotalPrice)
	assert.Equal(t, []domain.OrderProduct{{ProductID: "A", Quantity: 2}}, received.Products)
}

func TestCreateOrder_Failure(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid order", http.StatusBadRequest)
	}))

	_, err := c.CreateOrder(context.Background(), domain.OrderSubmission{})
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestListAndCompleteOrders(t *testing.T) {
	var completed string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/orders":
			_, _ = w.Write([]byte(`{"orders":[{"_id":"o1","customerName":"Ann","totalPrice":240,
				"products":[{"productId":{"_id":"A","name":"Shirt"},"quantity":2}]}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/orders/o1/delete":
			completed = "o1"
			writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	orders, err := c.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "A", orders[0].Products[0].ProductID)
	assert.Equal(t, "Shirt", orders[0].Products[0].Product.Name)

	require.NoError(t, c.CompleteOrder(ctx, "o1"))
	assert.Equal(t, "o1", completed)

	assert.ErrorIs(t, c.CompleteOrder(ctx, "o2"), domain.ErrNotFound)
}
