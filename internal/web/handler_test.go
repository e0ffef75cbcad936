package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/model"
	"github.com/kkkkikiki/coupon-ledger/internal/repository/memory"
)

var fixedNow = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (http.Handler, *ledger.Service, *memory.Store) {
	t.Helper()

	store := memory.New()
	svc := ledger.NewService(store, ledger.WithClock(func() time.Time { return fixedNow }))
	h, err := NewHandler(svc, zap.NewNop())
	require.NoError(t, err)
	return h.Routes(), svc, store
}

func do(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListCustomers(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	_, err := svc.Customers.Register(context.Background(), 3, "Asha", "555-0103", 0)
	require.NoError(t, err)

	rec := do(h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Asha")
	assert.Contains(t, body, `/customer-details/3`)
	assert.Contains(t, body, "(empty)")
}

func TestAddCustomer(t *testing.T) {
	h, svc, _ := newTestHandler(t)

	rec := do(h, http.MethodPost, "/add", url.Values{
		"id": {"9"}, "name": {"Ravi"}, "phone": {"555-0109"}, "coupons": {"4"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	c, err := svc.Customers.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, &model.Customer{ID: 9, Name: "Ravi", Phone: "555-0109", Coupons: 4}, c)

	rec = do(h, http.MethodPost, "/add", url.Values{
		"id": {"9"}, "name": {"Other"}, "phone": {"1"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "A customer with this ID already exists.")
}

func TestAddCustomer_InvalidForm(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{name: "missing id", form: url.Values{"name": {"a"}, "phone": {"1"}}},
		{name: "missing name", form: url.Values{"id": {"1"}, "phone": {"1"}}},
		{name: "coupons above cap", form: url.Values{"id": {"1"}, "name": {"a"}, "phone": {"1"}, "coupons": {"11"}}},
		{name: "coupons not a number", form: url.Values{"id": {"1"}, "name": {"a"}, "phone": {"1"}, "coupons": {"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc, _ := newTestHandler(t)

			rec := do(h, http.MethodPost, "/add", tt.form)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			customers, err := svc.Customers.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, customers)
		})
	}
}

func TestCustomerDetails(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	ctx := context.Background()
	_, err := svc.Customers.Register(ctx, 1, "Asha", "555-0101", 2)
	require.NoError(t, err)
	_, err = svc.RecordDelivery(ctx, 1, time.Time{}, 1)
	require.NoError(t, err)

	rec := do(h, http.MethodGet, "/customer-details/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mar 15, 2024")
	assert.Contains(t, rec.Body.String(), "1 coupons left")

	rec = do(h, http.MethodGet, "/customer-details/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Customer not found.")

	rec = do(h, http.MethodGet, "/customer-details/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddCoupon(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	ctx := context.Background()
	_, err := svc.Customers.Register(ctx, 1, "Asha", "555-0101", 5)
	require.NoError(t, err)

	rec := do(h, http.MethodPost, "/1/add-coupon", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	c, err := svc.Customers.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.MaxCoupons, c.Coupons)

	rec = do(h, http.MethodPost, "/1/add-coupon", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Max coupons reached.")

	rec = do(h, http.MethodPost, "/2/add-coupon", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeliver(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	ctx := context.Background()
	_, err := svc.Customers.Register(ctx, 1, "Asha", "555-0101", 1)
	require.NoError(t, err)

	rec := do(h, http.MethodPost, "/1/deliver", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = do(h, http.MethodPost, "/1/deliver", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "No coupons available.")

	history, err := svc.Deliveries.QueryByCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDeliveries(t *testing.T) {
	h, svc, store := newTestHandler(t)
	ctx := context.Background()
	_, err := svc.Customers.Register(ctx, 1, "Asha", "555-0101", 3)
	require.NoError(t, err)
	_, err = svc.RecordDelivery(ctx, 1, time.Time{}, 2)
	require.NoError(t, err)
	require.NoError(t, store.InsertDelivery(ctx, &model.Delivery{CustomerID: 50, Date: fixedNow, BottlesDelivered: 1}))

	rec := do(h, http.MethodGet, "/deliveries?date=2024-03-15", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Deliveries on Mar 15, 2024")
	assert.Contains(t, body, "Asha")
	assert.Contains(t, body, "Unknown customer")

	rec = do(h, http.MethodGet, "/deliveries?date=2024-03-16", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No deliveries on this day.")
}

func TestDeliveries_BadDate(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := do(h, http.MethodGet, "/deliveries", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "please provide a date")

	rec = do(h, http.MethodGet, "/deliveries?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := do(h, http.MethodGet, "/static/style.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestUnknownRoute(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := do(h, http.MethodGet, "/nope/at/all", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
