package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopora/checkout/internal/application/checkout"
	"github.com/shopora/checkout/internal/domain/cart"
	"github.com/shopora/checkout/internal/domain/product"
	"github.com/shopora/checkout/internal/infrastructure/auth"
	"github.com/shopora/checkout/internal/infrastructure/id"
	"github.com/shopora/checkout/internal/infrastructure/memory"
)

type fixture struct {
	router  *gin.Engine
	carts   *memory.CartStore
	stock   *memory.InventoryLedger
	gateway *memory.PaymentGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		carts:   memory.NewCartStore(),
		stock:   memory.NewInventoryLedger(),
		gateway: memory.NewPaymentGateway("whsec_test"),
	}
	svc := checkout.NewService(checkout.Config{
		Orders:  memory.NewOrderRepository(),
		Coupons: memory.NewCouponLedger(),
		Stock:   f.stock,
		Carts:   f.carts,
		Gateway: f.gateway,
		IDs:     id.NewUUIDGenerator(),
		Codes:   id.NewCodeGenerator(),
		Caps:    auth.NewRoleCapability(),
	})

	f.router = gin.New()
	NewHandler(svc).Register(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func asUser(userID string) map[string]string {
	return map[string]string{"X-User-ID": userID, "X-User-Role": auth.RoleUser}
}

func asAdmin() map[string]string {
	return map[string]string{"X-User-ID": "admin-1", "X-User-Role": auth.RoleAdmin}
}

func createBody() map[string]any {
	return map[string]any{
		"address": "12 Tahrir Square, Cairo",
		"phone":   "+201000000000",
		"payment": "card",
	}
}

func (f *fixture) placeOrder(t *testing.T, userID string) map[string]any {
	t.Helper()
	f.stock.Seed(&product.Product{ID: "prod-a", Name: "Widget", Stock: 10, SalePrice: 100})
	f.carts.Put(userID, []cart.Item{{ProductID: "prod-a", Quantity: 2}})

	rec := f.do(t, http.MethodPost, "/orders", createBody(), asUser(userID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateOrderEndpoint(t *testing.T) {
	f := newFixture(t)
	body := f.placeOrder(t, "user-1")

	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, float64(200), body["total"])
	assert.Equal(t, float64(200), body["subtotal"])
	assert.NotEmpty(t, body["code"])
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)

	bad := createBody()
	bad["payment"] = "wire"
	rec := f.do(t, http.MethodPost, "/orders", bad, asUser("user-1"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	short := createBody()
	short["address"] = "x"
	rec = f.do(t, http.MethodPost, "/orders", short, asUser("user-1"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/orders", createBody(), asUser("user-1"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.stock.Seed(&product.Product{ID: "prod-a", Name: "Widget", Stock: 1, SalePrice: 100})
	f.carts.Put("user-1", []cart.Item{{ProductID: "prod-a", Quantity: 2}})

	rec := f.do(t, http.MethodPost, "/orders", createBody(), asUser("user-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "prod-a", body["product_id"])
}

func TestGetOrderVisibility(t *testing.T) {
	f := newFixture(t)
	created := f.placeOrder(t, "user-1")
	orderID := created["id"].(string)

	rec := f.do(t, http.MethodGet, "/orders/"+orderID, nil, asUser("user-1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/orders/"+orderID, nil, asUser("user-2"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/orders/missing", nil, asAdmin())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutSessionEndpoint(t *testing.T) {
	f := newFixture(t)
	created := f.placeOrder(t, "user-1")
	orderID := created["id"].(string)

	rec := f.do(t, http.MethodPost, "/orders/"+orderID+"/checkout-session", nil, asUser("user-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["session_id"])
	assert.NotEmpty(t, body["url"])

	rec = f.do(t, http.MethodPost, "/orders/"+orderID+"/checkout-session", nil, asUser("user-2"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWebhookEndpoint(t *testing.T) {
	f := newFixture(t)
	created := f.placeOrder(t, "user-1")
	orderID := created["id"].(string)

	rec := f.do(t, http.MethodPost, "/orders/"+orderID+"/checkout-session", nil, asUser("user-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	payload, err := json.Marshal(map[string]string{
		"type":     "checkout.session.completed",
		"order_id": orderID,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", f.gateway.Sign(payload))
	wrec := httptest.NewRecorder()
	f.router.ServeHTTP(wrec, req)
	assert.Equal(t, http.StatusOK, wrec.Code, wrec.Body.String())

	rec = f.do(t, http.MethodGet, "/orders/"+orderID, nil, asUser("user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "placed", body["status"])
	assert.NotEmpty(t, body["paid_at"])
}

func TestWebhookBadSignature(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "bogus")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelEndpointRequiresRole(t *testing.T) {
	f := newFixture(t)
	created := f.placeOrder(t, "user-1")
	orderID := created["id"].(string)

	rec := f.do(t, http.MethodPost, "/orders/"+orderID+"/cancel",
		map[string]string{"reason": "test"}, asUser("user-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/orders/"+orderID+"/cancel",
		map[string]string{"reason": "test"}, asAdmin())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "canceled", body["status"])
	assert.Equal(t, "test", body["cancel_reason"])
}
