package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/health"
	"github.com/pmgasset/nomadtech/internal/payment"
	"github.com/pmgasset/nomadtech/internal/reconcile"
)

const (
	testWebhookSecret = "whsec_router_test"
	testAdminToken    = "admin-secret"
)

type testAPI struct {
	handler  http.Handler
	carts    *mockCarts
	checkout *mockCheckout
	events   *mockEvents
	archive  *mockArchive
	orders   *mockOrders
	cookie   *http.Cookie
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAPI(t *testing.T, mutate ...func(*Deps)) *testAPI {
	t.Helper()
	api := &testAPI{
		carts:    newMockCarts(testProducts()...),
		checkout: &mockCheckout{session: &payment.Session{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}},
		events:   &mockEvents{},
		archive:  newMockArchive(),
		orders:   &mockOrders{orders: map[string]*domain.Order{}},
	}
	deps := Deps{
		Products: &mockProducts{products: testProducts()},
		Carts:    api.carts,
		Checkout: api.checkout,
		Verifier: payment.NewStripeClient(payment.StripeConfig{
			SecretKey:     "sk_test_123",
			WebhookSecret: testWebhookSecret,
		}, discardLogger()),
		Events:         api.events,
		Archive:        api.archive,
		Orders:         api.orders,
		Shipper:        api.orders,
		Health:         staticHealth{report: health.Report{Status: health.StatusHealthy, Service: "storefront"}},
		Flow:           domain.FlowOptions{ShowProgressIndicator: true},
		AdminToken:     testAdminToken,
		RequestTimeout: 5 * time.Second,
		Logger:         discardLogger(),
	}
	for _, m := range mutate {
		m(&deps)
	}
	api.handler = NewRouter(deps)
	return api
}

// do sends a request, carrying the cart cookie from earlier responses.
func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == CartCookieName {
			a.cookie = c
		}
	}
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartResponseDTO {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dto CartResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	return dto
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		api := newTestAPI(t)
		rec := api.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	})

	t.Run("degraded still serves", func(t *testing.T) {
		api := newTestAPI(t, func(d *Deps) {
			d.Health = staticHealth{report: health.Report{Status: health.StatusDegraded, Warnings: []string{"SENDGRID_API_KEY not set"}}}
		})
		rec := api.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unhealthy", func(t *testing.T) {
		api := newTestAPI(t, func(d *Deps) {
			d.Health = staticHealth{report: health.Report{Status: health.StatusUnhealthy}}
		})
		rec := api.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestCatalog(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Products []domain.Product `json:"products"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "router-x1", resp.Products[0].ID)
	assert.Equal(t, domain.Money(39999), resp.Products[0].UnitPrice)
}

func TestCatalog_Empty(t *testing.T) {
	api := newTestAPI(t, func(d *Deps) { d.Products = &mockProducts{} })
	rec := api.do(t, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"products":[]}`, rec.Body.String())
}

func TestCartSession_IssuesCookieOnce(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, api.cookie)
	assert.True(t, api.cookie.HttpOnly)
	_, err := uuid.Parse(api.cookie.Value)
	require.NoError(t, err)

	rec = api.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, rec.Result().Cookies(), "existing cookie must be reused")
	assert.Equal(t, []string{api.cookie.Value, api.cookie.Value}, api.carts.sessions)
}

func TestCartSession_ReplacesMalformedCookie(t *testing.T) {
	api := newTestAPI(t)
	api.cookie = &http.Cookie{Name: CartCookieName, Value: "not-a-uuid"}

	api.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.NotEqual(t, "not-a-uuid", api.cookie.Value)
	_, err := uuid.Parse(api.cookie.Value)
	assert.NoError(t, err)
}

func TestCartFlow(t *testing.T) {
	api := newTestAPI(t)

	dto := decodeCart(t, api.do(t, http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, domain.FlowStepRouter, dto.Step)
	assert.NotNil(t, dto.Items)
	assert.Empty(t, dto.Items)
	require.NotNil(t, dto.Progress)
	assert.Equal(t, 1, dto.Progress.Current)

	dto = decodeCart(t, api.do(t, http.MethodPost, "/api/v1/cart/router", SelectProductRequestDTO{ProductID: "router-x1"}))
	assert.Equal(t, domain.FlowStepDataPlan, dto.Step)
	assert.Equal(t, 2, dto.Progress.Current)
	assert.Equal(t, 1, dto.ItemCount)

	dto = decodeCart(t, api.do(t, http.MethodPost, "/api/v1/cart/data-plan", nil))
	assert.Equal(t, domain.FlowStepReview, dto.Step)
	assert.True(t, dto.HasDataPlan)
	assert.Equal(t, domain.Money(49899), dto.Totals.Total)
	assert.Equal(t, domain.Money(39999), dto.Totals.HardwareTotal)
	assert.Equal(t, domain.Money(9900), dto.Totals.SubscriptionTotal)
	assert.Equal(t, "$498.99", dto.Totals.DueToday)
	assert.Equal(t, "$99.00", dto.Totals.Monthly)

	dto = decodeCart(t, api.do(t, http.MethodPut, "/api/v1/cart/items/router-x1", map[string]int{"quantity": 2}))
	assert.Equal(t, 3, dto.ItemCount)
	assert.Equal(t, domain.Money(2*39999+9900), dto.Totals.Total)

	dto = decodeCart(t, api.do(t, http.MethodDelete, "/api/v1/cart/items/plan-unlimited", nil))
	assert.False(t, dto.HasDataPlan)
	assert.Empty(t, dto.Totals.Monthly)

	dto = decodeCart(t, api.do(t, http.MethodDelete, "/api/v1/cart", nil))
	assert.Empty(t, dto.Items)
	assert.Equal(t, domain.FlowStepRouter, dto.Step)
}

func TestCart_SkipDataPlan(t *testing.T) {
	api := newTestAPI(t)
	decodeCart(t, api.do(t, http.MethodPost, "/api/v1/cart/router", SelectProductRequestDTO{ProductID: "router-x1"}))

	dto := decodeCart(t, api.do(t, http.MethodPost, "/api/v1/cart/data-plan/skip", nil))
	assert.Equal(t, domain.FlowStepReview, dto.Step)
	assert.False(t, dto.HasDataPlan)
	assert.Equal(t, domain.Money(39999), dto.Totals.Total)
}

func TestCart_ProgressHidden(t *testing.T) {
	api := newTestAPI(t, func(d *Deps) { d.Flow = domain.FlowOptions{} })
	dto := decodeCart(t, api.do(t, http.MethodGet, "/api/v1/cart", nil))
	assert.Nil(t, dto.Progress)
}

func TestCart_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   string
	}{
		{name: "router malformed json", method: http.MethodPost, path: "/api/v1/cart/router", body: "{", code: "invalid_request"},
		{name: "unknown router", method: http.MethodPost, path: "/api/v1/cart/router", body: SelectProductRequestDTO{ProductID: "nope"}, code: "validation_error"},
		{name: "plan as router", method: http.MethodPost, path: "/api/v1/cart/router", body: SelectProductRequestDTO{ProductID: "plan-unlimited"}, code: "validation_error"},
		{name: "quantity missing", method: http.MethodPut, path: "/api/v1/cart/items/router-x1", body: `{}`, code: "invalid_request"},
		{name: "quantity out of range", method: http.MethodPut, path: "/api/v1/cart/items/router-x1", body: map[string]int{"quantity": 100}, code: "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			decodeCart(t, api.do(t, http.MethodPost, "/api/v1/cart/router", SelectProductRequestDTO{ProductID: "router-x1"}))

			rec := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestCart_StoreFailureIsGeneric(t *testing.T) {
	api := newTestAPI(t)
	api.carts.err = errors.New("redis: connection refused")

	rec := api.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "internal_error", resp.Code)
	assert.NotContains(t, resp.Error, "redis")
}

func TestCheckout_CreateSession(t *testing.T) {
	api := newTestAPI(t)
	decodeCart(t, api.do(t, http.MethodPost, "/api/v1/cart/router", SelectProductRequestDTO{ProductID: "router-x1"}))

	rec := api.do(t, http.MethodPost, "/api/v1/checkout", CheckoutRequestDTO{Email: "sam@example.com", Phone: "+15550100"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CheckoutResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "cs_test_1", resp.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", resp.URL)

	assert.Equal(t, api.cookie.Value, api.checkout.last.CartSessionID)
	assert.Equal(t, "sam@example.com", api.checkout.last.Email)
	assert.Equal(t, "+15550100", api.checkout.last.Phone)
}

func TestCheckout_EmptyBodyAllowed(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "empty cart",
			err:        domain.NewValidationError("cart", "cart is empty"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
			wantMsg:    "cart is empty",
		},
		{
			name:       "card declined",
			err:        &domain.UpstreamError{Kind: domain.UpstreamCardDeclined, Err: errors.New("declined")},
			wantStatus: http.StatusPaymentRequired,
			wantCode:   "card_declined",
			wantMsg:    "declined",
		},
		{
			name:       "rate limited",
			err:        &domain.UpstreamError{Kind: domain.UpstreamRateLimited, Err: errors.New("slow down")},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "rate_limited",
		},
		{
			name:       "authentication is hidden",
			err:        &domain.UpstreamError{Kind: domain.UpstreamAuthentication, Err: errors.New("invalid api key sk_live_x")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "payment_unavailable",
			wantMsg:    "try again",
		},
		{
			name:       "connectivity",
			err:        &domain.UpstreamError{Kind: domain.UpstreamConnectivity, Err: errors.New("dial tcp")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "payment_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.checkout.err = tt.err

			rec := api.do(t, http.MethodPost, "/api/v1/checkout", CheckoutRequestDTO{Email: "sam@example.com"})
			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Contains(t, resp.Error, tt.wantMsg)
			assert.NotContains(t, resp.Error, "sk_live")
		})
	}
}

func signed(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  secret,
	}).Header
}

func webhookEvent(id, eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2024-09-30.acacia",
		"created": 1767225600,
		"type": %q,
		"data": {"object": {"id": "obj_1", "object": "customer"}}
	}`, id, eventType))
}

func postWebhook(api *testAPI, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(SignatureHeaderName, signature)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_Accepted(t *testing.T) {
	api := newTestAPI(t)
	payload := webhookEvent("evt_1", "customer.created")

	rec := postWebhook(api, payload, signed(payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	require.Len(t, api.events.handled, 1)
	assert.Equal(t, "evt_1", api.events.handled[0].ID)
	assert.Equal(t, payment.EventType("customer.created"), api.events.handled[0].Type)
	assert.NoError(t, api.events.ctxErr)
	assert.Equal(t, reconcile.OutcomeProcessed, api.archive.outcomes["evt_1"])
}

func TestWebhook_IgnoredEventIsAcknowledged(t *testing.T) {
	api := newTestAPI(t)
	api.events.outcome = reconcile.OutcomeIgnored
	payload := []byte(`{
		"id": "evt_inv_orphan",
		"object": "event",
		"api_version": "2024-09-30.acacia",
		"created": 1767225600,
		"type": "invoice.payment_failed",
		"data": {"object": {"id": "in_1", "object": "invoice", "customer": "cus_1", "subscription": "sub_orphan"}}
	}`)

	rec := postWebhook(api, payload, signed(payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	require.Len(t, api.events.handled, 1)
	require.NotNil(t, api.events.handled[0].Invoice)
	assert.Equal(t, "sub_orphan", api.events.handled[0].Invoice.SubscriptionID)
	assert.Equal(t, reconcile.OutcomeIgnored, api.archive.outcomes["evt_inv_orphan"])
}

func TestWebhook_SignatureRejected(t *testing.T) {
	payload := webhookEvent("evt_2", "customer.created")
	tests := []struct {
		name      string
		body      []byte
		signature string
	}{
		{name: "missing header", body: payload},
		{name: "wrong secret", body: payload, signature: signed(payload, "whsec_other")},
		{name: "tampered body", body: append([]byte(" "), payload...), signature: signed(payload, testWebhookSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			rec := postWebhook(api, tt.body, tt.signature)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_signature", decodeError(t, rec).Code)
			assert.Empty(t, api.events.handled, "nothing may be processed before verification")
		})
	}
}

func TestWebhook_BodyTooLarge(t *testing.T) {
	api := newTestAPI(t)
	payload := bytes.Repeat([]byte("a"), MaxWebhookBodySize+1)

	rec := postWebhook(api, payload, signed(payload, testWebhookSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, api.events.handled)
}

func TestWebhook_ProcessingFailureAsksForRedelivery(t *testing.T) {
	api := newTestAPI(t)
	api.events.err = &domain.PersistenceError{Op: "create_order", Err: errors.New("connection reset")}
	payload := webhookEvent("evt_3", "customer.created")

	rec := postWebhook(api, payload, signed(payload, testWebhookSecret))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Equal(t, reconcile.OutcomeFailed, api.archive.outcomes["evt_3"])
	assert.Error(t, api.archive.errs["evt_3"])
}

func TestWebhook_ArchiveFailureDoesNotFailDelivery(t *testing.T) {
	api := newTestAPI(t)
	api.archive.err = errors.New("mongo down")
	payload := webhookEvent("evt_4", "customer.created")

	rec := postWebhook(api, payload, signed(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_NilArchive(t *testing.T) {
	api := newTestAPI(t, func(d *Deps) { d.Archive = nil })
	payload := webhookEvent("evt_5", "customer.created")

	rec := postWebhook(api, payload, signed(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func paidOrder() *domain.Order {
	return &domain.Order{
		ID:                     uuid.MustParse("0b8f5e4a-1c2d-4e5f-8a9b-0c1d2e3f4a5b"),
		SessionID:              "cs_test_paid",
		PaymentIntentID:        "pi_secret",
		SubscriptionExternalID: "sub_1",
		TotalAmount:            39999,
		Currency:               "usd",
		Status:                 domain.OrderStatusPaid,
		Customer:               &domain.Customer{Email: "sam@example.com"},
		Items: []domain.OrderItem{
			{ProductID: "router-x1", Name: "NomadNet X1 Router", UnitPrice: 39999, Quantity: 1},
		},
	}
}

func TestOrders_Get(t *testing.T) {
	api := newTestAPI(t)
	api.orders.orders["cs_test_paid"] = paidOrder()

	rec := api.do(t, http.MethodGet, "/api/v1/orders/cs_test_paid", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dto OrderSummaryDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	assert.Equal(t, "2E3F4A5B", dto.Reference)
	assert.Equal(t, domain.OrderStatusPaid, dto.Status)
	assert.Equal(t, "$399.99", dto.TotalFormatted)
	assert.True(t, dto.HasDataPlan)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, domain.Money(39999), dto.Items[0].Subtotal)

	assert.NotContains(t, rec.Body.String(), "pi_secret")
	assert.NotContains(t, rec.Body.String(), "sam@example.com")
}

func TestOrders_NotFound(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/v1/orders/cs_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}

func shipRequest(api *testAPI, sessionID, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/"+sessionID+"/ship", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}

func TestAdmin_MarkShipped(t *testing.T) {
	api := newTestAPI(t)
	api.orders.orders["cs_test_paid"] = paidOrder()

	rec := shipRequest(api, "cs_test_paid", testAdminToken, `{"tracking_number":"9400111899560000000000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dto OrderSummaryDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	assert.Equal(t, domain.OrderStatusShipped, dto.Status)
	assert.Equal(t, "9400111899560000000000", dto.TrackingNumber)
	assert.Equal(t, []string{"cs_test_paid"}, api.orders.shipped)
}

func TestAdmin_MarkShippedErrors(t *testing.T) {
	tests := []struct {
		name       string
		sessionID  string
		token      string
		body       string
		wantStatus int
	}{
		{name: "no token", sessionID: "cs_test_paid", body: `{"tracking_number":"1"}`, wantStatus: http.StatusUnauthorized},
		{name: "wrong token", sessionID: "cs_test_paid", token: "guess", body: `{"tracking_number":"1"}`, wantStatus: http.StatusUnauthorized},
		{name: "malformed body", sessionID: "cs_test_paid", token: testAdminToken, body: `{`, wantStatus: http.StatusBadRequest},
		{name: "missing tracking", sessionID: "cs_test_paid", token: testAdminToken, body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "unknown order", sessionID: "cs_missing", token: testAdminToken, body: `{"tracking_number":"1"}`, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.orders.orders["cs_test_paid"] = paidOrder()

			rec := shipRequest(api, tt.sessionID, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Empty(t, api.orders.shipped)
		})
	}
}

func TestAdmin_DisabledWithoutToken(t *testing.T) {
	api := newTestAPI(t, func(d *Deps) { d.AdminToken = "" })
	api.orders.orders["cs_test_paid"] = paidOrder()

	rec := shipRequest(api, "cs_test_paid", "", `{"tracking_number":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
