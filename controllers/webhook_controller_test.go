package controllers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/controllers"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/middleware"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/models"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/providers"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/routes"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ---- compact in-memory repos, just enough for the webhook paths ----

type stubCheckoutRepo struct {
	rows      map[string]*models.Checkout
	upsertErr error
}

func newStubCheckoutRepo() *stubCheckoutRepo {
	return &stubCheckoutRepo{rows: map[string]*models.Checkout{}}
}

func (r *stubCheckoutRepo) Upsert(_ context.Context, c *models.Checkout) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if existing, ok := r.rows[c.CheckoutID]; ok {
		c.CreatedAt = existing.CreatedAt
		c.CampaignSentAt = existing.CampaignSentAt
	} else {
		c.CreatedAt = time.Now()
	}
	cp := *c
	r.rows[c.CheckoutID] = &cp
	return nil
}

func (r *stubCheckoutRepo) FindByCheckoutID(_ context.Context, id string) (*models.Checkout, error) {
	c, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCheckoutRepo) FindFirstByEmail(_ context.Context, email string) (*models.Checkout, error) {
	for _, c := range r.rows {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCheckoutRepo) FindAbandonmentCandidates(context.Context, time.Time) ([]models.Checkout, error) {
	return nil, nil
}

func (r *stubCheckoutRepo) FindLatest(context.Context, int) ([]models.Checkout, error) {
	return nil, nil
}

func (r *stubCheckoutRepo) MarkConverted(_ context.Context, email, orderID string) (int64, error) {
	var n int64
	for _, c := range r.rows {
		if c.Email == email && c.Status == models.CheckoutStatusPending {
			c.Status = models.CheckoutStatusConverted
			id := orderID
			c.OrderID = &id
			n++
		}
	}
	return n, nil
}

func (r *stubCheckoutRepo) MarkAbandoned(_ context.Context, id string) error {
	if c, ok := r.rows[id]; ok {
		c.Status = models.CheckoutStatusAbandoned
	}
	return nil
}

func (r *stubCheckoutRepo) MarkCampaignSent(_ context.Context, id string, sentAt time.Time) error {
	if c, ok := r.rows[id]; ok && c.CampaignSentAt == nil {
		t := sentAt
		c.CampaignSentAt = &t
	}
	return nil
}

func (r *stubCheckoutRepo) RequeueAbandoned(context.Context) (int64, error) { return 0, nil }
func (r *stubCheckoutRepo) DeleteAll(context.Context) error                { return nil }

type stubOrderRepo struct {
	rows map[string]*models.Order
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{rows: map[string]*models.Order{}}
}

func (r *stubOrderRepo) Upsert(_ context.Context, o *models.Order) error {
	cp := *o
	r.rows[o.OrderID] = &cp
	return nil
}

func (r *stubOrderRepo) FindByOrderID(_ context.Context, id string) (*models.Order, error) {
	o, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *stubOrderRepo) FindLatest(context.Context, int) ([]models.Order, error) { return nil, nil }

func (r *stubOrderRepo) MarkCampaignSent(_ context.Context, id string, sentAt time.Time) error {
	if o, ok := r.rows[id]; ok && o.CampaignSentAt == nil {
		t := sentAt
		o.CampaignSentAt = &t
	}
	return nil
}

func (r *stubOrderRepo) DeleteAll(context.Context) error { return nil }

type stubCustomerRepo struct {
	rows map[string]*models.Customer
}

func newStubCustomerRepo() *stubCustomerRepo {
	return &stubCustomerRepo{rows: map[string]*models.Customer{}}
}

func (r *stubCustomerRepo) Upsert(_ context.Context, c *models.Customer) error {
	cp := *c
	r.rows[c.CustomerID] = &cp
	return nil
}

func (r *stubCustomerRepo) FindByCustomerID(_ context.Context, id string) (*models.Customer, error) {
	c, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCustomerRepo) FindLatest(context.Context, int) ([]models.Customer, error) {
	return nil, nil
}

func (r *stubCustomerRepo) MarkCampaignSent(_ context.Context, id string, sentAt time.Time) error {
	if c, ok := r.rows[id]; ok && c.CampaignSentAt == nil {
		t := sentAt
		c.CampaignSentAt = &t
	}
	return nil
}

func (r *stubCustomerRepo) DeleteAll(context.Context) error { return nil }

type stubProvider struct {
	calls int
}

func (p *stubProvider) AddToList(_ context.Context, listID string, _ providers.Prospect) providers.Outcome {
	if listID == "" {
		return providers.Outcome{Status: providers.OutcomeSkipped, Reason: "list id not configured"}
	}
	p.calls++
	return providers.Outcome{Status: providers.OutcomeSuccess}
}

// ---- harness ----

type controllerEnv struct {
	checkouts *stubCheckoutRepo
	orders    *stubOrderRepo
	customers *stubCustomerRepo
	provider  *stubProvider
	router    *gin.Engine
}

func newControllerEnv(t *testing.T) *controllerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()

	env := &controllerEnv{
		checkouts: newStubCheckoutRepo(),
		orders:    newStubOrderRepo(),
		customers: newStubCustomerRepo(),
		provider:  &stubProvider{},
	}

	lifecycle := services.NewLifecycleService(
		env.checkouts, env.orders, env.customers, env.provider,
		services.CampaignLists{Abandoned: "list-a", Upsell: "list-u", Welcome: "list-w"},
		nil, "", logger,
	)
	wc := controllers.NewWebhookController(lifecycle, logger)

	env.router = gin.New()
	env.router.POST("/webhook/checkout", wc.HandleCheckout)
	env.router.POST("/webhook/order", wc.HandleOrder)
	env.router.POST("/webhook/customer", wc.HandleCustomer)
	return env
}

func (env *controllerEnv) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// ---- tests ----

func TestHandleCheckout_StoresNormalizedCheckout(t *testing.T) {
	env := newControllerEnv(t)

	w := env.post("/webhook/checkout", `{
		"id": 9001,
		"email": "alice@example.com",
		"total_price": "149.99",
		"currency": "EUR",
		"abandoned_checkout_url": "https://shop.example/recover/9001",
		"customer": {"first_name": "Alice", "last_name": "Johnson"}
	}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "9001", resp["checkout_id"])

	stored := env.checkouts.rows["9001"]
	assert.NotNil(t, stored)
	assert.Equal(t, models.CheckoutStatusPending, stored.Status)
	assert.Equal(t, 149.99, stored.CartValue)
	assert.Equal(t, "EUR", stored.Currency)
	assert.Equal(t, "Alice", stored.FirstName)
	assert.Zero(t, env.provider.calls, "checkout ingestion must not dispatch")
}

func TestHandleCheckout_InvalidJSONIsBadRequest(t *testing.T) {
	env := newControllerEnv(t)

	w := env.post("/webhook/checkout", `{"id": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.checkouts.rows)
}

func TestHandleCheckout_StoreFailureIsServerError(t *testing.T) {
	env := newControllerEnv(t)
	env.checkouts.upsertErr = errors.New("db unavailable")

	w := env.post("/webhook/checkout", `{"id": 9002, "email": "bob@example.com", "total_price": "10.00"}`)

	// 500 tells the webhook source to redeliver.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleOrder_ConvertsMatchingCheckout(t *testing.T) {
	env := newControllerEnv(t)

	env.post("/webhook/checkout", `{"id": 9003, "email": "carol@example.com", "total_price": "50.00"}`)
	w := env.post("/webhook/order", `{"id": 7001, "email": "carol@example.com", "total_price": "50.00", "currency": "USD"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	checkout := env.checkouts.rows["9003"]
	assert.Equal(t, models.CheckoutStatusConverted, checkout.Status)
	if assert.NotNil(t, checkout.OrderID) {
		assert.Equal(t, "7001", *checkout.OrderID)
	}

	order := env.orders.rows["7001"]
	assert.NotNil(t, order)
	assert.NotNil(t, order.CampaignSentAt, "upsell dispatch stamps the order gate")
}

func TestHandleCustomer_TriggersWelcomeOnce(t *testing.T) {
	env := newControllerEnv(t)
	payload := `{"id": 5001, "email": "dan@example.com", "first_name": "Dan", "last_name": "Field"}`

	w := env.post("/webhook/customer", payload)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.post("/webhook/customer", payload)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, env.provider.calls, "redelivery must not re-dispatch")
	assert.NotNil(t, env.customers.rows["5001"].CampaignSentAt)
}

// Full route wiring: signed request passes the HMAC middleware and reaches
// the controller; unsigned is rejected before binding.
func TestWebhookRoutes_SignatureEnforced(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()

	checkouts := newStubCheckoutRepo()
	lifecycle := services.NewLifecycleService(
		checkouts, newStubOrderRepo(), newStubCustomerRepo(), &stubProvider{},
		services.CampaignLists{}, nil, "", logger,
	)
	wc := controllers.NewWebhookController(lifecycle, logger)

	router := gin.New()
	routes.RegisterWebhookRoutes(router, wc, "route-secret", logger)

	body := []byte(`{"id": 9004, "email": "eve@example.com", "total_price": "25.00"}`)
	mac := hmac.New(sha256.New, []byte("route-secret"))
	mac.Write(body)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhook/checkout", bytes.NewReader(body))
	req.Header.Set(middleware.HMACHeader, signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, checkouts.rows["9004"])

	req = httptest.NewRequest(http.MethodPost, "/webhook/checkout", bytes.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
