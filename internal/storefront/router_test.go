package storefront

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/internal/cartstore"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/service/session"
	"storefront/internal/totals"
)

func logDiscard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var errRemoteDown = errors.New("connection refused")

// downRemote behaves like an unreachable cart service.
type downRemote struct{}

func (downRemote) Get(context.Context) (domain.Cart, error) { return domain.Cart{}, errRemoteDown }
func (downRemote) Add(context.Context, string, domain.Variant, int) (domain.Cart, error) {
	return domain.Cart{}, errRemoteDown
}
func (downRemote) Update(context.Context, string, domain.Variant, int) (domain.Cart, error) {
	return domain.Cart{}, errRemoteDown
}
func (downRemote) Remove(context.Context, string, domain.Variant) (domain.Cart, error) {
	return domain.Cart{}, errRemoteDown
}
func (downRemote) Clear(context.Context) (domain.Cart, error) { return domain.Cart{}, errRemoteDown }

type stubOrders struct {
	mu     sync.Mutex
	err    error
	calls  int
	drafts []domain.OrderDraft
}

func (s *stubOrders) Create(_ context.Context, draft domain.OrderDraft) (domain.OrderConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.drafts = append(s.drafts, draft)
	if s.err != nil {
		return domain.OrderConfirmation{}, s.err
	}
	return domain.OrderConfirmation{
		OrderNumber:    "ORD-20260301-ABCDEFGH",
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		PaymentStatus:  "pending",
		TrackingNumber: "TRK-0123456789",
	}, nil
}

type testEnv struct {
	router   *gin.Engine
	sessions *session.Service
	shoppers *Shoppers
	orders   *stubOrders
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sessions, err := session.New("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("session service: %v", err)
	}
	orders := &stubOrders{}
	shoppers := NewShoppers(Factory{
		Remote:  func(string) cartstore.Remote { return downRemote{} },
		Orders:  func(string) checkout.Orders { return orders },
		Storage: localstore.NewMemory(0),
		Rates:   totals.DefaultRates(),
		Logger:  logDiscard(),
	}, time.Minute)
	t.Cleanup(shoppers.Close)

	router, err := buildRouter(logDiscard(), Deps{
		Sessions:  sessions,
		Shoppers:  shoppers,
		Rates:     totals.DefaultRates(),
		Keepalive: time.Hour,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return &testEnv{router: router, sessions: sessions, shoppers: shoppers, orders: orders}
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	token, _, err := e.sessions.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}

func (e *testEnv) do(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return e.do(method, path, token, "application/json", reader)
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartView {
	t.Helper()
	var v cartView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode cart: %v body=%s", err, rec.Body.String())
	}
	return v
}

func checkoutBody(t *testing.T, email string, proof []byte) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"name":                 "Abebe Kebede",
		"email":                email,
		"phone":                "+251 911 234567",
		"address":              "Bole Road 12",
		"city":                 "Addis Ababa",
		"zip":                  "1000",
		"transactionReference": "FT2403XYZ",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if proof != nil {
		part, err := w.CreateFormFile("paymentProof", "receipt.png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write(proof)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return w.FormDataContentType(), &buf
}

var pngProof = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func TestBuildRouter_MissingDeps(t *testing.T) {
	if _, err := buildRouter(logDiscard(), Deps{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestCart_RequiresSession(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.doJSON(http.MethodGet, "/api/cart", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := env.doJSON(http.MethodGet, "/api/cart", "not-a-token", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", rec.Code)
	}
}

func TestIssueSession_SetsCookie(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doJSON(http.MethodPost, "/api/session", "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, sessionCookie+"="+resp.Token) || !strings.Contains(cookie, "HttpOnly") {
		t.Fatalf("unexpected cookie %q", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: resp.Token})
	got := httptest.NewRecorder()
	env.router.ServeHTTP(got, req)
	if got.Code != http.StatusOK {
		t.Fatalf("expected cookie session to be accepted, got %d", got.Code)
	}
}

func TestCartFlow_Offline(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)

	rec := env.doJSON(http.MethodPost, "/api/cart/items", token, `{"productId":"P1","sku":"SKU-1","name":"Shirt","unitPrice":"1000","quantity":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	cart := decodeCart(t, rec)
	if !cart.Offline || cart.Mode != domain.SyncLocal {
		t.Fatalf("expected offline cart, got mode %s", cart.Mode)
	}
	if len(cart.Items) != 1 || cart.TotalItems != 2 {
		t.Fatalf("unexpected cart %+v", cart)
	}
	lineID := cart.Items[0].ID

	rec = env.doJSON(http.MethodPatch, "/api/cart/items/"+lineID, token, `{"quantity":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set quantity: expected 200, got %d", rec.Code)
	}
	cart = decodeCart(t, rec)
	if !cart.Pricing.Subtotal.Equal(decimal.NewFromInt(3000)) ||
		!cart.Pricing.Tax.Equal(decimal.NewFromInt(150)) ||
		!cart.Pricing.Shipping.Equal(decimal.NewFromInt(50)) ||
		!cart.Pricing.Total.Equal(decimal.NewFromInt(3200)) {
		t.Fatalf("unexpected pricing %+v", cart.Pricing)
	}

	rec = env.doJSON(http.MethodPatch, "/api/cart/items/"+lineID, token, `{"quantity":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("quantity 0: expected 400, got %d", rec.Code)
	}

	rec = env.doJSON(http.MethodDelete, "/api/cart/items/missing", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove missing: expected 200, got %d", rec.Code)
	}

	rec = env.doJSON(http.MethodGet, "/api/cart", token, "")
	cart = decodeCart(t, rec)
	if cart.TotalItems != 3 {
		t.Fatalf("expected 3 items after reload, got %d", cart.TotalItems)
	}

	rec = env.doJSON(http.MethodDelete, "/api/cart", token, "")
	cart = decodeCart(t, rec)
	if len(cart.Items) != 0 || !cart.Subtotal.IsZero() || !cart.Pricing.Shipping.IsZero() {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func TestAddItem_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)
	cases := []string{
		`{"productId":"P1","unitPrice":"10","quantity":0}`,
		`{"productId":"","unitPrice":"10"}`,
		`{"productId":"P1","unitPrice":"0"}`,
		`{broken`,
	}
	for _, body := range cases {
		if rec := env.doJSON(http.MethodPost, "/api/cart/items", token, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestCheckout_Success(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)
	env.doJSON(http.MethodPost, "/api/cart/items", token, `{"productId":"P1","name":"Shirt","unitPrice":"1000","quantity":1}`)

	ct, body := checkoutBody(t, "abebe@example.com", pngProof)
	rec := env.do(http.MethodPost, "/api/checkout", token, ct, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var receipt checkout.Receipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.OrderNumber != "ORD-20260301-ABCDEFGH" || !receipt.Pricing.Total.Equal(decimal.NewFromInt(1100)) {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if got := env.orders.drafts[0].PaymentProof; got == nil || got.ContentType != "image/png" {
		t.Fatalf("expected png proof in draft, got %+v", got)
	}

	cart := decodeCart(t, env.doJSON(http.MethodGet, "/api/cart", token, ""))
	if cart.TotalItems != 0 {
		t.Fatalf("expected cart cleared after order, got %d items", cart.TotalItems)
	}
}

func TestCheckout_InvalidForm(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)
	env.doJSON(http.MethodPost, "/api/cart/items", token, `{"productId":"P1","unitPrice":"1000"}`)

	ct, body := checkoutBody(t, "", nil)
	rec := env.do(http.MethodPost, "/api/checkout", token, ct, body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Errors["email"] == "" || resp.Errors["paymentProof"] == "" {
		t.Fatalf("expected email and proof errors, got %v", resp.Errors)
	}
	if env.orders.calls != 0 {
		t.Fatalf("order service must not be called for an invalid form")
	}
}

func TestCheckout_Validate(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)
	ct, body := checkoutBody(t, "not-an-email", pngProof)
	rec := env.do(http.MethodPost, "/api/checkout/validate", token, ct, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var v checkout.Validation
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Valid || len(v.Errors) != 1 || v.Errors["email"] == "" {
		t.Fatalf("expected only an email error, got %+v", v)
	}
}

func TestCheckout_OrderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "stock conflict", err: domain.ErrStockConflict, want: http.StatusConflict},
		{name: "unreachable", err: errors.New("dial tcp: connection refused"), want: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.orders.err = tc.err
			token := env.token(t)
			env.doJSON(http.MethodPost, "/api/cart/items", token, `{"productId":"P1","unitPrice":"1000","quantity":2}`)

			ct, body := checkoutBody(t, "abebe@example.com", pngProof)
			rec := env.do(http.MethodPost, "/api/checkout", token, ct, body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, rec.Code, rec.Body.String())
			}
			cart := decodeCart(t, env.doJSON(http.MethodGet, "/api/cart", token, ""))
			if cart.TotalItems != 2 {
				t.Fatalf("cart must be untouched after a failed order, got %d items", cart.TotalItems)
			}
			if cart.Checkout != checkout.StateForm {
				t.Fatalf("expected checkout back on the form, got %s", cart.Checkout)
			}
		})
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)
	ct, body := checkoutBody(t, "abebe@example.com", pngProof)
	rec := env.do(http.MethodPost, "/api/checkout", token, ct, body)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "empty_cart") {
		t.Fatalf("expected empty_cart 422, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCheckout_AfterEvictionSubmitsStoredCart(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)
	env.doJSON(http.MethodPost, "/api/cart/items", token, `{"productId":"P1","unitPrice":"1000","quantity":2}`)

	env.shoppers.now = func() time.Time { return time.Now().Add(time.Hour) }
	if n := env.shoppers.Sweep(); n != 1 {
		t.Fatalf("expected shopper evicted, got %d", n)
	}
	env.shoppers.now = time.Now

	ct, body := checkoutBody(t, "abebe@example.com", pngProof)
	rec := env.do(http.MethodPost, "/api/checkout", token, ct, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from a fresh shopper, got %d body=%s", rec.Code, rec.Body.String())
	}
	if lines := env.orders.drafts[0].Lines; len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("expected stored line in draft, got %+v", lines)
	}
}

func TestCartEvents_StreamsChanges(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	token := env.token(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/cart/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	waitEvent := func(name string) {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("waiting for %s: %v", name, err)
			}
			if strings.HasPrefix(line, "event:") && strings.TrimSpace(strings.TrimPrefix(line, "event:")) == name {
				return
			}
		}
	}
	waitEvent("ready")

	add, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/cart/items", strings.NewReader(`{"productId":"P1","unitPrice":"5"}`))
	add.Header.Set("Authorization", "Bearer "+token)
	add.Header.Set("Content-Type", "application/json")
	addResp, err := srv.Client().Do(add)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	addResp.Body.Close()

	waitEvent("cart_changed")
}

func TestShoppers_SweepEvictsIdle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	shoppers := NewShoppers(Factory{
		Remote: func(string) cartstore.Remote { return downRemote{} },
		Orders: func(string) checkout.Orders { return &stubOrders{} },
	}, 10*time.Minute)
	shoppers.now = func() time.Time { return now }

	idle, err := shoppers.Acquire("s1", "t1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	sub := idle.Events.Subscribe()
	if _, err := idle.Cart.AddItem(context.Background(), cartstore.AddInput{ProductID: "P1", UnitPrice: decimal.NewFromInt(10)}, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	<-sub.C()

	now = now.Add(8 * time.Minute)
	if _, err := shoppers.Acquire("s2", "t2"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	now = now.Add(5 * time.Minute)

	if n := shoppers.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if shoppers.Len() != 1 {
		t.Fatalf("expected 1 live shopper, got %d", shoppers.Len())
	}
	if _, err := idle.Cart.Get(context.Background()); !errors.Is(err, cartstore.ErrClosed) {
		t.Fatalf("expected evicted cart to be closed, got %v", err)
	}
	if _, ok := <-sub.C(); ok {
		t.Fatalf("expected subscription closed on eviction")
	}

	again, err := shoppers.Acquire("s1", "t1")
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	cart, err := again.Cart.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cart.TotalItems != 1 {
		t.Fatalf("expected local cart to survive eviction, got %d items", cart.TotalItems)
	}

	shoppers.Close()
	if _, err := shoppers.Acquire("s3", "t3"); !errors.Is(err, cartstore.ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}
