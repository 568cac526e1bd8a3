package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"reweave/internal/config"
	"reweave/internal/domain/model"
	"reweave/internal/infra/auth"
	"reweave/internal/infra/memory"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// helper
// =====================

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type testApp struct {
	t     *testing.T
	e     *echo.Echo
	store *memory.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := memory.NewStore()
	cfg := config.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		BcryptCost:      4,
		ProductCacheTTL: time.Minute,
		FEURL:           "http://localhost:5173",
	}
	e := NewApp(cfg, zap.NewNop(), Backend{Tx: store, Repos: store.Repos()}, nil)
	return &testApp{t: t, e: e, store: store}
}

func (a *testApp) do(method, path string, body interface{}, header map[string]string) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func bearer(token string) map[string]string {
	return map[string]string{echo.HeaderAuthorization: "Bearer " + token}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type loginData struct {
	User struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Token struct {
		AccessToken string `json:"access_token"`
	} `json:"token"`
}

type cartData struct {
	Items []struct {
		ID       int64 `json:"id"`
		Quantity int64 `json:"quantity"`
	} `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

type orderData struct {
	Order struct {
		ID            int64           `json:"id"`
		OrderNumber   string          `json:"order_number"`
		Status        string          `json:"status"`
		PaymentStatus string          `json:"payment_status"`
		Total         decimal.Decimal `json:"total"`
	} `json:"order"`
}

func (a *testApp) seedAdmin(email, password string) {
	a.t.Helper()
	hash, err := auth.NewBcryptPasswordHasher(4).Hash(password)
	require.NoError(a.t, err)
	require.NoError(a.t, a.store.Repos().Users().Create(context.Background(), &model.User{
		Email:        email,
		Name:         "Admin",
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
	}))
}

func (a *testApp) login(email, password string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, nil)
	require.Equal(a.t, http.StatusOK, code, env.Error)
	return decode[loginData](a.t, env.Data).Token.AccessToken
}

// =====================
// tests
// =====================

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

// 管理者が商品を作り、ゲストがカートに入れ、登録して注文し、管理者が発送する
func TestStorefrontFlow(t *testing.T) {
	app := newTestApp(t)
	app.seedAdmin("admin@reweave.test", "AdminPass99")
	adminToken := app.login("admin@reweave.test", "AdminPass99")

	code, env := app.do(http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name":          "Batik Shirt",
		"price":         "60.00",
		"status":        "active",
		"initial_stock": 10,
	}, bearer(adminToken))
	require.Equal(t, http.StatusCreated, code, env.Error)
	product := decode[struct {
		ID int64 `json:"id"`
	}](t, env.Data)

	// ゲストカート
	code, env = app.do(http.MethodPost, "/api/cart/session", nil, nil)
	require.Equal(t, http.StatusCreated, code)
	sid := decode[map[string]string](t, env.Data)["session_id"]
	require.NotEmpty(t, sid)
	guest := map[string]string{"X-Session-Id": sid}

	code, env = app.do(http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": product.ID, "quantity": 2}, guest)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "Item added to cart", env.Message)
	cart := decode[cartData](t, env.Data)
	assert.True(t, decimal.RequireFromString("142.2").Equal(cart.Total), cart.Total.String())

	// 在庫を超える追加は在庫不足（snake_caseのbodyも読む）
	code, env = app.do(http.MethodPost, "/api/cart/items", map[string]interface{}{"product_id": product.ID, "quantity": 9}, guest)
	require.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	// 登録するとゲストカートが引き継がれる
	code, env = app.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "aina@reweave.test", "password": "Sup3rSecret!", "name": "Aina",
	}, guest)
	require.Equal(t, http.StatusCreated, code, env.Error)
	userToken := decode[loginData](t, env.Data).Token.AccessToken

	code, env = app.do(http.MethodGet, "/api/cart", nil, bearer(userToken))
	require.Equal(t, http.StatusOK, code)
	require.Len(t, decode[cartData](t, env.Data).Items, 1)

	// 一般ユーザーは管理APIに入れない
	code, env = app.do(http.MethodGet, "/api/admin/orders", nil, bearer(userToken))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "admin only", env.Error)

	// 注文
	checkout := map[string]interface{}{
		"paymentMethod": "card",
		"shippingAddress": map[string]string{
			"recipient_name": "Aina",
			"phone":          "0123456789",
			"address_line1":  "1 Jalan Ampang",
			"city":           "Kuala Lumpur",
			"state":          "WP",
			"postal_code":    "50450",
		},
	}
	headers := bearer(userToken)
	headers["X-Idempotency-Key"] = "checkout-1"
	code, env = app.do(http.MethodPost, "/api/orders", checkout, headers)
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.Equal(t, "Order created successfully", env.Message)
	order := decode[orderData](t, env.Data).Order
	assert.Regexp(t, `^RW\d{8}[0-9A-Z]{4}$`, order.OrderNumber)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "pending", order.PaymentStatus)

	// 同じキーは同じ注文
	code, env = app.do(http.MethodPost, "/api/orders", checkout, headers)
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.Equal(t, order.ID, decode[orderData](t, env.Data).Order.ID)

	code, env = app.do(http.MethodGet, "/api/cart", nil, bearer(userToken))
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[cartData](t, env.Data).Items)

	// 管理者がステータスを進める
	for _, s := range []string{"confirmed", "processing", "shipped"} {
		code, env = app.do(http.MethodPut, "/api/admin/orders/"+itoa(order.ID)+"/status", map[string]string{"status": s}, bearer(adminToken))
		require.Equal(t, http.StatusOK, code, env.Error)
	}
	code, env = app.do(http.MethodPut, "/api/admin/orders/"+itoa(order.ID)+"/status", map[string]string{"status": "pending"}, bearer(adminToken))
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = app.do(http.MethodGet, "/api/admin/audit-logs?resource_type=order", nil, bearer(adminToken))
	require.Equal(t, http.StatusOK, code, env.Error)
	logs := decode[struct {
		Total int64 `json:"total"`
	}](t, env.Data)
	assert.Equal(t, int64(3), logs.Total)

	// 発送済みはキャンセルできない
	code, _ = app.do(http.MethodPost, "/api/orders/"+itoa(order.ID)+"/cancel", nil, bearer(userToken))
	assert.Equal(t, http.StatusBadRequest, code)
}

// 強制ログアウト後は古いトークンが使えない
func TestForceLogout(t *testing.T) {
	app := newTestApp(t)
	app.seedAdmin("admin@reweave.test", "AdminPass99")
	adminToken := app.login("admin@reweave.test", "AdminPass99")

	code, env := app.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "aina@reweave.test", "password": "Sup3rSecret!",
	}, nil)
	require.Equal(t, http.StatusCreated, code, env.Error)
	reg := decode[loginData](t, env.Data)

	code, _ = app.do(http.MethodGet, "/api/users/me", nil, bearer(reg.Token.AccessToken))
	require.Equal(t, http.StatusOK, code)

	code, env = app.do(http.MethodPost, "/api/admin/users/"+itoa(reg.User.ID)+"/force-logout", nil, bearer(adminToken))
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = app.do(http.MethodGet, "/api/users/me", nil, bearer(reg.Token.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", env.Error)

	fresh := app.login("aina@reweave.test", "Sup3rSecret!")
	code, _ = app.do(http.MethodGet, "/api/users/me", nil, bearer(fresh))
	assert.Equal(t, http.StatusOK, code)
}

// ゲストは参照と追加だけ。変更・削除はログインが要る
func TestCartMutationsRequireLogin(t *testing.T) {
	app := newTestApp(t)
	app.seedAdmin("admin@reweave.test", "AdminPass99")
	adminToken := app.login("admin@reweave.test", "AdminPass99")

	code, env := app.do(http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name": "Songket Scarf", "price": "40.00", "status": "active", "initial_stock": 10,
	}, bearer(adminToken))
	require.Equal(t, http.StatusCreated, code, env.Error)
	productID := decode[struct {
		ID int64 `json:"id"`
	}](t, env.Data).ID

	guest := map[string]string{"X-Session-Id": "guest-1"}
	code, env = app.do(http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": productID, "quantity": 1}, guest)
	require.Equal(t, http.StatusOK, code, env.Error)
	itemID := decode[cartData](t, env.Data).Items[0].ID

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"update", http.MethodPut, "/api/cart/items/" + itoa(itemID), map[string]int{"quantity": 3}},
		{"remove", http.MethodDelete, "/api/cart/items/" + itoa(itemID), nil},
		{"clear", http.MethodDelete, "/api/cart/clear", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := app.do(tt.method, tt.path, tt.body, guest)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, "unauthorized", env.Error)
		})
	}

	// ゲストカートは無傷
	code, env = app.do(http.MethodGet, "/api/cart", nil, guest)
	require.Equal(t, http.StatusOK, code)
	cart := decode[cartData](t, env.Data)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(1), cart.Items[0].Quantity)

	// ログインすれば変更できる
	code, env = app.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "siti@reweave.test", "password": "Sup3rSecret!", "name": "Siti",
	}, guest)
	require.Equal(t, http.StatusCreated, code, env.Error)
	member := bearer(decode[loginData](t, env.Data).Token.AccessToken)

	code, env = app.do(http.MethodPut, "/api/cart/items/"+itoa(itemID), map[string]int{"quantity": 3}, member)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, int64(3), decode[cartData](t, env.Data).Items[0].Quantity)

	code, env = app.do(http.MethodDelete, "/api/cart/clear", nil, member)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Empty(t, decode[cartData](t, env.Data).Items)
}

func TestProductAvailability(t *testing.T) {
	app := newTestApp(t)
	app.seedAdmin("admin@reweave.test", "AdminPass99")
	adminToken := app.login("admin@reweave.test", "AdminPass99")

	code, env := app.do(http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name": "Batik Tote", "price": "25.00", "status": "active", "initial_stock": 10,
	}, bearer(adminToken))
	require.Equal(t, http.StatusCreated, code, env.Error)
	productID := decode[struct {
		ID int64 `json:"id"`
	}](t, env.Data).ID

	type availability struct {
		Available bool  `json:"available"`
		Quantity  int64 `json:"available_quantity"`
	}

	code, env = app.do(http.MethodGet, "/api/products/"+itoa(productID)+"/availability", nil, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, availability{Available: true, Quantity: 10}, decode[availability](t, env.Data))

	code, env = app.do(http.MethodGet, "/api/products/"+itoa(productID)+"/availability?quantity=11", nil, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, availability{Available: false, Quantity: 10}, decode[availability](t, env.Data))

	code, env = app.do(http.MethodGet, "/api/products/"+itoa(productID)+"/availability?variant_id=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid variant_id", env.Error)

	code, _ = app.do(http.MethodGet, "/api/products/9999/availability", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCartRequiresOwner(t *testing.T) {
	app := newTestApp(t)
	code, env := app.do(http.MethodGet, "/api/cart", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Session ID or User ID required", env.Error)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
