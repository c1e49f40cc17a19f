package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/tiskarna/internal/auth"
	"github.com/erazemk/tiskarna/internal/db"
	"github.com/erazemk/tiskarna/internal/events"
	"github.com/erazemk/tiskarna/internal/model"
	"github.com/erazemk/tiskarna/internal/store"
)

const testJWTSecret = "test-secret"

type testServer struct {
	*httptest.Server
	DB         *sql.DB
	Events     *events.Recorder
	AdminToken string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	rec := &events.Recorder{}
	router := NewRouter(database, testJWTSecret, Options{Events: rec})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	store.CreateUser(ctx, database, "Admin", "admin@tiskarna.local", string(hash), model.RoleAdmin)

	ts := &testServer{Server: server, DB: database, Events: rec}

	resp := ts.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "admin@tiskarna.local", "password": "password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}
	var session struct {
		Token string `json:"token"`
	}
	decode(t, resp, &session)
	if session.Token == "" {
		t.Fatal("empty token from login")
	}
	ts.AdminToken = session.Token
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s",
			resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func (ts *testServer) signup(t *testing.T, name, email string) string {
	t.Helper()
	resp := ts.do(t, "POST", "/api/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "correct-horse",
	})
	expectStatus(t, resp, http.StatusCreated)
	var session struct {
		Token string `json:"token"`
	}
	decode(t, resp, &session)
	return session.Token
}

func orderBody(serviceID, paper string, quantity int) map[string]any {
	return map[string]any{
		"service_id":     serviceID,
		"quantity":       quantity,
		"paper_type":     paper,
		"print_color":    model.ColorFull,
		"print_sides":    model.SidesSingle,
		"orientation":    model.OrientationPortrait,
		"file_name":      "design.pdf",
		"customer_name":  "Ana Novak",
		"customer_email": "ana@example.com",
		"shipping": map[string]string{
			"address": "Trubarjeva 1", "city": "Ljubljana", "zip_code": "1000",
		},
	}
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "admin@tiskarna.local", "password": "wrong",
	})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = ts.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "ADMIN@tiskarna.local", "password": "password",
	})
	expectStatus(t, resp, http.StatusOK)
}

func TestCatalog(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, "GET", "/api/catalog", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var services []model.Service
	decode(t, resp, &services)
	if len(services) != 6 {
		t.Errorf("expected 6 services, got %d", len(services))
	}

	resp = ts.do(t, "GET", "/api/catalog?tier=Premium", "", nil)
	decode(t, resp, &services)
	if len(services) != 3 {
		t.Errorf("expected 3 premium services, got %d", len(services))
	}

	resp = ts.do(t, "GET", "/api/catalog/s-3", "", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = ts.do(t, "GET", "/api/catalog/s-99", "", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestPaperOptions(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	store.CreateInventoryItem(ctx, ts.DB, "Cardstock Premium", "", "sheets", 850, 200, nil)
	store.CreateInventoryItem(ctx, ts.DB, "Cyan Ink Cartridge", "", "units", 12, 5, nil)

	resp := ts.do(t, "GET", "/api/catalog/papers", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var names []string
	decode(t, resp, &names)
	if len(names) != 1 || names[0] != "Cardstock Premium" {
		t.Errorf("unexpected paper options: %v", names)
	}
}

func TestQuote(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, "POST", "/api/quote", "", map[string]any{
		"service_id":  "s-1",
		"quantity":    500,
		"paper_type":  "Cardstock Premium",
		"print_color": model.ColorFull,
		"print_sides": model.SidesSingle,
	})
	expectStatus(t, resp, http.StatusOK)

	var q quoteResponse
	decode(t, resp, &q)
	if q.Base != 112.5 || q.DiscountRate != 0.15 || q.Total != 95.625 {
		t.Errorf("unexpected quote: %+v", q)
	}

	resp = ts.do(t, "POST", "/api/quote", "", map[string]any{"quantity": 10})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSignupDuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.signup(t, "Ana Novak", "ana@example.com")

	resp := ts.do(t, "POST", "/api/auth/signup", "", map[string]string{
		"name": "Ana Again", "email": "ANA@example.com", "password": "another-pass",
	})
	expectStatus(t, resp, http.StatusConflict)

	var body map[string]string
	decode(t, resp, &body)
	if body["error"] != "an account with this email already exists" {
		t.Errorf("unexpected error message: %q", body["error"])
	}

	users, _ := store.ListUsers(context.Background(), ts.DB)
	if len(users) != 2 {
		t.Errorf("expected admin and one customer, got %d users", len(users))
	}
}

func TestSignupValidation(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, "POST", "/api/auth/signup", "", map[string]string{"email": "x@example.com", "password": "short"})
	expectStatus(t, resp, http.StatusBadRequest)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, resp, &body)
	if body.Fields["name"] != "required" {
		t.Errorf("expected name to be required, got %v", body.Fields)
	}
	if body.Fields["password"] == "" {
		t.Errorf("expected password length error, got %v", body.Fields)
	}
}

func TestMeAndLogout(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.signup(t, "Ana Novak", "ana@example.com")

	resp := ts.do(t, "GET", "/api/auth/me", token, nil)
	expectStatus(t, resp, http.StatusOK)
	var me model.User
	decode(t, resp, &me)
	if me.Email != "ana@example.com" || me.Role != model.RoleCustomer || me.AvatarURL == "" {
		t.Errorf("unexpected user: %+v", me)
	}

	resp = ts.do(t, "POST", "/api/auth/logout", token, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = ts.do(t, "GET", "/api/auth/me", token, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestChangePassword(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.signup(t, "Ana Novak", "ana@example.com")

	resp := ts.do(t, "PUT", "/api/auth/password", token, map[string]string{
		"current_password": "wrong-password", "new_password": "new-password-1",
	})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = ts.do(t, "PUT", "/api/auth/password", token, map[string]string{
		"current_password": "correct-horse", "new_password": "new-password-1",
	})
	expectStatus(t, resp, http.StatusOK)

	resp = ts.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "new-password-1",
	})
	expectStatus(t, resp, http.StatusOK)
}

func TestGuestOrderStandardService(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, "POST", "/api/orders", "", orderBody("s-1", "Cardstock Premium", 500))
	expectStatus(t, resp, http.StatusCreated)

	var created orderResponse
	decode(t, resp, &created)
	if created.Order.Status != model.StatusSubmitted {
		t.Errorf("expected Submitted, got %q", created.Order.Status)
	}
	if created.Order.TotalPrice != 95.625 || created.Quote.Total != 95.625 {
		t.Errorf("expected total 95.625, got %v / %v", created.Order.TotalPrice, created.Quote.Total)
	}
	if created.Order.CustomerID != nil {
		t.Error("expected guest order to have no customer id")
	}

	got := ts.Events.Events()
	if len(got) != 1 || got[0].Type != events.TypeOrderSubmitted {
		t.Errorf("expected submitted event, got %+v", got)
	}
}

func TestGuestOrderRequiresContactAndShipping(t *testing.T) {
	ts := setupTestServer(t)

	body := orderBody("s-1", "A4 Matte Paper", 10)
	delete(body, "customer_email")
	body["shipping"] = map[string]string{"address": "Trubarjeva 1"}

	resp := ts.do(t, "POST", "/api/orders", "", body)
	expectStatus(t, resp, http.StatusBadRequest)

	var errs struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, resp, &errs)
	if errs.Fields["shipping.city"] != "required" || errs.Fields["shipping.zip_code"] != "required" {
		t.Errorf("expected shipping fields to be required, got %v", errs.Fields)
	}

	body = orderBody("s-1", "A4 Matte Paper", 10)
	delete(body, "customer_email")
	resp = ts.do(t, "POST", "/api/orders", "", body)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestPremiumServiceRequiresAccount(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, "POST", "/api/orders", "", orderBody("s-6", "Sticker Vinyl", 2))
	expectStatus(t, resp, http.StatusUnauthorized)

	token := ts.signup(t, "Bor Kranjc", "bor@example.com")
	body := orderBody("s-6", "Sticker Vinyl", 2)
	delete(body, "customer_name")
	delete(body, "customer_email")

	resp = ts.do(t, "POST", "/api/orders", token, body)
	expectStatus(t, resp, http.StatusCreated)

	var created orderResponse
	decode(t, resp, &created)
	if created.Order.CustomerEmail != "bor@example.com" || created.Order.CustomerID == nil {
		t.Errorf("expected order to belong to bor, got %+v", created.Order)
	}

	resp = ts.do(t, "GET", "/api/orders/mine", token, nil)
	var mine []model.Order
	decode(t, resp, &mine)
	if len(mine) != 1 {
		t.Errorf("expected 1 order for bor, got %d", len(mine))
	}
}

// submitWithKey posts an order carrying an Idempotency-Key.
func (ts *testServer) submitWithKey(t *testing.T, token, key string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", ts.URL+"/api/orders", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIdempotentSubmit(t *testing.T) {
	ts := setupTestServer(t)

	submit := func() *http.Response {
		return ts.submitWithKey(t, "", "checkout-123", orderBody("s-5", "A4 Matte Paper", 100))
	}

	first := submit()
	expectStatus(t, first, http.StatusCreated)
	var a orderResponse
	decode(t, first, &a)

	second := submit()
	expectStatus(t, second, http.StatusOK)
	var b orderResponse
	decode(t, second, &b)

	if a.Order.ID != b.Order.ID {
		t.Errorf("expected replayed order %d, got %d", a.Order.ID, b.Order.ID)
	}
	if second.Header.Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay header")
	}

	orders, _ := store.ListOrders(context.Background(), ts.DB, store.OrderFilter{})
	if len(orders) != 1 {
		t.Errorf("expected a single stored order, got %d", len(orders))
	}
}

func TestIdempotencyKeyScopedToCaller(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.signup(t, "Ana Novak", "ana@example.com")
	bor := ts.signup(t, "Bor Kranjc", "bor@example.com")

	resp := ts.submitWithKey(t, ana, "1", orderBody("s-5", "A4 Matte Paper", 100))
	expectStatus(t, resp, http.StatusCreated)
	var first orderResponse
	decode(t, resp, &first)

	resp = ts.submitWithKey(t, bor, "1", orderBody("s-1", "Cardstock Premium", 7))
	expectStatus(t, resp, http.StatusCreated)
	var second orderResponse
	decode(t, resp, &second)

	if second.Order.ID == first.Order.ID {
		t.Fatal("expected bor's submission to create its own order")
	}
	if second.Order.CustomerEmail != "bor@example.com" || second.Order.Quantity != 7 {
		t.Errorf("expected bor's order, got %+v", second.Order)
	}
	if resp.Header.Get("Idempotent-Replayed") != "" {
		t.Error("expected no replay header for a new order")
	}

	// Guests with the same key are told apart by e-mail.
	guest := orderBody("s-1", "A4 Matte Paper", 10)
	guest["customer_email"] = "cene@example.com"
	expectStatus(t, ts.submitWithKey(t, "", "1", guest), http.StatusCreated)
	guest["customer_email"] = "dana@example.com"
	expectStatus(t, ts.submitWithKey(t, "", "1", guest), http.StatusCreated)

	orders, _ := store.ListOrders(context.Background(), ts.DB, store.OrderFilter{})
	if len(orders) != 4 {
		t.Errorf("expected 4 stored orders, got %d", len(orders))
	}
}

func TestIdempotencyKeyReusedWithDifferentBody(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.signup(t, "Ana Novak", "ana@example.com")

	expectStatus(t, ts.submitWithKey(t, ana, "checkout-1", orderBody("s-5", "A4 Matte Paper", 100)), http.StatusCreated)
	expectStatus(t, ts.submitWithKey(t, ana, "checkout-1", orderBody("s-5", "A4 Matte Paper", 200)), http.StatusUnprocessableEntity)
	expectStatus(t, ts.submitWithKey(t, ana, "checkout-1", orderBody("s-5", "A4 Matte Paper", 100)), http.StatusOK)

	orders, _ := store.ListOrders(context.Background(), ts.DB, store.OrderFilter{})
	if len(orders) != 1 {
		t.Errorf("expected a single stored order, got %d", len(orders))
	}
}

func TestSignedInOrderUsesAccountEmail(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.signup(t, "Ana Novak", "ana@example.com")
	bor := ts.signup(t, "Bor Kranjc", "bor@example.com")

	body := orderBody("s-1", "A4 Matte Paper", 10)
	body["customer_email"] = "bor@example.com"
	resp := ts.do(t, "POST", "/api/orders", ana, body)
	expectStatus(t, resp, http.StatusCreated)

	var created orderResponse
	decode(t, resp, &created)
	if created.Order.CustomerEmail != "ana@example.com" {
		t.Errorf("expected ana's address on the order, got %q", created.Order.CustomerEmail)
	}

	resp = ts.do(t, "GET", "/api/orders/mine", bor, nil)
	var mine []model.Order
	decode(t, resp, &mine)
	if len(mine) != 0 {
		t.Errorf("expected no orders for bor, got %d", len(mine))
	}
	expectStatus(t, ts.do(t, "GET", "/api/orders/"+itoa(created.Order.ID), bor, nil), http.StatusNotFound)
}

func TestOrderVisibility(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.signup(t, "Ana Novak", "ana@example.com")
	bor := ts.signup(t, "Bor Kranjc", "bor@example.com")

	resp := ts.do(t, "POST", "/api/orders", ana, orderBody("s-1", "A4 Matte Paper", 10))
	var created orderResponse
	decode(t, resp, &created)
	path := "/api/orders/" + itoa(created.Order.ID)

	expectStatus(t, ts.do(t, "GET", path, ana, nil), http.StatusOK)
	expectStatus(t, ts.do(t, "GET", path, ts.AdminToken, nil), http.StatusOK)
	expectStatus(t, ts.do(t, "GET", path, bor, nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, "GET", path, "", nil), http.StatusUnauthorized)
}

func TestReorder(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.signup(t, "Ana Novak", "ana@example.com")

	resp := ts.do(t, "POST", "/api/orders", ana, orderBody("s-1", "Cardstock Premium", 500))
	var created orderResponse
	decode(t, resp, &created)

	resp = ts.do(t, "GET", "/api/orders/"+itoa(created.Order.ID)+"/reorder", ana, nil)
	expectStatus(t, resp, http.StatusOK)

	var draft draftResponse
	decode(t, resp, &draft)
	if draft.ServiceID != "s-1" || draft.Quantity != 500 || draft.Quote.Total != 95.625 {
		t.Errorf("unexpected draft: %+v", draft)
	}
	if draft.Shipping.City != "Ljubljana" {
		t.Errorf("expected shipping to be prefilled, got %+v", draft.Shipping)
	}
}

func TestArtworkUpload(t *testing.T) {
	ts := setupTestServer(t)
	ana := ts.signup(t, "Ana Novak", "ana@example.com")

	resp := ts.do(t, "POST", "/api/orders", ana, orderBody("s-1", "A4 Matte Paper", 10))
	var created orderResponse
	decode(t, resp, &created)
	base := "/api/orders/" + itoa(created.Order.ID)

	expectStatus(t, ts.do(t, "GET", base+"/artwork", ana, nil), http.StatusNotFound)

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := range 40 {
		for y := range 20 {
			img.Set(x, y, color.RGBA{0, 128, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)

	req, _ := http.NewRequest("PUT", ts.URL+base+"/artwork", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Authorization", "Bearer "+ana)
	up, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer up.Body.Close()
	expectStatus(t, up, http.StatusOK)

	resp = ts.do(t, "GET", base+"/artwork", ana, nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("expected original PNG, got %s", resp.Header.Get("Content-Type"))
	}

	resp = ts.do(t, "GET", base+"/preview", ana, nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("expected JPEG preview, got %s", resp.Header.Get("Content-Type"))
	}

	req, _ = http.NewRequest("PUT", ts.URL+base+"/artwork", bytes.NewReader([]byte("GIF89a....")))
	req.Header.Set("Authorization", "Bearer "+ana)
	bad, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer bad.Body.Close()
	expectStatus(t, bad, http.StatusBadRequest)
}

func TestStatusTransitionDeductsOnce(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	item, _ := store.CreateInventoryItem(ctx, ts.DB, "A4 Glossy Paper", "", "sheets", 600, 500, nil)

	resp := ts.do(t, "POST", "/api/orders", "", orderBody("s-5", "A4 Glossy Paper", 200))
	var created orderResponse
	decode(t, resp, &created)
	path := "/api/admin/orders/" + itoa(created.Order.ID) + "/status"

	resp = ts.do(t, "PUT", path, ts.AdminToken, map[string]string{"status": model.StatusPrinting})
	expectStatus(t, resp, http.StatusOK)

	var tr model.Transition
	decode(t, resp, &tr)
	if tr.Deduction == nil || tr.Deduction.Deducted != 200 || tr.Warning != "" {
		t.Fatalf("unexpected transition: %+v", tr)
	}

	resp = ts.do(t, "PUT", path, ts.AdminToken, map[string]string{"status": model.StatusPrinting})
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &tr)
	if tr.Deduction != nil {
		t.Error("expected no deduction on repeated transition")
	}

	got, _ := store.GetInventoryItem(ctx, ts.DB, item.ID)
	if got.Quantity != 400 {
		t.Errorf("expected 400 sheets, got %d", got.Quantity)
	}

	var lowStock int
	for _, e := range ts.Events.Events() {
		if e.Type == events.TypeStockLow {
			lowStock++
		}
	}
	if lowStock != 1 {
		t.Errorf("expected one low stock event, got %d", lowStock)
	}
}

func TestStatusTransitionInsufficientStock(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	store.CreateInventoryItem(ctx, ts.DB, "A4 Matte Paper", "", "sheets", 150, 300, nil)

	resp := ts.do(t, "POST", "/api/orders", "", orderBody("s-5", "A4 Matte Paper", 200))
	var created orderResponse
	decode(t, resp, &created)

	resp = ts.do(t, "PUT", "/api/admin/orders/"+itoa(created.Order.ID)+"/status", ts.AdminToken,
		map[string]string{"status": model.StatusPrinting})
	expectStatus(t, resp, http.StatusOK)

	var tr model.Transition
	decode(t, resp, &tr)
	if tr.Warning == "" || tr.Order.Status != model.StatusPrinting {
		t.Errorf("expected warning with the transition applied, got %+v", tr)
	}
}

func TestStatusTransitionErrors(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, "POST", "/api/orders", "", orderBody("s-1", "A4 Matte Paper", 10))
	var created orderResponse
	decode(t, resp, &created)

	resp = ts.do(t, "PUT", "/api/admin/orders/"+itoa(created.Order.ID)+"/status", ts.AdminToken,
		map[string]string{"status": "Shipped"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = ts.do(t, "PUT", "/api/admin/orders/999/status", ts.AdminToken,
		map[string]string{"status": model.StatusPrinting})
	expectStatus(t, resp, http.StatusNotFound)
}

func TestAdminEditReprices(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, "POST", "/api/orders", "", orderBody("s-1", "A4 Matte Paper", 100))
	var created orderResponse
	decode(t, resp, &created)

	resp = ts.do(t, "PUT", "/api/admin/orders/"+itoa(created.Order.ID), ts.AdminToken, map[string]any{
		"quantity": 500, "paper_type": "Cardstock Premium",
	})
	expectStatus(t, resp, http.StatusOK)

	var edited orderResponse
	decode(t, resp, &edited)
	if edited.Order.TotalPrice != 95.625 || edited.Order.Quantity != 500 {
		t.Errorf("expected repriced order, got %+v", edited.Order)
	}
}

func TestAdminOrderList(t *testing.T) {
	ts := setupTestServer(t)
	for _, qty := range []int{10, 300, 50} {
		ts.do(t, "POST", "/api/orders", "", orderBody("s-1", "A4 Matte Paper", qty))
	}

	resp := ts.do(t, "GET", "/api/admin/orders?sort=quantity&dir=desc", ts.AdminToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var orders []model.Order
	decode(t, resp, &orders)
	if len(orders) != 3 || orders[0].Quantity != 300 {
		t.Errorf("unexpected order list: %v", orders)
	}

	resp = ts.do(t, "GET", "/api/admin/orders?status=Printing", ts.AdminToken, nil)
	decode(t, resp, &orders)
	if len(orders) != 0 {
		t.Errorf("expected no printing orders, got %d", len(orders))
	}

	expectStatus(t, ts.do(t, "GET", "/api/admin/orders?sort=password", ts.AdminToken, nil), http.StatusBadRequest)
	expectStatus(t, ts.do(t, "GET", "/api/admin/orders?from=yesterday", ts.AdminToken, nil), http.StatusBadRequest)
}

func TestInventoryAPIFlow(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, "POST", "/api/admin/inventory", ts.AdminToken, map[string]any{
		"name": "Magenta Ink Cartridge", "unit": "units", "quantity": 1, "threshold": 5,
	})
	expectStatus(t, resp, http.StatusCreated)
	var item model.InventoryItem
	decode(t, resp, &item)
	if item.SKU != "MAGENTA-INK-CARTRIDGE" || !item.LowStock {
		t.Errorf("unexpected item: %+v", item)
	}
	base := "/api/admin/inventory/" + itoa(item.ID)

	resp = ts.do(t, "POST", "/api/admin/inventory", ts.AdminToken, map[string]any{"name": "Magenta Ink Cartridge"})
	expectStatus(t, resp, http.StatusConflict)

	resp = ts.do(t, "POST", base+"/deduct", ts.AdminToken, map[string]any{"amount": 3})
	expectStatus(t, resp, http.StatusOK)
	var deducted struct {
		Item    model.InventoryItem `json:"item"`
		Warning string              `json:"warning"`
	}
	decode(t, resp, &deducted)
	if deducted.Item.Quantity != 0 || deducted.Warning == "" {
		t.Errorf("expected floor at 0 with warning, got %+v", deducted)
	}

	resp = ts.do(t, "POST", base+"/restock", ts.AdminToken, map[string]any{"amount": 20, "notes": "delivery"})
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &item)
	if item.Quantity != 20 || item.LowStock {
		t.Errorf("unexpected item after restock: %+v", item)
	}

	resp = ts.do(t, "PUT", base, ts.AdminToken, map[string]any{"name": "Magenta Ink XL", "threshold": 8})
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &item)
	if item.Name != "Magenta Ink XL" || item.Unit != "units" || item.Threshold != 8 {
		t.Errorf("unexpected item after update: %+v", item)
	}

	resp = ts.do(t, "GET", base+"/movements", ts.AdminToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var movements []model.StockMovement
	decode(t, resp, &movements)
	if len(movements) != 3 {
		t.Errorf("expected initial, manual and restock movements, got %d", len(movements))
	}

	expectStatus(t, ts.do(t, "DELETE", base, ts.AdminToken, nil), http.StatusNoContent)
	expectStatus(t, ts.do(t, "GET", base, ts.AdminToken, nil), http.StatusNotFound)
}

func TestInventoryBulk(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	a, _ := store.CreateInventoryItem(ctx, ts.DB, "A", "", "sheets", 100, 5, nil)
	b, _ := store.CreateInventoryItem(ctx, ts.DB, "B", "", "sheets", 4, 1, nil)

	resp := ts.do(t, "POST", "/api/admin/inventory/bulk", ts.AdminToken, map[string]any{
		"ids": []int64{a.ID, b.ID}, "action": "deduct", "value": 10,
	})
	expectStatus(t, resp, http.StatusOK)
	var items []model.InventoryItem
	decode(t, resp, &items)
	if len(items) != 2 || items[0].Quantity != 90 || items[1].Quantity != 0 {
		t.Errorf("unexpected bulk result: %+v", items)
	}

	resp = ts.do(t, "POST", "/api/admin/inventory/bulk", ts.AdminToken, map[string]any{
		"ids": []int64{a.ID}, "action": "explode", "value": 1,
	})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = ts.do(t, "GET", "/api/admin/inventory?low=true", ts.AdminToken, nil)
	decode(t, resp, &items)
	if len(items) != 1 || items[0].Name != "B" {
		t.Errorf("expected only B to be low, got %v", items)
	}
}

func TestDashboard(t *testing.T) {
	ts := setupTestServer(t)
	ts.do(t, "POST", "/api/orders", "", orderBody("s-1", "A4 Matte Paper", 500))

	resp := ts.do(t, "GET", "/api/admin/dashboard", ts.AdminToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var d store.Dashboard
	decode(t, resp, &d)
	if d.TotalOrders != 1 || d.PendingOrders != 1 || len(d.RecentOrders) != 1 {
		t.Errorf("unexpected dashboard: %+v", d)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ts := setupTestServer(t)
	store.CreateInventoryItem(context.Background(), ts.DB, "A4 Matte Paper", "", "sheets", 150, 300, nil)
	ts.do(t, "POST", "/api/orders", "", orderBody("s-1", "A4 Matte Paper", 10))

	resp := ts.do(t, "GET", "/api/admin/snapshot", ts.AdminToken, nil)
	expectStatus(t, resp, http.StatusOK)
	exported, _ := io.ReadAll(resp.Body)

	other := setupTestServer(t)
	req, _ := http.NewRequest("POST", other.URL+"/api/admin/snapshot", bytes.NewReader(exported))
	req.Header.Set("Authorization", "Bearer "+other.AdminToken)
	imp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	defer imp.Body.Close()
	expectStatus(t, imp, http.StatusOK)

	orders, _ := store.ListOrders(context.Background(), other.DB, store.OrderFilter{})
	if len(orders) != 1 {
		t.Errorf("expected imported order, got %d", len(orders))
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	ts := setupTestServer(t)

	expectStatus(t, ts.do(t, "GET", "/api/admin/inventory", "", nil), http.StatusUnauthorized)
	expectStatus(t, ts.do(t, "GET", "/api/orders/mine", "", nil), http.StatusUnauthorized)
	expectStatus(t, ts.do(t, "POST", "/api/orders", "garbage", orderBody("s-1", "A4", 1)), http.StatusUnauthorized)
}

func TestRoleBasedAccess(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.signup(t, "Ana Novak", "ana@example.com")

	expectStatus(t, ts.do(t, "GET", "/api/admin/orders", token, nil), http.StatusForbidden)
	expectStatus(t, ts.do(t, "POST", "/api/admin/inventory/bulk", token, nil), http.StatusForbidden)

	forged, _ := auth.GenerateToken("other-secret", 1, "admin@tiskarna.local", "Admin", model.RoleAdmin)
	expectStatus(t, ts.do(t, "GET", "/api/admin/orders", forged, nil), http.StatusUnauthorized)
}

func TestAdminUsers(t *testing.T) {
	ts := setupTestServer(t)
	customer := ts.signup(t, "Ana Novak", "ana@example.com")

	resp := ts.do(t, "GET", "/api/admin/users?role="+model.RoleCustomer, ts.AdminToken, nil)
	expectStatus(t, resp, http.StatusOK)

	var users []map[string]any
	decode(t, resp, &users)
	if len(users) != 1 || users[0]["email"] != "ana@example.com" {
		t.Fatalf("expected only ana, got %v", users)
	}
	if _, ok := users[0]["password_hash"]; ok {
		t.Error("password hash must not be exposed")
	}

	path := "/api/admin/users/" + itoa(int64(users[0]["id"].(float64)))
	expectStatus(t, ts.do(t, "GET", path, ts.AdminToken, nil), http.StatusOK)
	expectStatus(t, ts.do(t, "GET", "/api/admin/users/9999", ts.AdminToken, nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, "GET", "/api/admin/users?role=owner", ts.AdminToken, nil), http.StatusBadRequest)
	expectStatus(t, ts.do(t, "GET", "/api/admin/users", customer, nil), http.StatusForbidden)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
