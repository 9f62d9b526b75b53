/*
handlers_test.go - End-to-end tests for the HTTP surface

Tests drive the real router against an in-memory SQLite store, so every
request exercises the full pipeline: JSON decoding, orchestration, the
guard, the ledger, and the response contract.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldloop/rewards-engine/ledger"
	"github.com/fieldloop/rewards-engine/scan"
	"github.com/fieldloop/rewards-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	testTokenA = "11111111-1111-4111-8111-111111111111"
	testTokenB = "22222222-2222-4222-8222-222222222222"
)

func newTestServer(t *testing.T, jwtSecret string) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, scan.DefaultDomains(), ledger.DefaultLevelSchedule(), jwtSecret)
	return h, NewRouter(h)
}

func seedTestProduct(t *testing.T, h *Handler, token string, name string, points int64) {
	t.Helper()
	err := h.Store.SaveProduct(context.Background(), ledger.Product{
		Token: ledger.ScanToken(token), Name: name, PointValue: points, Active: true,
	})
	if err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func productURL(token string) string {
	return "https://rewards.fieldloop.com/p/" + token
}

// =============================================================================
// SCAN ENDPOINT
// =============================================================================

func TestPostScan_Success(t *testing.T) {
	// GIVEN: An active 100-point product
	// WHEN: POST /api/scans with its code
	// THEN: 200 with pointsAwarded=100 and newBalance=100

	h, router := newTestServer(t, "")
	seedTestProduct(t, h, testTokenA, "Smart Thermostat", 100)

	rec := doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[ScanResponse](t, rec)
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.ProductName != "Smart Thermostat" || resp.PointsAwarded != 100 || resp.NewBalance != 100 {
		t.Errorf("unexpected payload: %+v", resp)
	}
}

func TestPostScan_CompletesOnSingleConnectionStore(t *testing.T) {
	// GIVEN: The SQLite store, which holds a single pooled connection
	// WHEN: A scan opens the claim transaction
	// THEN: The request finishes. No query inside the transaction may go
	//       back to the pool and wait on the connection the open
	//       transaction already holds.

	h, router := newTestServer(t, "")
	seedTestProduct(t, h, testTokenA, "Zone Valve", 50)

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(ScanRequest{
		Token: productURL(testTokenA), UserID: "user-1",
	}); err != nil {
		t.Fatalf("Failed to encode body: %v", err)
	}

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/scans", &body)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		done <- rec
	}()

	select {
	case rec := <-done:
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scan request never completed on the single-connection store")
	}
}

func TestPostScan_DuplicateByOtherUser(t *testing.T) {
	// GIVEN: A code already scanned by user-1
	// WHEN: user-2 posts the same code
	// THEN: 409 DUPLICATE_SCAN naming user-1, alreadyCredited=false

	h, router := newTestServer(t, "")
	seedTestProduct(t, h, testTokenA, "Smart Thermostat", 100)

	first := doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}, "")
	if first.Code != http.StatusOK {
		t.Fatalf("first scan failed: %s", first.Body.String())
	}

	rec := doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-2"}, "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	resp := decode[ScanResponse](t, rec)
	if resp.Success || resp.ErrorCode != scan.CodeDuplicateScan {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Details == nil || resp.Details.ScannedBy != "user-1" || resp.Details.AlreadyCredited {
		t.Errorf("unexpected duplicate details: %+v", resp.Details)
	}
}

func TestPostScan_DuplicateBySameUserIsAlreadyCredited(t *testing.T) {
	h, router := newTestServer(t, "")
	seedTestProduct(t, h, testTokenA, "Smart Thermostat", 100)

	doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}, "")
	rec := doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}, "")

	resp := decode[ScanResponse](t, rec)
	if resp.Details == nil || !resp.Details.AlreadyCredited {
		t.Errorf("same-user duplicate should set alreadyCredited, got %+v", resp.Details)
	}
}

func TestPostScan_MalformedCode(t *testing.T) {
	// GIVEN: The raw string "not-a-url"
	// WHEN: Posted as a scan
	// THEN: 400 INVALID_FORMAT and no ledger side effects

	h, router := newTestServer(t, "")

	rec := doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: "not-a-url", UserID: "user-1"}, "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decode[ScanResponse](t, rec)
	if resp.ErrorCode != scan.CodeInvalidFormat {
		t.Errorf("errorCode = %q, want INVALID_FORMAT", resp.ErrorCode)
	}

	comp, err := h.Store.BalanceComponents(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if comp.Earned != 0 {
		t.Errorf("malformed scan must not touch the ledger")
	}
}

func TestPostScan_UnknownProduct(t *testing.T) {
	_, router := newTestServer(t, "")

	rec := doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decode[ScanResponse](t, rec)
	if resp.ErrorCode != scan.CodeUnknownProduct {
		t.Errorf("errorCode = %q, want UNKNOWN_PRODUCT", resp.ErrorCode)
	}
}

// =============================================================================
// REDEMPTION ENDPOINT
// =============================================================================

func TestPostRedemption_InsufficientThenSuccess(t *testing.T) {
	// GIVEN: A balance of 50 and a 100-point reward
	// WHEN: Redeeming, earning 60 more, redeeming again
	// THEN: 402 first, then 200 leaving balance 10

	h, router := newTestServer(t, "")
	ctx := context.Background()
	seedTestProduct(t, h, testTokenA, "Zone Valve", 50)
	seedTestProduct(t, h, testTokenB, "Flow Sensor", 60)
	if err := h.Store.SaveReward(ctx, ledger.Reward{ID: "coffee-card", Name: "Coffee Gift Card", Cost: 100, Active: true}); err != nil {
		t.Fatal(err)
	}

	doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}, "")

	rec := doJSON(t, router, http.MethodPost, "/api/redemptions",
		RedemptionRequest{UserID: "user-1", RewardID: "coffee-card"}, "")
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402; body %s", rec.Code, rec.Body.String())
	}
	resp := decode[RedemptionResponse](t, rec)
	if resp.ErrorCode != codeInsufficientBalance || resp.Available != 50 || resp.Shortfall != 50 {
		t.Fatalf("unexpected rejection: %+v", resp)
	}

	doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenB), UserID: "user-1"}, "")

	rec = doJSON(t, router, http.MethodPost, "/api/redemptions",
		RedemptionRequest{UserID: "user-1", RewardID: "coffee-card"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp = decode[RedemptionResponse](t, rec)
	if !resp.Success || resp.NewBalance != 10 {
		t.Fatalf("unexpected success payload: %+v", resp)
	}
	if resp.Transaction == nil || resp.Transaction.Type != string(ledger.TxRedemption) || resp.Transaction.Amount != 100 {
		t.Errorf("unexpected transaction: %+v", resp.Transaction)
	}
}

func TestPostRedemption_UnknownReward(t *testing.T) {
	_, router := newTestServer(t, "")

	rec := doJSON(t, router, http.MethodPost, "/api/redemptions",
		RedemptionRequest{UserID: "user-1", RewardID: "no-such-reward"}, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decode[RedemptionResponse](t, rec)
	if resp.ErrorCode != codeUnknownReward {
		t.Errorf("errorCode = %q, want UNKNOWN_REWARD", resp.ErrorCode)
	}
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

func TestGetTransactions_PagedNewestFirst(t *testing.T) {
	h, router := newTestServer(t, "")
	ctx := context.Background()

	l := h.Ledger
	for i := 1; i <= 3; i++ {
		if _, err := l.Append(ctx, "user-1", ledger.TxEarning, int64(i*10), fmt.Sprintf("scan %d", i), "token"); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/users/user-1/transactions?limit=2", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[HistoryResponse](t, rec)
	if len(resp.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(resp.Transactions))
	}
	if resp.Transactions[0].Amount != 30 || resp.Transactions[1].Amount != 20 {
		t.Errorf("wrong order: %+v", resp.Transactions)
	}
}

func TestGetAchievements(t *testing.T) {
	h, router := newTestServer(t, "")
	ctx := context.Background()
	seedTestProduct(t, h, testTokenA, "Smart Thermostat", 200)
	if err := h.Store.SaveBadge(ctx, ledger.Badge{ID: "first-install", Name: "First Installation", MinInstallations: 1}); err != nil {
		t.Fatal(err)
	}
	if err := h.Store.SaveBadge(ctx, ledger.Badge{ID: "veteran", Name: "Veteran", MinInstallations: 10}); err != nil {
		t.Fatal(err)
	}

	doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}, "")

	rec := doJSON(t, router, http.MethodGet, "/api/users/user-1/achievements", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[AchievementsDTO](t, rec)

	if resp.Balance != 200 || resp.Level != 2 {
		t.Errorf("balance/level = %d/%d, want 200/2", resp.Balance, resp.Level)
	}
	if len(resp.Badges) != 2 {
		t.Fatalf("got %d badges, want 2", len(resp.Badges))
	}
	for _, b := range resp.Badges {
		wantEarned := b.ID == "first-install"
		if b.Earned != wantEarned {
			t.Errorf("badge %s earned = %v, want %v", b.ID, b.Earned, wantEarned)
		}
	}
}

func TestGetStats(t *testing.T) {
	h, router := newTestServer(t, "")
	seedTestProduct(t, h, testTokenA, "Smart Thermostat", 100)

	doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}, "")

	rec := doJSON(t, router, http.MethodGet, "/api/users/user-1/stats", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[StatsDTO](t, rec)
	if resp.InstallationsThisMonth != 1 || resp.InstallationsAllTime != 1 {
		t.Errorf("installation counts = %d/%d, want 1/1", resp.InstallationsThisMonth, resp.InstallationsAllTime)
	}
	if resp.PointsThisMonth != 100 || resp.Balance != 100 {
		t.Errorf("points/balance = %d/%d, want 100/100", resp.PointsThisMonth, resp.Balance)
	}
}

// =============================================================================
// USERS
// =============================================================================

func TestGetUser(t *testing.T) {
	// GIVEN: One registered user
	// WHEN: GET /api/users/{id} for them and for a stranger
	// THEN: 200 with the display data, and 404 for the stranger

	_, router := newTestServer(t, "")

	rec := doJSON(t, router, http.MethodPost, "/api/users",
		CreateUserRequest{ID: "user-1", Name: "Dana Willems"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/users/user-1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[UserDTO](t, rec)
	if resp.Name != "Dana Willems" {
		t.Errorf("name = %q, want %q", resp.Name, "Dana Willems")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/users/no-such-user", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuth_RequiredWhenSecretConfigured(t *testing.T) {
	// GIVEN: A server with a JWT secret
	// WHEN: Scanning without, with a mismatched, and with a matching token
	// THEN: 401, 403, and 200 respectively

	h, router := newTestServer(t, "test-secret")
	seedTestProduct(t, h, testTokenA, "Smart Thermostat", 100)

	body := ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}

	rec := doJSON(t, router, http.MethodPost, "/api/scans", body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	otherToken, err := GenerateToken("user-2", "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/scans", body, otherToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("mismatched token: status = %d, want 403", rec.Code)
	}

	goodToken, err := GenerateToken("user-1", "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/scans", body, goodToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("matching token: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAuth_BadTokenRejected(t *testing.T) {
	h, router := newTestServer(t, "test-secret")
	seedTestProduct(t, h, testTokenA, "Smart Thermostat", 100)

	wrongKey, err := GenerateToken("user-1", "other-secret")
	if err != nil {
		t.Fatal(err)
	}
	rec := doJSON(t, router, http.MethodPost, "/api/scans",
		ScanRequest{Token: productURL(testTokenA), UserID: "user-1"}, wrongKey)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenario_DuplicateRace(t *testing.T) {
	_, router := newTestServer(t, "")

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load",
		LoadScenarioRequest{ScenarioID: "duplicate-race"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("load failed: %s", rec.Body.String())
	}

	// installer-1 already holds the valve's points
	balRec := doJSON(t, router, http.MethodGet, "/api/users/installer-1/balance", nil, "")
	bal := decode[map[string]any](t, balRec)
	if bal["balance"].(float64) != 50 {
		t.Errorf("installer-1 balance = %v, want 50", bal["balance"])
	}
}

func TestScenario_UnknownID(t *testing.T) {
	_, router := newTestServer(t, "")

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load",
		LoadScenarioRequest{ScenarioID: "no-such-scenario"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
