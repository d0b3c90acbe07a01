package public

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/provider"
	"github.com/tabiguide-next/internal/repository"

	"github.com/gin-gonic/gin"
)

func setupReferralHandlerTest(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "sponsor_referrals.json")
	cfg := &config.Config{}
	cfg.Ledger = config.LedgerConfig{
		Driver:                "json",
		Path:                  path,
		FailOpenReads:         true,
		RecentLimit:           10,
		DefaultCommissionRate: "10.00",
		DefaultReferralSource: "web",
	}
	h := New(provider.NewContainerWithStore(cfg, repository.NewJSONReferralStore(path)))

	r := gin.New()
	r.GET("/health", h.Health)
	r.POST("/api/referrals", h.CreateReferral)
	r.GET("/api/referrals", h.ListReferrals)
	r.GET("/api/referrals/guide/:guideId", h.ListReferralsByGuide)
	r.GET("/api/referrals/store/:storeId", h.ListReferralsByStore)
	r.GET("/api/referrals/dashboard/:guideId", h.GetCommissionDashboard)
	r.PUT("/api/referrals/:id", h.UpdateReferral)
	return r, path
}

func doJSON(t *testing.T, r *gin.Engine, method, target, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("%s %s returned non-JSON body %q: %v", method, target, w.Body.String(), err)
	}
	return w.Code, decoded
}

func createViaAPI(t *testing.T, r *gin.Engine, body string) map[string]interface{} {
	t.Helper()
	code, resp := doJSON(t, r, http.MethodPost, "/api/referrals", body)
	if code != http.StatusOK {
		t.Fatalf("create failed with %d: %v", code, resp)
	}
	referral, ok := resp["referral"].(map[string]interface{})
	if !ok {
		t.Fatalf("create response missing referral: %v", resp)
	}
	return referral
}

func TestCreateReferralHandler(t *testing.T) {
	r, _ := setupReferralHandlerTest(t)

	code, resp := doJSON(t, r, http.MethodPost, "/api/referrals", `{"guideId":"guide-1","sponsorStoreId":"store-9"}`)
	if code != http.StatusOK {
		t.Fatalf("status want 200 got %d", code)
	}
	if resp["success"] != true || resp["message"] != "Referral created successfully" {
		t.Fatalf("unexpected envelope: %v", resp)
	}
	referral := resp["referral"].(map[string]interface{})
	if referral["commissionStatus"] != "pending" || referral["commissionRate"] != "10.00" {
		t.Fatalf("unexpected defaults: %v", referral)
	}
	if v, ok := referral["commissionAmount"]; !ok || v != nil {
		t.Fatalf("commissionAmount should be present and null: %v", referral)
	}
	if referral["referralSource"] != "web" {
		t.Fatalf("unexpected source: %v", referral["referralSource"])
	}
}

func TestCreateReferralHandlerMissingFields(t *testing.T) {
	r, path := setupReferralHandlerTest(t)

	code, resp := doJSON(t, r, http.MethodPost, "/api/referrals", `{"guideId":"guide-1"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("status want 400 got %d", code)
	}
	if resp["success"] != false || resp["error"] != "VALIDATION_ERROR" || resp["message"] == "" {
		t.Fatalf("unexpected error body: %v", resp)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("rejected create must not touch the ledger file")
	}
}

func TestCreateReferralHandlerMalformedBody(t *testing.T) {
	r, _ := setupReferralHandlerTest(t)

	code, resp := doJSON(t, r, http.MethodPost, "/api/referrals", `{"guideId":`)
	if code != http.StatusBadRequest || resp["error"] != "VALIDATION_ERROR" {
		t.Fatalf("unexpected response %d %v", code, resp)
	}
}

func TestListReferralHandlers(t *testing.T) {
	r, _ := setupReferralHandlerTest(t)
	createViaAPI(t, r, `{"guideId":"g1","sponsorStoreId":"s1"}`)
	createViaAPI(t, r, `{"guideId":"g1","sponsorStoreId":"s2"}`)
	createViaAPI(t, r, `{"guideId":"g2","sponsorStoreId":"s1"}`)

	code, resp := doJSON(t, r, http.MethodGet, "/api/referrals/guide/g1", "")
	if code != http.StatusOK || resp["total"] != float64(2) {
		t.Fatalf("unexpected guide listing %d %v", code, resp)
	}
	code, resp = doJSON(t, r, http.MethodGet, "/api/referrals/store/s1", "")
	if code != http.StatusOK || resp["total"] != float64(2) {
		t.Fatalf("unexpected store listing %d %v", code, resp)
	}
	code, resp = doJSON(t, r, http.MethodGet, "/api/referrals/guide/nobody", "")
	if code != http.StatusOK || resp["total"] != float64(0) {
		t.Fatalf("unknown guide should list nothing: %v", resp)
	}
	if referrals, ok := resp["referrals"].([]interface{}); !ok || len(referrals) != 0 {
		t.Fatalf("empty listing should encode as []: %v", resp["referrals"])
	}

	code, resp = doJSON(t, r, http.MethodGet, "/api/referrals", "")
	if code != http.StatusOK {
		t.Fatalf("status want 200 got %d", code)
	}
	stats := resp["stats"].(map[string]interface{})
	if stats["totalReferrals"] != float64(3) || stats["pendingCommissions"] != float64(3) {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestUpdateReferralHandler(t *testing.T) {
	r, _ := setupReferralHandlerTest(t)
	id := createViaAPI(t, r, `{"guideId":"guide-1","sponsorStoreId":"store-9"}`)["id"].(string)

	code, resp := doJSON(t, r, http.MethodPut, "/api/referrals/"+id, `{"commissionAmount":500,"commissionStatus":"approved"}`)
	if code != http.StatusOK || resp["message"] != "Referral updated successfully" {
		t.Fatalf("unexpected update response %d %v", code, resp)
	}
	referral := resp["referral"].(map[string]interface{})
	if referral["commissionAmount"] != float64(500) || referral["commissionStatus"] != "approved" || referral["paymentDate"] != nil {
		t.Fatalf("unexpected referral after approve: %v", referral)
	}

	_, resp = doJSON(t, r, http.MethodPut, "/api/referrals/"+id, `{"commissionStatus":"paid"}`)
	paidAt := resp["referral"].(map[string]interface{})["paymentDate"]
	if paidAt == nil {
		t.Fatalf("paymentDate should be set when paid")
	}
	_, resp = doJSON(t, r, http.MethodPut, "/api/referrals/"+id, `{"commissionStatus":"paid"}`)
	if resp["referral"].(map[string]interface{})["paymentDate"] != paidAt {
		t.Fatalf("paymentDate must not move on repeated paid updates")
	}

	code, resp = doJSON(t, r, http.MethodGet, "/api/referrals/dashboard/guide-1", "")
	if code != http.StatusOK {
		t.Fatalf("dashboard status %d", code)
	}
	dashboard := resp["dashboard"].(map[string]interface{})
	commissions := dashboard["commissions"].(map[string]interface{})
	byStatus := dashboard["referralsByStatus"].(map[string]interface{})
	if commissions["paid"] != float64(500) || commissions["total"] != float64(500) || byStatus["paid"] != float64(1) {
		t.Fatalf("unexpected dashboard: %v", dashboard)
	}
}

func TestUpdateReferralHandlerErrors(t *testing.T) {
	r, _ := setupReferralHandlerTest(t)
	id := createViaAPI(t, r, `{"guideId":"guide-1","sponsorStoreId":"store-9"}`)["id"].(string)

	cases := []struct {
		name   string
		target string
		body   string
		code   int
		tag    string
	}{
		{name: "not found", target: "/api/referrals/missing", body: `{"notes":"x"}`, code: http.StatusNotFound, tag: "NOT_FOUND"},
		{name: "immutable field", target: "/api/referrals/" + id, body: `{"guideId":"other"}`, code: http.StatusBadRequest, tag: "VALIDATION_ERROR"},
		{name: "unknown field", target: "/api/referrals/" + id, body: `{"bonus":1}`, code: http.StatusBadRequest, tag: "VALIDATION_ERROR"},
		{name: "bad status", target: "/api/referrals/" + id, body: `{"commissionStatus":"refunded"}`, code: http.StatusBadRequest, tag: "VALIDATION_ERROR"},
		{name: "not an object", target: "/api/referrals/" + id, body: `[1,2]`, code: http.StatusBadRequest, tag: "VALIDATION_ERROR"},
		{name: "negative amount", target: "/api/referrals/" + id, body: `{"commissionAmount":-1}`, code: http.StatusBadRequest, tag: "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, resp := doJSON(t, r, http.MethodPut, tc.target, tc.body)
			if code != tc.code || resp["error"] != tc.tag || resp["success"] != false {
				t.Fatalf("want %d %s, got %d %v", tc.code, tc.tag, code, resp)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	r, _ := setupReferralHandlerTest(t)
	createViaAPI(t, r, `{"guideId":"g1","sponsorStoreId":"s1"}`)

	code, resp := doJSON(t, r, http.MethodGet, "/health", "")
	if code != http.StatusOK || resp["status"] != "ok" || resp["driver"] != "json" || resp["totalReferrals"] != float64(1) {
		t.Fatalf("unexpected health response %d %v", code, resp)
	}
}

func TestHealthHandlerCorruptLedger(t *testing.T) {
	r, path := setupReferralHandlerTest(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt ledger failed: %v", err)
	}

	code, resp := doJSON(t, r, http.MethodGet, "/health", "")
	if code != http.StatusInternalServerError || resp["error"] != "STORAGE_ERROR" {
		t.Fatalf("unexpected health response %d %v", code, resp)
	}
}

func TestHandlerWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/referrals", nil)

	h := &Handler{Container: &provider.Container{}}
	h.ListReferrals(c)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
}

func TestReadHandlersRejectBlankIdentifier(t *testing.T) {
	r, _ := setupReferralHandlerTest(t)

	for _, target := range []string{
		"/api/referrals/guide/%20",
		"/api/referrals/store/%20",
		"/api/referrals/dashboard/%20",
	} {
		code, resp := doJSON(t, r, http.MethodGet, target, "")
		if code != http.StatusBadRequest {
			t.Fatalf("%s: status want 400 got %d (%v)", target, code, resp)
		}
		if resp["success"] != false || resp["error"] != "VALIDATION_ERROR" {
			t.Fatalf("%s: unexpected body: %v", target, resp)
		}
	}
}

func TestReferralHandlersRejectOversizedExponent(t *testing.T) {
	r, path := setupReferralHandlerTest(t)

	code, resp := doJSON(t, r, http.MethodPost, "/api/referrals", `{"guideId":"g","sponsorStoreId":"s","commissionRate":"1e900000000"}`)
	if code != http.StatusBadRequest || resp["error"] != "VALIDATION_ERROR" {
		t.Fatalf("create: want 400 VALIDATION_ERROR, got %d %v", code, resp)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("rejected create should not touch the ledger file: %v", err)
	}

	created := createViaAPI(t, r, `{"guideId":"g","sponsorStoreId":"s"}`)
	id, _ := created["id"].(string)
	for _, body := range []string{
		`{"commissionRate":"1e900000000"}`,
		`{"commissionAmount":1e900000000}`,
	} {
		code, resp := doJSON(t, r, http.MethodPut, "/api/referrals/"+id, body)
		if code != http.StatusBadRequest || resp["error"] != "VALIDATION_ERROR" {
			t.Fatalf("update %s: want 400 VALIDATION_ERROR, got %d %v", body, code, resp)
		}
	}
}
