package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tabiguide-next/internal/config"

	"github.com/gin-gonic/gin"
)

func TestGuideKeyRestoresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/referrals", strings.NewReader(`{"guideId":" Guide-7 ","sponsorStoreId":"s1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if key := guideKey(c); key != "guide-7|1.2.3.4" {
		t.Fatalf("key want guide-7|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Guide-7") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestGuideKeyFallsBackToIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, body := range []string{``, `not json`, `{"guideId":42}`, `{"sponsorStoreId":"s1"}`} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/referrals", strings.NewReader(body))
		c.Request.RemoteAddr = "1.2.3.4:5678"
		if key := guideKey(c); key != "1.2.3.4" {
			t.Fatalf("body %q: key want 1.2.3.4 got %s", body, key)
		}
	}
}

func TestReferralKeyUsesPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	var key string
	r.PUT("/api/referrals/:id", func(c *gin.Context) {
		key = referralKey(c)
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodPut, "/api/referrals/ref-9", nil)
	req.RemoteAddr = "5.6.7.8:1000"
	r.ServeHTTP(httptest.NewRecorder(), req)

	if key != "ref-9|5.6.7.8" {
		t.Fatalf("key want ref-9|5.6.7.8 got %s", key)
	}
}

func TestLedgerWriteLimits(t *testing.T) {
	create, update := ledgerWriteLimits(config.RateLimitConfig{WindowSeconds: 60, MaxRequests: 30})
	if create.route != "referral_create" || update.route != "referral_update" {
		t.Fatalf("unexpected routes: %s %s", create.route, update.route)
	}
	if create.window != time.Minute || create.max != 30 || update.window != time.Minute || update.max != 30 {
		t.Fatalf("unexpected limits: %+v %+v", create, update)
	}
}

func TestWriteLimiterWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	create, _ := ledgerWriteLimits(config.RateLimitConfig{WindowSeconds: 60, MaxRequests: 1})
	r := gin.New()
	r.POST("/ping", NewWriteLimiter(nil, "tg").Limit(create), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ping", strings.NewReader(`{"guideId":"g"}`)))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("request %d should pass through, got %d %s", i, w.Code, w.Body.String())
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := []struct {
		name   string
		ttl    time.Duration
		window time.Duration
		want   int
	}{
		{name: "rounds up", ttl: 1500 * time.Millisecond, window: time.Minute, want: 2},
		{name: "no ttl uses window", ttl: -1, window: time.Minute, want: 60},
		{name: "never below one", ttl: 0, window: 0, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryAfterSeconds(tc.ttl, tc.window); got != tc.want {
				t.Fatalf("want %d got %d", tc.want, got)
			}
		})
	}
}
