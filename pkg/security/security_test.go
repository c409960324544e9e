package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doGet(r *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSAllowsWhitelistedOrigin(t *testing.T) {
	r := newRouter(CORS([]string{"https://app.heartwise.cn"}))

	w := doGet(r, "https://app.heartwise.cn")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.heartwise.cn", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}

func TestCORSBlocksUnknownOrigin(t *testing.T) {
	r := newRouter(CORS([]string{"https://app.heartwise.cn"}))

	w := doGet(r, "https://evil.example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSWildcardForDev(t *testing.T) {
	r := newRouter(CORS([]string{"*"}))

	w := doGet(r, "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(CORS([]string{"https://app.heartwise.cn"}))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.heartwise.cn")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "OPTIONS")
}

func TestSecureHeaders(t *testing.T) {
	r := newRouter(Secure())

	w := doGet(r, "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	// 非 TLS 请求不下发 HSTS
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRateLimiterRejectsBurstOverflow(t *testing.T) {
	r := newRouter(RateLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		w := doGet(r, "")
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := doGet(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
