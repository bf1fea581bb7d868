package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookmyseat/internal/config"
	"github.com/iliyamo/bookmyseat/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, userID uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, userID, role, 15)
	require.NoError(t, err)
	return at.Token
}

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get(CtxUserID), "role": c.Get(CtxRole)})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/v1/me", whoami, JWTAuth(secret))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 42, "CUSTOMER"))
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":42,"role":"CUSTOMER"}`, rec.Body.String())
}

func TestLoginRequiredRedirectsAndAcceptsCookie(t *testing.T) {
	e := echo.New()
	e.GET("/checkout/:theater_id/", whoami, LoginRequired(secret, "/login/"))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/checkout/3/?x=1", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/?next=%2Fcheckout%2F3%2F%3Fx%3D1", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/checkout/3/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: token(t, 7, "CUSTOMER")})
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"CUSTOMER"}`, rec.Body.String())
}

func TestRoles(t *testing.T) {
	e := echo.New()
	e.GET("/api", whoami, JWTAuth(secret), RequireRole("ADMIN"))
	e.GET("/admin-dashboard/", whoami, LoginRequired(secret, "/login/"), RedirectUnlessRole("/", "ADMIN"))

	customer := token(t, 1, "CUSTOMER")
	admin := token(t, 2, "ADMIN")

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer "+customer)
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin-dashboard/", nil)
	req.Header.Set("Authorization", "Bearer "+customer)
	rec := serve(e, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/admin-dashboard/", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	assert.Equal(t, http.StatusOK, serve(e, req).Code)
}

func TestRedisMiddlewaresPassThroughWithoutClient(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil),
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))

	for i := 0; i < 3; i++ {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestCacheEntryRoundTrip(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	bs, err := encodeEntry(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodeEntry(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodeEntry([]byte{0, 0})
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	e := echo.New()
	newCtx := func(target string, uid uint64) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/:movie_id/theaters/")
		if uid != 0 {
			c.Set(CtxUserID, uid)
		}
		return c
	}
	cc := config.CacheConfig{Prefix: "bms:cache", KeyStrategy: "route_query"}
	assert.NotEqual(t, cacheKey(cc, newCtx("/1/theaters/", 0)), cacheKey(cc, newCtx("/2/theaters/", 0)))
	assert.Equal(t, cacheKey(cc, newCtx("/1/theaters/", 5)), cacheKey(cc, newCtx("/1/theaters/", 0)))

	rc := config.RateLimitConfig{Prefix: "bms:rl", KeyStrategy: "user_route"}
	assert.Equal(t, "bms:rl:user:9:route:GET /:movie_id/theaters/", rateKey(rc, newCtx("/1/theaters/", 9)))
	assert.Equal(t, "bms:rl:user:anon:route:GET /:movie_id/theaters/", rateKey(rc, newCtx("/1/theaters/", 0)))
}
