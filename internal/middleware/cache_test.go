package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerhq/tabler/internal/config"
)

func TestPayloadCodecRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}, "X-Custom": {"a", "b"}}
	body := []byte(`{"items":[],"count":0}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsTruncated(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{1, 2, 3})
	assert.False(t, ok)

	bs, err := encodePayload(http.StatusOK, http.Header{"A": {"b"}}, []byte("x"))
	require.NoError(t, err)
	_, _, _, ok = decodePayload(bs[:9])
	assert.False(t, ok, "header length pointing past the payload is rejected")
}

func TestCacheKeyFrom(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	e := echo.New()

	keyFor := func(target, routePattern, userID string) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath(routePattern)
		if userID != "" {
			c.Set("user_id", userID)
		}
		return cacheKeyFrom(cfg, c)
	}

	a := keyFor("/v1/history?current=true", "/v1/history", "owner-a")
	b := keyFor("/v1/history?current=true", "/v1/history", "owner-a")
	assert.Equal(t, a, b, "identical requests by one operator share a key")

	c := keyFor("/v1/history", "/v1/history", "owner-a")
	assert.NotEqual(t, a, c, "query string is part of the key")

	other := keyFor("/v1/history?current=true", "/v1/history", "owner-b")
	assert.NotEqual(t, a, other, "operators never share a key")

	anon := keyFor("/v1/history?current=true", "/v1/history", "")
	assert.NotEqual(t, a, anon, "an unauthenticated request never maps onto an operator's key")

	l1 := keyFor("/v1/layouts/L1/tables", "/v1/layouts/:id/tables", "owner-a")
	l2 := keyFor("/v1/layouts/L2/tables", "/v1/layouts/:id/tables", "owner-a")
	assert.NotEqual(t, l1, l2, "keys use the concrete path, not the route pattern")
}

// newCachedApp wires JWTAuth ahead of the response cache on a /v1 group, the
// same order the router uses, with two handlers that echo back who and what
// was asked for.
func newCachedApp(t *testing.T, cfg config.CacheConfig) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	g := e.Group("/v1")
	g.Use(JWTAuth(testSecret))
	g.Use(NewRedisCache(cfg, rdb))
	g.GET("/history", func(c echo.Context) error {
		uid, _ := c.Get("user_id").(string)
		return c.String(http.StatusOK, "ledger of "+uid)
	})
	g.GET("/layouts/:id/tables", func(c echo.Context) error {
		return c.String(http.StatusOK, "tables of "+c.Param("id"))
	})
	return e, mr
}

func get(e *echo.Echo, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRedisCacheStaysBehindAuth(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", KeyStrategy: "route_query"}
	e, _ := newCachedApp(t, cfg)
	tokA := signToken(t, testSecret, "owner-a", "OWNER")

	first := get(e, "/v1/history", tokA)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "ledger of owner-a", first.Body.String())

	// The entry is now warm; a tokenless request must still be rejected.
	anon := get(e, "/v1/history", "")
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
	assert.NotContains(t, anon.Body.String(), "owner-a")

	again := get(e, "/v1/history", tokA)
	assert.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.Equal(t, "ledger of owner-a", again.Body.String())
}

func TestRedisCacheIsolatesOperatorsAndPaths(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", KeyStrategy: "route_query"}
	e, _ := newCachedApp(t, cfg)
	tokA := signToken(t, testSecret, "owner-a", "OWNER")
	tokB := signToken(t, testSecret, "owner-b", "OWNER")

	require.Equal(t, "ledger of owner-a", get(e, "/v1/history", tokA).Body.String())

	other := get(e, "/v1/history", tokB)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, "ledger of owner-b", other.Body.String(), "one operator's warm entry never serves another")

	require.Equal(t, "tables of L1", get(e, "/v1/layouts/L1/tables", tokA).Body.String())

	l2 := get(e, "/v1/layouts/L2/tables", tokA)
	assert.Equal(t, "MISS", l2.Header().Get("X-Cache"))
	assert.Equal(t, "tables of L2", l2.Body.String(), "path parameters keep their own entries")
}

func TestRedisCacheSkipsOversizedResponses(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", KeyStrategy: "route_query", MaxBodyBytes: 8}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	big := strings.Repeat("x", 64)
	e := echo.New()
	e.GET("/big", func(c echo.Context) error {
		return c.String(http.StatusOK, big)
	}, NewRedisCache(cfg, rdb))

	req := httptest.NewRequest(http.MethodGet, "/big", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, big, rec.Body.String())

	// Nothing was stored, so the next request is a miss with the full body
	// rather than a hit replaying a truncated one.
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/big", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, big, rec.Body.String())
}

func TestCaptureWriterStopsBufferingAtLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	n, err := cw.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = cw.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, int64(7), cw.size, "size counts everything written to the client")
	assert.Equal(t, "abcd", cw.buf.String(), "buffer stops at the limit")
	assert.Equal(t, "abcdefg", rec.Body.String(), "the client still gets the full body")
}

func TestNewRedisCacheNilClientPassThrough(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, h(c))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"), "pass-through adds no cache headers")
}
