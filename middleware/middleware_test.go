package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/store"
	"github.com/MrEthical07/goIAM/store/memstore"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newEngine(t *testing.T, mutate func(*goIAM.Config)) (*goIAM.Engine, *memstore.Store) {
	t.Helper()
	cfg := goIAM.DefaultConfig()
	cfg.JWT.Secret = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}
	st := memstore.New()
	engine, err := goIAM.New().WithConfig(cfg).WithStore(st).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, st
}

func tokenFor(t *testing.T, engine *goIAM.Engine, st *memstore.Store, email string, perms []string) string {
	t.Helper()
	hasher, err := password.NewHasher(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	hash, err := hasher.Hash("Secret-Passw0rd!")
	require.NoError(t, err)
	now := time.Now().UTC()
	expires := now.Add(24 * time.Hour)
	require.NoError(t, st.CreateUser(context.Background(), &store.User{
		ID: email, Email: email, Name: email, Active: true, Perms: perms,
		Provider: store.ProviderLocal, PasswordHash: hash,
		PasswordChangedAt: &now, PasswordExpiresAt: &expires,
		CreatedAt: now, UpdatedAt: now,
	}))
	res, err := engine.Login(context.Background(), email, "Secret-Passw0rd!")
	require.NoError(t, err)
	return res.Token
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, st := newEngine(t, nil)
	token := tokenFor(t, engine, st, "ana@example.com", nil)

	r := gin.New()
	r.GET("/p", RequireAuth(engine, zerolog.Nop()), func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.Email)
	})

	rec := serve(r, http.MethodGet, "/p", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), goIAM.CodeUnauthenticated)

	rec = serve(r, http.MethodGet, "/p", http.Header{"Authorization": []string{"Basic abc"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, http.MethodGet, "/p", bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), goIAM.CodeInvalidToken)

	rec = serve(r, http.MethodGet, "/p", http.Header{"Authorization": []string{"bearer " + token}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@example.com", rec.Body.String())
}

func TestOptionalAuthIgnoresBadTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, _ := newEngine(t, nil)

	r := gin.New()
	r.GET("/p", OptionalAuth(engine, zerolog.Nop()), func(c *gin.Context) {
		_, ok := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"identified": ok})
	})

	for _, h := range []http.Header{nil, bearer("garbage")} {
		rec := serve(r, http.MethodGet, "/p", h)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"identified":false}`, rec.Body.String())
	}
}

func TestDevBypassInjectsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, _ := newEngine(t, func(c *goIAM.Config) {
		c.JWT.Secret = nil
		c.Access.DevBypass = true
	})

	var logs bytes.Buffer
	r := gin.New()
	r.GET("/p",
		RequireAuth(engine, zerolog.New(&logs)),
		RequirePermission(engine, "iam.users.manage"),
		func(c *gin.Context) {
			id, _ := IdentityFrom(c)
			assert.True(t, id.Bypass)
			c.Status(http.StatusNoContent)
		})

	rec := serve(r, http.MethodGet, "/p", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, logs.String(), "auth bypass active")
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, st := newEngine(t, nil)
	reader := tokenFor(t, engine, st, "reader@example.com", []string{"iam.audit.read"})
	other := tokenFor(t, engine, st, "other@example.com", []string{"reports.read"})

	r := gin.New()
	r.GET("/audit",
		RequireAuth(engine, zerolog.Nop()),
		RequirePermission(engine, "iam.audit.read", "iam.roles.manage"),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/naked", RequirePermission(engine, "x"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/audit", bearer(reader)).Code)

	rec := serve(r, http.MethodGet, "/audit", bearer(other))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), goIAM.CodeForbidden)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/naked", nil).Code)
}

func TestRequestIDPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, http.MethodGet, "/p", http.Header{"X-Request-Id": []string{"abc"}})
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))

	rec = serve(r, http.MethodGet, "/p", nil)
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com/"}))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, http.MethodGet, "/p", http.Header{"Origin": []string{"https://app.example.com"}})
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(r, http.MethodGet, "/p", http.Header{"Origin": []string{"https://evil.example.com"}})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(r, http.MethodOptions, "/p", http.Header{"Origin": []string{"https://app.example.com"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	r := gin.New()
	r.Use(Recovery(zerolog.New(&logs)))
	r.GET("/p", func(c *gin.Context) { panic("boom") })

	rec := serve(r, http.MethodGet, "/p", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), goIAM.CodeInternal)
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	r := gin.New()
	r.Use(Logger(zerolog.New(&logs)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, http.MethodGet, "/missing", nil)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"status":404`)
}

func TestHTTPMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "goiam")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/users/1", nil)
	serve(r, http.MethodGet, "/users/2", nil)
	serve(r, http.MethodGet, "/nope", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/users/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "GET", "404")))
}
