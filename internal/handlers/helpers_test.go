package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/mail"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/store"
	"github.com/MrEthical07/goIAM/store/memstore"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Adm1n-Password!"
	plainEmail    = "plain@example.com"
	plainPassword = "Pla1n-Password!"
)

type captureMailer struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

type testEnv struct {
	router *gin.Engine
	engine *goIAM.Engine
	store  *memstore.Store
	mailer *captureMailer
}

func testConfig() goIAM.Config {
	cfg := goIAM.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEnv(t *testing.T, mutate ...func(*goIAM.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	st := memstore.New()
	mailer := &captureMailer{}
	engine, err := goIAM.New().
		WithConfig(cfg).
		WithStore(st).
		WithMailer(mailer).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	hasher, err := password.NewHasher(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	seedUser(t, st, hasher, adminEmail, adminPassword, []string{"admin"})
	seedUser(t, st, hasher, plainEmail, plainPassword, nil)

	router := gin.New()
	NewHandlerSet(zerolog.Nop(), engine, Options{Environment: "test"}).Register(&router.RouterGroup)

	return &testEnv{router: router, engine: engine, store: st, mailer: mailer}
}

func seedUser(t *testing.T, st *memstore.Store, h *password.Hasher, email, pw string, roles []string) {
	t.Helper()
	hash, err := h.Hash(pw)
	require.NoError(t, err)
	now := time.Now().UTC()
	expires := now.Add(60 * 24 * time.Hour)
	require.NoError(t, st.CreateUser(context.Background(), &store.User{
		ID:                email,
		Email:             email,
		Name:              email,
		Active:            true,
		Roles:             roles,
		Provider:          store.ProviderLocal,
		PasswordHash:      hash,
		PasswordChangedAt: &now,
		PasswordExpiresAt: &expires,
		CreatedAt:         now,
		UpdatedAt:         now,
	}))
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (e *testEnv) login(t *testing.T, email, pw string) string {
	t.Helper()
	rec, body := e.do(t, http.MethodPost, APIPrefix+"/auth/login", "", map[string]string{"email": email, "password": pw})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}
