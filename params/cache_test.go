package params

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/store"
)

type fakeSource struct {
	mu     sync.Mutex
	params map[string]*store.Parameter
	calls  map[string]int
	err    error
}

func newFakeSource(params ...store.Parameter) *fakeSource {
	f := &fakeSource{params: map[string]*store.Parameter{}, calls: map[string]int{}}
	for i := range params {
		p := params[i]
		f.params[p.Key] = &p
	}
	return f
}

func (f *fakeSource) GetParameter(_ context.Context, key string) (*store.Parameter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.params[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeSource) set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params[key] = &store.Parameter{Key: key, Value: value}
}

// gatedSource blocks the first read until release is closed.
type gatedSource struct {
	*fakeSource
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSource) GetParameter(ctx context.Context, key string) (*store.Parameter, error) {
	p, err := g.fakeSource.GetParameter(ctx, key)
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return p, err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestCacheServesWithinTTL(t *testing.T) {
	src := newFakeSource(store.Parameter{Key: KeyPasswordMinLength, Value: "16"})
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache(src, Config{Now: clk.now})
	ctx := context.Background()

	assert.Equal(t, 16, c.Int(ctx, KeyPasswordMinLength, 12))
	src.set(KeyPasswordMinLength, "20")
	assert.Equal(t, 16, c.Int(ctx, KeyPasswordMinLength, 12), "stale value inside TTL")
	assert.Equal(t, 1, src.calls[KeyPasswordMinLength])

	clk.t = clk.t.Add(DefaultTTL)
	assert.Equal(t, 20, c.Int(ctx, KeyPasswordMinLength, 12))
	assert.Equal(t, 2, src.calls[KeyPasswordMinLength])
}

func TestCacheInvalidate(t *testing.T) {
	src := newFakeSource(store.Parameter{Key: KeyPasswordExpiryDays, Value: "60"})
	c := NewCache(src, Config{})
	ctx := context.Background()

	assert.Equal(t, 60, c.Int(ctx, KeyPasswordExpiryDays, 1))
	src.set(KeyPasswordExpiryDays, "90")
	c.Invalidate(" Password_Expiry_Days ")
	assert.Equal(t, 90, c.Int(ctx, KeyPasswordExpiryDays, 1))

	src.set(KeyPasswordExpiryDays, "30")
	c.InvalidateAll()
	assert.Equal(t, 30, c.Int(ctx, KeyPasswordExpiryDays, 1))
}

func TestCacheCachesAbsence(t *testing.T) {
	src := newFakeSource()
	c := NewCache(src, Config{})
	ctx := context.Background()

	assert.Equal(t, "fallback", c.String(ctx, "missing", "fallback"))
	assert.Equal(t, "fallback", c.String(ctx, "missing", "fallback"))
	assert.Equal(t, 1, src.calls["missing"])
}

func TestCacheSourceErrorServesDefaultsUncached(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("mongo down")
	var reported []string
	c := NewCache(src, Config{OnError: func(key string, err error) { reported = append(reported, key) }})
	ctx := context.Background()

	assert.True(t, c.Bool(ctx, KeyPasswordRequireSymbol, true))
	assert.True(t, c.Bool(ctx, KeyPasswordRequireSymbol, true))
	assert.Equal(t, 2, src.calls[KeyPasswordRequireSymbol])
	assert.Equal(t, []string{KeyPasswordRequireSymbol, KeyPasswordRequireSymbol}, reported)
}

func TestTypedParsing(t *testing.T) {
	src := newFakeSource(
		store.Parameter{Key: "n_bad", Value: "abc"},
		store.Parameter{Key: "n_zero", Value: "0"},
		store.Parameter{Key: "n_float", Value: "7.9"},
		store.Parameter{Key: "b_yes", Value: "YES"},
		store.Parameter{Key: "b_one", Value: "1"},
		store.Parameter{Key: "b_no", Value: "off"},
	)
	c := NewCache(src, Config{})
	ctx := context.Background()

	assert.Equal(t, 5, c.Int(ctx, "n_bad", 5))
	assert.Equal(t, 0, c.Int(ctx, "n_zero", 5))
	assert.Equal(t, 5, c.PositiveInt(ctx, "n_zero", 5))
	assert.Equal(t, 5, c.PositiveInt(ctx, "n_bad", 5))
	assert.Equal(t, 7, c.PositiveInt(ctx, "n_float", 5))
	assert.Equal(t, 7, c.Int(ctx, "n_float", 5))
	assert.True(t, c.Bool(ctx, "b_yes", false))
	assert.True(t, c.Bool(ctx, "b_one", false))
	assert.False(t, c.Bool(ctx, "b_no", true))
	assert.True(t, c.Bool(ctx, "b_absent", true))
}

func TestSettingsPasswordPolicy(t *testing.T) {
	src := newFakeSource(
		store.Parameter{Key: KeyPasswordMinLength, Value: "8"},
		store.Parameter{Key: KeyPasswordRequireSymbol, Value: "false"},
	)
	s := NewSettings(NewCache(src, Config{}))
	ctx := context.Background()

	want := password.DefaultPolicy()
	want.MinLength = 8
	want.RequireSymbol = false
	assert.Equal(t, want, s.PasswordPolicy(ctx))
	assert.Equal(t, 60*24*time.Hour, s.PasswordExpiry(ctx))
	assert.Equal(t, 10*time.Minute, s.CodeTTL(ctx))
	assert.Equal(t, 3, s.CodeMaxAttempts(ctx))

	limit, window := s.LoginLimits(ctx)
	assert.Equal(t, 3, limit)
	assert.Equal(t, 15*time.Minute, window)
}

func TestValidateValue(t *testing.T) {
	require.NoError(t, ValidateValue(store.DataTypeNumber, "12"))
	require.Error(t, ValidateValue(store.DataTypeNumber, "twelve"))
	require.NoError(t, ValidateValue(store.DataTypeBoolean, "Yes"))
	require.Error(t, ValidateValue(store.DataTypeBoolean, "maybe"))
	require.NoError(t, ValidateValue("", "anything"))
	require.Error(t, ValidateValue("date", "x"))
}

func TestDefaultsCoverSettings(t *testing.T) {
	for _, key := range []string{KeyPasswordExpiryDays, KeyCodeTTLMinutes, KeyCodeMaxAttempts, KeyMaxLoginAttempts} {
		_, ok := DefaultValue(key)
		assert.True(t, ok, key)
	}
	d := Defaults()
	d[0].Value = "mutated"
	v, _ := DefaultValue(d[0].Key)
	assert.NotEqual(t, "mutated", v)
}

func TestInvalidateDuringReadIsNotOverwritten(t *testing.T) {
	src := &gatedSource{
		fakeSource: newFakeSource(store.Parameter{Key: KeyPasswordMinLength, Value: "12"}),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	c := NewCache(src, Config{})
	ctx := context.Background()

	done := make(chan int)
	go func() { done <- c.Int(ctx, KeyPasswordMinLength, 0) }()

	<-src.started
	src.set(KeyPasswordMinLength, "16")
	c.Invalidate(KeyPasswordMinLength)
	close(src.release)

	assert.Equal(t, 12, <-done, "the in-flight read returns what it fetched")
	assert.Equal(t, 16, c.Int(ctx, KeyPasswordMinLength, 0), "the stale read must not be cached")
}
