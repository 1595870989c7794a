package goIAM

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	internalaudit "github.com/MrEthical07/goIAM/internal/audit"
	"github.com/MrEthical07/goIAM/internal/rate"
	"github.com/MrEthical07/goIAM/jwt"
	"github.com/MrEthical07/goIAM/mail"
	"github.com/MrEthical07/goIAM/params"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/permission"
	"github.com/MrEthical07/goIAM/store"
)

// dummyPassword is hashed once at build time. Login verifies against it
// when an account has no hash so that unknown emails cost the same.
const dummyPassword = "goIAM-timing-equalizer"

// Builder defines a public type used by goIAM APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config     Config
	store      store.Store
	redis      redis.UniversalClient
	mailer     mail.Sender
	auditSink  AuditSink
	logger     *zerolog.Logger
	navigation []permission.NavItem
	now        func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the credential, catalog, parameter and audit store.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis enables login and code-request rate limiting. Without a
// client the limits are not enforced.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMailer sets the email collaborator. The default logs a redacted line
// instead of sending; in production mode the default fails every delivery
// and a log-only mailer is rejected by Build.
func (b *Builder) WithMailer(m mail.Sender) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// The default sink persists events through the store.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for warnings.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = &l
	return b
}

// WithNavigation replaces the embedded navigation catalog.
func (b *Builder) WithNavigation(items []permission.NavItem) *Builder {
	b.navigation = items
	return b
}

// WithClock overrides time.Now for the engine, the parameter cache and the
// token issuer.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build is single-use: a second call fails.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Access.ProductionMode && b.mailer != nil && mail.LogOnly(b.mailer) {
		return nil, errors.New("log-only mailer not allowed in production mode")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		store:     b.store,
		logger:    logger,
		now:       now,
		overrides: permission.Overrides{SuperadminEmails: cfg.Access.SuperadminEmails},
		metrics:   NewMetrics(cfg.Metrics),
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher
	if engine.dummyHash, err = hasher.Hash(dummyPassword); err != nil {
		return nil, err
	}

	// -------- TOKEN ISSUER --------
	jm, err := jwt.NewManager(jwt.Config{
		Secret: append([]byte(nil), cfg.JWT.Secret...),
		TTL:    cfg.JWT.TTL,
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}
	engine.jwt = jm

	// -------- SYSTEM PARAMETERS --------
	engine.params = params.NewCache(b.store, params.Config{
		TTL: cfg.Params.CacheTTL,
		Now: now,
		OnError: func(key string, err error) {
			logger.Warn().Err(err).Str("key", key).Msg("goIAM: parameter lookup failed, using default")
		},
	})
	engine.settings = params.NewSettings(engine.params)

	// -------- RATE LIMITER --------
	if b.redis != nil {
		engine.limiter = rate.New(b.redis, rate.Config{
			Namespace:         cfg.RateLimit.Namespace,
			EnableIPThrottle:  cfg.RateLimit.EnableIPThrottle,
			CodeRequestMax:    cfg.Code.RequestMax,
			CodeRequestWindow: cfg.Code.RequestWindow,
		})
	}

	// -------- AUDIT --------
	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewStoreSink(b.store, 5*time.Second, func(ev AuditEvent, err error) {
			logger.Warn().Err(err).Str("action", ev.Action).Msg("goIAM: audit insert failed")
		})
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:        cfg.Audit.Enabled,
		BufferSize:     cfg.Audit.BufferSize,
		DropIfFull:     cfg.Audit.DropIfFull,
		EnqueueTimeout: cfg.Audit.EnqueueTimeout,
		OnDrop: func(ev AuditEvent, reason error) {
			engine.metricInc(MetricAuditDropped)
			logger.Warn().Err(reason).Str("action", ev.Action).Str("id", ev.ID).Msg("goIAM: audit event dropped")
		},
	}, sink)

	// -------- MAIL --------
	engine.mailer = b.mailer
	switch {
	case engine.mailer == nil && cfg.Access.ProductionMode:
		logger.Error().Msg("goIAM: no mailer configured, every email will fail")
		engine.mailer = mail.Unconfigured{}
	case engine.mailer == nil:
		engine.mailer = mail.LogMailer{Logger: logger}
	}

	// -------- NAVIGATION --------
	engine.navigation = b.navigation
	if engine.navigation == nil {
		nav, err := permission.DefaultNavigation()
		if err != nil {
			return nil, err
		}
		engine.navigation = nav
	}

	engine.flows = engine.buildFlowDeps()
	b.built = true

	return engine, nil
}
