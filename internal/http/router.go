// Package httpapi wires the HTTP transport (Gin) to the dialogue services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/config"
	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/http/handlers"
	"github.com/ksultani/go-dinebot-backend/internal/http/middleware"
	"github.com/ksultani/go-dinebot-backend/internal/nlu"
	"github.com/ksultani/go-dinebot-backend/internal/observability"
	"github.com/ksultani/go-dinebot-backend/internal/repo"
	"github.com/ksultani/go-dinebot-backend/internal/services"
)

// The repo shims adapt the repository free functions to the interfaces the
// services declare. This keeps services decoupled from the concrete repo
// package while reusing existing functions.

type sessionRepoShim struct{}

func (sessionRepoShim) CreateSession(ctx context.Context, db *gorm.DB, customerID, channel string, ttl time.Duration) (*domain.Session, error) {
	return repo.CreateSession(ctx, db, customerID, channel, ttl)
}

func (sessionRepoShim) GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.Session, error) {
	return repo.GetSession(ctx, db, id)
}

func (sessionRepoShim) FindActiveSession(ctx context.Context, db *gorm.DB, customerID string, now time.Time) (*domain.Session, error) {
	return repo.FindActiveSession(ctx, db, customerID, now)
}

func (sessionRepoShim) SaveSession(ctx context.Context, db *gorm.DB, s *domain.Session) error {
	return repo.SaveSession(ctx, db, s)
}

func (sessionRepoShim) ExpireActiveSessions(ctx context.Context, db *gorm.DB, customerID string, now time.Time) (int64, error) {
	return repo.ExpireActiveSessions(ctx, db, customerID, now)
}

type customerRepoShim struct{}

func (customerRepoShim) GetOrCreateCustomerByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Customer, error) {
	return repo.GetOrCreateCustomerByPhone(ctx, db, phone)
}

type menuRepoShim struct{}

func (menuRepoShim) ListAvailableMenuItems(ctx context.Context, db *gorm.DB) ([]domain.MenuItem, error) {
	return repo.ListAvailableMenuItems(ctx, db)
}

func (menuRepoShim) GetMenuItem(ctx context.Context, db *gorm.DB, id string) (*domain.MenuItem, error) {
	return repo.GetMenuItem(ctx, db, id)
}

type orderRepoShim struct{}

func (orderRepoShim) CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return repo.CreateOrder(ctx, db, o)
}

func (orderRepoShim) GetMenuItem(ctx context.Context, db *gorm.DB, id string) (*domain.MenuItem, error) {
	return repo.GetMenuItem(ctx, db, id)
}

func (orderRepoShim) FindOrderByNumber(ctx context.Context, db *gorm.DB, customerID, numberPrefix string) (*domain.Order, error) {
	return repo.FindOrderByNumber(ctx, db, customerID, numberPrefix)
}

func (orderRepoShim) LatestOrderForCustomer(ctx context.Context, db *gorm.DB, customerID string) (*domain.Order, error) {
	return repo.LatestOrderForCustomer(ctx, db, customerID)
}

type issueRepoShim struct{}

func (issueRepoShim) CreateIssue(ctx context.Context, db *gorm.DB, orderID, customerID string, issueType domain.IssueType, description string, sentiment domain.Sentiment) (*domain.Issue, error) {
	return repo.CreateIssue(ctx, db, orderID, customerID, issueType, description, sentiment)
}

func (issueRepoShim) ResolveIssue(ctx context.Context, db *gorm.DB, id, resolution string, compensation *float64) error {
	return repo.ResolveIssue(ctx, db, id, resolution, compensation)
}

func (issueRepoShim) EscalateIssue(ctx context.Context, db *gorm.DB, id, resolution string) error {
	return repo.EscalateIssue(ctx, db, id, resolution)
}

// customerResolverShim exposes phone-to-customer resolution to the handlers.
type customerResolverShim struct{ db *gorm.DB }

func (s customerResolverShim) ResolveByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return repo.GetOrCreateCustomerByPhone(ctx, s.db, phone)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// public API under the configured base path.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Response compression
//  8. Rate limiter (per phone/IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, classifier nlu.IntentClassifier, matcher nlu.ItemMatcher, answerer nlu.MenuAnswerer) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (phone numbers are PII here)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 8) Token-bucket rate limiter per phone/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByPhoneOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Customer-Phone"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Customer-Phone"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/NLU
	audit := services.NewDBAuditSink(db)
	menuSvc := services.NewMenuService(db, menuRepoShim{}, cfg.MenuCacheTTL, answerer)
	resolver := &services.Resolver{Matcher: matcher, AutoAccept: cfg.Confidence.AutoAccept}
	sessionSvc := services.NewSessionService(db, sessionRepoShim{}, customerRepoShim{}, cfg.Session)
	orderSvc := services.NewOrderService(db, orderRepoShim{}, menuSvc, resolver, cfg.Order, cfg.Confidence, audit)
	issueSvc := services.NewIssueService(db, issueRepoShim{}, orderRepoShim{}, services.PolicyEngine{Cfg: cfg.Policy}, audit)

	orch := services.NewOrchestrator(sessionSvc, orderSvc, issueSvc, menuSvc, classifier, cfg.Confidence, audit)
	orch.OnTurn = func(intent domain.Intent, escalated bool) {
		observability.RecordTurn(string(intent), escalated)
	}

	h := handlers.New(orch, menuSvc, orderSvc, customerResolverShim{db: db}, cfg.Session.MaxMessageLen)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Conversation
		api.POST("/conversation", h.PostConversation)

		// Menu
		api.GET("/menu", h.GetMenu)

		// Order tracking
		api.GET("/orders", h.GetLatestOrder)
		api.GET("/orders/:number", h.GetOrder)
	}

	// API docs (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
