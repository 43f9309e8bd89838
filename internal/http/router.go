// Package httpapi assembles the Gin engine: the middleware chain, the
// health, metrics and Swagger endpoints, and the podcast API routes backed by
// services.PodcastService.
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

	"github.com/tbourn/go-podcast-backend/docs"
	"github.com/tbourn/go-podcast-backend/internal/config"
	"github.com/tbourn/go-podcast-backend/internal/domain"
	"github.com/tbourn/go-podcast-backend/internal/http/handlers"
	"github.com/tbourn/go-podcast-backend/internal/http/middleware"
	"github.com/tbourn/go-podcast-backend/internal/repo"
	"github.com/tbourn/go-podcast-backend/internal/services"
)

// podcastRepoShim adapts the repository free functions to the
// services.PodcastRepo interface expected by the PodcastService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type podcastRepoShim struct{}

// InsertPodcast proxies repo.InsertPodcast.
func (podcastRepoShim) InsertPodcast(ctx context.Context, db *gorm.DB, p *domain.Podcast) error {
	return repo.InsertPodcast(ctx, db, p)
}

// CodeExists proxies repo.CodeExists.
func (podcastRepoShim) CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	return repo.CodeExists(ctx, db, code)
}

// FindPodcastByCode proxies repo.FindPodcastByCode.
func (podcastRepoShim) FindPodcastByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Podcast, error) {
	return repo.FindPodcastByCode(ctx, db, code)
}

// ListRecentPodcasts proxies repo.ListRecentPodcasts.
func (podcastRepoShim) ListRecentPodcasts(ctx context.Context, db *gorm.DB, limit int) ([]domain.Podcast, error) {
	return repo.ListRecentPodcasts(ctx, db, limit)
}

// ApplyPodcastResult proxies repo.ApplyPodcastResult.
func (podcastRepoShim) ApplyPodcastResult(ctx context.Context, db *gorm.DB, code string, res domain.PodcastResult) (*domain.Podcast, error) {
	return repo.ApplyPodcastResult(ctx, db, code, res)
}

// PodcastsStats proxies repo.PodcastsStats (ETag support).
func (podcastRepoShim) PodcastsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.PodcastsStats(ctx, db)
}

// NewPodcastService builds the PodcastService used by the routes, applying
// the job limits from cfg.
func NewPodcastService(db *gorm.DB, trigger services.Trigger, cfg config.Config) *services.PodcastService {
	svc := services.NewPodcastService(db, podcastRepoShim{}, trigger)
	if cfg.Jobs.CodeMaxRetries > 0 {
		svc.Resolver = services.NewCodeResolver(cfg.Jobs.CodeMaxRetries)
	}
	if cfg.Jobs.ListLimit > 0 {
		svc.ListLimit = cfg.Jobs.ListLimit
	}
	if cfg.IdempotencyTTL > 0 {
		svc.IdempotencyTTL = cfg.IdempotencyTTL
	}
	return svc
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger (or Logger when LOG_REDACT=false)
//  4. Recovery: capture panics after logger
//  5. Body size limiter and gzip
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, trigger services.Trigger, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging, scrubbed unless explicitly disabled
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{middleware.HeaderIdempotencyKey},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, clientKey, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, clientKey, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per client
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClient())
	r.Use(rl.Handler())

	// 9) CORS for the browser client
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))

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

	// Liveness/health, including the store
	r.GET("/health", healthHandler(db))

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: service ← repo/db/trigger
	h := handlers.New(NewPodcastService(db, trigger, cfg))

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/generate-podcast", h.GeneratePodcast)
		api.GET("/podcast/:code", h.GetPodcast)
		api.GET("/podcasts", h.ListPodcasts)
		api.GET("/podcasts/:code", h.GetPodcastRecord)

		// Generator callback, only when a shared token is configured
		if cfg.Jobs.CallbackToken != "" {
			api.POST("/podcasts/:code/result", middleware.RequireBearer(cfg.Jobs.CallbackToken), h.ReportResult)
		}
	}
}

// healthHandler reports ok when the database answers a ping within two
// seconds, and 503 otherwise.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("health: database ping failed")
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeUnavailable, "Database connection failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// corsMiddleware allows any origin when none are configured and otherwise
// only the listed ones; requests from other origins get 403. Credentials are
// never allowed, which is what makes the wildcard safe.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{middleware.HeaderRequestID, "Content-Length", "ETag", "Idempotent-Replay", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
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
