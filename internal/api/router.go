// Package api exposes tenant sessions and their collections over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classcaptain/internal/academy"
	"classcaptain/internal/auth"
	"classcaptain/internal/domain"
	"classcaptain/internal/httpmiddleware"
	"classcaptain/internal/reconcile"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Options configures the router.
type Options struct {
	SigningKey      string
	Issuer          string
	AccessTTL       time.Duration
	RateLimitPerMin int
	CORSOrigins     []string
	// Checks are reported by /healthz. A failing check makes it return 503.
	Checks map[string]HealthCheck
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Server holds the handler dependencies.
type Server struct {
	manager   *reconcile.Manager
	academies *academy.Registry
	opts      Options
	log       *slog.Logger
}

func NewServer(m *reconcile.Manager, academies *academy.Registry, opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 12 * time.Hour
	}
	return &Server{manager: m, academies: academies, opts: opts, log: log}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(s.opts.CORSOrigins))
	r.Use(securityHeaders())

	limiter := httpmiddleware.NewSimpleTokenBucket(s.opts.RateLimitPerMin, s.opts.RateLimitPerMin)

	gatherer := s.opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	v1.GET("/catalog", catalog)
	byIP := limiter.GinMiddleware(httpmiddleware.ByClientIP)
	v1.POST("/academies", byIP, s.registerAcademy)
	v1.POST("/sessions", byIP, s.openSession)

	authed := v1.Group("", auth.TenantAuth(s.opts.SigningKey, s.opts.Issuer), s.requireSession, limiter.GinMiddleware(byTenant))
	authed.DELETE("/sessions", s.closeSession)
	authed.GET("/dashboard", s.dashboard)

	admin := auth.RequireRole(auth.RoleAcademy)
	mount(authed, domain.Students, func(ss *reconcile.Session) *reconcile.Collection[*domain.Student] { return ss.Students },
		func() *domain.Student { return &domain.Student{} }, admin)
	mount(authed, domain.Teachers, func(ss *reconcile.Session) *reconcile.Collection[*domain.Teacher] { return ss.Teachers },
		func() *domain.Teacher { return &domain.Teacher{} }, admin)
	mount(authed, domain.Batches, func(ss *reconcile.Session) *reconcile.Collection[*domain.Batch] { return ss.Batches },
		func() *domain.Batch { return &domain.Batch{} }, admin)
	authed.GET("/batches/:id/roster", s.roster)

	return r
}

func mount[T domain.Record](g *gin.RouterGroup, name domain.Collection, pick func(*reconcile.Session) *reconcile.Collection[T], draft func() T, admin gin.HandlerFunc) {
	path := "/" + string(name)
	g.GET(path, listRecords(pick))
	g.POST(path, admin, createRecord(pick, draft))
	g.DELETE(path+"/:id", admin, deleteRecord(pick))
}

// byTenant rate limits authenticated requests per academy.
func byTenant(c *gin.Context) string {
	if claims, ok := auth.ClaimsFrom(c); ok {
		return "academy:" + claims.AcademyID
	}
	return "ip:" + c.ClientIP()
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        24 * time.Hour,
	}
	// Credentials are only allowed for an explicit origin list, never for "*".
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok", "sessions": s.manager.Active()}
	for name, check := range s.opts.Checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
