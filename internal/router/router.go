package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/health-analytics/internal/handler/prometheus"
	"github.com/jwalitptl/health-analytics/internal/middleware"
)

// Handler registers routes on a group scoped to one user
type Handler interface {
	RegisterRoutes(gin.IRouter)
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	health  Handler
	metrics *prometheus.Handler
	user    []Handler
	limiter *middleware.RateLimiter
	config  RouterConfig
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RateEnabled    bool
	CORSConfig     middleware.CORSConfig
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// NewRouter wires the middleware chain. userHandlers are mounted under
// /api/v1/users/:userId behind authentication and the owner check.
func NewRouter(
	auth *middleware.AuthMiddleware,
	health Handler,
	metrics *prometheus.Handler,
	config RouterConfig,
	userHandlers ...Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		health:  health,
		metrics: metrics,
		user:    userHandlers,
		config:  config,
	}
	if config.RateEnabled {
		r.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
	}

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxBodyBytes > 0 {
		sizeLimit.MaxBodySize = config.MaxBodyBytes
	}
	timeout := middleware.DefaultTimeoutConfig()
	if config.RequestTimeout > 0 {
		timeout.Duration = config.RequestTimeout
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		metrics.Middleware(),
		middleware.ErrorHandler(),
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(sizeLimit),
		middleware.Timeout(timeout),
	)

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.metrics.Handler())
	r.health.RegisterRoutes(r.engine)

	api := r.engine.Group("/api/v1")
	r.health.RegisterRoutes(api)

	users := api.Group("/users/:" + middleware.UserIDParam)
	users.Use(r.auth.Authenticate(), r.auth.RequireOwner())
	if r.limiter != nil {
		users.Use(r.limiter.RateLimit())
	}
	for _, h := range r.user {
		h.RegisterRoutes(users)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
