package handlers

import (
	"net/http"
	"time"

	"user_management/internal/logger"
	"user_management/internal/observability"
	"user_management/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services       *service.Service
	log            *logger.Logger
	prom           *observability.Prom
	authRequired   bool
	requestTimeout time.Duration
}

type Option func(*Handler)

// WithMetrics records request metrics and exposes them on /metrics.
func WithMetrics(p *observability.Prom) Option {
	return func(h *Handler) { h.prom = p }
}

// WithAuthRequired puts /users and /api/v1 behind a bearer token.
// Mutating user routes additionally need an admin token.
func WithAuthRequired(required bool) Option {
	return func(h *Handler) { h.authRequired = required }
}

// WithRequestTimeout bounds the context of every non-streaming request.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) { h.requestTimeout = d }
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{services: services, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if h.prom != nil {
		router.Use(h.prom.GinHandleMiddleware())
		router.GET("/metrics", gin.WrapH(h.prom.Handler()))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	// Long-lived; not subject to the request timeout.
	router.GET("/ws", append(h.guard(), h.wsConnect)...)

	timed := router.Group("/", h.timeoutMiddleware)
	h.registerAuthRoutes(timed)
	h.registerUserRoutes(timed)
	h.registerAPIRoutes(timed)

	return router
}

// guard returns the identity middleware when auth is required.
func (h *Handler) guard() []gin.HandlerFunc {
	if !h.authRequired {
		return nil
	}
	return []gin.HandlerFunc{h.identityMiddleware}
}

// adminGuard returns the admin check when auth is required. It must run
// after the identity middleware.
func (h *Handler) adminGuard() []gin.HandlerFunc {
	if !h.authRequired {
		return nil
	}
	return []gin.HandlerFunc{h.adminOnly}
}

func (h *Handler) registerAuthRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerUserRoutes(r *gin.RouterGroup) {
	users := r.Group("/users", h.guard()...)
	{
		users.GET("", h.findUsers)
		users.GET("/:userId", h.findUserByID)
		users.POST("", append(h.adminGuard(), h.createUser)...)
		users.PUT("/:userId", append(h.adminGuard(), h.updateUserByID)...)
		users.POST("/:userId", append(h.adminGuard(), h.createUserWithID)...)
		users.DELETE("/:userId", append(h.adminGuard(), h.deleteUserByID)...)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.RouterGroup) {
	api := r.Group("/api/v1", h.guard()...)
	{
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
		logs.GET("/", h.getLogs)
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
