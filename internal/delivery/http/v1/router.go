package v1

import (
	"net/http"

	"consultancy-backend/internal/delivery/http/middleware"
	"consultancy-backend/internal/delivery/http/response"
	"consultancy-backend/internal/domain"
	"consultancy-backend/internal/usecase"
	"consultancy-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	ContactUC      domain.ContactUsecase
	HealthUC       usecase.HealthUsecase
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For; nil keys clients by socket address
	TrustedProxies []string
	// ContactLimit guards submission routes; nil disables rate limiting
	ContactLimit gin.HandlerFunc
	// AccessLog is the request logger; nil uses gin.Logger
	AccessLog gin.HandlerFunc
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		logger.Log.Warn("invalid trusted proxies, ignoring forwarded headers", "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	accessLog := deps.AccessLog
	if accessLog == nil {
		accessLog = gin.Logger()
	}

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.AllowedOrigins)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(accessLog)
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "System operational", deps.HealthUC.Check(c.Request.Context()))
	})

	// Public routes
	NewContactHandler(v1, deps.ContactUC, deps.ContactLimit)

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// RPC surface used by the site's client
	NewTRPCHandler(r, deps.ContactUC, deps.HealthUC, deps.ContactLimit)

	return r
}
