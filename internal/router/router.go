package router

import (
	"strings"

	"github.com/tabiguide-next/internal/cache"
	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/constants"
	publichandlers "github.com/tabiguide-next/internal/http/handlers/public"
	"github.com/tabiguide-next/internal/logger"
	"github.com/tabiguide-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin engine with middleware and the ledger routes
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	limiter := NewWriteLimiter(cache.Client(), redisPrefix)
	createLimit, updateLimit := ledgerWriteLimits(cfg.Security.RateLimit)

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.NoRoute(NoRouteHandler)

	r.GET("/health", publicHandler.Health)

	referrals := r.Group("/api/referrals")
	{
		referrals.POST("", limiter.Limit(createLimit), publicHandler.CreateReferral)
		referrals.GET("", publicHandler.ListReferrals)
		referrals.GET("/guide/:guideId", publicHandler.ListReferralsByGuide)
		referrals.GET("/store/:storeId", publicHandler.ListReferralsByStore)
		referrals.GET("/dashboard/:guideId", publicHandler.GetCommissionDashboard)
		referrals.PUT("/:id", limiter.Limit(updateLimit), publicHandler.UpdateReferral)
	}

	return r
}
