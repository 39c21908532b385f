package handler

import (
	"channel-market/internal/adapter/http/middleware"
	redisStore "channel-market/internal/adapter/storage/redis"
	"channel-market/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	PurchaseSvc    ports.PurchaseService
	ChannelSvc     ports.ChannelService
	UserSvc        ports.UserService
	StatsSvc       ports.StatsService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/telegram", rl("auth_telegram"), authHandler.LoginTelegram)
		auth.POST("/admin/login", rl("auth_admin"), authHandler.LoginAdmin)
	}

	userHandler := NewUserHandler(deps.UserSvc)
	v1.POST("/users", rl("auth_telegram"), userHandler.Register)

	channelHandler := NewChannelHandler(deps.ChannelSvc, deps.UserSvc)
	v1.GET("/channels", rl("browse"), channelHandler.List)
	v1.GET("/channels/:id", rl("browse"), channelHandler.GetByID)
	v1.GET("/gifts", rl("browse"), channelHandler.ListGifts)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	purchaseHandler := NewPurchaseHandler(deps.PurchaseSvc)

	purchases := v1.Group("/purchases", jwtAuth)
	{
		purchases.POST("", rl("purchases"), purchaseHandler.Initiate)
		purchases.GET("/:id", rl("browse"), purchaseHandler.GetByID)
		purchases.GET("/channel/:channelId", rl("browse"), purchaseHandler.ListByChannel)
		purchases.GET("/seller/:sellerId", rl("browse"), purchaseHandler.ListBySeller)
		purchases.POST("/:id/confirm-buyer", rl("purchases"), purchaseHandler.ConfirmBuyer)
		purchases.POST("/:id/confirm-seller", rl("purchases"), purchaseHandler.ConfirmSeller)
	}

	users := v1.Group("/users", jwtAuth)
	{
		users.GET("/:id", rl("browse"), userHandler.GetByID)
		users.POST("/:id/deposit", rl("deposits"), userHandler.Deposit)
		users.GET("/:id/referrals", rl("browse"), userHandler.ReferralSummary)
	}

	channels := v1.Group("/channels", jwtAuth)
	{
		channels.POST("", rl("listings"), channelHandler.Create)
		channels.DELETE("/:id", rl("listings"), channelHandler.Delete)
	}

	// --- Admin routes (JWT + admin claim) ---
	adminHandler := NewAdminHandler(deps.UserSvc, deps.StatsSvc)
	admin := v1.Group("/admin", jwtAuth, middleware.AdminOnly())
	{
		admin.POST("/users/:id/balance", rl("listings"), adminHandler.AdjustBalance)
		admin.GET("/stats", rl("browse"), adminHandler.GetStats)
	}

	return r
}
