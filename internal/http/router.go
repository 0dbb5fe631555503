package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/config"
)

// RateLimiter 简单的内存速率限制器（滑动窗口）
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int           // 最大请求数
	window   time.Duration // 时间窗口
}

// NewRateLimiter 创建速率限制器
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	// 清理过期请求
	var valid []time.Time
	for _, t := range rl.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	// 检查是否超过限制
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	// 记录新请求
	rl.requests[key] = append(valid, now)
	return true
}

// RateLimitMiddleware 速率限制中间件
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 使用用户 ID 或 IP 作为限制 key
		key := c.GetString("userID")
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

type Server struct {
	router  *gin.Engine
	handler *Handler
	cfg     *config.Config

	userRateLimiter   *RateLimiter
	deployRateLimiter *RateLimiter
}

func NewServer(cfg *config.Config, handler *Handler) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		handler: handler,
		cfg:     cfg,
		// 用户 API 速率限制: 每用户每分钟最多 30 次请求
		userRateLimiter: NewRateLimiter(30, time.Minute),
		// 部署速率限制: 每用户每小时最多 5 次部署
		// 说明: 部署开销大，5 次足够覆盖重试和重建场景
		deployRateLimiter: NewRateLimiter(5, time.Hour),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "botdeploy-service",
		})
	})

	// User API - requires JWT authentication
	user := s.router.Group("/api/v1")
	user.Use(JWTAuthMiddleware(s.cfg.JWT.SecretKey))
	user.Use(RateLimitMiddleware(s.userRateLimiter)) // 用户 API 速率限制
	{
		// 部署使用更严格的速率限制
		user.POST("/my/bots", RateLimitMiddleware(s.deployRateLimiter), s.handler.Deploy)
		user.GET("/my/bots", s.handler.ListMyBots)
		user.DELETE("/my/bots/:app_name", s.handler.DeleteMyBot)
		user.POST("/my/bots/:app_name/restart", s.handler.RestartMyBot)
		user.PUT("/my/bots/:app_name/session", s.handler.UpdateMySession)

		user.GET("/my/trial/status", s.handler.GetTrialStatus)
	}

	// Callback API - called by the health-reporting collaborator
	callback := s.router.Group("/api/callback")
	callback.Use(InternalAuthMiddleware(s.cfg.InternalSecret))
	{
		callback.POST("/connection", s.handler.ConnectionSignal)
	}

	// Internal Admin API (called by the operator portal)
	internalAdmin := s.router.Group("/api/internal/admin")
	internalAdmin.Use(InternalAuthMiddleware(s.cfg.InternalSecret))
	{
		internalAdmin.POST("/keys", s.handler.CreateDeployKey)
		internalAdmin.GET("/keys", s.handler.ListDeployKeys)
		internalAdmin.GET("/keys/:key", s.handler.GetDeployKey)
		internalAdmin.GET("/users/:user_id/bots", s.handler.ListUserBots)
		internalAdmin.GET("/bots/:app_name/logs", s.handler.GetBotLogs)
		internalAdmin.GET("/bots/:app_name/info", s.handler.GetAppInfo)
	}
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
