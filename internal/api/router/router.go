package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"levelhub/config"
	"levelhub/internal/api/handler"
	"levelhub/internal/api/middleware"
	"levelhub/pkg/jwt"
	"levelhub/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时不启用 Token 黑名单与限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidators()

	var (
		blacklist middleware.Blacklist
		limiter   middleware.Limiter
	)
	if rdb != nil {
		blacklist, limiter = rdb, rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitKB * 1024))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证，按 IP 限流）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(limiter, cfg.RateLimit.AuthLimit, cfg.RateLimit.AuthWindow))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 用户模块
			authorized.GET("/users/search", h.User.SearchUsers)

			// 课程模块
			lessons := authorized.Group("/lessons")
			{
				lessons.POST("", h.Lesson.CreateLesson)
				lessons.GET("/mine", h.Lesson.ListMyLessons)
				lessons.GET("/search", h.Lesson.SearchLessons)
				lessons.GET("/:id", h.Lesson.GetLesson)
				lessons.PUT("/:id", h.Lesson.UpdateLesson)
				lessons.DELETE("/:id", h.Lesson.DeleteLesson)
				lessons.GET("/:id/registrations", h.Registration.ListByLesson)
				lessons.GET("/:id/attendance.xlsx", h.Export.ExportAttendance)
			}

			// 请求模块
			requests := authorized.Group("/requests")
			{
				requests.GET("", h.Request.ListRequests)
				requests.POST("", h.Request.Submit)
				requests.GET("/pulse", h.Request.Pulse)
			}

			// 注册与课时模块
			regs := authorized.Group("/registrations")
			{
				regs.PUT("/:id", h.Registration.UpdateRegistration)
				regs.DELETE("/:id", h.Registration.DeleteRegistration)
				regs.GET("/:id/logs", h.Registration.ListLogs)
				regs.POST("/:id/logs", h.Registration.CreateLogs)
				regs.GET("/:id/logs.ics", h.Export.ExportLogCalendar)
			}
			regLogs := authorized.Group("/registration-logs")
			{
				regLogs.PUT("/:id", h.Registration.UpdateLog)
				regLogs.DELETE("/:id", h.Registration.DeleteLog)
			}

			// 消息模块
			messages := authorized.Group("/messages")
			{
				messages.GET("", h.Message.ListMessages)
				messages.POST("", h.Message.PostMessage)
				messages.DELETE("/:id", h.Message.DeleteMessage)
			}
		}
	}

	return r
}
