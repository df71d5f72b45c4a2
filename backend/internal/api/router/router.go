package router

import (
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sga-horarios/backend/config"
	"sga-horarios/backend/internal/api/handler"
	"sga-horarios/backend/internal/api/middleware"
	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/pkg/jwt"
)

// 静态课表文档文件名，与 /data/horarios.xml 对应
const scheduleDocument = "horarios.xml"

// Setup 初始化并返回 Gin 路由引擎
// checker 与 limiter 可为 nil（Redis 未启用时跳过黑名单与限流）
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	checker middleware.TokenChecker,
	limiter middleware.RateLimiter,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidators()

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── 静态课表文档（前端与 ImportFromSource 的默认来源）──
	docPath := filepath.Join(cfg.Schedule.DataDir, scheduleDocument)
	r.GET("/data/"+scheduleDocument, func(c *gin.Context) {
		c.File(docPath)
	})

	admin := middleware.RoleAuth(model.RoleAdmin)
	staff := middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin)
	teacher := middleware.RoleAuth(model.RoleTeacher)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", loginLimit(cfg, limiter, logger), h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", admin, h.User.ListUsers)
				users.POST("", admin, h.User.CreateUser)
				users.GET("/:id", admin, h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser) // 管理员或本人（Service 层鉴权）
				users.DELETE("/:id", admin, h.User.DeleteUser)
			}

			// 学院模块
			faculties := authorized.Group("/faculties")
			{
				faculties.GET("", h.Faculty.ListFaculties)
				faculties.GET("/:id", h.Faculty.GetFaculty)
				faculties.POST("", admin, h.Faculty.CreateFaculty)
				faculties.PUT("/:id", admin, h.Faculty.UpdateFaculty)
				faculties.DELETE("/:id", admin, h.Faculty.DeleteFaculty)
			}

			// 科目模块
			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Subject.ListSubjects)
				subjects.GET("/:id", h.Subject.GetSubject)
				subjects.POST("", admin, h.Subject.CreateSubject)
				subjects.PUT("/:id", admin, h.Subject.UpdateSubject)
				subjects.DELETE("/:id", admin, h.Subject.DeleteSubject)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.POST("", admin, h.Notification.CreateNotification)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
				notifications.DELETE("/read", h.Notification.DeleteRead)
				notifications.DELETE("/:id", h.Notification.DeleteNotification)
			}

			// 课表模块
			schedule := authorized.Group("/schedule")
			{
				schedule.GET("", h.Schedule.GetSystem)
				schedule.GET("/entries", h.Schedule.ListEntries)
				schedule.GET("/entries/:id", h.Schedule.GetEntry)
				schedule.GET("/my", staff, h.Schedule.MyEntries)
				schedule.GET("/stats", h.Schedule.Statistics)
				schedule.GET("/catalogs", h.Schedule.Catalogs)
				schedule.GET("/matrix", h.Schedule.WeeklyMatrix)

				schedule.POST("/import", admin, h.Schedule.ImportXML)
				schedule.POST("/import/source", admin, h.Schedule.ImportFromSource)
				schedule.POST("/entries", admin, h.Schedule.CreateEntry)
				schedule.POST("/entries/validate", admin, h.Schedule.ValidateEntry)
				schedule.PUT("/entries/:id", admin, h.Schedule.UpdateEntry)
				schedule.DELETE("/entries/:id", admin, h.Schedule.DeleteEntry)
				schedule.PUT("/metadata", admin, h.Schedule.UpdateMetadata)

				schedule.GET("/conflicts", staff, h.Schedule.AllConflicts)
				schedule.GET("/conflicts/instructors/:id", staff, h.Schedule.InstructorConflicts)
				schedule.GET("/conflicts/rooms/:code", staff, h.Schedule.RoomConflicts)
			}

			// 教师偏好模块
			preferences := authorized.Group("/preferences")
			{
				preferences.GET("/me", teacher, h.Preference.GetMine)
				preferences.PUT("/me", teacher, h.Preference.UpdateMine)
				preferences.POST("/me/unavailable", teacher, h.Preference.CreateUnavailable)
				preferences.PUT("/me/unavailable/:id", teacher, h.Preference.UpdateUnavailable)
				preferences.DELETE("/me/unavailable/:id", teacher, h.Preference.DeleteUnavailable)
				preferences.GET("/instructors/:id", admin, h.Preference.ForInstructor)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/xml", admin, h.Export.ExportXML)
				export.GET("/excel", admin, h.Export.ExportExcel)
				export.GET("/ics", h.Export.ExportICS)
			}
		}
	}

	return r
}

// loginLimit 登录接口限流；未配置次数时不启用
func loginLimit(cfg *config.Config, limiter middleware.RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	limit, window := cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if window <= 0 {
		window = time.Minute
	}
	return middleware.RateLimit(limiter, limit, window, logger)
}
