package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sga-horarios/backend/config"
	"sga-horarios/backend/internal/api/handler"
	"sga-horarios/backend/internal/api/middleware"
	"sga-horarios/backend/internal/api/router"
	"sga-horarios/backend/internal/repository"
	"sga-horarios/backend/internal/service"
	"sga-horarios/backend/pkg/database"
	"sga-horarios/backend/pkg/jwt"
	applogger "sga-horarios/backend/pkg/logger"
	"sga-horarios/backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("SGA_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("服务异常退出", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("服务器已关闭")
}

// run 装配依赖并阻塞到 ctx 取消，随后优雅关闭
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("schedule_source", cfg.Schedule.SourceURL),
	)

	// 数据库与迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return err
	}

	// Redis 可选：连接失败时黑名单与登录限流不可用
	var (
		blacklist service.TokenBlacklist
		checker   middleware.TokenChecker
		limiter   middleware.RateLimiter
	)
	if rdb, err := redis.NewClient(&cfg.Redis, logger); err != nil {
		logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
	} else {
		defer rdb.Close()
		blacklist, checker, limiter = rdb, rdb, rdb
	}

	// Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	source := service.NewScheduleSource(&cfg.Schedule, logger)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, blacklist, source, logger)
	h := handler.NewHandler(cfg, svc)

	seedSchedule(ctx, svc.Schedule, filepath.Join(cfg.Schedule.DataDir, "horarios.xml"), logger)

	engine := router.Setup(cfg, h, jwtMgr, checker, limiter, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP 服务器异常: %w", err)
	case <-ctx.Done():
	}

	logger.Info("收到关闭信号，开始优雅关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedSchedule 工作副本为空时，用数据目录中的静态文档初始化
// 失败只记录日志，管理员仍可通过导入接口补救
func seedSchedule(ctx context.Context, schedule service.ScheduleService, path string, logger *zap.Logger) {
	sys, err := schedule.GetSystem(ctx)
	if err != nil {
		logger.Warn("读取课表失败，跳过初始化", zap.Error(err))
		return
	}
	if len(sys.Entries) > 0 {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Info("未找到初始课表文档", zap.String("path", path))
		return
	}
	result, err := schedule.ImportXML(ctx, data, "")
	if err != nil {
		logger.Warn("初始课表导入失败", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Info("已从静态文档初始化课表",
		zap.String("period", result.Period),
		zap.Int("entries", result.Entries),
		zap.Int("conflict_groups", len(result.Conflicts)),
	)
}
