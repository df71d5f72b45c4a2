package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sga-horarios/backend/config"
	"sga-horarios/backend/pkg/database"
	applogger "sga-horarios/backend/pkg/logger"
)

// env 管理命令共享的配置、日志与数据库连接，按需初始化
type env struct {
	configPath string

	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "SGA 课表后端管理工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")
	root.PersistentPostRun = func(*cobra.Command, []string) { e.close() }

	root.AddCommand(
		newAddUserCmd(e),
		newMigrateCmd(e),
		newCheckCmd(),
		newExportICSCmd(),
	)
	return root
}

// load 加载配置与日志
func (e *env) load() error {
	if e.cfg != nil {
		return nil
	}
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	e.cfg, e.logger = cfg, logger
	return nil
}

// openDB 连接数据库（不自动迁移）
func (e *env) openDB() (*gorm.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	db, err := database.NewDB(&e.cfg.Database, e.cfg.Log.Level, e.logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	e.db = db
	return db, nil
}

func (e *env) close() {
	if e.db != nil {
		if sqlDB, err := e.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if e.logger != nil {
		e.logger.Sync()
	}
}
