// db/db.go
package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vanguard-api/vanguard/config"
	logger "github.com/vanguard-api/vanguard/logging"
	"github.com/vanguard-api/vanguard/model"
)

var DB *gorm.DB

func InitMySQL() error {
	cfg := config.GetConfig().MySQL

	var err error
	DB, err = gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access MySQL pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := DB.AutoMigrate(&model.User{}, &model.Item{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Info("Successfully connected to MySQL")
	return nil
}

func CloseMySQL() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing MySQL connection", zap.Error(err))
	}
}
