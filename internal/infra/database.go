package infra

import (
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/config"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the Postgres connection pool and migrates the schema.
// TranslateError is on so driver errors surface as gorm sentinels
// (gorm.ErrDuplicatedKey and friends) that the retry classifier matches on.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(
		&model.StockItem{},
		&model.Purchase{},
		&model.CostHistory{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
