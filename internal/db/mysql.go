package db

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sessionauth/internal/model"
)

// NewMySQL returns a connected GORM DB instance. Driver errors such as
// duplicate keys are translated to gorm sentinel errors.
func NewMySQL(dsn string) (*gorm.DB, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	// expires_at is compared against time.Now, so it must scan as time.Time.
	cfg.ParseTime = true

	db, err := gorm.Open(mysql.Open(cfg.FormatDSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates the users and sessions tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Session{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
