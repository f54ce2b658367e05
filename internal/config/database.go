package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dealer_tracker/internal/models"
)

// InitDB opens the postgres connection, enables PostGIS and migrates the tracker models.
func InitDB(cfg Config, log gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS postgis;").Error; err != nil {
		logrus.WithError(err).Warn("PostGIS extension unavailable, geometry stays WKB bytea only.")
	}

	err = db.AutoMigrate(
		&models.CoverageArea{},
		&models.Company{},
		&models.Dealer{},
		&models.DealerHistory{},
		&models.LocationHistory{},
		&models.Order{},
		&models.OrderStatusEvent{},
		&models.EmergencyReport{},
	)
	if err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}

	return db, nil
}
