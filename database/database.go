package database

import (
	"fmt"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/config"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	sequenceModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/sequence"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialector picks the gorm driver for the configured DB_DRIVER.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "", "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
		)
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.DBName), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// ConnectDb opens the configured database and migrates it.
func ConnectDb(cfg *config.Config, logg *logger.Logger) (*gorm.DB, error) {
	dbLog := logg.With("service", "database", "driver", cfg.DBDriver)

	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: GormLogger(dbLog, time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.DBDriver, err)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns / 2)
	sqlDB.SetConnMaxLifetime(0) // No timeout

	dbLog.Info("Running Migrations...")
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	dbLog.Info("Migrations completed successfully.")

	return db, nil
}

// Migrate creates or updates every table together with its unique indexes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserTag{},
		&models.LoginTracking{},

		&courseModels.Course{},
		&courseModels.Module{},
		&courseModels.Lesson{},
		&courseModels.ModuleQuiz{},
		&courseModels.QuizQuestion{},
		&courseModels.QuizAnswer{},
		&courseModels.LessonProgress{},
		&courseModels.ModuleProgress{},
		&courseModels.QuizAttempt{},
		&courseModels.Certificate{},
		&courseModels.Enrollment{},

		&sequenceModels.Sequence{},
		&sequenceModels.SequenceEmail{},
		&sequenceModels.SequenceEnrollment{},
		&sequenceModels.SequenceEmailSend{},
		&sequenceModels.EmailEvent{},
	)
}
