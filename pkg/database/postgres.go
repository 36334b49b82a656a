package database

import (
	"fmt"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("connected to postgres")
	return db, nil
}

// Migrate creates the tables and the exclusion constraint that keeps an
// employee's active bookings from overlapping.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Service{}, &models.User{}, &models.Booking{}, &models.BookingItem{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		return fmt.Errorf("enable btree_gist: %w", err)
	}

	if err := db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_employee_no_overlap') THEN
				ALTER TABLE bookings ADD CONSTRAINT bookings_employee_no_overlap
				EXCLUDE USING gist (
					employee_id WITH =,
					tstzrange(scheduled_at, ends_at, '[)') WITH &&
				) WHERE (status NOT IN ('cancelled', 'completed'));
			END IF;
		END $$;
	`).Error; err != nil {
		return fmt.Errorf("add overlap constraint: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_employee_window
		ON bookings (employee_id, scheduled_at)
		WHERE status NOT IN ('cancelled', 'completed')
	`).Error; err != nil {
		return fmt.Errorf("create window index: %w", err)
	}
	return nil
}
