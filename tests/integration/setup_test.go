//go:build integration

package integration

import (
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/AngelAdrianVR/WashApp/pkg/database"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "washapp_test_db"),
	)

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	dropTables()
	if err := database.Migrate(testDB); err != nil {
		log.Fatalf("failed to migrate test database: %v", err)
	}

	code := m.Run()

	dropTables()
	os.Exit(code)
}

func dropTables() {
	testDB.Exec("DROP TABLE IF EXISTS booking_services")
	testDB.Exec("DROP TABLE IF EXISTS bookings")
	testDB.Exec("DROP TABLE IF EXISTS services")
	testDB.Exec("DROP TABLE IF EXISTS users")
}

func cleanTables() {
	testDB.Exec("DELETE FROM booking_services")
	testDB.Exec("DELETE FROM bookings")
	testDB.Exec("DELETE FROM services")
	testDB.Exec("DELETE FROM users")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
