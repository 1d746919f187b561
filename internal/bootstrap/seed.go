package bootstrap

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/internal/entity"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Event{},
		&entity.Enrollment{},
		&entity.Attendance{},
		&entity.Feedback{},
		&entity.CEPRequirement{},
		&entity.CEPSubmission{},
		&entity.Notification{},
		&entity.DeviceToken{},
		&entity.EventReport{},
	)
}

// SeedAdminUser creates the first administrator so provisioning can start.
func SeedAdminUser(db *gorm.DB) error {
	email := getEnv("SEED_ADMIN_EMAIL", "admin@campustrack.local")

	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	password := getEnv("SEED_ADMIN_PASSWORD", "admin123")
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := entity.User{
		UID:          "ADMIN-001",
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hashedPasswordBytes),
		Role:         entity.RoleAdmin,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("✅ Admin user seeded successfully")
	log.Printf("   Email: %s", email)

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
