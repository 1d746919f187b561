// Package testutil holds fixtures shared by repository and service tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/veertikothari/campustrack/internal/bootstrap"
	"github.com/veertikothari/campustrack/internal/entity"
)

// PrepareDB opens a private in-memory database with the production schema.
func PrepareDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, bootstrap.Migrate(db))

	return db
}

// CreateUser inserts a user with the given role, department and year.
func CreateUser(t *testing.T, db *gorm.DB, role entity.Role, department string, year int) *entity.User {
	t.Helper()

	id := uuid.New()
	user := &entity.User{
		ID:           id,
		UID:          "U-" + id.String()[:8],
		Name:         string(role) + " " + id.String()[:4],
		Email:        id.String() + "@campus.test",
		PasswordHash: "x",
		Role:         role,
		Department:   department,
		Year:         year,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateEvent inserts an event owned by the faculty member.
func CreateEvent(t *testing.T, db *gorm.DB, owner *entity.User, year int) *entity.Event {
	t.Helper()

	event := &entity.Event{
		Title:      "Workshop",
		Date:       time.Now().AddDate(0, 0, 7).Format(entity.DateLayout),
		Time:       "10:00",
		Venue:      "Hall A",
		Department: owner.Department,
		Year:       year,
		CreatedBy:  owner.ID,
		MaxPoints:  10,
		Category:   entity.CategoryCoCurricular,
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

// Enroll inserts an enrollment row directly.
func Enroll(t *testing.T, db *gorm.DB, event *entity.Event, user *entity.User) *entity.Enrollment {
	t.Helper()

	enrollment := &entity.Enrollment{EventID: event.ID, UserID: user.ID}
	require.NoError(t, db.Create(enrollment).Error)
	return enrollment
}

// MarkAttendance inserts an attendance row directly.
func MarkAttendance(t *testing.T, db *gorm.DB, event *entity.Event, user *entity.User, status entity.AttendanceStatus) {
	t.Helper()

	row := &entity.Attendance{
		UserID:   user.ID,
		EventID:  event.ID,
		Status:   status,
		MarkedBy: event.CreatedBy,
		MarkedAt: time.Now(),
	}
	require.NoError(t, db.Create(row).Error)
}
