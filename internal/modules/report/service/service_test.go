package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/internal/entity"
	attendanceRepo "github.com/veertikothari/campustrack/internal/modules/attendance/repository"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	eventRepo "github.com/veertikothari/campustrack/internal/modules/event/repository"
	eventService "github.com/veertikothari/campustrack/internal/modules/event/service"
	"github.com/veertikothari/campustrack/internal/modules/report/dto"
	reportRepo "github.com/veertikothari/campustrack/internal/modules/report/repository"
	userRepo "github.com/veertikothari/campustrack/internal/modules/user/repository"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/internal/testutil"
	"github.com/veertikothari/campustrack/pkg/apperror"
)

func setup(t *testing.T) (*gorm.DB, ReportService, *testutil.RecordingNotifier) {
	t.Helper()
	db := testutil.PrepareDB(t)
	notifier := &testutil.RecordingNotifier{}
	events := eventService.NewEventService(eventRepo.NewEventRepository(db), userRepo.NewUserRepository(db), notifier, nil)
	svc := NewReportService(
		reportRepo.NewReportRepository(db),
		enrollRepo.NewEnrollmentRepository(db),
		attendanceRepo.NewAttendanceRepository(db),
		events,
		notifier,
	)
	return db, svc, notifier
}

func TestGenerateDefaultsMissingAttendanceToAbsent(t *testing.T) {
	db, svc, notifier := setup(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	event := testutil.CreateEvent(t, db, owner, 0)

	present1 := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	present2 := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	unmarked := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	for _, s := range []*entity.User{present1, present2, unmarked} {
		testutil.Enroll(t, db, event, s)
	}
	testutil.MarkAttendance(t, db, event, present1, entity.AttendancePresent)
	testutil.MarkAttendance(t, db, event, present2, entity.AttendancePresent)

	res, err := svc.Generate(ctx, session.PrincipalOf(owner), event.ID, dto.GenerateReportInput{Summary: "Went well", Feedback: "More chairs"})
	require.NoError(t, err)
	assert.True(t, res.Created)

	report := res.Report
	assert.Equal(t, 3, report.TotalEnrolled)
	assert.Equal(t, 2, report.TotalAttended)
	assert.Equal(t, 1, report.TotalAbsent)
	assert.Equal(t, 66.67, report.AttendancePercentage)

	var lines []entity.ReportLine
	require.NoError(t, json.Unmarshal(report.Breakdown, &lines))
	require.Len(t, lines, 3)
	for _, l := range lines {
		if l.UserID == unmarked.ID {
			assert.Equal(t, entity.AttendanceAbsent, l.Status)
		}
	}

	sent := notifier.For(owner.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, entity.NotificationEventCompleted, sent[0].Type)
}

func TestGenerateIsWriteOnce(t *testing.T) {
	db, svc, notifier := setup(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	event := testutil.CreateEvent(t, db, owner, 0)
	student := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	testutil.Enroll(t, db, event, student)

	first, err := svc.Generate(ctx, session.PrincipalOf(owner), event.ID, dto.GenerateReportInput{Summary: "first"})
	require.NoError(t, err)

	testutil.MarkAttendance(t, db, event, student, entity.AttendancePresent)

	second, err := svc.Generate(ctx, session.PrincipalOf(owner), event.ID, dto.GenerateReportInput{Summary: "second"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Report.ID, second.Report.ID)
	assert.Equal(t, "first", second.Report.Summary)
	assert.Equal(t, 0, second.Report.TotalAttended)

	var count int64
	require.NoError(t, db.Model(&entity.EventReport{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Len(t, notifier.Sent(), 1)
}

func TestGenerateWithNoEnrollments(t *testing.T) {
	db, svc, _ := setup(t)
	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	event := testutil.CreateEvent(t, db, owner, 0)

	res, err := svc.Generate(context.Background(), session.PrincipalOf(owner), event.ID, dto.GenerateReportInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Report.TotalEnrolled)
	assert.Equal(t, 0.0, res.Report.AttendancePercentage)
}

func TestReportOwnerOnly(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	other := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	event := testutil.CreateEvent(t, db, owner, 0)

	_, err := svc.Generate(ctx, session.PrincipalOf(other), event.ID, dto.GenerateReportInput{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.FetchExisting(ctx, session.PrincipalOf(owner), event.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestExport(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	event := testutil.CreateEvent(t, db, owner, 0)
	student := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	testutil.Enroll(t, db, event, student)
	testutil.MarkAttendance(t, db, event, student, entity.AttendancePresent)

	_, _, _, err := svc.Export(ctx, session.PrincipalOf(owner), event.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Generate(ctx, session.PrincipalOf(owner), event.ID, dto.GenerateReportInput{Summary: "ok"})
	require.NoError(t, err)

	data, name, contentType, err := svc.Export(ctx, session.PrincipalOf(owner), event.ID)
	require.NoError(t, err)
	assert.Equal(t, xlsxContentType, contentType)
	assert.Contains(t, name, event.Date)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, event.Title, title)

	uid, err := f.GetCellValue("Attendance", "A2")
	require.NoError(t, err)
	assert.Equal(t, student.UID, uid)

	status, err := f.GetCellValue("Attendance", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Present", status)
}
