package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/veertikothari/campustrack/internal/entity"
	attendanceRepo "github.com/veertikothari/campustrack/internal/modules/attendance/repository"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	eventService "github.com/veertikothari/campustrack/internal/modules/event/service"
	notifService "github.com/veertikothari/campustrack/internal/modules/notification/service"
	"github.com/veertikothari/campustrack/internal/modules/report/dto"
	reportRepo "github.com/veertikothari/campustrack/internal/modules/report/repository"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/database"
	"github.com/veertikothari/campustrack/pkg/metrics"
	"github.com/veertikothari/campustrack/pkg/sanitize"
	"github.com/veertikothari/campustrack/pkg/stats"
)

type ReportService interface {
	// Generate persists the event's report once. Later calls return the
	// stored report unchanged and ignore their text.
	Generate(ctx context.Context, actor session.Principal, eventID uuid.UUID, input dto.GenerateReportInput) (*dto.ReportResponse, error)
	FetchExisting(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*entity.EventReport, error)
	// Export renders the stored report as an xlsx workbook.
	Export(ctx context.Context, actor session.Principal, eventID uuid.UUID) ([]byte, string, string, error)
}

type reportService struct {
	repo        reportRepo.ReportRepository
	enrollments enrollRepo.EnrollmentRepository
	attendance  attendanceRepo.AttendanceRepository
	events      eventService.EventService
	notifier    notifService.Notifier
}

func NewReportService(
	repo reportRepo.ReportRepository,
	enrollments enrollRepo.EnrollmentRepository,
	attendance attendanceRepo.AttendanceRepository,
	events eventService.EventService,
	notifier notifService.Notifier,
) ReportService {
	return &reportService{
		repo:        repo,
		enrollments: enrollments,
		attendance:  attendance,
		events:      events,
		notifier:    notifier,
	}
}

func (s *reportService) Generate(ctx context.Context, actor session.Principal, eventID uuid.UUID, input dto.GenerateReportInput) (*dto.ReportResponse, error) {
	event, err := s.events.Owned(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}

	existing, err := s.existing(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &dto.ReportResponse{Report: existing}, nil
	}

	lines, err := s.breakdown(ctx, eventID)
	if err != nil {
		return nil, err
	}

	attended := 0
	for _, l := range lines {
		if l.Status == entity.AttendancePresent {
			attended++
		}
	}

	payload, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report breakdown: %w", err)
	}

	report := &entity.EventReport{
		EventID:              eventID,
		FacultyID:            actor.UserID,
		TotalEnrolled:        len(lines),
		TotalAttended:        attended,
		TotalAbsent:          len(lines) - attended,
		AttendancePercentage: stats.Percent(attended, len(lines)),
		Summary:              sanitize.Text(input.Summary),
		Feedback:             sanitize.Text(input.Feedback),
		Breakdown:            datatypes.JSON(payload),
	}

	if err := s.repo.Create(ctx, report); err != nil {
		if database.IsUniqueViolation(err) {
			// another request generated it first; theirs is the report
			winner, findErr := s.existing(ctx, eventID)
			if findErr == nil && winner != nil {
				return &dto.ReportResponse{Report: winner}, nil
			}
		}
		return nil, database.Classify(err)
	}
	metrics.ReportsGenerated.Inc()

	id := event.ID
	s.notifier.Notify(ctx, entity.Notification{
		UserID:  actor.UserID,
		EventID: &id,
		Title:   "Event report ready",
		Message: fmt.Sprintf("%s: %d of %d attended (%.2f%%)", event.Title, report.TotalAttended, report.TotalEnrolled, report.AttendancePercentage),
		Type:    entity.NotificationEventCompleted,
	})

	return &dto.ReportResponse{Report: report, Created: true}, nil
}

// breakdown resolves every enrolled student's status. Students without an
// attendance row count as Absent in reports.
func (s *reportService) breakdown(ctx context.Context, eventID uuid.UUID) ([]entity.ReportLine, error) {
	enrollments, err := s.enrollments.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, database.Classify(err)
	}
	rows, err := s.attendance.ListForEvent(ctx, eventID)
	if err != nil {
		return nil, database.Classify(err)
	}

	statuses := make(map[uuid.UUID]entity.AttendanceStatus, len(rows))
	for _, r := range rows {
		statuses[r.UserID] = r.Status
	}

	lines := make([]entity.ReportLine, 0, len(enrollments))
	for _, e := range enrollments {
		status, ok := statuses[e.UserID]
		if !ok {
			status = entity.AttendanceAbsent
		}
		line := entity.ReportLine{UserID: e.UserID, Status: status}
		if e.User != nil {
			line.UID = e.User.UID
			line.Name = e.User.Name
		}
		lines = append(lines, line)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
	return lines, nil
}

func (s *reportService) existing(ctx context.Context, eventID uuid.UUID) (*entity.EventReport, error) {
	report, err := s.repo.FindByEvent(ctx, eventID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, database.Classify(err)
	}
	return report, nil
}

func (s *reportService) FetchExisting(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*entity.EventReport, error) {
	if _, err := s.events.Owned(ctx, actor, eventID); err != nil {
		return nil, err
	}

	report, err := s.existing(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, apperror.NotFound("No report has been generated for this event")
	}
	return report, nil
}

func (s *reportService) Export(ctx context.Context, actor session.Principal, eventID uuid.UUID) ([]byte, string, string, error) {
	event, err := s.events.Owned(ctx, actor, eventID)
	if err != nil {
		return nil, "", "", err
	}

	report, err := s.existing(ctx, eventID)
	if err != nil {
		return nil, "", "", err
	}
	if report == nil {
		return nil, "", "", apperror.NotFound("No report has been generated for this event")
	}

	data, name, err := exportReportExcel(event, report)
	if err != nil {
		log.Printf("Failed to export report for event %s: %v", eventID, err)
		return nil, "", "", err
	}
	return data, name, xlsxContentType, nil
}
