// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campustrack_enrollment_changes_total",
		Help: "Enrollment writes by action (enroll, unenroll).",
	}, []string{"action"})

	AttendanceCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campustrack_attendance_commits_total",
		Help: "Attendance batch commits by outcome.",
	}, []string{"outcome"})

	AttendanceMarks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_attendance_marks_total",
		Help: "Attendance rows written by successful commits.",
	})

	CEPReviews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campustrack_cep_reviews_total",
		Help: "CEP submission reviews by decision.",
	}, []string{"decision"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campustrack_notifications_sent_total",
		Help: "Notifications persisted by type.",
	}, []string{"type"})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_notification_failures_total",
		Help: "Notification batches that could not be delivered.",
	})

	ReportsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_reports_generated_total",
		Help: "Event reports persisted.",
	})
)
