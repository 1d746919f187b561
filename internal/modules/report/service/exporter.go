package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/veertikothari/campustrack/internal/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportReportExcel writes the summary and the per-student breakdown as two sheets.
func exportReportExcel(event *entity.Event, report *entity.EventReport) ([]byte, string, error) {
	var lines []entity.ReportLine
	if len(report.Breakdown) > 0 {
		if err := json.Unmarshal(report.Breakdown, &lines); err != nil {
			return nil, "", fmt.Errorf("failed to decode report breakdown: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	index, err := f.NewSheet(summary)
	if err != nil {
		return nil, "", err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)

	rows := [][]any{
		{"Event", event.Title},
		{"Date", event.Date},
		{"Time", event.Time},
		{"Venue", event.Venue},
		{"Department", event.Department},
		{"Total enrolled", report.TotalEnrolled},
		{"Total attended", report.TotalAttended},
		{"Total absent", report.TotalAbsent},
		{"Attendance %", report.AttendancePercentage},
		{"Summary", report.Summary},
		{"Feedback", report.Feedback},
		{"Generated at", report.CreatedAt.Format("2006-01-02 15:04:05")},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, "", err
		}
	}

	attendance := "Attendance"
	if _, err := f.NewSheet(attendance); err != nil {
		return nil, "", err
	}
	headers := []string{"UID", "Name", "Status"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetCellValue(attendance, cell, h); err != nil {
			return nil, "", err
		}
	}
	for rIdx, line := range lines {
		row := rIdx + 2
		if err := f.SetCellValue(attendance, fmt.Sprintf("A%d", row), line.UID); err != nil {
			return nil, "", err
		}
		if err := f.SetCellValue(attendance, fmt.Sprintf("B%d", row), line.Name); err != nil {
			return nil, "", err
		}
		if err := f.SetCellValue(attendance, fmt.Sprintf("C%d", row), string(line.Status)); err != nil {
			return nil, "", err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), fmt.Sprintf("event_report_%s.xlsx", event.Date), nil
}
