package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

const exportTimeLayout = "2006-01-02 15:04"

// ExportService renders administrative data as spreadsheets.
type ExportService interface {
	AccessWorkbook(ctx context.Context, actor ActivityActor) ([]byte, error)
}

type exportService struct {
	assignments repository.QuizAssignmentRepository
	requests    repository.AccessRequestRepository
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewExportService constructs the export service.
func NewExportService(assignments repository.QuizAssignmentRepository, requests repository.AccessRequestRepository, activity ActivityRecorder, logger zerolog.Logger) ExportService {
	return &exportService{
		assignments: assignments,
		requests:    requests,
		activity:    activity,
		logger:      logger.With().Str("component", "export_service").Logger(),
	}
}

type exportSheet struct {
	title  string
	header []string
	rows   [][]string
}

// AccessWorkbook returns an XLSX file with one sheet of assignments and one of access requests.
func (s *exportService) AccessWorkbook(ctx context.Context, actor ActivityActor) ([]byte, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}

	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	requests, err := s.requests.List(ctx, repository.AccessRequestFilter{})
	if err != nil {
		return nil, storageError(err)
	}

	sheets := []exportSheet{assignmentSheet(assignments), accessRequestSheet(requests)}
	file, err := buildWorkbook(sheets)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "export.access",
			EntityType: "export",
			Metadata: map[string]interface{}{
				"assignments":     len(assignments),
				"access_requests": len(requests),
			},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record export activity")
		}
	}

	return buf.Bytes(), nil
}

func assignmentSheet(views []models.AssignmentView) exportSheet {
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(view.UserID), 10),
			view.Username,
			strconv.FormatUint(uint64(view.QuizID), 10),
			view.QuizTitle,
			string(view.State()),
			strconv.FormatUint(uint64(view.AssignedBy), 10),
			formatExportTime(&view.AssignedAt),
		})
	}
	return exportSheet{
		title:  "Assignments",
		header: []string{"User ID", "Username", "Quiz ID", "Quiz", "State", "Assigned By", "Assigned At"},
		rows:   rows,
	}
}

func accessRequestSheet(views []models.AccessRequestView) exportSheet {
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		reviewer := ""
		if view.ReviewedBy != nil {
			reviewer = strconv.FormatUint(uint64(*view.ReviewedBy), 10)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(view.ID), 10),
			view.Username,
			view.QuizTitle,
			view.Status,
			view.Message,
			formatExportTime(&view.RequestedAt),
			reviewer,
			formatExportTime(view.ReviewedAt),
			view.ResponseMessage,
		})
	}
	return exportSheet{
		title:  "Access Requests",
		header: []string{"ID", "Username", "Quiz", "Status", "Message", "Requested At", "Reviewed By", "Reviewed At", "Response"},
		rows:   rows,
	}
}

func buildWorkbook(sheets []exportSheet) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.title); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.title); err != nil {
			f.Close()
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		if err := writeSheet(f, sheet, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet exportSheet, headerStyle int) error {
	for col, title := range sheet.header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(sheet.title, cell, title); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	for r, row := range sheet.rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(sheet.title, cell, value); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	last, err := excelize.CoordinatesToCellName(len(sheet.header), 1)
	if err != nil {
		return fmt.Errorf("sheet %s header: %w", sheet.title, err)
	}
	if err := f.SetCellStyle(sheet.title, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style sheet %s header: %w", sheet.title, err)
	}
	if err := f.AutoFilter(sheet.title, "A1:"+last, nil); err != nil {
		return fmt.Errorf("filter sheet %s: %w", sheet.title, err)
	}

	for c := 1; c <= len(sheet.header); c++ {
		width := len(sheet.header[c-1])
		for r := 0; r < len(sheet.rows) && r < 50; r++ {
			if l := len(sheet.rows[r][c-1]); l > width {
				width = l
			}
		}
		name, _ := excelize.ColumnNumberToName(c)
		if err := f.SetColWidth(sheet.title, name, name, clampWidth(float64(width)*0.9)); err != nil {
			return fmt.Errorf("size column %s: %w", name, err)
		}
	}
	return nil
}

func clampWidth(w float64) float64 {
	if w < 12 {
		return 12
	}
	if w > 40 {
		return 40
	}
	return w
}

func formatExportTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}
