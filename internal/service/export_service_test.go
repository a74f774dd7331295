package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

func TestAccessWorkbookSheets(t *testing.T) {
	db := newTestDB(t, "export")
	activity := &stubActivityRecorder{}
	svc := NewExportService(repository.NewQuizAssignmentRepository(db), repository.NewAccessRequestRepository(db), activity, zerolog.Nop())

	admin := seedUser(t, db, "admin", models.UserRoleAdmin)
	alice := seedUser(t, db, "alice", models.UserRoleUser)
	quiz := seedQuiz(t, db, "Private Quiz", admin.ID, false)

	assignment := models.NewQuizAssignment(alice.ID, quiz.ID, models.AssignmentAssignedNoAccess, admin.ID, fixedNow)
	require.NoError(t, db.Create(&assignment).Error)
	require.NoError(t, db.Create(&models.AccessRequest{
		UserID:      alice.ID,
		QuizID:      quiz.ID,
		Message:     "please",
		Status:      models.AccessRequestPending,
		RequestedAt: fixedNow,
	}).Error)

	payload, err := svc.AccessWorkbook(context.Background(), actorOf(admin))
	require.NoError(t, err)
	require.NotEmpty(t, payload)

	file, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer file.Close()

	require.Equal(t, []string{"Assignments", "Access Requests"}, file.GetSheetList())

	rows, err := file.GetRows("Assignments")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Username", rows[0][1])
	require.Equal(t, "alice", rows[1][1])
	require.Equal(t, "Private Quiz", rows[1][3])
	require.Equal(t, string(models.AssignmentAssignedNoAccess), rows[1][4])
	require.Equal(t, "2024-03-04 09:30", rows[1][6])

	requests, err := file.GetRows("Access Requests")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	require.Equal(t, "Status", requests[0][3])
	require.Equal(t, models.AccessRequestPending, requests[1][3])
	require.Equal(t, "please", requests[1][4])

	require.Equal(t, []string{"export.access"}, activity.actions())
}

func TestAccessWorkbookRequiresAdmin(t *testing.T) {
	db := newTestDB(t, "export_denied")
	svc := NewExportService(repository.NewQuizAssignmentRepository(db), repository.NewAccessRequestRepository(db), nil, zerolog.Nop())

	user := seedUser(t, db, "alice", models.UserRoleUser)
	_, err := svc.AccessWorkbook(context.Background(), actorOf(user))
	require.ErrorIs(t, err, ErrAdminRequired)
}

func TestWriteSheetSurfacesFormattingErrors(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	sheet := exportSheet{title: "Sheet1", header: []string{"User ID"}, rows: [][]string{{"1"}}}
	err := writeSheet(f, sheet, 999)
	require.ErrorContains(t, err, "style sheet Sheet1 header")

	err = writeSheet(f, exportSheet{title: "Sheet1"}, 0)
	require.ErrorContains(t, err, "sheet Sheet1 header")
}
