package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
	"github.com/noah-isme/festival-scheduler-api/pkg/jobs"
	"github.com/noah-isme/festival-scheduler-api/pkg/storage"
)

func newTestExportService(t *testing.T, store *memStore, pub EventPublisher) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	schedules := NewScheduleService(store, nil, nil, nil, 0, nil)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(schedules, files, signer, ExportConfig{APIPrefix: "/api/v1/"}, pub, NewMetricsService(), nil), files
}

func TestExportInlineAndDownload(t *testing.T) {
	store := newMemStore()
	seedSchedule(t, store)
	pub := &recordingPublisher{}
	svc, files := newTestExportService(t, store, pub)

	res, err := svc.Export(context.Background(), festival, models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.True(t, strings.HasPrefix(res.URL, "/api/v1/export/"))
	assert.True(t, strings.HasPrefix(res.Path, "Spring_Festival/schedule_v1_"))
	assert.True(t, strings.HasSuffix(res.Path, ".csv"))

	raw, err := files.Read(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Day,Start,Room")
	assert.Contains(t, string(raw), "Student c")

	token := strings.TrimPrefix(res.URL, "/api/v1/export/")
	dl, err := svc.Download(token)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", strings.Split(dl.ContentType, ";")[0])
	assert.Equal(t, filepath.Base(res.Path), dl.Filename)
	_, err = os.Stat(dl.Path)
	assert.NoError(t, err)

	assert.Equal(t, []models.ScheduleEventType{models.EventScheduleExported}, pub.types())
}

func TestExportValidationAndMissingSchedule(t *testing.T) {
	svc, _ := newTestExportService(t, newMemStore(), nil)

	_, err := svc.Export(context.Background(), festival, models.ExportFormat("docx"))
	assert.Equal(t, "VALIDATION_ERROR", errorCode(err))

	_, err = svc.Export(context.Background(), festival, models.ExportFormatPDF)
	assert.Equal(t, "SCHEDULE_NOT_FOUND", errorCode(err))
}

func TestExportThroughWorkerQueue(t *testing.T) {
	store := newMemStore()
	seedSchedule(t, store)
	svc, _ := newTestExportService(t, store, nil)
	svc.StartWorkers(context.Background(), jobs.Options{Workers: 2, Buffer: 4, MaxAttempts: 2, Backoff: time.Millisecond})
	defer svc.StopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := svc.Export(ctx, festival, models.ExportFormatXLSX)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Path, ".xlsx"))

	_, err = svc.Export(ctx, "Unknown Festival", models.ExportFormatCSV)
	assert.Equal(t, "SCHEDULE_NOT_FOUND", errorCode(err))
}

func TestDownloadRejectsBadTokens(t *testing.T) {
	store := newMemStore()
	seedSchedule(t, store)
	svc, files := newTestExportService(t, store, nil)

	_, err := svc.Download("garbage")
	assert.Equal(t, "NOT_FOUND", errorCode(err))

	res, err := svc.Export(context.Background(), festival, models.ExportFormatCSV)
	require.NoError(t, err)
	require.NoError(t, files.Delete(res.Path))
	_, err = svc.Download(strings.TrimPrefix(res.URL, "/api/v1/export/"))
	assert.Equal(t, "NOT_FOUND", errorCode(err))
}

func TestScheduleSheetRows(t *testing.T) {
	store := newMemStore()
	seedSchedule(t, store)
	snap, err := store.Load(context.Background(), festival)
	require.NoError(t, err)
	a, _, _ := snap.Scheduler.FindStudent("a")
	a.Result = &scheduler.Result{Rating: "Superior", Points: 98}

	sheet := ScheduleSheet(snap)
	require.NoError(t, sheet.Validate())
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, []string{"Saturday", "9:00", "Room 1", "Traditional", "1", "Student a", "Piece a (Composer)", "20", "Ms Teacher", "", "", "Superior", "98"}, sheet.Rows[0])
	assert.Equal(t, "9:45", sheet.Rows[2][1])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Spring_Festival", sanitizeFilename("Spring Festival"))
	assert.Equal(t, "a-b", sanitizeFilename("a/b"))
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "na", sanitizeFilename(".."))
	assert.NotContains(t, sanitizeFilename("../../etc"), "..")
}
