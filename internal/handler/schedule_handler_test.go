package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/festival-scheduler-api/internal/dto"
	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/festival-scheduler-api/pkg/errors"
)

type runnerMock struct {
	competition string
	cfg         scheduler.Config
	resp        *dto.RunScheduleResponse
	err         error
}

func (m *runnerMock) Run(_ context.Context, competition string, cfg scheduler.Config) (*dto.RunScheduleResponse, error) {
	m.competition, m.cfg = competition, cfg
	return m.resp, m.err
}

type editorMock struct {
	snap     *models.ScheduleSnapshot
	err      error
	ref      scheduler.SectionRef
	day      scheduler.Day
	names    []string
	judges   []string
	student  string
	result   scheduler.Result
	expected int
	editable bool
}

func (m *editorMock) Get(context.Context, string) (*models.ScheduleSnapshot, error) {
	return m.snap, m.err
}

func (m *editorMock) Render(_ context.Context, _ string, editable bool) (string, int, error) {
	m.editable = editable
	if m.err != nil {
		return "", 0, m.err
	}
	return "<table></table>", m.snap.Version, nil
}

func (m *editorMock) UpdateSectionStaff(_ context.Context, _ string, ref scheduler.SectionRef, judges []string, _ string, expected int) (*models.ScheduleSnapshot, error) {
	m.ref, m.judges, m.expected = ref, judges, expected
	return m.snap, m.err
}

func (m *editorMock) RenameRooms(_ context.Context, _ string, day scheduler.Day, names []string, expected int) (*models.ScheduleSnapshot, error) {
	m.day, m.names, m.expected = day, names, expected
	return m.snap, m.err
}

func (m *editorMock) MoveStudent(_ context.Context, _ string, id string, to scheduler.SectionRef, expected int) (*models.ScheduleSnapshot, error) {
	m.student, m.ref, m.expected = id, to, expected
	return m.snap, m.err
}

func (m *editorMock) RecordScore(_ context.Context, _ string, id string, result scheduler.Result, expected int) (*models.ScheduleSnapshot, error) {
	m.student, m.result, m.expected = id, result, expected
	return m.snap, m.err
}

type exporterMock struct {
	format models.ExportFormat
	result *models.ExportResult
	err    error
}

func (m *exporterMock) Export(_ context.Context, _ string, format models.ExportFormat) (*models.ExportResult, error) {
	m.format = format
	return m.result, m.err
}

func testSnapshot(t *testing.T) *models.ScheduleSnapshot {
	t.Helper()
	grid, err := scheduler.New(scheduler.Config{
		SectionMinutes: 45,
		Days:           []scheduler.DayConfig{{Day: scheduler.Saturday, NumBlocks: 1, StartTimes: []string{"9:00"}, NumSections: 2}},
	})
	require.NoError(t, err)
	return &models.ScheduleSnapshot{Competition: "Spring", Version: 4, Status: models.ScheduleStatusModified, Scheduler: grid}
}

func newTestHandler(runner *runnerMock, editor *editorMock, exporter *exporterMock) *ScheduleHandler {
	return &ScheduleHandler{runner: runner, schedules: editor, exports: exporter, validate: validator.New(), defaultMinutes: 45}
}

func perform(h gin.HandlerFunc, method, body string, headers map[string]string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	req, _ := http.NewRequest(method, "/competitions/Spring/schedule", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "name", Value: "Spring"}}
	h(c)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

const runPayload = `{"sectionMinutes":0,"groupByLevel":true,"judgesPerSection":1,
	"days":[{"day":"Saturday","numBlocks":1,"startTimes":["9:00"],"numSections":2,"numMasterSections":0}]}`

func TestRunCreatesSchedule(t *testing.T) {
	runner := &runnerMock{resp: &dto.RunScheduleResponse{
		ScheduleResponse: &dto.ScheduleResponse{Competition: "Spring", Version: 1},
		Summary:          dto.RunSummary{Students: 3, Persisted: true},
	}}
	h := newTestHandler(runner, &editorMock{}, &exporterMock{})

	w := perform(h.Run, http.MethodPost, runPayload, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Spring", runner.competition)
	assert.Equal(t, 45, runner.cfg.SectionMinutes)
	require.Len(t, runner.cfg.Days, 1)
	assert.Equal(t, scheduler.Saturday, runner.cfg.Days[0].Day)
	assert.Equal(t, "1", w.Header().Get("X-Schedule-Version"))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	h := newTestHandler(&runnerMock{}, &editorMock{}, &exporterMock{})

	w := perform(h.Run, http.MethodPost, `{"days":[]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(h.Run, http.MethodPost, `{"days":[{"day":"Monday","numBlocks":1}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(h.Run, http.MethodPost, `{"days":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunPlacementFailure(t *testing.T) {
	runner := &runnerMock{err: appErrors.Clone(appErrors.ErrPlacementExhausted, "could not place Student C")}
	h := newTestHandler(runner, &editorMock{}, &exporterMock{})

	w := perform(h.Run, http.MethodPost, runPayload, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PLACEMENT_EXHAUSTED")
}

func TestRunPersistFailureReturnsData(t *testing.T) {
	runner := &runnerMock{
		resp: &dto.RunScheduleResponse{ScheduleResponse: &dto.ScheduleResponse{Competition: "Spring", TotalStudents: 2}},
		err:  appErrors.Wrap(os.ErrPermission, appErrors.ErrPersistFailed.Code, appErrors.ErrPersistFailed.Status, appErrors.ErrPersistFailed.Message),
	}
	h := newTestHandler(runner, &editorMock{}, &exporterMock{})

	w := perform(h.Run, http.MethodPost, runPayload, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.Contains(t, string(env["data"]), `"totalStudents":2`)
	assert.Contains(t, string(env["error"]), "PERSIST_FAILED")
}

func TestGetAndHTML(t *testing.T) {
	editor := &editorMock{snap: testSnapshot(t)}
	h := newTestHandler(&runnerMock{}, editor, &exporterMock{})

	w := perform(h.Get, http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"4"`, w.Header().Get("ETag"))
	assert.Contains(t, w.Body.String(), `"status":"MODIFIED"`)

	gin.SetMode(gin.TestMode)
	w = httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/competitions/Spring/schedule/html?editable=true", nil)
	c.Params = gin.Params{{Key: "name", Value: "Spring"}}
	h.HTML(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, editor.editable)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestGetMissingSchedule(t *testing.T) {
	h := newTestHandler(&runnerMock{}, &editorMock{err: appErrors.ErrScheduleNotFound}, &exporterMock{})
	w := perform(h.Get, http.MethodGet, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMoveStudentUsesIfMatch(t *testing.T) {
	editor := &editorMock{snap: testSnapshot(t)}
	h := newTestHandler(&runnerMock{}, editor, &exporterMock{})

	body := `{"studentId":"s-1","to":{"day":"saturday","block":0,"room":1}}`
	w := perform(h.MoveStudent, http.MethodPost, body, map[string]string{"If-Match": `W/"3"`})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-1", editor.student)
	assert.Equal(t, scheduler.SectionRef{Day: scheduler.Saturday, Block: 0, Room: 1}, editor.ref)
	assert.Equal(t, 3, editor.expected)
}

func TestMoveStudentConflict(t *testing.T) {
	editor := &editorMock{err: appErrors.Clone(appErrors.ErrConflict, "target section cannot accept the student")}
	h := newTestHandler(&runnerMock{}, editor, &exporterMock{})

	w := perform(h.MoveStudent, http.MethodPost, `{"studentId":"s-1","to":{"day":"Sunday"},"expectedVersion":2}`, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 2, editor.expected)
}

func TestUpdateSectionAndRenameRooms(t *testing.T) {
	editor := &editorMock{snap: testSnapshot(t)}
	h := newTestHandler(&runnerMock{}, editor, &exporterMock{})

	w := perform(h.UpdateSection, http.MethodPut, `{"section":{"day":"Saturday","block":0,"room":0},"judges":["Ms A"],"proctor":"Mr B"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Ms A"}, editor.judges)

	w = perform(h.RenameRooms, http.MethodPut, `{"day":"Sunday","names":["Hall"],"expectedVersion":4}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, scheduler.Sunday, editor.day)
	assert.Equal(t, 4, editor.expected)

	w = perform(h.RenameRooms, http.MethodPut, `{"day":"Friday","names":["Hall"]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordScoreValidation(t *testing.T) {
	editor := &editorMock{snap: testSnapshot(t)}
	h := newTestHandler(&runnerMock{}, editor, &exporterMock{})

	w := perform(h.RecordScore, http.MethodPost, `{"studentId":"s-1","rating":"Superior","points":101}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(h.RecordScore, http.MethodPost, `{"studentId":"s-1","rating":" Superior ","points":97}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, scheduler.Result{Rating: "Superior", Points: 97}, editor.result)
}

func TestExport(t *testing.T) {
	exporter := &exporterMock{result: &models.ExportResult{
		ID: "exp-1", Format: models.ExportFormatPDF, Version: 4,
		URL: "/api/v1/export/token", ExpiresAt: time.Now().Add(time.Hour), Path: "secret/path.pdf",
	}}
	h := newTestHandler(&runnerMock{}, &editorMock{}, exporter)

	w := perform(h.Export, http.MethodPost, `{"format":"docx"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(h.Export, http.MethodPost, `{"format":"pdf"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.ExportFormatPDF, exporter.format)
	assert.Contains(t, w.Body.String(), "/api/v1/export/token")
	assert.NotContains(t, w.Body.String(), "secret/path.pdf")
}

type downloaderMock struct {
	file *models.ExportDownload
	err  error
}

func (m downloaderMock) Download(string) (*models.ExportDownload, error) {
	return m.file, m.err
}

func TestExportDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte("Day,Start\n"), 0o600))

	router := gin.New()
	router.GET("/export/:token", (&ExportHandler{exports: downloaderMock{file: &models.ExportDownload{
		Path: path, Filename: "schedule.csv", ContentType: "text/csv",
	}}}).Download)
	router.GET("/missing/:token", (&ExportHandler{exports: downloaderMock{err: appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired")}}).Download)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Day,Start\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "schedule.csv")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing/abc", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	h := NewMetricsHandler(nil, "file")
	w := perform(h.Health, http.MethodGet, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","scheduleStore":"file"}`, w.Body.String())

	w = perform(h.Prometheus, http.MethodGet, "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "metrics disabled")

	router := gin.New()
	router.GET("/metrics", h.Prometheus)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
