package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/festival-scheduler-api/internal/dto"
	"github.com/noah-isme/festival-scheduler-api/internal/middleware"
	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
	"github.com/noah-isme/festival-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/festival-scheduler-api/pkg/errors"
	"github.com/noah-isme/festival-scheduler-api/pkg/response"
)

type schedulingRunner interface {
	Run(ctx context.Context, competition string, cfg scheduler.Config) (*dto.RunScheduleResponse, error)
}

type scheduleEditor interface {
	Get(ctx context.Context, competition string) (*models.ScheduleSnapshot, error)
	Render(ctx context.Context, competition string, editable bool) (string, int, error)
	UpdateSectionStaff(ctx context.Context, competition string, ref scheduler.SectionRef, judges []string, proctor string, expectedVersion int) (*models.ScheduleSnapshot, error)
	RenameRooms(ctx context.Context, competition string, day scheduler.Day, names []string, expectedVersion int) (*models.ScheduleSnapshot, error)
	MoveStudent(ctx context.Context, competition, studentID string, to scheduler.SectionRef, expectedVersion int) (*models.ScheduleSnapshot, error)
	RecordScore(ctx context.Context, competition, studentID string, result scheduler.Result, expectedVersion int) (*models.ScheduleSnapshot, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, competition string, format models.ExportFormat) (*models.ExportResult, error)
}

// ScheduleHandler exposes competition schedule endpoints.
type ScheduleHandler struct {
	runner         schedulingRunner
	schedules      scheduleEditor
	exports        scheduleExporter
	validate       *validator.Validate
	defaultMinutes int
}

// NewScheduleHandler constructs the handler. defaultMinutes fills a blank section length.
func NewScheduleHandler(runner *service.SchedulingService, schedules *service.ScheduleService, exports *service.ExportService, validate *validator.Validate, defaultMinutes int) *ScheduleHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleHandler{runner: runner, schedules: schedules, exports: exports, validate: validate, defaultMinutes: defaultMinutes}
}

// Run godoc
// @Summary Run the scheduler for a competition
// @Description Places every registrant into sections. Nothing is stored unless all students fit.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param name path string true "Competition name"
// @Param payload body dto.ChairmanConfigRequest true "Chairman configuration"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /competitions/{name}/schedule [post]
func (h *ScheduleHandler) Run(c *gin.Context) {
	var req dto.ChairmanConfigRequest
	if !h.bind(c, &req, "invalid chairman configuration") {
		return
	}
	cfg, err := req.ToConfig(h.defaultMinutes)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.runner.Run(c.Request.Context(), competition(c), cfg)
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	setVersion(c, result.Version)
	response.Created(c, result)
}

// Get godoc
// @Summary Get the stored schedule
// @Tags Schedules
// @Produce json
// @Param name path string true "Competition name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /competitions/{name}/schedule [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	snap, err := h.schedules.Get(c.Request.Context(), competition(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersion(c, snap.Version)
	response.JSON(c, http.StatusOK, dto.NewScheduleResponse(snap))
}

// HTML godoc
// @Summary Render the schedule as an HTML fragment
// @Tags Schedules
// @Produce html
// @Param name path string true "Competition name"
// @Param editable query bool false "Include edit hooks"
// @Success 200 {string} string
// @Router /competitions/{name}/schedule/html [get]
func (h *ScheduleHandler) HTML(c *gin.Context) {
	editable, _ := strconv.ParseBool(c.DefaultQuery("editable", "false"))
	fragment, version, err := h.schedules.Render(c.Request.Context(), competition(c), editable)
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersion(c, version)
	response.HTML(c, http.StatusOK, fragment)
}

// UpdateSection godoc
// @Summary Set judges and proctor of one section
// @Tags Schedules
// @Accept json
// @Produce json
// @Param name path string true "Competition name"
// @Param If-Match header string false "Expected schedule version"
// @Param payload body dto.UpdateSectionStaffRequest true "Section staff"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /competitions/{name}/schedule/sections [put]
func (h *ScheduleHandler) UpdateSection(c *gin.Context) {
	var req dto.UpdateSectionStaffRequest
	if !h.bind(c, &req, "invalid section payload") {
		return
	}
	ref, err := req.Section.ToRef()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	snap, err := h.schedules.UpdateSectionStaff(c.Request.Context(), competition(c), ref, req.Judges, req.Proctor, expectedVersion(c, req.ExpectedVersion))
	h.respondSnapshot(c, snap, err)
}

// RenameRooms godoc
// @Summary Rename the rooms of one day
// @Tags Schedules
// @Accept json
// @Produce json
// @Param name path string true "Competition name"
// @Param If-Match header string false "Expected schedule version"
// @Param payload body dto.RenameRoomsRequest true "Room names"
// @Success 200 {object} response.Envelope
// @Router /competitions/{name}/schedule/rooms [put]
func (h *ScheduleHandler) RenameRooms(c *gin.Context) {
	var req dto.RenameRoomsRequest
	if !h.bind(c, &req, "invalid room payload") {
		return
	}
	day, ok := scheduler.ParseDay(req.Day)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day must be Saturday or Sunday"))
		return
	}
	snap, err := h.schedules.RenameRooms(c.Request.Context(), competition(c), day, req.Names, expectedVersion(c, req.ExpectedVersion))
	h.respondSnapshot(c, snap, err)
}

// MoveStudent godoc
// @Summary Move a student to another section
// @Tags Schedules
// @Accept json
// @Produce json
// @Param name path string true "Competition name"
// @Param If-Match header string false "Expected schedule version"
// @Param payload body dto.MoveStudentRequest true "Move"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /competitions/{name}/schedule/moves [post]
func (h *ScheduleHandler) MoveStudent(c *gin.Context) {
	var req dto.MoveStudentRequest
	if !h.bind(c, &req, "invalid move payload") {
		return
	}
	ref, err := req.To.ToRef()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	snap, err := h.schedules.MoveStudent(c.Request.Context(), competition(c), req.StudentID, ref, expectedVersion(c, req.ExpectedVersion))
	h.respondSnapshot(c, snap, err)
}

// RecordScore godoc
// @Summary Record a student's result
// @Tags Schedules
// @Accept json
// @Produce json
// @Param name path string true "Competition name"
// @Param If-Match header string false "Expected schedule version"
// @Param payload body dto.RecordScoreRequest true "Score"
// @Success 200 {object} response.Envelope
// @Router /competitions/{name}/schedule/scores [post]
func (h *ScheduleHandler) RecordScore(c *gin.Context) {
	var req dto.RecordScoreRequest
	if !h.bind(c, &req, "invalid score payload") {
		return
	}
	result := scheduler.Result{Rating: strings.TrimSpace(req.Rating), Points: req.Points, Comments: req.Comments}
	snap, err := h.schedules.RecordScore(c.Request.Context(), competition(c), req.StudentID, result, expectedVersion(c, req.ExpectedVersion))
	h.respondSnapshot(c, snap, err)
}

// Export godoc
// @Summary Export the schedule as CSV, PDF or XLSX
// @Tags Exports
// @Accept json
// @Produce json
// @Param name path string true "Competition name"
// @Param payload body dto.ExportScheduleRequest true "Export format"
// @Success 201 {object} response.Envelope
// @Router /competitions/{name}/schedule/exports [post]
func (h *ScheduleHandler) Export(c *gin.Context) {
	var req dto.ExportScheduleRequest
	if !h.bind(c, &req, "invalid export payload") {
		return
	}
	result, err := h.exports.Export(c.Request.Context(), competition(c), models.ExportFormat(req.Format))
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersion(c, result.Version)
	response.Created(c, dto.ExportResponse{
		ID:        result.ID,
		Format:    result.Format,
		Version:   result.Version,
		URL:       result.URL,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *ScheduleHandler) bind(c *gin.Context, req interface{}, message string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error()))
		return false
	}
	return true
}

func (h *ScheduleHandler) respondSnapshot(c *gin.Context, snap *models.ScheduleSnapshot, err error) {
	if err != nil {
		if snap != nil {
			response.ErrorWithData(c, err, dto.NewScheduleResponse(snap))
			return
		}
		response.Error(c, err)
		return
	}
	setVersion(c, snap.Version)
	response.JSON(c, http.StatusOK, dto.NewScheduleResponse(snap))
}

func competition(c *gin.Context) string {
	return strings.TrimSpace(c.Param("name"))
}

func setVersion(c *gin.Context, version int) {
	if version <= 0 {
		return
	}
	v := strconv.Itoa(version)
	c.Header(middleware.ScheduleVersionHeader, v)
	c.Header("ETag", `"`+v+`"`)
}

// expectedVersion prefers the body field and falls back to an If-Match header.
func expectedVersion(c *gin.Context, fromBody int) int {
	if fromBody > 0 {
		return fromBody
	}
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return 0
}
