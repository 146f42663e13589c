package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/festival-scheduler-api/pkg/errors"
	"github.com/noah-isme/festival-scheduler-api/pkg/export"
	"github.com/noah-isme/festival-scheduler-api/pkg/jobs"
	"github.com/noah-isme/festival-scheduler-api/pkg/storage"
)

type scheduleReader interface {
	Get(ctx context.Context, competition string) (*models.ScheduleSnapshot, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Path(filename string) string
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	RetainFor time.Duration
}

type exportOutcome struct {
	result *models.ExportResult
	err    error
}

type exportTask struct {
	req  models.ExportRequest
	done chan exportOutcome
}

// ExportService renders stored schedules into downloadable documents.
type ExportService struct {
	schedules scheduleReader
	storage   fileStorage
	signer    *storage.SignedURLSigner
	events    EventPublisher
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	queue     *jobs.Queue[exportTask]
	now       func() time.Time
}

// NewExportService constructs an ExportService. Without StartWorkers exports render inline.
func NewExportService(schedules scheduleReader, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, events EventPublisher, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NoopEventPublisher{}
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = 72 * time.Hour
	}
	return &ExportService{
		schedules: schedules,
		storage:   files,
		signer:    signer,
		events:    events,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// StartWorkers routes exports through a bounded worker pool with retries.
func (s *ExportService) StartWorkers(ctx context.Context, opts jobs.Options) {
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	q := jobs.New("schedule-exports", s.handle, opts)
	q.OnGiveUp = func(task jobs.Task[exportTask], err error) {
		task.Payload.done <- exportOutcome{err: err}
	}
	q.Start(ctx)
	s.queue = q
}

// StopWorkers drains the worker pool.
func (s *ExportService) StopWorkers() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Export renders the competition's schedule in the given format and returns a signed URL.
func (s *ExportService) Export(ctx context.Context, competition string, format models.ExportFormat) (*models.ExportResult, error) {
	if _, err := export.ForFormat(string(format)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	req := models.ExportRequest{ID: uuid.NewString(), Competition: competition, Format: format}
	if s.queue == nil {
		return s.generate(ctx, req)
	}

	done := make(chan exportOutcome, 1)
	if err := s.queue.Submit(ctx, jobs.Task[exportTask]{ID: req.ID, Payload: exportTask{req: req, done: done}}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export queue unavailable")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, appErrors.FromError(out.err)
		}
		return out.result, nil
	}
}

// handle runs one queued export. Client errors are delivered at once; anything else is retried.
func (s *ExportService) handle(ctx context.Context, task jobs.Task[exportTask]) error {
	res, err := s.generate(ctx, task.Payload.req)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status < 500 {
			task.Payload.done <- exportOutcome{err: err}
			return nil
		}
		return err
	}
	task.Payload.done <- exportOutcome{result: res}
	return nil
}

func (s *ExportService) generate(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error) {
	snap, err := s.schedules.Get(ctx, req.Competition)
	if err != nil {
		return nil, err
	}
	renderer, err := export.ForFormat(string(req.Format))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	payload, err := renderer.Render(ScheduleSheet(snap))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	name := path.Join(sanitizeFilename(req.Competition),
		fmt.Sprintf("schedule_v%d_%s_%s.%s", snap.Version, s.now().UTC().Format("20060102_150405"), req.ID[:8], renderer.Extension()))
	rel, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, grant, err := s.signer.Sign(req.ID, rel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	result := &models.ExportResult{
		ID:          req.ID,
		Competition: req.Competition,
		Format:      req.Format,
		Version:     snap.Version,
		Path:        rel,
		URL:         fmt.Sprintf("%s/export/%s", prefix, token),
		ExpiresAt:   grant.ExpiresAt,
	}
	s.metrics.ObserveExport(string(req.Format))
	s.events.Publish(ctx, models.ScheduleEvent{
		Type:        models.EventScheduleExported,
		Competition: req.Competition,
		Version:     snap.Version,
		Status:      snap.Status,
		Detail:      map[string]string{"format": string(req.Format), "export_id": req.ID},
	})
	s.logger.Info("schedule exported", zap.String("competition", req.Competition), zap.String("format", string(req.Format)), zap.String("path", rel))
	return result, nil
}

// Download resolves a signed token to a stored file.
func (s *ExportService) Download(token string) (*models.ExportDownload, error) {
	grant, err := s.signer.Verify(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired")
	}
	f, err := s.storage.Open(grant.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	_ = f.Close()

	contentType := "application/octet-stream"
	if r, err := export.ForFormat(strings.TrimPrefix(path.Ext(grant.Path), ".")); err == nil {
		contentType = r.ContentType()
	}
	return &models.ExportDownload{
		Path:        s.storage.Path(grant.Path),
		Filename:    path.Base(grant.Path),
		ContentType: contentType,
	}, nil
}

// Cleanup removes exports older than the retention window.
func (s *ExportService) Cleanup() ([]string, error) {
	removed, err := s.storage.CleanupOlderThan(s.cfg.RetainFor)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

var scheduleColumns = []string{"Day", "Start", "Room", "Format", "Level", "Student", "Pieces", "Minutes", "Teacher", "Judges", "Proctor", "Rating", "Points"}

// ScheduleSheet flattens a schedule into one row per student in grid order.
func ScheduleSheet(snap *models.ScheduleSnapshot) export.Sheet {
	sheet := export.Sheet{
		Title:   fmt.Sprintf("%s schedule (v%d)", snap.Competition, snap.Version),
		Columns: scheduleColumns,
		Rows:    make([][]string, 0),
	}
	if snap.Scheduler == nil {
		return sheet
	}
	grid := snap.Scheduler
	grid.Walk(func(ref scheduler.SectionRef, block *scheduler.TimeBlock, sec *scheduler.Section) {
		for _, st := range sec.Students {
			pieces := make([]string, 0, len(st.Songs))
			for _, song := range st.Songs {
				if song.Composer != "" {
					pieces = append(pieces, song.Name+" ("+song.Composer+")")
				} else {
					pieces = append(pieces, song.Name)
				}
			}
			rating, points := "", ""
			if st.Result != nil {
				rating = st.Result.Rating
				points = strconv.Itoa(st.Result.Points)
			}
			sheet.Rows = append(sheet.Rows, []string{
				ref.Day.Label(),
				block.StartTime,
				grid.RoomName(ref.Day, ref.Room),
				sec.Type.Label(),
				strconv.Itoa(st.SkillLevel),
				st.FullName(),
				strings.Join(pieces, "; "),
				strconv.Itoa(st.TotalPlayTime),
				st.TeacherName,
				strings.Join(sec.Judges, ", "),
				sec.Proctor,
				rating,
				points,
			})
		}
	})
	return sheet
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.TrimLeft(replacer.Replace(raw), ".")
	if result == "" {
		return "na"
	}
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
