package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/repository"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
	"github.com/noah-isme/festival-scheduler-api/pkg/cache"
	appErrors "github.com/noah-isme/festival-scheduler-api/pkg/errors"
	"github.com/noah-isme/festival-scheduler-api/pkg/logger"
)

// ScheduleService reads and edits stored schedules. Every edit is a read-modify-write of the
// whole schedule, guarded by the stored version when the caller sends one.
type ScheduleService struct {
	store    ScheduleStore
	cache    *CacheService
	events   EventPublisher
	metrics  *MetricsService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(store ScheduleStore, cache *CacheService, events EventPublisher, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NoopEventPublisher{}
	}
	return &ScheduleService{store: store, cache: cache, events: events, metrics: metrics, cacheTTL: cacheTTL, logger: logger}
}

// Get returns the stored schedule.
func (s *ScheduleService) Get(ctx context.Context, competition string) (*models.ScheduleSnapshot, error) {
	snap, err := s.store.Load(ctx, competition)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return nil, appErrors.ErrScheduleNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return snap, nil
}

// Render returns the HTML fragment of the stored schedule and its version.
func (s *ScheduleService) Render(ctx context.Context, competition string, editable bool) (string, int, error) {
	snap, err := s.Get(ctx, competition)
	if err != nil {
		return "", 0, err
	}
	key := cache.ScheduleKey(competition, snap.Version, editable)
	if html, ok := s.cache.Get(ctx, key); ok {
		return html, snap.Version, nil
	}
	html := snap.Scheduler.ScheduleString(editable)
	s.cache.Set(ctx, key, html, s.cacheTTL)
	return html, snap.Version, nil
}

// UpdateSectionStaff replaces the judges and proctor of one section.
func (s *ScheduleService) UpdateSectionStaff(ctx context.Context, competition string, ref scheduler.SectionRef, judges []string, proctor string, expectedVersion int) (*models.ScheduleSnapshot, error) {
	return s.mutate(ctx, competition, expectedVersion, "section_staff", models.ScheduleStatusModified, func(grid *scheduler.Scheduler) error {
		_, sec, err := grid.Section(ref)
		if err != nil {
			return sectionError(err, ref)
		}
		sec.Judges = trimNames(judges)
		sec.Proctor = strings.TrimSpace(proctor)
		return nil
	})
}

// RenameRooms sets the room labels for one day.
func (s *ScheduleService) RenameRooms(ctx context.Context, competition string, day scheduler.Day, names []string, expectedVersion int) (*models.ScheduleSnapshot, error) {
	return s.mutate(ctx, competition, expectedVersion, "rename_rooms", models.ScheduleStatusModified, func(grid *scheduler.Scheduler) error {
		rooms := -1
		for _, dc := range grid.Config.Days {
			if dc.Day == day {
				rooms = dc.NumSections
			}
		}
		if rooms < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s is not a day of this competition", day.Label()))
		}
		if len(names) > rooms {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s has %d rooms but %d names were given", day.Label(), rooms, len(names)))
		}
		labels := make([]string, len(names))
		for i, n := range names {
			labels[i] = strings.TrimSpace(n)
		}
		return grid.SetRoomNames(day, labels)
	})
}

// MoveStudent relocates a student. Capacity and homogeneity are re-checked; a rejected move
// leaves the schedule untouched and returns CONFLICT.
func (s *ScheduleService) MoveStudent(ctx context.Context, competition, studentID string, to scheduler.SectionRef, expectedVersion int) (*models.ScheduleSnapshot, error) {
	return s.mutate(ctx, competition, expectedVersion, "move_student", models.ScheduleStatusModified, func(grid *scheduler.Scheduler) error {
		err := grid.MoveStudent(studentID, to)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, scheduler.ErrStudentNotFound):
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s is not on the schedule", studentID))
		case errors.Is(err, scheduler.ErrPlacementRejected):
			return appErrors.Clone(appErrors.ErrConflict, "target section cannot accept the student: not enough time left, or the format or level differs")
		default:
			return sectionError(err, to)
		}
	})
}

// RecordScore attaches a result to a student and marks the schedule as scored.
func (s *ScheduleService) RecordScore(ctx context.Context, competition, studentID string, result scheduler.Result, expectedVersion int) (*models.ScheduleSnapshot, error) {
	return s.mutate(ctx, competition, expectedVersion, "record_score", models.ScheduleStatusScored, func(grid *scheduler.Scheduler) error {
		st, _, ok := grid.FindStudent(studentID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s is not on the schedule", studentID))
		}
		res := result
		st.Result = &res
		return nil
	})
}

func (s *ScheduleService) mutate(ctx context.Context, competition string, expectedVersion int, kind string, next models.ScheduleStatus, apply func(*scheduler.Scheduler) error) (snap *models.ScheduleSnapshot, err error) {
	log := logger.WithContext(ctx, s.logger).With(zap.String("competition", competition), zap.String("mutation", kind))
	defer func() { s.metrics.ObserveMutation(kind, err) }()

	snap, err = s.Get(ctx, competition)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && snap.Version != expectedVersion {
		return nil, appErrors.Clone(appErrors.ErrVersionConflict, fmt.Sprintf("schedule is at version %d, not %d; reload and retry", snap.Version, expectedVersion))
	}
	if err = apply(snap.Scheduler); err != nil {
		return nil, err
	}
	snap.Status = snap.Status.Advance(next)

	guard := 0
	if expectedVersion > 0 {
		guard = snap.Version
	}
	if _, err = s.store.Save(ctx, snap, guard); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.ErrVersionConflict
		}
		log.Error("schedule not saved", zap.Error(err))
		return snap, appErrors.Wrap(err, appErrors.ErrPersistFailed.Code, appErrors.ErrPersistFailed.Status, appErrors.ErrPersistFailed.Message)
	}
	log.Info("schedule updated", zap.Int("version", snap.Version), zap.String("status", string(snap.Status)))

	s.cache.Invalidate(ctx, cache.SchedulePattern(competition))
	eventType := models.EventScheduleModified
	if next == models.ScheduleStatusScored {
		eventType = models.EventScheduleScored
	}
	s.events.Publish(ctx, models.ScheduleEvent{
		Type:        eventType,
		Competition: competition,
		Version:     snap.Version,
		Status:      snap.Status,
		Detail:      map[string]string{"mutation": kind},
	})
	return snap, nil
}

func sectionError(err error, ref scheduler.SectionRef) error {
	switch {
	case errors.Is(err, scheduler.ErrDayNotScheduled):
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s is not a day of this competition", ref.Day.Label()))
	case errors.Is(err, scheduler.ErrSectionNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no section at %s block %d room %d", ref.Day.Label(), ref.Block+1, ref.Room+1))
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve section")
	}
}

func trimNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
