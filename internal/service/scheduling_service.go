package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/festival-scheduler-api/internal/dto"
	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
	"github.com/noah-isme/festival-scheduler-api/pkg/cache"
	appErrors "github.com/noah-isme/festival-scheduler-api/pkg/errors"
	"github.com/noah-isme/festival-scheduler-api/pkg/logger"
)

// ScheduleStore persists built schedules.
type ScheduleStore interface {
	Load(ctx context.Context, competition string) (*models.ScheduleSnapshot, error)
	Save(ctx context.Context, snapshot *models.ScheduleSnapshot, expectedVersion int) (int, error)
}

type registrantReader interface {
	ListByCompetition(ctx context.Context, competition string) ([]models.Registrant, error)
}

type teacherReader interface {
	ListByCompetition(ctx context.Context, competition string) ([]models.Teacher, error)
}

// PlayingTimes are the summed play times per day preference, in minutes.
type PlayingTimes struct {
	Saturday int `json:"saturday"`
	Sunday   int `json:"sunday"`
	Either   int `json:"either"`
}

// SchedulingService runs the full placement of a competition's registrants.
type SchedulingService struct {
	registrants registrantReader
	teachers    teacherReader
	store       ScheduleStore
	cache       *CacheService
	events      EventPublisher
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewSchedulingService constructs the scheduling driver. registrants and teachers may be nil
// when only RunWithRecords is used.
func NewSchedulingService(registrants registrantReader, teachers teacherReader, store ScheduleStore, cache *CacheService, events EventPublisher, metrics *MetricsService, logger *zap.Logger) *SchedulingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NoopEventPublisher{}
	}
	return &SchedulingService{
		registrants: registrants,
		teachers:    teachers,
		store:       store,
		cache:       cache,
		events:      events,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Run loads the competition's registrants and teachers and schedules them.
func (s *SchedulingService) Run(ctx context.Context, competition string, cfg scheduler.Config) (*dto.RunScheduleResponse, error) {
	if s.registrants == nil || s.teachers == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "registration sources are not configured")
	}
	registrants, err := s.registrants.ListByCompetition(ctx, competition)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrants")
	}
	teachers, err := s.teachers.ListByCompetition(ctx, competition)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	return s.RunWithRecords(ctx, competition, cfg, registrants, teachers)
}

// RunWithRecords schedules the given registrants. Nothing is persisted unless every student
// is placed. A persistence failure returns both the built schedule and a PERSIST_FAILED error.
func (s *SchedulingService) RunWithRecords(ctx context.Context, competition string, cfg scheduler.Config, registrants []models.Registrant, teachers []models.Teacher) (*dto.RunScheduleResponse, error) {
	start := s.now()
	log := logger.WithContext(ctx, s.logger).With(zap.String("competition", competition))

	resp, err := s.run(ctx, competition, cfg, registrants, teachers, log)
	placed := 0
	if resp != nil {
		placed = resp.Summary.Students
		resp.Summary.DurationMillis = s.now().Sub(start).Milliseconds()
	}
	code := ""
	if err != nil {
		code = appErrors.FromError(err).Code
		log.Warn("scheduling run failed", zap.String("code", code), zap.Error(err))
	} else {
		log.Info("scheduling run finished", zap.Int("students", placed), zap.Int("version", resp.Version))
	}
	s.metrics.ObserveRun(s.now().Sub(start), placed, code)
	return resp, err
}

func (s *SchedulingService) run(ctx context.Context, competition string, cfg scheduler.Config, registrants []models.Registrant, teachers []models.Teacher, log *zap.Logger) (*dto.RunScheduleResponse, error) {
	if strings.TrimSpace(competition) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "competition name is required")
	}
	if cfg.SectionMinutes <= 0 {
		cfg.SectionMinutes = scheduler.DefaultSectionMinutes
	}

	students, err := BuildStudents(registrants, cfg.MasterInstructorMinutes)
	if err != nil {
		return nil, err
	}
	if err := CanSchedulerBeCreated(cfg, students); err != nil {
		return nil, err
	}

	grid, err := scheduler.New(cfg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInfeasibleConfiguration.Code, appErrors.ErrInfeasibleConfiguration.Status, err.Error())
	}
	masterSections := grid.ReserveMasterSections()

	totals := CalculatePlayingTimes(students)
	resolved := ResolveEitherDays(students, totals, configuredDays(cfg))

	for _, st := range students {
		if !grid.ScheduleStudent(st) {
			day, _ := st.ScheduledDay()
			msg := fmt.Sprintf("could not place %s (level %d, %s) on %s; add time blocks or sections and run the scheduler again",
				st.FullName(), st.SkillLevel, st.Format.Label(), day.Label())
			return nil, appErrors.Clone(appErrors.ErrPlacementExhausted, msg)
		}
	}
	log.Debug("students placed", zap.Int("students", len(students)), zap.Int("master_sections", masterSections))

	judges, proctors := StaffPools(teachers)
	perSection := cfg.JudgesPerSection
	if perSection <= 0 && len(judges) > 0 {
		perSection = 1
	}
	grid.AssignJudges(judges, perSection)
	grid.AssignProctors(proctors)

	snap := &models.ScheduleSnapshot{
		Competition: competition,
		Status:      models.ScheduleStatusScheduled,
		Scheduler:   grid,
		UpdatedAt:   s.now().UTC(),
	}
	resp := &dto.RunScheduleResponse{
		Summary: dto.RunSummary{
			Competition:       competition,
			Students:          grid.TotalStudents(),
			MasterSections:    masterSections,
			EitherResolutions: resolved,
			Judges:            len(judges),
			Proctors:          len(proctors),
		},
	}

	for _, st := range grid.Students() {
		if st.Day == scheduler.Sunday {
			resp.Summary.SundayPlayTime += st.TotalPlayTime
		} else {
			resp.Summary.SaturdayPlayTime += st.TotalPlayTime
		}
	}

	if s.store == nil {
		resp.ScheduleResponse = dto.NewScheduleResponse(snap)
		return resp, nil
	}
	// Re-running the scheduler replaces whatever was stored before.
	if _, err := s.store.Save(ctx, snap, 0); err != nil {
		resp.ScheduleResponse = dto.NewScheduleResponse(snap)
		return resp, appErrors.Wrap(err, appErrors.ErrPersistFailed.Code, appErrors.ErrPersistFailed.Status, appErrors.ErrPersistFailed.Message)
	}
	resp.Summary.Persisted = true
	resp.ScheduleResponse = dto.NewScheduleResponse(snap)

	s.cache.Invalidate(ctx, cache.SchedulePattern(competition))
	s.events.Publish(ctx, models.ScheduleEvent{
		Type:        models.EventScheduleCreated,
		Competition: competition,
		Version:     snap.Version,
		Status:      snap.Status,
		Students:    resp.Summary.Students,
	})
	return resp, nil
}

// BuildStudents converts registrants into students ordered by skill level, keeping form-entry
// order within a level. Master class students carry the instructor time in their play time.
func BuildStudents(registrants []models.Registrant, masterInstructorMinutes int) ([]*scheduler.Student, error) {
	students := make([]*scheduler.Student, 0, len(registrants))
	for i, reg := range registrants {
		st, err := newStudent(reg, masterInstructorMinutes)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("registrant %d (%s %s): %v", i+1, reg.FirstName, reg.LastName, err))
		}
		students = append(students, st)
	}
	sort.SliceStable(students, func(i, j int) bool {
		return students[i].SkillLevel < students[j].SkillLevel
	})
	return students, nil
}

func newStudent(reg models.Registrant, masterInstructorMinutes int) (*scheduler.Student, error) {
	if reg.SkillLevel < scheduler.MinSkillLevel || reg.SkillLevel > scheduler.MaxSkillLevel {
		return nil, fmt.Errorf("skill level %d outside %d..%d", reg.SkillLevel, scheduler.MinSkillLevel, scheduler.MaxSkillLevel)
	}
	format, ok := scheduler.ParseCompetitionFormat(reg.Format)
	if !ok {
		return nil, fmt.Errorf("unknown competition format %q", reg.Format)
	}
	if reg.PlayTime < 0 {
		return nil, errors.New("play time must not be negative")
	}
	playTime := reg.PlayTime
	if format == scheduler.FormatMaster {
		playTime += masterInstructorMinutes
	}
	id := reg.ID
	if id == "" {
		id = uuid.NewString()
	}

	st := scheduler.NewStudent(id, strings.TrimSpace(reg.FirstName), strings.TrimSpace(reg.LastName), reg.SkillLevel, format, scheduler.ParseDayPreference(reg.DayPreference), playTime)
	st.ParentEmail = reg.ParentEmail
	st.TeacherEmail = reg.TeacherEmail
	st.TeacherName = reg.TeacherName

	if reg.Song1 != "" {
		st.AddSong(scheduler.Song{Name: reg.Song1, Composer: reg.Composer1})
	}
	second := scheduler.Song{Name: reg.Song2, Composer: reg.Composer2}
	if reg.SkillLevel == scheduler.MaxSkillLevel && reg.AltSong != "" {
		second = scheduler.Song{Name: reg.AltSong, Composer: reg.AltComposer}
	}
	if second.Name != "" {
		st.AddSong(second)
	}
	return st, nil
}

// CanSchedulerBeCreated runs the feasibility checks that must pass before any placement:
// start times match block counts, total play time fits the grid, and master class play
// time fits the reserved master sections.
func CanSchedulerBeCreated(cfg scheduler.Config, students []*scheduler.Student) error {
	if len(cfg.Days) == 0 {
		return infeasible("no competition days are configured; add Saturday or Sunday")
	}
	minutes := cfg.SectionMinutes
	if minutes <= 0 {
		minutes = scheduler.DefaultSectionMinutes
	}
	limit := scheduler.MusicTimeLimit(minutes)

	capacity, masterCapacity := 0, 0
	for _, d := range cfg.Days {
		if len(d.StartTimes) != d.NumBlocks {
			return infeasible(fmt.Sprintf("%s has %d time blocks but %d start times; make the number of start times match the number of time blocks",
				d.Day.Label(), d.NumBlocks, len(d.StartTimes)))
		}
		sections := d.NumBlocks * d.NumSections
		capacity += sections * limit
		masters := d.NumMasterSections
		if masters > sections {
			masters = sections
		}
		masterCapacity += masters * limit
	}

	required, masterRequired := 0, 0
	for _, st := range students {
		required += st.TotalPlayTime
		if st.Format == scheduler.FormatMaster {
			masterRequired += st.TotalPlayTime
		}
	}
	if required > capacity {
		return infeasible(fmt.Sprintf("registrants need %d minutes of play time but the schedule holds %d; increase the number of time blocks, concurrent sections or the time block length",
			required, capacity))
	}
	if masterRequired > masterCapacity {
		return infeasible(fmt.Sprintf("master class students need %d minutes but reserved master sections hold %d; increase the number of master class sections",
			masterRequired, masterCapacity))
	}
	return nil
}

func infeasible(msg string) error {
	return appErrors.Clone(appErrors.ErrInfeasibleConfiguration, msg)
}

// CalculatePlayingTimes sums play time per day preference.
func CalculatePlayingTimes(students []*scheduler.Student) PlayingTimes {
	var totals PlayingTimes
	for _, st := range students {
		switch st.DayPreference {
		case scheduler.PreferSaturday:
			totals.Saturday += st.TotalPlayTime
		case scheduler.PreferSunday:
			totals.Sunday += st.TotalPlayTime
		default:
			totals.Either += st.TotalPlayTime
		}
	}
	return totals
}

// ResolveEitherDays assigns every Either student, in order, to the day with the smaller
// running total. Sunday wins only when strictly smaller, so ties go to Saturday. A decision
// is never revisited. When only one day is configured every Either student goes there.
// It returns how many students went to each day.
func ResolveEitherDays(students []*scheduler.Student, totals PlayingTimes, days []scheduler.Day) map[string]int {
	counts := map[string]int{}
	hasSat, hasSun := false, false
	for _, d := range days {
		hasSat = hasSat || d == scheduler.Saturday
		hasSun = hasSun || d == scheduler.Sunday
	}

	sat, sun := totals.Saturday, totals.Sunday
	for _, st := range students {
		if st.DayPreference != scheduler.PreferEither {
			continue
		}
		var day scheduler.Day
		switch {
		case hasSat && hasSun:
			if sun < sat {
				day = scheduler.Sunday
			} else {
				day = scheduler.Saturday
			}
		case hasSun:
			day = scheduler.Sunday
		default:
			day = scheduler.Saturday
		}
		if day == scheduler.Sunday {
			sun += st.TotalPlayTime
		} else {
			sat += st.TotalPlayTime
		}
		st.ResolveDay(day)
		counts[day.Label()]++
	}
	return counts
}

// StaffPools picks judges and proctors from the teacher sign-ups, keeping sign-up order.
func StaffPools(teachers []models.Teacher) (judges, proctors []string) {
	for _, t := range teachers {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			name = t.Email
		}
		if name == "" {
			continue
		}
		if t.Judges() {
			judges = append(judges, name)
		}
		if t.Proctors() {
			proctors = append(proctors, name)
		}
	}
	return judges, proctors
}

func configuredDays(cfg scheduler.Config) []scheduler.Day {
	days := make([]scheduler.Day, 0, len(cfg.Days))
	for _, d := range cfg.Days {
		days = append(days, d.Day)
	}
	return days
}
