package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
)

func sampleConfig() scheduler.Config {
	return scheduler.Config{
		SectionMinutes: 45,
		GroupByLevel:   true,
		Days: []scheduler.DayConfig{{
			Day:         scheduler.Saturday,
			NumBlocks:   1,
			StartTimes:  []string{"9:00 AM"},
			NumSections: 2,
		}},
	}
}

func sampleSnapshot(t *testing.T) *models.ScheduleSnapshot {
	t.Helper()
	grid, err := scheduler.New(sampleConfig())
	require.NoError(t, err)
	st := scheduler.NewStudent("s1", "Ada", "Lovelace", 3, scheduler.FormatTraditional, scheduler.PreferSaturday, 10)
	require.True(t, grid.ScheduleStudent(st))
	grid.AssignJudges([]string{"Judge One"}, 1)
	return &models.ScheduleSnapshot{Competition: "Spring Festival", Status: models.ScheduleStatusScheduled, Scheduler: grid}
}

func TestScheduleRepositorySaveInsertsRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	snap := sampleSnapshot(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM festival_schedules WHERE competition = $1 FOR UPDATE")).
		WithArgs("Spring Festival").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectExec("INSERT INTO festival_schedules").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM festival_students").WithArgs("Spring Festival").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM festival_sections").WithArgs("Spring Festival").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO festival_sections").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO festival_students").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	version, err := repo.Save(context.Background(), snap, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, 1, snap.Version)
	assert.False(t, snap.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositorySaveUpdatesExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))
	mock.ExpectExec("UPDATE festival_schedules SET version").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM festival_students").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM festival_sections").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO festival_sections").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO festival_students").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	version, err := repo.Save(context.Background(), sampleSnapshot(t), 4)
	require.NoError(t, err)
	assert.Equal(t, 5, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositorySaveVersionConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))
	mock.ExpectRollback()

	_, err := repo.Save(context.Background(), sampleSnapshot(t), 2)
	assert.True(t, errors.Is(err, ErrVersionConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryLoadNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM festival_schedules WHERE competition = $1")).
		WithArgs("Nope").
		WillReturnRows(sqlmock.NewRows([]string{"competition", "version", "status", "config", "room_names", "updated_at"}))

	_, err := repo.Load(context.Background(), "Nope")
	assert.ErrorIs(t, err, ErrScheduleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryLoadRebuildsGrid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	cfg, err := json.Marshal(sampleConfig())
	require.NoError(t, err)
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM festival_schedules WHERE competition = $1")).
		WithArgs("Spring Festival").
		WillReturnRows(sqlmock.NewRows([]string{"competition", "version", "status", "config", "room_names", "updated_at"}).
			AddRow("Spring Festival", 2, "MODIFIED", cfg, []byte(`{"SATURDAY":["Hall A","Hall B"]}`), updated))
	mock.ExpectQuery(regexp.QuoteMeta("FROM festival_sections WHERE competition = $1")).
		WithArgs("Spring Festival").
		WillReturnRows(sqlmock.NewRows([]string{"competition", "day", "block_index", "room_index", "format", "skill_level", "time_limit", "judges", "proctor"}).
			AddRow("Spring Festival", "SATURDAY", 0, 1, "TRADITIONAL", 3, 45, "{\"Judge One\"}", "Proctor P"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM festival_students WHERE competition = $1")).
		WithArgs("Spring Festival").
		WillReturnRows(sqlmock.NewRows([]string{"competition", "id", "day", "block_index", "room_index", "position", "first_name", "last_name", "format",
			"day_preference", "skill_level", "total_play_time", "songs", "teacher_email", "teacher_name", "parent_email", "result"}).
			AddRow("Spring Festival", "s1", "SATURDAY", 0, 1, 0, "Ada", "Lovelace", "TRADITIONAL", "SATURDAY", 3, 10,
				[]byte(`[{"name":"Minuet","composer":"Bach","duration":0}]`), "t@example.com", "Ms T", "p@example.com", []byte(`{"rating":"Superior","points":95}`)).
			AddRow("Spring Festival", "s2", "SATURDAY", 0, 1, 1, "Bo", "K", "TRADITIONAL", "EITHER", 3, 12,
				[]byte(`[]`), "", "", "", nil))

	snap, err := repo.Load(context.Background(), "Spring Festival")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Version)
	assert.Equal(t, models.ScheduleStatusModified, snap.Status)
	assert.True(t, updated.Equal(snap.UpdatedAt))

	_, sec, err := snap.Scheduler.Section(scheduler.SectionRef{Day: scheduler.Saturday, Block: 0, Room: 1})
	require.NoError(t, err)
	require.Len(t, sec.Students, 2)
	assert.Equal(t, 22, sec.CurrentTime)
	assert.Equal(t, scheduler.FormatTraditional, sec.Type)
	assert.Equal(t, []string{"Judge One"}, sec.Judges)
	assert.Equal(t, "Proctor P", sec.Proctor)
	assert.Equal(t, "Hall B", sec.Students[0].Room)
	assert.Equal(t, "9:00 AM", sec.Students[0].StartTime)
	require.NotNil(t, sec.Students[0].Result)
	assert.Equal(t, 95, sec.Students[0].Result.Points)
	assert.Nil(t, sec.Students[1].Result)

	_, empty, err := snap.Scheduler.Section(scheduler.SectionRef{Day: scheduler.Saturday, Block: 0, Room: 0})
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlattenSkipsUntouchedSections(t *testing.T) {
	snap := sampleSnapshot(t)
	sections, students := flatten(snap.Competition, snap.Scheduler)
	require.Len(t, sections, 1)
	require.Len(t, students, 1)
	assert.Equal(t, 0, sections[0].Room)
	assert.Equal(t, []string{"Judge One"}, []string(sections[0].Judges))
	assert.Equal(t, "s1", students[0].ID)
}
