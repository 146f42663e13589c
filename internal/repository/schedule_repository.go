package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
)

type sectionKey struct {
	day   scheduler.Day
	block int
	room  int
}

// ScheduleRepository stores schedules as normalized rows: one festival_schedules row per
// competition, one festival_sections row per section carrying state, and one
// festival_students row per placed student.
type ScheduleRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db, now: time.Now}
}

// Load rebuilds the in-memory grid from rows.
func (r *ScheduleRepository) Load(ctx context.Context, competition string) (*models.ScheduleSnapshot, error) {
	const headQuery = `SELECT competition, version, status, config, room_names, updated_at FROM festival_schedules WHERE competition = $1`
	var head models.ScheduleRow
	if err := r.db.GetContext(ctx, &head, headQuery, competition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	const sectionsQuery = `SELECT competition, day, block_index, room_index, format, skill_level, time_limit, judges, proctor
FROM festival_sections WHERE competition = $1 ORDER BY day, block_index, room_index`
	var sections []models.SectionRow
	if err := r.db.SelectContext(ctx, &sections, sectionsQuery, competition); err != nil {
		return nil, fmt.Errorf("list schedule sections: %w", err)
	}

	const studentsQuery = `SELECT competition, id, day, block_index, room_index, position, first_name, last_name, format, day_preference,
skill_level, total_play_time, songs, teacher_email, teacher_name, parent_email, result
FROM festival_students WHERE competition = $1 ORDER BY day, block_index, room_index, position`
	var students []models.StudentRow
	if err := r.db.SelectContext(ctx, &students, studentsQuery, competition); err != nil {
		return nil, fmt.Errorf("list schedule students: %w", err)
	}

	grid, err := rebuild(head, sections, students)
	if err != nil {
		return nil, err
	}
	return &models.ScheduleSnapshot{
		Competition: head.Competition,
		Version:     head.Version,
		Status:      head.Status,
		Scheduler:   grid,
		UpdatedAt:   head.UpdatedAt,
	}, nil
}

// Save replaces every row of the competition in one transaction and bumps the version.
func (r *ScheduleRepository) Save(ctx context.Context, snapshot *models.ScheduleSnapshot, expectedVersion int) (version int, err error) {
	if snapshot == nil || snapshot.Scheduler == nil {
		return 0, fmt.Errorf("save schedule: empty snapshot")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin schedule transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current := 0
	const lockQuery = `SELECT version FROM festival_schedules WHERE competition = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, snapshot.Competition); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lock schedule: %w", err)
	}
	exists := err == nil
	if err = checkVersion(current, expectedVersion); err != nil {
		return 0, err
	}

	head := models.ScheduleRow{
		Competition: snapshot.Competition,
		Version:     current + 1,
		Status:      snapshot.Status,
		Config:      models.ScheduleConfig(snapshot.Scheduler.Config),
		RoomNames:   roomNames(snapshot.Scheduler),
		UpdatedAt:   r.now().UTC(),
	}
	if exists {
		const updateQuery = `UPDATE festival_schedules SET version = :version, status = :status, config = :config, room_names = :room_names, updated_at = :updated_at
WHERE competition = :competition`
		_, err = sqlx.NamedExecContext(ctx, tx, updateQuery, head)
	} else {
		const insertQuery = `INSERT INTO festival_schedules (competition, version, status, config, room_names, updated_at)
VALUES (:competition, :version, :status, :config, :room_names, :updated_at)`
		_, err = sqlx.NamedExecContext(ctx, tx, insertQuery, head)
	}
	if err != nil {
		return 0, fmt.Errorf("write schedule: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM festival_students WHERE competition = $1`, snapshot.Competition); err != nil {
		return 0, fmt.Errorf("clear schedule students: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM festival_sections WHERE competition = $1`, snapshot.Competition); err != nil {
		return 0, fmt.Errorf("clear schedule sections: %w", err)
	}

	sections, students := flatten(snapshot.Competition, snapshot.Scheduler)
	const sectionInsert = `INSERT INTO festival_sections (competition, day, block_index, room_index, format, skill_level, time_limit, judges, proctor)
VALUES (:competition, :day, :block_index, :room_index, :format, :skill_level, :time_limit, :judges, :proctor)`
	for i := range sections {
		if _, err = sqlx.NamedExecContext(ctx, tx, sectionInsert, &sections[i]); err != nil {
			return 0, fmt.Errorf("insert schedule section: %w", err)
		}
	}
	const studentInsert = `INSERT INTO festival_students (competition, id, day, block_index, room_index, position, first_name, last_name, format,
day_preference, skill_level, total_play_time, songs, teacher_email, teacher_name, parent_email, result)
VALUES (:competition, :id, :day, :block_index, :room_index, :position, :first_name, :last_name, :format,
:day_preference, :skill_level, :total_play_time, :songs, :teacher_email, :teacher_name, :parent_email, :result)`
	for i := range students {
		if _, err = sqlx.NamedExecContext(ctx, tx, studentInsert, &students[i]); err != nil {
			return 0, fmt.Errorf("insert schedule student: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit schedule: %w", err)
	}
	snapshot.Version = head.Version
	snapshot.UpdatedAt = head.UpdatedAt
	return head.Version, nil
}

func roomNames(grid *scheduler.Scheduler) models.RoomNames {
	names := models.RoomNames{}
	for _, ds := range grid.Days {
		if len(ds.RoomNames) > 0 {
			names[ds.Day] = append([]string(nil), ds.RoomNames...)
		}
	}
	return names
}

// flatten turns the grid into rows. Untouched sections are skipped.
func flatten(competition string, grid *scheduler.Scheduler) ([]models.SectionRow, []models.StudentRow) {
	sections := make([]models.SectionRow, 0)
	students := make([]models.StudentRow, 0)
	grid.Walk(func(ref scheduler.SectionRef, _ *scheduler.TimeBlock, sec *scheduler.Section) {
		if sec.Type == scheduler.FormatUnset && sec.IsEmpty() && len(sec.Judges) == 0 && sec.Proctor == "" {
			return
		}
		sections = append(sections, models.SectionRow{
			Competition: competition,
			Day:         ref.Day,
			Block:       ref.Block,
			Room:        ref.Room,
			Type:        sec.Type,
			SkillLevel:  sec.SkillLevel,
			TimeLimit:   sec.SectionTimeLimit,
			Judges:      append([]string{}, sec.Judges...),
			Proctor:     sec.Proctor,
		})
		for pos, st := range sec.Students {
			students = append(students, models.StudentRow{
				Competition:   competition,
				ID:            st.ID,
				Day:           ref.Day,
				Block:         ref.Block,
				Room:          ref.Room,
				Position:      pos,
				FirstName:     st.FirstName,
				LastName:      st.LastName,
				Format:        st.Format,
				DayPreference: st.DayPreference,
				SkillLevel:    st.SkillLevel,
				TotalPlayTime: st.TotalPlayTime,
				Songs:         models.Songs(st.Songs),
				TeacherEmail:  st.TeacherEmail,
				TeacherName:   st.TeacherName,
				ParentEmail:   st.ParentEmail,
				Result:        models.StudentResult{Result: st.Result},
			})
		}
	})
	return sections, students
}

// rebuild constructs a fresh grid from the stored config and restores section state.
func rebuild(head models.ScheduleRow, sections []models.SectionRow, students []models.StudentRow) (*scheduler.Scheduler, error) {
	grid, err := scheduler.New(scheduler.Config(head.Config))
	if err != nil {
		return nil, fmt.Errorf("rebuild schedule grid: %w", err)
	}
	for day, names := range head.RoomNames {
		if err := grid.SetRoomNames(day, names); err != nil {
			return nil, fmt.Errorf("rebuild room names: %w", err)
		}
	}

	grouped := make(map[sectionKey][]*scheduler.Student, len(sections))
	for _, row := range students {
		key := sectionKey{day: row.Day, block: row.Block, room: row.Room}
		grouped[key] = append(grouped[key], &scheduler.Student{
			ID:            row.ID,
			FirstName:     row.FirstName,
			LastName:      row.LastName,
			Format:        row.Format,
			DayPreference: row.DayPreference,
			SkillLevel:    row.SkillLevel,
			Songs:         []scheduler.Song(row.Songs),
			TotalPlayTime: row.TotalPlayTime,
			TeacherEmail:  row.TeacherEmail,
			TeacherName:   row.TeacherName,
			ParentEmail:   row.ParentEmail,
			Result:        row.Result.Result,
		})
	}

	for _, row := range sections {
		ref := scheduler.SectionRef{Day: row.Day, Block: row.Block, Room: row.Room}
		block, sec, err := grid.Section(ref)
		if err != nil {
			return nil, fmt.Errorf("rebuild section %s/%d/%d: %w", row.Day, row.Block, row.Room, err)
		}
		sec.SetTimeLimit(row.TimeLimit)
		members := grouped[sectionKey{day: row.Day, block: row.Block, room: row.Room}]
		sec.Restore(row.Type, row.SkillLevel, members)
		sec.Judges = append([]string(nil), row.Judges...)
		sec.Proctor = row.Proctor
		for _, st := range members {
			st.Day = row.Day
			st.StartTime = block.StartTime
			st.Room = grid.RoomName(row.Day, row.Room)
		}
	}
	return grid, nil
}
