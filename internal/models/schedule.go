package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
)

// ScheduleStatus tracks a competition schedule through its lifecycle.
type ScheduleStatus string

const (
	ScheduleStatusUnscheduled ScheduleStatus = "UNSCHEDULED"
	ScheduleStatusScheduled   ScheduleStatus = "SCHEDULED"
	ScheduleStatusModified    ScheduleStatus = "MODIFIED"
	ScheduleStatusScored      ScheduleStatus = "SCORED"
)

// Advance returns the status after a mutation of the given kind. SCORED is sticky:
// later staff or room edits do not drop a scored schedule back to MODIFIED.
func (s ScheduleStatus) Advance(next ScheduleStatus) ScheduleStatus {
	if s == ScheduleStatusScored && next == ScheduleStatusModified {
		return s
	}
	return next
}

// ScheduleSnapshot is a built schedule together with its lifecycle metadata.
type ScheduleSnapshot struct {
	Competition string               `json:"competition"`
	Version     int                  `json:"version"`
	Status      ScheduleStatus       `json:"status"`
	Scheduler   *scheduler.Scheduler `json:"scheduler"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ScheduleConfig stores the scheduler configuration as JSONB.
type ScheduleConfig scheduler.Config

// Value marshals the config for persistence.
func (c ScheduleConfig) Value() (driver.Value, error) {
	return valueJSON(scheduler.Config(c), "schedule config")
}

// Scan unmarshals the JSONB config column.
func (c *ScheduleConfig) Scan(value interface{}) error {
	return scanJSON(value, (*scheduler.Config)(c), "schedule config")
}

// ScheduleRow is one row of festival_schedules.
type ScheduleRow struct {
	Competition string         `db:"competition"`
	Version     int            `db:"version"`
	Status      ScheduleStatus `db:"status"`
	Config      ScheduleConfig `db:"config"`
	RoomNames   RoomNames      `db:"room_names"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// RoomNames stores per-day room labels as JSONB.
type RoomNames map[scheduler.Day][]string

// Value marshals room names for persistence.
func (r RoomNames) Value() (driver.Value, error) {
	if r == nil {
		r = RoomNames{}
	}
	return valueJSON(map[scheduler.Day][]string(r), "room names")
}

// Scan unmarshals the JSONB room names column.
func (r *RoomNames) Scan(value interface{}) error {
	return scanJSON(value, (*map[scheduler.Day][]string)(r), "room names")
}

// SectionRow is one row of festival_sections. Only sections that carry state
// (a type, students or staff) are stored.
type SectionRow struct {
	Competition string                      `db:"competition"`
	Day         scheduler.Day               `db:"day"`
	Block       int                         `db:"block_index"`
	Room        int                         `db:"room_index"`
	Type        scheduler.CompetitionFormat `db:"format"`
	SkillLevel  int                         `db:"skill_level"`
	TimeLimit   int                         `db:"time_limit"`
	Judges      pq.StringArray              `db:"judges"`
	Proctor     string                      `db:"proctor"`
}

// Songs stores a student's repertoire as JSONB.
type Songs []scheduler.Song

// Value marshals songs for persistence.
func (s Songs) Value() (driver.Value, error) {
	if s == nil {
		s = Songs{}
	}
	return valueJSON([]scheduler.Song(s), "songs")
}

// Scan unmarshals the JSONB songs column.
func (s *Songs) Scan(value interface{}) error {
	return scanJSON(value, (*[]scheduler.Song)(s), "songs")
}

// StudentResult stores an optional score as nullable JSONB.
type StudentResult struct {
	*scheduler.Result
}

// Value marshals the result, writing NULL when absent.
func (r StudentResult) Value() (driver.Value, error) {
	if r.Result == nil {
		return nil, nil
	}
	return valueJSON(r.Result, "student result")
}

// Scan unmarshals the nullable JSONB result column.
func (r *StudentResult) Scan(value interface{}) error {
	if value == nil {
		r.Result = nil
		return nil
	}
	res := &scheduler.Result{}
	if err := scanJSON(value, res, "student result"); err != nil {
		return err
	}
	r.Result = res
	return nil
}

// StudentRow is one row of festival_students. Position keeps the order inside the section.
type StudentRow struct {
	Competition   string                      `db:"competition"`
	ID            string                      `db:"id"`
	Day           scheduler.Day               `db:"day"`
	Block         int                         `db:"block_index"`
	Room          int                         `db:"room_index"`
	Position      int                         `db:"position"`
	FirstName     string                      `db:"first_name"`
	LastName      string                      `db:"last_name"`
	Format        scheduler.CompetitionFormat `db:"format"`
	DayPreference scheduler.DayPreference     `db:"day_preference"`
	SkillLevel    int                         `db:"skill_level"`
	TotalPlayTime int                         `db:"total_play_time"`
	Songs         Songs                       `db:"songs"`
	TeacherEmail  string                      `db:"teacher_email"`
	TeacherName   string                      `db:"teacher_name"`
	ParentEmail   string                      `db:"parent_email"`
	Result        StudentResult               `db:"result"`
}
