package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// ProctorPreference is the volunteer option that marks a teacher as a proctor.
const ProctorPreference = "Proctor sessions"

// Registrant is one form entry for a competition, in submission order.
type Registrant struct {
	ID            string    `db:"id" json:"id"`
	Competition   string    `db:"competition" json:"competition"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	SkillLevel    int       `db:"skill_level" json:"skill_level"`
	Format        string    `db:"format" json:"format"`
	DayPreference string    `db:"day_preference" json:"day_preference"`
	PlayTime      int       `db:"play_time" json:"play_time"`
	Song1         string    `db:"song_1" json:"song_1"`
	Composer1     string    `db:"composer_1" json:"composer_1"`
	Song2         string    `db:"song_2" json:"song_2,omitempty"`
	Composer2     string    `db:"composer_2" json:"composer_2,omitempty"`
	AltSong       string    `db:"alt_song" json:"alt_song,omitempty"`
	AltComposer   string    `db:"alt_composer" json:"alt_composer,omitempty"`
	ParentEmail   string    `db:"parent_email" json:"parent_email"`
	TeacherEmail  string    `db:"teacher_email" json:"teacher_email"`
	TeacherName   string    `db:"teacher_name" json:"teacher_name"`
	SubmittedAt   time.Time `db:"submitted_at" json:"submitted_at"`
}

// Teacher is a teacher who registered students and possibly volunteered to help.
type Teacher struct {
	ID                   string         `db:"id" json:"id"`
	Competition          string         `db:"competition" json:"competition"`
	Name                 string         `db:"name" json:"name"`
	Email                string         `db:"email" json:"email"`
	IsJudging            string         `db:"is_judging" json:"is_judging"`
	VolunteerPreferences pq.StringArray `db:"volunteer_preferences" json:"volunteer_preferences"`
	ScheduleWithStudents bool           `db:"schedule_with_students" json:"schedule_with_students"`
}

// Judges reports whether the teacher signed up to judge.
func (t Teacher) Judges() bool {
	return strings.EqualFold(strings.TrimSpace(t.IsJudging), "Yes")
}

// Proctors reports whether the teacher volunteered to proctor sessions.
func (t Teacher) Proctors() bool {
	for _, pref := range t.VolunteerPreferences {
		if strings.EqualFold(strings.TrimSpace(pref), ProctorPreference) {
			return true
		}
	}
	return false
}
