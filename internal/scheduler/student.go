package scheduler

import "strings"

const (
	MinSkillLevel = 1
	MaxSkillLevel = 11
)

// Song is a piece a student performs. Durations are in minutes.
type Song struct {
	Name     string `json:"name"`
	Composer string `json:"composer"`
	Duration int    `json:"duration"`
}

// Result is the score attached to a student after judging.
type Result struct {
	Rating   string `json:"rating"`
	Points   int    `json:"points"`
	Comments string `json:"comments,omitempty"`
}

// Student is one registrant as seen by the scheduler.
type Student struct {
	ID            string            `json:"id"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Format        CompetitionFormat `json:"format"`
	DayPreference DayPreference     `json:"day_preference"`
	SkillLevel    int               `json:"skill_level"`
	Songs         []Song            `json:"songs"`
	TotalPlayTime int               `json:"total_play_time"`
	TeacherEmail  string            `json:"teacher_email,omitempty"`
	TeacherName   string            `json:"teacher_name,omitempty"`
	ParentEmail   string            `json:"parent_email,omitempty"`

	// Placement metadata, written by the Scheduler.
	Day       Day    `json:"day,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	Room      string `json:"room,omitempty"`

	Result *Result `json:"result,omitempty"`

	resolvedDay Day
}

// NewStudent builds a student with an initial play time. Songs added later extend it.
func NewStudent(id, firstName, lastName string, level int, format CompetitionFormat, pref DayPreference, playTime int) *Student {
	if playTime < 0 {
		playTime = 0
	}
	return &Student{
		ID:            id,
		FirstName:     firstName,
		LastName:      lastName,
		Format:        format,
		DayPreference: pref,
		SkillLevel:    level,
		TotalPlayTime: playTime,
	}
}

// AddSong appends a song and refreshes the cached play time.
func (s *Student) AddSong(song Song) {
	s.Songs = append(s.Songs, song)
	s.TotalPlayTime += song.Duration
}

// FullName returns "First Last".
func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// ResolveDay fixes the day an Either registrant will play on.
func (s *Student) ResolveDay(day Day) {
	s.resolvedDay = day
}

// ScheduledDay is the day the Scheduler should place the student on.
func (s *Student) ScheduledDay() (Day, bool) {
	if day, ok := s.DayPreference.Day(); ok {
		return day, true
	}
	if s.resolvedDay != "" {
		return s.resolvedDay, true
	}
	if s.Day != "" {
		return s.Day, true
	}
	return "", false
}
