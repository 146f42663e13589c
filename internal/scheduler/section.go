package scheduler

import "math"

const (
	// DefaultSectionMinutes is the wall-clock length of a section when none is configured.
	DefaultSectionMinutes = 45
	musicTimeRatio        = 0.8
)

// MusicTimeLimit returns the share of a section reserved for performing.
func MusicTimeLimit(sectionMinutes int) int {
	return int(math.Ceil(float64(sectionMinutes) * musicTimeRatio))
}

// Section is one judged room-slot inside a time block.
type Section struct {
	Type             CompetitionFormat `json:"type"`
	SkillLevel       int               `json:"skill_level"`
	Students         []*Student        `json:"students"`
	SectionTimeLimit int               `json:"section_time_limit"`
	MusicTimeLimit   int               `json:"music_time_limit"`
	CurrentTime      int               `json:"current_time"`
	GroupByLevel     bool              `json:"group_by_level"`
	Judges           []string          `json:"judges,omitempty"`
	Proctor          string            `json:"proctor,omitempty"`
}

// NewSection allocates an empty section. A non-positive limit falls back to the default.
func NewSection(sectionMinutes int, groupByLevel bool) *Section {
	if sectionMinutes <= 0 {
		sectionMinutes = DefaultSectionMinutes
	}
	return &Section{
		Students:         make([]*Student, 0),
		SectionTimeLimit: sectionMinutes,
		MusicTimeLimit:   MusicTimeLimit(sectionMinutes),
		GroupByLevel:     groupByLevel,
	}
}

// IsEmpty reports whether no student has been admitted.
func (s *Section) IsEmpty() bool {
	return len(s.Students) == 0 && s.CurrentTime == 0
}

// RemainingTime is the music time still available.
func (s *Section) RemainingTime() int {
	return s.MusicTimeLimit - s.CurrentTime
}

// AddStudent admits the student if time and homogeneity allow it. Type and level are
// fixed by the first admission and survive the section being emptied again.
func (s *Section) AddStudent(student *Student) bool {
	if student == nil {
		return false
	}
	if student.TotalPlayTime+s.CurrentTime > s.MusicTimeLimit {
		return false
	}
	if s.Type != FormatUnset && student.Format != s.Type {
		return false
	}
	if s.GroupByLevel && s.SkillLevel != 0 && student.SkillLevel != s.SkillLevel {
		return false
	}

	if s.Type == FormatUnset {
		s.Type = student.Format
	}
	if s.GroupByLevel && s.SkillLevel == 0 {
		s.SkillLevel = student.SkillLevel
	}
	s.Students = append(s.Students, student)
	s.CurrentTime += student.TotalPlayTime
	return true
}

// AssignToMaster reserves an untyped empty section for masterclass students.
func (s *Section) AssignToMaster() bool {
	if s.Type != FormatUnset || !s.IsEmpty() {
		return false
	}
	s.Type = FormatMaster
	return true
}

// SetTimeLimit changes the section length. Only valid while empty.
func (s *Section) SetTimeLimit(sectionMinutes int) bool {
	if sectionMinutes <= 0 || !s.IsEmpty() {
		return false
	}
	s.SectionTimeLimit = sectionMinutes
	s.MusicTimeLimit = MusicTimeLimit(sectionMinutes)
	return true
}

// RemoveStudent takes a student out of the section. Type and level stay fixed.
func (s *Section) RemoveStudent(id string) (*Student, bool) {
	for idx, student := range s.Students {
		if student.ID != id {
			continue
		}
		s.Students = append(s.Students[:idx], s.Students[idx+1:]...)
		s.CurrentTime -= student.TotalPlayTime
		if s.CurrentTime < 0 {
			s.CurrentTime = 0
		}
		return student, true
	}
	return nil, false
}

// Restore replaces the section contents with previously persisted state.
func (s *Section) Restore(format CompetitionFormat, level int, students []*Student) {
	s.Type = format
	s.SkillLevel = level
	s.Students = make([]*Student, 0, len(students))
	s.CurrentTime = 0
	for _, student := range students {
		s.Students = append(s.Students, student)
		s.CurrentTime += student.TotalPlayTime
	}
}
