package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrStudentNotFound   = errors.New("student not found in schedule")
	ErrSectionNotFound   = errors.New("section not found in schedule")
	ErrDayNotScheduled   = errors.New("day is not part of this competition")
	ErrPlacementRejected = errors.New("section cannot accept student")
)

// DayConfig describes the grid for one competition day.
type DayConfig struct {
	Day               Day      `json:"day"`
	NumBlocks         int      `json:"num_blocks"`
	StartTimes        []string `json:"start_times"`
	NumSections       int      `json:"num_sections"`
	NumMasterSections int      `json:"num_master_sections"`
	RoomNames         []string `json:"room_names,omitempty"`
}

// Config holds the chairman supplied scheduling parameters.
type Config struct {
	Days                    []DayConfig `json:"days"`
	SectionMinutes          int         `json:"section_minutes"`
	GroupByLevel            bool        `json:"group_by_level"`
	MasterInstructorMinutes int         `json:"master_instructor_minutes"`
	JudgesPerSection        int         `json:"judges_per_section"`
	// SongThreshold is collected but not enforced anywhere.
	SongThreshold int `json:"song_threshold,omitempty"`
}

// MusicTimeLimit is the per-section performing budget implied by the config.
func (c Config) MusicTimeLimit() int {
	minutes := c.SectionMinutes
	if minutes <= 0 {
		minutes = DefaultSectionMinutes
	}
	return MusicTimeLimit(minutes)
}

// DaySchedule is one row of the grid.
type DaySchedule struct {
	Day       Day          `json:"day"`
	Blocks    []*TimeBlock `json:"blocks"`
	RoomNames []string     `json:"room_names,omitempty"`
}

// SectionRef addresses a section inside the grid.
type SectionRef struct {
	Day   Day `json:"day" validate:"required,oneof=SATURDAY SUNDAY"`
	Block int `json:"block" validate:"min=0"`
	Room  int `json:"room" validate:"min=0"`
}

// Scheduler owns the day x block grid for one competition.
type Scheduler struct {
	Config Config         `json:"config"`
	Days   []*DaySchedule `json:"days"`
}

// New allocates the full grid described by cfg.
func New(cfg Config) (*Scheduler, error) {
	if len(cfg.Days) == 0 {
		return nil, fmt.Errorf("at least one competition day is required")
	}
	if cfg.SectionMinutes <= 0 {
		cfg.SectionMinutes = DefaultSectionMinutes
	}
	seen := make(map[Day]struct{}, len(cfg.Days))
	days := make([]*DaySchedule, 0, len(cfg.Days))
	for _, dc := range cfg.Days {
		if dc.Day != Saturday && dc.Day != Sunday {
			return nil, fmt.Errorf("unsupported day %q", dc.Day)
		}
		if _, dup := seen[dc.Day]; dup {
			return nil, fmt.Errorf("day %s configured twice", dc.Day.Label())
		}
		seen[dc.Day] = struct{}{}
		if dc.NumBlocks < 0 || dc.NumSections < 0 {
			return nil, fmt.Errorf("%s: block and section counts must not be negative", dc.Day.Label())
		}

		blocks := make([]*TimeBlock, dc.NumBlocks)
		for i := range blocks {
			start := ""
			if i < len(dc.StartTimes) {
				start = dc.StartTimes[i]
			}
			blocks[i] = NewTimeBlock(dc.Day, start, dc.NumSections, cfg.SectionMinutes, cfg.GroupByLevel)
		}
		days = append(days, &DaySchedule{
			Day:       dc.Day,
			Blocks:    blocks,
			RoomNames: append([]string(nil), dc.RoomNames...),
		})
	}
	return &Scheduler{Config: cfg, Days: days}, nil
}

func (s *Scheduler) day(d Day) *DaySchedule {
	for _, ds := range s.Days {
		if ds.Day == d {
			return ds
		}
	}
	return nil
}

// HasDay reports whether the competition runs on d.
func (s *Scheduler) HasDay(d Day) bool {
	return s.day(d) != nil
}

// ScheduleStudent walks the student's day block by block and places the student in the
// first section with room. Either registrants must be resolved beforehand.
func (s *Scheduler) ScheduleStudent(student *Student) bool {
	if student == nil {
		return false
	}
	d, ok := student.ScheduledDay()
	if !ok {
		return false
	}
	ds := s.day(d)
	if ds == nil {
		return false
	}
	for _, block := range ds.Blocks {
		room := block.place(student)
		if room < 0 {
			continue
		}
		student.Day = d
		student.StartTime = block.StartTime
		student.Room = s.RoomName(d, room)
		return true
	}
	return false
}

// ReserveMasterSections carves out masterclass sections on every day, one per block in
// chronological order, wrapping around until the configured count is met. It returns the
// number of sections reserved. Reserved sections keep the block length shared by every
// section in the block.
func (s *Scheduler) ReserveMasterSections() int {
	reserved := 0
	for _, dc := range s.Config.Days {
		ds := s.day(dc.Day)
		if ds == nil || len(ds.Blocks) == 0 {
			continue
		}
		want := dc.NumMasterSections
		got := 0
		attempts := len(ds.Blocks) * dc.NumSections
		for i := 0; got < want && i < attempts; i++ {
			if ds.Blocks[i%len(ds.Blocks)].AssignSectionToMaster(0) {
				got++
			}
		}
		reserved += got
	}
	return reserved
}

// AssignJudges hands out judges round-robin, perSection at a time, over every non-empty
// section. A teacher's own students are not taken into account.
func (s *Scheduler) AssignJudges(judges []string, perSection int) {
	if len(judges) == 0 || perSection <= 0 {
		return
	}
	if perSection > len(judges) {
		perSection = len(judges)
	}
	next := 0
	s.Walk(func(_ SectionRef, _ *TimeBlock, sec *Section) {
		if sec.IsEmpty() {
			return
		}
		sec.Judges = make([]string, 0, perSection)
		for i := 0; i < perSection; i++ {
			sec.Judges = append(sec.Judges, judges[next%len(judges)])
			next++
		}
	})
}

// AssignProctors gives each non-empty section one proctor, round-robin.
func (s *Scheduler) AssignProctors(proctors []string) {
	if len(proctors) == 0 {
		return
	}
	next := 0
	s.Walk(func(_ SectionRef, _ *TimeBlock, sec *Section) {
		if sec.IsEmpty() {
			return
		}
		sec.Proctor = proctors[next%len(proctors)]
		next++
	})
}

// RoomName returns the custom room name for a day when one exists.
func (s *Scheduler) RoomName(d Day, room int) string {
	if ds := s.day(d); ds != nil && room >= 0 && room < len(ds.RoomNames) && ds.RoomNames[room] != "" {
		return ds.RoomNames[room]
	}
	return fmt.Sprintf("Room %d", room+1)
}

// SetRoomNames overrides room names for a day and refreshes placed students.
func (s *Scheduler) SetRoomNames(d Day, names []string) error {
	ds := s.day(d)
	if ds == nil {
		return ErrDayNotScheduled
	}
	ds.RoomNames = append([]string(nil), names...)
	for _, block := range ds.Blocks {
		for room, sec := range block.Sections {
			for _, student := range sec.Students {
				student.Room = s.RoomName(d, room)
			}
		}
	}
	return nil
}

// Walk visits every section in day, block, room order.
func (s *Scheduler) Walk(fn func(ref SectionRef, block *TimeBlock, sec *Section)) {
	for _, ds := range s.Days {
		for bi, block := range ds.Blocks {
			for ri, sec := range block.Sections {
				fn(SectionRef{Day: ds.Day, Block: bi, Room: ri}, block, sec)
			}
		}
	}
}

// Students lists every placed student in grid order.
func (s *Scheduler) Students() []*Student {
	out := make([]*Student, 0)
	s.Walk(func(_ SectionRef, _ *TimeBlock, sec *Section) {
		out = append(out, sec.Students...)
	})
	return out
}

// Section resolves a reference to its section.
func (s *Scheduler) Section(ref SectionRef) (*TimeBlock, *Section, error) {
	ds := s.day(ref.Day)
	if ds == nil {
		return nil, nil, ErrDayNotScheduled
	}
	if ref.Block < 0 || ref.Block >= len(ds.Blocks) {
		return nil, nil, ErrSectionNotFound
	}
	block := ds.Blocks[ref.Block]
	if ref.Room < 0 || ref.Room >= len(block.Sections) {
		return nil, nil, ErrSectionNotFound
	}
	return block, block.Sections[ref.Room], nil
}

// FindStudent locates a student by ID.
func (s *Scheduler) FindStudent(id string) (*Student, SectionRef, bool) {
	var (
		found *Student
		at    SectionRef
	)
	s.Walk(func(ref SectionRef, _ *TimeBlock, sec *Section) {
		if found != nil {
			return
		}
		for _, student := range sec.Students {
			if student.ID == id {
				found, at = student, ref
				return
			}
		}
	})
	return found, at, found != nil
}

// MoveStudent relocates a student, re-checking capacity and homogeneity in the target.
// A rejected move leaves the schedule unchanged.
func (s *Scheduler) MoveStudent(id string, to SectionRef) error {
	student, from, ok := s.FindStudent(id)
	if !ok {
		return ErrStudentNotFound
	}
	targetBlock, target, err := s.Section(to)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	_, source, _ := s.Section(from)
	position := indexOf(source.Students, id)
	source.RemoveStudent(id)

	if !target.AddStudent(student) {
		source.Students = append(source.Students[:position], append([]*Student{student}, source.Students[position:]...)...)
		source.CurrentTime += student.TotalPlayTime
		return ErrPlacementRejected
	}
	student.Day = to.Day
	student.StartTime = targetBlock.StartTime
	student.Room = s.RoomName(to.Day, to.Room)
	return nil
}

// TotalStudents counts placed students.
func (s *Scheduler) TotalStudents() int {
	total := 0
	s.Walk(func(_ SectionRef, _ *TimeBlock, sec *Section) {
		total += len(sec.Students)
	})
	return total
}

func indexOf(students []*Student, id string) int {
	for i, student := range students {
		if student.ID == id {
			return i
		}
	}
	return len(students)
}
