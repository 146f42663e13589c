package scheduler

// TimeBlock is one slot of the clock holding a fixed number of concurrent sections.
type TimeBlock struct {
	Day       Day        `json:"day"`
	StartTime string     `json:"start_time"`
	Sections  []*Section `json:"sections"`
}

// NewTimeBlock pre-allocates numSections sections. The block is never resized.
func NewTimeBlock(day Day, startTime string, numSections, sectionMinutes int, groupByLevel bool) *TimeBlock {
	sections := make([]*Section, numSections)
	for i := range sections {
		sections[i] = NewSection(sectionMinutes, groupByLevel)
	}
	return &TimeBlock{Day: day, StartTime: startTime, Sections: sections}
}

// ScheduleStudent places the student in the first section that accepts it.
func (b *TimeBlock) ScheduleStudent(student *Student) bool {
	return b.place(student) >= 0
}

// place returns the room index used, or -1.
func (b *TimeBlock) place(student *Student) int {
	for idx, section := range b.Sections {
		if section.AddStudent(student) {
			return idx
		}
	}
	return -1
}

// AssignSectionToMaster converts the first available section into a masterclass section.
// A positive sectionMinutes overrides its length; zero keeps the block length.
func (b *TimeBlock) AssignSectionToMaster(sectionMinutes int) bool {
	for _, section := range b.Sections {
		if section.AssignToMaster() {
			if sectionMinutes > 0 {
				section.SetTimeLimit(sectionMinutes)
			}
			return true
		}
	}
	return false
}
