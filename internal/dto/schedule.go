package dto

import (
	"fmt"
	"time"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
)

// DayConfigRequest describes one competition day as entered by the chairman.
type DayConfigRequest struct {
	Day               string   `json:"day" yaml:"day" validate:"required"`
	NumBlocks         int      `json:"numBlocks" yaml:"num_blocks" validate:"min=0"`
	StartTimes        []string `json:"startTimes" yaml:"start_times"`
	NumSections       int      `json:"numSections" yaml:"num_sections" validate:"min=0"`
	NumMasterSections int      `json:"numMasterSections" yaml:"num_master_sections" validate:"min=0"`
	RoomNames         []string `json:"roomNames,omitempty" yaml:"room_names,omitempty"`
}

// ChairmanConfigRequest holds the scheduling parameters for one competition run.
type ChairmanConfigRequest struct {
	Days                    []DayConfigRequest `json:"days" yaml:"days" validate:"required,min=1,max=2,dive"`
	SectionMinutes          int                `json:"sectionMinutes" yaml:"section_minutes" validate:"omitempty,min=1,max=600"`
	GroupByLevel            bool               `json:"groupByLevel" yaml:"group_by_level"`
	MasterInstructorMinutes int                `json:"masterInstructorMinutes" yaml:"master_instructor_minutes" validate:"min=0"`
	JudgesPerSection        int                `json:"judgesPerSection" yaml:"judges_per_section" validate:"min=0"`
	SongThreshold           int                `json:"songThreshold,omitempty" yaml:"song_threshold,omitempty" validate:"min=0"`
}

// ToConfig converts the request into the scheduler's configuration. defaultMinutes is used
// when the request leaves the section duration blank.
func (r ChairmanConfigRequest) ToConfig(defaultMinutes int) (scheduler.Config, error) {
	minutes := r.SectionMinutes
	if minutes <= 0 {
		minutes = defaultMinutes
	}
	cfg := scheduler.Config{
		SectionMinutes:          minutes,
		GroupByLevel:            r.GroupByLevel,
		MasterInstructorMinutes: r.MasterInstructorMinutes,
		JudgesPerSection:        r.JudgesPerSection,
		SongThreshold:           r.SongThreshold,
		Days:                    make([]scheduler.DayConfig, 0, len(r.Days)),
	}
	for _, d := range r.Days {
		day, ok := scheduler.ParseDay(d.Day)
		if !ok {
			return scheduler.Config{}, fmt.Errorf("unknown competition day %q", d.Day)
		}
		cfg.Days = append(cfg.Days, scheduler.DayConfig{
			Day:               day,
			NumBlocks:         d.NumBlocks,
			StartTimes:        append([]string(nil), d.StartTimes...),
			NumSections:       d.NumSections,
			NumMasterSections: d.NumMasterSections,
			RoomNames:         append([]string(nil), d.RoomNames...),
		})
	}
	return cfg, nil
}

// SectionRefRequest addresses one section of the grid.
type SectionRefRequest struct {
	Day   string `json:"day" validate:"required"`
	Block int    `json:"block" validate:"min=0"`
	Room  int    `json:"room" validate:"min=0"`
}

// ToRef resolves the day label.
func (r SectionRefRequest) ToRef() (scheduler.SectionRef, error) {
	day, ok := scheduler.ParseDay(r.Day)
	if !ok {
		return scheduler.SectionRef{}, fmt.Errorf("unknown competition day %q", r.Day)
	}
	return scheduler.SectionRef{Day: day, Block: r.Block, Room: r.Room}, nil
}

// UpdateSectionStaffRequest replaces the judges and proctor of a section.
type UpdateSectionStaffRequest struct {
	Section         SectionRefRequest `json:"section"`
	Judges          []string          `json:"judges" validate:"dive,required"`
	Proctor         string            `json:"proctor"`
	ExpectedVersion int               `json:"expectedVersion" validate:"min=0"`
}

// RenameRoomsRequest replaces the room labels for one day.
type RenameRoomsRequest struct {
	Day             string   `json:"day" validate:"required"`
	Names           []string `json:"names" validate:"required,min=1"`
	ExpectedVersion int      `json:"expectedVersion" validate:"min=0"`
}

// MoveStudentRequest relocates a placed student.
type MoveStudentRequest struct {
	StudentID       string            `json:"studentId" validate:"required"`
	To              SectionRefRequest `json:"to"`
	ExpectedVersion int               `json:"expectedVersion" validate:"min=0"`
}

// RecordScoreRequest attaches a judge's result to a student.
type RecordScoreRequest struct {
	StudentID       string `json:"studentId" validate:"required"`
	Rating          string `json:"rating" validate:"required,max=64"`
	Points          int    `json:"points" validate:"min=0,max=100"`
	Comments        string `json:"comments" validate:"max=2000"`
	ExpectedVersion int    `json:"expectedVersion" validate:"min=0"`
}

// ExportScheduleRequest asks for a downloadable document.
type ExportScheduleRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ScheduleResponse is returned by every read and mutation of a schedule.
type ScheduleResponse struct {
	Competition   string                `json:"competition"`
	Version       int                   `json:"version"`
	Status        models.ScheduleStatus `json:"status"`
	TotalStudents int                   `json:"totalStudents"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	Schedule      *scheduler.Scheduler  `json:"schedule,omitempty"`
}

// NewScheduleResponse builds the response body from a snapshot.
func NewScheduleResponse(snap *models.ScheduleSnapshot) *ScheduleResponse {
	if snap == nil {
		return nil
	}
	resp := &ScheduleResponse{
		Competition: snap.Competition,
		Version:     snap.Version,
		Status:      snap.Status,
		UpdatedAt:   snap.UpdatedAt,
		Schedule:    snap.Scheduler,
	}
	if snap.Scheduler != nil {
		resp.TotalStudents = snap.Scheduler.TotalStudents()
	}
	return resp
}

// RunSummary reports the outcome of a scheduling run.
type RunSummary struct {
	Competition       string         `json:"competition" yaml:"competition"`
	Students          int            `json:"students" yaml:"students"`
	MasterSections    int            `json:"masterSections" yaml:"master_sections"`
	SaturdayPlayTime  int            `json:"saturdayPlayTime" yaml:"saturday_play_time"`
	SundayPlayTime    int            `json:"sundayPlayTime" yaml:"sunday_play_time"`
	EitherResolutions map[string]int `json:"eitherResolutions" yaml:"either_resolutions"`
	Judges            int            `json:"judges" yaml:"judges"`
	Proctors          int            `json:"proctors" yaml:"proctors"`
	Persisted         bool           `json:"persisted" yaml:"persisted"`
	DurationMillis    int64          `json:"durationMillis" yaml:"duration_millis"`
}

// RunScheduleResponse combines the built schedule and its summary.
type RunScheduleResponse struct {
	*ScheduleResponse
	Summary RunSummary `json:"summary"`
}

// ExportResponse returns the signed download location.
type ExportResponse struct {
	ID        string              `json:"id"`
	Format    models.ExportFormat `json:"format"`
	Version   int                 `json:"version"`
	URL       string              `json:"url"`
	ExpiresAt time.Time           `json:"expiresAt"`
}
