package models

import "time"

// ScheduleEventType names lifecycle events published for downstream collaborators.
type ScheduleEventType string

const (
	EventScheduleCreated  ScheduleEventType = "schedule.created"
	EventScheduleModified ScheduleEventType = "schedule.modified"
	EventScheduleScored   ScheduleEventType = "schedule.scored"
	EventScheduleExported ScheduleEventType = "schedule.exported"
)

// ScheduleEvent is the message body written to the events topic.
type ScheduleEvent struct {
	ID          string            `json:"id"`
	Type        ScheduleEventType `json:"type"`
	Competition string            `json:"competition"`
	Version     int               `json:"version"`
	Status      ScheduleStatus    `json:"status"`
	Students    int               `json:"students,omitempty"`
	Detail      map[string]string `json:"detail,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}
