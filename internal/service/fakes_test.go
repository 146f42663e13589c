package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/repository"
	appErrors "github.com/noah-isme/festival-scheduler-api/pkg/errors"
)

// memStore keeps JSON copies so callers never share pointers with the stored state.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Load(_ context.Context, competition string) (*models.ScheduleSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[competition]
	if !ok {
		return nil, repository.ErrScheduleNotFound
	}
	var snap models.ScheduleSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *memStore) Save(_ context.Context, snap *models.ScheduleSnapshot, expected int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	current := 0
	if raw, ok := m.data[snap.Competition]; ok {
		var existing models.ScheduleSnapshot
		if err := json.Unmarshal(raw, &existing); err != nil {
			return 0, err
		}
		current = existing.Version
	}
	if expected > 0 && expected != current {
		return 0, repository.ErrVersionConflict
	}
	snap.Version = current + 1
	snap.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(snap)
	if err != nil {
		return 0, err
	}
	m.data[snap.Competition] = raw
	m.saves++
	return snap.Version, nil
}

func (m *memStore) version(competition string) int {
	snap, err := m.Load(context.Background(), competition)
	if err != nil {
		return 0
	}
	return snap.Version
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ScheduleEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e models.ScheduleEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []models.ScheduleEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ScheduleEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memCache struct {
	mu      sync.Mutex
	values  map[string]string
	gets    int
	deletes []string
}

func newMemCache() *memCache {
	return &memCache{values: map[string]string{}}
}

func (c *memCache) GetString(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.values[key]
	if !ok {
		return "", appErrors.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) SetString(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, pattern)
	c.values = map[string]string{}
	return nil
}

type staticRegistrants struct {
	rows []models.Registrant
	err  error
}

func (s staticRegistrants) ListByCompetition(context.Context, string) ([]models.Registrant, error) {
	return s.rows, s.err
}

type staticTeachers struct {
	rows []models.Teacher
	err  error
}

func (s staticTeachers) ListByCompetition(context.Context, string) ([]models.Teacher, error) {
	return s.rows, s.err
}

var errDiskFull = errors.New("disk full")

func registrant(id string, level int, format, day string, minutes int) models.Registrant {
	return models.Registrant{
		ID:            id,
		FirstName:     "Student",
		LastName:      id,
		SkillLevel:    level,
		Format:        format,
		DayPreference: day,
		PlayTime:      minutes,
		Song1:         fmt.Sprintf("Piece %s", id),
		Composer1:     "Composer",
		TeacherName:   "Ms Teacher",
	}
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return appErrors.FromError(err).Code
}
