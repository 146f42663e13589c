package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/pkg/storage"
)

type blobStorage interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
}

// FileScheduleStore keeps one JSON snapshot per competition in the upload directory.
type FileScheduleStore struct {
	files blobStorage
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileScheduleStore builds a store on top of local storage.
func NewFileScheduleStore(files blobStorage) *FileScheduleStore {
	return &FileScheduleStore{files: files, now: time.Now, locks: make(map[string]*sync.Mutex)}
}

// SnapshotFilename derives the file name from the competition display name. Path
// separators become underscores and leading dots or underscores are dropped.
func SnapshotFilename(competition string) string {
	name := strings.TrimSpace(competition)
	name = strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(name)
	name = strings.TrimLeft(name, "._")
	if name == "" {
		name = "schedule"
	}
	return name + ".txt"
}

// Load reads the competition snapshot.
func (s *FileScheduleStore) Load(ctx context.Context, competition string) (*models.ScheduleSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read(competition)
}

// Save writes the snapshot if expectedVersion matches the stored one and returns the new version.
func (s *FileScheduleStore) Save(ctx context.Context, snapshot *models.ScheduleSnapshot, expectedVersion int) (int, error) {
	if snapshot == nil || snapshot.Scheduler == nil {
		return 0, fmt.Errorf("save schedule: empty snapshot")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lock := s.lock(snapshot.Competition)
	lock.Lock()
	defer lock.Unlock()

	current := 0
	existing, err := s.read(snapshot.Competition)
	switch {
	case err == nil:
		current = existing.Version
	case !errors.Is(err, ErrScheduleNotFound):
		return 0, err
	}
	if err := checkVersion(current, expectedVersion); err != nil {
		return 0, err
	}

	stored := *snapshot
	stored.Version = current + 1
	stored.UpdatedAt = s.now().UTC()
	payload, err := json.Marshal(&stored)
	if err != nil {
		return 0, fmt.Errorf("encode schedule snapshot: %w", err)
	}
	if _, err := s.files.Save(SnapshotFilename(snapshot.Competition), payload); err != nil {
		return 0, fmt.Errorf("write schedule snapshot: %w", err)
	}
	snapshot.Version = stored.Version
	snapshot.UpdatedAt = stored.UpdatedAt
	return stored.Version, nil
}

func (s *FileScheduleStore) read(competition string) (*models.ScheduleSnapshot, error) {
	data, err := s.files.Read(SnapshotFilename(competition))
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("read schedule snapshot: %w", err)
	}
	var snap models.ScheduleSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode schedule snapshot: %w", err)
	}
	if snap.Scheduler == nil {
		return nil, fmt.Errorf("decode schedule snapshot: missing grid")
	}
	return &snap, nil
}

func (s *FileScheduleStore) lock(competition string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := SnapshotFilename(competition)
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}
