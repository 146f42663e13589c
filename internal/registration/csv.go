// Package registration loads sign-up sheets and the chairman configuration from files for
// offline scheduling runs.
package registration

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
)

var registrantAliases = map[string]string{
	"level":         "skill_level",
	"day":           "day_preference",
	"preferred_day": "day_preference",
	"minutes":       "play_time",
	"song":          "song_1",
	"composer":      "composer_1",
	"teacher":       "teacher_name",
}

var teacherAliases = map[string]string{
	"judging":      "is_judging",
	"volunteer":    "volunteer_preferences",
	"volunteering": "volunteer_preferences",
}

type sheet struct {
	columns map[string]int
	line    int
}

func newSheet(header []string, aliases map[string]string) sheet {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if alias, ok := aliases[key]; ok {
			key = alias
		}
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}
	return sheet{columns: columns}
}

func (s sheet) require(names ...string) error {
	for _, n := range names {
		if _, ok := s.columns[n]; !ok {
			return fmt.Errorf("missing column %q", n)
		}
	}
	return nil
}

func (s sheet) get(record []string, name string) string {
	idx, ok := s.columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func (s sheet) int(record []string, name string) (int, error) {
	raw := s.get(record, name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s %q is not a whole number", s.line, name, raw)
	}
	return v, nil
}

// ReadRegistrants parses a registration sheet with a header row. Rows keep file order,
// which is the form-entry order the scheduler relies on.
func ReadRegistrants(r io.Reader, competition string) ([]models.Registrant, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read registrant header: %w", err)
	}
	sh := newSheet(header, registrantAliases)
	if err := sh.require("first_name", "last_name", "skill_level", "format", "play_time"); err != nil {
		return nil, fmt.Errorf("registrant sheet: %w", err)
	}

	out := make([]models.Registrant, 0)
	for sh.line = 2; ; sh.line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read registrant line %d: %w", sh.line, err)
		}
		if blank(record) {
			continue
		}
		level, err := sh.int(record, "skill_level")
		if err != nil {
			return nil, err
		}
		playTime, err := sh.int(record, "play_time")
		if err != nil {
			return nil, err
		}
		id := sh.get(record, "id")
		if id == "" {
			id = fmt.Sprintf("row-%d", sh.line)
		}
		out = append(out, models.Registrant{
			ID:            id,
			Competition:   competition,
			FirstName:     sh.get(record, "first_name"),
			LastName:      sh.get(record, "last_name"),
			SkillLevel:    level,
			Format:        sh.get(record, "format"),
			DayPreference: sh.get(record, "day_preference"),
			PlayTime:      playTime,
			Song1:         sh.get(record, "song_1"),
			Composer1:     sh.get(record, "composer_1"),
			Song2:         sh.get(record, "song_2"),
			Composer2:     sh.get(record, "composer_2"),
			AltSong:       sh.get(record, "alt_song"),
			AltComposer:   sh.get(record, "alt_composer"),
			ParentEmail:   sh.get(record, "parent_email"),
			TeacherEmail:  sh.get(record, "teacher_email"),
			TeacherName:   sh.get(record, "teacher_name"),
		})
	}
	return out, nil
}

// ReadTeachers parses a teacher sign-up sheet. Volunteer preferences are separated by
// semicolons within their cell.
func ReadTeachers(r io.Reader, competition string) ([]models.Teacher, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read teacher header: %w", err)
	}
	sh := newSheet(header, teacherAliases)
	if err := sh.require("name"); err != nil {
		return nil, fmt.Errorf("teacher sheet: %w", err)
	}

	out := make([]models.Teacher, 0)
	for sh.line = 2; ; sh.line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read teacher line %d: %w", sh.line, err)
		}
		if blank(record) {
			continue
		}
		var prefs []string
		for _, p := range strings.Split(sh.get(record, "volunteer_preferences"), ";") {
			if p = strings.TrimSpace(p); p != "" {
				prefs = append(prefs, p)
			}
		}
		withStudents, _ := strconv.ParseBool(sh.get(record, "schedule_with_students"))
		out = append(out, models.Teacher{
			ID:                   sh.get(record, "id"),
			Competition:          competition,
			Name:                 sh.get(record, "name"),
			Email:                sh.get(record, "email"),
			IsJudging:            sh.get(record, "is_judging"),
			VolunteerPreferences: prefs,
			ScheduleWithStudents: withStudents,
		})
	}
	return out, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
