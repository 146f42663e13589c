package scheduler

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStudent(id string, level int, format CompetitionFormat, minutes int) *Student {
	return NewStudent(id, "First-"+id, "Last-"+id, level, format, PreferSaturday, minutes)
}

func TestMusicTimeLimit(t *testing.T) {
	assert.Equal(t, 36, MusicTimeLimit(45))
	assert.Equal(t, 24, MusicTimeLimit(30))
	assert.Equal(t, 41, MusicTimeLimit(51))
}

func TestSectionAddStudentFixesTypeAndLevel(t *testing.T) {
	sec := NewSection(45, true)
	require.True(t, sec.IsEmpty())

	require.True(t, sec.AddStudent(newTestStudent("a", 3, FormatTraditional, 10)))
	assert.Equal(t, FormatTraditional, sec.Type)
	assert.Equal(t, 3, sec.SkillLevel)
	assert.Equal(t, 10, sec.CurrentTime)
	assert.False(t, sec.IsEmpty())

	assert.False(t, sec.AddStudent(newTestStudent("b", 4, FormatTraditional, 5)), "level mismatch")
	assert.False(t, sec.AddStudent(newTestStudent("c", 3, FormatNonCompetitive, 5)), "format mismatch")
	assert.True(t, sec.AddStudent(newTestStudent("d", 3, FormatTraditional, 26)))
	assert.Equal(t, 36, sec.CurrentTime)
	assert.False(t, sec.AddStudent(newTestStudent("e", 3, FormatTraditional, 1)), "over music limit")
	assert.Len(t, sec.Students, 2)
}

func TestSectionWithoutLevelGroupingMixesLevels(t *testing.T) {
	sec := NewSection(45, false)
	require.True(t, sec.AddStudent(newTestStudent("a", 3, FormatTraditional, 10)))
	require.True(t, sec.AddStudent(newTestStudent("b", 7, FormatTraditional, 10)))
	assert.Equal(t, 0, sec.SkillLevel)
}

func TestSectionRejectionDoesNotMutate(t *testing.T) {
	sec := NewSection(45, true)
	require.False(t, sec.AddStudent(newTestStudent("big", 1, FormatTraditional, 40)))
	assert.True(t, sec.IsEmpty())
	assert.Equal(t, FormatUnset, sec.Type)
	assert.Equal(t, 0, sec.SkillLevel)
}

func TestSectionAssignToMaster(t *testing.T) {
	sec := NewSection(45, true)
	require.True(t, sec.AssignToMaster())
	assert.Equal(t, FormatMaster, sec.Type)
	assert.False(t, sec.AssignToMaster(), "already typed")

	assert.False(t, sec.AddStudent(newTestStudent("t", 2, FormatTraditional, 5)), "reserved for masterclass")
	assert.True(t, sec.AddStudent(newTestStudent("m", 2, FormatMaster, 5)))

	used := NewSection(45, true)
	require.True(t, used.AddStudent(newTestStudent("x", 1, FormatTraditional, 5)))
	assert.False(t, used.AssignToMaster())
}

func TestSectionRemoveStudent(t *testing.T) {
	sec := NewSection(45, true)
	require.True(t, sec.AddStudent(newTestStudent("a", 3, FormatTraditional, 10)))
	require.True(t, sec.AddStudent(newTestStudent("b", 3, FormatTraditional, 12)))

	removed, ok := sec.RemoveStudent("a")
	require.True(t, ok)
	assert.Equal(t, "a", removed.ID)
	assert.Equal(t, 12, sec.CurrentTime)
	assert.Equal(t, FormatTraditional, sec.Type)

	_, ok = sec.RemoveStudent("missing")
	assert.False(t, ok)
}

func TestSectionKeepsLevelAfterEmptied(t *testing.T) {
	sec := NewSection(45, true)
	require.True(t, sec.AddStudent(newTestStudent("a", 3, FormatTraditional, 10)))
	_, ok := sec.RemoveStudent("a")
	require.True(t, ok)
	require.True(t, sec.IsEmpty())

	assert.False(t, sec.AddStudent(newTestStudent("b", 5, FormatTraditional, 10)))
	assert.Equal(t, 3, sec.SkillLevel)
	assert.True(t, sec.AddStudent(newTestStudent("c", 3, FormatTraditional, 10)))

	mixed := NewSection(45, false)
	require.True(t, mixed.AddStudent(newTestStudent("a", 3, FormatTraditional, 10)))
	mixed.RemoveStudent("a")
	assert.True(t, mixed.AddStudent(newTestStudent("b", 5, FormatTraditional, 10)))
	assert.Zero(t, mixed.SkillLevel)
}

func TestSectionCapacityInvariantRandomized(t *testing.T) {
	formats := []CompetitionFormat{FormatTraditional, FormatNonCompetitive, FormatCommandPerformance}
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		limit := 20 + rng.Intn(60)
		grouping := rng.Intn(2) == 0
		sec := NewSection(limit, grouping)
		for i := 0; i < 25; i++ {
			student := newTestStudent(fmt.Sprintf("%d-%d", run, i), 1+rng.Intn(MaxSkillLevel), formats[rng.Intn(len(formats))], rng.Intn(15))
			sec.AddStudent(student)

			sum := 0
			for _, admitted := range sec.Students {
				sum += admitted.TotalPlayTime
				assert.Equal(t, sec.Type, admitted.Format)
				if grouping {
					assert.Equal(t, sec.SkillLevel, admitted.SkillLevel)
				}
			}
			require.LessOrEqual(t, sum, MusicTimeLimit(limit))
			require.Equal(t, sum, sec.CurrentTime)
		}
	}
}

func TestStudentAddSongUpdatesPlayTime(t *testing.T) {
	student := NewStudent("s", "Ada", "Lovelace", 5, FormatTraditional, PreferEither, 0)
	student.AddSong(Song{Name: "Minuet in G", Composer: "Bach", Duration: 3})
	student.AddSong(Song{Name: "Arabesque", Composer: "Burgmuller", Duration: 2})
	assert.Equal(t, 5, student.TotalPlayTime)
	assert.Len(t, student.Songs, 2)
	assert.Equal(t, "Ada Lovelace", student.FullName())

	_, ok := student.ScheduledDay()
	assert.False(t, ok)
	student.ResolveDay(Sunday)
	day, ok := student.ScheduledDay()
	require.True(t, ok)
	assert.Equal(t, Sunday, day)
}

func TestParseLabels(t *testing.T) {
	f, ok := ParseCompetitionFormat("Master Class")
	require.True(t, ok)
	assert.Equal(t, FormatMaster, f)
	f, ok = ParseCompetitionFormat("Non-Competitive")
	require.True(t, ok)
	assert.Equal(t, FormatNonCompetitive, f)
	_, ok = ParseCompetitionFormat("Jazz")
	assert.False(t, ok)

	assert.Equal(t, PreferSaturday, ParseDayPreference("Saturday"))
	assert.Equal(t, PreferSunday, ParseDayPreference(" sunday "))
	assert.Equal(t, PreferEither, ParseDayPreference("Either day works"))
}
