package scheduler

import "strings"

// CompetitionFormat is the category a student registers under.
type CompetitionFormat string

const (
	FormatUnset              CompetitionFormat = ""
	FormatTraditional        CompetitionFormat = "TRADITIONAL"
	FormatMaster             CompetitionFormat = "MASTER"
	FormatNonCompetitive     CompetitionFormat = "NON_COMPETITIVE"
	FormatCommandPerformance CompetitionFormat = "COMMAND_PERFORMANCE"
)

// ParseCompetitionFormat maps registration form labels onto formats.
func ParseCompetitionFormat(label string) (CompetitionFormat, bool) {
	switch normalizeLabel(label) {
	case "traditional":
		return FormatTraditional, true
	case "master class", "masterclass", "master":
		return FormatMaster, true
	case "non-competitive", "noncompetitive", "non competitive":
		return FormatNonCompetitive, true
	case "command performance", "commandperformance":
		return FormatCommandPerformance, true
	}
	switch CompetitionFormat(strings.ToUpper(strings.TrimSpace(label))) {
	case FormatTraditional, FormatMaster, FormatNonCompetitive, FormatCommandPerformance:
		return CompetitionFormat(strings.ToUpper(strings.TrimSpace(label))), true
	}
	return FormatUnset, false
}

// Label returns the human readable name used on rendered schedules.
func (f CompetitionFormat) Label() string {
	switch f {
	case FormatTraditional:
		return "Traditional"
	case FormatMaster:
		return "Master Class"
	case FormatNonCompetitive:
		return "Non-Competitive"
	case FormatCommandPerformance:
		return "Command Performance"
	default:
		return "Unassigned"
	}
}

// Day is a concrete competition day.
type Day string

const (
	Saturday Day = "SATURDAY"
	Sunday   Day = "SUNDAY"
)

// Label returns the capitalised day name.
func (d Day) Label() string {
	switch d {
	case Saturday:
		return "Saturday"
	case Sunday:
		return "Sunday"
	default:
		return string(d)
	}
}

// ParseDay accepts either the enum value or the form label.
func ParseDay(raw string) (Day, bool) {
	switch normalizeLabel(raw) {
	case "saturday":
		return Saturday, true
	case "sunday":
		return Sunday, true
	}
	return "", false
}

// DayPreference is what the registrant asked for on the form.
type DayPreference string

const (
	PreferSaturday DayPreference = "SATURDAY"
	PreferSunday   DayPreference = "SUNDAY"
	PreferEither   DayPreference = "EITHER"
)

// ParseDayPreference never fails: anything that is not Saturday or Sunday means Either.
func ParseDayPreference(label string) DayPreference {
	switch normalizeLabel(label) {
	case "saturday":
		return PreferSaturday
	case "sunday":
		return PreferSunday
	default:
		return PreferEither
	}
}

// Day returns the concrete day for fixed preferences.
func (p DayPreference) Day() (Day, bool) {
	switch p {
	case PreferSaturday:
		return Saturday, true
	case PreferSunday:
		return Sunday, true
	default:
		return "", false
	}
}

func normalizeLabel(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
