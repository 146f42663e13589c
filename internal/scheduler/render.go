package scheduler

import (
	"fmt"
	"html"
	"strings"
)

// ScheduleString renders the grid as an HTML fragment. Editable output adds the
// data attributes the modify-schedule UI binds to.
func (s *Scheduler) ScheduleString(editable bool) string {
	var b strings.Builder
	b.WriteString(`<div class="festival-schedule">`)
	for _, ds := range s.Days {
		fmt.Fprintf(&b, `<h2>%s</h2>`, html.EscapeString(ds.Day.Label()))
		for bi, block := range ds.Blocks {
			fmt.Fprintf(&b, `<table class="time-block"><caption>%s</caption>`, html.EscapeString(blockCaption(block, bi)))
			for ri, sec := range block.Sections {
				ref := SectionRef{Day: ds.Day, Block: bi, Room: ri}
				writeSection(&b, s.RoomName(ds.Day, ri), ref, sec, editable)
			}
			b.WriteString(`</table>`)
		}
	}
	b.WriteString(`</div>`)
	return b.String()
}

func blockCaption(block *TimeBlock, idx int) string {
	if block.StartTime != "" {
		return block.StartTime
	}
	return fmt.Sprintf("Block %d", idx+1)
}

func writeSection(b *strings.Builder, room string, ref SectionRef, sec *Section, editable bool) {
	b.WriteString(`<tr class="section"`)
	if editable {
		fmt.Fprintf(b, ` data-day="%s" data-block="%d" data-room="%d"`, ref.Day, ref.Block, ref.Room)
	}
	b.WriteString(`>`)
	fmt.Fprintf(b, `<th>%s</th>`, html.EscapeString(room))

	header := sec.Type.Label()
	if sec.SkillLevel > 0 {
		header = fmt.Sprintf("%s, Level %d", header, sec.SkillLevel)
	}
	fmt.Fprintf(b, `<td class="section-info">%s (%d/%d min)`, html.EscapeString(header), sec.CurrentTime, sec.MusicTimeLimit)
	if len(sec.Judges) > 0 {
		fmt.Fprintf(b, `<br>Judges: %s`, html.EscapeString(strings.Join(sec.Judges, ", ")))
	}
	if sec.Proctor != "" {
		fmt.Fprintf(b, `<br>Proctor: %s`, html.EscapeString(sec.Proctor))
	}
	b.WriteString(`</td><td><ol>`)
	for _, student := range sec.Students {
		b.WriteString(`<li`)
		if editable {
			fmt.Fprintf(b, ` data-student="%s"`, html.EscapeString(student.ID))
		}
		fmt.Fprintf(b, `>%s (%d min)`, html.EscapeString(student.FullName()), student.TotalPlayTime)
		for _, song := range student.Songs {
			fmt.Fprintf(b, `<br><em>%s</em>`, html.EscapeString(songLabel(song)))
		}
		if student.Result != nil {
			fmt.Fprintf(b, `<br>Result: %s`, html.EscapeString(student.Result.Rating))
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ol></td></tr>`)
}

func songLabel(song Song) string {
	if song.Composer == "" {
		return song.Name
	}
	return song.Name + " - " + song.Composer
}
