package acquire

import (
	"strings"

	"github.com/WessleyAI/rizz-engine/engine/domain"
)

// AssignSpeakers labels every segment with the first turn that fully
// contains it, or domain.UnknownSpeaker. Segment text is trimmed.
func AssignSpeakers(segments []domain.Segment, turns []domain.SpeakerTurn) []domain.TranscriptLine {
	lines := make([]domain.TranscriptLine, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, domain.TranscriptLine{
			Start:   seg.Start,
			End:     seg.End,
			Speaker: speakerFor(seg, turns),
			Text:    strings.TrimSpace(seg.Text),
		})
	}
	return lines
}

func speakerFor(seg domain.Segment, turns []domain.SpeakerTurn) string {
	for _, t := range turns {
		if t.Start <= seg.Start && seg.End <= t.End {
			return t.Speaker
		}
	}
	return domain.UnknownSpeaker
}

// RenderTranscript formats lines one per row with no trailing newline.
func RenderTranscript(lines []domain.TranscriptLine) string {
	rows := make([]string, len(lines))
	for i, l := range lines {
		rows[i] = l.String()
	}
	return strings.Join(rows, "\n")
}
