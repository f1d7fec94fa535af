// Package ledger totals the running and paused time of a mentoring session.
//
// A session's time is kept as an ordered list of segments. Closed segments
// carry a persisted whole-second length; at most one segment may be open.
package ledger

import (
	"slices"
	"time"

	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/models"
)

// Sorted returns a copy of segments ordered by start time.
func Sorted(segments []models.TimerSegment) []models.TimerSegment {
	sorted := slices.Clone(segments)
	slices.SortStableFunc(sorted, func(a, b models.TimerSegment) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return sorted
}

// Latest returns the segment with the greatest start time.
func Latest(segments []models.TimerSegment) (models.TimerSegment, bool) {
	if len(segments) == 0 {
		return models.TimerSegment{}, false
	}
	latest := segments[0]
	for _, segment := range segments[1:] {
		if segment.StartTime.After(latest.StartTime) {
			latest = segment
		}
	}
	return latest, true
}

// OpenSegment returns the running segment, if any.
func OpenSegment(segments []models.TimerSegment) (models.TimerSegment, bool) {
	for _, segment := range segments {
		if segment.IsOpen() {
			return segment, true
		}
	}
	return models.TimerSegment{}, false
}

// Open starts a new segment for sessionID at now.
func Open(segments []models.TimerSegment, sessionID int64, now time.Time) (models.TimerSegment, error) {
	if _, ok := OpenSegment(segments); ok {
		return models.TimerSegment{}, apperr.InvalidState("a timer segment is already running")
	}
	if latest, ok := Latest(segments); ok {
		if !now.After(latest.StartTime) {
			return models.TimerSegment{}, apperr.InvalidState("segment must start after the previous segment")
		}
		if latest.EndTime != nil && now.Before(*latest.EndTime) {
			return models.TimerSegment{}, apperr.InvalidState("segment must start after the previous segment ended")
		}
	}
	return models.TimerSegment{
		SessionID: sessionID,
		StartTime: now,
	}, nil
}

// Close ends segment at now and records its whole-second length.
func Close(segment models.TimerSegment, now time.Time) (models.TimerSegment, error) {
	if !segment.IsOpen() {
		return models.TimerSegment{}, apperr.InvalidState("timer segment is already closed")
	}
	end := now
	length := ElapsedSeconds(segment.StartTime, end)
	segment.EndTime = &end
	segment.SessionLength = &length
	return segment, nil
}

// CurrentTotalSeconds is the live total: closed lengths plus the time elapsed
// on the open segment. It is recomputed on every read and never persisted.
func CurrentTotalSeconds(segments []models.TimerSegment, now time.Time) int64 {
	var total int64
	for _, segment := range Sorted(segments) {
		total += segmentSeconds(segment, now)
	}
	return total
}

// FinalTotalSeconds sums closed segment lengths. It fails while a segment is
// still running.
func FinalTotalSeconds(segments []models.TimerSegment) (int64, error) {
	var total int64
	for _, segment := range Sorted(segments) {
		if segment.IsOpen() {
			return 0, apperr.InvalidState("cannot finalize while a timer segment is running")
		}
		total += segmentSeconds(segment, time.Time{})
	}
	return total, nil
}

// ElapsedSeconds truncates toward zero; clock skew never yields negative time.
func ElapsedSeconds(start, end time.Time) int64 {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds < 0 {
		return 0
	}
	return seconds
}

func segmentSeconds(segment models.TimerSegment, now time.Time) int64 {
	if segment.IsOpen() {
		return ElapsedSeconds(segment.StartTime, now)
	}
	if segment.SessionLength != nil {
		return *segment.SessionLength
	}
	return ElapsedSeconds(segment.StartTime, *segment.EndTime)
}
