// Package pagination computes page bounds and orders events by their
// scheduled date.
package pagination

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-api/internal/model"
)

const (
	// ScheduleLayout is the fixed schedule format, e.g. "12 Jan, 2025 14:30".
	// The day may have one or two digits, as $dateFromString's %d allows.
	ScheduleLayout = "2 Jan, 2006 15:04"

	// MongoScheduleFormat is ScheduleLayout in $dateFromString notation.
	MongoScheduleFormat = "%d %b, %Y %H:%M"

	DefaultLimit int64 = 5
	DefaultPage  int64 = 1
)

// ErrPageOutOfRange is returned when the requested page is past the last page.
var ErrPageOutOfRange = errors.New("page out of range")

// Bounds describes one page of a collection of Total records.
type Bounds struct {
	Total      int64
	Limit      int64
	Page       int64
	TotalPages int64
}

// Skip is the number of sorted records that precede this page.
func (b Bounds) Skip() int64 {
	return (b.Page - 1) * b.Limit
}

// Compute returns the bounds for page (1-indexed) of size limit over total
// records. limit and page must be >= 1; neither is clamped above.
func Compute(total, limit, page int64) (Bounds, error) {
	b := Bounds{Total: total, Limit: limit, Page: page}
	b.TotalPages = total / limit
	if total%limit != 0 {
		b.TotalPages++
	}
	if page > b.TotalPages {
		return b, ErrPageOutOfRange
	}
	return b, nil
}

// NormalizeSchedule is the form a schedule is stored in.
func NormalizeSchedule(schedule string) string {
	return strings.TrimSpace(schedule)
}

// ParseSchedule parses a schedule string under ScheduleLayout, in UTC.
// Surrounding whitespace is ignored.
func ParseSchedule(schedule string) (time.Time, error) {
	return time.Parse(ScheduleLayout, NormalizeSchedule(schedule))
}

// SortKey is the comparable key derived from an event's schedule.
// Unparseable schedules are marked invalid and sort after every valid key.
type SortKey struct {
	At    time.Time
	Valid bool
}

// KeyOf extracts the sort key of e.
func KeyOf(e model.Event) SortKey {
	at, err := ParseSchedule(e.Schedule)
	if err != nil {
		return SortKey{}
	}
	return SortKey{At: at, Valid: true}
}

// Less orders valid keys chronologically, ahead of invalid ones.
func (k SortKey) Less(other SortKey) bool {
	if k.Valid != other.Valid {
		return k.Valid
	}
	return k.Valid && k.At.Before(other.At)
}

// SortBySchedule sorts events ascending by schedule in place. Equal keys keep
// their relative order, so callers pass events in insertion order.
func SortBySchedule(events []model.Event) {
	keys := make([]SortKey, len(events))
	for i := range events {
		keys[i] = KeyOf(events[i])
	}
	sort.Stable(byKey{events: events, keys: keys})
}

type byKey struct {
	events []model.Event
	keys   []SortKey
}

func (s byKey) Len() int           { return len(s.events) }
func (s byKey) Less(i, j int) bool { return s.keys[i].Less(s.keys[j]) }
func (s byKey) Swap(i, j int) {
	s.events[i], s.events[j] = s.events[j], s.events[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}

// Window returns events[skip : skip+take], clipped to the slice length.
func Window(events []model.Event, skip, take int64) []model.Event {
	n := int64(len(events))
	if skip >= n || take <= 0 {
		return []model.Event{}
	}
	end := n
	if take < n-skip {
		end = skip + take
	}
	return events[skip:end]
}

// Project strips fields that are not part of the public listing view.
func Project(events []model.Event) []model.Event {
	for i := range events {
		events[i].Type = ""
	}
	return events
}
