package models

import "time"

// Window is a single focus sample. An empty Name means nothing usable has focus.
type Window struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Focused reports whether the sample names an application.
func (w *Window) Focused() bool {
	return w != nil && w.Name != ""
}

// ActivityEntry is one contiguous interval of a single window holding focus.
// Timestamps are Unix milliseconds. End is nil only while the entry is open.
type ActivityEntry struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Start int64  `json:"start"`
	End   *int64 `json:"end"`
}

// NewActivityEntry opens an entry for w starting at start.
func NewActivityEntry(w Window, start int64) *ActivityEntry {
	return &ActivityEntry{
		Name:  w.Name,
		Title: w.Title,
		Start: start,
	}
}

// IsOpen reports whether the entry has not been closed yet.
func (e *ActivityEntry) IsOpen() bool {
	return e.End == nil
}

// Matches reports whether the entry tracks the same window as w.
func (e *ActivityEntry) Matches(w Window) bool {
	return e.Name == w.Name && e.Title == w.Title
}

// Close sets End to now, never earlier than Start.
func (e *ActivityEntry) Close(now int64) {
	if now < e.Start {
		now = e.Start
	}
	end := now
	e.End = &end
}

// Duration returns End-Start in milliseconds, or 0 for an open entry.
func (e ActivityEntry) Duration() int64 {
	if e.End == nil {
		return 0
	}
	return *e.End - e.Start
}

// Valid reports whether a persisted entry is closed and not inverted.
func (e ActivityEntry) Valid() bool {
	return e.End != nil && *e.End >= e.Start
}

// Clone returns a deep copy so callers cannot alias End.
func (e ActivityEntry) Clone() ActivityEntry {
	c := e
	if e.End != nil {
		end := *e.End
		c.End = &end
	}
	return c
}

// CloneEntries deep-copies a slice of entries. A nil input yields an empty slice.
func CloneEntries(entries []ActivityEntry) []ActivityEntry {
	out := make([]ActivityEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

// StartTime converts Start to a time.Time.
func (e ActivityEntry) StartTime() time.Time {
	return time.UnixMilli(e.Start)
}

// Millis converts t to the Unix millisecond representation used on disk.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
