package chapters

import (
	"strings"

	"chapterize/internal/timecode"
)

// Entry is one named position on a video's timeline.
type Entry struct {
	Timecode string // canonical HH:MM:SS:FF
	StartMS  int64
	Title    string
}

// NewEntry builds an entry from a parsed timecode.
func NewEntry(tc timecode.Timecode, title string) Entry {
	return Entry{
		Timecode: tc.Canonical(),
		StartMS:  tc.Milliseconds(),
		Title:    title,
	}
}

// IsZero reports whether the entry marks time zero.
func (e Entry) IsZero() bool {
	return timecode.IsZeroCanonical(e.Timecode)
}

// Line renders the canonical "<timecode> <title>" companion layout.
func (e Entry) Line() string {
	return e.Timecode + " " + e.Title
}

func (e Entry) key() string {
	return e.Timecode + "\x00" + e.Title
}

// List is an ordered chapter list. After Format it starts with the zero-time
// entry and carries no duplicate (timecode, title) pairs.
type List []Entry

// Clone returns an independent copy of the list.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Text renders the list in canonical companion layout, one newline-terminated
// line per entry.
func (l List) Text() string {
	var b strings.Builder
	for _, entry := range l {
		b.WriteString(entry.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// LastStartMS returns the largest start offset in the list.
func (l List) LastStartMS() int64 {
	var last int64
	for _, entry := range l {
		if entry.StartMS > last {
			last = entry.StartMS
		}
	}
	return last
}
