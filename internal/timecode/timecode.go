package timecode

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoMatch reports that a token does not satisfy the timecode grammar.
var ErrNoMatch = errors.New("timecode: no match")

// Pattern is the unanchored timecode grammar: optional hour group, required
// minute group, two-digit seconds, optional frame group. The chapter parser
// embeds it inside its own line layouts.
const Pattern = `(?:(\d{1,2}):)?(\d{1,2}):(\d{2})(?::(\d{2}))?`

// ZeroPrefix is the canonical prefix shared by every zero-time timecode.
const ZeroPrefix = "00:00:00"

// Zero is the canonical zero-time timecode.
const Zero = ZeroPrefix + ":00"

var tokenPattern = regexp.MustCompile(`^` + Pattern + `$`)

// Timecode is a parsed H:MM:SS[:FF] position.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

// Parse normalizes a free-text token. Surrounding whitespace is ignored.
func Parse(token string) (Timecode, error) {
	match := tokenPattern.FindStringSubmatch(strings.TrimSpace(token))
	if match == nil {
		return Timecode{}, fmt.Errorf("%w: %q", ErrNoMatch, token)
	}
	return FromGroups(match[1], match[2], match[3], match[4]), nil
}

// FromGroups builds a Timecode from the four capture groups of Pattern.
// Empty hour and frame groups default to zero.
func FromGroups(hours, minutes, seconds, frames string) Timecode {
	return Timecode{
		Hours:   atoi(hours),
		Minutes: atoi(minutes),
		Seconds: atoi(seconds),
		Frames:  atoi(frames),
	}
}

// Canonical renders the HH:MM:SS:FF form.
func (t Timecode) Canonical() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds, t.Frames)
}

func (t Timecode) String() string {
	return t.Canonical()
}

// Milliseconds returns the offset in milliseconds. Frames do not contribute.
func (t Timecode) Milliseconds() int64 {
	return (int64(t.Hours)*3600 + int64(t.Minutes)*60 + int64(t.Seconds)) * 1000
}

// Duration returns the offset as a time.Duration.
func (t Timecode) Duration() time.Duration {
	return time.Duration(t.Milliseconds()) * time.Millisecond
}

// IsZero reports whether the canonical form starts with the zero-time prefix.
func (t Timecode) IsZero() bool {
	return IsZeroCanonical(t.Canonical())
}

// IsZeroCanonical reports whether a canonical timecode string marks time zero.
func IsZeroCanonical(canonical string) bool {
	return strings.HasPrefix(canonical, ZeroPrefix)
}

// FromMilliseconds builds a frame-less Timecode from a millisecond offset.
// Sub-second remainders are dropped.
func FromMilliseconds(ms int64) Timecode {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return Timecode{
		Hours:   int(total / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}
}

func atoi(value string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
