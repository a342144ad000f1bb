package chapters

import (
	"fmt"
	"strings"

	"chapterize/internal/timecode"
)

// DefaultIntroTitle labels the synthetic zero-time entry.
const DefaultIntroTitle = "Intro"

// ZeroTitlePolicy decides the title of the collapsed zero-time entry when the
// input already carries one or more zero-time lines.
type ZeroTitlePolicy string

const (
	// ZeroTitlePreserve keeps the title of the earliest zero-time entry.
	ZeroTitlePreserve ZeroTitlePolicy = "preserve"
	// ZeroTitleIntro always relabels the zero-time entry with the intro title.
	ZeroTitleIntro ZeroTitlePolicy = "intro"
)

// ParseZeroTitlePolicy validates a policy name. Empty selects ZeroTitlePreserve.
func ParseZeroTitlePolicy(value string) (ZeroTitlePolicy, error) {
	switch ZeroTitlePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", ZeroTitlePreserve:
		return ZeroTitlePreserve, nil
	case ZeroTitleIntro:
		return ZeroTitleIntro, nil
	default:
		return "", fmt.Errorf("unknown zero title policy %q (want %q or %q)", value, ZeroTitlePreserve, ZeroTitleIntro)
	}
}

// FormatOptions tunes Format.
type FormatOptions struct {
	ZeroTitle  ZeroTitlePolicy
	IntroTitle string
}

func (o FormatOptions) introTitle() string {
	if title := strings.TrimSpace(o.IntroTitle); title != "" {
		return title
	}
	return DefaultIntroTitle
}

// Format turns raw parser output into a List: exactly one zero-time entry at
// position 0, duplicates by (timecode, title) removed keeping the first, and
// every other entry in its original order. The input slice is not modified.
func Format(entries []Entry, opts FormatOptions) List {
	zeroTitle := ""
	rest := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsZero() {
			if zeroTitle == "" {
				zeroTitle = entry.Title
			}
			continue
		}
		rest = append(rest, entry)
	}
	if zeroTitle == "" || opts.ZeroTitle == ZeroTitleIntro {
		zeroTitle = opts.introTitle()
	}

	out := make(List, 0, len(rest)+1)
	out = append(out, Entry{Timecode: timecode.Zero, StartMS: 0, Title: zeroTitle})
	seen := map[string]struct{}{out[0].key(): {}}
	for _, entry := range rest {
		key := entry.key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, entry)
	}
	return out
}

// Options bundles parser and formatter settings.
type Options struct {
	Parse  ParseOptions
	Format FormatOptions
}

// Prepare parses text and formats the result in one step. Text without a
// single recognised line yields an empty list, not a lone zero-time entry.
func Prepare(text string, opts Options) (List, []Diagnostic) {
	parsed := Parse(text, opts.Parse)
	if len(parsed.Entries) == 0 {
		return nil, parsed.Diagnostics
	}
	return Format(parsed.Entries, opts.Format), parsed.Diagnostics
}

// OutOfOrder returns the 1-based positions of entries whose start precedes
// the entry before them. Format keeps user order, so callers may warn.
func OutOfOrder(list List) []int {
	var positions []int
	for i := 1; i < len(list); i++ {
		if list[i].StartMS < list[i-1].StartMS {
			positions = append(positions, i+1)
		}
	}
	return positions
}
