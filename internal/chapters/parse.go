package chapters

import (
	"fmt"
	"regexp"
	"strings"

	"chapterize/internal/textutil"
	"chapterize/internal/timecode"
)

// Layout selects how lines are matched against the two chapter layouts.
type Layout string

const (
	// LayoutPerLine tries "timecode title" then "title timecode" on every line.
	LayoutPerLine Layout = "per_line"
	// LayoutDominant picks whichever layout matches more lines and applies it
	// to the whole block. Lines in the other layout are dropped.
	LayoutDominant Layout = "dominant"
)

// ParseLayout validates a layout name. Empty selects LayoutPerLine.
func ParseLayout(value string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(value))) {
	case "", LayoutPerLine:
		return LayoutPerLine, nil
	case LayoutDominant:
		return LayoutDominant, nil
	default:
		return "", fmt.Errorf("unknown chapter layout %q (want %q or %q)", value, LayoutPerLine, LayoutDominant)
	}
}

// ParseOptions tunes Parse.
type ParseOptions struct {
	Layout Layout
}

// Diagnostic identifies a line that produced no chapter.
type Diagnostic struct {
	Line   int // 1-based line number in the input block
	Text   string
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %q", d.Line, d.Reason, d.Text)
}

// ParseResult carries parsed entries in input order plus per-line diagnostics.
type ParseResult struct {
	Entries     []Entry
	Diagnostics []Diagnostic
}

const (
	separatorRunes = `\s\-:|\x{2013}\x{2014}`
	separatorClass = `[` + separatorRunes + `]`
)

// A leading-layout title either follows separators or starts right after the
// timecode. The unseparated form must not start with a digit, so "1:305" can
// never be read as 1:30 plus a title.
var (
	leadingPattern  = regexp.MustCompile(`^` + timecode.Pattern + `(?:` + separatorClass + `+(.*)|([^\d` + separatorRunes + `].*))?$`)
	trailingPattern = regexp.MustCompile(`^(.*?)` + separatorClass + `*` + timecode.Pattern + `$`)
)

type lineMatch struct {
	tc    timecode.Timecode
	title string
	ok    bool
}

func matchLeading(line string) lineMatch {
	m := leadingPattern.FindStringSubmatch(line)
	if m == nil {
		return lineMatch{}
	}
	return lineMatch{
		tc:    timecode.FromGroups(m[1], m[2], m[3], m[4]),
		title: textutil.CleanTitle(m[5] + m[6]),
		ok:    true,
	}
}

func matchTrailing(line string) lineMatch {
	m := trailingPattern.FindStringSubmatch(line)
	if m == nil {
		return lineMatch{}
	}
	return lineMatch{
		tc:    timecode.FromGroups(m[2], m[3], m[4], m[5]),
		title: textutil.CleanTitle(m[1]),
		ok:    true,
	}
}

// Parse extracts chapter entries from a block of free text, one candidate per
// non-blank line. Output keeps input order and is neither deduplicated nor
// guaranteed to start at zero; see Format.
func Parse(text string, opts ParseOptions) ParseResult {
	layout := opts.Layout
	if layout == "" {
		layout = LayoutPerLine
	}

	type candidate struct {
		number int
		text   string
	}
	var lines []candidate
	for i, raw := range strings.Split(normalizeNewlines(text), "\n") {
		trimmed := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if trimmed == "" {
			continue
		}
		lines = append(lines, candidate{number: i + 1, text: trimmed})
	}

	matchers := []func(string) lineMatch{matchLeading, matchTrailing}
	reason := "no timecode at line start or end"
	if layout == LayoutDominant {
		leading, trailing := 0, 0
		for _, line := range lines {
			if matchLeading(line.text).ok {
				leading++
			}
			if matchTrailing(line.text).ok {
				trailing++
			}
		}
		if trailing > leading {
			matchers = []func(string) lineMatch{matchTrailing}
			reason = "does not match dominant title-then-timecode layout"
		} else {
			matchers = []func(string) lineMatch{matchLeading}
			reason = "does not match dominant timecode-then-title layout"
		}
	}

	var result ParseResult
	for _, line := range lines {
		var found lineMatch
		for _, match := range matchers {
			m := match(line.text)
			if !m.ok {
				continue
			}
			if !found.ok {
				found = m
			}
			if m.title != "" {
				found = m
				break
			}
		}
		if !found.ok {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Line:   line.number,
				Text:   line.text,
				Reason: reason,
			})
			continue
		}
		title := found.title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", len(result.Entries)+1)
		}
		result.Entries = append(result.Entries, NewEntry(found.tc, title))
	}
	return result
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
