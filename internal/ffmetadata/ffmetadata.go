// Package ffmetadata renders chapter lists in ffmpeg's FFMETADATA1 text format.
package ffmetadata

import (
	"fmt"
	"os"
	"strings"

	"chapterize/internal/chapters"
)

// Header is the mandatory first line of an ffmetadata file.
const Header = ";FFMETADATA1"

// TimeBase is the chapter time base; START and END are milliseconds.
const TimeBase = "1/1000"

// FallbackDurationMS is the length given to the last chapter, and to any
// chapter whose successor starts earlier than it does.
const FallbackDurationMS = 1000

// Block is one [CHAPTER] section.
type Block struct {
	StartMS int64
	EndMS   int64
	Title   string
}

// Blocks computes chapter boundaries in list order. END is the next entry's
// START when that is not earlier than this entry's START, otherwise
// START+FallbackDurationMS.
func Blocks(list chapters.List) []Block {
	blocks := make([]Block, 0, len(list))
	for i, entry := range list {
		start := max(entry.StartMS, 0)
		end := start + FallbackDurationMS
		if i+1 < len(list) {
			if next := list[i+1].StartMS; next >= start {
				end = next
			}
		}
		blocks = append(blocks, Block{StartMS: start, EndMS: end, Title: entry.Title})
	}
	return blocks
}

// Serialize renders the list as an FFMETADATA1 document.
func Serialize(list chapters.List) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, block := range Blocks(list) {
		b.WriteString("\n[CHAPTER]\n")
		b.WriteString("TIMEBASE=" + TimeBase + "\n")
		fmt.Fprintf(&b, "START=%d\n", block.StartMS)
		fmt.Fprintf(&b, "END=%d\n", block.EndMS)
		b.WriteString("title=" + Escape(block.Title) + "\n")
	}
	return b.String()
}

// WriteFile serializes list to path.
func WriteFile(path string, list chapters.List) error {
	if err := os.WriteFile(path, []byte(Serialize(list)), 0o644); err != nil {
		return fmt.Errorf("write ffmetadata: %w", err)
	}
	return nil
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`=`, `\=`,
	`;`, `\;`,
	`#`, `\#`,
	"\n", "\\\n",
)

// Escape backslash-escapes the characters ffmpeg treats as special in
// metadata values. Carriage returns are dropped.
func Escape(value string) string {
	return escaper.Replace(strings.ReplaceAll(value, "\r", ""))
}
