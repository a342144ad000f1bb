// Package timecode parses the free-text timestamps people type next to
// chapter titles.
//
// Accepted tokens are H:MM:SS, MM:SS and either of those with a trailing
// :FF frame group. Every token normalizes to the canonical HH:MM:SS:FF form
// and a millisecond offset; frames are carried in the canonical string but
// never contribute to the offset.
package timecode
