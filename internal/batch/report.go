package batch

import (
	"encoding/json"
	"path/filepath"
	"time"
)

// State is a controller phase.
type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateStripping State = "stripping"
	StateInjecting State = "injecting"
	StateRecording State = "recording"
	StateReporting State = "reporting"
)

// OutcomeKind classifies a finished item.
type OutcomeKind string

const (
	OutcomeSuccess           OutcomeKind = "success"
	OutcomeSkippedNoChapters OutcomeKind = "skipped_no_chapters"
	OutcomeFailed            OutcomeKind = "failed"
)

// ReasonLimit caps the failure reason shown in reports, in runes.
const ReasonLimit = 100

// Outcome is the final result of one video.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

// String renders the outcome the way the report table shows it.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "Success"
	case OutcomeSkippedNoChapters:
		return "SkippedNoChapters"
	case OutcomeFailed:
		return "Failed: " + o.Reason
	default:
		return string(o.Kind)
	}
}

// Item is one video's entry in a report.
type Item struct {
	VideoPath     string   `json:"video_path"`
	CompanionPath string   `json:"companion_path,omitempty"`
	OutputPath    string   `json:"output_path,omitempty"`
	Chapters      int      `json:"chapters"`
	Outcome       Outcome  `json:"outcome"`
	ErrorKind     string   `json:"error_kind,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// FileName is the video's base name.
func (i Item) FileName() string { return filepath.Base(i.VideoPath) }

// Report lists every video of a run in processing order.
type Report struct {
	RunID      string    `json:"run_id"`
	Folder     string    `json:"folder"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Items      []Item    `json:"items"`
}

// Counts tallies outcomes.
type Counts struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Counts tallies the report's outcomes.
func (r Report) Counts() Counts {
	c := Counts{Total: len(r.Items)}
	for _, item := range r.Items {
		switch item.Outcome.Kind {
		case OutcomeSuccess:
			c.Succeeded++
		case OutcomeSkippedNoChapters:
			c.Skipped++
		case OutcomeFailed:
			c.Failed++
		}
	}
	return c
}

// Lines returns the ordered (filename, outcome) pairs.
func (r Report) Lines() [][2]string {
	lines := make([][2]string, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, [2]string{item.FileName(), item.Outcome.String()})
	}
	return lines
}

// MarshalJSON adds the counts next to the items.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		Counts Counts `json:"counts"`
	}{plain(r), r.Counts()})
}

// Observer receives progress from a running controller. Calls are made from
// the goroutine running Controller.Run.
type Observer interface {
	// StateChanged reports a phase change. index is the 0-based position of
	// the current video, or -1 outside the per-video phases.
	StateChanged(state State, index, total int, file string)
	// ItemFinished reports a video's final outcome.
	ItemFinished(index, total int, item Item)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State, int, int, string) {}
func (nopObserver) ItemFinished(int, int, Item)          {}
