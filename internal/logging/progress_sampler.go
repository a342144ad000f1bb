package logging

import "strings"

// ProgressSampler decides which tool progress events deserve a log line.
// yt-dlp reports several times a second; the sampler passes the first event
// of each phase and the first event in each new percentage bucket.
type ProgressSampler struct {
	step   float64
	phase  string
	bucket int
}

// NewProgressSampler returns a sampler with buckets step percent wide.
// A non-positive step means 10.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 10
	}
	s := &ProgressSampler{step: step}
	s.Reset()
	return s
}

// ShouldLog reports whether the event should be logged. Negative percent is
// unknown progress; only a phase change logs it. A nil sampler logs all.
func (s *ProgressSampler) ShouldLog(percent float64, phase string) bool {
	if s == nil {
		return true
	}
	changed := false
	if phase = strings.TrimSpace(phase); phase != "" && phase != s.phase {
		s.phase, s.bucket = phase, -1
		changed = true
	}
	if percent < 0 {
		return changed
	}
	if b := int(min(percent, 100) / s.step); b > s.bucket {
		s.bucket = b
		return true
	}
	return changed
}

// Reset forgets the last phase and bucket.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.phase, s.bucket = "", -1
	}
}
