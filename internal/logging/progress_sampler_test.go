package logging

import "testing"

func TestProgressSamplerDefaults(t *testing.T) {
	for _, size := range []float64{0, -5} {
		if s := NewProgressSampler(size); s.step != 10 {
			t.Fatalf("NewProgressSampler(%v).step = %v", size, s.step)
		}
	}
	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog(50, "download") {
		t.Fatal("nil sampler should always log")
	}
	nilSampler.Reset()
}

func TestProgressSamplerSequence(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		phase   string
		want    bool
	}{
		{0, "download", true},
		{4.2, "download", false},
		{10, "download", true},
		{19.9, " download ", false},
		{-1, "download", false},
		{35, "download", true},
		{0, "merge", true},
		{5, "merge", false},
		{100, "merge", true},
		{120, "merge", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.phase); got != step.want {
			t.Fatalf("step %d (%v%% %q): ShouldLog = %v, want %v", i, step.percent, step.phase, got, step.want)
		}
	}

	s.Reset()
	if !s.ShouldLog(100, "merge") {
		t.Fatal("expected log after reset")
	}
}
