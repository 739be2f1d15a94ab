package logging

import "testing"

func TestNewProgressSamplerDefaultsBucket(t *testing.T) {
	for _, size := range []float64{0, -3} {
		s := NewProgressSampler(size)
		if s.bucketSize != 5 {
			t.Fatalf("bucketSize for %v = %v, want 5", size, s.bucketSize)
		}
		if s.lastBucket != -1 {
			t.Fatalf("lastBucket = %d, want -1", s.lastBucket)
		}
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "encode") {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		stage   string
		want    bool
	}{
		{0, "encode", true},
		{3, "encode", false},
		{5, "encode", true},
		{7, "encode", false},
		{10, "encode", true},
		{100, "encode", true},
		{105, "encode", false},
		{0, " write ", true},
		{2, "write", false},
		{10, "write", true},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.stage); got != step.want {
			t.Fatalf("step %d (%v%% %q): got %v want %v", i, step.percent, step.stage, got, step.want)
		}
	}
	if s.lastStage != "write" {
		t.Fatalf("lastStage = %q, want trimmed stage", s.lastStage)
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(-1, "read") {
		t.Fatal("first call should log on stage change")
	}
	if s.ShouldLog(-1, "read") {
		t.Fatal("unknown percent should not log again")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(25)
	s.ShouldLog(50, "encode")
	s.Reset()
	if s.lastStage != "" || s.lastBucket != -1 {
		t.Fatalf("unexpected state after reset: %+v", s)
	}
	if !s.ShouldLog(50, "encode") {
		t.Fatal("should log after reset")
	}
}
