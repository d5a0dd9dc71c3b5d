package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "downloading") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_StatusChange(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(-1, "preparing") {
		t.Error("first status should log")
	}
	if s.ShouldLog(-1, "preparing") {
		t.Error("same status without percent should not log again")
	}
	if !s.ShouldLog(-1, " downloading ") {
		t.Error("status change should log")
	}
	if s.lastStatus != "downloading" {
		t.Errorf("lastStatus = %q, want trimmed value", s.lastStatus)
	}
}

func TestProgressSampler_PercentBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, "downloading") {
		t.Error("0% should log")
	}
	if s.ShouldLog(7, "downloading") {
		t.Error("7% should not log (same bucket)")
	}
	if !s.ShouldLog(10, "downloading") {
		t.Error("10% should log (new bucket)")
	}
	if !s.ShouldLog(100, "downloading") {
		t.Error("100% should log")
	}
	if s.ShouldLog(104, "downloading") {
		t.Error("values above 100% share the 100% bucket")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "downloading")

	s.Reset()

	if s.lastStatus != "" || s.lastBucket != -1 {
		t.Fatalf("unexpected state after reset: %q %d", s.lastStatus, s.lastBucket)
	}
	if !s.ShouldLog(50, "downloading") {
		t.Error("should log after reset")
	}
}
