package metrics

import (
	"math"
	"time"
)

// HistogramSettings describes the bucket layout of a histogram: log-spaced
// buckets covering [Min, Max]. Observations outside the range are clamped
// into the edge buckets, so two histograms with the same settings always
// add cleanly.
type HistogramSettings struct {
	// Min is the lower bound of the covered range.
	// Default: 1 millisecond
	Min time.Duration

	// Max is the upper bound of the covered range. A Max not above Min is
	// replaced with 60000 times Min.
	// Default: 1 minute (with the default Min)
	Max time.Duration

	// BucketCount is the number of buckets.
	// Default: 30
	BucketCount int
}

func (s HistogramSettings) withDefaults() HistogramSettings {
	if s.Min <= 0 {
		s.Min = time.Millisecond
	}
	if s.Max <= s.Min {
		s.Max = s.Min * 60000
	}
	if s.BucketCount <= 0 {
		s.BucketCount = 30
	}
	return s
}

// Histogram accumulates int64 observations into log-spaced buckets.
// Values are usually latencies in nanoseconds, but the gauge samplers
// record plain counts through the same type.
//
// Histogram is not safe for concurrent use; the monitors guard it with
// their window mutex.
type Histogram struct {
	settings HistogramSettings
	logMin   float64
	logRange float64

	counts []uint64
	count  uint64
	sum    int64
	min    int64
	max    int64
}

// NewHistogram creates an empty histogram with the given settings.
func NewHistogram(settings HistogramSettings) *Histogram {
	settings = settings.withDefaults()
	return &Histogram{
		settings: settings,
		logMin:   math.Log(float64(settings.Min)),
		logRange: math.Log(float64(settings.Max)) - math.Log(float64(settings.Min)),
		counts:   make([]uint64, settings.BucketCount),
	}
}

// Record adds one observation.
func (h *Histogram) Record(v int64) {
	h.counts[h.bucket(v)]++
	h.count++
	h.sum += v
	if h.count == 1 || v < h.min {
		h.min = v
	}
	if v > h.max {
		h.max = v
	}
}

func (h *Histogram) bucket(v int64) int {
	n := h.settings.BucketCount
	if v <= int64(h.settings.Min) {
		return 0
	}
	if v >= int64(h.settings.Max) {
		return n - 1
	}
	idx := int(float64(n) * (math.Log(float64(v)) - h.logMin) / h.logRange)
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}

// Snapshot returns a copy of the current contents.
func (h *Histogram) Snapshot() HistogramSnapshot {
	counts := make([]uint64, len(h.counts))
	copy(counts, h.counts)
	return HistogramSnapshot{
		Settings: h.settings,
		Counts:   counts,
		Count:    h.count,
		Sum:      h.sum,
		Min:      h.min,
		Max:      h.max,
	}
}

// Reset clears all buckets.
func (h *Histogram) Reset() {
	for i := range h.counts {
		h.counts[i] = 0
	}
	h.count = 0
	h.sum = 0
	h.min = 0
	h.max = 0
}

// HistogramSnapshot is an immutable copy of a histogram window.
// Its zero value is the identity for Add.
type HistogramSnapshot struct {
	Settings HistogramSettings
	Counts   []uint64
	Count    uint64
	Sum      int64
	Min      int64
	Max      int64
}

// Add combines two snapshots bucket-wise. Both snapshots must share the
// same settings; Add panics otherwise. Snapshots produced by one monitor
// always share settings, so a mismatch indicates mixing histograms from
// different monitors.
func (s HistogramSnapshot) Add(other HistogramSnapshot) HistogramSnapshot {
	if s.Counts == nil {
		return other
	}
	if other.Counts == nil {
		return s
	}
	if s.Settings != other.Settings {
		panic("metrics: adding histogram snapshots with different settings")
	}

	counts := make([]uint64, len(s.Counts))
	copy(counts, s.Counts)
	for i, c := range other.Counts {
		counts[i] += c
	}

	out := HistogramSnapshot{
		Settings: s.Settings,
		Counts:   counts,
		Count:    s.Count + other.Count,
		Sum:      s.Sum + other.Sum,
		Min:      s.Min,
		Max:      s.Max,
	}
	switch {
	case s.Count == 0:
		out.Min, out.Max = other.Min, other.Max
	case other.Count > 0:
		if other.Min < out.Min {
			out.Min = other.Min
		}
		if other.Max > out.Max {
			out.Max = other.Max
		}
	}
	return out
}

// Mean returns the average observed value, or zero for an empty window.
func (s HistogramSnapshot) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Count)
}

// Bounds returns the upper bound of each bucket. The last bound is the
// settings' Max; values above it are clamped into the final bucket.
func (s HistogramSnapshot) Bounds() []int64 {
	settings := s.Settings.withDefaults()
	n := settings.BucketCount
	logMin := math.Log(float64(settings.Min))
	logRange := math.Log(float64(settings.Max)) - logMin

	bounds := make([]int64, n)
	for i := 0; i < n-1; i++ {
		bounds[i] = int64(math.Exp(logMin + logRange*float64(i+1)/float64(n)))
	}
	bounds[n-1] = int64(settings.Max)
	return bounds
}
