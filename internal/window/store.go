package window

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

// Config controls retention and readiness of the rolling windows.
type Config struct {
	// Retention is the baseline window length; samples older than
	// now-Retention are evicted on the next Record call.
	Retention time.Duration
	// Warmup is how long a metric must have been observed before
	// statistics are produced. Defaults to Retention (the learning phase
	// lasts until a full baseline window has been populated).
	Warmup time.Duration
	// MinSamples is the minimum series length for meaningful stddev.
	MinSamples int
	// RecentSize is K, the short-window length for RecentMean.
	RecentSize int
}

const (
	defaultRetention  = 24 * time.Hour
	defaultMinSamples = 2
	defaultRecentSize = 10
)

// Store owns all per-metric sample series. Series are created lazily on
// first Record and live for the process lifetime. Distinct metric names
// never contend: the store lock only guards the map, each series has its own.
type Store struct {
	mu     sync.RWMutex
	series map[string]*series
	cfg    Config
	now    func() time.Time
}

type series struct {
	mu sync.Mutex
	// start is the first observation ever made for this metric. It is not
	// subject to eviction and anchors the warmup check.
	start   time.Time
	samples []domain.Sample
}

// SeriesSnapshot is a point-in-time view of one metric's window,
// served by the status endpoint.
type SeriesSnapshot struct {
	Metric      string              `json:"metric"`
	SampleCount int                 `json:"sample_count"`
	Ready       bool                `json:"ready"`
	Oldest      time.Time           `json:"oldest,omitempty"`
	Newest      time.Time           `json:"newest,omitempty"`
	Stats       *domain.WindowStats `json:"stats,omitempty"`
}

// New creates a Store, applying defaults for any zero Config field.
func New(cfg Config) *Store {
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.Warmup <= 0 {
		cfg.Warmup = cfg.Retention
	}
	if cfg.MinSamples < defaultMinSamples {
		cfg.MinSamples = defaultMinSamples
	}
	if cfg.RecentSize <= 0 {
		cfg.RecentSize = defaultRecentSize
	}
	return &Store{
		series: make(map[string]*series),
		cfg:    cfg,
		now:    time.Now,
	}
}

// Record appends a sample to the metric's series and evicts samples that
// fell out of the retention window. Out-of-order timestamps are dropped to
// keep the series strictly time-ordered.
func (s *Store) Record(name string, t time.Time, v float64) {
	sr := s.get(name)
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.start.IsZero() || t.Before(sr.start) {
		sr.start = t
	}
	if n := len(sr.samples); n > 0 && !t.After(sr.samples[n-1].Timestamp) {
		return
	}
	sr.samples = append(sr.samples, domain.Sample{Timestamp: t, Value: v})
	sr.evict(s.now(), s.cfg.Retention)
}

// Backfill seeds a series from historical samples (startup warm-up from a
// range query or a restart snapshot). Samples are sorted, deduplicated by
// timestamp and run through the same eviction as live records. The earliest
// provided sample anchors the warmup clock even if it is itself evicted.
func (s *Store) Backfill(name string, samples []domain.Sample) {
	if len(samples) == 0 {
		return
	}
	sorted := make([]domain.Sample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	sr := s.get(name)
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.start.IsZero() || sorted[0].Timestamp.Before(sr.start) {
		sr.start = sorted[0].Timestamp
	}
	for _, smp := range sorted {
		if n := len(sr.samples); n > 0 && !smp.Timestamp.After(sr.samples[n-1].Timestamp) {
			continue
		}
		sr.samples = append(sr.samples, smp)
	}
	sr.evict(s.now(), s.cfg.Retention)
}

// Statistics computes the baseline statistics for a metric.
// It returns domain.ErrNotReady during the learning phase: fewer than
// MinSamples retained, or the metric has been observed for less than Warmup.
// Mean and StdDev use population standard deviation over the full retained
// window; RecentMean averages the last RecentSize samples.
func (s *Store) Statistics(name string) (domain.WindowStats, error) {
	s.mu.RLock()
	sr, ok := s.series[name]
	s.mu.RUnlock()
	if !ok {
		return domain.WindowStats{}, domain.ErrUnknownMetric
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	if len(sr.samples) < s.cfg.MinSamples {
		return domain.WindowStats{}, domain.ErrNotReady
	}
	if s.now().Sub(sr.start) < s.cfg.Warmup {
		return domain.WindowStats{}, domain.ErrNotReady
	}
	return sr.stats(s.cfg.RecentSize)
}

// Snapshot returns the state of every series, sorted by metric name.
func (s *Store) Snapshot() []SeriesSnapshot {
	s.mu.RLock()
	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	out := make([]SeriesSnapshot, 0, len(names))
	for _, name := range names {
		sr := s.get(name)
		sr.mu.Lock()
		snap := SeriesSnapshot{Metric: name, SampleCount: len(sr.samples)}
		if len(sr.samples) > 0 {
			snap.Oldest = sr.samples[0].Timestamp
			snap.Newest = sr.samples[len(sr.samples)-1].Timestamp
		}
		ready := len(sr.samples) >= s.cfg.MinSamples && s.now().Sub(sr.start) >= s.cfg.Warmup
		if ready {
			if st, err := sr.stats(s.cfg.RecentSize); err == nil {
				snap.Ready = true
				snap.Stats = &st
			}
		}
		sr.mu.Unlock()
		out = append(out, snap)
	}
	return out
}

func (s *Store) get(name string) *series {
	s.mu.RLock()
	sr, ok := s.series[name]
	s.mu.RUnlock()
	if ok {
		return sr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sr, ok = s.series[name]; ok {
		return sr
	}
	sr = &series{}
	s.series[name] = sr
	return sr
}

// evict drops samples older than now-retention. Caller holds sr.mu.
func (sr *series) evict(now time.Time, retention time.Duration) {
	cutoff := now.Add(-retention)
	i := 0
	for i < len(sr.samples) && sr.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		sr.samples = append(sr.samples[:0], sr.samples[i:]...)
	}
}

// stats computes the derived statistics. Caller holds sr.mu.
func (sr *series) stats(recentSize int) (domain.WindowStats, error) {
	values := make(stats.Float64Data, len(sr.samples))
	for i, smp := range sr.samples {
		values[i] = smp.Value
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return domain.WindowStats{}, fmt.Errorf("mean: %w", err)
	}
	stddev, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return domain.WindowStats{}, fmt.Errorf("stddev: %w", err)
	}

	recent := values
	if len(values) > recentSize {
		recent = values[len(values)-recentSize:]
	}
	recentMean, err := stats.Mean(recent)
	if err != nil {
		return domain.WindowStats{}, fmt.Errorf("recent mean: %w", err)
	}

	return domain.WindowStats{
		Mean:        mean,
		StdDev:      stddev,
		RecentMean:  recentMean,
		SampleCount: len(values),
	}, nil
}
