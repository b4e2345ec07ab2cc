package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kubo-market/minio-sentinel/internal/config"
	"github.com/kubo-market/minio-sentinel/internal/cooldown"
	"github.com/kubo-market/minio-sentinel/internal/detector"
	"github.com/kubo-market/minio-sentinel/internal/domain"
	"github.com/kubo-market/minio-sentinel/internal/storage"
	"github.com/kubo-market/minio-sentinel/internal/window"
)

// Fetcher pulls metric values from the metrics source.
type Fetcher interface {
	Instant(ctx context.Context, query string) (domain.Sample, error)
	Range(ctx context.Context, query string, window, step time.Duration) ([]domain.Sample, error)
}

// Dispatcher delivers alerts to the alert sink.
type Dispatcher interface {
	Send(ctx context.Context, a domain.Alert) error
}

// Enricher generates a short explanation for an anomaly.
type Enricher interface {
	Generate(ctx context.Context, metric string, current, expected, pctChange float64) (string, error)
}

// Journal records samples for restart tolerance.
type Journal interface {
	Append(ctx context.Context, metric string, smp domain.Sample) error
	Load(ctx context.Context, metric string) ([]domain.Sample, error)
}

// Monitor drives the periodic detection loop: fetch, record, classify,
// gate, dispatch. All collaborators are injected; enricher, repo and
// journal may be nil, which disables them.
type Monitor struct {
	cfg      config.Config
	fetcher  Fetcher
	windows  *window.Store
	gate     *cooldown.Gate
	notifier Dispatcher
	enricher Enricher
	repo     storage.AlertRepository
	journal  Journal
	log      zerolog.Logger

	now func() time.Time
}

// New creates a Monitor. The window store and cooldown gate are owned by
// the monitor for the process lifetime.
func New(cfg config.Config, fetcher Fetcher, windows *window.Store, gate *cooldown.Gate,
	notifier Dispatcher, enricher Enricher, repo storage.AlertRepository, journal Journal,
	log zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		fetcher:  fetcher,
		windows:  windows,
		gate:     gate,
		notifier: notifier,
		enricher: enricher,
		repo:     repo,
		journal:  journal,
		log:      log,
		now:      time.Now,
	}
}

// Warmup rebuilds the rolling windows before the first tick: first from the
// restart journal, then from the source's range API, which can backfill the
// full baseline window and skip the learning phase entirely. Both steps are
// best-effort.
func (m *Monitor) Warmup(ctx context.Context) {
	for _, spec := range m.cfg.Metrics {
		if m.journal != nil {
			samples, err := m.journal.Load(ctx, spec.Name)
			if err != nil {
				m.log.Warn().Err(err).Str("metric", spec.Name).Msg("journal restore failed")
			} else if len(samples) > 0 {
				m.windows.Backfill(spec.Name, samples)
				m.log.Info().Str("metric", spec.Name).Int("samples", len(samples)).Msg("restored window from journal")
			}
		}

		samples, err := m.fetcher.Range(ctx, spec.Query, m.cfg.BaselineWindow(), m.cfg.CheckInterval())
		if err != nil {
			if !errors.Is(err, domain.ErrNoData) {
				m.log.Warn().Err(err).Str("metric", spec.Name).Msg("baseline backfill failed")
			}
			continue
		}
		m.windows.Backfill(spec.Name, samples)
		m.log.Info().Str("metric", spec.Name).Int("samples", len(samples)).Msg("backfilled baseline from range query")
	}
}

// Run executes the detection loop until the context is cancelled. The
// in-flight tick always finishes; cancellation only stops scheduling.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info().
		Dur("interval", m.cfg.CheckInterval()).
		Int("metrics", len(m.cfg.Metrics)).
		Msg("starting monitoring loop")

	ticker := time.NewTicker(m.cfg.CheckInterval())
	defer ticker.Stop()

	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("monitoring loop stopped")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick evaluates every configured metric once. A single metric's failure
// never aborts the rest of the tick.
func (m *Monitor) Tick(ctx context.Context) {
	for _, spec := range m.cfg.Metrics {
		if err := m.check(ctx, spec); err != nil {
			m.log.Error().Err(err).Str("metric", spec.Name).Msg("check failed")
		}
	}
}

func (m *Monitor) check(ctx context.Context, spec config.MetricSpec) error {
	sample, err := m.fetcher.Instant(ctx, spec.Query)
	if err != nil {
		fetchErrorsTotal.WithLabelValues(spec.Name).Inc()
		return err
	}

	m.windows.Record(spec.Name, sample.Timestamp, sample.Value)
	if m.journal != nil {
		if err := m.journal.Append(ctx, spec.Name, sample); err != nil {
			m.log.Warn().Err(err).Str("metric", spec.Name).Msg("journal append failed")
		}
	}

	st, err := m.windows.Statistics(spec.Name)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			m.log.Debug().Str("metric", spec.Name).Msg("baseline still building, skipping detection")
			return nil
		}
		return err
	}
	baselineMean.WithLabelValues(spec.Name).Set(st.Mean)
	baselineStdDev.WithLabelValues(spec.Name).Set(st.StdDev)

	policy := detector.Policy{
		ZScoreThreshold:     spec.ZScoreThreshold,
		RateChangeThreshold: m.cfg.RateThresholdFor(spec),
		Direction:           spec.Direction,
	}
	verdict := detector.Classify(sample.Value, st, policy)
	checksTotal.WithLabelValues(spec.Name).Inc()
	if !verdict.IsAnomaly {
		return nil
	}
	anomaliesTotal.WithLabelValues(spec.Name, string(verdict.Rule)).Inc()

	now := m.now()
	if !m.gate.TryAcquire(spec.Name, now, m.cfg.AlertCooldown()) {
		alertsSuppressedTotal.WithLabelValues(spec.Name).Inc()
		m.log.Debug().
			Str("metric", spec.Name).
			Dur("remaining", m.gate.Remaining(spec.Name, now, m.cfg.AlertCooldown())).
			Msg("anomaly suppressed by cooldown")
		return nil
	}

	severity := detector.SeverityOf(verdict, policy)
	alert := domain.Alert{
		Metric:         spec.Name,
		DisplayName:    spec.DisplayName,
		Value:          sample.Value,
		Mean:           st.Mean,
		LowerBound:     st.Mean - spec.ZScoreThreshold*st.StdDev,
		UpperBound:     st.Mean + spec.ZScoreThreshold*st.StdDev,
		ZScore:         verdict.ZScore,
		PercentChange:  verdict.PercentChange,
		Rule:           verdict.Rule,
		Severity:       severity,
		FiredAt:        now,
		Unit:           spec.Unit,
		DisplayDivisor: spec.DisplayDivisor,
	}
	alert.Insight = m.enrich(ctx, alert)

	m.log.Warn().
		Str("metric", spec.Name).
		Str("rule", string(verdict.Rule)).
		Str("severity", string(severity)).
		Float64("value", sample.Value).
		Float64("mean", st.Mean).
		Float64("zscore", verdict.ZScore).
		Float64("percent_change", verdict.PercentChange).
		Msg("anomaly detected")

	if err := m.notifier.Send(ctx, alert); err != nil {
		dispatchErrorsTotal.WithLabelValues(spec.Name).Inc()
		m.log.Error().Err(err).Str("metric", spec.Name).Msg("alert dispatch failed")
	} else {
		alertsSentTotal.WithLabelValues(spec.Name, string(severity)).Inc()
	}

	if m.repo != nil {
		if err := m.repo.Insert(ctx, &alert); err != nil {
			m.log.Warn().Err(err).Str("metric", spec.Name).Msg("alert history insert failed")
		}
	}
	return nil
}

// enrich asks the insight service for an explanation, bounded by its own
// timeout. Any failure returns an empty insight; the alert proceeds.
func (m *Monitor) enrich(ctx context.Context, a domain.Alert) string {
	if m.enricher == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.InsightTimeout())
	defer cancel()

	var pctChange float64
	if a.Mean != 0 {
		pctChange = (a.Value - a.Mean) / a.Mean * 100
	}
	text, err := m.enricher.Generate(ctx, a.Metric, a.Value, a.Mean, pctChange)
	if err != nil {
		m.log.Warn().Err(err).Str("metric", a.Metric).Msg("insight generation failed")
		return ""
	}
	return text
}
