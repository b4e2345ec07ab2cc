package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

func defaultPolicy() Policy {
	return Policy{
		ZScoreThreshold:     2.5,
		RateChangeThreshold: 100,
		Direction:           domain.DirectionBoth,
	}
}

func TestClassify_ZScoreRule(t *testing.T) {
	st := domain.WindowStats{Mean: 100, StdDev: 20, RecentMean: 170}

	v := Classify(180, st, defaultPolicy())

	assert.True(t, v.IsAnomaly)
	assert.Equal(t, domain.RuleZScore, v.Rule)
	assert.InDelta(t, 4.0, v.ZScore, 1e-9)
}

func TestClassify_RateOfChangeRule(t *testing.T) {
	// Wide variance keeps the z-score quiet; the spike against the recent
	// mean still fires.
	st := domain.WindowStats{Mean: 200, StdDev: 100, RecentMean: 100}

	v := Classify(250, st, defaultPolicy())

	assert.True(t, v.IsAnomaly)
	assert.Equal(t, domain.RuleRateOfChange, v.Rule)
	assert.InDelta(t, 150.0, v.PercentChange, 1e-9)
}

func TestClassify_BothRules(t *testing.T) {
	st := domain.WindowStats{Mean: 100, StdDev: 20, RecentMean: 100}

	v := Classify(250, st, defaultPolicy())

	assert.True(t, v.IsAnomaly)
	assert.Equal(t, domain.RuleBoth, v.Rule)
	assert.InDelta(t, 7.5, v.ZScore, 1e-9)
	assert.InDelta(t, 150.0, v.PercentChange, 1e-9)
}

func TestClassify_Nominal(t *testing.T) {
	st := domain.WindowStats{Mean: 100, StdDev: 20, RecentMean: 100}

	v := Classify(110, st, defaultPolicy())

	assert.False(t, v.IsAnomaly)
	assert.Equal(t, domain.RuleNone, v.Rule)
	assert.InDelta(t, 0.5, v.ZScore, 1e-9)
	assert.InDelta(t, 10.0, v.PercentChange, 1e-9)
}

func TestClassify_ZeroStdDevDisablesZScore(t *testing.T) {
	st := domain.WindowStats{Mean: 100, StdDev: 0, RecentMean: 100}

	v := Classify(150, st, defaultPolicy())

	assert.False(t, v.IsAnomaly)
	assert.Equal(t, 0.0, v.ZScore)
}

func TestClassify_ZeroRecentMeanDisablesRateOfChange(t *testing.T) {
	st := domain.WindowStats{Mean: 0, StdDev: 0, RecentMean: 0}

	v := Classify(1000, st, defaultPolicy())

	assert.False(t, v.IsAnomaly)
	assert.Equal(t, 0.0, v.PercentChange)
}

func TestClassify_DropDirectionIgnoresSpikes(t *testing.T) {
	p := Policy{ZScoreThreshold: 2.5, RateChangeThreshold: 1000, Direction: domain.DirectionDrop}
	st := domain.WindowStats{Mean: 100, StdDev: 10, RecentMean: 100}

	spike := Classify(180, st, p)
	assert.False(t, spike.IsAnomaly, "drop-only metric must ignore values above the mean")

	drop := Classify(20, st, p)
	assert.True(t, drop.IsAnomaly)
	assert.Equal(t, domain.RuleZScore, drop.Rule)
}

func TestClassify_SpikeDirectionIgnoresDrops(t *testing.T) {
	p := Policy{ZScoreThreshold: 2.0, RateChangeThreshold: 1000, Direction: domain.DirectionSpike}
	st := domain.WindowStats{Mean: 100, StdDev: 10, RecentMean: 100}

	drop := Classify(50, st, p)
	assert.False(t, drop.IsAnomaly)

	spike := Classify(150, st, p)
	assert.True(t, spike.IsAnomaly)
}

func TestSeverityOf(t *testing.T) {
	p := defaultPolicy()

	tests := []struct {
		name string
		v    domain.Verdict
		want domain.Severity
	}{
		{"not anomalous", domain.Verdict{}, domain.SeverityLow},
		{"moderate zscore", domain.Verdict{IsAnomaly: true, ZScore: 3.0, Rule: domain.RuleZScore}, domain.SeverityMedium},
		{"extreme zscore", domain.Verdict{IsAnomaly: true, ZScore: 4.5, Rule: domain.RuleZScore}, domain.SeverityHigh},
		{"extreme negative zscore", domain.Verdict{IsAnomaly: true, ZScore: -4.5, Rule: domain.RuleZScore}, domain.SeverityHigh},
		{"moderate rate", domain.Verdict{IsAnomaly: true, PercentChange: 150, Rule: domain.RuleRateOfChange}, domain.SeverityMedium},
		{"extreme rate", domain.Verdict{IsAnomaly: true, PercentChange: 250, Rule: domain.RuleRateOfChange}, domain.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeverityOf(tt.v, p))
		})
	}
}
