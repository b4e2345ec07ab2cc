package domain

import (
	"time"
)

// Rule identifies which detection rule flagged a sample.
type Rule string

const (
	RuleNone         Rule = "none"
	RuleZScore       Rule = "zscore"
	RuleRateOfChange Rule = "rate_of_change"
	RuleBoth         Rule = "both"
)

// Direction restricts the z-score rule to one side of the baseline mean.
// Free-disk monitors only care about drops; error-rate monitors only about spikes.
type Direction string

const (
	DirectionBoth  Direction = "both"
	DirectionDrop  Direction = "drop"
	DirectionSpike Direction = "spike"
)

// Valid reports whether the direction is one of the recognized values.
func (d Direction) Valid() bool {
	switch d {
	case DirectionBoth, DirectionDrop, DirectionSpike:
		return true
	}
	return false
}

// Severity classifies how far outside the baseline an anomaly landed.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Sample is a single timestamped observation of a metric.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// WindowStats is a derived view over a metric's retained samples.
// Mean and StdDev cover the full baseline window; RecentMean covers
// only the most recent K samples and feeds the rate-of-change rule.
type WindowStats struct {
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"stddev"`
	RecentMean  float64 `json:"recent_mean"`
	SampleCount int     `json:"sample_count"`
}

// Verdict is the result of classifying one sample against its baseline.
type Verdict struct {
	IsAnomaly     bool    `json:"is_anomaly"`
	ZScore        float64 `json:"z_score"`
	PercentChange float64 `json:"percent_change"`
	Rule          Rule    `json:"rule"`
}

// Alert is a dispatched anomaly notification. Values are stored raw;
// Unit and DisplayDivisor only affect how notifiers render them.
type Alert struct {
	ID            int64     `json:"id,omitempty"`
	Metric        string    `json:"metric"`
	DisplayName   string    `json:"display_name"`
	Value         float64   `json:"value"`
	Mean          float64   `json:"mean"`
	LowerBound    float64   `json:"lower_bound"`
	UpperBound    float64   `json:"upper_bound"`
	ZScore        float64   `json:"z_score"`
	PercentChange float64   `json:"percent_change"`
	Rule          Rule      `json:"rule"`
	Severity      Severity  `json:"severity"`
	Insight       string    `json:"insight,omitempty"`
	FiredAt       time.Time `json:"fired_at"`

	Unit           string  `json:"unit,omitempty"`
	DisplayDivisor float64 `json:"-"`
}
