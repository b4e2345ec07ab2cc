package detector

import (
	"math"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

// Policy holds the per-metric detection thresholds.
type Policy struct {
	// ZScoreThreshold is the minimum |z| to flag via the z-score rule.
	ZScoreThreshold float64
	// RateChangeThreshold is the minimum |percent change| vs the recent
	// mean to flag via the rate-of-change rule.
	RateChangeThreshold float64
	// Direction restricts the z-score rule to drops or spikes.
	Direction domain.Direction
}

// Classify evaluates one sample against its window statistics using two
// independent rules combined by OR. Callers must not invoke it while the
// series is still in its learning phase.
//
// The z-score rule cannot fire when stddev is zero; the rate-of-change rule
// cannot fire when the recent mean is zero. Direction only constrains the
// z-score rule: a drop-only metric ignores values above the mean.
func Classify(value float64, st domain.WindowStats, p Policy) domain.Verdict {
	v := domain.Verdict{Rule: domain.RuleNone}

	zFired := false
	if st.StdDev > 0 {
		v.ZScore = (value - st.Mean) / st.StdDev
		if math.Abs(v.ZScore) > p.ZScoreThreshold {
			switch p.Direction {
			case domain.DirectionDrop:
				zFired = v.ZScore < 0
			case domain.DirectionSpike:
				zFired = v.ZScore > 0
			default:
				zFired = true
			}
		}
	}

	rocFired := false
	if st.RecentMean != 0 {
		v.PercentChange = (value - st.RecentMean) / st.RecentMean * 100
		rocFired = math.Abs(v.PercentChange) > p.RateChangeThreshold
	}

	switch {
	case zFired && rocFired:
		v.Rule = domain.RuleBoth
	case zFired:
		v.Rule = domain.RuleZScore
	case rocFired:
		v.Rule = domain.RuleRateOfChange
	}
	v.IsAnomaly = zFired || rocFired
	return v
}

// SeverityOf grades an anomalous verdict. A z-score more than 1.5 sigma past
// the threshold, or a rate of change past twice its threshold, is high;
// everything else that fired is medium.
func SeverityOf(v domain.Verdict, p Policy) domain.Severity {
	if !v.IsAnomaly {
		return domain.SeverityLow
	}
	if math.Abs(v.ZScore) > p.ZScoreThreshold+1.5 {
		return domain.SeverityHigh
	}
	if p.RateChangeThreshold > 0 && math.Abs(v.PercentChange) > 2*p.RateChangeThreshold {
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}
