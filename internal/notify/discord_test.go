package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

func sampleAlert() domain.Alert {
	return domain.Alert{
		Metric:         "storage_space",
		DisplayName:    "Disk Storage - Free Space",
		Value:          52_000_000_000,
		Mean:           100_000_000_000,
		LowerBound:     80_000_000_000,
		UpperBound:     120_000_000_000,
		ZScore:         -4.2,
		PercentChange:  -48,
		Rule:           domain.RuleZScore,
		Severity:       domain.SeverityHigh,
		FiredAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Unit:           "GB",
		DisplayDivisor: 1e9,
	}
}

func fieldValue(t *testing.T, e embed, name string) string {
	t.Helper()
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("embed has no field %q", name)
	return ""
}

func TestSend(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	require.NoError(t, n.Send(context.Background(), sampleAlert()))

	require.Len(t, got.Embeds, 1)
	e := got.Embeds[0]
	assert.Equal(t, "🚨 Disk Storage - Free Space Anomaly Detected", e.Title)
	assert.Equal(t, colorHigh, e.Color)
	assert.Equal(t, "minio-sentinel", e.Footer.Text)

	assert.Equal(t, "high", fieldValue(t, e, "Severity"))
	assert.Equal(t, "`52.00 GB`", fieldValue(t, e, "Current Value"))
	assert.Equal(t, "`80.00 GB - 120.00 GB`", fieldValue(t, e, "Expected Range"))
	assert.Equal(t, "z-score (z=-4.20)", fieldValue(t, e, "Triggered Rule"))
	assert.Equal(t, "2025-06-01T12:00:00Z", fieldValue(t, e, "Timestamp"))
}

func TestSend_InsightFieldIncludedWhenPresent(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	a := sampleAlert()
	a.Insight = "Free space dropped sharply; check for runaway uploads."
	require.NoError(t, NewNotifier(srv.URL).Send(context.Background(), a))

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, a.Insight, fieldValue(t, got.Embeds[0], "Insight"))
}

func TestSend_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL).Send(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestBuildEmbed_SeverityColors(t *testing.T) {
	tests := []struct {
		severity domain.Severity
		color    int
	}{
		{domain.SeverityLow, colorLow},
		{domain.SeverityMedium, colorMedium},
		{domain.SeverityHigh, colorHigh},
	}
	for _, tt := range tests {
		a := sampleAlert()
		a.Severity = tt.severity
		assert.Equal(t, tt.color, buildEmbed(a).Color)
	}
}

func TestBuildEmbed_FallsBackToMetricName(t *testing.T) {
	a := sampleAlert()
	a.DisplayName = ""
	assert.Equal(t, "🚨 storage_space Anomaly Detected", buildEmbed(a).Title)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "52.00 GB", formatValue(52e9, domain.Alert{DisplayDivisor: 1e9, Unit: "GB"}))
	assert.Equal(t, "42.50", formatValue(42.5, domain.Alert{}))
	assert.Equal(t, "42.50 req/s", formatValue(42.5, domain.Alert{Unit: "req/s"}))
}

func TestRuleText_BothRules(t *testing.T) {
	a := sampleAlert()
	a.Rule = domain.RuleBoth
	a.ZScore = 3.1
	a.PercentChange = 150
	assert.Equal(t, "z-score (z=3.10) + rate of change (+150.0%)", ruleText(a))
}
