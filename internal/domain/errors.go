package domain

import "errors"

var (
	// ErrNotReady is returned while a metric's baseline window is still
	// being populated. It marks the learning phase, not a failure.
	ErrNotReady = errors.New("baseline not ready")

	// ErrNoData is returned when a metrics query matched no series.
	ErrNoData = errors.New("query returned no data")

	// ErrUnknownMetric is returned when no samples were ever recorded for a name.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrHistoryDisabled is returned when alert history is queried but no
	// database was configured.
	ErrHistoryDisabled = errors.New("alert history is disabled")
)
