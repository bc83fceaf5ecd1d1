// Package metrics exposes Prometheus counters for the attendance flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckIns counts successfully opened sessions.
	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_checkins_total",
		Help: "Number of successful check-ins.",
	})

	// CheckOuts counts successfully closed sessions.
	CheckOuts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_checkouts_total",
		Help: "Number of successful check-outs.",
	})

	// DuplicateCheckIns counts check-ins rejected because a session was
	// already open for the student that day.
	DuplicateCheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_checkin_conflicts_total",
		Help: "Number of check-ins rejected as duplicates.",
	})
)
