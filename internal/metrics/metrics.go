package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarksRecorded counts attendance marking writes.
	MarksRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolsync_attendance_marks_total",
		Help: "Attendance marking events written.",
	})

	// ResultsEntered counts exam result rows written.
	ResultsEntered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolsync_exam_results_total",
		Help: "Exam result entries written.",
	})

	// SubscriptionRefreshes counts live-view recomputations.
	SubscriptionRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolsync_subscription_refreshes_total",
		Help: "Realtime subscription result-set refreshes delivered.",
	})

	// SubscriptionFallbacks counts queries degraded to client-side filtering.
	SubscriptionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolsync_subscription_fallbacks_total",
		Help: "Queries that fell back to unindexed fetch plus local filtering.",
	})

	// NotificationsSent counts guardian notifications dispatched.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolsync_notifications_sent_total",
		Help: "Guardian notifications handed to the gateway.",
	})
)
