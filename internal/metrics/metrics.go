package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workmarket_booking_transitions_total",
			Help: "Количество успешных переходов заявок по статусам",
		},
		[]string{"from", "to"},
	)

	BookingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workmarket_booking_conflicts_total",
			Help: "Отклонённые из-за гонки операции над заявками",
		},
		[]string{"operation", "code"},
	)

	BookingApplications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workmarket_booking_applications_total",
			Help: "Количество созданных откликов",
		},
	)

	ListingViews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workmarket_listing_views_total",
			Help: "Количество просмотров объявлений",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workmarket_http_request_duration_seconds",
			Help:    "Длительность обработки HTTP-запросов",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
