package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    providerReqs = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "chaptersplit",
            Name:      "provider_requests_total",
            Help:      "Total AI provider requests by provider, model and result",
        },
        []string{"provider", "model", "result"},
    )

    providerLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "chaptersplit",
            Name:      "provider_request_duration_seconds",
            Help:      "Duration of AI provider requests by provider and model",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"provider", "model"},
    )

    detections = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "chaptersplit",
            Name:      "detections_total",
            Help:      "Chapter detection runs by strategy and result",
        },
        []string{"strategy", "result"},
    )

    detectionChapters = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "chaptersplit",
            Name:      "detection_chapters",
            Help:      "Number of chapters produced per successful detection",
            Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
        },
        []string{"strategy"},
    )

    chaptersExported = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "chaptersplit",
            Name:      "chapters_exported_total",
            Help:      "Exported chapters by result (success, failed)",
        },
        []string{"result"},
    )

    documentsLoaded = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "chaptersplit",
            Name:      "documents_loaded_total",
            Help:      "Documents loaded by source scheme and result",
        },
        []string{"scheme", "result"},
    )

    breakerEvents = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "chaptersplit",
            Name:      "breaker_events_total",
            Help:      "Circuit breaker events by provider, model and action",
        },
        []string{"provider", "model", "action"},
    )
)

// Init registers collectors.
func Init() {
    prometheus.MustRegister(providerReqs, providerLatency, detections, detectionChapters, chaptersExported, documentsLoaded, breakerEvents)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveProvider(provider, model, result string, dur time.Duration) {
    providerReqs.WithLabelValues(provider, model, result).Inc()
    providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncDetection(strategy, result string) { detections.WithLabelValues(strategy, result).Inc() }

func ObserveDetectionChapters(strategy string, n int) {
    detectionChapters.WithLabelValues(strategy).Observe(float64(n))
}

func IncExported(result string) { chaptersExported.WithLabelValues(result).Inc() }

func IncLoaded(scheme, result string) { documentsLoaded.WithLabelValues(scheme, result).Inc() }

func BreakerOpened(provider, model string) { breakerEvents.WithLabelValues(provider, model, "opened").Inc() }
func BreakerClosed(provider, model string) { breakerEvents.WithLabelValues(provider, model, "closed").Inc() }
