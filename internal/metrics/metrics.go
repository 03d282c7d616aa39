package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"
)

const namespace = "wedsite"

const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
	OutcomeRetry   = "retry"
	OutcomeDropped = "dropped"
)

var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Visitor submissions by kind and outcome.",
	}, []string{"kind", "outcome"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification deliveries by kind and outcome.",
	}, []string{"kind", "outcome"})

	PhotoLikes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photo_likes_total",
		Help:      "Accepted photo likes.",
	})

	MediaUpload = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "media_upload_seconds",
		Help:      "Time spent storing an image with the media host.",
		Buckets:   []float64{.1, .25, .5, 1, 2, 4, 8, 16},
	}, []string{"provider", "outcome"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func Submission(kind, outcome string) {
	Submissions.WithLabelValues(kind, outcome).Inc()
}

func Notification(kind, outcome string) {
	Notifications.WithLabelValues(kind, outcome).Inc()
}

func ObserveUpload(provider, outcome string, started time.Time) {
	MediaUpload.WithLabelValues(provider, outcome).Observe(time.Since(started).Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records latency under the matched route pattern so ids do not
// blow up label cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
