package api

import (
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const metricsContextKey = "request_metrics"

type requestMetric struct {
	start      time.Time
	items      int
	hasItems   bool
	errorStage string
}

// requestMetrics logs one structured line per API request.
func requestMetrics(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m := &requestMetric{start: time.Now()}
			c.Set(metricsContextKey, m)
			err := next(c)

			fields := log.Fields{
				"route":    c.Path(),
				"method":   c.Request().Method,
				"status":   c.Response().Status,
				"total_ms": durationToMillis(time.Since(m.start)),
			}
			if m.hasItems {
				fields["items_returned"] = m.items
			}
			if m.errorStage != "" {
				fields["error_stage"] = m.errorStage
			}
			if err != nil {
				fields["error"] = err.Error()
			}
			logger.WithFields(fields).Info("api.request.metrics")
			return err
		}
	}
}

func metricFrom(c echo.Context) *requestMetric {
	m, _ := c.Get(metricsContextKey).(*requestMetric)
	return m
}

func observeItems(c echo.Context, n int) {
	if m := metricFrom(c); m != nil {
		m.items = n
		m.hasItems = true
	}
}

func setErrorStage(c echo.Context, stage string) {
	if m := metricFrom(c); m != nil && stage != "" {
		m.errorStage = stage
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
