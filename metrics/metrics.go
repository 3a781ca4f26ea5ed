package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dapaulid/stressy/types"
)

const (
	MetricsNamespace = "stressy"
)

var (
	Debug                bool = false
	validStatuses             = []types.RunStatus{types.RunStatusPass, types.RunStatusFail, types.RunStatusTimeout, types.RunStatusCancelled}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of completed runs of the command under test",
	}, []string{
		"run_id",
		"status",
	})

	runDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of individual runs",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
	}, []string{
		"run_id",
	})

	campaignResult = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_result",
		Help:      "Final result of the campaign",
	}, []string{
		"run_id",
		"reason",
	})

	campaignAttempts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_attempts",
		Help:      "Total number of runs attempted by the campaign",
	}, []string{
		"run_id",
	})

	campaignFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_failures",
		Help:      "Number of failed runs observed by the campaign",
	}, []string{
		"run_id",
	})

	campaignDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "campaign_duration_seconds",
		Help:      "Total wall-clock duration of the campaign",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordRun records one completed iteration of the command under test.
func RecordRun(runID string, status types.RunStatus, duration time.Duration) {
	if !isValidStatus(status) {
		log.Error("RecordRun - invalid status", "status", status)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "runs_total",
			"run_id", runID,
			"status", status)
	}
	runsTotal.WithLabelValues(runID, string(status)).Inc()
	runDurationSeconds.WithLabelValues(runID).Observe(duration.Seconds())
}

// RecordCampaign records the final aggregate of a campaign.
func RecordCampaign(summary *types.Summary) {
	campaignResult.WithLabelValues(summary.RunID, string(summary.Reason)).Set(1)
	campaignAttempts.WithLabelValues(summary.RunID).Set(float64(summary.Attempts))
	campaignFailures.WithLabelValues(summary.RunID).Set(float64(summary.Failures))
	campaignDuration.WithLabelValues(summary.RunID).Set(summary.Elapsed.Seconds())
}

func isValidStatus(status types.RunStatus) bool {
	return slices.Contains(validStatuses, status)
}
