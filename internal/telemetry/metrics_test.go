package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCacheLookupCountsHitsAndMisses(t *testing.T) {
	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("metrics-test", "hit"))
	misses := testutil.ToFloat64(cacheLookups.WithLabelValues("metrics-test", "miss"))

	CacheLookup("metrics-test", true)
	CacheLookup("metrics-test", false)
	CacheLookup("metrics-test", false)

	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookups.WithLabelValues("metrics-test", "hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(cacheLookups.WithLabelValues("metrics-test", "miss")))
}

func TestRetryAttemptLabelsFailures(t *testing.T) {
	before := testutil.ToFloat64(retryAttempts.WithLabelValues("metrics-test", "failure"))

	RetryAttempt("metrics-test", errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(retryAttempts.WithLabelValues("metrics-test", "failure")))
}

func TestPoolSizeSetsGauges(t *testing.T) {
	PoolSize(2, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(poolConnections.WithLabelValues("active")))
	assert.Equal(t, 3.0, testutil.ToFloat64(poolConnections.WithLabelValues("idle")))
}

func TestOperationFinishedCountsSlow(t *testing.T) {
	before := testutil.ToFloat64(slowOperations.WithLabelValues("metrics-test"))

	OperationFinished("metrics-test", "success", 2*time.Second, true)
	OperationFinished("metrics-test", "success", time.Millisecond, false)

	assert.Equal(t, before+1, testutil.ToFloat64(slowOperations.WithLabelValues("metrics-test")))
}
