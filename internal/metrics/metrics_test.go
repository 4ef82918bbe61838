package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSent(t *testing.T) {
	before := testutil.ToFloat64(MessagesSent.WithLabelValues("metrics-test"))
	RecordSent("metrics-test")
	RecordSent("metrics-test")
	assert.Equal(t, before+2, testutil.ToFloat64(MessagesSent.WithLabelValues("metrics-test")))
}

func TestRecordFailed(t *testing.T) {
	before := testutil.ToFloat64(MessagesFailed.WithLabelValues("metrics-test", StageCompose))
	RecordFailed("metrics-test", StageCompose)
	assert.Equal(t, before+1, testutil.ToFloat64(MessagesFailed.WithLabelValues("metrics-test", StageCompose)))
	assert.Zero(t, testutil.ToFloat64(MessagesFailed.WithLabelValues("metrics-test", StageTransport)))
}
