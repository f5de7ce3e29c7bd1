package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustNewMetricsReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := MustNewMetrics(reg)
	b := MustNewMetrics(reg)

	a.IncPayload("wifi")
	b.IncPayload("wifi")
	assert.Equal(t, 2.0, testutil.ToFloat64(a.payloads.WithLabelValues("wifi")))
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.IncRecordOp("create", nil)
	m.IncRecordOp("create", errors.New("boom"))
	m.IncLogoFallback()
	m.IncRenderFailure("too_large")
	m.IncPreview("superseded")
	m.ObserveRender("png", "ok", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordOps.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordOps.WithLabelValues("create", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logoFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderErrors.WithLabelValues("too_large")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.previews.WithLabelValues("superseded")))

	n, err := testutil.GatherAndCount(reg, "qrgen_render_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncPayload("url")
		m.ObserveRender("svg", "ok", time.Second)
		m.IncRenderFailure("x")
		m.IncLogoFallback()
		m.IncRecordOp("get", nil)
		m.IncPreview("published")
	})
}
