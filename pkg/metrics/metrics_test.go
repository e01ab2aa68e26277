package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/core-tools/hsu-punit/pkg/provisioning"
	"github.com/core-tools/hsu-punit/pkg/punit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestLogger struct{}

func (l *TestLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (l *TestLogger) Debugf(format string, args ...interface{})               {}
func (l *TestLogger) Infof(format string, args ...interface{})                {}
func (l *TestLogger) Warnf(format string, args ...interface{})                {}
func (l *TestLogger) Errorf(format string, args ...interface{})               {}

func TestCollector_ObserveWarning(t *testing.T) {
	collector := NewCollector()
	normalizer := punit.NewNormalizer(&TestLogger{}, collector)

	normalizer.Parse(punit.Record{
		punit.KeyClasses:       12,
		punit.KeyRefreshBundle: 1.0,
	})
	normalizer.Parse(punit.Record{punit.KeyClasses: false})

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.parseWarnings.WithLabelValues(punit.KeyClasses)))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.parseWarnings.WithLabelValues(punit.KeyRefreshBundle)))
}

func TestCollector_OnEvent(t *testing.T) {
	collector := NewCollector()
	logger := &TestLogger{}
	registry := provisioning.NewRegistry(punit.NewNormalizer(logger, collector), logger, collector)

	_, err := registry.Update("p1", punit.Record{punit.KeyUnitName: "orders", punit.KeyRefreshBundle: true})
	require.NoError(t, err)
	_, err = registry.Update("p2", punit.Record{punit.KeyUnitName: "billing"})
	require.NoError(t, err)
	_, err = registry.Update("p3", punit.Record{})
	require.Error(t, err)
	require.NoError(t, registry.Delete("p2"))

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.updates.WithLabelValues("provisioned")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.updates.WithLabelValues("rejected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.updates.WithLabelValues("removed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.refreshes))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.units))
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector()
	collector.ObserveWarning(punit.KeyClasses)

	recorder := httptest.NewRecorder()
	collector.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.True(t, strings.Contains(body, `punit_parse_warnings_total{key="gemini.jpa.punit.classes"} 1`), body)
	assert.Contains(t, body, "punit_units 0")
}
