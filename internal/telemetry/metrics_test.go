package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	m := GetMetrics()
	assert.Same(t, m, GetMetrics())

	ctx := context.Background()
	m.RecordLogin(ctx)
	m.RecordLogout(ctx)
	m.RecordHydration(ctx, "restored")
	m.RecordRefresh(ctx, false)
	m.RecordStaleResult(ctx, "refresh")
	m.RecordPersistError(ctx, "credential-token")
	m.RecordAPIRequest(ctx, "GET", 200, 12)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			names[metric.Name] = true
		}
	}

	for _, name := range []string{
		"certifychain.session.logins.total",
		"certifychain.session.logouts.total",
		"certifychain.session.hydrations.total",
		"certifychain.profile.refresh.errors.total",
		"certifychain.session.stale_results.total",
		"certifychain.persist.errors.total",
		"certifychain.api.requests.total",
		"certifychain.api.request.duration",
	} {
		assert.True(t, names[name], "missing %s", name)
	}
}
