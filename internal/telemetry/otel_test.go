package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Run("disabled installs no provider", func(t *testing.T) {
		shutdown, err := Setup(t.Context(), Config{})
		require.NoError(t, err)
		require.NoError(t, shutdown(t.Context()))
	})

	t.Run("rejects an out of range sample ratio", func(t *testing.T) {
		for _, r := range []float64{-0.1, 1.5} {
			_, err := Setup(t.Context(), Config{Enabled: true, SampleRatio: r})
			require.ErrorContains(t, err, "sample ratio")
		}
	})
}

func TestExporterOptions(t *testing.T) {
	require.Len(t, Config{}.exporterOptions(), 1)
	require.Len(t, Config{Insecure: true}.exporterOptions(), 2)
	require.Len(t, Config{Insecure: true, Headers: map[string]string{"x-api-key": "k"}}.exporterOptions(), 3)
}

func TestSampler(t *testing.T) {
	require.Contains(t, Config{}.sampler().Description(), "AlwaysOnSampler")
	require.Contains(t, Config{SampleRatio: 1}.sampler().Description(), "AlwaysOnSampler")
	require.Contains(t, Config{SampleRatio: 0.25}.sampler().Description(), "TraceIDRatioBased{0.25}")
}
