package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{"OTEL_SERVICE_NAME", "INSTRUMENTATION_ENABLED", "METRICS_EXPORTER", "TRACING_EXPORTER", "OTEL_TRACES_SAMPLER_ARG", "AUDIT_LOGGING_INCLUDE_PII"} {
		t.Setenv(key, "")
	}

	config := DefaultConfig()

	assert.Equal(t, "plannr", config.ServiceName)
	assert.True(t, config.Enabled)
	assert.Equal(t, ExporterPrometheus, config.MetricsExporter)
	assert.Equal(t, ExporterNone, config.TracingExporter)
	assert.Equal(t, 0.1, config.TraceSamplingRate)
	assert.True(t, config.Audit.Enabled)
	assert.False(t, config.Audit.IncludePII)
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "test-service")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "stdout")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("AUDIT_LOGGING_INCLUDE_PII", "true")

	config := DefaultConfig()

	assert.Equal(t, "test-service", config.ServiceName)
	assert.False(t, config.Enabled)
	assert.Equal(t, "stdout", config.MetricsExporter)
	assert.Equal(t, "stdout", config.TracingExporter)
	assert.Equal(t, 0.5, config.TraceSamplingRate)
	assert.True(t, config.Audit.IncludePII)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errContains string
	}{
		{
			name: "valid config with prometheus",
			config: Config{
				ServiceName:     "test",
				Enabled:         true,
				MetricsExporter: ExporterPrometheus,
				TracingExporter: ExporterNone,
			},
		},
		{
			name: "valid config with otlp",
			config: Config{
				ServiceName:     "test",
				Enabled:         true,
				MetricsExporter: ExporterPrometheus,
				TracingExporter: ExporterOTLP,
				OTLPEndpoint:    "localhost:4318",
			},
		},
		{
			name:        "invalid sampling rate negative",
			config:      Config{TraceSamplingRate: -0.5},
			errContains: "sampling rate",
		},
		{
			name:        "invalid sampling rate above 1",
			config:      Config{TraceSamplingRate: 1.5},
			errContains: "sampling rate",
		},
		{
			name:        "invalid metrics exporter",
			config:      Config{MetricsExporter: "invalid"},
			errContains: "invalid metrics exporter",
		},
		{
			name:        "invalid tracing exporter",
			config:      Config{TracingExporter: "invalid"},
			errContains: "invalid tracing exporter",
		},
		{
			name:        "otlp tracing without endpoint",
			config:      Config{TracingExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required",
		},
		{
			name:        "otlp metrics without endpoint",
			config:      Config{MetricsExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errContains == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")
	t.Setenv("TEST_BOOL_TRUE", "true")
	t.Setenv("TEST_BOOL_INVALID", "not_a_bool")
	t.Setenv("TEST_FLOAT", "0.75")
	t.Setenv("TEST_FLOAT_INVALID", "not_a_float")

	assert.Equal(t, "test_value", getEnvOrDefault("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnvOrDefault("NONEXISTENT_VAR", "default"))

	assert.True(t, getEnvBoolOrDefault("TEST_BOOL_TRUE", false))
	assert.True(t, getEnvBoolOrDefault("TEST_BOOL_INVALID", true))
	assert.False(t, getEnvBoolOrDefault("NONEXISTENT", false))

	assert.Equal(t, 0.75, getEnvFloatOrDefault("TEST_FLOAT", 0.5))
	assert.Equal(t, 0.5, getEnvFloatOrDefault("TEST_FLOAT_INVALID", 0.5))
	assert.Equal(t, 0.5, getEnvFloatOrDefault("NONEXISTENT", 0.5))
}
