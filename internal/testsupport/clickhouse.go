package testsupport

import (
	"os"
	"testing"

	"chiron/internal/adapters/clickhouse"
	"chiron/internal/adapters/config"
)

// LoadClickHouseConfigFromEnv reads ClickHouse configuration for integration
// tests, skipping the test when no integration environment is present.
func LoadClickHouseConfigFromEnv(t *testing.T) config.ClickHouseConfig {
	t.Helper()

	if os.Getenv("CLICKHOUSE_HOST") == "" {
		t.Skipf("integration environment missing, set CLICKHOUSE_HOST to run")
	}

	return config.ClickHouseConfig{
		Host:     os.Getenv("CLICKHOUSE_HOST"),
		Port:     intValue("CLICKHOUSE_PORT", 9000),
		User:     valueWithDefault("CLICKHOUSE_USER", "default"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		Database: valueWithDefault("CLICKHOUSE_DB", "marketdata"),
	}
}

// NewTestClickHouse opens a ClickHouse connection for the duration of the
// test. Tests write under unique instrument ids and issue best-effort
// mutations on cleanup.
func NewTestClickHouse(t *testing.T) *clickhouse.Client {
	t.Helper()

	client, err := clickhouse.NewClient(LoadClickHouseConfigFromEnv(t))
	if err != nil {
		t.Fatalf("failed to create clickhouse client: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
