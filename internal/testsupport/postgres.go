package testsupport

import (
	"testing"

	"chiron/internal/adapters/config"
	"chiron/internal/adapters/postgres"
)

// PostgresTestHelper manages a database connection for integration tests.
// The bundle repository owns its transactions, so tests run against the real
// connection and clean their rows up afterward.
type PostgresTestHelper struct {
	client *postgres.Client
}

// NewPostgresTestHelper opens a connection for the duration of the test.
func NewPostgresTestHelper(t *testing.T, cfg config.PostgresConfig) *PostgresTestHelper {
	t.Helper()

	client, err := postgres.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to create postgres client: %v", err)
	}

	helper := &PostgresTestHelper{client: client}
	t.Cleanup(func() {
		_ = client.Close()
	})

	return helper
}

// Client returns the connected adapter client.
func (h *PostgresTestHelper) Client() *postgres.Client {
	return h.client
}

// NewTestPostgres creates a test postgres helper with config loaded from the
// environment, skipping the test when no integration environment is present.
func NewTestPostgres(t *testing.T) *PostgresTestHelper {
	t.Helper()

	dbConfigs := LoadDatabaseConfigsFromEnv(t)

	return NewPostgresTestHelper(t, dbConfigs.Postgres)
}
