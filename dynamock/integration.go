package dynamock

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nisimpson/codebytes"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	Port             int
	SkipIfNotRunning bool
	TablePrefix      string
	CleanupTimeout   time.Duration
}

// DefaultIntegrationTestConfig returns a default configuration for integration tests.
func DefaultIntegrationTestConfig() *IntegrationTestConfig {
	return &IntegrationTestConfig{
		Port:             DefaultLocalPort,
		SkipIfNotRunning: true,
		TablePrefix:      "integration-test",
		CleanupTimeout:   30 * time.Second,
	}
}

// NewTestTable generates a unique table name for testing.
func NewTestTable(prefix string) string {
	name := strings.NewReplacer("/", "-", " ", "-").Replace(prefix)
	return fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
}

// RunIntegrationTest runs fn against a fresh table on DynamoDB Local. The
// test is skipped in short mode or when DynamoDB Local is not running,
// unless the config says otherwise. The table is deleted afterwards.
func RunIntegrationTest(t *testing.T, config *IntegrationTestConfig, fn func(store *codebytes.DynamoStore)) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if config == nil {
		config = DefaultIntegrationTestConfig()
	}

	local := NewLocalDynamoDB(config.Port)
	ctx := context.Background()

	if !local.IsAvailable(ctx) {
		if config.SkipIfNotRunning {
			t.Skipf("DynamoDB Local not available on port %d", config.Port)
		}
		t.Fatalf("DynamoDB Local not available on port %d", config.Port)
	}

	tableName := NewTestTable(config.TablePrefix)
	if err := local.CreateTable(ctx, tableName); err != nil {
		t.Fatalf("Failed to create test table %s: %v", tableName, err)
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), config.CleanupTimeout)
		defer cancel()

		if err := local.DeleteTable(cleanupCtx, tableName); err != nil {
			t.Errorf("Failed to cleanup table %s: %v", tableName, err)
		}
	}()

	fn(codebytes.NewDynamoStore(local.Client, tableName))
}
