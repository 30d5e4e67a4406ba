package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/nisimpson/codebytes"
	"github.com/nisimpson/codebytes/dynamock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "codebytes", c.Table)
	assert.Equal(t, "http://localhost:3000", c.AppURL)
	assert.Equal(t, "snippets", c.LinkPath)
	assert.Equal(t, 3*time.Second, c.DefaultTimeout)
	assert.Equal(t, 24*time.Hour, c.FreeSnippetTTL)
	assert.Equal(t, "PUBLIC", c.PublicUser)
	assert.Equal(t, "SYSTEM", c.SystemUser)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Empty(t, c.DynamoDBEndpoint)
}

func TestLoadConfig_EnvironmentOverlay(t *testing.T) {
	t.Setenv(EnvTable, "codebytes-prod")
	t.Setenv(EnvAppURL, "https://codebytes.dev")
	t.Setenv(EnvDefaultTimeout, "10")
	t.Setenv(EnvFreeSnippetTTL, "48")
	t.Setenv(EnvSystemUser, "ADMIN")
	t.Setenv(EnvDynamoDBEndpoint, "http://localhost:8000")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvPublicUser, "")

	c, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, "codebytes-prod", c.Table)
	assert.Equal(t, "https://codebytes.dev", c.AppURL)
	assert.Equal(t, 10*time.Second, c.DefaultTimeout)
	assert.Equal(t, 48*time.Hour, c.FreeSnippetTTL)
	assert.Equal(t, "ADMIN", c.SystemUser)
	assert.Equal(t, "PUBLIC", c.PublicUser, "empty variables keep the default")
	assert.Equal(t, "http://localhost:8000", c.DynamoDBEndpoint)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"timeout not a number", EnvDefaultTimeout, "soon"},
		{"negative ttl", EnvFreeSnippetTTL, "-1"},
		{"unknown log level", EnvLogLevel, "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)

			c, err := LoadConfig()
			require.Error(t, err)
			assert.Nil(t, c)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestConfig_Apply(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.AppURL = "https://codebytes.dev"
	c.PublicUser = "GUEST"
	c.FreeSnippetTTL = time.Hour

	table := codebytes.NewTable(dynamock.NewMemoryStore(), c.Apply)

	assert.Equal(t, "https://codebytes.dev", table.AppURL)
	assert.Equal(t, "GUEST", table.AnonymousUser)
	assert.Equal(t, "SYSTEM", table.SystemUser)
	assert.Equal(t, []string{"GUEST", "SYSTEM"}, table.PublicPartitions)
	assert.Equal(t, time.Hour, table.FreeSnippetTTL)

	s, err := table.NewSnippet(context.Background(), codebytes.SnippetInput{Runtime: "python38", Code: "1"})
	require.NoError(t, err)
	assert.Equal(t, "GUEST", s.User())
	assert.Contains(t, s.ReadOnlyLink(), "https://codebytes.dev/snippets/public/")
}

func TestConfig_DynamoDB(t *testing.T) {
	c := Config{DynamoDBEndpoint: "http://localhost:8000"}
	client := c.DynamoDB(aws.Config{Region: "us-east-1"})
	require.NotNil(t, client)
	assert.Equal(t, "http://localhost:8000", *client.Options().BaseEndpoint)
}
