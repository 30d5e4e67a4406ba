// Package config handles configuration for the codebytes resolver and admin
// CLI, including defaults, the environment overlay and the AWS clients built
// from it.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/nisimpson/codebytes"
)

// Config holds runtime settings for codebytes.
//
// Fields:
//   - Table: name of the DynamoDB table.
//   - AppURL: base URL of the share links.
//   - LinkPath: path segment under AppURL for share links.
//   - DefaultTimeout: execution timeout when a request gives none.
//   - FreeSnippetTTL: lifetime of anonymous and public snippets.
//   - PublicUser / SystemUser: partition names of the anonymous and system identities.
//   - DynamoDBEndpoint: optional endpoint override, e.g. DynamoDB Local.
//   - Region: AWS region; empty uses the SDK's default chain.
//   - LogLevel: minimum level of the slog handler.
type Config struct {
	Table            string
	AppURL           string
	LinkPath         string
	DefaultTimeout   time.Duration
	FreeSnippetTTL   time.Duration
	PublicUser       string
	SystemUser       string
	DynamoDBEndpoint string
	Region           string
	LogLevel         slog.Level
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Table = "codebytes"
	c.AppURL = "http://localhost:3000"
	c.LinkPath = "snippets"
	c.DefaultTimeout = 3 * time.Second
	c.FreeSnippetTTL = 24 * time.Hour
	c.PublicUser = "PUBLIC"
	c.SystemUser = "SYSTEM"
	c.LogLevel = slog.LevelInfo
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply copies the settings that shape documents and links onto t.
func (c *Config) Apply(t *codebytes.Table) {
	t.AppURL = c.AppURL
	t.LinkPath = c.LinkPath
	t.DefaultTimeout = c.DefaultTimeout
	t.FreeSnippetTTL = c.FreeSnippetTTL
	t.AnonymousUser = c.PublicUser
	t.SystemUser = c.SystemUser
	t.PublicPartitions = []string{c.PublicUser, c.SystemUser}
}

// AWS loads the shared AWS configuration.
func (c *Config) AWS(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}

// DynamoDB creates a DynamoDB client, honoring DynamoDBEndpoint.
func (c *Config) DynamoDB(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if c.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(c.DynamoDBEndpoint)
		}
	})
}

// NewTable wires a codebytes table backed by DynamoDB with Lambda execution.
func (c *Config) NewTable(ctx context.Context, logger *slog.Logger) (*codebytes.Table, error) {
	cfg, err := c.AWS(ctx)
	if err != nil {
		return nil, err
	}

	store := codebytes.NewDynamoStore(c.DynamoDB(cfg), c.Table)
	return codebytes.NewTable(store, c.Apply, func(t *codebytes.Table) {
		t.Executor = codebytes.NewLambdaExecutor(lambda.NewFromConfig(cfg))
		if logger != nil {
			t.Logger = logger
		}
	}), nil
}
