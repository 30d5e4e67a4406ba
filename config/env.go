package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables read by parseEnv.
const (
	EnvTable            = "TABLE"
	EnvAppURL           = "APP_URL"
	EnvLinkPath         = "SHARE_LINK_PATH"
	EnvDefaultTimeout   = "DEFAULT_LAMBDA_TIMEOUT" // seconds
	EnvFreeSnippetTTL   = "FREE_SNIPPET_TTL_HOURS"
	EnvPublicUser       = "PUBLIC_USER"
	EnvSystemUser       = "SYSTEM_USER"
	EnvDynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	EnvRegion           = "AWS_REGION"
	EnvLogLevel         = "LOG_LEVEL"
)

// parseEnv overrides cfg with every variable that is set and non-empty.
func parseEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	units := func(name string, unit time.Duration, dst *time.Duration) error {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s %q: expected a positive integer", name, v)
		}
		*dst = time.Duration(n) * unit
		return nil
	}

	str(EnvTable, &cfg.Table)
	str(EnvAppURL, &cfg.AppURL)
	str(EnvLinkPath, &cfg.LinkPath)
	str(EnvPublicUser, &cfg.PublicUser)
	str(EnvSystemUser, &cfg.SystemUser)
	str(EnvDynamoDBEndpoint, &cfg.DynamoDBEndpoint)
	str(EnvRegion, &cfg.Region)

	if err := units(EnvDefaultTimeout, time.Second, &cfg.DefaultTimeout); err != nil {
		return err
	}
	if err := units(EnvFreeSnippetTTL, time.Hour, &cfg.FreeSnippetTTL); err != nil {
		return err
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvLogLevel, v, err)
		}
	}
	return nil
}
