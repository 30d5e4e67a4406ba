package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nisimpson/codebytes"
	"github.com/nisimpson/codebytes/config"
	"github.com/spf13/cobra"
)

// TableAdmin is the subset of the DynamoDB API used to provision the table.
type TableAdmin interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// RootOptions holds global flags and the factories commands use to reach AWS.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Table   string // overrides the configured table name

	// Config loads the configuration. Defaults to config.LoadConfig.
	Config func() (*config.Config, error)
	// OpenTable builds the codebytes table. Defaults to Config.NewTable.
	OpenTable func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*codebytes.Table, error)
	// OpenAdmin builds the provisioning client. Defaults to a DynamoDB client.
	OpenAdmin func(ctx context.Context, cfg *config.Config) (TableAdmin, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func defaultOpenTable(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*codebytes.Table, error) {
	return cfg.NewTable(ctx, logger)
}

func defaultOpenAdmin(ctx context.Context, cfg *config.Config) (TableAdmin, error) {
	awsCfg, err := cfg.AWS(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.DynamoDB(awsCfg), nil
}

// NewRootCommand creates the root command of the codebytes admin CLI.
func NewRootCommand(opts ...func(*RootOptions)) *cobra.Command {
	ro := &RootOptions{
		Config:    config.LoadConfig,
		OpenTable: defaultOpenTable,
		OpenAdmin: defaultOpenAdmin,
	}
	for _, opt := range opts {
		opt(ro)
	}

	cmd := &cobra.Command{
		Use:   "codebytes",
		Short: "Administer a codebytes deployment",
		Long: `Administer a codebytes deployment: provision its DynamoDB table and
manage the system runtime catalog. Configuration is read from the
environment (TABLE, APP_URL, DYNAMODB_ENDPOINT, ...).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, ro.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", ro.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&ro.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&ro.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&ro.Table, "table", "", "table name (overrides TABLE)")

	cmd.AddCommand(NewTableCommand(ro))
	cmd.AddCommand(NewRuntimeCommand(ro))

	return cmd
}

// load returns the configuration with flag overrides applied.
func (ro *RootOptions) load() (*config.Config, error) {
	cfg, err := ro.Config()
	if err != nil {
		return nil, err
	}
	if ro.Table != "" {
		cfg.Table = ro.Table
	}
	return cfg, nil
}

func (ro *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if ro.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// systemContext returns the command context acting as the system identity.
func systemContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return codebytes.WithIdentity(ctx, codebytes.System)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
