package cli

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/codebytes"
	"github.com/spf13/cobra"
)

// NewTableCommand creates the table command group.
func NewTableCommand(ro *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Provision the codebytes table",
	}
	cmd.AddCommand(newTableCreateCommand(ro))
	return cmd
}

func newTableCreateCommand(ro *RootOptions) *cobra.Command {
	var skipTTL bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the table, its share link indexes and the ttl setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ro.load()
			if err != nil {
				return err
			}
			admin, err := ro.OpenAdmin(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			created := true
			if _, err := admin.CreateTable(cmd.Context(), codebytes.TableDefinition(cfg.Table)); err != nil {
				var inUse *types.ResourceInUseException
				if !errors.As(err, &inUse) {
					return fmt.Errorf("failed to create table %s: %w", cfg.Table, err)
				}
				created = false
			}

			if !skipTTL {
				if _, err := admin.UpdateTimeToLive(cmd.Context(), codebytes.TimeToLiveDefinition(cfg.Table)); err != nil {
					return fmt.Errorf("failed to enable ttl on %s: %w", cfg.Table, err)
				}
			}

			if ro.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"table": cfg.Table, "created": created})
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created table %s\n", cfg.Table)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "table %s already exists\n", cfg.Table)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipTTL, "skip-ttl", false, "do not enable expiry on the ttl attribute")
	return cmd
}
