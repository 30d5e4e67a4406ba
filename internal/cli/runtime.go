package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/nisimpson/codebytes"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Catalog is the file format read by "runtime load".
type Catalog struct {
	Runtimes []codebytes.RuntimeInput `yaml:"runtimes"`
}

// ParseCatalog decodes a runtime catalog. Every runtime needs a name and an arn.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for i, rt := range c.Runtimes {
		if rt.Name == "" || rt.ARN == "" {
			return nil, fmt.Errorf("runtime %d: name and arn are required", i)
		}
	}
	return &c, nil
}

// NewRuntimeCommand creates the runtime command group.
func NewRuntimeCommand(ro *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Manage execution runtimes",
	}
	cmd.AddCommand(newRuntimePutCommand(ro))
	cmd.AddCommand(newRuntimeLoadCommand(ro))
	cmd.AddCommand(newRuntimeListCommand(ro))
	return cmd
}

func (ro *RootOptions) openTable(cmd *cobra.Command) (*codebytes.Table, error) {
	cfg, err := ro.load()
	if err != nil {
		return nil, err
	}
	return ro.OpenTable(cmd.Context(), cfg, ro.logger(cmd))
}

// putRuntimes stores every input, replacing existing runtimes of the same name.
func putRuntimes(ctx context.Context, table *codebytes.Table, inputs []codebytes.RuntimeInput) ([]RuntimeRow, error) {
	rows := make([]RuntimeRow, 0, len(inputs))
	for _, in := range inputs {
		if in.User == "" {
			in.User = table.SystemUser
		}
		rt, err := table.NewRuntime(ctx, in)
		if err != nil {
			return rows, fmt.Errorf("runtime %s: %w", in.Name, err)
		}
		if err := rt.Create(ctx, codebytes.Overwrite()); err != nil {
			return rows, fmt.Errorf("runtime %s: %w", in.Name, err)
		}
		rows = append(rows, runtimeRow(rt.Doc()))
	}
	return rows, nil
}

func newRuntimePutCommand(ro *RootOptions) *cobra.Command {
	var in codebytes.RuntimeInput

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Create or replace a runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := ro.openTable(cmd)
			if err != nil {
				return err
			}
			rows, err := putRuntimes(systemContext(cmd), table, []codebytes.RuntimeInput{in})
			if err != nil {
				return err
			}
			return writeRuntimes(cmd.OutOrStdout(), ro.Format, rows)
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "runtime name")
	cmd.Flags().StringVar(&in.ARN, "arn", "", "execution target (function name or ARN)")
	cmd.Flags().StringSliceVar(&in.Requirements, "requirement", nil, "dependency identifier (repeatable)")
	cmd.Flags().StringVar(&in.Description, "description", "", "runtime description")
	cmd.Flags().StringVar(&in.User, "user", "", "partition to store the runtime in (default: system catalog)")
	cmd.Flags().BoolVar(&in.System, "system", true, "protect the runtime from updates")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("arn")
	return cmd
}

func newRuntimeLoadCommand(ro *RootOptions) *cobra.Command {
	var system bool

	cmd := &cobra.Command{
		Use:   "load <catalog.yaml>",
		Short: "Create or replace every runtime of a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read catalog: %w", err)
			}
			catalog, err := ParseCatalog(data)
			if err != nil {
				return err
			}
			if system {
				for i := range catalog.Runtimes {
					catalog.Runtimes[i].System = true
				}
			}

			table, err := ro.openTable(cmd)
			if err != nil {
				return err
			}
			rows, err := putRuntimes(systemContext(cmd), table, catalog.Runtimes)
			if err != nil {
				return err
			}
			return writeRuntimes(cmd.OutOrStdout(), ro.Format, rows)
		},
	}

	cmd.Flags().BoolVar(&system, "system", true, "protect every loaded runtime from updates")
	return cmd
}

func newRuntimeListCommand(ro *RootOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the runtimes of a partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := ro.openTable(cmd)
			if err != nil {
				return err
			}
			if user == "" {
				user = table.SystemUser
			}

			ctx := systemContext(cmd)
			var rows []RuntimeRow
			cursor := ""
			for {
				res, err := table.ListRuntimes(ctx, user, cursor)
				if err != nil {
					return err
				}
				for _, doc := range res.Results {
					rows = append(rows, runtimeRow(doc))
				}
				if res.Next == "" {
					break
				}
				cursor = res.Next
			}
			if rows == nil {
				rows = []RuntimeRow{}
			}
			return writeRuntimes(cmd.OutOrStdout(), ro.Format, rows)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "partition to list (default: system catalog)")
	return cmd
}
