package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/redlight-race-go/pkg/publish/console"
	"github.com/mpapenbr/redlight-race-go/pkg/repository/result"
)

var (
	limit  int
	output string
)

func NewResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "access stored race results",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmdutil.SetupLogger(os.Stderr)
			return err
		},
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "text",
		"output format (text, json)")
	cmd.AddCommand(newListCmd(), newShowCmd(), newDeleteCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "lists the latest results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				items, err := result.List(cmd.Context(), pool, limit)
				if err != nil {
					return err
				}
				if output == "json" {
					return writeJSON(cmd.OutOrStdout(), items)
				}
				return console.WriteResultList(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "max number of results (0 = all)")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "shows a single result including standings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				item, err := result.LoadByID(cmd.Context(), pool, args[0])
				if err != nil {
					return err
				}
				if output == "json" {
					return writeJSON(cmd.OutOrStdout(), item)
				}
				return console.WriteResult(cmd.OutOrStdout(), item)
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "deletes a result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				num, err := result.DeleteByID(cmd.Context(), pool, args[0])
				if err != nil {
					return err
				}
				if num == 0 {
					return fmt.Errorf("%w: %s", result.ErrNotFound, args[0])
				}
				log.Info("Result deleted", log.String("id", args[0]))
				return nil
			})
		},
	}
}

func withPool(ctx context.Context, fn func(pool *pgxpool.Pool) error) error {
	pool, err := cmdutil.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
