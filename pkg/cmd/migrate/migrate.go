package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/redlight-race-go/pkg/config"
	dbMigrate "github.com/mpapenbr/redlight-race-go/pkg/db/migrate"
	"github.com/mpapenbr/redlight-race-go/pkg/utils"
)

var sslDisable bool

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cmdutil.SetupLogger(os.Stderr); err != nil {
				return err
			}
			return startMigration(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceUrl,
		"migration-source-url",
		"m",
		"",
		"url to migration files, e.g. file:///migrations (default: embedded migrations)")
	cmd.Flags().BoolVar(&sslDisable, "ssl-disable", true,
		"append sslmode=disable to the database url if no sslmode is given")

	return cmd
}

func startMigration(ctx context.Context) error {
	if config.DB == "" {
		return errors.New("no database configured (--db)")
	}
	if addr := utils.ExtractFromDBURL(config.DB); addr != "" {
		if err := utils.WaitForTCP(ctx, addr, cmdutil.WaitTimeout()); err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
	}
	dbURL := config.DB
	if sslDisable {
		dbURL = prepareURLForDB(dbURL)
	}
	if config.MigrationSourceUrl == "" {
		log.Info("Using embedded migrations")
		return dbMigrate.MigrateDb(dbURL)
	}
	log.Info("Using migrations files at", log.String("source", config.MigrationSourceUrl))
	return dbMigrate.MigrateDbFromSource(dbURL, config.MigrationSourceUrl)
}

func prepareURLForDB(url string) string {
	if strings.Contains(url, "sslmode=") {
		return url
	}
	options := "sslmode=disable"
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
