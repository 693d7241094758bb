//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/redlight-race-go/pkg/db/migrate"
	database "github.com/mpapenbr/redlight-race-go/pkg/db/postgres"
)

// SetupTestDb starts (or reuses) the test container and returns a pool
// for the migrated database
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	container, err := StartPostgres(ctx, WithName("redlight-race-test"))
	if err != nil {
		log.Fatal(err)
	}
	dsn, err := container.DSN(ctx)
	if err != nil {
		log.Fatal(err)
	}
	return setupPool(ctx, dsn)
}

// SetupExternalTestDb uses the database referenced by TESTDB_URL
func SetupExternalTestDb() *pgxpool.Pool {
	return setupPool(context.Background(), os.Getenv("TESTDB_URL"))
}

func setupPool(ctx context.Context, dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithURL(ctx, dbURL)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

// ClearResultTables removes all stored results. Standings go by cascade.
func ClearResultTables(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from race_result")
}
